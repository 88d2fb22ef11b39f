package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun/migrate"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/infra/postgres"
	pgmigrations "quizmaster-service/internal/infra/postgres/migrations"
	infraredis "quizmaster-service/internal/infra/redis"
	"quizmaster-service/internal/logger"
)

func TestWizardEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.OpenDB(pgURL)
	defer db.Close()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := postgres.NewStore(db)
	created, err := app.Seed(ctx, store, sampleSeed())
	if err != nil || created != 1 {
		t.Fatalf("seed = (%d, %v)", created, err)
	}
	if created, _ := app.Seed(ctx, store, sampleSeed()); created != 0 {
		t.Fatalf("expected reseed to skip existing quiz, created %d", created)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	log := logger.Nop()
	quizRepo := infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute, log)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	scorer := app.NewScorer(store, nil, log)
	wizard := app.NewWizard(sessions, quizRepo, scorer, app.WizardConfig{}, log)
	catalog := app.NewCatalog(quizRepo, store, store)

	alice := app.Participant{UserID: "alice", SessionID: "s1"}
	if _, err := wizard.Start(ctx, alice, "quiz-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	step, err := wizard.Submit(ctx, alice, "quiz-1", "", "q1-b")
	if err != nil || step.Question == nil || step.Question.QuestionID != "q2" {
		t.Fatalf("first submit = (%+v, %v)", step, err)
	}
	step, err = wizard.Submit(ctx, alice, "quiz-1", "", "q2-a")
	if err != nil || !step.Complete() {
		t.Fatalf("second submit = (%+v, %v)", step, err)
	}
	if step.Attempt.Score != 3 || step.Attempt.MaxScore != 3 {
		t.Fatalf("unexpected attempt %+v", step.Attempt)
	}
	if _, err := wizard.View(ctx, alice, "quiz-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session cleared after completion, got %v", err)
	}

	result, err := catalog.Result(ctx, step.Attempt.ID, "alice")
	if err != nil || len(result.Answers) != 2 || result.QuizTitle != "Arithmetic" {
		t.Fatalf("result = (%+v, %v)", result, err)
	}
	if result.Answers[0].QuestionID != "q1" || result.Answers[1].QuestionID != "q2" {
		t.Fatalf("expected answers in question order, got %+v", result.Answers)
	}
	board, err := catalog.QuizLeaderboard(ctx, "quiz-1", 10)
	if err != nil || len(board.Entries) != 1 || board.Entries[0].UserID != "alice" {
		t.Fatalf("leaderboard = (%+v, %v)", board, err)
	}
	if created, err := catalog.Rate(ctx, "quiz-1", "alice", 7); err != nil || !created {
		t.Fatalf("rate = (%v, %v)", created, err)
	}
	if created, err := catalog.Rate(ctx, "quiz-1", "alice", 5); err != nil || created {
		t.Fatalf("re-rate = (%v, %v)", created, err)
	}
	listed, err := catalog.ListQuizzes(ctx, domain.QuizFilter{Sort: domain.SortRating})
	if err != nil || len(listed) != 1 || listed[0].AverageRating != 5 || listed[0].QuestionCount != 2 {
		t.Fatalf("listing = (%+v, %v)", listed, err)
	}

	// retiring through the redis cache stops new runs right away
	if err := app.SetQuizActive(ctx, store, "quiz-1", false, quizRepo); err != nil {
		t.Fatalf("retire: %v", err)
	}
	bob := app.Participant{UserID: "bob", SessionID: "s2"}
	if _, err := wizard.Start(ctx, bob, "quiz-1"); !errors.Is(err, domain.ErrQuizInactive) {
		t.Fatalf("expected retired quiz to refuse new runs, got %v", err)
	}
	owned, err := catalog.ListQuizzes(ctx, domain.QuizFilter{OwnerID: "owner"})
	if err != nil || len(owned) != 1 || owned[0].Active {
		t.Fatalf("owner listing = (%+v, %v)", owned, err)
	}
}

func TestCreateAttemptIsAtomicInPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := postgres.OpenDB(pgURL)
	defer db.Close()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := postgres.NewStore(db)
	if _, err := app.Seed(ctx, store, sampleSeed()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	attempt := domain.Attempt{ID: "a1", UserID: "alice", QuizID: "quiz-1", Score: 1, MaxScore: 3, CompletedAt: time.Now().UTC()}
	answers := []domain.Answer{
		{ID: "x1", AttemptID: "a1", QuestionID: "q1", OptionID: "q1-b", Correct: true},
		// unknown option violates a foreign key after the attempt row is written
		{ID: "x2", AttemptID: "a1", QuestionID: "q2", OptionID: "missing"},
	}
	if err := store.CreateAttempt(ctx, attempt, answers); err == nil {
		t.Fatalf("expected foreign key failure")
	}
	if _, _, err := store.GetAttempt(ctx, "a1"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected no partial attempt, got %v", err)
	}
}

func sampleSeed() app.SeedFile {
	return app.SeedFile{
		Categories: []domain.Category{{ID: "math", Name: "Mathematics"}},
		Quizzes: []domain.Quiz{{
			ID:         "quiz-1",
			Title:      "Arithmetic",
			CategoryID: "math",
			OwnerID:    "owner",
			Active:     true,
			Questions: []domain.Question{
				{ID: "q1", Text: "What is 2 + 2?", Points: 1, Options: []domain.Option{
					{ID: "q1-a", Text: "3"}, {ID: "q1-b", Text: "4", Correct: true},
				}},
				{ID: "q2", Text: "What is 7 x 6?", Points: 2, Options: []domain.Option{
					{ID: "q2-a", Text: "42", Correct: true}, {ID: "q2-b", Text: "36"},
				}},
			},
		}},
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
