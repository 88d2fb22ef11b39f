package cli

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"gopkg.in/yaml.v3"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/config"
	"quizmaster-service/internal/infra/memory"
	"quizmaster-service/internal/infra/postgres"
	"quizmaster-service/internal/infra/sqlite"
	"quizmaster-service/internal/logger"
)

//go:embed sample_quizzes.yaml
var sampleQuizzesYAML []byte

// durableStore is everything the service needs from the quiz database.
type durableStore interface {
	memory.QuizLoader
	app.AttemptStore
	app.CatalogStore
	app.QuizWriter
}

type pgStore struct {
	*postgres.QuizLoader
	*postgres.Store
}

type backend struct {
	store durableStore
	close func()
}

// openBackend picks Postgres, then SQLite, then an in-memory store seeded with sample quizzes.
func openBackend(ctx context.Context, cfg config.Config, log *logger.Logger) (*backend, error) {
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		db := postgres.OpenDB(cfg.Postgres.URL)
		log.Info("using postgres store")
		return &backend{
			store: pgStore{QuizLoader: postgres.NewQuizLoader(pool), Store: postgres.NewStore(db)},
			close: func() {
				pool.Close()
				_ = db.Close()
			},
		}, nil
	case cfg.SQLite.Path != "":
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		log.Info("using sqlite store", "path", cfg.SQLite.Path)
		return &backend{store: store, close: func() { _ = store.Close() }}, nil
	default:
		store := memory.NewStore()
		var seed app.SeedFile
		if err := yaml.Unmarshal(sampleQuizzesYAML, &seed); err != nil {
			return nil, fmt.Errorf("parse sample quizzes: %w", err)
		}
		if _, err := app.Seed(ctx, store, seed); err != nil {
			return nil, err
		}
		log.Warn("no database configured, using in-memory store with sample quizzes")
		return &backend{store: store, close: func() {}}, nil
	}
}
