package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"quizmaster-service/internal/domain"
)

type attemptModel struct {
	bun.BaseModel `bun:"table:attempts"`

	ID          string    `bun:"id,pk"`
	UserID      string    `bun:"user_id"`
	QuizID      string    `bun:"quiz_id"`
	Score       int       `bun:"score"`
	MaxScore    int       `bun:"max_score"`
	CompletedAt time.Time `bun:"completed_at"`
	TimeTakenMs int64     `bun:"time_taken_ms"`
}

type answerModel struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID         string `bun:"id,pk"`
	AttemptID  string `bun:"attempt_id"`
	QuestionID string `bun:"question_id"`
	OptionID   string `bun:"option_id"`
	Correct    bool   `bun:"is_correct"`
}

type categoryModel struct {
	bun.BaseModel `bun:"table:categories"`

	ID          string `bun:"id,pk"`
	Name        string `bun:"name"`
	Description string `bun:"description"`
}

type quizModel struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID          string    `bun:"id,pk"`
	Title       string    `bun:"title"`
	Description string    `bun:"description"`
	CategoryID  *string   `bun:"category_id"`
	OwnerID     string    `bun:"owner_id"`
	Active      bool      `bun:"active"`
	TimeLimit   *int      `bun:"time_limit_minutes"`
	CreatedAt   time.Time `bun:"created_at"`
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions"`

	ID       string `bun:"id,pk"`
	QuizID   string `bun:"quiz_id"`
	Text     string `bun:"text"`
	Points   int    `bun:"points"`
	Position int    `bun:"position"`
}

type optionModel struct {
	bun.BaseModel `bun:"table:options"`

	ID         string `bun:"id,pk"`
	QuestionID string `bun:"question_id"`
	Text       string `bun:"text"`
	Correct    bool   `bun:"is_correct"`
	Ordinal    int    `bun:"ordinal"`
}

type ratingModel struct {
	bun.BaseModel `bun:"table:ratings"`

	QuizID    string    `bun:"quiz_id,pk"`
	UserID    string    `bun:"user_id,pk"`
	Score     int       `bun:"score"`
	CreatedAt time.Time `bun:"created_at"`
}

// Store persists attempts, ratings and authored content in Postgres through bun.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// OpenDB opens a bun handle over pgdriver for the given DSN.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// CreateAttempt inserts the attempt and its answers in one transaction; on any error
// neither is visible to readers.
func (s *Store) CreateAttempt(ctx context.Context, attempt domain.Attempt, answers []domain.Answer) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := toAttemptModel(attempt)
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		if len(answers) == 0 {
			return nil
		}
		rows := make([]answerModel, 0, len(answers))
		for _, a := range answers {
			rows = append(rows, answerModel{
				ID:         a.ID,
				AttemptID:  a.AttemptID,
				QuestionID: a.QuestionID,
				OptionID:   a.OptionID,
				Correct:    a.Correct,
			})
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
		return nil
	})
}

func (s *Store) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, []domain.Answer, error) {
	var row attemptModel
	err := s.db.NewSelect().Model(&row).Where("id = ?", attemptID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, nil, err
	}

	var rows []answerModel
	err = s.db.NewSelect().Model(&rows).
		Join("JOIN questions AS q ON q.id = a.question_id").
		Where("a.attempt_id = ?", attemptID).
		OrderExpr("q.position").
		Scan(ctx)
	if err != nil {
		return domain.Attempt{}, nil, err
	}
	answers := make([]domain.Answer, 0, len(rows))
	for _, r := range rows {
		answers = append(answers, domain.Answer{
			ID:         r.ID,
			AttemptID:  r.AttemptID,
			QuestionID: r.QuestionID,
			OptionID:   r.OptionID,
			Correct:    r.Correct,
		})
	}
	return fromAttemptModel(row), answers, nil
}

func (s *Store) ListUserAttempts(ctx context.Context, userID string) ([]domain.Attempt, error) {
	var rows []attemptModel
	if err := s.db.NewSelect().Model(&rows).Where("user_id = ?", userID).OrderExpr("completed_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Attempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromAttemptModel(r))
	}
	return out, nil
}

func (s *Store) QuizLeaderboard(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	var rows []attemptModel
	err := s.db.NewSelect().Model(&rows).
		Where("quiz_id = ?", quizID).
		OrderExpr("score DESC, time_taken_ms ASC, completed_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.LeaderboardEntry{
			AttemptID:   r.ID,
			UserID:      r.UserID,
			Score:       r.Score,
			MaxScore:    r.MaxScore,
			TimeTaken:   time.Duration(r.TimeTakenMs) * time.Millisecond,
			CompletedAt: r.CompletedAt,
		})
	}
	return out, nil
}

func (s *Store) GlobalLeaderboard(ctx context.Context, limit int) ([]domain.UserStanding, error) {
	var rows []struct {
		UserID        string `bun:"user_id"`
		TotalScore    int    `bun:"total_score"`
		TotalAttempts int    `bun:"total_attempts"`
	}
	err := s.db.NewSelect().
		TableExpr("attempts").
		ColumnExpr("user_id").
		ColumnExpr("SUM(score) AS total_score").
		ColumnExpr("COUNT(*) AS total_attempts").
		Group("user_id").
		OrderExpr("total_score DESC, user_id ASC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserStanding, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.UserStanding{UserID: r.UserID, TotalScore: r.TotalScore, TotalAttempts: r.TotalAttempts})
	}
	return out, nil
}

func (s *Store) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.QuizSummary, error) {
	var rows []struct {
		ID            string    `bun:"id"`
		Title         string    `bun:"title"`
		Description   string    `bun:"description"`
		CategoryID    *string   `bun:"category_id"`
		OwnerID       string    `bun:"owner_id"`
		Active        bool      `bun:"active"`
		CreatedAt     time.Time `bun:"created_at"`
		QuestionCount int       `bun:"question_count"`
		AverageRating float64   `bun:"average_rating"`
	}
	q := s.db.NewSelect().
		TableExpr("quizzes AS q").
		ColumnExpr("q.id, q.title, q.description, q.category_id, q.owner_id, q.active, q.created_at").
		ColumnExpr("(SELECT COUNT(*) FROM questions qs WHERE qs.quiz_id = q.id) AS question_count").
		ColumnExpr("COALESCE((SELECT AVG(r.score)::float8 FROM ratings r WHERE r.quiz_id = q.id), 0) AS average_rating")
	if filter.OwnerID != "" {
		q = q.Where("q.owner_id = ?", filter.OwnerID)
	} else {
		q = q.Where("q.active")
	}
	if filter.CategoryID != "" {
		q = q.Where("q.category_id = ?", filter.CategoryID)
	}
	switch filter.Sort {
	case domain.SortOldest:
		q = q.OrderExpr("q.created_at ASC")
	case domain.SortRating:
		q = q.OrderExpr("average_rating DESC, q.created_at DESC")
	default:
		q = q.OrderExpr("q.created_at DESC")
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}

	out := make([]domain.QuizSummary, 0, len(rows))
	for _, r := range rows {
		summary := domain.QuizSummary{
			ID:            r.ID,
			Title:         r.Title,
			Description:   r.Description,
			OwnerID:       r.OwnerID,
			Active:        r.Active,
			QuestionCount: r.QuestionCount,
			AverageRating: r.AverageRating,
			CreatedAt:     r.CreatedAt,
		}
		if r.CategoryID != nil {
			summary.CategoryID = *r.CategoryID
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *Store) UpsertRating(ctx context.Context, rating domain.Rating) (bool, error) {
	var inserted bool
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO ratings (quiz_id, user_id, score, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (quiz_id, user_id) DO UPDATE SET score = EXCLUDED.score
		 RETURNING (xmax = 0)`,
		rating.QuizID, rating.UserID, rating.Score, rating.CreatedAt,
	).Scan(&inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func (s *Store) GetRating(ctx context.Context, quizID, userID string) (domain.Rating, bool, error) {
	var row ratingModel
	err := s.db.NewSelect().Model(&row).Where("quiz_id = ? AND user_id = ?", quizID, userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Rating{}, false, nil
	}
	if err != nil {
		return domain.Rating{}, false, err
	}
	return domain.Rating{QuizID: row.QuizID, UserID: row.UserID, Score: row.Score, CreatedAt: row.CreatedAt}, true, nil
}

func (s *Store) RatingSummary(ctx context.Context, quizID string) (domain.RatingSummary, error) {
	var summary domain.RatingSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(score)::float8, 0), COUNT(*) FROM ratings WHERE quiz_id = ?`, quizID,
	).Scan(&summary.Average, &summary.Count)
	return summary, err
}

func (s *Store) SaveCategory(ctx context.Context, category domain.Category) error {
	row := categoryModel{ID: category.ID, Name: category.Name, Description: category.Description}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Exec(ctx)
	return err
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (bool, error) {
	row := quizModel{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		OwnerID:     quiz.OwnerID,
		Active:      quiz.Active,
		TimeLimit:   quiz.TimeLimit,
		CreatedAt:   quiz.CreatedAt,
	}
	if quiz.CategoryID != "" {
		categoryID := quiz.CategoryID
		row.CategoryID = &categoryID
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.NewInsert().Model(&row).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) SetQuizActive(ctx context.Context, quizID string, active bool) error {
	res, err := s.db.NewUpdate().
		Model((*quizModel)(nil)).
		Set("active = ?", active).
		Where("id = ?", quizID).
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

// AddQuestion locks the quiz row so concurrent authors cannot claim the same position.
func (s *Store) AddQuestion(ctx context.Context, quizID string, question domain.Question) (domain.Question, error) {
	if err := question.Validate(); err != nil {
		return domain.Question{}, err
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var locked string
		err := tx.NewSelect().TableExpr("quizzes").Column("id").Where("id = ?", quizID).For("UPDATE").Scan(ctx, &locked)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return err
		}

		var next int
		if err := tx.NewSelect().TableExpr("questions").ColumnExpr("COALESCE(MAX(position), 0) + 1").Where("quiz_id = ?", quizID).Scan(ctx, &next); err != nil {
			return err
		}

		if question.ID == "" {
			question.ID = uuid.NewString()
		}
		question.QuizID = quizID
		question.Position = next
		qrow := questionModel{ID: question.ID, QuizID: quizID, Text: question.Text, Points: question.Points, Position: next}
		if _, err := tx.NewInsert().Model(&qrow).Exec(ctx); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		if len(question.Options) == 0 {
			return nil
		}

		question.Options = append([]domain.Option(nil), question.Options...)
		orows := make([]optionModel, 0, len(question.Options))
		for i := range question.Options {
			if question.Options[i].ID == "" {
				question.Options[i].ID = uuid.NewString()
			}
			question.Options[i].QuestionID = question.ID
			orows = append(orows, optionModel{
				ID:         question.Options[i].ID,
				QuestionID: question.ID,
				Text:       question.Options[i].Text,
				Correct:    question.Options[i].Correct,
				Ordinal:    i,
			})
		}
		if _, err := tx.NewInsert().Model(&orows).Exec(ctx); err != nil {
			return fmt.Errorf("insert options: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func toAttemptModel(a domain.Attempt) attemptModel {
	return attemptModel{
		ID:          a.ID,
		UserID:      a.UserID,
		QuizID:      a.QuizID,
		Score:       a.Score,
		MaxScore:    a.MaxScore,
		CompletedAt: a.CompletedAt,
		TimeTakenMs: a.TimeTaken.Milliseconds(),
	}
}

func fromAttemptModel(r attemptModel) domain.Attempt {
	return domain.Attempt{
		ID:          r.ID,
		UserID:      r.UserID,
		QuizID:      r.QuizID,
		Score:       r.Score,
		MaxScore:    r.MaxScore,
		CompletedAt: r.CompletedAt,
		TimeTaken:   time.Duration(r.TimeTakenMs) * time.Millisecond,
	}
}
