package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"quizmaster-service/internal/domain"
)

//go:embed schema.sql
var schema string

// Store is a single-file SQLite backend for local runs. Timestamps are stored as
// unix milliseconds in UTC.
type Store struct {
	db *sql.DB

	// afterAttemptInsert runs inside the attempt transaction before answers are written.
	afterAttemptInsert func() error
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		quiz       domain.Quiz
		categoryID sql.NullString
		timeLimit  sql.NullInt64
		createdAt  int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, category_id, owner_id, active, time_limit_minutes, created_at
		 FROM quizzes WHERE id = ?`, quizID,
	).Scan(&quiz.ID, &quiz.Title, &quiz.Description, &categoryID, &quiz.OwnerID, &quiz.Active, &timeLimit, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	if !quiz.Active {
		return domain.Quiz{}, domain.ErrQuizInactive
	}
	quiz.CategoryID = categoryID.String
	if timeLimit.Valid {
		minutes := int(timeLimit.Int64)
		quiz.TimeLimit = &minutes
	}
	quiz.CreatedAt = fromMillis(createdAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.text, q.points, q.position, o.id, o.text, o.is_correct
		 FROM questions q
		 LEFT JOIN options o ON o.question_id = q.id
		 WHERE q.quiz_id = ?
		 ORDER BY q.position, o.ordinal, o.id`, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			question   domain.Question
			optionID   sql.NullString
			optionText sql.NullString
			correct    sql.NullBool
		)
		if err := rows.Scan(&question.ID, &question.Text, &question.Points, &question.Position, &optionID, &optionText, &correct); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan question: %w", err)
		}
		n := len(quiz.Questions)
		if n == 0 || quiz.Questions[n-1].ID != question.ID {
			question.QuizID = quiz.ID
			quiz.Questions = append(quiz.Questions, question)
			n++
		}
		if optionID.Valid {
			quiz.Questions[n-1].Options = append(quiz.Questions[n-1].Options, domain.Option{
				ID:         optionID.String,
				QuestionID: question.ID,
				Text:       optionText.String,
				Correct:    correct.Bool,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	return quiz, nil
}

func (s *Store) CreateAttempt(ctx context.Context, attempt domain.Attempt, answers []domain.Answer) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO attempts (id, user_id, quiz_id, score, max_score, completed_at, time_taken_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID, attempt.UserID, attempt.QuizID, attempt.Score, attempt.MaxScore,
		toMillis(attempt.CompletedAt), attempt.TimeTaken.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	if s.afterAttemptInsert != nil {
		if err = s.afterAttemptInsert(); err != nil {
			return err
		}
	}
	for _, a := range answers {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO answers (id, attempt_id, question_id, option_id, is_correct) VALUES (?, ?, ?, ?, ?)`,
			a.ID, a.AttemptID, a.QuestionID, a.OptionID, a.Correct)
		if err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, []domain.Answer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, quiz_id, score, max_score, completed_at, time_taken_ms FROM attempts WHERE id = ?`, attemptID)
	attempt, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.attempt_id, a.question_id, a.option_id, a.is_correct
		 FROM answers a JOIN questions q ON q.id = a.question_id
		 WHERE a.attempt_id = ? ORDER BY q.position`, attemptID)
	if err != nil {
		return domain.Attempt{}, nil, err
	}
	defer rows.Close()
	var answers []domain.Answer
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.OptionID, &a.Correct); err != nil {
			return domain.Attempt{}, nil, err
		}
		answers = append(answers, a)
	}
	return attempt, answers, rows.Err()
}

func (s *Store) ListUserAttempts(ctx context.Context, userID string) ([]domain.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, quiz_id, score, max_score, completed_at, time_taken_ms
		 FROM attempts WHERE user_id = ? ORDER BY completed_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, attempt)
	}
	return out, rows.Err()
}

func (s *Store) QuizLeaderboard(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, quiz_id, score, max_score, completed_at, time_taken_ms
		 FROM attempts WHERE quiz_id = ?
		 ORDER BY score DESC, time_taken_ms ASC, completed_at ASC
		 LIMIT ?`, quizID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LeaderboardEntry
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.LeaderboardEntry{
			AttemptID:   a.ID,
			UserID:      a.UserID,
			Score:       a.Score,
			MaxScore:    a.MaxScore,
			TimeTaken:   a.TimeTaken,
			CompletedAt: a.CompletedAt,
		})
	}
	return out, rows.Err()
}

func (s *Store) GlobalLeaderboard(ctx context.Context, limit int) ([]domain.UserStanding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, SUM(score), COUNT(*) FROM attempts
		 GROUP BY user_id ORDER BY SUM(score) DESC, user_id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.UserStanding
	for rows.Next() {
		var st domain.UserStanding
		if err := rows.Scan(&st.UserID, &st.TotalScore, &st.TotalAttempts); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.QuizSummary, error) {
	query := `SELECT q.id, q.title, q.description, q.category_id, q.owner_id, q.active, q.created_at,
		(SELECT COUNT(*) FROM questions qs WHERE qs.quiz_id = q.id) AS question_count,
		COALESCE((SELECT AVG(r.score) FROM ratings r WHERE r.quiz_id = q.id), 0) AS average_rating
		FROM quizzes q`
	var args []any
	if filter.OwnerID != "" {
		query += ` WHERE q.owner_id = ?`
		args = append(args, filter.OwnerID)
	} else {
		query += ` WHERE q.active = 1`
	}
	if filter.CategoryID != "" {
		query += ` AND q.category_id = ?`
		args = append(args, filter.CategoryID)
	}
	switch filter.Sort {
	case domain.SortOldest:
		query += ` ORDER BY q.created_at ASC`
	case domain.SortRating:
		query += ` ORDER BY average_rating DESC, q.created_at DESC`
	default:
		query += ` ORDER BY q.created_at DESC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.QuizSummary
	for rows.Next() {
		var (
			summary    domain.QuizSummary
			categoryID sql.NullString
			createdAt  int64
		)
		if err := rows.Scan(&summary.ID, &summary.Title, &summary.Description, &categoryID, &summary.OwnerID,
			&summary.Active, &createdAt, &summary.QuestionCount, &summary.AverageRating); err != nil {
			return nil, err
		}
		summary.CategoryID = categoryID.String
		summary.CreatedAt = fromMillis(createdAt)
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (s *Store) UpsertRating(ctx context.Context, rating domain.Rating) (created bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings WHERE quiz_id = ? AND user_id = ?`,
		rating.QuizID, rating.UserID).Scan(&existing)
	if err != nil {
		return false, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO ratings (quiz_id, user_id, score, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (quiz_id, user_id) DO UPDATE SET score = excluded.score`,
		rating.QuizID, rating.UserID, rating.Score, toMillis(rating.CreatedAt))
	if err != nil {
		return false, err
	}
	return existing == 0, tx.Commit()
}

func (s *Store) GetRating(ctx context.Context, quizID, userID string) (domain.Rating, bool, error) {
	rating := domain.Rating{QuizID: quizID, UserID: userID}
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `SELECT score, created_at FROM ratings WHERE quiz_id = ? AND user_id = ?`,
		quizID, userID).Scan(&rating.Score, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Rating{}, false, nil
	}
	if err != nil {
		return domain.Rating{}, false, err
	}
	rating.CreatedAt = fromMillis(createdAt)
	return rating, true, nil
}

func (s *Store) RatingSummary(ctx context.Context, quizID string) (domain.RatingSummary, error) {
	var summary domain.RatingSummary
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(AVG(score), 0), COUNT(*) FROM ratings WHERE quiz_id = ?`,
		quizID).Scan(&summary.Average, &summary.Count)
	return summary, err
}

func (s *Store) SaveCategory(ctx context.Context, category domain.Category) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, description) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, description = excluded.description`,
		category.ID, category.Name, category.Description)
	return err
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (bool, error) {
	createdAt := quiz.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var categoryID sql.NullString
	if quiz.CategoryID != "" {
		categoryID = sql.NullString{String: quiz.CategoryID, Valid: true}
	}
	var timeLimit sql.NullInt64
	if quiz.TimeLimit != nil {
		timeLimit = sql.NullInt64{Int64: int64(*quiz.TimeLimit), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO quizzes (id, title, description, category_id, owner_id, active, time_limit_minutes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		quiz.ID, quiz.Title, quiz.Description, categoryID, quiz.OwnerID, quiz.Active, timeLimit, toMillis(createdAt))
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
	res, err := s.db.ExecContext(ctx, `UPDATE quizzes SET active = ? WHERE id = ?`, active, quizID)
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

func (s *Store) AddQuestion(ctx context.Context, quizID string, question domain.Question) (_ domain.Question, err error) {
	if err = question.Validate(); err != nil {
		return domain.Question{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Question{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM quizzes WHERE id = ?`, quizID).Scan(&exists); err != nil {
		return domain.Question{}, err
	}
	if exists == 0 {
		err = domain.ErrQuizNotFound
		return domain.Question{}, err
	}
	var next int
	if err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM questions WHERE quiz_id = ?`,
		quizID).Scan(&next); err != nil {
		return domain.Question{}, err
	}

	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	question.QuizID = quizID
	question.Position = next
	if _, err = tx.ExecContext(ctx, `INSERT INTO questions (id, quiz_id, text, points, position) VALUES (?, ?, ?, ?, ?)`,
		question.ID, quizID, question.Text, question.Points, next); err != nil {
		return domain.Question{}, fmt.Errorf("insert question: %w", err)
	}
	question.Options = append([]domain.Option(nil), question.Options...)
	for i := range question.Options {
		if question.Options[i].ID == "" {
			question.Options[i].ID = uuid.NewString()
		}
		question.Options[i].QuestionID = question.ID
		if _, err = tx.ExecContext(ctx, `INSERT INTO options (id, question_id, text, is_correct, ordinal) VALUES (?, ?, ?, ?, ?)`,
			question.Options[i].ID, question.ID, question.Options[i].Text, question.Options[i].Correct, i); err != nil {
			return domain.Question{}, fmt.Errorf("insert option: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (domain.Attempt, error) {
	var (
		a           domain.Attempt
		completedAt int64
		timeTakenMs int64
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.QuizID, &a.Score, &a.MaxScore, &completedAt, &timeTakenMs); err != nil {
		return domain.Attempt{}, err
	}
	a.CompletedAt = fromMillis(completedAt)
	a.TimeTaken = time.Duration(timeTakenMs) * time.Millisecond
	return a, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
