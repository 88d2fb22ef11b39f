package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quizmaster-service/internal/domain"
)

// QuizLoader reads an active quiz with its ordered questions and options.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		quiz       domain.Quiz
		categoryID *string
		timeLimit  *int32
		createdAt  time.Time
	)
	err := l.pool.QueryRow(ctx,
		`SELECT id, title, description, category_id, owner_id, active, time_limit_minutes, created_at
		 FROM quizzes WHERE id = $1`, quizID,
	).Scan(&quiz.ID, &quiz.Title, &quiz.Description, &categoryID, &quiz.OwnerID, &quiz.Active, &timeLimit, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	if !quiz.Active {
		return domain.Quiz{}, domain.ErrQuizInactive
	}
	if categoryID != nil {
		quiz.CategoryID = *categoryID
	}
	if timeLimit != nil {
		minutes := int(*timeLimit)
		quiz.TimeLimit = &minutes
	}
	quiz.CreatedAt = createdAt

	rows, err := l.pool.Query(ctx,
		`SELECT q.id, q.text, q.points, q.position, o.id, o.text, o.is_correct
		 FROM questions q
		 LEFT JOIN options o ON o.question_id = q.id
		 WHERE q.quiz_id = $1
		 ORDER BY q.position, o.ordinal, o.id`, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			question   domain.Question
			optionID   *string
			optionText *string
			correct    *bool
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
		if optionID != nil {
			quiz.Questions[n-1].Options = append(quiz.Questions[n-1].Options, domain.Option{
				ID:         *optionID,
				QuestionID: question.ID,
				Text:       *optionText,
				Correct:    *correct,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	return quiz, nil
}
