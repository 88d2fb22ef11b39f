package app

import (
	"context"
	"fmt"

	"quizmaster-service/internal/domain"
)

// SeedFile is the YAML document accepted by the seed command.
type SeedFile struct {
	Categories []domain.Category `yaml:"categories"`
	Quizzes    []domain.Quiz     `yaml:"quizzes"`
}

// Seed loads categories and quizzes. Quizzes whose id already exists are left untouched,
// so running the same file twice does not duplicate questions.
// Every quiz and question is validated before anything is written. A store failure while adding
// questions leaves that quiz partially authored; rerunning skips it, so fix it by hand.
func Seed(ctx context.Context, w QuizWriter, seed SeedFile) (int, error) {
	for _, quiz := range seed.Quizzes {
		if quiz.ID == "" {
			return 0, fmt.Errorf("quiz %q: id is required", quiz.Title)
		}
		for _, question := range quiz.Questions {
			if err := question.Validate(); err != nil {
				return 0, fmt.Errorf("quiz %s: %w", quiz.ID, err)
			}
		}
	}

	for _, category := range seed.Categories {
		if err := w.SaveCategory(ctx, category); err != nil {
			return 0, fmt.Errorf("save category %s: %w", category.ID, err)
		}
	}

	created := 0
	for _, quiz := range seed.Quizzes {
		ok, err := w.CreateQuiz(ctx, quiz)
		if err != nil {
			return created, fmt.Errorf("create quiz %s: %w", quiz.ID, err)
		}
		if !ok {
			continue
		}
		for _, question := range quiz.Questions {
			if question.Points <= 0 {
				question.Points = 1
			}
			if _, err := w.AddQuestion(ctx, quiz.ID, question); err != nil {
				return created, fmt.Errorf("add question to %s: %w", quiz.ID, err)
			}
		}
		created++
	}
	return created, nil
}

// SetQuizActive publishes or retires a quiz and then drops it from every cache,
// so a retired quiz stops accepting new runs before its cache TTL runs out.
func SetQuizActive(ctx context.Context, w QuizWriter, quizID string, active bool, caches ...QuizCache) error {
	if err := w.SetQuizActive(ctx, quizID, active); err != nil {
		return fmt.Errorf("set quiz %s active=%t: %w", quizID, active, err)
	}
	for _, cache := range caches {
		if err := cache.Invalidate(ctx, quizID); err != nil {
			return fmt.Errorf("invalidate quiz %s: %w", quizID, err)
		}
	}
	return nil
}
