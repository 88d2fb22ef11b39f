package app

import (
	"context"
	"time"

	"quizmaster-service/internal/domain"
)

const defaultLeaderboardLimit = 50

// Catalog serves the read side around quizzes: listings, details, results, history, leaderboards and ratings.
type Catalog struct {
	quizzes  QuizRepository
	store    CatalogStore
	attempts AttemptStore
	now      func() time.Time
}

func NewCatalog(quizzes QuizRepository, store CatalogStore, attempts AttemptStore) *Catalog {
	return &Catalog{quizzes: quizzes, store: store, attempts: attempts, now: time.Now}
}

// QuizDetail is a quiz as shown before taking it. Questions are not exposed.
type QuizDetail struct {
	Summary    domain.QuizSummary   `json:"quiz"`
	TimeLimit  *int                 `json:"timeLimitMinutes,omitempty"`
	Rating     domain.RatingSummary `json:"rating"`
	UserRating *int                 `json:"userRating,omitempty"`
}

// AttemptResult is a persisted attempt with its answers.
type AttemptResult struct {
	Attempt   domain.Attempt  `json:"attempt"`
	QuizTitle string          `json:"quizTitle,omitempty"`
	TimeTaken string          `json:"timeTakenDisplay"`
	Answers   []domain.Answer `json:"answers"`
}

func (c *Catalog) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.QuizSummary, error) {
	switch filter.Sort {
	case domain.SortNewest, domain.SortOldest, domain.SortRating:
	default:
		filter.Sort = domain.SortNewest
	}
	return c.store.ListQuizzes(ctx, filter)
}

func (c *Catalog) QuizDetail(ctx context.Context, quizID, userID string) (QuizDetail, error) {
	quiz, err := c.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizDetail{}, err
	}
	summary, err := c.store.RatingSummary(ctx, quizID)
	if err != nil {
		return QuizDetail{}, err
	}
	detail := QuizDetail{
		Summary: domain.QuizSummary{
			ID:            quiz.ID,
			Title:         quiz.Title,
			Description:   quiz.Description,
			CategoryID:    quiz.CategoryID,
			OwnerID:       quiz.OwnerID,
			QuestionCount: len(quiz.Questions),
			AverageRating: summary.Average,
			CreatedAt:     quiz.CreatedAt,
		},
		TimeLimit: quiz.TimeLimit,
		Rating:    summary,
	}
	if userID != "" {
		rating, ok, err := c.store.GetRating(ctx, quizID, userID)
		if err != nil {
			return QuizDetail{}, err
		}
		if ok {
			score := rating.Score
			detail.UserRating = &score
		}
	}
	return detail, nil
}

// Rate records or updates the user's 1..7 rating. created is false when an earlier rating was replaced.
func (c *Catalog) Rate(ctx context.Context, quizID, userID string, score int) (bool, error) {
	if score < 1 || score > 7 {
		return false, domain.ErrInvalidRating
	}
	if _, err := c.quizzes.GetQuiz(ctx, quizID); err != nil {
		return false, err
	}
	return c.store.UpsertRating(ctx, domain.Rating{
		QuizID:    quizID,
		UserID:    userID,
		Score:     score,
		CreatedAt: c.now().UTC(),
	})
}

// Result returns an attempt only to its owner; other users get domain.ErrAttemptNotFound.
func (c *Catalog) Result(ctx context.Context, attemptID, userID string) (AttemptResult, error) {
	attempt, answers, err := c.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return AttemptResult{}, err
	}
	if attempt.UserID != userID {
		return AttemptResult{}, domain.ErrAttemptNotFound
	}
	result := AttemptResult{
		Attempt:   attempt,
		TimeTaken: domain.FormatDuration(attempt.TimeTaken),
		Answers:   answers,
	}
	if quiz, err := c.quizzes.GetQuiz(ctx, attempt.QuizID); err == nil {
		result.QuizTitle = quiz.Title
	}
	return result, nil
}

func (c *Catalog) History(ctx context.Context, userID string) ([]domain.Attempt, error) {
	return c.attempts.ListUserAttempts(ctx, userID)
}

// QuizLeaderboard ranks attempts of one quiz by score, then by time taken.
func (c *Catalog) QuizLeaderboard(ctx context.Context, quizID string, limit int) (domain.Leaderboard, error) {
	if _, err := c.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.Leaderboard{}, err
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	entries, err := c.attempts.QuizLeaderboard(ctx, quizID, limit)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{QuizID: quizID, Entries: entries}, nil
}

// GlobalLeaderboard ranks users by the sum of their attempt scores.
func (c *Catalog) GlobalLeaderboard(ctx context.Context, limit int) ([]domain.UserStanding, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	return c.attempts.GlobalLeaderboard(ctx, limit)
}
