package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/logger"
)

// Scorer turns a finished attempt session into a persisted Attempt.
type Scorer struct {
	attempts AttemptStore
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

func NewScorer(attempts AttemptStore, notifier Notifier, log *logger.Logger) *Scorer {
	return &Scorer{
		attempts: attempts,
		notifier: notifier,
		log:      log.With("component", "scorer"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// FinalizeRequest carries everything needed to score one wizard run.
type FinalizeRequest struct {
	Participant Participant
	Quiz        domain.Quiz
	Answers     map[string]string
	StartedAt   time.Time
}

// ScoreAnswers grades answers against quiz. Options are resolved within their own question;
// anything unresolvable is treated as unanswered and produces no Answer.
func ScoreAnswers(quiz domain.Quiz, answers map[string]string) (score, maxScore int, graded []domain.Answer) {
	for _, question := range quiz.Questions {
		maxScore += question.Points

		optionID, ok := answers[question.ID]
		if !ok {
			continue
		}
		option, ok := question.Option(optionID)
		if !ok {
			continue
		}
		if option.Correct {
			score += question.Points
		}
		graded = append(graded, domain.Answer{
			QuestionID: question.ID,
			OptionID:   option.ID,
			Correct:    option.Correct,
		})
	}
	return score, maxScore, graded
}

// Finalize scores the run, stores the attempt with its answers atomically and then notifies the user.
func (s *Scorer) Finalize(ctx context.Context, req FinalizeRequest) (domain.Attempt, error) {
	score, maxScore, answers := ScoreAnswers(req.Quiz, req.Answers)

	now := s.now().UTC()
	elapsed := now.Sub(req.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	attempt := domain.Attempt{
		ID:          s.newID(),
		UserID:      req.Participant.UserID,
		QuizID:      req.Quiz.ID,
		Score:       score,
		MaxScore:    maxScore,
		CompletedAt: now,
		TimeTaken:   elapsed,
	}
	for i := range answers {
		answers[i].ID = s.newID()
		answers[i].AttemptID = attempt.ID
	}

	if err := s.attempts.CreateAttempt(ctx, attempt, answers); err != nil {
		s.log.Error("persist attempt failed", "quizId", attempt.QuizID, "userId", attempt.UserID, "error", err)
		return domain.Attempt{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	s.log.Info("attempt stored",
		"attemptId", attempt.ID, "quizId", attempt.QuizID, "userId", attempt.UserID,
		"score", score, "maxScore", maxScore, "answers", len(answers))

	s.notify(ctx, req, attempt)
	return attempt, nil
}

func (s *Scorer) notify(ctx context.Context, req FinalizeRequest, attempt domain.Attempt) {
	if s.notifier == nil || req.Participant.Email == "" {
		return
	}
	err := s.notifier.Notify(ctx, Notification{
		Recipient: req.Participant.Email,
		Subject:   "Quiz Result",
		Body: fmt.Sprintf("Your result for %s:\nScore: %d/%d\nTime taken: %s",
			req.Quiz.Title, attempt.Score, attempt.MaxScore, domain.FormatDuration(attempt.TimeTaken)),
	})
	if err != nil {
		s.log.Warn("result notification failed", "attemptId", attempt.ID, "recipient", req.Participant.Email, "error", err)
	}
}
