package app_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/infra/memory"
	"quizmaster-service/internal/logger"
)

var testStart = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	sessions *memory.SessionStore
	attempts app.AttemptStore
	notifier *recordingNotifier
	scorer   *app.Scorer
	wizard   *app.Wizard
	now      time.Time
}

func newFixture(cfg app.WizardConfig) *fixture {
	return newFixtureWithAttempts(cfg, nil)
}

func newFixtureWithAttempts(cfg app.WizardConfig, attempts app.AttemptStore) *fixture {
	f := &fixture{
		store:    memory.NewStore(),
		sessions: memory.NewSessionStore(0),
		notifier: &recordingNotifier{},
		now:      testStart,
	}
	f.store.PutQuiz(threeQuestionQuiz())
	f.store.PutQuiz(otherQuiz())
	if attempts == nil {
		attempts = f.store
	}
	f.attempts = attempts
	clock := func() time.Time { return f.now }
	f.scorer = app.NewScorer(attempts, f.notifier, logger.Nop()).WithClock(clock)
	f.wizard = app.NewWizard(f.sessions, memory.NewQuizRepository(f.store, time.Minute), f.scorer, cfg, logger.Nop()).WithClock(clock)
	return f
}

var alice = app.Participant{UserID: "alice", SessionID: "s1", Email: "alice@example.com", Name: "Alice"}

// threeQuestionQuiz has questions worth 1, 2 and 3 points.
func threeQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:     "quiz-1",
		Title:  "Arithmetic",
		Active: true,
		Questions: []domain.Question{
			{ID: "q1", Text: "1+1", Points: 1, Options: []domain.Option{
				{ID: "q1-a", Text: "2", Correct: true}, {ID: "q1-b", Text: "3"},
			}},
			{ID: "q2", Text: "2*3", Points: 2, Options: []domain.Option{
				{ID: "q2-a", Text: "6", Correct: true}, {ID: "q2-b", Text: "5"},
			}},
			{ID: "q3", Text: "9-4", Points: 3, Options: []domain.Option{
				{ID: "q3-a", Text: "5", Correct: true}, {ID: "q3-b", Text: "4"},
			}},
		},
	}
}

func otherQuiz() domain.Quiz {
	return domain.Quiz{
		ID:     "quiz-2",
		Title:  "Geography",
		Active: true,
		Questions: []domain.Question{
			{ID: "g1", Text: "Capital of France", Points: 1, Options: []domain.Option{
				{ID: "g1-a", Text: "Paris", Correct: true}, {ID: "g1-b", Text: "Lyon"},
			}},
		},
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []app.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg app.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

// failingAttempts fails every write and never stores anything.
type failingAttempts struct {
	*memory.Store
}

func (failingAttempts) CreateAttempt(context.Context, domain.Attempt, []domain.Answer) error {
	return errors.New("connection reset")
}
