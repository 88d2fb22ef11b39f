package app

import (
	"context"

	"quizmaster-service/internal/domain"
)

// SessionStore abstracts where attempt sessions live (in-memory, Redis).
// Save and Delete are compare-and-swap operations on AttemptSession.Version.
type SessionStore interface {
	// Load returns domain.ErrSessionNotFound when nothing is stored under key.
	Load(ctx context.Context, key string) (domain.AttemptSession, error)
	// Save stores session if the stored version still equals session.Version (0 when absent)
	// and returns the stored copy with the bumped version, or domain.ErrSessionConflict.
	Save(ctx context.Context, key string, session domain.AttemptSession) (domain.AttemptSession, error)
	// Delete removes the session if its stored version equals version.
	Delete(ctx context.Context, key string, version int64) error
}

// QuizRepository loads active quizzes with their ordered questions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptStore persists finalized attempts and serves read models over them.
type AttemptStore interface {
	// CreateAttempt writes the attempt and all of its answers in one transaction.
	CreateAttempt(ctx context.Context, attempt domain.Attempt, answers []domain.Answer) error
	GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, []domain.Answer, error)
	ListUserAttempts(ctx context.Context, userID string) ([]domain.Attempt, error)
	QuizLeaderboard(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error)
	GlobalLeaderboard(ctx context.Context, limit int) ([]domain.UserStanding, error)
}

// CatalogStore serves quiz listings and ratings.
type CatalogStore interface {
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.QuizSummary, error)
	UpsertRating(ctx context.Context, rating domain.Rating) (created bool, err error)
	GetRating(ctx context.Context, quizID, userID string) (domain.Rating, bool, error)
	RatingSummary(ctx context.Context, quizID string) (domain.RatingSummary, error)
}

// QuizWriter is the authoring side used for seeding content.
type QuizWriter interface {
	SaveCategory(ctx context.Context, category domain.Category) error
	// CreateQuiz stores the quiz header; created is false when the id already exists.
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (created bool, err error)
	// AddQuestion appends a question at max(position)+1 and assigns missing ids.
	AddQuestion(ctx context.Context, quizID string, question domain.Question) (domain.Question, error)
	// SetQuizActive publishes or retires a quiz; domain.ErrQuizNotFound when the id is unknown.
	SetQuizActive(ctx context.Context, quizID string, active bool) error
}

// QuizCache drops cached copies of a quiz after it is changed.
type QuizCache interface {
	Invalidate(ctx context.Context, quizID string) error
}

// Notification is a result message sent after an attempt is stored.
type Notification struct {
	Recipient string
	Subject   string
	Body      string
}

// Notifier delivers notifications; delivery is not guaranteed.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Participant identifies who drives a wizard run and from which client session.
type Participant struct {
	UserID    string
	SessionID string
	Email     string
	Name      string
}

// SessionKey is the session store key for this participant.
func (p Participant) SessionKey() string {
	return "attempt:" + p.UserID + ":" + p.SessionID
}
