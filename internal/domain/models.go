package domain

import (
	"fmt"
	"time"
)

// Category groups quizzes for browsing.
type Category struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID         string `json:"id" yaml:"id"`
	QuestionID string `json:"questionId" yaml:"-"`
	Text       string `json:"text" yaml:"text"`
	Correct    bool   `json:"correct" yaml:"correct"`
}

// Question models an MCQ question with exactly one correct option.
// Position is unique within the quiz and never reassigned.
type Question struct {
	ID       string   `json:"id" yaml:"id"`
	QuizID   string   `json:"quizId" yaml:"-"`
	Text     string   `json:"text" yaml:"text"`
	Points   int      `json:"points" yaml:"points"`
	Position int      `json:"position" yaml:"-"`
	Options  []Option `json:"options" yaml:"options"`
}

// Option looks up an option by id within this question only.
func (q Question) Option(optionID string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return Option{}, false
}

const (
	MinOptions = 2
	MaxOptions = 10
)

// Validate checks the authoring invariants: MinOptions..MaxOptions options, exactly one correct.
func (q Question) Validate() error {
	if len(q.Options) < MinOptions || len(q.Options) > MaxOptions {
		return fmt.Errorf("%w: question %q has %d options", ErrInvalidQuestion, q.Text, len(q.Options))
	}
	correct := 0
	for _, opt := range q.Options {
		if opt.Correct {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("%w: question %q has %d correct options", ErrInvalidQuestion, q.Text, correct)
	}
	return nil
}

// Quiz is an ordered collection of questions. Questions are sorted by Position.
type Quiz struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description"`
	CategoryID  string     `json:"categoryId,omitempty" yaml:"category"`
	OwnerID     string     `json:"ownerId" yaml:"owner"`
	Active      bool       `json:"active" yaml:"active"`
	TimeLimit   *int       `json:"timeLimitMinutes,omitempty" yaml:"time_limit"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"-"`
	Questions   []Question `json:"questions" yaml:"questions"`
}

// MaxScore is the sum of all question points.
func (q Quiz) MaxScore() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// AttemptSession is the ephemeral progress of one user through one quiz.
// It lives only in the session store and is never written to durable storage.
type AttemptSession struct {
	QuizID    string            `json:"quizId"`
	Position  int               `json:"position"`
	Answers   map[string]string `json:"answers"`
	StartedAt time.Time         `json:"startedAt"`
	// Version increments on every successful save; writes with a stale version are rejected.
	Version int64 `json:"version"`
}

// Attempt is the durable, scored record of a completed quiz run.
type Attempt struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	QuizID      string        `json:"quizId"`
	Score       int           `json:"score"`
	MaxScore    int           `json:"maxScore"`
	CompletedAt time.Time     `json:"completedAt"`
	TimeTaken   time.Duration `json:"timeTaken"`
}

// Answer is one persisted selection inside an attempt.
type Answer struct {
	ID         string `json:"id"`
	AttemptID  string `json:"attemptId"`
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
	Correct    bool   `json:"correct"`
}

// Rating is a user's 1..7 score for a quiz; one per (quiz, user).
type Rating struct {
	QuizID    string    `json:"quizId"`
	UserID    string    `json:"userId"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// RatingSummary aggregates ratings of a quiz.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// LeaderboardEntry is one row of a per-quiz leaderboard.
type LeaderboardEntry struct {
	AttemptID   string        `json:"attemptId"`
	UserID      string        `json:"userId"`
	Score       int           `json:"score"`
	MaxScore    int           `json:"maxScore"`
	TimeTaken   time.Duration `json:"timeTaken"`
	CompletedAt time.Time     `json:"completedAt"`
}

// Leaderboard captures the ordered scoreboard for a quiz.
type Leaderboard struct {
	QuizID  string             `json:"quizId"`
	Entries []LeaderboardEntry `json:"entries"`
}

// UserStanding is one row of the global leaderboard.
type UserStanding struct {
	UserID        string `json:"userId"`
	TotalScore    int    `json:"totalScore"`
	TotalAttempts int    `json:"totalAttempts"`
}

// QuizSort selects the ordering of quiz listings.
type QuizSort string

const (
	SortNewest QuizSort = "newest"
	SortOldest QuizSort = "oldest"
	SortRating QuizSort = "rating"
)

// QuizFilter narrows quiz listings. Only active quizzes are listed unless OwnerID is set,
// in which case the owner's drafts and retired quizzes are included too.
type QuizFilter struct {
	CategoryID string
	OwnerID    string
	Sort       QuizSort
}

// QuizSummary is a listing-friendly view of a quiz.
type QuizSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	CategoryID    string    `json:"categoryId,omitempty"`
	OwnerID       string    `json:"ownerId"`
	Active        bool      `json:"active"`
	QuestionCount int       `json:"questionCount"`
	AverageRating float64   `json:"averageRating"`
	CreatedAt     time.Time `json:"createdAt"`
}
