package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizInactive is returned when a quiz exists but is not open for attempts.
	ErrQuizInactive = errors.New("quiz is not active")
	// ErrSessionNotFound is returned when an attempt session expired or was never started.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionMismatch is returned when a session belongs to another quiz and resetting is disabled.
	ErrSessionMismatch = errors.New("quiz session belongs to a different quiz")
	// ErrSessionConflict is returned when a concurrent request already advanced the session.
	ErrSessionConflict = errors.New("quiz session was modified concurrently")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAttemptNotFound is returned for unknown attempts and attempts owned by someone else.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrInvalidQuestion is returned when authoring a question without 2..10 options and exactly one correct.
	ErrInvalidQuestion = errors.New("question must have 2 to 10 options with exactly one correct")
	// ErrInvalidRating is returned for scores outside 1..7.
	ErrInvalidRating = errors.New("rating must be between 1 and 7")
	// ErrPersistence wraps durable store failures while finalizing an attempt.
	ErrPersistence = errors.New("could not persist quiz attempt")
)
