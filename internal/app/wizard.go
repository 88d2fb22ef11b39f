package app

import (
	"context"
	"errors"
	"time"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/logger"
)

// MismatchPolicy decides what Start does with an in-progress session for another quiz.
type MismatchPolicy string

const (
	// MismatchReset silently discards the other quiz's session.
	MismatchReset MismatchPolicy = "reset"
	// MismatchReject fails with domain.ErrSessionMismatch until the caller abandons it.
	MismatchReject MismatchPolicy = "reject"
)

// ValidationPolicy decides when a submitted option is checked against the current question.
type ValidationPolicy string

const (
	// ValidateEager rejects foreign question or option ids at submission time.
	ValidateEager ValidationPolicy = "eager"
	// ValidateLazy records whatever was submitted; scoring drops unresolvable options.
	ValidateLazy ValidationPolicy = "lazy"
)

type WizardConfig struct {
	OnQuizMismatch   MismatchPolicy
	OptionValidation ValidationPolicy
}

// Step is the outcome of a wizard request: either the question to render or the finished attempt.
type Step struct {
	Question *domain.QuestionView `json:"question,omitempty"`
	Attempt  *domain.Attempt      `json:"attempt,omitempty"`
}

// Complete reports whether the run was scored.
func (s Step) Complete() bool {
	return s.Attempt != nil
}

// Wizard drives a participant through a quiz one question per request.
// Position only moves forward on Submit and back by one on Previous (floored at zero);
// reaching len(questions) hands the run to the Scorer and discards the session.
type Wizard struct {
	sessions SessionStore
	quizzes  QuizRepository
	scorer   *Scorer
	cfg      WizardConfig
	log      *logger.Logger
	now      func() time.Time
}

func NewWizard(sessions SessionStore, quizzes QuizRepository, scorer *Scorer, cfg WizardConfig, log *logger.Logger) *Wizard {
	if cfg.OnQuizMismatch == "" {
		cfg.OnQuizMismatch = MismatchReset
	}
	if cfg.OptionValidation == "" {
		cfg.OptionValidation = ValidateEager
	}
	return &Wizard{
		sessions: sessions,
		quizzes:  quizzes,
		scorer:   scorer,
		cfg:      cfg,
		log:      log.With("component", "wizard"),
		now:      time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (w *Wizard) WithClock(now func() time.Time) *Wizard {
	w.now = now
	return w
}

// Start resumes the participant's session for quizID or opens a fresh one at position 0.
func (w *Wizard) Start(ctx context.Context, p Participant, quizID string) (domain.AttemptSession, error) {
	if _, err := w.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.AttemptSession{}, err
	}

	key := p.SessionKey()
	existing, err := w.sessions.Load(ctx, key)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		existing = domain.AttemptSession{}
	case err != nil:
		return domain.AttemptSession{}, err
	case existing.QuizID == quizID:
		return existing, nil
	case w.cfg.OnQuizMismatch == MismatchReject:
		return domain.AttemptSession{}, domain.ErrSessionMismatch
	default:
		w.log.Info("discarding unfinished attempt", "userId", p.UserID, "previousQuizId", existing.QuizID, "quizId", quizID)
	}

	fresh := domain.AttemptSession{
		QuizID:    quizID,
		Position:  0,
		Answers:   map[string]string{},
		StartedAt: w.now().UTC(),
		Version:   existing.Version,
	}
	return w.sessions.Save(ctx, key, fresh)
}

// Abandon drops whatever session the participant has. Missing sessions are not an error.
func (w *Wizard) Abandon(ctx context.Context, p Participant) error {
	session, err := w.sessions.Load(ctx, p.SessionKey())
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return w.sessions.Delete(ctx, p.SessionKey(), session.Version)
}

// View returns the current question with any recorded answer preselected,
// or finalizes the run when every question has been passed.
func (w *Wizard) View(ctx context.Context, p Participant, quizID string) (Step, error) {
	session, quiz, err := w.load(ctx, p, quizID)
	if err != nil {
		return Step{}, err
	}
	return w.step(ctx, p, quiz, session)
}

// Previous moves back one question. It never errors at position 0 and keeps recorded answers.
func (w *Wizard) Previous(ctx context.Context, p Participant, quizID string) (Step, error) {
	session, quiz, err := w.load(ctx, p, quizID)
	if err != nil {
		return Step{}, err
	}
	if session.Position > 0 {
		session.Position--
		session, err = w.sessions.Save(ctx, p.SessionKey(), session)
		if err != nil {
			return Step{}, err
		}
	}
	return w.step(ctx, p, quiz, session)
}

// Submit records optionID for questionID and advances one position.
// An empty questionID means the current question.
func (w *Wizard) Submit(ctx context.Context, p Participant, quizID, questionID, optionID string) (Step, error) {
	session, quiz, err := w.load(ctx, p, quizID)
	if err != nil {
		return Step{}, err
	}
	if session.Position >= len(quiz.Questions) {
		return w.complete(ctx, p, quiz, session)
	}

	current := quiz.Questions[session.Position]
	if questionID == "" {
		questionID = current.ID
	}
	if w.cfg.OptionValidation == ValidateEager {
		if questionID != current.ID {
			return Step{}, domain.ErrQuestionNotFound
		}
		if _, ok := current.Option(optionID); !ok {
			return Step{}, domain.ErrOptionNotFound
		}
	}

	answers := make(map[string]string, len(session.Answers)+1)
	for k, v := range session.Answers {
		answers[k] = v
	}
	answers[questionID] = optionID
	session.Answers = answers
	session.Position++

	if session.Position >= len(quiz.Questions) {
		return w.complete(ctx, p, quiz, session)
	}
	session, err = w.sessions.Save(ctx, p.SessionKey(), session)
	if err != nil {
		return Step{}, err
	}
	return w.step(ctx, p, quiz, session)
}

func (w *Wizard) load(ctx context.Context, p Participant, quizID string) (domain.AttemptSession, domain.Quiz, error) {
	session, err := w.sessions.Load(ctx, p.SessionKey())
	if err != nil {
		return domain.AttemptSession{}, domain.Quiz{}, err
	}
	if session.QuizID != quizID {
		return domain.AttemptSession{}, domain.Quiz{}, domain.ErrSessionMismatch
	}
	quiz, err := w.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.AttemptSession{}, domain.Quiz{}, err
	}
	return session, quiz, nil
}

func (w *Wizard) step(ctx context.Context, p Participant, quiz domain.Quiz, session domain.AttemptSession) (Step, error) {
	if session.Position >= len(quiz.Questions) {
		return w.complete(ctx, p, quiz, session)
	}
	view := domain.NewQuestionView(quiz, session)
	return Step{Question: &view}, nil
}

// complete claims the session by deleting it at the loaded version, so only one request
// can finalize a run. The session is gone afterwards whether or not scoring succeeds.
func (w *Wizard) complete(ctx context.Context, p Participant, quiz domain.Quiz, session domain.AttemptSession) (Step, error) {
	if err := w.sessions.Delete(ctx, p.SessionKey(), session.Version); err != nil {
		return Step{}, err
	}
	attempt, err := w.scorer.Finalize(ctx, FinalizeRequest{
		Participant: p,
		Quiz:        quiz,
		Answers:     session.Answers,
		StartedAt:   session.StartedAt,
	})
	if err != nil {
		return Step{}, err
	}
	return Step{Attempt: &attempt}, nil
}
