package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"quizmaster-service/internal/domain"
)

// Store keeps quizzes, attempts and ratings in process memory. It backs the service
// when no database is configured and doubles as a fake in tests.
type Store struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
	quizzes    map[string]domain.Quiz
	attempts   map[string]domain.Attempt
	answers    map[string][]domain.Answer
	ratings    map[string]domain.Rating
}

func NewStore() *Store {
	return &Store{
		categories: make(map[string]domain.Category),
		quizzes:    make(map[string]domain.Quiz),
		attempts:   make(map[string]domain.Attempt),
		answers:    make(map[string][]domain.Answer),
		ratings:    make(map[string]domain.Rating),
	}
}

// PutQuiz stores a complete quiz as given, numbering questions in slice order.
func (s *Store) PutQuiz(quiz domain.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	questions := make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		q.QuizID = quiz.ID
		q.Position = i + 1
		q.Options = append([]domain.Option(nil), q.Options...)
		for j := range q.Options {
			q.Options[j].QuestionID = q.ID
		}
		questions[i] = q
	}
	quiz.Questions = questions
	s.quizzes[quiz.ID] = quiz
}

func (s *Store) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if !quiz.Active {
		return domain.Quiz{}, domain.ErrQuizInactive
	}
	quiz.Questions = append([]domain.Question(nil), quiz.Questions...)
	sort.Slice(quiz.Questions, func(i, j int) bool {
		return quiz.Questions[i].Position < quiz.Questions[j].Position
	})
	return quiz, nil
}

func (s *Store) SaveCategory(_ context.Context, category domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[category.ID] = category
	return nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; ok {
		return false, nil
	}
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now().UTC()
	}
	quiz.Questions = nil
	s.quizzes[quiz.ID] = quiz
	return true, nil
}

func (s *Store) SetQuizActive(_ context.Context, quizID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.Active = active
	s.quizzes[quizID] = quiz
	return nil
}

func (s *Store) AddQuestion(_ context.Context, quizID string, question domain.Question) (domain.Question, error) {
	if err := question.Validate(); err != nil {
		return domain.Question{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Question{}, domain.ErrQuizNotFound
	}

	maxPosition := 0
	for _, q := range quiz.Questions {
		if q.Position > maxPosition {
			maxPosition = q.Position
		}
	}
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	question.QuizID = quizID
	question.Position = maxPosition + 1
	question.Options = append([]domain.Option(nil), question.Options...)
	for i := range question.Options {
		if question.Options[i].ID == "" {
			question.Options[i].ID = uuid.NewString()
		}
		question.Options[i].QuestionID = question.ID
	}
	quiz.Questions = append(quiz.Questions, question)
	s.quizzes[quizID] = quiz
	return question, nil
}

func (s *Store) ListQuizzes(_ context.Context, filter domain.QuizFilter) ([]domain.QuizSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.QuizSummary, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		if filter.OwnerID != "" {
			if quiz.OwnerID != filter.OwnerID {
				continue
			}
		} else if !quiz.Active {
			continue
		}
		if filter.CategoryID != "" && quiz.CategoryID != filter.CategoryID {
			continue
		}
		out = append(out, domain.QuizSummary{
			ID:            quiz.ID,
			Title:         quiz.Title,
			Description:   quiz.Description,
			CategoryID:    quiz.CategoryID,
			OwnerID:       quiz.OwnerID,
			Active:        quiz.Active,
			QuestionCount: len(quiz.Questions),
			AverageRating: s.ratingSummaryLocked(quiz.ID).Average,
			CreatedAt:     quiz.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		switch filter.Sort {
		case domain.SortOldest:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		case domain.SortRating:
			if out[i].AverageRating != out[j].AverageRating {
				return out[i].AverageRating > out[j].AverageRating
			}
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpsertRating(_ context.Context, rating domain.Rating) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rating.QuizID + "/" + rating.UserID
	existing, ok := s.ratings[key]
	if ok {
		existing.Score = rating.Score
		s.ratings[key] = existing
		return false, nil
	}
	s.ratings[key] = rating
	return true, nil
}

func (s *Store) GetRating(_ context.Context, quizID, userID string) (domain.Rating, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rating, ok := s.ratings[quizID+"/"+userID]
	return rating, ok, nil
}

func (s *Store) RatingSummary(_ context.Context, quizID string) (domain.RatingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ratingSummaryLocked(quizID), nil
}

func (s *Store) ratingSummaryLocked(quizID string) domain.RatingSummary {
	var summary domain.RatingSummary
	total := 0
	for _, rating := range s.ratings {
		if rating.QuizID != quizID {
			continue
		}
		total += rating.Score
		summary.Count++
	}
	if summary.Count > 0 {
		summary.Average = float64(total) / float64(summary.Count)
	}
	return summary
}

// CreateAttempt validates the whole batch before touching any map, so a rejected
// batch leaves neither the attempt nor any answer behind.
func (s *Store) CreateAttempt(_ context.Context, attempt domain.Attempt, answers []domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attempts[attempt.ID]; ok {
		return fmt.Errorf("attempt %s already exists", attempt.ID)
	}
	seen := make(map[string]struct{}, len(answers))
	for _, answer := range answers {
		if answer.AttemptID != attempt.ID {
			return fmt.Errorf("answer %s references attempt %s", answer.ID, answer.AttemptID)
		}
		if _, dup := seen[answer.QuestionID]; dup {
			return fmt.Errorf("duplicate answer for question %s", answer.QuestionID)
		}
		seen[answer.QuestionID] = struct{}{}
	}

	s.attempts[attempt.ID] = attempt
	s.answers[attempt.ID] = append([]domain.Answer(nil), answers...)
	return nil
}

func (s *Store) GetAttempt(_ context.Context, attemptID string) (domain.Attempt, []domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, nil, domain.ErrAttemptNotFound
	}
	return attempt, append([]domain.Answer(nil), s.answers[attemptID]...), nil
}

func (s *Store) ListUserAttempts(_ context.Context, userID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Attempt, 0)
	for _, attempt := range s.attempts {
		if attempt.UserID == userID {
			out = append(out, attempt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}

func (s *Store) QuizLeaderboard(_ context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.LeaderboardEntry, 0)
	for _, attempt := range s.attempts {
		if attempt.QuizID != quizID {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			AttemptID:   attempt.ID,
			UserID:      attempt.UserID,
			Score:       attempt.Score,
			MaxScore:    attempt.MaxScore,
			TimeTaken:   attempt.TimeTaken,
			CompletedAt: attempt.CompletedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TimeTaken != entries[j].TimeTaken {
			return entries[i].TimeTaken < entries[j].TimeTaken
		}
		return entries[i].CompletedAt.Before(entries[j].CompletedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) GlobalLeaderboard(_ context.Context, limit int) ([]domain.UserStanding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byUser := make(map[string]*domain.UserStanding)
	for _, attempt := range s.attempts {
		standing, ok := byUser[attempt.UserID]
		if !ok {
			standing = &domain.UserStanding{UserID: attempt.UserID}
			byUser[attempt.UserID] = standing
		}
		standing.TotalScore += attempt.Score
		standing.TotalAttempts++
	}
	out := make([]domain.UserStanding, 0, len(byUser))
	for _, standing := range byUser {
		out = append(out, *standing)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
