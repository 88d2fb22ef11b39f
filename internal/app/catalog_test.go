package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/infra/memory"
)

func newCatalog(store *memory.Store) *app.Catalog {
	return app.NewCatalog(memory.NewQuizRepository(store, time.Minute), store, store)
}

func TestCatalogResultIsOwnerOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(app.WizardConfig{})
	_, _ = f.wizard.Start(ctx, alice, "quiz-2")
	step, err := f.wizard.Submit(ctx, alice, "quiz-2", "g1", "g1-a")
	if err != nil || !step.Complete() {
		t.Fatalf("complete quiz: %v", err)
	}

	catalog := newCatalog(f.store)
	result, err := catalog.Result(ctx, step.Attempt.ID, "alice")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.QuizTitle != "Geography" || len(result.Answers) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := catalog.Result(ctx, step.Attempt.ID, "mallory"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected foreign attempt hidden, got %v", err)
	}
}

func TestCatalogRate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.PutQuiz(threeQuestionQuiz())
	catalog := newCatalog(store)

	for _, bad := range []int{0, 8, -1} {
		if _, err := catalog.Rate(ctx, "quiz-1", "u1", bad); !errors.Is(err, domain.ErrInvalidRating) {
			t.Fatalf("expected invalid rating for %d, got %v", bad, err)
		}
	}
	if created, err := catalog.Rate(ctx, "quiz-1", "u1", 6); err != nil || !created {
		t.Fatalf("first rating = (%v, %v)", created, err)
	}
	if created, err := catalog.Rate(ctx, "quiz-1", "u1", 2); err != nil || created {
		t.Fatalf("second rating = (%v, %v)", created, err)
	}
	_, _ = catalog.Rate(ctx, "quiz-1", "u2", 4)

	detail, err := catalog.QuizDetail(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Rating.Count != 2 || detail.Rating.Average != 3 {
		t.Fatalf("unexpected rating summary %+v", detail.Rating)
	}
	if detail.UserRating == nil || *detail.UserRating != 2 {
		t.Fatalf("expected user rating 2, got %v", detail.UserRating)
	}
	if detail.Summary.QuestionCount != 3 {
		t.Fatalf("expected 3 questions, got %d", detail.Summary.QuestionCount)
	}
	if _, err := catalog.Rate(ctx, "missing", "u1", 3); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestCatalogLeaderboardsDefaultLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.PutQuiz(threeQuestionQuiz())
	for i := 0; i < 60; i++ {
		_ = store.CreateAttempt(ctx, domain.Attempt{ID: "a" + string(rune('A'+i)), UserID: "u", QuizID: "quiz-1", Score: i}, nil)
	}
	catalog := newCatalog(store)

	board, err := catalog.QuizLeaderboard(ctx, "quiz-1", 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Entries) != 50 || board.Entries[0].Score != 59 {
		t.Fatalf("expected top 50 by score, got %d entries starting at %d", len(board.Entries), board.Entries[0].Score)
	}
	if _, err := catalog.QuizLeaderboard(ctx, "missing", 10); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	standings, _ := catalog.GlobalLeaderboard(ctx, 0)
	if len(standings) != 1 || standings[0].TotalAttempts != 60 {
		t.Fatalf("unexpected standings %+v", standings)
	}
}

func TestCatalogListDefaultsToNewest(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	_, _ = store.CreateQuiz(ctx, domain.Quiz{ID: "a", Active: true, CreatedAt: testStart})
	_, _ = store.CreateQuiz(ctx, domain.Quiz{ID: "b", Active: true, CreatedAt: testStart.Add(time.Hour)})
	catalog := newCatalog(store)

	list, err := catalog.ListQuizzes(ctx, domain.QuizFilter{Sort: "bogus"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" {
		t.Fatalf("expected newest first, got %+v", list)
	}
}
