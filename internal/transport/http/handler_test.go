package http

import (
	"net/http"
	"strings"
	"testing"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
)

func TestTakeFlowRedirectsToResult(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.client(t, "alice")

	w := alice.do(http.MethodGet, "/api/quizzes/quiz-1/take", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view := decode[domain.QuestionView](t, w)
	if view.QuestionID != "q1" || view.Number != 1 || view.Total != 2 || view.CanGoBack {
		t.Fatalf("unexpected first view %+v", view)
	}
	if strings.Contains(w.Body.String(), "correct") {
		t.Fatalf("question view must not leak correctness: %s", w.Body.String())
	}

	w = alice.do(http.MethodPost, "/api/quizzes/quiz-1/take", map[string]string{"option_id": "q1-a"})
	view = decode[domain.QuestionView](t, w)
	if w.Code != http.StatusOK || view.QuestionID != "q2" {
		t.Fatalf("expected second question, got %d %+v", w.Code, view)
	}

	w = alice.do(http.MethodGet, "/api/quizzes/quiz-1/take?back=1", nil)
	view = decode[domain.QuestionView](t, w)
	if view.QuestionID != "q1" || view.Selected != "q1-a" {
		t.Fatalf("expected q1 preselected after going back, got %+v", view)
	}
	alice.do(http.MethodPost, "/api/quizzes/quiz-1/take", map[string]string{"question_id": "q1", "option_id": "q1-a"})

	w = alice.do(http.MethodPost, "/api/quizzes/quiz-1/take", map[string]string{"option_id": "q2-b"})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 after last question, got %d: %s", w.Code, w.Body.String())
	}
	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "/api/results/") {
		t.Fatalf("unexpected redirect %q", location)
	}

	w = alice.do(http.MethodGet, location, nil)
	result := decode[app.AttemptResult](t, w)
	if w.Code != http.StatusOK || result.Attempt.Score != 1 || result.Attempt.MaxScore != 3 || len(result.Answers) != 2 {
		t.Fatalf("unexpected result %d %+v", w.Code, result)
	}

	bob := srv.client(t, "bob")
	if w := bob.do(http.MethodGet, location, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected other users to get 404, got %d", w.Code)
	}

	w = alice.do(http.MethodGet, "/api/history", nil)
	history := decode[struct {
		Attempts []domain.Attempt `json:"attempts"`
	}](t, w)
	if len(history.Attempts) != 1 {
		t.Fatalf("expected one attempt in history, got %+v", history)
	}
}

func TestSubmitWithoutSessionAsksToRestart(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.client(t, "alice")

	w := alice.do(http.MethodPost, "/api/quizzes/quiz-1/take", map[string]string{"option_id": "q1-a"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	resp := decode[errorResponse](t, w)
	if resp.Redirect != "/api/quizzes/quiz-1/take" {
		t.Fatalf("expected redirect to take, got %+v", resp)
	}
}

func TestSubmitRejectsForeignOption(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.client(t, "alice")
	alice.do(http.MethodGet, "/api/quizzes/quiz-1/take", nil)

	w := alice.do(http.MethodPost, "/api/quizzes/quiz-1/take", map[string]string{"option_id": "q2-a"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	w = alice.do(http.MethodPost, "/api/quizzes/quiz-1/take", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing option, got %d", w.Code)
	}
}

func TestInactiveAndMissingQuizRedirectToListing(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.client(t, "alice")
	for _, path := range []string{"/api/quizzes/draft/take", "/api/quizzes/nope/take", "/api/quizzes/nope"} {
		w := alice.do(http.MethodGet, path, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, w.Code)
		}
		if resp := decode[errorResponse](t, w); resp.Redirect != "/api/quizzes" {
			t.Fatalf("%s: expected redirect to listing, got %+v", path, resp)
		}
	}
}

func TestRequiresToken(t *testing.T) {
	srv := newTestServer(t)
	anon := srv.client(t, "anon")
	anon.token = ""
	if w := anon.do(http.MethodGet, "/api/quizzes", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.client(t, "alice")

	w := alice.do(http.MethodPost, "/api/quizzes/quiz-1/rating", map[string]int{"score": 6})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for first rating, got %d", w.Code)
	}
	w = alice.do(http.MethodPost, "/api/quizzes/quiz-1/rating", map[string]int{"score": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for updated rating, got %d", w.Code)
	}
	if w := alice.do(http.MethodPost, "/api/quizzes/quiz-1/rating", map[string]int{"score": 9}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range rating, got %d", w.Code)
	}

	w = alice.do(http.MethodGet, "/api/quizzes/quiz-1", nil)
	detail := decode[app.QuizDetail](t, w)
	if detail.Summary.QuestionCount != 2 || detail.UserRating == nil || *detail.UserRating != 5 || detail.Rating.Count != 1 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	w = alice.do(http.MethodGet, "/api/quizzes?sort=rating", nil)
	list := decode[struct {
		Quizzes []domain.QuizSummary `json:"quizzes"`
	}](t, w)
	if len(list.Quizzes) != 1 || list.Quizzes[0].ID != "quiz-1" {
		t.Fatalf("expected only the active quiz, got %+v", list.Quizzes)
	}

	if w := alice.do(http.MethodGet, "/api/leaderboard/quiz/quiz-1", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for quiz leaderboard, got %d", w.Code)
	}
	if w := alice.do(http.MethodGet, "/api/leaderboard", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for global leaderboard, got %d", w.Code)
	}
}

func TestListMyQuizzesIncludesDrafts(t *testing.T) {
	srv := newTestServer(t)
	srv.store.PutQuiz(domain.Quiz{ID: "alice-draft", Title: "Work in progress", OwnerID: "alice"})
	srv.store.PutQuiz(domain.Quiz{ID: "bob-live", Title: "Bob's", OwnerID: "bob", Active: true})

	type listing struct {
		Quizzes []domain.QuizSummary `json:"quizzes"`
	}
	mine := decode[listing](t, srv.client(t, "alice").do(http.MethodGet, "/api/quizzes?mine=1", nil))
	if len(mine.Quizzes) != 1 || mine.Quizzes[0].ID != "alice-draft" || mine.Quizzes[0].Active {
		t.Fatalf("expected only alice's draft, got %+v", mine.Quizzes)
	}

	public := decode[listing](t, srv.client(t, "alice").do(http.MethodGet, "/api/quizzes", nil))
	for _, q := range public.Quizzes {
		if !q.Active {
			t.Fatalf("public listing leaked inactive quiz %+v", q)
		}
	}
	if len(public.Quizzes) != 2 {
		t.Fatalf("expected quiz-1 and bob-live, got %+v", public.Quizzes)
	}
}

func TestAbandonAllowsFreshStart(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.client(t, "alice")
	alice.do(http.MethodGet, "/api/quizzes/quiz-1/take", nil)
	alice.do(http.MethodPost, "/api/quizzes/quiz-1/take", map[string]string{"option_id": "q1-a"})

	if w := alice.do(http.MethodDelete, "/api/quizzes/quiz-1/take", nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	view := decode[domain.QuestionView](t, alice.do(http.MethodGet, "/api/quizzes/quiz-1/take", nil))
	if view.QuestionID != "q1" || view.Selected != "" {
		t.Fatalf("expected fresh run, got %+v", view)
	}
}
