package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/infra/memory"
	"quizmaster-service/internal/logger"
)

type testServer struct {
	router *gin.Engine
	tokens *auth.Tokens
	store  *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()

	store := memory.NewStore()
	store.PutQuiz(sampleQuiz())
	store.PutQuiz(domain.Quiz{ID: "draft", Title: "Draft"})
	quizzes := memory.NewQuizRepository(store, time.Minute)
	scorer := app.NewScorer(store, nil, log)
	wizard := app.NewWizard(memory.NewSessionStore(time.Hour), quizzes, scorer, app.WizardConfig{}, log)
	catalog := app.NewCatalog(quizzes, store, store)

	tokens, err := auth.NewTokens("test-secret", "", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	router := NewRouter(RouterConfig{
		Handler:        NewHandler(wizard, catalog, log),
		WSHandler:      NewWSHandler(wizard, catalog, log),
		AuthMiddleware: auth.NewMiddleware(log, tokens, false),
		Log:            log,
	})
	return &testServer{router: router, tokens: tokens, store: store}
}

// client keeps a user's token and session cookie across requests.
type client struct {
	t      *testing.T
	srv    *testServer
	token  string
	cookie *http.Cookie
}

func (s *testServer) client(t *testing.T, userID string) *client {
	token, err := s.tokens.Issue(userID, userID+"@example.com", userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &client{t: t, srv: s, token: token}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.srv.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == auth.SessionCookie {
			c.cookie = ck
		}
	}
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:     "quiz-1",
		Title:  "Basics",
		Active: true,
		Questions: []domain.Question{
			{ID: "q1", Text: "2+2?", Points: 1, Options: []domain.Option{
				{ID: "q1-a", Text: "4", Correct: true}, {ID: "q1-b", Text: "5"},
			}},
			{ID: "q2", Text: "Capital of France?", Points: 2, Options: []domain.Option{
				{ID: "q2-a", Text: "Paris", Correct: true}, {ID: "q2-b", Text: "Rome"},
			}},
		},
	}
}
