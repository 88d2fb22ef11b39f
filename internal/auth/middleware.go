package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/logger"
)

// SessionCookie carries the per-client session id that scopes wizard progress.
const SessionCookie = "quiz_sid"

const (
	participantKey  = "participant"
	issuedCookieKey = "issued_session_cookie"
)

type Middleware struct {
	log          *logger.Logger
	tokens       *Tokens
	secureCookie bool
}

func NewMiddleware(log *logger.Logger, tokens *Tokens, secureCookie bool) *Middleware {
	return &Middleware{log: log.With("middleware", "auth"), tokens: tokens, secureCookie: secureCookie}
}

// RequireAuth rejects requests without a valid bearer token and stores the caller's
// Participant on the gin context. A session cookie is issued when missing.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		claims, err := m.tokens.Verify(raw)
		if err != nil {
			m.log.Debug("token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		sid, err := c.Cookie(SessionCookie)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
			cookie := &http.Cookie{
				Name:     SessionCookie,
				Value:    sid,
				Path:     "/",
				Secure:   m.secureCookie,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			}
			http.SetCookie(c.Writer, cookie)
			c.Set(issuedCookieKey, cookie)
		}

		c.Set(participantKey, app.Participant{
			UserID:    claims.Subject,
			SessionID: sid,
			Email:     claims.Email,
			Name:      claims.Name,
		})
		c.Next()
	}
}

// ParticipantFrom returns the participant stored by RequireAuth.
func ParticipantFrom(c *gin.Context) (app.Participant, bool) {
	v, ok := c.Get(participantKey)
	if !ok {
		return app.Participant{}, false
	}
	p, ok := v.(app.Participant)
	return p, ok
}

// IssuedCookie returns the session cookie RequireAuth created for this request, if any.
// Handlers that hijack the connection must send it themselves.
func IssuedCookie(c *gin.Context) (*http.Cookie, bool) {
	v, ok := c.Get(issuedCookieKey)
	if !ok {
		return nil, false
	}
	cookie, ok := v.(*http.Cookie)
	return cookie, ok
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	// browsers cannot set headers on websocket upgrades
	return c.Query("token")
}
