package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/logger"
)

// WSHandler drives the quiz wizard over a websocket, one message per step.
type WSHandler struct {
	wizard   *app.Wizard
	catalog  *app.Catalog
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(wizard *app.Wizard, catalog *app.Catalog, log *logger.Logger) *WSHandler {
	return &WSHandler{
		wizard:  wizard,
		catalog: catalog,
		log:     log.With("handler", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitPayload struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// outbox feeds the single writer goroutine; push gives up once the writer has stopped.
type outbox struct {
	ch   chan outboundMessage
	done <-chan struct{}
}

func (o outbox) push(msg outboundMessage) bool {
	select {
	case o.ch <- msg:
		return true
	case <-o.done:
		return false
	}
}

// ServeWS upgrades the request and starts or resumes the caller's run of ?quizId.
// Inbound message types: view, previous, submit, abandon.
func (h *WSHandler) ServeWS(c *gin.Context) {
	quizID := c.Query("quizId")
	if quizID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "missing quizId"})
		return
	}
	p, _ := auth.ParticipantFrom(c)

	// the upgrade writes its own response, so a freshly issued session cookie must ride along
	var header http.Header
	if cookie, ok := auth.IssuedCookie(c); ok {
		header = http.Header{"Set-Cookie": []string{cookie.String()}}
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, header)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})
	out := outbox{ch: send, done: writerDone}

	// gorilla connections allow a single concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write failed", "error", err)
				return
			}
		}
	}()

	if _, err := h.wizard.Start(ctx, p, quizID); err != nil {
		out.push(errorMessage(err, quizID))
	} else {
		h.reply(ctx, out, quizID, func() (app.Step, error) { return h.wizard.View(ctx, p, quizID) })
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var ok bool
		switch inbound.Type {
		case "view":
			ok = h.reply(ctx, out, quizID, func() (app.Step, error) { return h.wizard.View(ctx, p, quizID) })
		case "previous":
			ok = h.reply(ctx, out, quizID, func() (app.Step, error) { return h.wizard.Previous(ctx, p, quizID) })
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.OptionID == "" {
				ok = out.push(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid submit payload"}})
				break
			}
			ok = h.reply(ctx, out, quizID, func() (app.Step, error) {
				return h.wizard.Submit(ctx, p, quizID, payload.QuestionID, payload.OptionID)
			})
		case "abandon":
			if err := h.wizard.Abandon(ctx, p); err != nil {
				ok = out.push(errorMessage(err, quizID))
				break
			}
			ok = out.push(outboundMessage{Type: "abandoned", Payload: struct{}{}})
		default:
			ok = out.push(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
		if !ok {
			break
		}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) reply(ctx context.Context, out outbox, quizID string, next func() (app.Step, error)) bool {
	step, err := next()
	if err != nil {
		if status, _ := classify(err, quizID); status >= http.StatusInternalServerError {
			h.log.Error("ws step failed", "quizId", quizID, "error", err)
		}
		return out.push(errorMessage(err, quizID))
	}
	if !step.Complete() {
		return out.push(outboundMessage{Type: "question", Payload: step.Question})
	}
	if !out.push(outboundMessage{Type: "result", Payload: step.Attempt}) {
		return false
	}
	board, err := h.catalog.QuizLeaderboard(ctx, quizID, 10)
	if err != nil {
		h.log.Warn("leaderboard after completion failed", "quizId", quizID, "error", err)
		return true
	}
	return out.push(outboundMessage{Type: "leaderboard", Payload: board})
}

func errorMessage(err error, quizID string) outboundMessage {
	_, resp := classify(err, quizID)
	return outboundMessage{Type: "error", Payload: errorPayload{Message: resp.Error, Redirect: resp.Redirect}}
}
