package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"quizmaster-service/internal/domain"
)

type errorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// classify maps domain errors to a status code and a message that is safe to show.
func classify(err error, quizID string) (int, errorResponse) {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrQuizInactive):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Redirect: "/api/quizzes"}
	case errors.Is(err, domain.ErrSessionNotFound):
		resp := errorResponse{Error: "your quiz session expired, please start again"}
		if quizID != "" {
			resp.Redirect = "/api/quizzes/" + quizID + "/take"
		}
		return http.StatusConflict, resp
	case errors.Is(err, domain.ErrSessionConflict), errors.Is(err, domain.ErrSessionMismatch):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrQuestionNotFound), errors.Is(err, domain.ErrOptionNotFound):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrInvalidRating):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "something went wrong, please try again"}
	}
}

func (h *Handler) fail(c *gin.Context, err error, quizID string) {
	status, resp := classify(err, quizID)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, resp)
}
