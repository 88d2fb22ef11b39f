package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/logger"
)

// Handler serves the quiz-taking flow and the read side around it.
type Handler struct {
	wizard  *app.Wizard
	catalog *app.Catalog
	log     *logger.Logger
}

func NewHandler(wizard *app.Wizard, catalog *app.Catalog, log *logger.Logger) *Handler {
	return &Handler{wizard: wizard, catalog: catalog, log: log.With("handler", "quiz")}
}

type submitRequest struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id" binding:"required"`
}

type rateRequest struct {
	Score int `json:"score" binding:"required"`
}

func participant(c *gin.Context) app.Participant {
	p, _ := auth.ParticipantFrom(c)
	return p
}

// Take starts or resumes the caller's run and renders the current question.
// ?back=1 steps back one question first.
func (h *Handler) Take(c *gin.Context) {
	quizID := c.Param("id")
	p := participant(c)
	if _, err := h.wizard.Start(c.Request.Context(), p, quizID); err != nil {
		h.fail(c, err, quizID)
		return
	}

	var (
		step app.Step
		err  error
	)
	if c.Query("back") == "1" {
		step, err = h.wizard.Previous(c.Request.Context(), p, quizID)
	} else {
		step, err = h.wizard.View(c.Request.Context(), p, quizID)
	}
	if err != nil {
		h.fail(c, err, quizID)
		return
	}
	h.renderStep(c, step)
}

func (h *Handler) Submit(c *gin.Context) {
	quizID := c.Param("id")
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "option_id is required"})
		return
	}
	step, err := h.wizard.Submit(c.Request.Context(), participant(c), quizID, req.QuestionID, req.OptionID)
	if err != nil {
		h.fail(c, err, quizID)
		return
	}
	h.renderStep(c, step)
}

// Abandon clears the caller's in-progress run so another quiz can be started.
func (h *Handler) Abandon(c *gin.Context) {
	if err := h.wizard.Abandon(c.Request.Context(), participant(c)); err != nil {
		h.fail(c, err, "")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) renderStep(c *gin.Context, step app.Step) {
	if step.Complete() {
		c.Redirect(http.StatusSeeOther, "/api/results/"+step.Attempt.ID)
		return
	}
	c.JSON(http.StatusOK, step.Question)
}

// ListQuizzes lists active quizzes; ?mine=1 lists the caller's own quizzes including drafts.
func (h *Handler) ListQuizzes(c *gin.Context) {
	filter := domain.QuizFilter{
		CategoryID: c.Query("category"),
		Sort:       domain.QuizSort(c.Query("sort")),
	}
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine {
		filter.OwnerID = participant(c).UserID
	}
	quizzes, err := h.catalog.ListQuizzes(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": quizzes})
}

func (h *Handler) QuizDetail(c *gin.Context) {
	detail, err := h.catalog.QuizDetail(c.Request.Context(), c.Param("id"), participant(c).UserID)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) Rate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: domain.ErrInvalidRating.Error()})
		return
	}
	created, err := h.catalog.Rate(c.Request.Context(), c.Param("id"), participant(c).UserID, req.Score)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"score": req.Score, "created": created})
}

func (h *Handler) Result(c *gin.Context) {
	result, err := h.catalog.Result(c.Request.Context(), c.Param("id"), participant(c).UserID)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) History(c *gin.Context) {
	attempts, err := h.catalog.History(c.Request.Context(), participant(c).UserID)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

func (h *Handler) GlobalLeaderboard(c *gin.Context) {
	standings, err := h.catalog.GlobalLeaderboard(c.Request.Context(), limitParam(c))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"standings": standings})
}

func (h *Handler) QuizLeaderboard(c *gin.Context) {
	board, err := h.catalog.QuizLeaderboard(c.Request.Context(), c.Param("id"), limitParam(c))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, board)
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}
