package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/logger"
)

type RouterConfig struct {
	Handler        *Handler
	WSHandler      *WSHandler
	AuthMiddleware *auth.Middleware
	Log            *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(cfg.Log))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	protected := r.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	if cfg.WSHandler != nil {
		protected.GET("/ws", cfg.WSHandler.ServeWS)
	}

	api := protected.Group("/api")
	{
		api.GET("/quizzes", cfg.Handler.ListQuizzes)
		api.GET("/quizzes/:id", cfg.Handler.QuizDetail)
		api.GET("/quizzes/:id/take", cfg.Handler.Take)
		api.POST("/quizzes/:id/take", cfg.Handler.Submit)
		api.DELETE("/quizzes/:id/take", cfg.Handler.Abandon)
		api.POST("/quizzes/:id/rating", cfg.Handler.Rate)
		api.GET("/results/:id", cfg.Handler.Result)
		api.GET("/history", cfg.Handler.History)
		api.GET("/leaderboard", cfg.Handler.GlobalLeaderboard)
		api.GET("/leaderboard/quiz/:id", cfg.Handler.QuizLeaderboard)
	}
	return r
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if p, ok := auth.ParticipantFrom(c); ok {
			fields = append(fields, "user_id", p.UserID)
		}
		switch {
		case status >= 500:
			log.Error("http request", fields...)
		case status >= 400:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}
