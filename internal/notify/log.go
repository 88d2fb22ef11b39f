package notify

import (
	"context"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/logger"
)

// Log writes notifications to the service log instead of delivering them.
type Log struct {
	log *logger.Logger
}

func NewLog(log *logger.Logger) *Log {
	return &Log{log: log.With("notifier", "log")}
}

func (l *Log) Notify(_ context.Context, n app.Notification) error {
	l.log.Info("notification", "recipient", n.Recipient, "subject", n.Subject, "body", n.Body)
	return nil
}
