// Package email delivers transactional mail for the worker.
package email

import (
	"context"

	"rideway/internal/logger"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes mail to the log instead of an SMTP relay. The default
// in development; swap in a real sender behind the same interface.
type LogSender struct {
	log logger.Logger
}

func NewLogSender(log logger.Logger) *LogSender {
	if log == nil {
		log = logger.Nop()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.log.Info("email sent",
		logger.String("to", to),
		logger.String("subject", subject),
		logger.String("body", body))
	return nil
}
