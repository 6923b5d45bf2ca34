package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender logs messages instead of sending them. Used when SMTP_MODE=dev.
type LogSender struct {
	logger *logrus.Logger
}

// NewLogSender creates a sender that only logs
func NewLogSender(logger *logrus.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// GetName returns the sender name
func (s *LogSender) GetName() string {
	return "log"
}

// Send logs the message envelope
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}

	s.logger.WithFields(logrus.Fields{
		"to":          msg.To,
		"subject":     msg.Subject,
		"attachments": names,
	}).Info("📧 DEV MODE: email not sent")

	return nil
}
