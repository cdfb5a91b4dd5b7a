package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Mailer sends the email rendition of a notification.
type Mailer interface {
	SendNotificationEmail(ctx context.Context, to, subject, body string) error
}

// Message is the unit queued on the email outbox.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type logMailer struct{}

// NewLogMailer returns a Mailer that only logs. Used when email is disabled.
func NewLogMailer() Mailer {
	return &logMailer{}
}

func (l *logMailer) SendNotificationEmail(_ context.Context, to, subject, _ string) error {
	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("Email delivery disabled, message logged")
	return nil
}
