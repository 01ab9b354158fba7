package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

type logMailer struct{}

// NewLogMailer writes messages to the log instead of sending them. Used in
// local development where no SMTP server is available. The body is only
// logged at debug level since it carries one-time passcodes.
func NewLogMailer() Mailer {
	return logMailer{}
}

func (logMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := logrus.WithFields(logrus.Fields{"to": to, "subject": subject})
	entry.Info("Email not sent, no SMTP server configured.")
	entry.Debug(body)
	return nil
}
