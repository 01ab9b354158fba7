package mailer

import (
	"context"
	"errors"

	"food_crm/internal/config"
)

// Mailer delivers a plain-text message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New returns an SMTP mailer, or a log-only one when no SMTP host is
// configured. Production environments must configure SMTP.
func New(cfg config.SMTPConfig, env string) (Mailer, error) {
	if cfg.Host == "" {
		if env == "production" {
			return nil, errors.New("SMTP_HOST is required when APP_ENV is production")
		}
		return NewLogMailer(), nil
	}
	return NewSMTPMailer(cfg)
}
