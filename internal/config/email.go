package config

import (
	"context"

	"github.com/resend/resend-go/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// EmailService sends transactional email through the Resend API. When no
// API key is configured the service is a no-op so local development does
// not require an account.
type EmailService struct {
	client *resend.Client
	from   string
	log    *zap.Logger
}

func NewEmailService(lc fx.Lifecycle, cfg *Config, log *zap.Logger) *EmailService {
	svc := &EmailService{from: cfg.FromEmail, log: log}
	if cfg.ResendAPIKey != "" {
		svc.client = resend.NewClient(cfg.ResendAPIKey)
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if svc.client == nil {
				log.Warn("Email service running in no-op mode (RESEND_API_KEY not set)")
			} else {
				log.Info("Email service initialized")
			}
			return nil
		},
	})
	return svc
}

// SendEmail sends a single HTML email.
func (e *EmailService) SendEmail(to, subject, html string) error {
	if e.client == nil {
		e.log.Debug("Email send skipped, service disabled", zap.String("to", to))
		return nil
	}
	params := &resend.SendEmailRequest{
		From:    e.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}
	if _, err := e.client.Emails.Send(params); err != nil {
		return err
	}
	e.log.Info("Email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
