package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    zerolog.Logger
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger zerolog.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.FromName == "" {
		cfg.FromName = "Clinic"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger.With().Str("component", "mailer.sendgrid").Logger(),
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if s == nil || s.client == nil {
		return errors.New("mailer: sendgrid client not configured")
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)

	text := msg.Text
	if text == "" {
		text = msg.Subject
	}
	html := msg.HTML
	if html == "" {
		html = text
	}

	resp, err := s.client.SendWithContext(ctx, mail.NewSingleEmail(from, msg.Subject, to, text, html))
	if err != nil {
		return fmt.Errorf("mailer: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("mailer: sendgrid returned status %d", resp.StatusCode)
	}

	s.logger.Debug().Str("to", msg.To).Int("status", resp.StatusCode).Msg("email sent via sendgrid")
	return nil
}

var _ Sender = (*SendGridSender)(nil)
