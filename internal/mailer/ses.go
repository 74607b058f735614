package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"
)

// SESAPI is the part of the sesv2 client the sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESConfig struct {
	FromEmail string
	FromName  string
}

type SESSender struct {
	client    SESAPI
	fromEmail string
	fromName  string
	logger    zerolog.Logger
}

func NewSESSender(client SESAPI, cfg SESConfig, logger zerolog.Logger) *SESSender {
	if client == nil {
		return nil
	}
	if cfg.FromName == "" {
		cfg.FromName = "Clinic"
	}
	return &SESSender{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger.With().Str("component", "mailer.ses").Logger(),
	}
}

func textContent(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	if s == nil || s.client == nil {
		return errors.New("mailer: ses client not configured")
	}

	body := &types.Body{}
	if msg.Text != "" {
		body.Text = textContent(msg.Text)
	}
	if msg.HTML != "" {
		body.Html = textContent(msg.HTML)
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: textContent(msg.Subject),
				Body:    body,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("mailer: ses send: %w", err)
	}

	s.logger.Debug().Str("to", msg.To).Str("message_id", aws.ToString(out.MessageId)).Msg("email sent via ses")
	return nil
}

var _ Sender = (*SESSender)(nil)
