// Package mailer delivers human-readable email summaries of lifecycle events.
// Delivery is best-effort: nothing in this package ever reports a failure back
// to the operation that produced the message.
package mailer

import (
	"context"

	"github.com/rs/zerolog"
)

// Sender delivers one message. Implementations can be swapped without touching callers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// StubSender logs messages instead of delivering them.
type StubSender struct {
	logger zerolog.Logger
}

func NewStubSender(logger zerolog.Logger) *StubSender {
	return &StubSender{logger: logger.With().Str("component", "mailer.stub").Logger()}
}

func (s *StubSender) Send(_ context.Context, msg Message) error {
	s.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("stub mailer: would send email")
	return nil
}

var _ Sender = (*StubSender)(nil)
