package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewSendGridSenderNeedsKey(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "no-reply@clinic.local"}, zerolog.Nop()))

	s := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "no-reply@clinic.local"}, zerolog.Nop())
	require.NotNil(t, s)
	assert.Equal(t, "Clinic", s.fromName)
}

func TestSendGridSenderWithoutClient(t *testing.T) {
	var s *SendGridSender
	assert.Error(t, s.Send(context.Background(), Message{To: "x@example.com"}))
}

func TestSESSenderBuildsInput(t *testing.T) {
	api := &fakeSES{}
	s := NewSESSender(api, SESConfig{FromEmail: "no-reply@clinic.local", FromName: "Clinic"}, zerolog.Nop())

	err := s.Send(context.Background(), Message{To: "jane@example.com", Subject: "Hello", HTML: "<p>hi</p>"})
	require.NoError(t, err)

	assert.Equal(t, "Clinic <no-reply@clinic.local>", aws.ToString(api.in.FromEmailAddress))
	assert.Equal(t, []string{"jane@example.com"}, api.in.Destination.ToAddresses)
	assert.Equal(t, "Hello", aws.ToString(api.in.Content.Simple.Subject.Data))
	assert.Nil(t, api.in.Content.Simple.Body.Text)
	assert.Equal(t, "<p>hi</p>", aws.ToString(api.in.Content.Simple.Body.Html.Data))
}

func TestSESSenderWrapsErrors(t *testing.T) {
	cause := errors.New("throttled")
	s := NewSESSender(&fakeSES{err: cause}, SESConfig{}, zerolog.Nop())
	assert.ErrorIs(t, s.Send(context.Background(), Message{To: "x@example.com"}), cause)
}

func TestStubSenderNeverFails(t *testing.T) {
	assert.NoError(t, NewStubSender(zerolog.Nop()).Send(context.Background(), Message{To: "x@example.com"}))
}
