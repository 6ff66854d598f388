package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/consultation-booking/pkg/logging"
)

func TestNewSendGridSender(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "bookings@example.com"}, nil), "no key, no sender")

	sender := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "bookings@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, DefaultFromName, sender.fromName)

	named := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "bookings@example.com", FromName: "Desk"}, nil)
	assert.Equal(t, "Desk", named.fromName)
}

func TestSendGridSenderWithoutClient(t *testing.T) {
	err := (&SendGridSender{}).Send(context.Background(), EmailMessage{To: "asha@example.com", Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, errSendGridUnconfigured)
}

func TestEmailMessageHTMLFallsBackToBody(t *testing.T) {
	assert.Equal(t, "plain", EmailMessage{Body: "plain"}.htmlOrBody())
	assert.Equal(t, "<p>x</p>", EmailMessage{Body: "plain", HTML: "<p>x</p>"}.htmlOrBody())
}

func TestStubEmailSenderNeverFails(t *testing.T) {
	require.NoError(t, NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "asha@example.com", Subject: "s"}))
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	api := &fakeSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "bookings@example.com"}, logging.Discard())
	require.NotNil(t, sender)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "asha@example.com",
		ToName:  "Asha Rao",
		Subject: "Booking Confirmation - b-1",
		Body:    "plain",
		HTML:    "<p>html</p>",
	})
	require.NoError(t, err)

	in := api.input
	assert.Equal(t, "KP RegTech Consultations <bookings@example.com>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"Asha Rao <asha@example.com>"}, in.Destination.ToAddresses)
	assert.Equal(t, "Booking Confirmation - b-1", aws.ToString(in.Content.Simple.Subject.Data))
	assert.Equal(t, "plain", aws.ToString(in.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(in.Content.Simple.Body.Html.Data))
}

func TestSESSender_SendError(t *testing.T) {
	sender := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "b@example.com"}, logging.Discard())

	err := sender.Send(context.Background(), EmailMessage{To: "a@example.com", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestNewSESSender_NilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))
}

func TestNewEmailSender(t *testing.T) {
	sg := SendGridConfig{APIKey: "key", FromEmail: "from@example.com"}
	ses := SESConfig{FromEmail: "from@example.com"}

	tests := []struct {
		name string
		cfg  SenderConfig
		api  SESAPI
		want any
	}{
		{"auto prefers sendgrid", SenderConfig{Provider: "auto", SendGrid: sg, SES: ses}, &fakeSES{}, &SendGridSender{}},
		{"auto falls back to ses", SenderConfig{Provider: "", SES: ses}, &fakeSES{}, &SESSender{}},
		{"explicit ses", SenderConfig{Provider: "SES", SendGrid: sg, SES: ses}, &fakeSES{}, &SESSender{}},
		{"ses without client", SenderConfig{Provider: "ses", SES: ses}, nil, &StubEmailSender{}},
		{"sendgrid without key", SenderConfig{Provider: "sendgrid"}, nil, &StubEmailSender{}},
		{"stub", SenderConfig{Provider: "stub", SendGrid: sg}, nil, &StubEmailSender{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewEmailSender(tt.cfg, tt.api, logging.Discard())
			assert.IsType(t, tt.want, got)
		})
	}
}
