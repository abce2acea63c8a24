package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type emailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendTransport sends messages through the Resend API.
type ResendTransport struct {
	emails emailsAPI
}

func NewResendTransport(apiKey string) *ResendTransport {
	client := resend.NewClient(apiKey)
	return &ResendTransport{emails: client.Emails}
}

func (t *ResendTransport) Send(ctx context.Context, msg *Message) error {
	_, err := t.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
