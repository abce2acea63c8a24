// Package email delivers verification codes to users.
//
// A Sender renders the verification message and hands it to a Transport
// (SMTP, the Resend API, or the log). QueueSender defers delivery to an
// asynq worker that retries failed sends.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/redmonkez12/go-auth-verify/internal/config"
	"github.com/redmonkez12/go-auth-verify/internal/logging"
)

// Sender delivers a verification code to an address.
type Sender interface {
	SendVerificationCode(ctx context.Context, to, code string, expiresAt time.Time) error
}

// Message is a rendered email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Transport hands a rendered message to a delivery provider.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// TemplateSender renders verification messages and sends them through a Transport.
type TemplateSender struct {
	transport Transport
	from      string
	now       func() time.Time
}

func NewSender(transport Transport, from string) *TemplateSender {
	return &TemplateSender{
		transport: transport,
		from:      from,
		now:       time.Now,
	}
}

func (s *TemplateSender) SendVerificationCode(ctx context.Context, to, code string, expiresAt time.Time) error {
	logger := logging.GetLoggerFromContext(ctx)

	msg, err := renderVerification(code, expiresAt.Sub(s.now()))
	if err != nil {
		logger.Error("failed to render email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}
	msg.From = s.from
	msg.To = to

	if err := s.transport.Send(ctx, msg); err != nil {
		logger.Error("failed to send verification email", "email", to, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("verification email sent", "email", to)
	return nil
}

// NewTransport builds the transport selected by cfg.Provider.
func NewTransport(cfg config.EmailConfig, logger *logging.Logger) (Transport, error) {
	switch cfg.Provider {
	case config.EmailProviderResend:
		return NewResendTransport(cfg.APIKey), nil
	case config.EmailProviderSMTP:
		return NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword), nil
	case config.EmailProviderLog:
		return NewLogTransport(logger), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}
}
