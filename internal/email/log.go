package email

import (
	"context"

	"github.com/redmonkez12/go-auth-verify/internal/logging"
)

// LogTransport writes messages to the log instead of delivering them.
// Intended for local development.
type LogTransport struct {
	logger *logging.Logger
}

func NewLogTransport(logger *logging.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(ctx context.Context, msg *Message) error {
	t.logger.InfoContext(ctx, "email not delivered (log provider)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}
