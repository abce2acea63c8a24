package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPTransport sends multipart messages with net/smtp and PLAIN auth.
type SMTPTransport struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	sendMail     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPTransport(smtpHost, smtpPort, smtpUser, smtpPassword string) *SMTPTransport {
	return &SMTPTransport{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		sendMail:     smtp.SendMail,
	}
}

func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if t.smtpUser != "" {
		auth = smtp.PlainAuth("", t.smtpUser, t.smtpPassword, t.smtpHost)
	}

	addr := fmt.Sprintf("%s:%s", t.smtpHost, t.smtpPort)
	return t.sendMail(addr, auth, msg.From, []string{msg.To}, buildMIMEMessage(msg))
}

const mimeBoundary = "verification-boundary"

func buildMIMEMessage(msg *Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Text)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return []byte(b.String())
}
