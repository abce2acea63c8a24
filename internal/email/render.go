package email

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	texttemplate "text/template"
	"time"

	"github.com/redmonkez12/go-auth-verify/templates"
)

const verificationSubject = "Welcome"

var (
	verificationHTML = template.Must(template.ParseFS(templates.EmailsFS, "emails/verification.html"))
	verificationText = texttemplate.Must(texttemplate.ParseFS(templates.EmailsFS, "emails/verification.txt"))
)

type verificationData struct {
	Code             string
	ExpiresInMinutes int
}

func renderVerification(code string, validFor time.Duration) (*Message, error) {
	data := verificationData{
		Code:             code,
		ExpiresInMinutes: max(1, int(math.Round(validFor.Minutes()))),
	}

	var html bytes.Buffer
	if err := verificationHTML.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	var text bytes.Buffer
	if err := verificationText.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	return &Message{
		Subject: verificationSubject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
