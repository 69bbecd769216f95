package notify

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"

	"auth_backend/internal/models"
)

//go:embed reset_password_email.html
var resetPasswordTemplate string

const resetEmailSubject = "Reset your password"

type Publisher interface {
	SendMessage(ctx context.Context, msg models.EmailMessage) error
}

// Notifier renders password-reset emails and hands them to the mail queue.
type Notifier struct {
	pub       Publisher
	appDomain string
	tmpl      *template.Template
}

func New(pub Publisher, appDomain string) *Notifier {
	return &Notifier{
		pub:       pub,
		appDomain: appDomain,
		tmpl:      template.Must(template.New("reset").Parse(resetPasswordTemplate)),
	}
}

func (n *Notifier) SendResetEmail(ctx context.Context, recipient, name, resetToken string) error {
	const op = "notify.SendResetEmail"

	link := fmt.Sprintf("%s/reset-pwd?token=%s", n.appDomain, resetToken)

	var body bytes.Buffer

	err := n.tmpl.Execute(&body, struct {
		Name string
		Link string
	}{Name: name, Link: link})
	if err != nil {
		return fmt.Errorf("%s: failed to render template: %w", op, err)
	}

	msg := models.EmailMessage{
		Email:   recipient,
		Subject: resetEmailSubject,
		HTML:    body.String(),
	}

	if err := n.pub.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
