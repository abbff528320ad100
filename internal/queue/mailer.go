package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
)

// Mailer composes the application's e-mails and hands them to an Outbox.
type Mailer struct {
	Out       Outbox
	From      string
	PublicURL string
	now       func() time.Time
}

func NewMailer(out Outbox, from, publicURL string) *Mailer {
	return &Mailer{Out: out, From: from, PublicURL: strings.TrimRight(publicURL, "/"), now: time.Now}
}

// SendWelcome greets a new user with a link to their account page.
func (m *Mailer) SendWelcome(ctx context.Context, u *model.User) error {
	url := m.PublicURL + "/me"
	return m.send(ctx, u, MailWelcome,
		"Welcome to the Natours Family!",
		fmt.Sprintf("Hi %s, welcome to Natours! Upload a photo and complete your profile at %s.", firstName(u.Name), url),
		url)
}

// SendPasswordReset mails the reset link.  The link carries the raw token.
func (m *Mailer) SendPasswordReset(ctx context.Context, u *model.User, resetURL string) error {
	return m.send(ctx, u, MailPasswordReset,
		"Your password reset token (valid for 10 min)",
		fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s.\nIf you didn't forget your password, please ignore this email!", resetURL),
		resetURL)
}

func (m *Mailer) send(ctx context.Context, u *model.User, kind, subject, text, url string) error {
	return m.Out.Publish(ctx, MailMessage{
		Kind:      kind,
		From:      m.From,
		To:        u.Email,
		Name:      firstName(u.Name),
		Subject:   subject,
		Text:      text,
		URL:       url,
		CreatedAt: m.now().UTC(),
	})
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}
