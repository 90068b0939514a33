// Package mailer sends the account emails (verification and password reset)
// over SMTP.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	verifySubject = "Confirm your email"
	resetSubject  = "Reset your password"
)

// Options configures the SMTP connection and the sender identity.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	SSL      bool
	From     string
	FromName string
	// BaseURL prefixes the links placed in emails, e.g. "http://localhost:8000".
	BaseURL string
}

// sender is satisfied by *mail.Client.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPMailer renders templates and delivers them through an SMTP client.
type SMTPMailer struct {
	client   sender
	from     string
	fromName string
	baseURL  string
}

// NewSMTPMailer builds a mailer. No connection is made until the first send.
func NewSMTPMailer(o Options) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(o.Port)}
	if o.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if o.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(o.Username),
			mail.WithPassword(o.Password),
		)
	}

	c, err := mail.NewClient(o.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return newSMTPMailer(c, o), nil
}

func newSMTPMailer(c sender, o Options) *SMTPMailer {
	return &SMTPMailer{
		client:   c,
		from:     o.From,
		fromName: o.FromName,
		baseURL:  strings.TrimRight(o.BaseURL, "/"),
	}
}

// VerificationLink is the URL a user follows to verify their email.
func (m *SMTPMailer) VerificationLink(token string) string {
	return m.baseURL + "/api/auth/verify/" + token
}

// ResetLink is the URL a user follows to reset their password.
func (m *SMTPMailer) ResetLink(token string) string {
	return m.baseURL + "/api/auth/reset-password/" + token
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, userName, token string) error {
	return m.send(ctx, to, verifySubject, "verify_email.html", userName, m.VerificationLink(token))
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, userName, token string) error {
	return m.send(ctx, to, resetSubject, "reset_password.html", userName, m.ResetLink(token))
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, tmpl, userName, link string) error {
	body, err := render(tmpl, userName, link)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail send: %w", err)
	}
	return nil
}

func render(name, userName, link string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		UserName string
		Link     string
	}{userName, link}

	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("mail template %s: %w", name, err)
	}
	return buf.String(), nil
}
