package main

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Mailer notifies the site owner about a new contact submission.
type Mailer interface {
	SendContact(ctx context.Context, sub ContactSubmission) error
}

// newMailer returns an SMTP mailer when credentials are configured, otherwise
// one that only logs.
func newMailer(cfg Config, log zerolog.Logger) Mailer {
	if !cfg.SMTPConfigured() {
		log.Warn().Msg("SMTP not configured, contact notifications will only be logged")
		return logMailer{log: log}
	}
	return &smtpMailer{
		addr: net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		host: cfg.SMTPHost,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPassword,
		to:   cfg.NotificationEmail,
		send: smtp.SendMail,
		log:  log,
	}
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpMailer struct {
	addr, host string
	user, pass string
	to         string
	send       sendMailFunc
	log        zerolog.Logger
}

func (m *smtpMailer) SendContact(ctx context.Context, sub ContactSubmission) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := composeContactMail(m.user, m.to, sub)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)

	// smtp.SendMail upgrades with STARTTLS when the server offers it.
	if err := m.send(m.addr, auth, m.user, []string{m.to}, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", m.addr, err)
	}

	m.log.Info().Str("submission_id", sub.ID).Str("from", sub.Email).Msg("email notification sent")
	return nil
}

// composeContactMail renders the notification. Header values are stripped of
// line breaks so visitor input cannot add headers.
func composeContactMail(from, to string, sub ContactSubmission) []byte {
	company := sub.Company
	if company == "" {
		company = "Not provided"
	}

	body := fmt.Sprintf(`You have received a new contact form submission:

Name: %s
Email: %s
Company: %s
Message:
%s

Submitted at: %s
`, sub.Name, sub.Email, company, sub.Message, sub.SubmittedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	var b strings.Builder
	b.WriteString("From: " + headerSafe(from) + "\r\n")
	b.WriteString("To: " + headerSafe(to) + "\r\n")
	b.WriteString("Reply-To: " + headerSafe(sub.Email) + "\r\n")
	b.WriteString("Subject: New Contact Form Submission - " + headerSafe(sub.Name) + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

type logMailer struct {
	log zerolog.Logger
}

func (m logMailer) SendContact(_ context.Context, sub ContactSubmission) error {
	m.log.Warn().
		Str("submission_id", sub.ID).
		Str("name", sub.Name).
		Str("email", sub.Email).
		Msg("contact submission received, no SMTP configured")
	return nil
}
