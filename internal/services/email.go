package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/huangang/studiodesk/backend/internal/config"
	"github.com/huangang/studiodesk/backend/pkg/logger"
)

// Mailer delivers one HTML message.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

type EmailService struct {
	config *config.EmailConfig
}

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{config: cfg}
}

func (s *EmailService) Enabled() bool {
	return s.config != nil && s.config.Enabled && s.config.Host != ""
}

// Send is a no-op when SMTP is not configured.
func (s *EmailService) Send(ctx context.Context, to []string, subject, body string) error {
	if !s.Enabled() {
		logger.Debug().Strs("to", to).Str("subject", subject).Msg("email disabled, message skipped")
		return nil
	}
	if len(to) == 0 {
		return nil
	}

	from := s.config.From
	if from == "" {
		from = s.config.Username
	}

	message := buildMessage(from, to, subject, body, time.Now())

	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	var err error
	if s.config.UseTLS {
		err = s.sendTLS(ctx, addr, auth, from, to, message)
	} else {
		err = smtp.SendMail(addr, auth, from, to, []byte(message))
	}
	if err != nil {
		logger.Warn().Err(err).Strs("to", to).Msg("email delivery failed")
		return err
	}

	logger.Info().Strs("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

// buildMessage renders the RFC 5322 header block and HTML body. The subject
// is flattened to one line and RFC 2047 encoded, so user text cannot add
// headers or end the block early.
func buildMessage(from string, to []string, subject, body string, date time.Time) string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ","))
	fmt.Fprintf(&msg, "Subject: %s\r\n", headerValue(subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", date.Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)
	return msg.String()
}

func headerValue(v string) string {
	v = strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, v)
	return mime.QEncoding.Encode("utf-8", v)
}

func (s *EmailService) sendTLS(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, message string) error {
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: s.config.Host, MinVersion: tls.VersionTLS12}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(message)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// BuildInviteEmail renders the invitation sent to a prospective contributor.
func BuildInviteEmail(task *InviteEmailTask) (subject, body string) {
	subject = fmt.Sprintf("You're invited to join %s", task.ProjectName)

	var sb strings.Builder
	sb.WriteString(`<html><body style="font-family: Arial, sans-serif;">`)
	fmt.Fprintf(&sb, "<h2>Join %s</h2>", html.EscapeString(task.ProjectName))
	if task.InviterName != "" {
		fmt.Fprintf(&sb, "<p>%s invited you to collaborate on this project.</p>", html.EscapeString(task.InviterName))
	} else {
		sb.WriteString("<p>You have been invited to collaborate on this project.</p>")
	}
	sb.WriteString("<p>Your invite code:</p>")
	fmt.Fprintf(&sb, `<p style="font-size: 24px; font-weight: bold; letter-spacing: 4px; background: #f5f5f5; padding: 12px; display: inline-block;">%s</p>`,
		html.EscapeString(task.InviteCode))
	if task.JoinURL != "" {
		fmt.Fprintf(&sb, `<p><a href="%s">Open the dashboard</a> and enter the code to join.</p>`, html.EscapeString(task.JoinURL))
	}
	sb.WriteString("</body></html>")
	return subject, sb.String()
}
