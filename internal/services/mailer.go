package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"
	"strings"
)

// Mailer delivers password reset codes.
type Mailer interface {
	SendOTP(ctx context.Context, to, name string, otp int) error
}

// SMTPMailer sends plain-text mail through an SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to, name string, otp int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := m.host + ":" + strconv.Itoa(m.port)
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, buildOTPMessage(m.from, to, name, otp)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

func buildOTPMessage(from, to, name string, otp int) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Your password reset code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", name)
	fmt.Fprintf(&b, "Your password reset code is %06d. It expires in 2 minutes.\r\n", otp)
	return []byte(b.String())
}

// LogMailer is used when no SMTP relay is configured.
type LogMailer struct{}

func (LogMailer) SendOTP(_ context.Context, to, _ string, otp int) error {
	slog.Info("password reset code issued", "to", to)
	slog.Debug("password reset code", "to", to, "otp", otp)
	return nil
}
