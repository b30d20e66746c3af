package service

import (
	"context"
	"fmt"
	"net/smtp"

	"lms_backend/internal/config"
	"lms_backend/pkg/logger"
)

// Mailer delivers transactional email. The interface keeps the SMTP details
// out of the services that only need to send.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type smtpMailer struct {
	cfg config.SMTPConfig
	log logger.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, log logger.Logger) Mailer {
	return &smtpMailer{cfg: cfg, log: log}
}

func (m *smtpMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n"+
		"MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s\r\n",
		m.cfg.From, to, subject, htmlBody))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	m.log.Debug("email sent", "to", to, "subject", subject)
	return nil
}
