// Package mailer sends email over SMTP. It is the only mail transport in
// the service; everything above it treats sending as best-effort.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// Sender is the transport contract the notification dispatcher depends on.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type SMTP struct {
	cfg Config
	log *zerolog.Logger
}

func New(cfg Config, log *zerolog.Logger) *SMTP {
	return &SMTP{cfg: cfg, log: log}
}

func (m *SMTP) Send(to, subject, htmlBody, textBody string) error {
	msg := BuildMessage(m.cfg.From, to, subject, htmlBody, textBody)
	addr := m.cfg.Host + ":" + m.cfg.Port
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		m.log.Warn().Err(err).Str("to", to).Msg("failed to send email")
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

// BuildMessage assembles an RFC 5322 message. An empty htmlBody produces a
// plain-text mail; otherwise the HTML part is sent with text/html content.
func BuildMessage(from, to, subject, htmlBody, textBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	if htmlBody != "" {
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(htmlBody)
	} else {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(textBody)
	}
	return []byte(b.String())
}
