package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/libinstruct/lir-api/pkg/config"
)

// Mailer delivers outbound mail.
type Mailer interface {
	Send(toAddress, subject, htmlBody string) error
}

// SMTPMailer sends HTML mail through a plain SMTP relay. The text/html
// content type is written into each message individually, so it never leaks
// into mail sent by other senders sharing the relay.
type SMTPMailer struct {
	cfg    config.MailConfig
	logger *zap.Logger
}

// NewSMTP constructs an SMTP mailer.
func NewSMTP(cfg config.MailConfig, logger *zap.Logger) *SMTPMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// Send delivers a single HTML message. When no credentials are configured the
// message is logged instead of sent, so development setups work without a relay.
func (m *SMTPMailer) Send(toAddress, subject, htmlBody string) error {
	if m.cfg.Username == "" || m.cfg.Password == "" {
		m.logger.Sugar().Infow("smtp credentials not configured, logging mail instead",
			"to", toAddress, "subject", subject)
		return nil
	}

	from := m.cfg.FromAddress
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromAddress)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", toAddress)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, m.cfg.FromAddress, []string{toAddress}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", toAddress, err)
	}
	return nil
}
