package email

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/config"
)

// Message is a rendered email ready for delivery.
// TemplateID names the template it came from and is used only for bookkeeping.
type Message struct {
	To         []string
	Subject    string
	Body       string
	TemplateID string
}

// Sender defines the interface for sending emails.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// BuildRawMessage renders msg as a plain-text RFC 822 message.
func BuildRawMessage(from string, msg *Message, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", now.UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return b.Bytes()
}

// SMTPSender implements the Sender interface using net/smtp.
type SMTPSender struct {
	from   string
	auth   smtp.Auth
	addr   string
	logger *zap.Logger
}

// NewSMTPSender returns an SMTPSender, or a LoggingSender when no SMTP host is configured.
func NewSMTPSender(cfg *config.Config, logger *zap.Logger) Sender {
	logger = logger.Named("email")
	if cfg.SmtpHost == "" {
		logger.Warn("SMTP host not configured, using logging email sender")
		return NewLoggingSender(cfg.SmtpFromAddress, logger)
	}

	var auth smtp.Auth
	if cfg.SmtpUsername != "" {
		auth = smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost)
	}

	return &SMTPSender{
		from:   cfg.SmtpFromAddress,
		auth:   auth,
		addr:   fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
		logger: logger,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	raw := BuildRawMessage(s.from, msg, time.Now())
	if err := smtp.SendMail(s.addr, s.auth, s.from, msg.To, raw); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	s.logger.Info("Email sent via SMTP",
		zap.Strings("to", msg.To),
		zap.String("template", msg.TemplateID),
	)
	return nil
}

// LoggingSender only logs what would have been sent.
type LoggingSender struct {
	from   string
	logger *zap.Logger
}

func NewLoggingSender(from string, logger *zap.Logger) *LoggingSender {
	return &LoggingSender{from: from, logger: logger}
}

func (s *LoggingSender) Send(ctx context.Context, msg *Message) error {
	s.logger.Info("Email (logged, not sent)",
		zap.String("from", s.from),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("template", msg.TemplateID),
		zap.String("body", msg.Body),
	)
	return nil
}
