// Package notify delivers candidate notifications by email.
package notify

import (
	"context"
	"fmt"
	"time"

	"cv-processor/internal/logger"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Notifier sends one plain-text message.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	TLS       bool
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// SMTPMailer sends through an SMTP relay. Without credentials it only logs
// the message and reports success, which keeps local runs working.
type SMTPMailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

func NewSMTPMailer(cfg SMTPConfig, log *zap.Logger) *SMTPMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPMailer{cfg: cfg, logger: logger.OrNop(log)}
}

// Configured reports whether messages actually leave the process.
func (m *SMTPMailer) Configured() bool {
	return m.cfg.User != "" && m.cfg.Password != ""
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if !m.Configured() {
		m.logger.Info("[Mailer] SMTP not configured, message not sent",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.String("body", logger.TruncateForLog(body, 200)),
		)
		return nil
	}

	msg, err := m.buildMessage(to, subject, body)
	if err != nil {
		return err
	}

	policy := mail.NoTLS
	if m.cfg.TLS {
		policy = mail.TLSMandatory
	}
	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(policy),
		mail.WithTimeout(m.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.Error("[Mailer] failed to send email", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("send email: %w", err)
	}

	m.logger.Info("[Mailer] email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func (m *SMTPMailer) buildMessage(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.cfg.FromEmail, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
