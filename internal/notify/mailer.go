package notify

import (
	"context"

	"go.uber.org/zap"
)

// Message is a rendered email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers a rendered message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer only logs messages. It is used when no relay is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the recipient and subject.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email (log only)", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// Config selects and configures a Mailer.
type Config struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	APIKey      string
}

// NewMailer returns SendGrid when an API key is set, SMTP when a host is set, else a log mailer.
func NewMailer(cfg Config, logger *zap.Logger) Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case cfg.APIKey != "":
		logger.Info("email via sendgrid")
		return NewSendGridMailer(cfg.APIKey, cfg.FromAddress, cfg.FromName)
	case cfg.SMTPHost != "":
		logger.Info("email via smtp", zap.String("host", cfg.SMTPHost), zap.Int("port", cfg.SMTPPort))
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.FromAddress, cfg.FromName)
	default:
		logger.Warn("no email relay configured, invoices are only logged")
		return NewLogMailer(logger)
	}
}
