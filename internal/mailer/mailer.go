// Package mailer delivers transactional e-mail such as one-time codes.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/PRAHARSHITH-789/gala-backend/internal/config"
)

const sendTimeout = 15 * time.Second

// Message is a plain-text e-mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer, or a LogMailer when no SMTP host is set.
func New(cfg config.SMTP, log *zap.Logger) (Mailer, error) {
	if cfg.Host == "" {
		log.Warn("SMTP_HOST not set, mail will be logged instead of sent")
		return NewLogMailer(log), nil
	}
	return NewSMTPMailer(cfg)
}

// LogMailer writes messages to the log. Used in development.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("mail",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

// SMTPMailer sends through an SMTP relay. STARTTLS is used when the server
// offers it; PLAIN auth is used when a username is configured.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

func NewSMTPMailer(cfg config.SMTP) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(sendTimeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

// Send delivers msg. The dial and the SMTP exchange stop when ctx ends.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out, err := m.message(msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) message(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("parse sender: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("parse recipient: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetDate()
	out.SetBodyString(mail.TypeTextPlain, msg.Body)
	return out, nil
}
