package notifications

import (
	"context"
	"fmt"

	"bboard/internal/config"
	"bboard/internal/observability"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	From     string
}

// SMTPMailer sends each message over a fresh SMTP connection.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer returns a mailer for cfg.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithPort(m.cfg.Port)}
	if m.cfg.UseTLS {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

// Send delivers msg and returns any transport error.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) (err error) {
	ctx, span := observability.StartClientSpan(ctx, "smtp", "send")
	defer func() { observability.EndSpan(span, err) }()

	out := mail.NewMsg()
	if err := out.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	if err := out.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// NewMailer returns the mail backend selected by EMAIL_BACKEND: "smtp"
// sends real mail, anything else logs messages to the console.
func NewMailer(cfg *config.Config) Mailer {
	if cfg.EmailBackend == "smtp" {
		return NewSMTPMailer(SMTPConfig{
			Host:     cfg.EmailHost,
			Port:     cfg.EmailPort,
			Username: cfg.EmailUser,
			Password: cfg.EmailPassword,
			UseTLS:   cfg.EmailUseTLS,
			From:     cfg.DefaultFromEmail,
		})
	}
	return &ConsoleMailer{From: cfg.DefaultFromEmail}
}
