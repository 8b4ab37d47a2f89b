// Package notifications composes and delivers the board's emails.
package notifications

import (
	"context"
	"log/slog"
	"sync"

	"bboard/internal/middleware"
)

// Message is one plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages. Implementations return transport errors
// unchanged so callers can fail the request that caused the email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ConsoleMailer writes messages to the structured log instead of sending
// them. It is the development default.
type ConsoleMailer struct {
	From   string
	Logger *slog.Logger
}

// Send logs msg.
func (m *ConsoleMailer) Send(ctx context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = middleware.Logger
	}
	logger.InfoContext(ctx, "email (console backend)",
		slog.String("from", m.From),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

// Outbox keeps messages in memory. Setting Err makes every Send fail.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

// Send records msg or returns o.Err.
func (o *Outbox) Send(_ context.Context, msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.messages = append(o.messages, msg)
	return nil
}

// Messages returns a copy of the delivered messages.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// Reset drops recorded messages and clears Err.
func (o *Outbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = nil
	o.Err = nil
}
