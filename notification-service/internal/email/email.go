// Package email delivers outbound messages.
package email

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fjod/go_eshop/pkg/apperr"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

func (m Message) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(m.To) == "" {
		fields["to"] = "required"
	}
	if strings.TrimSpace(m.Subject) == "" {
		fields["subject"] = "required"
	}
	if strings.TrimSpace(m.HTML) == "" && strings.TrimSpace(m.Text) == "" {
		fields["html"] = "required_without=Text"
	}
	if len(fields) > 0 {
		return apperr.Invalid("invalid email message", fields)
	}
	return nil
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender only logs. It is used when no delivery provider is configured.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "email not delivered, no provider configured", "to", m.To, "subject", m.Subject,
		"text_bytes", len(m.Text), "html_bytes", len(m.HTML))
	return nil
}
