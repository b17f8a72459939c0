package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_eshop/pkg/apperr"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultResendURL = "https://api.resend.com"
	DefaultFrom      = "onboarding@resend.dev"
)

// ResendSender posts messages to the Resend HTTP API.
type ResendSender struct {
	baseURL string
	apiKey  string
	from    string
	http    *http.Client
	log     *slog.Logger
}

type ResendOption func(*ResendSender)

func WithBaseURL(u string) ResendOption {
	return func(s *ResendSender) { s.baseURL = strings.TrimRight(u, "/") }
}

func WithFrom(from string) ResendOption {
	return func(s *ResendSender) { s.from = from }
}

func WithHTTPClient(c *http.Client) ResendOption {
	return func(s *ResendSender) { s.http = c }
}

func NewResendSender(apiKey string, timeout time.Duration, log *slog.Logger, opts ...ResendOption) *ResendSender {
	s := &ResendSender{
		baseURL: DefaultResendURL,
		apiKey:  apiKey,
		from:    DefaultFrom,
		http:    &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

func (s *ResendSender) Send(ctx context.Context, m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(resendRequest{
		From:    s.from,
		To:      []string{m.To},
		Subject: m.Subject,
		HTML:    m.HTML,
		Text:    m.Text,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "email provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	s.log.ErrorContext(ctx, "resend email failed", "status", resp.StatusCode, "body", string(respBody))
	err = fmt.Errorf("resend returned %d", resp.StatusCode)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return apperr.Wrap(apperr.KindTransient, "email provider unavailable", err)
	}
	return apperr.Wrap(apperr.KindFatal, "email rejected", err)
}
