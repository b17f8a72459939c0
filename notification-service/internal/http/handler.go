package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_eshop/notification-service/internal/email"
	"github.com/fjod/go_eshop/pkg/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type EmailHandler struct {
	sender   email.Sender
	validate *validator.Validate
	log      *slog.Logger
	timeout  time.Duration
}

func NewEmailHandler(sender email.Sender, log *slog.Logger, timeout time.Duration) *EmailHandler {
	return &EmailHandler{
		sender:   sender,
		validate: httpx.NewValidator(),
		log:      log,
		timeout:  timeout,
	}
}

func (h *EmailHandler) Routes(r chi.Router) {
	r.Post("/email", h.SendEmail)
}

type SendEmailRequest struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	HTML    string `json:"html" validate:"required_without=Text"`
	Text    string `json:"text"`
}

// POST /email
func (h *EmailHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SendEmailRequest
	if err := httpx.Decode(r, h.validate, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	if err := h.sender.Send(ctx, email.Message{To: req.To, Subject: req.Subject, HTML: req.HTML, Text: req.Text}); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	h.log.InfoContext(ctx, "notification email sent", "to", req.To)
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
