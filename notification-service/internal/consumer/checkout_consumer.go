package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fjod/go_eshop/notification-service/internal/confirmation"
	"github.com/fjod/go_eshop/notification-service/internal/email"
	"github.com/fjod/go_eshop/notification-service/internal/inbox"
	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/fjod/go_eshop/pkg/events"
	"github.com/fjod/go_eshop/pkg/messaging"
	"github.com/segmentio/kafka-go"
)

const GroupID = "notification-service"

type Inbox interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type CheckoutHandler struct {
	inbox  Inbox
	sender email.Sender
	log    *slog.Logger
}

func NewCheckoutHandler(in Inbox, sender email.Sender, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{inbox: in, sender: sender, log: log}
}

// Handle sends one confirmation per delivery key. A failed send releases the
// claim and returns the error so the message is redelivered.
func (h *CheckoutHandler) Handle(ctx context.Context, m kafka.Message) error {
	if t := messaging.Header(m, messaging.HeaderEventType); t != "" && t != events.CheckoutEventType {
		return nil
	}

	var ev events.CheckoutEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		return apperr.Wrap(apperr.KindValidation, "malformed checkout event", err)
	}

	msg, err := confirmation.Build(ev)
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	key := inbox.Key(ev, m)
	claimed, err := h.inbox.Claim(ctx, key)
	if err != nil {
		return err
	}
	if !claimed {
		h.log.InfoContext(ctx, "confirmation already sent", "key", key, "user", ev.UserName)
		return nil
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		if rerr := h.inbox.Release(context.WithoutCancel(ctx), key); rerr != nil {
			h.log.ErrorContext(ctx, "failed to release inbox claim", "key", key, "error", rerr)
		}
		return fmt.Errorf("send confirmation to %s: %w", ev.EmailAddress, err)
	}

	h.log.InfoContext(ctx, "order confirmation sent", "user", ev.UserName, "to", ev.EmailAddress, "key", key)
	return nil
}
