package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_eshop/pkg/circuitbreaker"
	"github.com/fjod/go_eshop/pkg/messaging"
)

type Publisher interface {
	Publish(ctx context.Context, msg messaging.Message) error
}

type RelayConfig struct {
	BatchSize int
	EventTick time.Duration
	PurgeTick time.Duration
	// Retention is how long processed records are kept before purging.
	Retention time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		BatchSize: 100,
		EventTick: time.Second,
		PurgeTick: time.Hour,
		Retention: 7 * 24 * time.Hour,
	}
}

// Relay moves outbox records to the bus. A record is marked processed only
// after a successful publish, so a crash in between publishes it again.
type Relay struct {
	store     Store
	publisher Publisher
	cfg       RelayConfig
	log       *slog.Logger
}

func NewRelay(store Store, publisher Publisher, cfg RelayConfig, log *slog.Logger) *Relay {
	return &Relay{store: store, publisher: publisher, cfg: cfg, log: log}
}

func (r *Relay) Run(ctx context.Context) {
	eventTicker := time.NewTicker(r.cfg.EventTick)
	purgeTicker := time.NewTicker(r.cfg.PurgeTick)
	defer eventTicker.Stop()
	defer purgeTicker.Stop()

	for {
		select {
		case <-eventTicker.C:
			r.processPending(ctx)
		case <-purgeTicker.C:
			r.purge(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Relay) processPending(ctx context.Context) int {
	records, err := r.store.GetUnprocessed(ctx, r.cfg.BatchSize)
	if err != nil {
		r.log.ErrorContext(ctx, "failed to fetch outbox records", "error", err)
		return 0
	}

	published := 0
	for _, rec := range records {
		err := r.publisher.Publish(ctx, messaging.Message{
			ID:      rec.ID,
			Key:     rec.AggregateID,
			Type:    rec.EventType,
			Payload: json.RawMessage(rec.Payload),
		})
		if err != nil {
			r.log.WarnContext(ctx, "failed to relay outbox record", "id", rec.ID, "error", err)
			if errors.Is(err, circuitbreaker.ErrOpen) {
				break
			}
			continue
		}

		if err := r.store.MarkProcessed(ctx, rec.ID); err != nil {
			r.log.ErrorContext(ctx, "failed to mark outbox record processed", "id", rec.ID, "error", err)
			continue
		}
		published++
	}
	return published
}

func (r *Relay) purge(ctx context.Context) {
	n, err := r.store.PurgeProcessed(ctx, time.Now().UTC().Add(-r.cfg.Retention))
	if err != nil {
		r.log.ErrorContext(ctx, "failed to purge outbox", "error", err)
		return
	}
	if n > 0 {
		r.log.InfoContext(ctx, "outbox purged", "deleted", n)
	}
}
