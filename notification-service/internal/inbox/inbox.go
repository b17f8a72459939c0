// Package inbox remembers which checkout events already produced a
// notification so a redelivered message does not send a second email.
package inbox

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fjod/go_eshop/pkg/events"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
)

const schema = `CREATE TABLE IF NOT EXISTS notification_inbox (
    message_key TEXT PRIMARY KEY,
    received_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Key identifies a delivery: the event id when present, otherwise the
// message position on the bus.
func Key(ev events.CheckoutEvent, m kafka.Message) string {
	if ev.HasEventID() {
		return ev.EventID.String()
	}
	return m.Topic + "/" + strconv.Itoa(m.Partition) + "/" + strconv.FormatInt(m.Offset, 10)
}

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create inbox table: %w", err)
	}
	return nil
}

// Claim returns false when the key was claimed before.
func (s *Store) Claim(ctx context.Context, key string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO notification_inbox (message_key) VALUES ($1) ON CONFLICT (message_key) DO NOTHING`, key)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release forgets a claim so the next delivery of the message is handled again.
func (s *Store) Release(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM notification_inbox WHERE message_key = $1`, key); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
