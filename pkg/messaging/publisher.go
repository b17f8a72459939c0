package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/fjod/go_eshop/pkg/circuitbreaker"
	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderEventType = "event_type"
	HeaderMessageID = "message_id"
	HeaderError     = "error"
)

var ErrPublishFailed = apperr.Transient("publish failed")

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// Message is one event to publish. Key selects the partition so events for the
// same aggregate stay ordered.
type Message struct {
	ID      string
	Key     string
	Type    string
	Payload any
}

// Publisher writes to a single topic. Every write attempt passes through the
// shared breaker; failed attempts are retried with exponential backoff until
// the policy is exhausted or the breaker opens.
type Publisher struct {
	writer  Writer
	breaker *circuitbreaker.Breaker
	retry   RetryPolicy
	log     *slog.Logger
	tracer  trace.Tracer
}

func NewPublisher(w Writer, breaker *circuitbreaker.Breaker, policy RetryPolicy, log *slog.Logger) *Publisher {
	return &Publisher{
		writer:  w,
		breaker: breaker,
		retry:   policy,
		log:     log,
		tracer:  otel.Tracer(tracerName),
	}
}

func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	ctx, span := p.tracer.Start(ctx, "publish "+msg.Type, trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("messaging.message.key", msg.Key)))
	defer span.End()

	value, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Type, err)
	}

	headers := []kafka.Header{{Key: HeaderEventType, Value: []byte(msg.Type)}}
	if msg.ID != "" {
		headers = append(headers, kafka.Header{Key: HeaderMessageID, Value: []byte(msg.ID)})
	}
	km := kafka.Message{
		Key:     []byte(msg.Key),
		Value:   value,
		Headers: injectHeaders(ctx, headers),
	}

	attempt := 0
	err = retry.Do(ctx, p.retry.backoff(), func(ctx context.Context) error {
		attempt++
		werr := p.breaker.Execute(func() error {
			return p.writer.WriteMessages(ctx, km)
		})
		if werr == nil {
			return nil
		}
		if errors.Is(werr, circuitbreaker.ErrOpen) {
			return werr
		}
		p.log.WarnContext(ctx, "publish attempt failed", "event_type", msg.Type, "key", msg.Key,
			"attempt", attempt, "error", werr)
		return retry.RetryableError(werr)
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
