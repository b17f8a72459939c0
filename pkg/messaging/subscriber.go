package messaging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewReader(topic, groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

// ErrorTopic is where a consumer group parks messages once every redelivery
// attempt failed. Each group gets its own topic.
func ErrorTopic(topic, groupID string) string {
	return topic + "_" + groupID + "_error"
}

type Handler func(ctx context.Context, msg kafka.Message) error

// Subscriber gives at-least-once delivery: a message is committed only after
// the handler succeeded or the message was parked on the error topic.
// Validation failures are parked without retrying.
type Subscriber struct {
	reader     Reader
	deadLetter Writer
	retry      RetryPolicy
	log        *slog.Logger
	consumed   *prometheus.CounterVec
	tracer     trace.Tracer
	fetchPause time.Duration
}

type SubscriberOption func(*Subscriber)

func WithDeadLetter(w Writer) SubscriberOption {
	return func(s *Subscriber) { s.deadLetter = w }
}

// WithConsumedCounter counts handled messages by topic and outcome.
func WithConsumedCounter(c *prometheus.CounterVec) SubscriberOption {
	return func(s *Subscriber) { s.consumed = c }
}

func NewConsumedCounter(reg prometheus.Registerer, service string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "messages_consumed_total",
		Help:        "Consumed bus messages by topic and outcome",
		ConstLabels: prometheus.Labels{"service": service},
	}, []string{"topic", "outcome"})
	reg.MustRegister(c)
	return c
}

func NewSubscriber(r Reader, policy RetryPolicy, log *slog.Logger, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		reader:     r,
		retry:      policy,
		log:        log,
		tracer:     otel.Tracer(tracerName),
		fetchPause: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Subscriber) Run(ctx context.Context, h Handler) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.processNext(ctx, h)
	}
}

func (s *Subscriber) Close() {
	if err := s.reader.Close(); err != nil {
		s.log.Error("error closing kafka reader", "error", err)
	}
	if s.deadLetter != nil {
		if err := s.deadLetter.Close(); err != nil {
			s.log.Error("error closing dead letter writer", "error", err)
		}
	}
}

func (s *Subscriber) processNext(ctx context.Context, h Handler) {
	m, err := s.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		s.log.ErrorContext(ctx, "error fetching message", "error", err)
		s.pause(ctx)
		return
	}

	msgCtx := extractContext(ctx, m.Headers)
	msgCtx, span := s.tracer.Start(msgCtx, "consume "+m.Topic, trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	attempt := 0
	err = retry.Do(msgCtx, s.retry.backoff(), func(ctx context.Context) error {
		attempt++
		herr := h(ctx, m)
		if herr == nil || apperr.Is(herr, apperr.KindValidation) {
			return herr
		}
		s.log.WarnContext(ctx, "message handler failed", "topic", m.Topic, "offset", m.Offset,
			"attempt", attempt, "error", herr)
		return retry.RetryableError(herr)
	})

	if err != nil && ctx.Err() != nil {
		// shutting down; the uncommitted message is redelivered on restart
		return
	}

	outcome := "handled"
	if err != nil {
		span.RecordError(err)
		outcome = "rejected"
		s.log.ErrorContext(msgCtx, "message moved to error topic", "topic", m.Topic, "partition", m.Partition,
			"offset", m.Offset, "error", err)
		if dlErr := s.park(msgCtx, m, err); dlErr != nil {
			s.log.ErrorContext(msgCtx, "failed to park message", "error", dlErr)
			return
		}
	}

	if err := s.reader.CommitMessages(ctx, m); err != nil {
		s.log.ErrorContext(msgCtx, "failed to commit message", "offset", m.Offset, "error", err)
		return
	}
	if s.consumed != nil {
		s.consumed.WithLabelValues(m.Topic, outcome).Inc()
	}
}

func (s *Subscriber) park(ctx context.Context, m kafka.Message, cause error) error {
	if s.deadLetter == nil {
		return nil
	}
	headers := append([]kafka.Header{}, m.Headers...)
	headers = append(headers, kafka.Header{Key: HeaderError, Value: []byte(cause.Error())})
	return s.deadLetter.WriteMessages(ctx, kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: headers,
	})
}

func (s *Subscriber) pause(ctx context.Context) {
	t := time.NewTimer(s.fetchPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
