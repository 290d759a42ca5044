package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vrtelolleva/platform/internal/domain"
)

var listenerTracer = otel.Tracer("messaging/listener")

// Listener consumes mirrored notifications from Kafka and hands each one,
// already decoded, to a handler. Offsets are committed only after the
// handler succeeds.
type Listener struct {
	reader  *kafka.Reader
	topic   string
	groupID string
}

type ListenerOption func(*kafka.ReaderConfig)

func WithStartOffset(offset int64) ListenerOption {
	return func(cfg *kafka.ReaderConfig) {
		cfg.StartOffset = offset
	}
}

func NewListener(brokers []string, topic, groupID string, opts ...ListenerOption) *Listener {
	cfg := kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &Listener{
		reader:  kafka.NewReader(cfg),
		topic:   topic,
		groupID: groupID,
	}
}

func (l *Listener) Listen(ctx context.Context, handler func(ctx context.Context, n domain.Notification) error) error {
	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if err := l.processMessage(ctx, msg, handler); err != nil {
			return err
		}

		if err := l.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (l *Listener) processMessage(ctx context.Context, msg kafka.Message, handler func(ctx context.Context, n domain.Notification) error) error {
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, NewMessageCarrier(&msg))

	spanCtx, span := listenerTracer.Start(parentCtx, "process "+l.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(l.topic),
			semconv.MessagingKafkaConsumerGroup(l.groupID),
			semconv.MessagingKafkaMessageOffset(int(msg.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(msg.Partition)),
			semconv.MessagingKafkaMessageKey(string(msg.Key)),
		),
	)
	defer span.End()

	var n domain.Notification
	if err := json.Unmarshal(msg.Value, &n); err != nil {
		err = fmt.Errorf("unmarshal notification: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := handler(spanCtx, n); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (l *Listener) Close() error {
	return l.reader.Close()
}
