// Package messaging mirrors the in-process notification bus onto Kafka so
// out-of-process listeners (the notifier) see the same stream the
// dashboards do. The mirror is optional: without brokers configured the
// bus alone serves all subscribers.
package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vrtelolleva/platform/internal/bus"
	"github.com/vrtelolleva/platform/internal/domain"
)

// NotificationsTopic carries every notification published on the bus,
// keyed by the recipient role so per-role consumers stay ordered.
const NotificationsTopic = "order.notifications"

var mirrorTracer = otel.Tracer("messaging/mirror")

// mirrorBuffer bounds the handoff between the synchronous bus and the
// Kafka writer. When full, notifications are dropped with a warning
// rather than stalling a publish round.
const mirrorBuffer = 256

type Mirror struct {
	writer *kafka.Writer
	topic  string
	queue  chan domain.Notification
	logger *slog.Logger
}

func NewMirror(brokers []string, topic string, logger *slog.Logger) *Mirror {
	return &Mirror{
		topic: topic,
		queue: make(chan domain.Notification, mirrorBuffer),
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           100 * time.Millisecond,
		},
		logger: logger,
	}
}

// Attach subscribes the mirror to b and returns the unsubscribe function.
// The bus handler only enqueues; Run does the actual writes.
func (m *Mirror) Attach(b *bus.Bus) func() {
	return b.Subscribe(func(n domain.Notification) {
		select {
		case m.queue <- n:
		default:
			m.logger.Warn("mirror queue full, dropping notification", "notification_id", n.ID)
		}
	})
}

// Run drains the queue until ctx is cancelled. Write failures are logged
// and the notification is lost; the bus already delivered it in-process.
func (m *Mirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-m.queue:
			if err := m.publish(ctx, n); err != nil {
				m.logger.Error("failed to mirror notification", "error", err, "notification_id", n.ID)
			}
		}
	}
}

func (m *Mirror) publish(ctx context.Context, n domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(n.Role),
		Value: data,
	}

	ctx, span := mirrorTracer.Start(ctx, "send "+m.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(m.topic),
			semconv.MessagingKafkaMessageKey(string(n.Role)),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, NewMessageCarrier(&msg))

	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (m *Mirror) Close() error {
	return m.writer.Close()
}
