package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counters holds the domain-level counters exported through the
// Prometheus meter provider. All record methods are safe on a nil
// receiver so components can run without telemetry wired.
type Counters struct {
	transitions   metric.Int64Counter
	notifications metric.Int64Counter
	messages      metric.Int64Counter
}

func NewCounters() (*Counters, error) {
	meter := otel.Meter("vrtelolleva/platform")

	transitions, err := meter.Int64Counter("order_transitions_total",
		metric.WithDescription("Completed order status transitions"))
	if err != nil {
		return nil, err
	}

	notifications, err := meter.Int64Counter("notifications_published_total",
		metric.WithDescription("Notifications published on the in-process bus"))
	if err != nil {
		return nil, err
	}

	messages, err := meter.Int64Counter("quick_messages_sent_total",
		metric.WithDescription("Quick messages appended to orders"))
	if err != nil {
		return nil, err
	}

	return &Counters{
		transitions:   transitions,
		notifications: notifications,
		messages:      messages,
	}, nil
}

func (c *Counters) RecordTransition(ctx context.Context, from, to string) {
	if c == nil {
		return
	}
	c.transitions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("from", from), attribute.String("to", to)))
}

func (c *Counters) RecordNotification(ctx context.Context, role string) {
	if c == nil {
		return
	}
	c.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
}

func (c *Counters) RecordMessage(ctx context.Context) {
	if c == nil {
		return
	}
	c.messages.Add(ctx, 1)
}
