package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vrtelolleva/platform/internal/bus"
	"github.com/vrtelolleva/platform/internal/domain"
	"github.com/vrtelolleva/platform/internal/store"
	"github.com/vrtelolleva/platform/internal/telemetry"
)

var tracer = otel.Tracer("lifecycle")

// Service executes order transitions: it validates them against the state
// machine, writes the result through the store's compare-and-swap update,
// and only then publishes the derived notifications. Store write and
// notification emission form one logical unit: a failed write emits
// nothing.
type Service struct {
	store    store.OrderStore
	bus      *bus.Bus
	sched    *scheduler
	counters *telemetry.Counters
	logger   *slog.Logger

	// prepUnit converts PreparationTime to a duration. One minute in
	// production; tests shrink it.
	prepUnit time.Duration
}

type Option func(*Service)

func WithPreparationUnit(d time.Duration) Option {
	return func(s *Service) { s.prepUnit = d }
}

func NewService(st store.OrderStore, b *bus.Bus, counters *telemetry.Counters, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    st,
		bus:      b,
		sched:    newScheduler(),
		counters: counters,
		logger:   logger,
		prepUnit: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close cancels all pending deferred transitions.
func (s *Service) Close() {
	s.sched.stop()
}

// CreateOrder persists a new PENDING order with a server-derived total and
// announces it to the business dashboard.
func (s *Service) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	order.Status = domain.OrderStatusPending
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.publish(ctx, domain.Notification{
		Role:    domain.RoleBusiness,
		OrderID: order.ID,
		Order:   order,
		Title:   "¡Nuevo Pedido!",
		Message: fmt.Sprintf("Has recibido un nuevo pedido #%s.", order.ShortID()),
		Type:    domain.NotificationNewOrder,
		Icon:    "shopping-bag",
	})

	s.logger.Info("order created", "order_id", order.ID, "business_id", order.BusinessID, "total_price", order.TotalPrice)
	return order, nil
}

// Transition moves the order to target if the state machine allows it.
// On success it returns the updated order after publishing the derived
// notifications, exactly one per role listed for the transition.
func (s *Service) Transition(ctx context.Context, orderID string, target domain.OrderStatus, meta Metadata) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.transition")
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.target_status", string(target)),
	)
	defer span.End()

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	prev := order.Status

	if err := validate(prev, target, order, meta); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	updated, err := s.store.UpdateStatus(ctx, orderID, prev, func(o *domain.Order) {
		applyTransition(o, target, meta)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.counters.RecordTransition(ctx, string(prev), string(target))
	s.logger.Info("order transitioned", "order_id", orderID, "from", prev, "to", target)

	switch target {
	case domain.OrderStatusAccepted, domain.OrderStatusInPreparation:
		s.scheduleAutoReady(updated)
	default:
		// Leaving the preparation phase by any other path invalidates the
		// deferred ready-for-pickup task.
		s.sched.cancel(orderID)
	}

	for _, n := range notificationsFor(target, updated, meta.ActorName) {
		s.publish(ctx, n)
	}

	return updated, nil
}

// scheduleAutoReady arms the deferred READY_FOR_PICKUP transition. The
// timer counts from acceptance; re-accepting or entering IN_PREPARATION
// re-arms it.
func (s *Service) scheduleAutoReady(order *domain.Order) {
	if order.PreparationTime <= 0 {
		return
	}

	orderID := order.ID
	s.sched.schedule(orderID, time.Duration(order.PreparationTime)*s.prepUnit, func() {
		s.autoReady(orderID)
	})
}

// autoReady is the deferred transition body. The order may have been
// cancelled, rejected, or marked ready by hand since the timer was armed,
// so it re-validates the current status and silently no-ops when the
// transition is no longer applicable.
func (s *Service) autoReady(orderID string) {
	ctx := context.Background()

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error("deferred ready-for-pickup lookup failed", "error", err, "order_id", orderID)
		return
	}

	if !CanTransition(order.Status, domain.OrderStatusReadyForPickup) {
		s.logger.Debug("deferred ready-for-pickup skipped", "order_id", orderID, "status", order.Status)
		return
	}

	_, err = s.Transition(ctx, orderID, domain.OrderStatusReadyForPickup, Metadata{})
	if err != nil && !errors.Is(err, domain.ErrStatusConflict) && !errors.Is(err, domain.ErrInvalidTransition) {
		s.logger.Error("deferred ready-for-pickup failed", "error", err, "order_id", orderID)
	}
}

// MarkRated flags a delivered order as rated and thanks the client.
func (s *Service) MarkRated(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusDelivered {
		return nil, fmt.Errorf("%w: only delivered orders can be rated", domain.ErrPreconditionFailed)
	}

	updated, err := s.store.Update(ctx, orderID, func(o *domain.Order) {
		o.IsRated = true
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.Notification{
		Role:    domain.RoleClient,
		OrderID: orderID,
		Title:   "¡Gracias por tu opinión!",
		Message: "Tu calificación ha sido registrada.",
		Type:    domain.NotificationSuccess,
		Icon:    "thumbs-up",
	})
	return updated, nil
}

func (s *Service) publish(ctx context.Context, n domain.Notification) {
	s.bus.Publish(n)
	s.counters.RecordNotification(ctx, string(n.Role))
}
