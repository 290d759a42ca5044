// Package lifecycle implements the order state machine: which status
// transitions are legal, what metadata they require, and which role-scoped
// notifications each one produces.
package lifecycle

import (
	"fmt"

	"github.com/vrtelolleva/platform/internal/domain"
)

// transitions is the closed reachability table. READY_FOR_PICKUP is
// reachable straight from ACCEPTED because the preparation timer counts
// from acceptance and may fire before the business ever marks the order
// IN_PREPARATION. Any non-terminal status can be cancelled.
var transitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:        {domain.OrderStatusAccepted, domain.OrderStatusRejected},
	domain.OrderStatusAccepted:       {domain.OrderStatusInPreparation, domain.OrderStatusReadyForPickup},
	domain.OrderStatusInPreparation:  {domain.OrderStatusReadyForPickup},
	domain.OrderStatusReadyForPickup: {domain.OrderStatusOnTheWay},
	domain.OrderStatusOnTheWay:       {domain.OrderStatusDelivered},
}

// CanTransition reports whether target is reachable from current.
func CanTransition(current, target domain.OrderStatus) bool {
	if target == domain.OrderStatusCancelled {
		return !current.Terminal()
	}
	for _, next := range transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// Metadata carries the side inputs a transition may require.
type Metadata struct {
	// PreparationTimeMinutes is required (positive) for ACCEPTED and
	// IN_PREPARATION.
	PreparationTimeMinutes int

	// DeliveryPerson binds the courier on ON_THE_WAY. May be omitted if
	// the order already carries one.
	DeliveryPerson *domain.DeliveryPerson

	// ActorName is the display name driving notification copy: the
	// business for acceptance and readiness, the courier for pickup and
	// delivery. Falls back to the names on the order when empty.
	ActorName string
}

func validate(current, target domain.OrderStatus, order *domain.Order, meta Metadata) error {
	if !CanTransition(current, target) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, target)
	}

	switch target {
	case domain.OrderStatusAccepted, domain.OrderStatusInPreparation:
		if meta.PreparationTimeMinutes <= 0 && order.PreparationTime <= 0 {
			return fmt.Errorf("%w: preparation time required for %s", domain.ErrPreconditionFailed, target)
		}
	case domain.OrderStatusOnTheWay:
		if meta.DeliveryPerson == nil && order.DeliveryPerson == nil {
			return domain.ErrNoDeliveryPerson
		}
	}
	return nil
}

// applyTransition mutates the order for the validated transition.
func applyTransition(order *domain.Order, target domain.OrderStatus, meta Metadata) {
	order.Status = target

	switch target {
	case domain.OrderStatusAccepted, domain.OrderStatusInPreparation:
		if meta.PreparationTimeMinutes > 0 {
			order.PreparationTime = meta.PreparationTimeMinutes
		}
	case domain.OrderStatusOnTheWay:
		if meta.DeliveryPerson != nil {
			dp := *meta.DeliveryPerson
			order.DeliveryPerson = &dp
			order.DeliveryPersonID = dp.ID
		}
	}
}

// notificationsFor derives the notifications a completed transition emits.
// It is a pure function of (new status, order, actor); the bus fills in ids
// at publish time. Statuses absent from the switch (IN_PREPARATION,
// CANCELLED) emit nothing.
func notificationsFor(next domain.OrderStatus, order *domain.Order, actor string) []domain.Notification {
	businessName := order.BusinessName
	courierName := actor
	if courierName == "" && order.DeliveryPerson != nil {
		courierName = order.DeliveryPerson.Name
	}

	switch next {
	case domain.OrderStatusAccepted:
		if actor == "" {
			actor = businessName
		}
		return []domain.Notification{{
			Role:    domain.RoleClient,
			OrderID: order.ID,
			Order:   order,
			Title:   "Pedido Confirmado",
			Message: fmt.Sprintf("¡%s ha aceptado tu pedido y lo está preparando! Tiempo estimado: %d min.", actor, order.PreparationTime),
			Type:    domain.NotificationSuccess,
			Icon:    "check",
		}}

	case domain.OrderStatusRejected:
		if actor == "" {
			actor = businessName
		}
		return []domain.Notification{{
			Role:    domain.RoleClient,
			OrderID: order.ID,
			Order:   order,
			Title:   "Pedido Rechazado",
			Message: fmt.Sprintf("Lo sentimos, %s no pudo aceptar tu pedido en este momento.", actor),
			Type:    domain.NotificationError,
			Icon:    "x",
		}}

	case domain.OrderStatusReadyForPickup:
		if actor == "" {
			actor = businessName
		}
		return []domain.Notification{{
			Role:    domain.RoleDelivery,
			OrderID: order.ID,
			Order:   order,
			Title:   "Pedido Listo para Recoger",
			Message: fmt.Sprintf("El pedido #%s de %s está listo.", order.ShortID(), actor),
			Type:    domain.NotificationInfo,
			Icon:    "package",
		}, {
			Role:    domain.RoleClient,
			OrderID: order.ID,
			Order:   order,
			Title:   "¡Tu pedido está listo!",
			Message: fmt.Sprintf("Tu pedido de %s está listo y esperando a un repartidor.", actor),
			Type:    domain.NotificationInfo,
			Icon:    "package",
		}}

	case domain.OrderStatusOnTheWay:
		return []domain.Notification{{
			Role:    domain.RoleClient,
			OrderID: order.ID,
			Order:   order,
			Title:   "¡Tu pedido está en camino!",
			Message: fmt.Sprintf("%s ha recogido tu pedido de %s.", courierName, businessName),
			Type:    domain.NotificationInfo,
			Icon:    "bike",
		}, {
			Role:    domain.RoleBusiness,
			OrderID: order.ID,
			Order:   order,
			Title:   "Pedido Recogido",
			Message: fmt.Sprintf("El repartidor %s ha recogido el pedido #%s.", courierName, order.ShortID()),
			Type:    domain.NotificationInfo,
			Icon:    "bike",
		}}

	case domain.OrderStatusDelivered:
		return []domain.Notification{{
			Role:    domain.RoleClient,
			OrderID: order.ID,
			Order:   order,
			Title:   "¡Pedido Entregado!",
			Message: fmt.Sprintf("Tu pedido de %s ha sido entregado por %s. ¡Buen provecho!", businessName, courierName),
			Type:    domain.NotificationSuccess,
			Icon:    "package-check",
		}, {
			Role:    domain.RoleBusiness,
			OrderID: order.ID,
			Order:   order,
			Title:   "¡Pedido Entregado!",
			Message: fmt.Sprintf("El pedido #%s ha sido entregado.", order.ShortID()),
			Type:    domain.NotificationSuccess,
			Icon:    "package-check",
		}}
	}

	return nil
}
