package domain

import "errors"

var (
	// ErrInvalidTransition means the requested status is not reachable
	// from the order's current status. Never retried automatically.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrPreconditionFailed means required transition metadata is missing,
	// such as a preparation time for acceptance.
	ErrPreconditionFailed = errors.New("transition precondition failed")

	// ErrNoDeliveryPerson means an ON_THE_WAY transition was attempted
	// without binding a delivery person.
	ErrNoDeliveryPerson = errors.New("no delivery person assigned")

	// ErrStatusConflict means a compare-and-swap store update observed a
	// status other than the expected one (a concurrent transition won).
	ErrStatusConflict = errors.New("order status changed concurrently")

	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrAuthFailure    = errors.New("invalid credentials")
)
