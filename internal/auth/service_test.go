package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/vrtelolleva/platform/internal/domain"
)

func newService() (*Service, *MemoryUserStore) {
	store := NewMemoryUserStore()
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("registers and hashes the password", func(t *testing.T) {
		svc, store := newService()

		profile, err := svc.Register(ctx, "Ana Cliente", "Ana@Cliente.com", "password123", domain.RoleClient)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if profile.ID == "" {
			t.Error("expected generated user id")
		}
		if profile.Email != "ana@cliente.com" {
			t.Errorf("expected normalized email, got %s", profile.Email)
		}
		if !profile.IsActive {
			t.Error("new accounts start active")
		}

		user, err := store.GetByEmail(ctx, "ana@cliente.com")
		if err != nil {
			t.Fatalf("stored user not found: %v", err)
		}
		if user.PasswordHash == "" || user.PasswordHash == "password123" {
			t.Error("password must be stored as a hash, never plaintext")
		}
	})

	t.Run("rejects duplicate email regardless of case", func(t *testing.T) {
		svc, _ := newService()
		if _, err := svc.Register(ctx, "Ana", "ana@cliente.com", "password123", domain.RoleClient); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := svc.Register(ctx, "Otra Ana", "ANA@cliente.com", "otherpass", domain.RoleClient)
		if !errors.Is(err, domain.ErrDuplicateEmail) {
			t.Fatalf("expected ErrDuplicateEmail, got %v", err)
		}
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		svc, _ := newService()
		_, err := svc.Register(ctx, "", "ana@cliente.com", "password123", domain.RoleClient)
		if !errors.Is(err, domain.ErrPreconditionFailed) {
			t.Fatalf("expected ErrPreconditionFailed, got %v", err)
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts correct credentials", func(t *testing.T) {
		svc, _ := newService()
		if _, err := svc.Register(ctx, "Pedro Repartidor", "pedro@repartidor.com", "password123", domain.RoleDelivery); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		profile, err := svc.Login(ctx, "pedro@repartidor.com", "password123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if profile.Role != domain.RoleDelivery {
			t.Errorf("expected DELIVERY role, got %s", profile.Role)
		}
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		svc, _ := newService()
		if _, err := svc.Register(ctx, "Ana", "ana@cliente.com", "password123", domain.RoleClient); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := svc.Login(ctx, "ana@cliente.com", "wrong")
		if !errors.Is(err, domain.ErrAuthFailure) {
			t.Fatalf("expected ErrAuthFailure, got %v", err)
		}
	})

	t.Run("rejects unknown email with the same error", func(t *testing.T) {
		svc, _ := newService()
		_, err := svc.Login(ctx, "nobody@example.com", "password123")
		if !errors.Is(err, domain.ErrAuthFailure) {
			t.Fatalf("expected ErrAuthFailure, got %v", err)
		}
	})

	t.Run("rejects deactivated accounts", func(t *testing.T) {
		svc, store := newService()
		if _, err := svc.Register(ctx, "Juan Inactivo", "juan@inactivo.com", "password123", domain.RoleClient); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		user, _ := store.GetByEmail(ctx, "juan@inactivo.com")
		user.IsActive = false
		store.users[user.ID] = *user

		_, err := svc.Login(ctx, "juan@inactivo.com", "password123")
		if !errors.Is(err, domain.ErrAuthFailure) {
			t.Fatalf("expected ErrAuthFailure, got %v", err)
		}
	})
}
