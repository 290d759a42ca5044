// Package auth handles registration and login. Credentials are stored as
// bcrypt hashes; the plaintext never touches the store and profiles never
// carry the hash out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vrtelolleva/platform/internal/domain"
)

type UserStore interface {
	// CreateUser persists a new user; domain.ErrDuplicateEmail if the
	// email is already registered (case-insensitive).
	CreateUser(ctx context.Context, user *domain.User) error

	// GetByEmail returns domain.ErrNotFound for unknown emails.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type Service struct {
	users  UserStore
	logger *slog.Logger
}

func NewService(users UserStore, logger *slog.Logger) *Service {
	return &Service{users: users, logger: logger}
}

func (s *Service) Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", domain.ErrPreconditionFailed)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Profile: domain.Profile{
			Name:     name,
			Role:     role,
			Email:    email,
			IsActive: true,
		},
		PasswordHash: string(hash),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", role)
	profile := user.Profile
	return &profile, nil
}

// Login verifies the credentials. Unknown emails, wrong passwords and
// deactivated accounts all come back as ErrAuthFailure so the response
// does not reveal which part failed.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAuthFailure
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrAuthFailure
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%w: account deactivated", domain.ErrAuthFailure)
	}

	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	profile := user.Profile
	return &profile, nil
}
