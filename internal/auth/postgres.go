package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vrtelolleva/platform/internal/domain"
)

const pgUniqueViolation = "23505"

type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	var lat, lng *float64
	if user.Location != nil {
		lat, lng = &user.Location.Lat, &user.Location.Lng
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, role, email, phone, lat, lng, is_active, password_hash)
		VALUES ($1, $2, $3, lower($4), NULLIF($5, ''), $6, $7, $8, $9)
	`, user.ID, user.Name, user.Role, user.Email, user.Phone, lat, lng, user.IsActive, user.PasswordHash)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUser(ctx, `WHERE email = lower($1)`, email)
}

func (s *PostgresUserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *PostgresUserStore) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	user := &domain.User{}
	var lat, lng sql.NullFloat64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, role, email, COALESCE(phone, ''), lat, lng, is_active, password_hash
		FROM users `+where, arg,
	).Scan(&user.ID, &user.Name, &user.Role, &user.Email, &user.Phone,
		&lat, &lng, &user.IsActive, &user.PasswordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if lat.Valid && lng.Valid {
		user.Location = &domain.Location{Lat: lat.Float64, Lng: lng.Float64}
	}
	return user, nil
}
