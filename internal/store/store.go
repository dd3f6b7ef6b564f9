// Package store owns the users table and its access operations.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"learnportal-backend/internal/models"
	"learnportal-backend/internal/password"
)

const queryTimeout = 5 * time.Second

type Store struct {
	db     *sqlx.DB
	hasher *password.Hasher
}

func New(db *sqlx.DB, hasher *password.Hasher) *Store {
	return &Store{db: db, hasher: hasher}
}

// NormalizeEmail fixes the uniqueness policy: comparison is
// case-insensitive, so emails are trimmed and lowercased before every
// lookup and insert.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates exactly one new row, or none on any failure. The
// pre-check keeps the common duplicate case off the insert path; the
// unique constraint on email is the authoritative guard, and a race-lost
// insert maps to ErrDuplicateEmail as well.
func (s *Store) Register(ctx context.Context, email, plaintext, fullName string, phoneNumber *string) error {
	email = NormalizeEmail(email)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var existing int
	err := s.db.GetContext(ctx, &existing, `SELECT id FROM users WHERE email = $1`, email)
	if err == nil {
		return ErrDuplicateEmail
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return translate("check existing email", err)
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	query := `
		INSERT INTO users (email, password_hash, full_name, phone_number)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, email, hash, fullName, phoneNumber); err != nil {
		return translate("insert user", err)
	}

	return nil
}

// Authenticate returns the stripped view on a password match. An unknown
// email and a wrong password both come back as (nil, nil) so callers
// cannot distinguish them. Timing between the two cases is not equalized,
// matching the reference behavior; callers relying on this for
// enumeration resistance should know the lookup miss returns faster.
func (s *Store) Authenticate(ctx context.Context, email, plaintext string) (*models.UserView, error) {
	email = NormalizeEmail(email)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, email, password_hash, full_name, phone_number, created_at
		FROM users
		WHERE email = $1
	`
	var user models.User
	if err := s.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("look up user", err)
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		return nil, nil
	}

	return user.View(), nil
}

// GetByEmail returns the stripped view without requiring a password,
// used to refresh a logged-in profile. (nil, nil) when no row matches.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.UserView, error) {
	email = NormalizeEmail(email)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, email, full_name, phone_number, created_at
		FROM users
		WHERE email = $1
	`
	var view models.UserView
	if err := s.db.QueryRowContext(ctx, query, email).Scan(
		&view.ID,
		&view.Email,
		&view.FullName,
		&view.PhoneNumber,
		&view.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("fetch user", err)
	}

	return &view, nil
}

func (s *Store) Ping() error {
	return s.db.Ping()
}
