package store

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"learnportal-backend/internal/password"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	return New(db, password.NewHasher(bcrypt.MinCost)), mock
}

func userColumns() []string {
	return []string{"id", "email", "password_hash", "full_name", "phone_number", "created_at"}
}

func TestRegisterInsertsOneRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM users WHERE email").
		WithArgs("a@x.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("a@x.com", sqlmock.AnyArg(), "Ada", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.Register(context.Background(), "a@x.com", "secret1", "Ada", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterNormalizesEmail(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM users WHERE email").
		WithArgs("a@x.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("a@x.com", sqlmock.AnyArg(), "Ada", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.Register(context.Background(), "  A@X.Com ", "secret1", "Ada", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmailPrecheck(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM users WHERE email").
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	err := s.Register(context.Background(), "a@x.com", "other2", "Bea", nil)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	// No insert was attempted.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRaceLostUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM users WHERE email").
		WithArgs("a@x.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("a@x.com", sqlmock.AnyArg(), "Ada", nil).
		WillReturnError(&pq.Error{Code: "23505"})

	err := s.Register(context.Background(), "a@x.com", "secret1", "Ada", nil)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegisterConnectionError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM users WHERE email").
		WillReturnError(&net.OpError{Op: "dial", Err: errors.New("connection refused")})

	err := s.Register(context.Background(), "a@x.com", "secret1", "Ada", nil)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestRegisterTimeoutMapsToConnectionError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM users WHERE email").
		WillReturnError(context.DeadlineExceeded)

	err := s.Register(context.Background(), "a@x.com", "secret1", "Ada", nil)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestAuthenticateSuccessStripsHash(t *testing.T) {
	s, mock := newMockStore(t)

	hash, err := s.hasher.Hash("secret1")
	require.NoError(t, err)

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, email, password_hash, full_name, phone_number, created_at").
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(1, "a@x.com", hash, "Ada", nil, created))

	view, err := s.Authenticate(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "a@x.com", view.Email)
	assert.Equal(t, "Ada", view.FullName)
	assert.Nil(t, view.PhoneNumber)
	assert.Equal(t, created, view.CreatedAt)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	s, mock := newMockStore(t)

	hash, err := s.hasher.Hash("secret1")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, email, password_hash, full_name, phone_number, created_at").
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(1, "a@x.com", hash, "Ada", nil, time.Now()))

	view, err := s.Authenticate(context.Background(), "a@x.com", "wrong")
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, email, password_hash, full_name, phone_number, created_at").
		WithArgs("nobody@x.com").
		WillReturnError(sql.ErrNoRows)

	// Same observable shape as a wrong password.
	view, err := s.Authenticate(context.Background(), "nobody@x.com", "anything")
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestGetByEmail(t *testing.T) {
	s, mock := newMockStore(t)

	phone := "+1-555-0100"
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, email, full_name, phone_number, created_at").
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "phone_number", "created_at"}).
			AddRow(1, "a@x.com", "Ada", phone, created))

	view, err := s.GetByEmail(context.Background(), "A@X.com")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "Ada", view.FullName)
	require.NotNil(t, view.PhoneNumber)
	assert.Equal(t, phone, *view.PhoneNumber)
}

func TestGetByEmailNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, email, full_name, phone_number, created_at").
		WithArgs("nobody@x.com").
		WillReturnError(sql.ErrNoRows)

	view, err := s.GetByEmail(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestEmbeddedSchemaMigration(t *testing.T) {
	up, err := migrationsFS.ReadFile("migrations/0001_create_users.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS users")
	assert.Contains(t, string(up), "email TEXT UNIQUE NOT NULL")
}
