package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

var (
	// ErrConnection means the backend is unreachable or timed out. The
	// next user action may succeed; the page never crashes over it.
	ErrConnection = errors.New("storage connection failed")

	// ErrDuplicateEmail means the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)

const uniqueViolation = pq.ErrorCode("23505")

// translate maps raw driver errors to the store's taxonomy so no backend
// error type leaks past this package.
func translate(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s: %v", ErrConnection, op, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
