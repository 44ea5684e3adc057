package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConcurrentUpdate is returned when postgres aborts a serializable
	// transaction because of a concurrent one.
	ErrConcurrentUpdate = errors.New("concurrent update")
)

func IgnoreErrNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// SQLState returns the error code of a pgx or lib/pq error, or "".
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func IsSerializationFailure(err error) bool {
	switch SQLState(err) {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return true
	default:
		return false
	}
}

func classify(err error) error {
	if err != nil && IsSerializationFailure(err) && !errors.Is(err, ErrConcurrentUpdate) {
		return fmt.Errorf("%w: %s", ErrConcurrentUpdate, err)
	}
	return err
}
