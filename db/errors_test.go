package db_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/omni/tokenbridge-antelope/db"
)

func TestIgnoreErrNotFound(t *testing.T) {
	t.Parallel()

	require.NoError(t, db.IgnoreErrNotFound(nil))
	require.NoError(t, db.IgnoreErrNotFound(fmt.Errorf("wrapped: %w", db.ErrNotFound)))
	errBoom := errors.New("boom")
	require.ErrorIs(t, db.IgnoreErrNotFound(errBoom), errBoom)
}

func TestIsSerializationFailure(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		Name     string
		Err      error
		State    string
		Expected bool
	}{
		{Name: "pgx serialization", Err: &pgconn.PgError{Code: "40001"}, State: "40001", Expected: true},
		{Name: "pgx deadlock", Err: fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"}), State: "40P01", Expected: true},
		{Name: "pq serialization", Err: &pq.Error{Code: "40001"}, State: "40001", Expected: true},
		{Name: "pq unique violation", Err: &pq.Error{Code: "23505"}, State: "23505", Expected: false},
		{Name: "plain error", Err: errors.New("boom"), State: "", Expected: false},
	} {
		t.Logf("Running sub-test %q", test.Name)
		require.Equal(t, test.State, db.SQLState(test.Err), "Failed %s", test.Name)
		require.Equal(t, test.Expected, db.IsSerializationFailure(test.Err), "Failed %s", test.Name)
	}
}
