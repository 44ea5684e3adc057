package logging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omni/tokenbridge-antelope/logging"
)

func TestLoggerFromContext(t *testing.T) {
	t.Parallel()

	nop := logging.NewNop()
	ctx := logging.WithLogger(context.Background(), nop)
	require.Same(t, nop, logging.LoggerFromContext(ctx))

	t.Run("should discard nop output", func(t *testing.T) {
		require.NotPanics(t, func() {
			nop.WithField("kind", "requests").Info("reconciled")
			nop.WithError(context.Canceled).Warn("rejected")
		})
	})

	t.Run("should fall back to a new logger", func(t *testing.T) {
		require.NotNil(t, logging.LoggerFromContext(context.Background()))
	})
}
