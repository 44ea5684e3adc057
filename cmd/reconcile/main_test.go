package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omni/tokenbridge-antelope/bridge"
	"github.com/omni/tokenbridge-antelope/config"
	"github.com/omni/tokenbridge-antelope/logging"
)

func TestRun(t *testing.T) {
	t.Parallel()

	cfg, err := config.ReadConfig([]byte("contract: token.brdg\nevm:\n  chain_id: 41\n"))
	require.NoError(t, err)

	t.Run("should fail when reconciliation fails", func(t *testing.T) {
		err := run(context.Background(), cfg, logging.NewNop())
		require.ErrorIs(t, err, bridge.ErrNotInitialized)
	})
}
