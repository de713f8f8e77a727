package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willwe-labs/willwe-indexer/internal/logger"
	"github.com/willwe-labs/willwe-indexer/pkg/config"
)

func TestServer_DisabledIsNoOp(t *testing.T) {
	server := NewServer(&config.MetricsConfig{Enabled: false}, logger.NewNopLogger())

	require.NoError(t, server.Start(context.Background()))
	require.Nil(t, server.server)
	require.NoError(t, server.Stop(context.Background()))
}

func TestServer_NilConfigIsNoOp(t *testing.T) {
	server := NewServer(nil, logger.NewNopLogger())

	require.NoError(t, server.Start(context.Background()))
	require.NoError(t, server.Stop(context.Background()))
}

func TestServer_StartAndStop(t *testing.T) {
	server := NewServer(&config.MetricsConfig{
		Enabled:       true,
		ListenAddress: "localhost:0",
		Path:          "/metrics",
	}, logger.NewNopLogger())

	ctx := context.Background()
	require.NoError(t, server.Start(ctx))
	require.NotNil(t, server.server)
	require.NoError(t, server.Stop(ctx))
}
