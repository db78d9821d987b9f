package telemetry_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/sade-booster/internal/telemetry"
	"github.com/stretchr/testify/require"
)

func TestSetup_NoopWithoutEndpoint(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), "test-service", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, shutdown(ctx))
}

func TestSetup_WithEndpoint(t *testing.T) {
	// Non-routable address, nothing is exported because no spans are recorded
	shutdown, err := telemetry.Setup(context.Background(), "test-service", "http://192.0.2.1:4318")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
