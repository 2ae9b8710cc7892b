package proc

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlive(t *testing.T) {
	ctx := context.Background()

	require.True(t, Alive(ctx, int32(os.Getpid()))) //nolint:gosec
	require.False(t, Alive(ctx, 0))
	require.False(t, Alive(ctx, -1))
}

func TestName(t *testing.T) {
	require.NotEmpty(t, Name(context.Background(), int32(os.Getpid()))) //nolint:gosec
}
