package apps_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cqserve/cqserve/internal/app/apps"
	"github.com/cqserve/cqserve/internal/app/cfg"
)

func TestClientServerApp(t *testing.T) {
	port := cfg.NewPortCfg(18443)

	s, err := apps.NewServerApp(port)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serverErrCh := make(chan error, 1)
	go func() { serverErrCh <- s.Run(ctx, nil) }()
	time.Sleep(50 * time.Millisecond)

	c, err := apps.NewClientApp(port)
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background(), nil))

	cancel()
	require.NoError(t, <-serverErrCh)
}
