package client_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cqserve/cqserve/internal/pkg/client"
	"github.com/cqserve/cqserve/internal/pkg/server"
)

func startTestServer(t *testing.T, addr string) func() {
	t.Helper()
	srv, err := server.NewServer(server.WithListenAddr(addr))
	require.NoError(t, err)
	built, err := srv.Start()
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	return func() { built.Shutdown() }
}

func TestClientSayHello(t *testing.T) {
	stop := startTestServer(t, "localhost:18444")
	defer stop()

	c, err := client.NewClient(client.WithServerPort(18444))
	require.NoError(t, err)

	msg, err := c.SayHello("cqserve")
	require.NoError(t, err)
	require.Equal(t, "Hello, cqserve", msg)

	msg, err = c.SayHello("")
	require.NoError(t, err)
	require.Equal(t, "Hello, world", msg)
}

func TestClientArithmetic(t *testing.T) {
	stop := startTestServer(t, "localhost:18445")
	defer stop()

	c, err := client.NewClient(client.WithServerPort(18445))
	require.NoError(t, err)

	sum, err := c.Sum(2, 3)
	require.NoError(t, err)
	require.EqualValues(t, 5, sum)

	product, err := c.Product(2, 3)
	require.NoError(t, err)
	require.EqualValues(t, 6, product)

	_, err = c.Quotient(1, 0)
	require.Error(t, err)
}

func TestClientRunSequence(t *testing.T) {
	stop := startTestServer(t, "localhost:18446")
	defer stop()

	c, err := client.NewClient(
		client.WithServerPort(18446),
		client.WithSequenceLength(6),
	)
	require.NoError(t, err)

	seq, err := c.RunSequence(uuid.NewString())
	require.NoError(t, err)
	require.Len(t, seq, 6)
}
