package cq_test

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cqserve/cqserve/cq"
)

func TestGenericStreamPublishAndShutdownSentinel(t *testing.T) {
	builder := cq.NewBuilder().AddListeningPort("127.0.0.1:19301")
	built, err := builder.BuildAndStart()
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	client := cq.NewClient("127.0.0.1:19301")
	events := make(chan string, 16)
	go func() {
		_ = client.SubscribeGeneric("/stream", func(data string) {
			events <- data
		})
	}()

	time.Sleep(10 * time.Millisecond)
	built.Publish([]byte("1"))
	built.Publish([]byte("2"))

	require.Equal(t, "1", <-events)
	require.Equal(t, "2", <-events)

	built.Shutdown()
	require.Equal(t, "! ", <-events)
}

func TestGenericIndexEchoesMethodAndContentType(t *testing.T) {
	builder := cq.NewBuilder().AddListeningPort("127.0.0.1:19302")
	built, err := builder.BuildAndStart()
	require.NoError(t, err)
	defer built.Shutdown()
	time.Sleep(10 * time.Millisecond)

	conn, err := net.Dial("tcp", "127.0.0.1:19302")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /anything HTTP/1.1\r\nHost: cqserve\r\n\r\n"))
	require.NoError(t, err)

	br := bufio.NewReader(conn)
	statusLine, err := br.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, statusLine, "200")

	var headers []string
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
		headers = append(headers, line)
	}
	require.Contains(t, strings.Join(headers, ""), "Content-Type: text/html; charset=UTF-8")

	body, err := io.ReadAll(br)
	require.NoError(t, err)
	require.Contains(t, string(body), "Method: /anything. Count:")
}
