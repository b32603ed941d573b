package cq_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/cqserve/cqserve/cq"
)

type echoRequest struct{ Text string }
type echoReply struct{ Text string }

func startEchoServer(t *testing.T, addr string) (*cq.Server, func()) {
	t.Helper()
	builder := cq.NewBuilder().AddListeningPort(addr)
	srv := builder.Server()

	cq.Unary(srv, "Echo", func(_ context.Context, _ *cq.ServerContext, req *echoRequest) (*echoReply, error) {
		return &echoReply{Text: req.Text}, nil
	})

	cq.Unary(srv, "Fail", func(_ context.Context, _ *cq.ServerContext, _ *echoRequest) (*echoReply, error) {
		return nil, cq.NewStatusError(codes.InvalidArgument, "always fails")
	})

	cq.ClientStream(srv, "Concat", func(_ context.Context, _ *cq.ServerContext, r *cq.Reader[echoRequest]) (*echoReply, error) {
		var b strings.Builder
		for {
			req, err := r.Recv()
			if err != nil {
				break
			}
			b.WriteString(req.Text)
		}
		return &echoReply{Text: b.String()}, nil
	})

	cq.ServerStream(srv, "Split", func(_ context.Context, _ *cq.ServerContext, req *echoRequest, w *cq.Writer[echoReply]) error {
		for _, part := range strings.Fields(req.Text) {
			if err := w.Send(&echoReply{Text: part}); err != nil {
				return err
			}
		}
		return nil
	})

	cq.BidiStream(srv, "Upper", func(_ context.Context, _ *cq.ServerContext, rw *cq.ReaderWriter[echoRequest, echoReply]) error {
		for {
			req, err := rw.Recv()
			if err != nil {
				return nil
			}
			if err := rw.Send(&echoReply{Text: strings.ToUpper(req.Text)}); err != nil {
				return err
			}
		}
	})

	cq.StreamedUnary(srv, "StreamedEcho", func(_ context.Context, _ *cq.ServerContext, rw *cq.ReaderWriter[echoRequest, echoReply]) error {
		req, err := rw.Recv()
		if err != nil {
			return err
		}
		return rw.Send(&echoReply{Text: req.Text})
	})

	cq.StreamedUnary(srv, "StreamedSilent", func(_ context.Context, _ *cq.ServerContext, rw *cq.ReaderWriter[echoRequest, echoReply]) error {
		_, err := rw.Recv()
		return err
	})

	cq.SplitServerStream(srv, "Announce", func(_ context.Context, _ *cq.ServerContext, w *cq.Writer[echoReply]) error {
		return w.Send(&echoReply{Text: "announced"})
	})

	built, err := builder.BuildAndStart()
	require.NoError(t, err)
	return built, func() { built.Shutdown() }
}

func TestUnaryEcho(t *testing.T) {
	_, stop := startEchoServer(t, "127.0.0.1:19201")
	defer stop()
	time.Sleep(10 * time.Millisecond)

	client := cq.NewClient("127.0.0.1:19201")
	var rsp echoReply
	require.NoError(t, client.Invoke("Echo", &echoRequest{Text: "hi"}, &rsp, nil))
	require.Equal(t, "hi", rsp.Text)
}

func TestUnaryAppErrorSurfacesStatus(t *testing.T) {
	_, stop := startEchoServer(t, "127.0.0.1:19202")
	defer stop()
	time.Sleep(10 * time.Millisecond)

	client := cq.NewClient("127.0.0.1:19202")
	var rsp echoReply
	err := client.Invoke("Fail", &echoRequest{Text: "x"}, &rsp, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "always fails")
}

func TestUnaryUnknownMethod(t *testing.T) {
	_, stop := startEchoServer(t, "127.0.0.1:19203")
	defer stop()
	time.Sleep(10 * time.Millisecond)

	client := cq.NewClient("127.0.0.1:19203")
	var rsp echoReply
	err := client.Invoke("NoSuchMethod", &echoRequest{Text: "x"}, &rsp, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unimplemented")
}

func TestClientStreamConcat(t *testing.T) {
	_, stop := startEchoServer(t, "127.0.0.1:19204")
	defer stop()
	time.Sleep(10 * time.Millisecond)

	client := cq.NewClient("127.0.0.1:19204")
	stream, err := client.NewClientStream("Concat", nil)
	require.NoError(t, err)
	require.NoError(t, stream.Send(&echoRequest{Text: "a"}))
	require.NoError(t, stream.Send(&echoRequest{Text: "b"}))
	require.NoError(t, stream.Send(&echoRequest{Text: "c"}))

	var rsp echoReply
	require.NoError(t, stream.CloseAndRecv(&rsp))
	require.Equal(t, "abc", rsp.Text)
}

func TestServerStreamSplit(t *testing.T) {
	_, stop := startEchoServer(t, "127.0.0.1:19205")
	defer stop()
	time.Sleep(10 * time.Millisecond)

	client := cq.NewClient("127.0.0.1:19205")
	stream, err := client.NewServerStream("Split", &echoRequest{Text: "one two three"}, nil)
	require.NoError(t, err)

	var got []string
	for {
		var item echoReply
		done, err := stream.Recv(&item)
		if done {
			require.NoError(t, err)
			break
		}
		got = append(got, item.Text)
	}
	require.Equal(t, []string{"one", "two", "three"}, got)
}

func TestBidiStreamUpper(t *testing.T) {
	_, stop := startEchoServer(t, "127.0.0.1:19206")
	defer stop()
	time.Sleep(10 * time.Millisecond)

	client := cq.NewClient("127.0.0.1:19206")
	stream, err := client.NewClientStream("Upper", nil)
	require.NoError(t, err)

	require.NoError(t, stream.Send(&echoRequest{Text: "ab"}))
	var rsp1 echoReply
	require.NoError(t, stream.Recv(&rsp1))
	require.Equal(t, "AB", rsp1.Text)

	require.NoError(t, stream.Send(&echoRequest{Text: "cd"}))
	var rsp2 echoReply
	require.NoError(t, stream.Recv(&rsp2))
	require.Equal(t, "CD", rsp2.Text)

	require.NoError(t, stream.Close())
}

func TestStreamedUnaryEcho(t *testing.T) {
	_, stop := startEchoServer(t, "127.0.0.1:19207")
	defer stop()
	time.Sleep(10 * time.Millisecond)

	client := cq.NewClient("127.0.0.1:19207")
	var rsp echoReply
	require.NoError(t, client.Invoke("StreamedEcho", &echoRequest{Text: "stream"}, &rsp, nil))
	require.Equal(t, "stream", rsp.Text)
}

func TestStreamedUnarySilentRewritesToInternal(t *testing.T) {
	_, stop := startEchoServer(t, "127.0.0.1:19208")
	defer stop()
	time.Sleep(10 * time.Millisecond)

	client := cq.NewClient("127.0.0.1:19208")
	var rsp echoReply
	err := client.Invoke("StreamedSilent", &echoRequest{Text: "x"}, &rsp, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "did not provide response message")
}

func TestUnaryMethodSlotStaysArmedAcrossManyCalls(t *testing.T) {
	_, stop := startEchoServer(t, "127.0.0.1:19210")
	defer stop()
	time.Sleep(10 * time.Millisecond)

	client := cq.NewClient("127.0.0.1:19210")
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var rsp echoReply
			text := fmt.Sprintf("call-%d", i)
			if err := client.Invoke("Echo", &echoRequest{Text: text}, &rsp, nil); err != nil {
				errs <- err
				return
			}
			if rsp.Text != text {
				errs <- fmt.Errorf("got %q, want %q", rsp.Text, text)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestSplitServerStreamAnnounce(t *testing.T) {
	_, stop := startEchoServer(t, "127.0.0.1:19209")
	defer stop()
	time.Sleep(10 * time.Millisecond)

	client := cq.NewClient("127.0.0.1:19209")
	stream, err := client.NewServerStream("Announce", &echoRequest{Text: "ignored"}, nil)
	require.NoError(t, err)

	var item echoReply
	done, err := stream.Recv(&item)
	require.False(t, done)
	require.NoError(t, err)
	require.Equal(t, "announced", item.Text)

	done, err = stream.Recv(&item)
	require.True(t, done)
	require.NoError(t, err)
}
