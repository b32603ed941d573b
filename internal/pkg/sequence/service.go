package sequence

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"

	"github.com/cqserve/cqserve/cq"
)

// Request is the Sequence RPC's request message: how long a random
// sequence to generate and stream back.
type Request struct {
	ClientID string
	Length   uint16
}

// Item is one streamed element of the generated sequence.
type Item struct {
	Index uint16
	Value uint32
}

// Service holds the session store the registered handler closes over.
// Grounded on mschristensen-risp's internal/pkg/handler.handler, which
// paired one session.Store with a per-connection ticker loop; here the
// per-call state is the ServerStream call itself, so Service only needs
// to own the Store.
type Service struct {
	store Store

	// TickInterval paces delivery of successive sequence values, mirroring
	// the teacher handler's time.NewTicker(time.Second) loop. Defaults to
	// 10ms so tests don't take a full second per value.
	TickInterval time.Duration
}

// NewService returns a Service backed by an in-memory Store.
func NewService() *Service {
	return &Service{store: NewMemoryStore(), TickInterval: 10 * time.Millisecond}
}

// Handle implements the Sequence ServerStream RPC: generate a random
// sequence of req.Length values, stream them one at a time paced by
// TickInterval, then set a "checksum" trailer with their sum before
// returning. Register with cq.ServerStream(server, "Sequence", svc.Handle).
func (s *Service) Handle(ctx context.Context, sctx *cq.ServerContext, req *Request, w *cq.Writer[Item]) error {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return cq.NewStatusError(codes.InvalidArgument, "invalid client id: %v", err)
	}

	seq, err := s.store.New(clientID, req.Length)
	if err != nil {
		return errors.Wrap(err, "start sequence session")
	}
	defer s.store.Clear(clientID)

	ticker := time.NewTicker(s.TickInterval)
	defer ticker.Stop()

	for i, v := range seq {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Send(&Item{Index: uint16(i), Value: v}); err != nil {
				return errors.Wrap(err, "send sequence item")
			}
		}
	}

	sum, err := Sum(seq)
	if err != nil {
		return errors.Wrap(err, "checksum sequence")
	}
	sctx.SetTrailer("checksum", strconv.FormatUint(sum, 10))
	return nil
}
