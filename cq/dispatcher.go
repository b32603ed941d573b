package cq

import (
	"context"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// Server is the dispatcher core described in §3 and §5: one CompletionQueue,
// one (or a small pool of) dispatcher goroutine(s) draining it, and a
// registry of method slots each kept permanently armed by a CallData in
// CREATE. Construct one with NewBuilder, not directly.
type Server struct {
	cq   *CompletionQueue
	done chan struct{}

	baseCtx    context.Context
	baseCancel context.CancelFunc

	listeners []net.Listener
	acceptWG  sync.WaitGroup

	slotsMu sync.RWMutex
	slots   map[string]*methodSlot

	fan       *Fan
	indexHits int64

	codec       Codec
	credentials Credentials
	serverID    string
	log         *logrus.Logger

	hooks []DispatchHook

	workers      int
	dispatchWG   sync.WaitGroup
	shutdownOnce sync.Once
}

func newServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cq:          NewCompletionQueue(),
		done:        make(chan struct{}),
		baseCtx:     ctx,
		baseCancel:  cancel,
		slots:       make(map[string]*methodSlot),
		fan:         NewFan(),
		codec:       DefaultCodec,
		credentials: Insecure(),
		log:         logrus.StandardLogger(),
		workers:     1,
	}
}

func (s *Server) newCallContext() (context.Context, context.CancelFunc) {
	return context.WithCancel(s.baseCtx)
}

// registerSlot arms the first CallData for a newly registered method. Must
// be called before Start.
func (s *Server) registerSlot(name, kind string, handler methodHandler) {
	slot := &methodSlot{
		name:     name,
		kind:     kind,
		incoming: make(chan *call),
		handler:  handler,
	}
	s.slotsMu.Lock()
	s.slots[name] = slot
	s.slotsMu.Unlock()
}

// Start launches the dispatcher loop(s) and arms one CallData per
// registered slot, matching the C++ server's priming of one CallData per
// method before the first call to cq->Next (§5).
func (s *Server) Start() {
	for _, slot := range s.slots {
		newTypedCallData(s, slot)
	}
	for i := 0; i < s.workers; i++ {
		s.dispatchWG.Add(1)
		go s.dispatchLoop()
	}
}

// dispatchLoop is the "while (cq->Next(&tag, &ok))" loop of §5: pull one
// event at a time and invoke the proceeding callData's Proceed method. With
// workers > 1 several goroutines share the queue, trading the single-
// threaded simplicity of the original design for throughput; tag delivery
// from the queue is still fully serialized per tag because each tag's
// transitions are only ever pushed by that tag's own goroutines.
//
// Only typed-RPC calls ever push a tag onto the queue; the generic
// byte-stream surface (serveStream in generic.go) runs entirely on its own
// accept goroutine and never touches the CompletionQueue, so this loop has
// nothing to switch on.
func (s *Server) dispatchLoop() {
	defer s.dispatchWG.Done()
	for {
		ev, ok := s.cq.Next()
		if !ok {
			return
		}
		if tag, ok := ev.Tag.(*typedCallData); ok {
			tag.proceed(ev.OK)
		}
	}
}

// Shutdown stops accepting new work and drains in-flight calls, mirroring
// §5's shutdown order: stop listening, signal the queue, join the
// dispatcher(s).
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.done)
		s.baseCancel()
		for _, ln := range s.listeners {
			ln.Close()
		}
		s.fan.Shutdown()
		s.acceptWG.Wait()
		s.cq.Shutdown()
	})
	s.dispatchWG.Wait()
}

// SetServerID sets the identifier attached to DispatchInfo.ServerID and
// ServerContext.ServerID for every call, useful when multiple cqserve
// instances share one set of metrics/traces.
func (s *Server) SetServerID(id string) { s.serverID = id }
