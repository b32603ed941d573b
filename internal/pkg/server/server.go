package server

import (
	"github.com/pkg/errors"

	"github.com/cqserve/cqserve/cq"
	"github.com/cqserve/cqserve/internal/pkg/demo"
	"github.com/cqserve/cqserve/internal/pkg/log"
	"github.com/cqserve/cqserve/internal/pkg/sequence"
)

// Server wraps a cq.Builder pre-registered with the demo Hello, Arithmetic
// and Sequence services.
type Server struct {
	builder  *cq.Builder
	sequence *sequence.Service
	built    *cq.Server
}

// Cfg configures a Server.
type Cfg func(*Server) error

// WithSequenceService overrides the default Sequence service instance,
// e.g. to inject a shorter TickInterval for tests.
func WithSequenceService(svc *sequence.Service) Cfg {
	return func(s *Server) error {
		s.sequence = svc
		return nil
	}
}

// WithListenAddr queues addr for the built server to listen on.
func WithListenAddr(addr string) Cfg {
	return func(s *Server) error {
		s.builder.AddListeningPort(addr)
		return nil
	}
}

// WithHook registers an additional dispatch hook, e.g. cqotel.InstrumentServer
// or cqprom.InstrumentServer.
func WithHook(hook cq.DispatchHook) Cfg {
	return func(s *Server) error {
		s.builder.Use(hook)
		return nil
	}
}

// NewServer builds and registers the demo services, returning a Server
// ready to Start.
func NewServer(cfgs ...Cfg) (*Server, error) {
	s := &Server{
		builder:  cq.NewBuilder(),
		sequence: sequence.NewService(),
	}
	s.builder.Use(log.NewDispatchHook())

	for _, cfg := range cfgs {
		if err := cfg(s); err != nil {
			return nil, errors.Wrap(err, "apply Server cfg failed")
		}
	}

	srv := s.builder.Server()
	cq.Unary(srv, "Hello", demo.Hello)
	cq.Unary(srv, "Arithmetic.Sum", demo.Sum)
	cq.Unary(srv, "Arithmetic.Product", demo.Product)
	cq.Unary(srv, "Arithmetic.Quotient", demo.Quotient)
	cq.ServerStream(srv, "Sequence", s.sequence.Handle)
	cq.Unary(srv, "Admin.Publish", s.handlePublish)

	return s, nil
}

// Start opens the queued listeners and launches the dispatcher, returning
// the running *cq.Server. Call Shutdown on the result to stop it.
func (s *Server) Start() (*cq.Server, error) {
	built, err := s.builder.BuildAndStart()
	if err != nil {
		return nil, err
	}
	s.built = built
	return built, nil
}
