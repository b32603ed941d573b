package server

import (
	"context"

	"github.com/cqserve/cqserve/cq"
)

// PublishRequest carries one payload to fan out to every subscriber of the
// generic byte-stream surface.
type PublishRequest struct {
	Data []byte
}

// PublishReply is empty; Admin.Publish only ever succeeds or returns an
// error status.
type PublishReply struct{}

// handlePublish implements the Admin.Publish Unary RPC: an external
// process feeds data into the Fan the same way original_source's
// unstructured/server.cc main loop called Fan::Publish directly, except
// here the loop runs out-of-process against a real RPC (SPEC_FULL.md
// §10's cmd/cqrpcd publish subcommand).
func (s *Server) handlePublish(_ context.Context, _ *cq.ServerContext, req *PublishRequest) (*PublishReply, error) {
	s.built.Publish(req.Data)
	return &PublishReply{}, nil
}
