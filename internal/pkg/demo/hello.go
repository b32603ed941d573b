// Package demo holds the small Unary services (Hello and the arithmetic
// methods) registered by internal/pkg/server for the cmd/cqrpcd demo
// binary, grounded on the greeter service in original_source/stuff/server.cc.
package demo

import (
	"context"
	"fmt"

	"github.com/cqserve/cqserve/cq"
)

// HelloRequest is the Hello RPC's request message.
type HelloRequest struct {
	Name string
}

// HelloReply is the Hello RPC's response message.
type HelloReply struct {
	Message string
}

// Hello implements the classic single-request/single-response greeter,
// the same shape as original_source/stuff/server.cc's SayHello.
func Hello(ctx context.Context, _ *cq.ServerContext, req *HelloRequest) (*HelloReply, error) {
	name := req.Name
	if name == "" {
		name = "world"
	}
	return &HelloReply{Message: fmt.Sprintf("Hello, %s", name)}, nil
}
