package demo

import (
	"context"

	"google.golang.org/grpc/codes"

	"github.com/cqserve/cqserve/cq"
)

// ArithmeticRequest carries the two operands for either arithmetic
// formula.
type ArithmeticRequest struct {
	A, B int64
}

// ArithmeticReply carries a formula's result.
type ArithmeticReply struct {
	Result int64
}

// Sum implements the first arithmetic formula supplemented from
// original_source: plain addition, registered as its own method so a
// client can pick a formula by method name rather than an opcode field.
func Sum(ctx context.Context, _ *cq.ServerContext, req *ArithmeticRequest) (*ArithmeticReply, error) {
	return &ArithmeticReply{Result: req.A + req.B}, nil
}

// Product implements the second arithmetic formula supplemented from
// original_source: multiplication.
func Product(ctx context.Context, _ *cq.ServerContext, req *ArithmeticRequest) (*ArithmeticReply, error) {
	return &ArithmeticReply{Result: req.A * req.B}, nil
}

// Quotient implements integer division, returning INVALID_ARGUMENT on
// division by zero rather than panicking the dispatcher goroutine.
func Quotient(ctx context.Context, _ *cq.ServerContext, req *ArithmeticRequest) (*ArithmeticReply, error) {
	if req.B == 0 {
		return nil, cq.NewStatusError(codes.InvalidArgument, "division by zero")
	}
	return &ArithmeticReply{Result: req.A / req.B}, nil
}
