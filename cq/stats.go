package cq

import "context"

// Method type string constants for DispatchInfo.MethodType, generalized
// from Query-farm-vgi-rpc-go's vgirpc/hooks.go two-way unary/stream split to
// this module's six method-handler variants, plus the generic surface.
const (
	DispatchMethodUnary              = "unary"
	DispatchMethodClientStream       = "client_stream"
	DispatchMethodServerStream       = "server_stream"
	DispatchMethodBidiStream         = "bidi_stream"
	DispatchMethodStreamedUnary      = "streamed_unary"
	DispatchMethodSplitServerStream  = "split_server_stream"
	DispatchMethodGeneric            = "generic"
)

// DispatchHook provides observability callpoints around RPC dispatch. Both
// cqotel.InstrumentServer and cqprom.InstrumentServer implement this by
// wrapping OnDispatchStart/OnDispatchEnd around the PROCESS transition of
// typedCallData.proceed; see DESIGN.md.
//
// Implementations must be safe for concurrent use: a worker-pool dispatcher
// (§5) may invoke handlers, and therefore hooks, from more than one
// goroutine even though tag delivery itself stays serialized.
type DispatchHook interface {
	OnDispatchStart(ctx context.Context, info DispatchInfo) (context.Context, HookToken)
	OnDispatchEnd(ctx context.Context, token HookToken, info DispatchInfo, stats *CallStatistics, err error)
}

// HookToken is an opaque value returned by OnDispatchStart and passed back
// to OnDispatchEnd. Only meaningful to the DispatchHook that created it.
type HookToken any

// DispatchInfo carries method metadata passed to hooks.
type DispatchInfo struct {
	Method            string
	MethodType        string
	ServerID          string
	RequestID         string
	TransportMetadata Metadata
}

// CallStatistics holds per-call I/O counters, generalized from
// Query-farm-vgi-rpc-go's vgirpc/hooks.go CallStatistics (which counts Arrow
// record batches) to plain message counts and byte sizes.
type CallStatistics struct {
	InputMessages  int64
	OutputMessages int64
	InputBytes     int64
	OutputBytes    int64
}

// RecordInput records one input message of the given serialized size.
func (s *CallStatistics) RecordInput(bytes int64) {
	s.InputMessages++
	s.InputBytes += bytes
}

// RecordOutput records one output message of the given serialized size.
func (s *CallStatistics) RecordOutput(bytes int64) {
	s.OutputMessages++
	s.OutputBytes += bytes
}
