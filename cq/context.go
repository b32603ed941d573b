package cq

import "context"

// ServerContext is the per-call context handed to every method handler. It
// plays the role of grpc::ServerContext: it lets handlers inspect the
// method being invoked and attach metadata to the response, and tracks the
// "sent initial metadata" precondition response assembly (§4.1) relies on.
type ServerContext struct {
	// Ctx is the request-scoped context. Its Done channel fires when the
	// server shuts down; it is not cancelled when a single call is
	// abandoned by its client.
	Ctx context.Context

	// Method is the registered name of the RPC being served.
	Method string
	// RequestID is the client-supplied correlation id, passed to dispatch
	// hooks (and so to their logs). It is not sent back in the response.
	RequestID string
	// ServerID is the value set via Server.SetServerID, if any.
	ServerID string

	// RequestMetadata is the metadata the client attached to the call.
	RequestMetadata Metadata

	initialMetadata   Metadata
	trailingMetadata  Metadata
	compressionLevel  CompressionLevel
	compressionIsSet  bool
	sentInitialHeader bool
}

// SetTrailer adds an entry to the trailing metadata sent with the terminal
// status.
func (c *ServerContext) SetTrailer(key, value string) {
	c.trailingMetadata.Set(key, value)
}

// SetHeader adds an entry to the initial metadata. Must be called before the
// initial metadata is sent; calling it afterwards is a programming error and
// panics (mirrors grpc::ServerContext's sent_initial_metadata_ guard).
func (c *ServerContext) SetHeader(key, value string) {
	if c.sentInitialHeader {
		panic("cq: SetHeader called after initial metadata was already sent")
	}
	c.initialMetadata.Set(key, value)
}

// SetCompressionLevel requests that the terminal response message be
// compressed at the given level (§4.1's "optionally set the compression
// level" response-assembly step; see compression.go).
func (c *ServerContext) SetCompressionLevel(level CompressionLevel) {
	c.compressionLevel = level
	c.compressionIsSet = true
}

func (c *ServerContext) markInitialMetadataSent() {
	if c.sentInitialHeader {
		panic("cq: initial metadata sent twice")
	}
	c.sentInitialHeader = true
}
