package cq

import (
	"context"
	"io"

	"google.golang.org/grpc/codes"
)

// methodHandler is the internal, type-erased face every registered
// generic Unary/ClientStream/ServerStream/BidiStream/StreamedUnary/
// SplitServerStream handler presents to typedCallData. Each variant's
// run implements the response-assembly rules of §4.1, grounded on the
// RpcMethodHandler / ClientStreamingHandler / TemplatedBidiStreamingHandler
// family in original_source/include/grpc++/impl/codegen/method_handler_impl.h.
type methodHandler interface {
	dispatchMethodType() string
	run(c *call, ctx *ServerContext) bool
}

func boolStatus(err error) bool { return err == nil }

// Reader is the receive side handed to ClientStream and BidiStream
// handlers.
type Reader[Req any] struct {
	c     *call
	codec Codec
	first []byte
	done  bool
}

// Recv returns the next request message, or io.EOF once the client has
// half-closed its send side.
func (r *Reader[Req]) Recv() (*Req, error) {
	var raw []byte
	if len(r.first) > 0 {
		// pendingParams is the non-empty preamble payload only when the
		// caller is Invoke (StreamedUnary); NewClientStream always sends
		// an empty preamble and delivers every message, including the
		// first, as a frameMessage, so an empty "first" here must fall
		// through to reading the wire instead of being handed back as a
		// bogus zero-length message.
		raw, r.first = r.first, nil
	} else {
		if r.done {
			return nil, io.EOF
		}
		data, halfClosed, err := r.c.readMessage()
		if err != nil {
			return nil, err
		}
		if halfClosed {
			r.done = true
			return nil, io.EOF
		}
		raw = data
	}
	var req Req
	if err := r.codec.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Writer is the send side handed to ServerStream, BidiStream,
// StreamedUnary and SplitServerStream handlers.
type Writer[Rsp any] struct {
	c     *call
	ctx   *ServerContext
	codec Codec
	wrote int
	err   error
}

// Send serializes and writes one response message, sending initial
// metadata first if this is the first write on the call.
func (w *Writer[Rsp]) Send(rsp *Rsp) error {
	if w.err != nil {
		return w.err
	}
	if err := w.c.writeHeader(w.ctx); err != nil {
		w.err = err
		return err
	}
	data, err := w.codec.Marshal(rsp)
	if err != nil {
		w.err = err
		return err
	}
	if err := w.c.writeResponseMessage(w.ctx, data); err != nil {
		w.err = err
		return err
	}
	w.wrote++
	return nil
}

// ReaderWriter combines Reader and Writer for BidiStream and
// StreamedUnary handlers.
type ReaderWriter[Req, Rsp any] struct {
	*Reader[Req]
	*Writer[Rsp]
}

// --- Unary ---

type unaryHandler[Req, Rsp any] struct {
	fn func(context.Context, *ServerContext, *Req) (*Rsp, error)
}

// Unary registers a request/response handler on method, wrapping fn to
// perform the full CREATE/PROCESS/FINISH lifecycle and response assembly
// of §4.1.
func Unary[Req, Rsp any](s *Server, method string, fn func(context.Context, *ServerContext, *Req) (*Rsp, error)) {
	s.registerSlot(method, DispatchMethodUnary, &unaryHandler[Req, Rsp]{fn: fn})
}

func (h *unaryHandler[Req, Rsp]) dispatchMethodType() string { return DispatchMethodUnary }

func (h *unaryHandler[Req, Rsp]) run(c *call, ctx *ServerContext) bool {
	var req Req
	if err := c.codec.Unmarshal(c.pendingParams, &req); err != nil {
		return boolStatus(c.respondUnary(ctx, nil, errDeserialize(err).Status))
	}
	rsp, appErr := h.fn(ctx.Ctx, ctx, &req)
	if appErr != nil {
		return boolStatus(c.respondUnary(ctx, nil, StatusFromError(appErr)))
	}
	data, err := c.codec.Marshal(rsp)
	if err != nil {
		return boolStatus(c.respondUnary(ctx, nil, NewStatusError(codes.Internal, "marshal response: %v", err).Status))
	}
	return boolStatus(c.respondUnary(ctx, data, OK))
}

// --- ClientStream ---

type clientStreamHandler[Req, Rsp any] struct {
	fn func(context.Context, *ServerContext, *Reader[Req]) (*Rsp, error)
}

// ClientStream registers a many-request/one-response handler.
func ClientStream[Req, Rsp any](s *Server, method string, fn func(context.Context, *ServerContext, *Reader[Req]) (*Rsp, error)) {
	s.registerSlot(method, DispatchMethodClientStream, &clientStreamHandler[Req, Rsp]{fn: fn})
}

func (h *clientStreamHandler[Req, Rsp]) dispatchMethodType() string { return DispatchMethodClientStream }

func (h *clientStreamHandler[Req, Rsp]) run(c *call, ctx *ServerContext) bool {
	r := &Reader[Req]{c: c, codec: c.codec, first: c.pendingParams}
	rsp, appErr := h.fn(ctx.Ctx, ctx, r)
	if appErr != nil {
		return boolStatus(c.respondUnary(ctx, nil, StatusFromError(appErr)))
	}
	data, err := c.codec.Marshal(rsp)
	if err != nil {
		return boolStatus(c.respondUnary(ctx, nil, NewStatusError(codes.Internal, "marshal response: %v", err).Status))
	}
	return boolStatus(c.respondUnary(ctx, data, OK))
}

// --- ServerStream ---

type serverStreamHandler[Req, Rsp any] struct {
	fn func(context.Context, *ServerContext, *Req, *Writer[Rsp]) error
}

// ServerStream registers a one-request/many-response handler.
func ServerStream[Req, Rsp any](s *Server, method string, fn func(context.Context, *ServerContext, *Req, *Writer[Rsp]) error) {
	s.registerSlot(method, DispatchMethodServerStream, &serverStreamHandler[Req, Rsp]{fn: fn})
}

func (h *serverStreamHandler[Req, Rsp]) dispatchMethodType() string { return DispatchMethodServerStream }

func (h *serverStreamHandler[Req, Rsp]) run(c *call, ctx *ServerContext) bool {
	var req Req
	if err := c.codec.Unmarshal(c.pendingParams, &req); err != nil {
		return boolStatus(c.respondUnary(ctx, nil, errDeserialize(err).Status))
	}
	w := &Writer[Rsp]{c: c, ctx: ctx, codec: c.codec}
	appErr := h.fn(ctx.Ctx, ctx, &req, w)
	status := OK
	if appErr != nil {
		status = StatusFromError(appErr)
	}
	if err := c.writeHeader(ctx); err != nil {
		return false
	}
	return boolStatus(c.writeStatus(ctx, status))
}

// --- BidiStream ---

type bidiStreamHandler[Req, Rsp any] struct {
	fn func(context.Context, *ServerContext, *ReaderWriter[Req, Rsp]) error
}

// BidiStream registers a fully bidirectional streaming handler.
func BidiStream[Req, Rsp any](s *Server, method string, fn func(context.Context, *ServerContext, *ReaderWriter[Req, Rsp]) error) {
	s.registerSlot(method, DispatchMethodBidiStream, &bidiStreamHandler[Req, Rsp]{fn: fn})
}

func (h *bidiStreamHandler[Req, Rsp]) dispatchMethodType() string { return DispatchMethodBidiStream }

func (h *bidiStreamHandler[Req, Rsp]) run(c *call, ctx *ServerContext) bool {
	rw := &ReaderWriter[Req, Rsp]{
		Reader: &Reader[Req]{c: c, codec: c.codec, first: c.pendingParams},
		Writer: &Writer[Rsp]{c: c, ctx: ctx, codec: c.codec},
	}
	appErr := h.fn(ctx.Ctx, ctx, rw)
	status := OK
	if appErr != nil {
		status = StatusFromError(appErr)
	}
	if err := c.writeHeader(ctx); err != nil {
		return false
	}
	return boolStatus(c.writeStatus(ctx, status))
}

// --- StreamedUnary ---
//
// StreamedUnary exposes a logically unary RPC through the streaming
// Reader/Writer wrapper, matching the write_needed=true
// StreamedUnaryHandler in method_handler_impl.h: if the handler returns OK
// without ever calling Send, the status is rewritten to INTERNAL.

type streamedUnaryHandler[Req, Rsp any] struct {
	fn func(context.Context, *ServerContext, *ReaderWriter[Req, Rsp]) error
}

// StreamedUnary registers a unary RPC whose handler receives a streaming
// Reader/Writer wrapper instead of a plain request/response pair.
func StreamedUnary[Req, Rsp any](s *Server, method string, fn func(context.Context, *ServerContext, *ReaderWriter[Req, Rsp]) error) {
	s.registerSlot(method, DispatchMethodStreamedUnary, &streamedUnaryHandler[Req, Rsp]{fn: fn})
}

func (h *streamedUnaryHandler[Req, Rsp]) dispatchMethodType() string {
	return DispatchMethodStreamedUnary
}

func (h *streamedUnaryHandler[Req, Rsp]) run(c *call, ctx *ServerContext) bool {
	w := &Writer[Rsp]{c: c, ctx: ctx, codec: c.codec}
	rw := &ReaderWriter[Req, Rsp]{
		Reader: &Reader[Req]{c: c, codec: c.codec, first: c.pendingParams},
		Writer: w,
	}
	appErr := h.fn(ctx.Ctx, ctx, rw)
	status := OK
	if appErr != nil {
		status = StatusFromError(appErr)
	} else if w.wrote == 0 {
		status = errNoResponseWritten.Status
	}
	if err := c.writeHeader(ctx); err != nil {
		return false
	}
	return boolStatus(c.writeStatus(ctx, status))
}

// --- SplitServerStream ---
//
// SplitServerStream is the write-only specialization restored from
// original_source (write_needed=false, unlike StreamedUnary): the handler
// never sees the request body, only a Writer.

type splitServerStreamHandler[Rsp any] struct {
	fn func(context.Context, *ServerContext, *Writer[Rsp]) error
}

// SplitServerStream registers a server-stream handler that does not need
// to inspect the request message, only produce responses.
func SplitServerStream[Rsp any](s *Server, method string, fn func(context.Context, *ServerContext, *Writer[Rsp]) error) {
	s.registerSlot(method, DispatchMethodSplitServerStream, &splitServerStreamHandler[Rsp]{fn: fn})
}

func (h *splitServerStreamHandler[Rsp]) dispatchMethodType() string {
	return DispatchMethodSplitServerStream
}

func (h *splitServerStreamHandler[Rsp]) run(c *call, ctx *ServerContext) bool {
	w := &Writer[Rsp]{c: c, ctx: ctx, codec: c.codec}
	appErr := h.fn(ctx.Ctx, ctx, w)
	status := OK
	if appErr != nil {
		status = StatusFromError(appErr)
	}
	if err := c.writeHeader(ctx); err != nil {
		return false
	}
	return boolStatus(c.writeStatus(ctx, status))
}
