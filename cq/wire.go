package cq

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
)

// rpcMagic prefixes every typed-RPC connection's first frame so handleConn
// can tell it apart from a plain HTTP request line bound for the generic
// byte-stream surface (§6). No real HTTP verb starts with these bytes.
var rpcMagic = []byte("CQRPC1\x00")

// Frame type tags for the typed-RPC wire protocol. Each frame is
// [1 byte type][4 byte big-endian length][payload].
const (
	frameRequest         byte = 0x10 // client -> server, call preamble
	frameMessage         byte = 0x11 // client -> server, one streamed message
	frameHalfClose       byte = 0x12 // client -> server, no more messages
	frameHeader          byte = 0x20 // server -> client, initial metadata
	frameResponseMessage byte = 0x21 // server -> client, one message (1-byte compression flag + payload)
	frameStatus          byte = 0x22 // server -> client, terminal status + trailing metadata
)

// call is the transport's opaque per-RPC handle: the "external collaborator"
// spec.md §1 assumes, realized here as one TCP connection per RPC with a
// small framed protocol layered on top.
type call struct {
	conn   net.Conn
	r      *bufio.Reader
	w      io.Writer
	codec  Codec
	method string

	requestID string
	metadata  Metadata

	// pendingParams holds the first message's serialized bytes read as
	// part of the request preamble, consumed by the method handler's
	// first Recv/unmarshal step.
	pendingParams []byte

	// lastStatus records the most recent status written by writeStatus,
	// so the dispatcher can report it to DispatchHook.OnDispatchEnd
	// without every handler variant threading it back separately.
	lastStatus Status
}

func newCall(conn net.Conn, codec Codec, r *bufio.Reader) *call {
	return &call{conn: conn, r: r, w: conn, codec: codec}
}

func (c *call) Close() error { return c.conn.Close() }

func writeFrame(w io.Writer, frameType byte, payload []byte) error {
	header := make([]byte, 5)
	header[0] = frameType
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r *bufio.Reader) (byte, []byte, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	n := binary.BigEndian.Uint32(header[1:])
	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, err
		}
	}
	return header[0], payload, nil
}

// putString/getString encode a length-prefixed string inside a frame
// payload, used to pack the method name / request id / metadata pairs into
// the single frameRequest payload.
func putString(buf []byte, s string) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

func getString(payload []byte) (string, []byte, error) {
	if len(payload) < 4 {
		return "", nil, errors.New("truncated string length")
	}
	n := binary.BigEndian.Uint32(payload[:4])
	payload = payload[4:]
	if uint32(len(payload)) < n {
		return "", nil, errors.New("truncated string data")
	}
	return string(payload[:n]), payload[n:], nil
}

// readRequestPreamble parses the client's opening frameRequest: method,
// request id, metadata, and the serialized parameters for the first
// message (always present, even for streaming methods, matching grpc's
// client sending the first message as part of the call preamble).
func (c *call) readRequestPreamble() (params []byte, err error) {
	typ, payload, err := readFrame(c.r)
	if err != nil {
		return nil, err
	}
	if typ != frameRequest {
		return nil, errors.Errorf("cq: expected frameRequest, got frame type %#x", typ)
	}
	method, payload, err := getString(payload)
	if err != nil {
		return nil, errors.Wrap(err, "read method")
	}
	requestID, payload, err := getString(payload)
	if err != nil {
		return nil, errors.Wrap(err, "read request id")
	}
	var metaCount uint32
	if len(payload) < 4 {
		return nil, errors.New("truncated metadata count")
	}
	metaCount = binary.BigEndian.Uint32(payload[:4])
	payload = payload[4:]
	md := Metadata{}
	for i := uint32(0); i < metaCount; i++ {
		var key, val string
		key, payload, err = getString(payload)
		if err != nil {
			return nil, errors.Wrap(err, "read metadata key")
		}
		val, payload, err = getString(payload)
		if err != nil {
			return nil, errors.Wrap(err, "read metadata value")
		}
		md[key] = val
	}
	paramsStr, _, err := getString(payload)
	if err != nil {
		return nil, errors.Wrap(err, "read params")
	}
	c.method = method
	c.requestID = requestID
	c.metadata = md
	return []byte(paramsStr), nil
}

// writeRequestPreamble is the client-side counterpart of
// readRequestPreamble, used by Client.
func (c *call) writeRequestPreamble(method, requestID string, md Metadata, params []byte) error {
	if _, err := c.w.Write(rpcMagic); err != nil {
		return err
	}
	var buf []byte
	buf = putString(buf, method)
	buf = putString(buf, requestID)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(md)))
	buf = append(buf, lenBuf[:]...)
	for k, v := range md {
		buf = putString(buf, k)
		buf = putString(buf, v)
	}
	buf = putString(buf, string(params))
	return writeFrame(c.w, frameRequest, buf)
}

// readMessage reads one client->server streamed message frame. halfClosed
// is true when the client signaled it is done sending (frameHalfClose).
func (c *call) readMessage() (msg []byte, halfClosed bool, err error) {
	typ, payload, err := readFrame(c.r)
	if err != nil {
		return nil, false, err
	}
	switch typ {
	case frameMessage:
		return payload, false, nil
	case frameHalfClose:
		return nil, true, nil
	default:
		return nil, false, errors.Errorf("cq: unexpected frame type %#x waiting for message", typ)
	}
}

func (c *call) writeMessageFrame(data []byte) error {
	return writeFrame(c.w, frameMessage, data)
}

func (c *call) writeHalfClose() error {
	return writeFrame(c.w, frameHalfClose, nil)
}

// writeHeader sends initial metadata exactly once (§4.1 response assembly:
// "send initial metadata (first time only)").
func (c *call) writeHeader(ctx *ServerContext) error {
	if ctx.sentInitialHeader {
		return nil
	}
	ctx.markInitialMetadataSent()
	var buf []byte
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(ctx.initialMetadata)))
	buf = append(buf, lenBuf[:]...)
	for k, v := range ctx.initialMetadata {
		buf = putString(buf, k)
		buf = putString(buf, v)
	}
	return writeFrame(c.w, frameHeader, buf)
}

// writeResponseMessage sends one reply message, compressed per
// ctx.compressionLevel if set (§4.1's "optionally set the compression
// level").
func (c *call) writeResponseMessage(ctx *ServerContext, data []byte) error {
	level := CompressionNone
	if ctx.compressionIsSet {
		level = ctx.compressionLevel
	}
	encoded, err := compressMessage(data, level)
	if err != nil {
		return errors.Wrap(err, "compress response message")
	}
	payload := make([]byte, 1+len(encoded))
	if level != CompressionNone {
		payload[0] = 1
	}
	copy(payload[1:], encoded)
	return writeFrame(c.w, frameResponseMessage, payload)
}

func (c *call) readResponseMessage() ([]byte, error) {
	typ, payload, err := readFrame(c.r)
	if err != nil {
		return nil, err
	}
	if typ != frameResponseMessage {
		return nil, errors.Errorf("cq: expected frameResponseMessage, got %#x", typ)
	}
	if len(payload) == 0 {
		return nil, errors.New("cq: truncated response message")
	}
	compressed := payload[0] == 1
	data := payload[1:]
	if compressed {
		return decompressMessage(data)
	}
	return data, nil
}

// writeStatus sends the terminal status + trailing metadata in one frame,
// closing out the response assembly batch described in §4.1.
func (c *call) writeStatus(ctx *ServerContext, status Status) error {
	c.lastStatus = status
	var buf []byte
	var codeBuf [4]byte
	binary.BigEndian.PutUint32(codeBuf[:], uint32(status.Code))
	buf = append(buf, codeBuf[:]...)
	buf = putString(buf, status.Message)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(ctx.trailingMetadata)))
	buf = append(buf, lenBuf[:]...)
	for k, v := range ctx.trailingMetadata {
		buf = putString(buf, k)
		buf = putString(buf, v)
	}
	return writeFrame(c.w, frameStatus, buf)
}

func (c *call) readStatus() (Status, Metadata, error) {
	typ, payload, err := readFrame(c.r)
	if err != nil {
		return Status{}, nil, err
	}
	if typ != frameStatus {
		return Status{}, nil, errors.Errorf("cq: expected frameStatus, got %#x", typ)
	}
	return parseStatusPayload(payload)
}

// parseStatusPayload decodes a frameStatus payload into its Status and
// trailing metadata. Shared by the server-side call.readStatus and the
// client's response path in client.go.
func parseStatusPayload(payload []byte) (Status, Metadata, error) {
	if len(payload) < 4 {
		return Status{}, nil, errors.New("truncated status code")
	}
	code := codes.Code(binary.BigEndian.Uint32(payload[:4]))
	payload = payload[4:]
	msg, payload, err := getString(payload)
	if err != nil {
		return Status{}, nil, errors.Wrap(err, "read status message")
	}
	if len(payload) < 4 {
		return Status{}, nil, errors.New("truncated trailer count")
	}
	count := binary.BigEndian.Uint32(payload[:4])
	payload = payload[4:]
	md := Metadata{}
	for i := uint32(0); i < count; i++ {
		var key, val string
		key, payload, err = getString(payload)
		if err != nil {
			return Status{}, nil, err
		}
		val, payload, err = getString(payload)
		if err != nil {
			return Status{}, nil, err
		}
		md[key] = val
	}
	return Status{Code: code, Message: msg}, md, nil
}

// respondUnary performs the full §4.1 response assembly for Unary and
// ClientStream handlers: initial metadata, optional compressed message,
// then terminal status, all written back to back as one logical batch.
func (c *call) respondUnary(ctx *ServerContext, payload []byte, status Status) error {
	if err := c.writeHeader(ctx); err != nil {
		return err
	}
	if status.Code == codes.OK {
		if err := c.writeResponseMessage(ctx, payload); err != nil {
			return err
		}
	}
	return c.writeStatus(ctx, status)
}
