package cq

import (
	"bufio"
	"crypto/tls"
	"net"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Client dials a fresh TCP connection per call, mirroring the server's
// one-connection-per-call transport (wire.go). It plays the role of the
// generated stub in a schema-driven RPC framework, except every method is
// invoked by name since cqserve has no codegen step (see SPEC_FULL.md
// §10.1 on the Codec choice).
type Client struct {
	addr      string
	codec     Codec
	tlsConfig *tls.Config
}

// ClientOption configures a Client, following the functional-options
// pattern internal/pkg/client.Client.Cfg used on the teacher side.
type ClientOption func(*Client)

// WithClientCodec overrides the default gob Codec.
func WithClientCodec(codec Codec) ClientOption {
	return func(c *Client) { c.codec = codec }
}

// WithClientTLS dials with TLS using cfg instead of plaintext.
func WithClientTLS(cfg *tls.Config) ClientOption {
	return func(c *Client) { c.tlsConfig = cfg }
}

// NewClient returns a Client that dials addr for every call.
func NewClient(addr string, opts ...ClientOption) *Client {
	c := &Client{addr: addr, codec: DefaultCodec}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) dial() (*call, error) {
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		return nil, errors.Wrap(err, "dial")
	}
	if c.tlsConfig != nil {
		conn = tls.Client(conn, c.tlsConfig)
	}
	return newCall(conn, c.codec, bufio.NewReader(conn)), nil
}

// Invoke performs a plain Unary (or ClientStream-with-one-message, or
// StreamedUnary) call: send one request, read exactly one response
// message and the terminal status.
func (c *Client) Invoke(method string, req, rsp any, md Metadata) error {
	call, err := c.dial()
	if err != nil {
		return err
	}
	defer call.Close()

	params, err := c.codec.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}
	if err := call.writeRequestPreamble(method, uuid.NewString(), md, params); err != nil {
		return errors.Wrap(err, "write request")
	}
	return c.recvUnary(call, rsp)
}

func (c *Client) recvUnary(call *call, rsp any) error {
	typ, payload, err := readFrame(call.r)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if typ == frameHeader {
		typ, payload, err = readFrame(call.r)
		if err != nil {
			return errors.Wrap(err, "read response after header")
		}
	}
	if typ == frameResponseMessage {
		compressed := len(payload) > 0 && payload[0] == 1
		data := payload[1:]
		if compressed {
			data, err = decompressMessage(data)
			if err != nil {
				return err
			}
		}
		if err := c.codec.Unmarshal(data, rsp); err != nil {
			return errors.Wrap(err, "unmarshal response")
		}
		typ, payload, err = readFrame(call.r)
		if err != nil {
			return errors.Wrap(err, "read status")
		}
	}
	if typ != frameStatus {
		return errors.Errorf("cq: expected frameStatus, got %#x", typ)
	}
	return decodeStatusFrame(payload)
}

func decodeStatusFrame(payload []byte) error {
	status, _, err := parseStatusPayload(payload)
	if err != nil {
		return err
	}
	return status.Err()
}

// ClientStreamCall is the client side of a ClientStream or BidiStream
// call: Send zero or more requests, then CloseAndRecv (client-stream) or
// interleave with Recv (bidi).
type ClientStreamCall struct {
	call  *call
	codec Codec
}

// NewClientStream opens method as a streaming call and sends nothing yet.
func (c *Client) NewClientStream(method string, md Metadata) (*ClientStreamCall, error) {
	call, err := c.dial()
	if err != nil {
		return nil, err
	}
	if err := call.writeRequestPreamble(method, uuid.NewString(), md, nil); err != nil {
		call.Close()
		return nil, err
	}
	return &ClientStreamCall{call: call, codec: c.codec}, nil
}

// Send serializes and writes one request message.
func (s *ClientStreamCall) Send(req any) error {
	data, err := s.codec.Marshal(req)
	if err != nil {
		return err
	}
	return s.call.writeMessageFrame(data)
}

// Recv reads one response message.
func (s *ClientStreamCall) Recv(rsp any) error {
	typ, payload, err := readFrame(s.call.r)
	if err != nil {
		return err
	}
	if typ == frameHeader {
		typ, payload, err = readFrame(s.call.r)
		if err != nil {
			return err
		}
	}
	if typ != frameResponseMessage {
		return errors.Errorf("cq: expected frameResponseMessage, got %#x", typ)
	}
	compressed := len(payload) > 0 && payload[0] == 1
	data := payload[1:]
	if compressed {
		data, err = decompressMessage(data)
		if err != nil {
			return err
		}
	}
	return s.codec.Unmarshal(data, rsp)
}

// CloseSend signals no more requests will be sent.
func (s *ClientStreamCall) CloseSend() error {
	return s.call.writeHalfClose()
}

// CloseAndRecv half-closes the send side and reads the single final
// response and terminal status (client-stream shape).
func (s *ClientStreamCall) CloseAndRecv(rsp any) error {
	if err := s.CloseSend(); err != nil {
		return err
	}
	typ, payload, err := readFrame(s.call.r)
	if err != nil {
		return err
	}
	if typ == frameHeader {
		typ, payload, err = readFrame(s.call.r)
		if err != nil {
			return err
		}
	}
	if typ == frameResponseMessage {
		compressed := len(payload) > 0 && payload[0] == 1
		data := payload[1:]
		if compressed {
			data, err = decompressMessage(data)
			if err != nil {
				return err
			}
		}
		if err := s.codec.Unmarshal(data, rsp); err != nil {
			return err
		}
		typ, payload, err = readFrame(s.call.r)
		if err != nil {
			return err
		}
	}
	if typ != frameStatus {
		return errors.Errorf("cq: expected frameStatus, got %#x", typ)
	}
	return decodeStatusFrame(payload)
}

// Close releases the underlying connection.
func (s *ClientStreamCall) Close() error { return s.call.Close() }

// ServerStreamCall is the client side of a ServerStream or
// SplitServerStream call: a single request already went out as part of the
// preamble, and Recv is called repeatedly until it reports done.
type ServerStreamCall struct {
	call    *call
	codec   Codec
	done    bool
	err     error
	trailer Metadata
}

// Trailer returns the trailing metadata sent with the terminal status.
// Only populated once Recv has reported done.
func (s *ServerStreamCall) Trailer() Metadata { return s.trailer }

// NewServerStream sends req as the call's single request message and
// returns a ServerStreamCall ready to Recv the server's response messages.
func (c *Client) NewServerStream(method string, req any, md Metadata) (*ServerStreamCall, error) {
	call, err := c.dial()
	if err != nil {
		return nil, err
	}
	params, err := c.codec.Marshal(req)
	if err != nil {
		call.Close()
		return nil, errors.Wrap(err, "marshal request")
	}
	if err := call.writeRequestPreamble(method, uuid.NewString(), md, params); err != nil {
		call.Close()
		return nil, errors.Wrap(err, "write request")
	}
	return &ServerStreamCall{call: call, codec: c.codec}, nil
}

// Recv reads one response message into rsp. It returns done=true once the
// server's terminal status has been read (with any RPC failure surfaced in
// err); the caller should stop calling Recv at that point.
func (s *ServerStreamCall) Recv(rsp any) (done bool, err error) {
	if s.done {
		return true, s.err
	}
	typ, payload, err := readFrame(s.call.r)
	if err != nil {
		s.done, s.err = true, err
		return true, err
	}
	if typ == frameHeader {
		typ, payload, err = readFrame(s.call.r)
		if err != nil {
			s.done, s.err = true, err
			return true, err
		}
	}
	if typ == frameStatus {
		status, trailer, err := parseStatusPayload(payload)
		if err != nil {
			s.done, s.err = true, err
			return true, err
		}
		s.trailer = trailer
		s.done, s.err = true, status.Err()
		return true, s.err
	}
	if typ != frameResponseMessage {
		err := errors.Errorf("cq: expected frameResponseMessage, got %#x", typ)
		s.done, s.err = true, err
		return true, err
	}
	compressed := len(payload) > 0 && payload[0] == 1
	data := payload[1:]
	if compressed {
		data, err = decompressMessage(data)
		if err != nil {
			s.done, s.err = true, err
			return true, err
		}
	}
	if err := s.codec.Unmarshal(data, rsp); err != nil {
		s.done, s.err = true, err
		return true, err
	}
	return false, nil
}

// Close releases the underlying connection.
func (s *ServerStreamCall) Close() error { return s.call.Close() }

// SubscribeGeneric opens a plain HTTP/1.1 GET to path (typically
// "/stream") against the server's generic surface and invokes onEvent for
// every SSE "data:" payload received, until the server sends the "! "
// shutdown sentinel or the connection closes.
func (c *Client) SubscribeGeneric(path string, onEvent func(string)) error {
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("GET " + path + " HTTP/1.1\r\nHost: cqserve\r\n\r\n")); err != nil {
		return err
	}
	br := bufio.NewReader(conn)
	// Skip the status line and headers.
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return err
		}
		if line == "\r\n" || line == "\n" {
			break
		}
	}
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return err
		}
		const prefix = "data: "
		if len(line) >= len(prefix) && line[:len(prefix)] == prefix {
			data := line[len(prefix):]
			for len(data) > 0 && (data[len(data)-1] == '\n' || data[len(data)-1] == '\r') {
				data = data[:len(data)-1]
			}
			onEvent(data)
			if data == "! " {
				return nil
			}
		}
	}
}
