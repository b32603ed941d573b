package cq

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"net"
)

// newTLSConn wraps conn in a server-side TLS connection using cfg.
func newTLSConn(conn net.Conn, cfg *tls.Config) net.Conn {
	return tls.Server(conn, cfg)
}

// methodSlot is one registered method's "always armed" request queue.
// handleTypedConn pushes a fully-read call onto incoming; the CallData
// currently waiting on this slot is the only reader, matching the
// CompletionQueue tag-delivery model (§3, §9): the transport is the
// producer, the dispatcher loop the consumer.
type methodSlot struct {
	name    string
	kind    string
	incoming chan *call
	handler  methodHandler
}

// addListener starts accepting connections on ln, dispatching each one to
// either the typed-RPC path or the generic byte-stream/SSE path depending
// on its first bytes.
func (s *Server) addListener(ln net.Listener) {
	s.listeners = append(s.listeners, ln)
	s.acceptWG.Add(1)
	go func() {
		defer s.acceptWG.Done()
		s.acceptLoop(ln)
	}()
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.log.WithError(err).Warn("cq: accept failed")
				return
			}
		}
		go s.handleConn(conn)
	}
}

// handleConn sniffs the first bytes of a freshly accepted connection to
// pick the typed-RPC path or the generic HTTP-ish byte-stream path, per
// SPEC_FULL.md §10.1.
func (s *Server) handleConn(conn net.Conn) {
	if tlsCfg := s.credentials.TLSConfig(); tlsCfg != nil {
		conn = newTLSConn(conn, tlsCfg)
	}
	br := bufio.NewReaderSize(conn, 4096)
	peek, err := br.Peek(len(rpcMagic))
	if err == nil && bytes.Equal(peek, rpcMagic) {
		br.Discard(len(rpcMagic))
		s.handleTypedConn(conn, br)
		return
	}
	s.handleGenericConn(conn, br)
}

// handleTypedConn reads one typed-RPC call preamble and routes it to the
// matching method slot's CREATE-state waiter, or answers it inline via the
// Unknown-Method Responder (§4.5) when no such slot is registered.
func (s *Server) handleTypedConn(conn net.Conn, br *bufio.Reader) {
	c := newCall(conn, s.codec, br)
	params, err := c.readRequestPreamble()
	if err != nil {
		s.log.WithError(err).Debug("cq: failed to read request preamble")
		conn.Close()
		return
	}
	c.pendingParams = params

	s.slotsMu.RLock()
	slot, ok := s.slots[c.method]
	s.slotsMu.RUnlock()
	if !ok {
		ctx := s.newServerContext(c)
		respondUnknownMethod(c, ctx, c.method)
		conn.Close()
		return
	}
	select {
	case slot.incoming <- c:
	case <-s.done:
		conn.Close()
	}
}

// handleGenericConn implements the generic byte-stream surface (§4.2):
// minimal HTTP/1.1 request-line parsing, routing "/stream"-prefixed paths
// to the SSE fan-out and everything else to the index page.
func (s *Server) handleGenericConn(conn net.Conn, br *bufio.Reader) {
	req, err := parseHTTPRequestLine(br)
	if err != nil {
		conn.Close()
		return
	}
	hc := &httpCall{conn: conn, r: br}
	s.serveGeneric(hc, req)
}

func (s *Server) newServerContext(c *call) *ServerContext {
	ctx, cancel := s.newCallContext()
	_ = cancel // discarded: Ctx is cancelled only when the server's base context is
	return &ServerContext{
		Ctx:             ctx,
		Method:          c.method,
		RequestID:       c.requestID,
		ServerID:        s.serverID,
		RequestMetadata: c.metadata,
		initialMetadata:  Metadata{},
		trailingMetadata: Metadata{},
	}
}
