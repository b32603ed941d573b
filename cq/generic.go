package cq

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
)

// httpRequest is the minimal HTTP/1.1 request-line-plus-headers parse the
// generic byte-stream surface needs (§4.2): just enough to route on Path.
// Headers are parsed into Headers but not otherwise used.
type httpRequest struct {
	Method  string
	Path    string
	Proto   string
	Headers map[string]string
}

func parseHTTPRequestLine(br *bufio.Reader) (*httpRequest, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimRight(line, "\r\n")
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return nil, fmt.Errorf("cq: malformed request line %q", line)
	}
	req := &httpRequest{Method: parts[0], Path: parts[1], Proto: parts[2], Headers: map[string]string{}}
	for {
		hline, err := br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		hline = strings.TrimRight(hline, "\r\n")
		if hline == "" {
			break
		}
		if idx := strings.IndexByte(hline, ':'); idx >= 0 {
			key := strings.TrimSpace(hline[:idx])
			val := strings.TrimSpace(hline[idx+1:])
			req.Headers[strings.ToLower(key)] = val
		}
	}
	return req, nil
}

// httpCall is the thin response-writer half of the generic surface: a raw
// connection plus enough bookkeeping to write a real HTTP/1.1 status line
// and headers once, then stream a body.
type httpCall struct {
	conn          net.Conn
	r             *bufio.Reader
	headersWritten bool
}

func (h *httpCall) writeStatusAndHeaders(status int, statusText string, headers map[string]string) error {
	if h.headersWritten {
		return nil
	}
	h.headersWritten = true
	if _, err := fmt.Fprintf(h.conn, "HTTP/1.1 %d %s\r\n", status, statusText); err != nil {
		return err
	}
	for k, v := range headers {
		if _, err := fmt.Fprintf(h.conn, "%s: %s\r\n", k, v); err != nil {
			return err
		}
	}
	_, err := h.conn.Write([]byte("\r\n"))
	return err
}

func (h *httpCall) writeRaw(data []byte) error {
	_, err := h.conn.Write(data)
	return err
}

func (h *httpCall) Close() error { return h.conn.Close() }

const indexPageFormat = `<html>
<head><title>cqserve</title></head>
<body>
<h1>cqserve generic stream</h1>
<p>Method: %s. Count: %d.</p>
<div id="counter">0</div>
<div id="missed">0</div>
<script>
var es = new EventSource("/stream");
var count = 0;
var missed = 0;
var last = -1;
es.onmessage = function(ev) {
  count++;
  document.getElementById("counter").innerText = count;
  var n = parseInt(ev.data, 10);
  if (!isNaN(n)) {
    if (last >= 0 && n > last + 1) {
      missed += (n - last - 1);
      document.getElementById("missed").innerText = missed;
    }
    last = n;
  }
  if (ev.data === "! ") {
    es.close();
  }
};
</script>
</body>
</html>
`

// serveGeneric routes a parsed HTTP request to the index page or the SSE
// fan-out, per §4.2. Every non-/stream hit is counted in indexHits and
// echoed back as "Method: <path>. Count: <n>.", matching the original
// unstructured/server.cc CallData's snprintf of ctx_.method() and its
// request-scoped count.
func (s *Server) serveGeneric(hc *httpCall, req *httpRequest) {
	if strings.HasPrefix(req.Path, "/stream") {
		s.serveStream(hc, req)
		return
	}
	n := atomic.AddInt64(&s.indexHits, 1) - 1
	body := fmt.Sprintf(indexPageFormat, req.Path, n)
	hc.writeStatusAndHeaders(200, "OK", map[string]string{
		"Content-Type":   "text/html; charset=UTF-8",
		"Content-Length": fmt.Sprintf("%d", len(body)),
		"Connection":     "close",
	})
	hc.writeRaw([]byte(body))
	hc.Close()
}

// serveStream subscribes hc to the server's Fan and streams each published
// payload as one SSE frame until the Fan shuts down. Unlike the typed-RPC
// surface, no CallData is ever pushed onto the CompletionQueue here: the
// entire lifecycle runs synchronously on the accept goroutine that called
// it, blocking on the subscriber's wake channel between publishes. See
// DESIGN.md for why this replaces the original's CallData::Proceed state
// machine instead of reimplementing it against the queue.
func (s *Server) serveStream(hc *httpCall, req *httpRequest) {
	defer hc.Close()

	sub, wake, ok := s.fan.Add()
	if !ok {
		hc.writeStatusAndHeaders(503, "Service Unavailable", map[string]string{"Connection": "close"})
		return
	}
	defer s.fan.Remove(sub)

	if err := hc.writeStatusAndHeaders(200, "OK", map[string]string{
		"Content-Type":  "text/event-stream; charset=UTF-8",
		"Cache-Control": "no-cache",
		"Connection":    "keep-alive",
	}); err != nil {
		return
	}

	for {
		for _, payload := range sub.drain() {
			if err := writeSSEFrame(hc, payload); err != nil {
				return
			}
		}
		if s.fan.IsShutdown() {
			for _, payload := range sub.drain() {
				if err := writeSSEFrame(hc, payload); err != nil {
					return
				}
			}
			writeSSEFrame(hc, []byte("! "))
			return
		}
		// Wait only on wake, not server.done: Shutdown always calls
		// fan.Shutdown before returning, and Fan guarantees a wake signal
		// to every subscriber registered at (or before) that call, so the
		// next loop iteration's IsShutdown check is what emits the
		// sentinel. Racing an extra done case here would let this select
		// pick the abandon-without-sentinel path instead.
		<-wake
	}
}

func writeSSEFrame(hc *httpCall, data []byte) error {
	var b strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return hc.writeRaw([]byte(b.String()))
}
