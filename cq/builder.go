package cq

import "net"

// Builder assembles a Server, mirroring grpc::ServerBuilder: configure
// listeners, credentials, codec and hooks, register method handlers with
// the free functions in handler.go, then BuildAndStart.
type Builder struct {
	server *Server
	addrs  []string
}

// NewBuilder returns an empty Builder with the default codec (gob) and
// insecure credentials.
func NewBuilder() *Builder {
	return &Builder{server: newServer()}
}

// AddListeningPort queues addr (host:port) to be listened on once
// BuildAndStart runs. Matches grpc::ServerBuilder::AddListeningPort,
// minus the grpc-go credentials coupling (see credentials.go).
func (b *Builder) AddListeningPort(addr string) *Builder {
	b.addrs = append(b.addrs, addr)
	return b
}

// SetCredentials installs the Credentials used to decide whether accepted
// connections are wrapped in TLS.
func (b *Builder) SetCredentials(creds Credentials) *Builder {
	b.server.credentials = creds
	return b
}

// SetCodec overrides the default Codec (gob) used to (de)serialize
// request and response messages.
func (b *Builder) SetCodec(codec Codec) *Builder {
	b.server.codec = codec
	return b
}

// SetWorkerCount sets how many dispatcher goroutines drain the
// CompletionQueue concurrently. Defaults to 1, matching the original
// single-threaded dispatch loop; raise it to let independent calls'
// PROCESS handlers run in parallel.
func (b *Builder) SetWorkerCount(n int) *Builder {
	if n < 1 {
		n = 1
	}
	b.server.workers = n
	return b
}

// SetServerID sets the identifier attached to every DispatchInfo and
// ServerContext produced by the built server.
func (b *Builder) SetServerID(id string) *Builder {
	b.server.serverID = id
	return b
}

// Use registers a DispatchHook, invoked around every PROCESS transition.
func (b *Builder) Use(hook DispatchHook) *Builder {
	b.server.hooks = append(b.server.hooks, hook)
	return b
}

// Server returns the Builder's underlying Server so handlers can be
// registered with Unary, ClientStream, ServerStream, BidiStream,
// StreamedUnary and SplitServerStream before BuildAndStart.
func (b *Builder) Server() *Server { return b.server }

// Publish pushes data to every currently-subscribed generic stream client
// (§4.3), for use by the registering application outside of any RPC
// handler (e.g. a periodic publisher loop).
func (s *Server) Publish(data []byte) { s.fan.Publish(data) }

// BuildAndStart opens every queued listener, arms all registered method
// slots, and starts the dispatcher loop(s).
func (b *Builder) BuildAndStart() (*Server, error) {
	for _, addr := range b.addrs {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		b.server.addListener(ln)
	}
	b.server.Start()
	return b.server, nil
}
