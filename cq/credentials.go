package cq

import "crypto/tls"

// Credentials configures how Builder.AddListeningPort authenticates
// accepted connections. The shape mirrors google.golang.org/grpc/credentials
// (an Insecure() and a TLS constructor), but cqserve cannot reuse that
// package directly: grpc-go's credentials.TransportCredentials is bound to
// its own internal transport.ServerTransport handshake, which this module's
// independent TCP/framed transport does not implement.
type Credentials interface {
	// TLSConfig returns nil for a plaintext listener, or a server-side
	// *tls.Config to wrap accepted connections in.
	TLSConfig() *tls.Config
}

type insecureCredentials struct{}

func (insecureCredentials) TLSConfig() *tls.Config { return nil }

// Insecure returns Credentials for a plaintext listener.
func Insecure() Credentials { return insecureCredentials{} }

type tlsCredentials struct{ cfg *tls.Config }

func (c tlsCredentials) TLSConfig() *tls.Config { return c.cfg }

// NewTLS returns Credentials that wrap accepted connections with cfg.
func NewTLS(cfg *tls.Config) Credentials { return tlsCredentials{cfg: cfg} }
