// Package client wraps a cq.Client dialed at a fixed server address with
// plain Go methods for the demo services: SayHello, Sum/Product/Quotient,
// RunSequence (drives the Sequence ServerStream RPC to completion and
// verifies the server's reported checksum trailer against a
// locally-computed one) and SubscribeGeneric (follows the generic
// byte-stream/SSE surface until the server's shutdown sentinel).
package client
