// Package server assembles the demo RPC services on top of a cq.Builder.
//
// NewServer registers six methods, in four groups:
//  1. Hello, a Unary greeter.
//  2. Arithmetic.Sum, Arithmetic.Product and Arithmetic.Quotient, three
//     Unary formulas over a pair of integers.
//  3. Sequence, a ServerStream that generates a random sequence of a
//     client-requested length and streams it back one value at a time,
//     setting a "checksum" trailer with the sum of the sequence once
//     streaming completes.
//  4. Admin.Publish, a Unary that feeds its payload into the server's Fan
//     for delivery to every generic-stream subscriber.
//
// Start opens the configured listeners and launches the dispatch loop; the
// returned *cq.Server accepts both the typed binary RPC protocol and the
// generic byte-stream/SSE surface on the same listening port.
package server
