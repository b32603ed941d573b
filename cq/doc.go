// Package cq implements a completion-queue-driven RPC server core that
// presents a synchronous, service-author-friendly API on top of an
// asynchronous tag-dispatch runtime.
//
// A Server owns one CompletionQueue and, by default, a single dispatcher
// goroutine that drains it (Builder.SetWorkerCount raises that number); every in-flight call is represented by a callData state
// machine addressed by the tag (its own pointer) the transport echoes back
// on every completion event. Typed methods (Unary, ClientStream,
// ServerStream, BidiStream, StreamedUnary, SplitServerStream) share the
// CREATE/PROCESS/FINISH skeleton described in DESIGN.md; the generic
// byte-stream endpoint bypasses the queue entirely and is served directly
// on its accept goroutine, blocking on a Fan mailbox between publishes.
package cq
