package cq

import "fmt"

// respondUnknownMethod answers a call against an unregistered method with
// an UNIMPLEMENTED status whose message is a small diagnostic HTML text
// naming the rejected method (§4.5, grpc++'s UnknownMethodHandler). The
// HTML travels only in the status message; no response message is sent.
func respondUnknownMethod(c *call, ctx *ServerContext, method string) error {
	body := fmt.Sprintf(`<html><body><h1>Unimplemented</h1><p>Method %q is not registered on this server.</p></body></html>`, method)
	status := errUnimplemented(method).Status
	status.Message = body
	return c.respondUnary(ctx, nil, status)
}
