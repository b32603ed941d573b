package cq

type callState int

const (
	stateCreate callState = iota
	stateProcess
	stateFinish
)

// typedCallData is one in-flight (or armed-and-waiting) typed RPC, the Go
// analogue of the grpc++ CallData template in
// original_source/stuff/server.cc and
// original_source/include/grpc++/unstructured.h. Its CREATE step arms the
// slot and moves it to stateProcess, where exactly one typedCallData per
// method slot waits for a request; proceed advances it through PROCESS to
// FINISH exactly like the original's switch-on-status_ Proceed method,
// with the arrival of a request spawning a sibling so the slot is always
// armed (§3, §5).
type typedCallData struct {
	server *Server
	slot   *methodSlot
	state  callState
	call   *call
	ctx    *ServerContext
}

// newTypedCallData constructs and arms a CallData for slot, mirroring the
// original's `CallData(...) { Proceed(true); }` constructor.
func newTypedCallData(server *Server, slot *methodSlot) *typedCallData {
	d := &typedCallData{server: server, slot: slot, state: stateCreate}
	d.proceed(true)
	return d
}

func (d *typedCallData) proceed(ok bool) {
	switch d.state {
	case stateCreate:
		if !ok {
			d.state = stateFinish
			return
		}
		d.state = stateProcess
		d.armRequest()

	case stateProcess:
		if !ok {
			// The wait for a request was cancelled (server shutting down
			// before any call arrived). No sibling needed: the slot is
			// being torn down along with the server.
			d.state = stateFinish
			return
		}
		// Keep the slot armed for the next caller before running this
		// call's (potentially long-running) handler.
		newTypedCallData(d.server, d.slot)

		d.ctx = d.server.newServerContext(d.call)
		info := DispatchInfo{
			Method:            d.call.method,
			MethodType:        d.slot.handler.dispatchMethodType(),
			ServerID:          d.server.serverID,
			RequestID:         d.call.requestID,
			TransportMetadata: d.call.metadata,
		}
		stats := &CallStatistics{}
		tokens := make([]HookToken, len(d.server.hooks))
		hookCtx := d.ctx.Ctx
		for i, hook := range d.server.hooks {
			hookCtx, tokens[i] = hook.OnDispatchStart(hookCtx, info)
		}
		d.ctx.Ctx = hookCtx

		ok2 := d.slot.handler.run(d.call, d.ctx)

		dispatchErr := d.call.lastStatus.Err()
		for i, hook := range d.server.hooks {
			hook.OnDispatchEnd(hookCtx, tokens[i], info, stats, dispatchErr)
		}

		d.state = stateFinish
		d.server.cq.Push(d, ok2)

	case stateFinish:
		d.call.Close()
	}
}

func (d *typedCallData) armRequest() {
	go func() {
		select {
		case c := <-d.slot.incoming:
			d.call = c
			d.server.cq.Push(d, true)
		case <-d.server.done:
			d.server.cq.Push(d, false)
		}
	}()
}
