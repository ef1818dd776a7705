package ws

import "weak"

// ClientHandle is a weak reference to a ClientSession, used by service
// and asset response paths so that holding a handle past a client's
// disconnect never keeps the session (or its socket) alive. Operations
// performed through a dead handle are silent no-ops.
type ClientHandle struct {
	ptr weak.Pointer[ClientSession]
}

func newClientHandle(cs *ClientSession) ClientHandle {
	return ClientHandle{ptr: weak.Make(cs)}
}

// enqueue delivers frame to the session if it is still alive, always as
// a control frame (service/asset responses are control frames: they must
// not be dropped by ordinary data backpressure).
func (h ClientHandle) enqueue(frame []byte) {
	cs := h.ptr.Value()
	if cs == nil {
		return
	}
	cs.enqueue(frame, true)
}
