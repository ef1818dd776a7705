package ws

import (
	"sync"

	"github.com/foxglove/foxglove-go/ws/protocol"
)

// parameterStore is the server's authoritative table of named parameter
// values. Values are opaque to the transport: whatever the embedder
// sets is echoed back verbatim to getParameters/setParameters callers
// and to subscribers.
type parameterStore struct {
	mu     sync.Mutex
	values map[string]protocol.Parameter
}

func newParameterStore() *parameterStore {
	return &parameterStore{values: make(map[string]protocol.Parameter)}
}

func (p *parameterStore) get(names []string) []protocol.Parameter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(names) == 0 {
		out := make([]protocol.Parameter, 0, len(p.values))
		for _, v := range p.values {
			out = append(out, v)
		}
		return out
	}
	out := make([]protocol.Parameter, 0, len(names))
	for _, name := range names {
		if v, ok := p.values[name]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (p *parameterStore) set(params []protocol.Parameter) []protocol.Parameter {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]protocol.Parameter, 0, len(params))
	for _, param := range params {
		p.values[param.Name] = param
		out = append(out, param)
	}
	return out
}

// SetParameter sets a single parameter from embedder code (e.g. at
// startup) and notifies any subscribed clients, mirroring what a
// setParameters request from a client would do.
func (s *Server) SetParameter(param protocol.Parameter) {
	updated := s.params.set([]protocol.Parameter{param})
	s.notifyParameterChange(updated)
}

func (s *Server) handleGetParameters(cs *ClientSession, m protocol.GetParameters) {
	if !s.capabilities.has(protocol.CapabilityParameters) {
		cs.protocolViolation("getParameters requires the parameters capability")
		return
	}
	values := s.params.get(m.ParameterNames)
	cs.enqueue(cs.marshalOrLog(protocol.ParameterValues{
		Op:         protocol.OpParameterValues,
		Parameters: values,
		ID:         m.ID,
	}), true)
}

func (s *Server) handleSetParameters(cs *ClientSession, m protocol.SetParameters) {
	if !s.capabilities.has(protocol.CapabilityParameters) {
		cs.protocolViolation("setParameters requires the parameters capability")
		return
	}
	updated := s.params.set(m.Parameters)
	cs.enqueue(cs.marshalOrLog(protocol.ParameterValues{
		Op:         protocol.OpParameterValues,
		Parameters: updated,
		ID:         m.ID,
	}), true)
	s.notifyParameterChange(updated)
}

// notifyParameterChange pushes updated values to every client subscribed
// to any of the changed names.
func (s *Server) notifyParameterChange(updated []protocol.Parameter) {
	if len(updated) == 0 {
		return
	}
	s.mu.Lock()
	sessions := make([]*ClientSession, 0, len(s.clients))
	for _, cs := range s.clients {
		sessions = append(sessions, cs)
	}
	s.mu.Unlock()

	for _, cs := range sessions {
		if cs.getState() != stateReady {
			continue
		}
		var admitted []protocol.Parameter
		for _, p := range updated {
			if cs.wantsParameter(p.Name) {
				admitted = append(admitted, p)
			}
		}
		if len(admitted) == 0 {
			continue
		}
		cs.enqueue(cs.marshalOrLog(protocol.ParameterValues{
			Op:         protocol.OpParameterValues,
			Parameters: admitted,
		}), true)
	}
}
