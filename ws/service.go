package ws

import (
	"fmt"
	"sync"
	"time"

	fg "github.com/foxglove/foxglove-go"
	"github.com/foxglove/foxglove-go/ws/protocol"
)

// ServiceHandler invokes a registered service for a single call. It runs
// off the reader goroutine (via the server's Runtime), so handlers may
// block without stalling other clients.
type ServiceHandler func(request []byte, encoding string) (response []byte, responseEncoding string, err error)

// Service is a single registered RPC endpoint, advertised to clients as
// a ServiceDef and invoked over the binary service-call frames. Requests
// carry a caller-chosen call id, and the server replies asynchronously
// on whatever schedule the handler completes.
type Service struct {
	ID             fg.ServiceID
	Name           string
	RequestSchema  string
	ResponseSchema string
	Type           string
	Handler        ServiceHandler
}

func serviceDefs(svcs []*Service) []protocol.ServiceDef {
	out := make([]protocol.ServiceDef, 0, len(svcs))
	for _, s := range svcs {
		out = append(out, protocol.ServiceDef{
			ID:             uint32(s.ID),
			Name:           s.Name,
			RequestSchema:  s.RequestSchema,
			ResponseSchema: s.ResponseSchema,
			Type:           s.Type,
		})
	}
	return out
}

// serviceMap is the server's registry of services, keyed both by id and
// name so a name-based RemoveService stays cheap.
type serviceMap struct {
	mu      sync.Mutex
	byID    map[fg.ServiceID]*Service
	byName  map[string]fg.ServiceID
	counter fg.ServiceID
}

func newServiceMap() *serviceMap {
	return &serviceMap{
		byID:   make(map[fg.ServiceID]*Service),
		byName: make(map[string]fg.ServiceID),
	}
}

func (m *serviceMap) insert(svc *Service) fg.ServiceID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	svc.ID = m.counter
	m.byID[svc.ID] = svc
	m.byName[svc.Name] = svc.ID
	return svc.ID
}

func (m *serviceMap) removeByName(name string) (fg.ServiceID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byName[name]
	if !ok {
		return 0, false
	}
	delete(m.byName, name)
	delete(m.byID, id)
	return id, true
}

func (m *serviceMap) get(id fg.ServiceID) (*Service, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	return s, ok
}

func (m *serviceMap) list() []*Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Service, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	return out
}

// handleServiceCall dispatches a decoded ServiceCallRequest onto the
// server's Runtime so a slow handler never blocks the client's reader
// goroutine. The response is delivered through a weak ClientHandle so a
// client that disconnects mid-call is never kept alive by the in-flight
// request.
func (s *Server) handleServiceCall(cs *ClientSession, m protocol.ServiceCallRequest) {
	if !s.capabilities.has(protocol.CapabilityServices) {
		cs.protocolViolation("service calls require the services capability")
		return
	}

	svc, ok := s.services.get(fg.ServiceID(m.ServiceID))
	if !ok {
		cs.enqueue(cs.marshalOrLog(protocol.ServiceCallFailure{
			Op:        protocol.OpServiceCallFailure,
			ServiceID: m.ServiceID,
			CallID:    m.CallID,
			Message:   fmt.Sprintf("unknown service id %d", m.ServiceID),
		}), true)
		return
	}

	handle := newClientHandle(cs)
	err := s.runtime.Spawn(func() {
		started := time.Now()
		resp, encoding, err := svc.Handler(m.Payload, m.Encoding)
		if s.metrics != nil {
			s.metrics.ServiceCall(time.Since(started), err)
		}
		if err != nil {
			b, _ := protocol.EncodeJSON(protocol.ServiceCallFailure{
				Op:        protocol.OpServiceCallFailure,
				ServiceID: m.ServiceID,
				CallID:    m.CallID,
				Message:   err.Error(),
			})
			handle.enqueue(b)
			return
		}
		handle.enqueue(protocol.EncodeServiceCallResponse(protocol.ServiceCallResponse{
			ServiceID: m.ServiceID,
			CallID:    m.CallID,
			Encoding:  encoding,
			Payload:   resp,
		}))
	})
	if err != nil {
		cs.enqueue(cs.marshalOrLog(protocol.ServiceCallFailure{
			Op:        protocol.OpServiceCallFailure,
			ServiceID: m.ServiceID,
			CallID:    m.CallID,
			Message:   "server is shutting down",
		}), true)
	}
}
