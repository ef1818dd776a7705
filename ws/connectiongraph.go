package ws

import (
	"fmt"
	"sort"
	"sync"

	fg "github.com/foxglove/foxglove-go"
	"github.com/foxglove/foxglove-go/ws/protocol"
)

// connectionGraphStore holds no topology or usage state; the topology is
// recomputed on demand from live server state (channels,
// client subscriptions, client-advertised channels, services) rather
// than accumulated incrementally, since subscribed clients only need to
// observe the current topology on change, not every intermediate edit.
type connectionGraphStore struct {
	mu sync.Mutex
}

func newConnectionGraphStore() *connectionGraphStore {
	return &connectionGraphStore{}
}

// sendConnectionGraphSnapshot computes the current topology and delivers
// it to cs alone, used on initial subscribe; later changes reach
// subscribers through broadcastConnectionGraph.
func (s *Server) sendConnectionGraphSnapshot(cs *ClientSession) {
	update := s.buildConnectionGraph()
	cs.enqueue(cs.marshalOrLog(update), true)
}

// maybeBroadcastConnectionGraph is the cheap entry point called from
// subscription/advertisement handlers: it skips the topology rebuild
// entirely when the capability was never enabled.
func (s *Server) maybeBroadcastConnectionGraph() {
	if !s.capabilities.has(protocol.CapabilityConnectionGraph) {
		return
	}
	s.broadcastConnectionGraph()
}

// broadcastConnectionGraph recomputes the topology and pushes it to every
// client that has subscribed, called whenever a channel, client channel,
// subscription, or service registration changes.
func (s *Server) broadcastConnectionGraph() {
	update := s.buildConnectionGraph()
	frame, err := protocol.EncodeJSON(update)
	if err != nil {
		return
	}
	s.broadcast(frame, func(cs *ClientSession) bool { return cs.wantsConnectionGraph() })
}

func (s *Server) buildConnectionGraph() protocol.ConnectionGraphUpdate {
	published := make(map[string]map[string]struct{})
	subscribed := make(map[string]map[string]struct{})

	for _, ch := range s.snapshotChannels() {
		addEdge(published, ch.Topic, "server")
	}

	s.mu.Lock()
	sessions := make([]*ClientSession, 0, len(s.clients))
	for _, cs := range s.clients {
		sessions = append(sessions, cs)
	}
	s.mu.Unlock()

	for _, cs := range sessions {
		clientName := fmt.Sprintf("client:%d", cs.ID())

		cs.mu.Lock()
		for _, info := range cs.clientChannels {
			addEdge(published, info.topic, clientName)
		}
		channels := make([]fg.ChannelID, 0, len(cs.subscribersByChannel))
		for chanID := range cs.subscribersByChannel {
			channels = append(channels, chanID)
		}
		cs.mu.Unlock()

		for _, chanID := range channels {
			if d, ok := s.channelDescriptor(chanID); ok {
				addEdge(subscribed, d.Topic, clientName)
			}
		}
	}

	services := make(map[string]map[string]struct{})
	for _, svc := range s.services.list() {
		addEdge(services, svc.Name, "server")
	}

	return protocol.ConnectionGraphUpdate{
		Op:                 protocol.OpConnectionGraphUpdate,
		PublishedTopics:    toGraphEntries(published),
		SubscribedTopics:   toGraphEntries(subscribed),
		AdvertisedServices: toGraphEntries(services),
	}
}

func addEdge(m map[string]map[string]struct{}, name, id string) {
	if m[name] == nil {
		m[name] = make(map[string]struct{})
	}
	m[name][id] = struct{}{}
}

func toGraphEntries(m map[string]map[string]struct{}) []protocol.GraphMapEntry {
	out := make([]protocol.GraphMapEntry, 0, len(m))
	for name, idSet := range m {
		ids := make([]string, 0, len(idSet))
		for id := range idSet {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out = append(out, protocol.GraphMapEntry{Name: name, IDs: ids})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
