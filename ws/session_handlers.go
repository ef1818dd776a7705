package ws

import (
	"encoding/base64"
	"fmt"

	fg "github.com/foxglove/foxglove-go"
	"github.com/foxglove/foxglove-go/ws/protocol"
)

func (cs *ClientSession) handleSubscribe(m protocol.Subscribe) {
	cs.mu.Lock()

	for _, pair := range m.Subscriptions {
		subID := fg.SubscriptionID(pair.ID)
		chanID := fg.ChannelID(pair.ChannelID)

		if _, exists := cs.subscriptions[subID]; exists {
			// Duplicate subscription id, or a replace attempt: reject
			// rather than silently mutating the existing subscription.
			cs.sendStatusLocked(protocol.StatusWarning, fmt.Sprintf("subscription id %d already in use", pair.ID))
			if cs.server.metrics != nil {
				cs.server.metrics.SubscriptionRejected()
			}
			continue
		}

		if !cs.server.hasChannel(chanID) {
			cs.sendStatusLocked(protocol.StatusWarning, fmt.Sprintf("unknown channel id %d", pair.ChannelID))
			if cs.server.metrics != nil {
				cs.server.metrics.SubscriptionRejected()
			}
			continue
		}

		cs.subscriptions[subID] = chanID
		if cs.subscribersByChannel[chanID] == nil {
			cs.subscribersByChannel[chanID] = make(map[fg.SubscriptionID]struct{})
		}
		cs.subscribersByChannel[chanID][subID] = struct{}{}
		if cs.server.metrics != nil {
			cs.server.metrics.SubscriptionAdded()
		}
	}
	cs.mu.Unlock()
	cs.server.maybeBroadcastConnectionGraph()
}

func (cs *ClientSession) handleUnsubscribe(m protocol.Unsubscribe) {
	cs.mu.Lock()
	for _, rawID := range m.SubscriptionIDs {
		subID := fg.SubscriptionID(rawID)
		chanID, ok := cs.subscriptions[subID]
		if !ok {
			continue
		}
		delete(cs.subscriptions, subID)
		if set := cs.subscribersByChannel[chanID]; set != nil {
			delete(set, subID)
			if len(set) == 0 {
				delete(cs.subscribersByChannel, chanID)
			}
		}
		if cs.server.metrics != nil {
			cs.server.metrics.SubscriptionRemoved()
		}
	}
	cs.mu.Unlock()
	cs.server.maybeBroadcastConnectionGraph()
}

func (cs *ClientSession) handleClientAdvertise(m protocol.ClientAdvertise) {
	if !cs.server.capabilities.has(protocol.CapabilityClientPublish) {
		cs.protocolViolation("advertise requires the clientPublish capability")
		return
	}

	cs.mu.Lock()

	for _, ch := range m.Channels {
		if ch.Schema != "" {
			if _, err := base64.StdEncoding.DecodeString(ch.Schema); err != nil {
				cs.sendStatusLocked(protocol.StatusWarning, fmt.Sprintf("channel %d: schema does not decode as %s", ch.ID, ch.SchemaEncoding))
				continue
			}
		}
		info := clientChannelInfo{id: ch.ID, topic: ch.Topic, encoding: ch.Encoding, schemaEncoding: ch.SchemaEncoding}
		cs.clientChannels[ch.ID] = info
		cs.server.notifyClientChannel(cs.id, ch)
	}
	cs.mu.Unlock()
	cs.server.maybeBroadcastConnectionGraph()
}

func (cs *ClientSession) handleClientUnadvertise(m protocol.ClientUnadvertise) {
	cs.mu.Lock()
	for _, id := range m.ChannelIDs {
		delete(cs.clientChannels, id)
	}
	cs.mu.Unlock()
	cs.server.maybeBroadcastConnectionGraph()
}

func (cs *ClientSession) handleClientMessageData(m protocol.ClientMessageData) {
	cs.mu.Lock()
	_, ok := cs.clientChannels[m.ChannelID]
	cs.mu.Unlock()
	if !ok {
		cs.protocolViolation(fmt.Sprintf("message data for unadvertised channel %d", m.ChannelID))
		return
	}
	cs.server.notifyClientMessage(cs.id, m.ChannelID, m.Payload)
}

func (cs *ClientSession) handleSubscribeParameterUpdates(m protocol.SubscribeParameterUpdates) {
	if !cs.server.capabilities.has(protocol.CapabilityParameters) {
		cs.protocolViolation("subscribeParameterUpdates requires the parameters capability")
		return
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if len(m.ParameterNames) == 0 {
		cs.paramSubscribeAll = true
		return
	}
	for _, name := range m.ParameterNames {
		cs.paramNames[name] = struct{}{}
	}
}

func (cs *ClientSession) handleUnsubscribeParameterUpdates(m protocol.UnsubscribeParameterUpdates) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if len(m.ParameterNames) == 0 {
		cs.paramSubscribeAll = false
		cs.paramNames = make(map[string]struct{})
		return
	}
	for _, name := range m.ParameterNames {
		delete(cs.paramNames, name)
	}
}

func (cs *ClientSession) handleSubscribeConnectionGraph() {
	if !cs.server.capabilities.has(protocol.CapabilityConnectionGraph) {
		cs.protocolViolation("subscribeConnectionGraph requires the connectionGraph capability")
		return
	}
	cs.mu.Lock()
	cs.graphSubscribed = true
	cs.mu.Unlock()
	cs.server.sendConnectionGraphSnapshot(cs)
}

func (cs *ClientSession) handleUnsubscribeConnectionGraph() {
	cs.mu.Lock()
	cs.graphSubscribed = false
	cs.mu.Unlock()
}

// wantsParameter reports whether this client's subscription state admits
// updates to the named parameter.
func (cs *ClientSession) wantsParameter(name string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.paramSubscribeAll {
		return true
	}
	_, ok := cs.paramNames[name]
	return ok
}

func (cs *ClientSession) wantsConnectionGraph() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.graphSubscribed
}

// subscriptionsFor returns the subscription ids this client has active
// for chanID, or nil if none.
func (cs *ClientSession) subscriptionsFor(chanID fg.ChannelID) []fg.SubscriptionID {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	set := cs.subscribersByChannel[chanID]
	if len(set) == 0 {
		return nil
	}
	out := make([]fg.SubscriptionID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
