package ws

import (
	"encoding/base64"

	fg "github.com/foxglove/foxglove-go"
	"github.com/foxglove/foxglove-go/ws/protocol"
)

// Server implements fg.Sink: attaching it to a Context (done automatically
// by NewServer) makes every Channel.Log call fan out to subscribed
// clients, exactly as a recording sink fans out to an MCAP file. The
// fan-out key is whichever channel a client has subscribed to.
var _ fg.Sink = (*Server)(nil)

// Record encodes payload as a MessageData frame for every client
// currently subscribed to descriptor's channel and enqueues it as a
// droppable data frame, applying each client's independent backpressure
// policy.
func (s *Server) Record(descriptor *fg.ChannelDescriptor, payload []byte, metadata fg.Metadata) error {
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
		subIDs := cs.subscriptionsFor(descriptor.ID)
		for _, subID := range subIDs {
			frame := protocol.EncodeMessageData(protocol.MessageData{
				SubscriptionID: uint32(subID),
				LogTime:        metadata.LogTime,
				Payload:        payload,
			})
			cs.enqueue(frame, false)
			if s.metrics != nil {
				s.metrics.DataFrameSent(len(frame))
			}
		}
	}
	return nil
}

// OnChannelAdded records descriptor for handshake-time advertisement and
// announces it to already-connected clients.
func (s *Server) OnChannelAdded(descriptor *fg.ChannelDescriptor) {
	s.channelsMu.Lock()
	s.channels[descriptor.ID] = descriptor
	s.channelsMu.Unlock()

	frame, err := protocol.EncodeJSON(protocol.Advertise{
		Op:       protocol.OpAdvertise,
		Channels: []protocol.Channel{toWireChannel(descriptor)},
	})
	if err != nil {
		return
	}
	s.broadcast(frame, nil)
	s.maybeBroadcastConnectionGraph()
}

// OnChannelRemoved drops descriptor from the advertised set and tells
// connected clients to forget it, which implicitly invalidates any
// subscriptions they held (further Record calls for this id never
// happen again once Context.CloseChannel has run).
func (s *Server) OnChannelRemoved(descriptor *fg.ChannelDescriptor) {
	s.channelsMu.Lock()
	delete(s.channels, descriptor.ID)
	s.channelsMu.Unlock()

	frame, err := protocol.EncodeJSON(protocol.Unadvertise{
		Op:         protocol.OpUnadvertise,
		ChannelIDs: []uint32{uint32(descriptor.ID)},
	})
	if err != nil {
		return
	}
	s.broadcast(frame, nil)
	s.maybeBroadcastConnectionGraph()
}

// SubscriptionFilter admits every channel; which clients actually receive
// a given message is decided per-client inside Record by subscription
// state, not by this context-wide filter.
func (s *Server) SubscriptionFilter(*fg.ChannelDescriptor) bool { return true }

func (s *Server) channelDescriptor(id fg.ChannelID) (*fg.ChannelDescriptor, bool) {
	s.channelsMu.Lock()
	defer s.channelsMu.Unlock()
	d, ok := s.channels[id]
	return d, ok
}

func (s *Server) snapshotChannels() []protocol.Channel {
	s.channelsMu.Lock()
	defer s.channelsMu.Unlock()
	out := make([]protocol.Channel, 0, len(s.channels))
	for _, d := range s.channels {
		out = append(out, toWireChannel(d))
	}
	return out
}

func toWireChannel(d *fg.ChannelDescriptor) protocol.Channel {
	ch := protocol.Channel{
		ID:       uint32(d.ID),
		Topic:    d.Topic,
		Encoding: d.MessageEncoding,
		Metadata: d.Metadata,
	}
	if d.Schema != nil {
		ch.SchemaName = d.Schema.Name
		ch.SchemaEncoding = d.Schema.Encoding
		ch.Schema = base64.StdEncoding.EncodeToString(d.Schema.Data)
	}
	return ch
}
