// Package foxglovetest provides Sink fixtures (MockSink, ErrorSink) for
// testing code built on top of the foxglove package.
package foxglovetest

import (
	"sync"

	fg "github.com/foxglove/foxglove-go"
)

// RecordedMessage captures a single Sink.Record call.
type RecordedMessage struct {
	Descriptor *fg.ChannelDescriptor
	Payload    []byte
	Metadata   fg.Metadata
}

// MockSink records every call it receives, for asserting fan-out
// behavior in tests without standing up a real recording file or
// WebSocket server.
type MockSink struct {
	mu sync.Mutex

	messages        []RecordedMessage
	channelsAdded   []*fg.ChannelDescriptor
	channelsRemoved []*fg.ChannelDescriptor

	// Filter, if non-nil, is consulted by SubscriptionFilter; a nil
	// Filter admits every channel, matching NopLifecycle's default.
	Filter func(*fg.ChannelDescriptor) bool
}

func NewMockSink() *MockSink { return &MockSink{} }

func (s *MockSink) Record(descriptor *fg.ChannelDescriptor, payload []byte, metadata fg.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.messages = append(s.messages, RecordedMessage{Descriptor: descriptor, Payload: cp, Metadata: metadata})
	return nil
}

func (s *MockSink) OnChannelAdded(descriptor *fg.ChannelDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelsAdded = append(s.channelsAdded, descriptor)
}

func (s *MockSink) OnChannelRemoved(descriptor *fg.ChannelDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelsRemoved = append(s.channelsRemoved, descriptor)
}

func (s *MockSink) SubscriptionFilter(descriptor *fg.ChannelDescriptor) bool {
	if s.Filter == nil {
		return true
	}
	return s.Filter(descriptor)
}

// Messages returns a snapshot of every message recorded so far.
func (s *MockSink) Messages() []RecordedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// ChannelsAdded returns a snapshot of descriptors passed to
// OnChannelAdded, in call order.
func (s *MockSink) ChannelsAdded() []*fg.ChannelDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*fg.ChannelDescriptor, len(s.channelsAdded))
	copy(out, s.channelsAdded)
	return out
}

// ChannelsRemoved returns a snapshot of descriptors passed to
// OnChannelRemoved, in call order.
func (s *MockSink) ChannelsRemoved() []*fg.ChannelDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*fg.ChannelDescriptor, len(s.channelsRemoved))
	copy(out, s.channelsRemoved)
	return out
}

// ErrorSink always fails Record with Err, for exercising a Context's
// per-sink error isolation (one broken sink must not affect others).
type ErrorSink struct {
	fg.NopLifecycle
	Err error
}

func NewErrorSink(err error) *ErrorSink { return &ErrorSink{Err: err} }

func (s *ErrorSink) Record(*fg.ChannelDescriptor, []byte, fg.Metadata) error { return s.Err }
