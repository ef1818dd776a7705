package foxglove

import (
	"log"
	"os"
	"sync"
)

// Context is the registry that owns channels and sinks and performs
// fan-out for every Channel.Log call routed through it. Contexts are safe
// for concurrent use.
type Context struct {
	logger *log.Logger

	mu       sync.Mutex // guards channels/topics; never held across Record or I/O
	channels map[ChannelID]*ChannelDescriptor
	topics   map[string]ChannelID

	sinks *sinkSet
}

// NewContext creates a standalone context. Most embedders should use
// DefaultContext unless they need isolated channel/sink namespaces (e.g.
// in tests).
func NewContext() *Context {
	return &Context{
		logger:   log.New(os.Stderr, "[foxglove] ", log.LstdFlags),
		channels: make(map[ChannelID]*ChannelDescriptor),
		topics:   make(map[string]ChannelID),
		sinks:    newSinkSet(),
	}
}

var defaultContext = NewContext()

// DefaultContext returns the process-wide default Context used by
// channels that don't specify one explicitly.
func DefaultContext() *Context { return defaultContext }

// SetLogger overrides the context's logger. Embedders generally call this
// once at startup to route SDK diagnostics through their own logging
// configuration.
func (c *Context) SetLogger(l *log.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
}

// RegisterChannel registers a new channel descriptor and returns the
// minted ChannelID, or ErrTopicAlreadyInUse if a live channel with the
// same topic already exists in this context.
func (c *Context) RegisterChannel(topic, messageEncoding string, metadata map[string]string, schema *Schema) (*ChannelDescriptor, error) {
	c.mu.Lock()
	if _, exists := c.topics[topic]; exists {
		c.mu.Unlock()
		return nil, ErrTopicAlreadyInUse
	}

	id := nextChannelID()
	descriptor := &ChannelDescriptor{
		ID:              id,
		Topic:           topic,
		MessageEncoding: messageEncoding,
		Metadata:        metadata,
		Schema:          schema,
	}
	c.channels[id] = descriptor
	c.topics[topic] = id
	c.mu.Unlock()

	for _, e := range c.sinks.load() {
		if e.sink.SubscriptionFilter(descriptor) {
			e.sink.OnChannelAdded(descriptor)
		}
	}
	return descriptor, nil
}

// CloseChannel closes the channel with the given id. Idempotent: closing
// an already-closed (or never-registered) channel is a no-op. Subsequent
// Log calls against id become no-ops. All sinks that were informed of the
// channel receive OnChannelRemoved, and the topic slot is released for
// re-registration.
func (c *Context) CloseChannel(id ChannelID) {
	c.mu.Lock()
	descriptor, ok := c.channels[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.channels, id)
	if c.topics[descriptor.Topic] == id {
		delete(c.topics, descriptor.Topic)
	}
	c.mu.Unlock()

	for _, e := range c.sinks.load() {
		if e.sink.SubscriptionFilter(descriptor) {
			e.sink.OnChannelRemoved(descriptor)
		}
	}
}

// AddSink attaches sink to the context. The sink immediately receives
// OnChannelAdded for every currently-registered channel its filter
// admits, then is appended to the fan-out set.
func (c *Context) AddSink(sink Sink) SinkID {
	c.mu.Lock()
	descriptors := make([]*ChannelDescriptor, 0, len(c.channels))
	for _, d := range c.channels {
		descriptors = append(descriptors, d)
	}
	c.mu.Unlock()

	for _, d := range descriptors {
		if sink.SubscriptionFilter(d) {
			sink.OnChannelAdded(d)
		}
	}
	return c.sinks.add(sink)
}

// RemoveSink detaches the sink with the given id. It fires
// OnChannelRemoved for every channel it had previously been informed
// about. Removing an id that isn't attached (including one already
// removed) is a no-op.
func (c *Context) RemoveSink(id SinkID) {
	sink, ok := c.sinks.remove(id)
	if !ok {
		return
	}

	c.mu.Lock()
	descriptors := make([]*ChannelDescriptor, 0, len(c.channels))
	for _, d := range c.channels {
		descriptors = append(descriptors, d)
	}
	c.mu.Unlock()

	for _, d := range descriptors {
		if sink.SubscriptionFilter(d) {
			sink.OnChannelRemoved(d)
		}
	}
}

// Log delivers payload, tagged with metadata, to every sink currently
// attached to the context whose filter admits channelID. Errors from an
// individual sink's Record are logged and swallowed: one broken sink
// never blocks or fails delivery to the others. Logging against a closed
// or unknown channel id is a silent no-op.
func (c *Context) Log(channelID ChannelID, payload []byte, metadata PartialMetadata) {
	c.mu.Lock()
	descriptor, ok := c.channels[channelID]
	c.mu.Unlock()
	if !ok {
		return
	}

	resolved := metadata.resolve()
	for _, e := range c.sinks.load() {
		if !e.sink.SubscriptionFilter(descriptor) {
			continue
		}
		if err := e.sink.Record(descriptor, payload, resolved); err != nil {
			c.logSinkError(descriptor, err)
		}
	}
}

func (c *Context) logSinkError(descriptor *ChannelDescriptor, err error) {
	c.mu.Lock()
	logger := c.logger
	c.mu.Unlock()
	if logger != nil {
		logger.Printf("sink error on channel %q (id=%d): %v", descriptor.Topic, descriptor.ID, err)
	}
}
