package foxglove

// Channel is a typed handle bound to a Context and a topic, producing the
// Log entry point. Construct one with NewChannel or ChannelBuilder.
type Channel struct {
	context    *Context
	descriptor *ChannelDescriptor
}

// ChannelBuilder constructs a Channel against a Context, defaulting to
// DefaultContext when Context is left nil.
type ChannelBuilder struct {
	Topic           string
	MessageEncoding string
	Schema          *Schema
	Metadata        map[string]string
	Context         *Context
}

// Build registers the channel and returns a handle to it. It fails with
// ErrTopicAlreadyInUse if another live channel already occupies the same
// topic in this context.
func (b ChannelBuilder) Build() (*Channel, error) {
	ctx := b.Context
	if ctx == nil {
		ctx = DefaultContext()
	}
	descriptor, err := ctx.RegisterChannel(b.Topic, b.MessageEncoding, b.Metadata, b.Schema)
	if err != nil {
		return nil, err
	}
	return &Channel{context: ctx, descriptor: descriptor}, nil
}

// NewChannel is shorthand for ChannelBuilder{Topic: topic, ...}.Build()
// against DefaultContext.
func NewChannel(topic, messageEncoding string, schema *Schema) (*Channel, error) {
	return ChannelBuilder{Topic: topic, MessageEncoding: messageEncoding, Schema: schema}.Build()
}

// ID returns the channel's id within its context.
func (ch *Channel) ID() ChannelID { return ch.descriptor.ID }

// Descriptor returns the channel's immutable descriptor.
func (ch *Channel) Descriptor() *ChannelDescriptor { return ch.descriptor }

// Log publishes payload on the channel, fanning it out to every sink
// attached to the channel's context. metadata.LogTime defaults to "now"
// when left unset.
func (ch *Channel) Log(payload []byte, metadata PartialMetadata) {
	ch.context.Log(ch.descriptor.ID, payload, metadata)
}

// Close closes the channel; see Context.CloseChannel.
func (ch *Channel) Close() {
	ch.context.CloseChannel(ch.descriptor.ID)
}
