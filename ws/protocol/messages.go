package protocol

// Every JSON message carries an "op" discriminator field. camelCase is
// used throughout for field names, and unknown fields on decode are
// ignored automatically by encoding/json's default behavior (we never
// set DisallowUnknownFields).

// SubscribePair is one (subscription_id, channel_id) pairing inside a
// Subscribe message.
type SubscribePair struct {
	ID        uint32 `json:"id"`
	ChannelID uint32 `json:"channelId"`
}

// Subscribe is sent by a client to begin receiving data for channels.
type Subscribe struct {
	Op            string          `json:"op"`
	Subscriptions []SubscribePair `json:"subscriptions"`
}

// Unsubscribe is sent by a client to stop receiving data for
// subscriptions it previously created.
type Unsubscribe struct {
	Op              string   `json:"op"`
	SubscriptionIDs []uint32 `json:"subscriptionIds"`
}

// ClientChannel describes a channel a client wants to publish on.
type ClientChannel struct {
	ID              uint32            `json:"id"`
	Topic           string            `json:"topic"`
	Encoding        string            `json:"encoding"`
	SchemaName      string            `json:"schemaName"`
	Schema          string            `json:"schema,omitempty"`
	SchemaEncoding  string            `json:"schemaEncoding,omitempty"`
}

// Advertise (client→server) declares channels the client intends to
// publish on. It is only accepted when CapabilityClientPublish was
// advertised.
type ClientAdvertise struct {
	Op       string          `json:"op"`
	Channels []ClientChannel `json:"channels"`
}

// Unadvertise (client→server) retires previously advertised client
// channels.
type ClientUnadvertise struct {
	Op         string   `json:"op"`
	ChannelIDs []uint32 `json:"channelIds"`
}

// GetParameters requests the current value of named parameters. An empty
// ParameterNames list means "all parameters".
type GetParameters struct {
	Op             string   `json:"op"`
	ParameterNames []string `json:"parameterNames"`
	ID             string   `json:"id,omitempty"`
}

// SetParameters requests the server update the given parameters.
type SetParameters struct {
	Op         string      `json:"op"`
	Parameters []Parameter `json:"parameters"`
	ID         string      `json:"id,omitempty"`
}

// SubscribeParameterUpdates subscribes the client to change
// notifications for the named parameters; an empty list means "all".
type SubscribeParameterUpdates struct {
	Op             string   `json:"op"`
	ParameterNames []string `json:"parameterNames"`
}

// UnsubscribeParameterUpdates removes a prior parameter-update
// subscription.
type UnsubscribeParameterUpdates struct {
	Op             string   `json:"op"`
	ParameterNames []string `json:"parameterNames"`
}

// SubscribeConnectionGraph subscribes the client to connection graph
// updates.
type SubscribeConnectionGraph struct {
	Op string `json:"op"`
}

// UnsubscribeConnectionGraph removes the connection graph subscription.
type UnsubscribeConnectionGraph struct {
	Op string `json:"op"`
}

// FetchAsset requests the asset at uri, identified by request_id so the
// response can be correlated.
type FetchAsset struct {
	Op        string `json:"op"`
	RequestID uint32 `json:"requestId"`
	URI       string `json:"uri"`
}

// --- Server → client ---

// ServerInfo is the first message a client receives after a successful
// handshake.
type ServerInfo struct {
	Op                 string            `json:"op"`
	Name               string            `json:"name"`
	Capabilities       []Capability      `json:"capabilities"`
	SupportedEncodings []string          `json:"supportedEncodings,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	SessionID          string            `json:"sessionId,omitempty"`
}

// Channel describes a server-advertised channel as sent in an Advertise
// message; ChannelID equals the originating Context's ChannelID.
type Channel struct {
	ID              uint32            `json:"id"`
	Topic           string            `json:"topic"`
	Encoding        string            `json:"encoding"`
	SchemaName      string            `json:"schemaName,omitempty"`
	Schema          string            `json:"schema,omitempty"`
	SchemaEncoding  string            `json:"schemaEncoding,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Advertise (server→client) announces channels available for
// subscription.
type Advertise struct {
	Op       string    `json:"op"`
	Channels []Channel `json:"channels"`
}

// Unadvertise (server→client) retires channels, e.g. on Context.CloseChannel.
type Unadvertise struct {
	Op         string   `json:"op"`
	ChannelIDs []uint32 `json:"channelIds"`
}

// ServiceDef describes a registered service as sent in AdvertiseServices.
type ServiceDef struct {
	ID             uint32 `json:"id"`
	Name           string `json:"name"`
	RequestSchema  string `json:"requestSchema,omitempty"`
	ResponseSchema string `json:"responseSchema,omitempty"`
	Type           string `json:"type,omitempty"`
}

// AdvertiseServices announces registered services.
type AdvertiseServices struct {
	Op       string       `json:"op"`
	Services []ServiceDef `json:"services"`
}

// UnadvertiseServices retires services.
type UnadvertiseServices struct {
	Op         string   `json:"op"`
	ServiceIDs []uint32 `json:"serviceIds"`
}

// StatusLevel is the severity of a Status message.
type StatusLevel uint8

const (
	StatusInfo StatusLevel = iota
	StatusWarning
	StatusError
)

// Status reports a non-fatal condition to a client: a dropped data
// frame, a rejected subscription, a protocol violation preceding
// disconnection.
type Status struct {
	Op      string      `json:"op"`
	Level   StatusLevel `json:"level"`
	Message string      `json:"message"`
	ID      string      `json:"id,omitempty"`
}

// RemoveStatus clears previously sent Status messages by id.
type RemoveStatus struct {
	Op        string   `json:"op"`
	StatusIDs []string `json:"statusIds"`
}

// Parameter is a single named, typed value in the parameter store.
type Parameter struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
	Type  string      `json:"type,omitempty"`
}

// ParameterValues carries the current value of one or more parameters,
// either in response to GetParameters/SetParameters or as a
// subscription-driven push.
type ParameterValues struct {
	Op         string      `json:"op"`
	Parameters []Parameter `json:"parameters"`
	ID         string      `json:"id,omitempty"`
}

// ServiceCallFailure reports that a service call could not be dispatched
// or that the handler returned an error.
type ServiceCallFailure struct {
	Op        string `json:"op"`
	ServiceID uint32 `json:"serviceId"`
	CallID    uint32 `json:"callId"`
	Message   string `json:"message"`
}

// AssetStatus is the outcome of an asset fetch reported over JSON (the
// success path instead travels as a binary FetchAssetResponseFrame).
type AssetStatus string

const (
	AssetStatusError AssetStatus = "error"
)

// FetchAssetResponse reports an asset-fetch failure. On success, the
// server instead sends a binary FetchAssetResponseFrame.
type FetchAssetResponse struct {
	Op        string      `json:"op"`
	RequestID uint32      `json:"requestId"`
	Status    AssetStatus `json:"status"`
	Error     string      `json:"error,omitempty"`
}

// GraphMapEntry is one (name -> publisher/subscriber ids) entry in a
// ConnectionGraphUpdate.
type GraphMapEntry struct {
	Name string   `json:"name"`
	IDs  []string `json:"ids"`
}

// ConnectionGraphUpdate is the server's authoritative summary of
// publishers, subscribers, and services, broadcast to subscribed clients
// on change.
type ConnectionGraphUpdate struct {
	Op                 string          `json:"op"`
	PublishedTopics    []GraphMapEntry `json:"publishedTopics"`
	SubscribedTopics   []GraphMapEntry `json:"subscribedTopics"`
	AdvertisedServices []GraphMapEntry `json:"advertisedServices"`
}
