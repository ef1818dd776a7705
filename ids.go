package foxglove

import "sync/atomic"

// ChannelID identifies a channel within a Context. Unique for the
// lifetime of the context that minted it.
type ChannelID uint64

// SinkID identifies a sink attached to a Context. Unique for the lifetime
// of the process.
type SinkID uint64

// ClientID identifies a connected WebSocket client. Unique for the
// lifetime of the process.
type ClientID uint32

// SubscriptionID is a client-scoped identifier a client chooses when it
// subscribes to a channel; it appears on every outbound data frame for
// that subscription so the client can route messages.
type SubscriptionID uint32

// ServiceID identifies a registered service. Unique for the lifetime of
// the server that registered it.
type ServiceID uint32

// CallID identifies a single request/response exchange on a service,
// chosen by the calling client. Only unique per (ClientID, CallID) pair.
type CallID uint32

// idCounter mints monotonically increasing ids starting at 1, so the
// zero value of each ID type can be used as "unset".
type idCounter struct {
	next atomic.Uint64
}

func (c *idCounter) mint() uint64 {
	return c.next.Add(1)
}

var (
	channelIDCounter idCounter
	sinkIDCounter    idCounter
	clientIDCounter  idCounter
)

func nextChannelID() ChannelID { return ChannelID(channelIDCounter.mint()) }
func nextSinkID() SinkID       { return SinkID(sinkIDCounter.mint()) }
func nextClientID() ClientID   { return ClientID(clientIDCounter.mint()) }
