// Package protocol implements the wire messages of the published
// foxglove.sdk.v1 WebSocket protocol: typed JSON envelopes dispatched on
// an "op" field, and little-endian binary frames dispatched on a leading
// opcode byte. Every message type round-trips: Decode(Encode(m)) == m.
package protocol

// Capability is an opt-in server feature bit advertised in the ServerInfo
// message. Each capability unlocks a family of client-initiated frames.
type Capability string

const (
	// CapabilityClientPublish lets clients advertise channels and publish
	// messages on them.
	CapabilityClientPublish Capability = "clientPublish"

	// CapabilityParameters lets clients get/set parameters and subscribe
	// to updates. Implies CapabilityParametersSubscribe.
	CapabilityParameters Capability = "parameters"

	// CapabilityParametersSubscribe is implied by CapabilityParameters;
	// listed separately because the published protocol advertises both
	// tokens.
	CapabilityParametersSubscribe Capability = "parametersSubscribe"

	// CapabilityTime means the server emits Time frames, which receivers
	// must treat as the authoritative logical clock.
	CapabilityTime Capability = "time"

	// CapabilityServices lets clients call services.
	CapabilityServices Capability = "services"

	// CapabilityAssets lets clients fetch assets by URI. Advertised
	// automatically when an asset handler is installed.
	CapabilityAssets Capability = "assets"

	// CapabilityConnectionGraph lets clients subscribe to connection
	// graph updates.
	CapabilityConnectionGraph Capability = "connectionGraph"
)

// Subprotocol is the single subprotocol token this server advertises and
// accepts during the WebSocket handshake.
const Subprotocol = "foxglove.sdk.v1"
