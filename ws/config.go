package ws

import (
	"crypto/tls"
	"time"

	"github.com/foxglove/foxglove-go/ws/protocol"
)

// Config carries no authentication section: this server never
// authenticates clients, so there is nothing for an auth config block
// to secure.
type Config struct {
	Server struct {
		Host         string
		Port         int
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}

	WebSocket struct {
		CheckOrigin                bool
		HandshakeTimeout           time.Duration
		SendQueueSize              int // per-client outbound queue depth
		MaxBacklogBeforeDisconnect int // consecutive full-queue drops before disconnecting a client
	}

	Metrics struct {
		UpdateInterval time.Duration
	}

	// Name is advertised in ServerInfo.Name.
	Name string

	// Capabilities enabled for this server. CapabilityAssets is forced on
	// automatically when an asset handler is installed regardless of
	// this set.
	Capabilities []protocol.Capability

	// TLSConfig is not read by Server: setting it does not enable TLS.
	// TLS is served by installing a TLSAcceptor with Server.SetAcceptor
	// (see Acceptor for the pluggable accept-loop abstraction).
	TLSConfig *tls.Config
}

// DefaultConfig returns sane defaults (10s write wait, 60s pong wait
// derived buffers, etc.) for this protocol's send-queue-based
// backpressure model.
func DefaultConfig() Config {
	var c Config
	c.Server.Host = "127.0.0.1"
	c.Server.Port = 8765
	c.Server.ReadTimeout = 60 * time.Second
	c.Server.WriteTimeout = 10 * time.Second
	c.WebSocket.CheckOrigin = false
	c.WebSocket.HandshakeTimeout = 10 * time.Second
	c.WebSocket.SendQueueSize = 256
	c.WebSocket.MaxBacklogBeforeDisconnect = 3
	c.Metrics.UpdateInterval = 5 * time.Second
	c.Name = "foxglove-go"
	return c
}

// capabilitySet is a lookup-optimized view of Config.Capabilities.
type capabilitySet map[protocol.Capability]bool

func newCapabilitySet(caps []protocol.Capability, hasAssetHandler bool) capabilitySet {
	s := make(capabilitySet, len(caps)+1)
	for _, c := range caps {
		s[c] = true
		if c == protocol.CapabilityParameters {
			s[protocol.CapabilityParametersSubscribe] = true
		}
	}
	if hasAssetHandler {
		s[protocol.CapabilityAssets] = true
	}
	return s
}

func (s capabilitySet) has(c protocol.Capability) bool { return s[c] }

func (s capabilitySet) list() []protocol.Capability {
	out := make([]protocol.Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	return out
}
