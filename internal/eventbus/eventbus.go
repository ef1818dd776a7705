// Package eventbus publishes server lifecycle events (client
// connect/disconnect, channel add/remove, service registration) onto
// NATS, for embedders who want cross-process visibility into one
// WebSocket server's activity. It never carries logged message data:
// channel/sink fan-out always stays in-process, so this bus is strictly
// a side-channel for operational events, off by default.
package eventbus

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// EventKind enumerates the lifecycle events an EventBus can publish.
type EventKind string

const (
	EventClientConnected    EventKind = "client_connected"
	EventClientDisconnected EventKind = "client_disconnected"
	EventChannelAdded       EventKind = "channel_added"
	EventChannelRemoved     EventKind = "channel_removed"
	EventServiceRegistered  EventKind = "service_registered"
	EventServiceRemoved     EventKind = "service_removed"
)

// ServerEvent is the payload published for every lifecycle event.
type ServerEvent struct {
	Kind      EventKind `json:"kind"`
	Timestamp int64     `json:"timestamp"`
	ClientID  uint32    `json:"clientId,omitempty"`
	ChannelID uint64    `json:"channelId,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	Service   string    `json:"service,omitempty"`
}

// Config carries the connection and reconnect tuning for the underlying
// NATS client.
type Config struct {
	URL             string
	Subject         string // subject all ServerEvents are published to
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectJitter time.Duration
	MaxPingsOut     int
	PingInterval    time.Duration
}

// DefaultConfig returns conservative reconnect/ping tuning values
// suitable for a long-lived background event stream.
func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		Subject:         "foxglove.events",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		ReconnectJitter: 500 * time.Millisecond,
		MaxPingsOut:     3,
		PingInterval:    30 * time.Second,
	}
}

// EventBus publishes ServerEvents to NATS. A nil *EventBus is not valid;
// construct with Connect. Nothing publishes events unless an embedder
// constructs a bus and calls Publish itself (the default is off).
type EventBus struct {
	conn    *nats.Conn
	config  Config
	logger  *log.Logger

	mu        sync.RWMutex
	connected bool
}

// Connect dials the NATS server at config.URL. Returns an error if the
// initial connection attempt fails; once connected, disconnects are
// handled by the reconnect options and never surface as an error from
// Publish (failed publishes are simply dropped, since this bus is
// diagnostic, not authoritative).
func Connect(config Config, logger *log.Logger) (*EventBus, error) {
	bus := &EventBus{config: config, logger: logger}

	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.ReconnectJitter(config.ReconnectJitter, config.ReconnectJitter),
		nats.MaxPingsOutstanding(config.MaxPingsOut),
		nats.PingInterval(config.PingInterval),
		nats.ConnectHandler(bus.onConnect),
		nats.DisconnectErrHandler(bus.onDisconnect),
		nats.ReconnectHandler(bus.onReconnect),
		nats.ErrorHandler(bus.onError),
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect to %s: %w", config.URL, err)
	}
	bus.conn = conn
	bus.mu.Lock()
	bus.connected = true
	bus.mu.Unlock()
	return bus, nil
}

func (b *EventBus) onConnect(conn *nats.Conn) {
	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	if b.logger != nil {
		b.logger.Printf("eventbus: connected to %s", conn.ConnectedUrl())
	}
}

func (b *EventBus) onDisconnect(_ *nats.Conn, err error) {
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
	if b.logger != nil {
		b.logger.Printf("eventbus: disconnected: %v", err)
	}
}

func (b *EventBus) onReconnect(conn *nats.Conn) {
	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	if b.logger != nil {
		b.logger.Printf("eventbus: reconnected to %s", conn.ConnectedUrl())
	}
}

func (b *EventBus) onError(_ *nats.Conn, _ *nats.Subscription, err error) {
	if b.logger != nil {
		b.logger.Printf("eventbus: error: %v", err)
	}
}

// Connected reports whether the bus currently has a live NATS connection.
func (b *EventBus) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// Publish encodes event as JSON and publishes it to the configured
// subject. Errors are returned to the caller but are expected to be
// logged and ignored by server lifecycle hooks: event publishing must
// never block or fail server operation.
func (b *EventBus) Publish(event ServerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("eventbus: marshal event: %w", err)
	}
	if err := b.conn.Publish(b.config.Subject, data); err != nil {
		return fmt.Errorf("eventbus: publish: %w", err)
	}
	return nil
}

// Close closes the underlying NATS connection without draining it.
func (b *EventBus) Close() error {
	if b.conn != nil {
		b.conn.Close()
	}
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
	return nil
}
