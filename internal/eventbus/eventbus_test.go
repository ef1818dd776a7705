package eventbus

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDefaultConfigUsesGivenURL(t *testing.T) {
	c := DefaultConfig("nats://localhost:4222")
	if c.URL != "nats://localhost:4222" {
		t.Fatalf("expected the configured URL to be preserved, got %q", c.URL)
	}
	if c.Subject == "" {
		t.Fatal("expected a default subject")
	}
	if c.MaxReconnects != -1 {
		t.Fatalf("expected infinite reconnects by default, got %d", c.MaxReconnects)
	}
}

func TestConnectedReflectsLifecycleCallbacks(t *testing.T) {
	bus := &EventBus{}
	if bus.Connected() {
		t.Fatal("expected a fresh EventBus to report disconnected")
	}

	bus.onConnect(nil)
	if !bus.Connected() {
		t.Fatal("expected onConnect to mark the bus connected")
	}

	bus.onDisconnect(nil, errors.New("connection reset"))
	if bus.Connected() {
		t.Fatal("expected onDisconnect to mark the bus disconnected")
	}

	bus.onReconnect(nil)
	if !bus.Connected() {
		t.Fatal("expected onReconnect to mark the bus connected again")
	}
}

func TestServerEventMarshalsOmittingEmptyFields(t *testing.T) {
	event := ServerEvent{Kind: EventChannelAdded, Timestamp: 1000, Topic: "/t"}
	b, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := decoded["clientId"]; present {
		t.Fatal("expected omitempty to drop the zero-valued clientId field")
	}
	if decoded["topic"] != "/t" {
		t.Fatalf("expected topic to round-trip, got %v", decoded["topic"])
	}
}
