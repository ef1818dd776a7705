package foxglovetest_test

import (
	"errors"
	"testing"

	fg "github.com/foxglove/foxglove-go"
	"github.com/foxglove/foxglove-go/foxglovetest"
)

func TestMockSinkRecordsMessages(t *testing.T) {
	sink := foxglovetest.NewMockSink()
	descriptor := &fg.ChannelDescriptor{ID: 1, Topic: "/t"}
	if err := sink.Record(descriptor, []byte("hi"), fg.Metadata{LogTime: 42}); err != nil {
		t.Fatalf("record: %v", err)
	}
	msgs := sink.Messages()
	if len(msgs) != 1 || string(msgs[0].Payload) != "hi" || msgs[0].Metadata.LogTime != 42 {
		t.Fatalf("unexpected recorded messages: %+v", msgs)
	}
}

func TestMockSinkCopiesPayload(t *testing.T) {
	sink := foxglovetest.NewMockSink()
	descriptor := &fg.ChannelDescriptor{ID: 1, Topic: "/t"}
	payload := []byte("mutate-me")
	sink.Record(descriptor, payload, fg.Metadata{})
	payload[0] = 'X'
	if string(sink.Messages()[0].Payload) != "mutate-me" {
		t.Fatal("expected MockSink to retain its own copy of the payload")
	}
}

func TestMockSinkSubscriptionFilterDefaultsToAdmitAll(t *testing.T) {
	sink := foxglovetest.NewMockSink()
	if !sink.SubscriptionFilter(&fg.ChannelDescriptor{ID: 1}) {
		t.Fatal("expected default filter to admit every channel")
	}
}

func TestMockSinkSubscriptionFilterCustom(t *testing.T) {
	sink := foxglovetest.NewMockSink()
	sink.Filter = func(d *fg.ChannelDescriptor) bool { return d.Topic == "/wanted" }
	if sink.SubscriptionFilter(&fg.ChannelDescriptor{Topic: "/other"}) {
		t.Fatal("expected custom filter to reject /other")
	}
	if !sink.SubscriptionFilter(&fg.ChannelDescriptor{Topic: "/wanted"}) {
		t.Fatal("expected custom filter to admit /wanted")
	}
}

func TestMockSinkTracksChannelLifecycle(t *testing.T) {
	sink := foxglovetest.NewMockSink()
	d := &fg.ChannelDescriptor{ID: 1, Topic: "/t"}
	sink.OnChannelAdded(d)
	sink.OnChannelRemoved(d)
	if len(sink.ChannelsAdded()) != 1 || len(sink.ChannelsRemoved()) != 1 {
		t.Fatalf("expected one add and one remove to be tracked")
	}
}

func TestErrorSinkAlwaysFails(t *testing.T) {
	want := errors.New("boom")
	sink := foxglovetest.NewErrorSink(want)
	err := sink.Record(&fg.ChannelDescriptor{ID: 1}, nil, fg.Metadata{})
	if !errors.Is(err, want) {
		t.Fatalf("expected ErrorSink to return the configured error, got %v", err)
	}
}
