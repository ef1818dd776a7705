package recording_test

import (
	"bytes"
	"testing"

	fg "github.com/foxglove/foxglove-go"
	"github.com/foxglove/foxglove-go/foxglovetest"
	"github.com/foxglove/foxglove-go/recording"
)

func TestSinkWritesMessagesReadableBack(t *testing.T) {
	var buf bytes.Buffer
	sink, err := recording.NewSink(&buf, "test-profile")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	ctx := fg.NewContext()
	ctx.AddSink(sink)

	ch, err := fg.ChannelBuilder{
		Topic:           "/recorded",
		MessageEncoding: "json",
		Context:         ctx,
		Schema:          &fg.Schema{Name: "Msg", Encoding: "jsonschema", Data: []byte(`{"type":"object"}`)},
	}.Build()
	if err != nil {
		t.Fatalf("build channel: %v", err)
	}

	ch.Log([]byte(`{"a":1}`), fg.PartialMetadata{})
	ch.Log([]byte(`{"a":2}`), fg.PartialMetadata{})

	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	info, err := foxglovetest.ReadSummary(buf.Bytes())
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if len(info.Channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(info.Channels))
	}
	if len(info.Schemas) != 1 {
		t.Fatalf("expected 1 schema, got %d", len(info.Schemas))
	}

	messages, err := foxglovetest.ReadMessages(buf.Bytes())
	if err != nil {
		t.Fatalf("read messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
}

func TestSinkRecordOnUndeclaredChannelFails(t *testing.T) {
	var buf bytes.Buffer
	sink, err := recording.NewSink(&buf, "test-profile")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer sink.Close()

	descriptor := &fg.ChannelDescriptor{ID: 999, Topic: "/never-declared", MessageEncoding: "json"}
	if err := sink.Record(descriptor, []byte("x"), fg.Metadata{}); err == nil {
		t.Fatal("expected an error recording on an undeclared channel")
	}
}

func TestSinkCloseIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	sink, err := recording.NewSink(&buf, "test-profile")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got: %v", err)
	}
}

func TestSinkRecordAfterCloseFails(t *testing.T) {
	var buf bytes.Buffer
	sink, err := recording.NewSink(&buf, "test-profile")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	ctx := fg.NewContext()
	ctx.AddSink(sink)
	ch, err := fg.ChannelBuilder{Topic: "/t", MessageEncoding: "json", Context: ctx}.Build()
	if err != nil {
		t.Fatalf("build channel: %v", err)
	}

	sink.Close()
	if err := sink.Record(ch.Descriptor(), []byte("x"), fg.Metadata{}); err == nil {
		t.Fatal("expected an error recording after close")
	}
}
