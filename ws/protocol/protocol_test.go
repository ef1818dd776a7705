package protocol

import (
	"bytes"
	"reflect"
	"testing"
)

func TestDecodeClientJSONRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		msg  interface{}
	}{
		{"subscribe", Subscribe{Op: OpSubscribe, Subscriptions: []SubscribePair{{ID: 1, ChannelID: 2}}}},
		{"unsubscribe", Unsubscribe{Op: OpUnsubscribe, SubscriptionIDs: []uint32{1, 2}}},
		{"clientAdvertise", ClientAdvertise{Op: OpClientAdvertise, Channels: []ClientChannel{{ID: 1, Topic: "/foo", Encoding: "json"}}}},
		{"clientUnadvertise", ClientUnadvertise{Op: OpClientUnadvertise, ChannelIDs: []uint32{1}}},
		{"getParameters", GetParameters{Op: OpGetParameters, ParameterNames: []string{"a"}, ID: "req1"}},
		{"setParameters", SetParameters{Op: OpSetParameters, Parameters: []Parameter{{Name: "a", Value: 1.0}}}},
		{"subscribeParameterUpdates", SubscribeParameterUpdates{Op: OpSubscribeParameterUpdates, ParameterNames: []string{"a"}}},
		{"unsubscribeParameterUpdates", UnsubscribeParameterUpdates{Op: OpUnsubscribeParameterUpdates}},
		{"subscribeConnectionGraph", SubscribeConnectionGraph{Op: OpSubscribeConnectionGraph}},
		{"unsubscribeConnectionGraph", UnsubscribeConnectionGraph{Op: OpUnsubscribeConnectionGraph}},
		{"fetchAsset", FetchAsset{Op: OpFetchAsset, RequestID: 7, URI: "package://foo.glb"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := EncodeJSON(tc.msg)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := DecodeClientJSON(b)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(got, tc.msg) {
				t.Fatalf("round trip mismatch: got %#v, want %#v", got, tc.msg)
			}
		})
	}
}

func TestDecodeClientJSONUnknownOp(t *testing.T) {
	_, err := DecodeClientJSON([]byte(`{"op":"notARealOp"}`))
	if err == nil {
		t.Fatal("expected error for unknown op")
	}
}

func TestDecodeClientJSONMalformed(t *testing.T) {
	_, err := DecodeClientJSON([]byte(`not json`))
	if err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestMessageDataRoundTrip(t *testing.T) {
	m := MessageData{SubscriptionID: 3, LogTime: 123456789, Payload: []byte{1, 2, 3, 4}}
	frame := EncodeMessageData(m)
	got, err := DecodeMessageData(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SubscriptionID != m.SubscriptionID || got.LogTime != m.LogTime || !bytes.Equal(got.Payload, m.Payload) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, m)
	}
}

func TestMessageDataRoundTripEmptyPayload(t *testing.T) {
	m := MessageData{SubscriptionID: 1, LogTime: 1}
	frame := EncodeMessageData(m)
	got, err := DecodeMessageData(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Payload) != 0 {
		t.Fatalf("expected empty payload, got %v", got.Payload)
	}
}

func TestDecodeMessageDataRejectsShortFrame(t *testing.T) {
	if _, err := DecodeMessageData([]byte{byte(ServerOpMessageData)}); err == nil {
		t.Fatal("expected error for short frame")
	}
}

func TestDecodeMessageDataRejectsWrongOpcode(t *testing.T) {
	frame := EncodeMessageData(MessageData{})
	frame[0] = byte(ServerOpTime)
	if _, err := DecodeMessageData(frame); err == nil {
		t.Fatal("expected error for mis-opcoded frame")
	}
}

func TestClientMessageDataRoundTrip(t *testing.T) {
	m := ClientMessageData{ChannelID: 42, Payload: []byte("hello")}
	frame := EncodeClientMessageData(m)
	got, err := DecodeClientMessageData(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ChannelID != m.ChannelID || !bytes.Equal(got.Payload, m.Payload) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, m)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	tm := Time{TimestampNanos: 9999999999}
	frame := EncodeTime(tm)
	got, err := DecodeTime(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != tm {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, tm)
	}
}

func TestServiceCallRequestRoundTrip(t *testing.T) {
	r := ServiceCallRequest{ServiceID: 1, CallID: 2, Encoding: "json", Payload: []byte(`{"x":1}`)}
	frame := EncodeServiceCallRequest(r)
	got, err := DecodeServiceCallRequest(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ServiceID != r.ServiceID || got.CallID != r.CallID || got.Encoding != r.Encoding || !bytes.Equal(got.Payload, r.Payload) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
}

func TestServiceCallResponseRoundTrip(t *testing.T) {
	r := ServiceCallResponse{ServiceID: 1, CallID: 2, Encoding: "json", Payload: []byte(`{"ok":true}`)}
	frame := EncodeServiceCallResponse(r)
	got, err := DecodeServiceCallResponse(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ServiceID != r.ServiceID || got.CallID != r.CallID || got.Encoding != r.Encoding || !bytes.Equal(got.Payload, r.Payload) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
}

func TestFetchAssetResponseFrameRoundTrip(t *testing.T) {
	r := FetchAssetResponseFrame{RequestID: 5, Payload: []byte{9, 8, 7}}
	frame := EncodeFetchAssetResponse(r)
	got, err := DecodeFetchAssetResponse(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RequestID != r.RequestID || !bytes.Equal(got.Payload, r.Payload) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
}
