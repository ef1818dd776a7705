package protocol

import (
	"encoding/binary"
	"fmt"
)

// MessageData is the live data frame sent from server to a subscribed
// client: a subscription id, the message's log time, and its raw
// encoded payload.
type MessageData struct {
	SubscriptionID uint32
	LogTime        uint64
	Payload        []byte
}

// EncodeMessageData serializes a MessageData frame.
func EncodeMessageData(m MessageData) []byte {
	buf := make([]byte, 1+4+8+len(m.Payload))
	buf[0] = byte(ServerOpMessageData)
	binary.LittleEndian.PutUint32(buf[1:5], m.SubscriptionID)
	binary.LittleEndian.PutUint64(buf[5:13], m.LogTime)
	copy(buf[13:], m.Payload)
	return buf
}

// DecodeMessageData parses a MessageData frame, including its leading
// opcode byte.
func DecodeMessageData(data []byte) (MessageData, error) {
	if len(data) < 13 || data[0] != byte(ServerOpMessageData) {
		return MessageData{}, fmt.Errorf("%w: short or mis-opcoded message data frame", ErrMalformed)
	}
	payload := make([]byte, len(data)-13)
	copy(payload, data[13:])
	return MessageData{
		SubscriptionID: binary.LittleEndian.Uint32(data[1:5]),
		LogTime:        binary.LittleEndian.Uint64(data[5:13]),
		Payload:        payload,
	}, nil
}

// ClientMessageData is the binary frame a client sends to publish on one
// of its own advertised channels.
type ClientMessageData struct {
	ChannelID uint32
	Payload   []byte
}

func EncodeClientMessageData(m ClientMessageData) []byte {
	buf := make([]byte, 1+4+len(m.Payload))
	buf[0] = byte(ClientOpMessageData)
	binary.LittleEndian.PutUint32(buf[1:5], m.ChannelID)
	copy(buf[5:], m.Payload)
	return buf
}

func DecodeClientMessageData(data []byte) (ClientMessageData, error) {
	if len(data) < 5 || data[0] != byte(ClientOpMessageData) {
		return ClientMessageData{}, fmt.Errorf("%w: short or mis-opcoded client message data frame", ErrMalformed)
	}
	payload := make([]byte, len(data)-5)
	copy(payload, data[5:])
	return ClientMessageData{
		ChannelID: binary.LittleEndian.Uint32(data[1:5]),
		Payload:   payload,
	}, nil
}

// Time is the server's authoritative clock frame.
type Time struct {
	TimestampNanos uint64
}

func EncodeTime(t Time) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(ServerOpTime)
	binary.LittleEndian.PutUint64(buf[1:9], t.TimestampNanos)
	return buf
}

func DecodeTime(data []byte) (Time, error) {
	if len(data) != 9 || data[0] != byte(ServerOpTime) {
		return Time{}, fmt.Errorf("%w: malformed time frame", ErrMalformed)
	}
	return Time{TimestampNanos: binary.LittleEndian.Uint64(data[1:9])}, nil
}

// ServiceCallRequest is the binary frame a client sends to invoke a
// service.
type ServiceCallRequest struct {
	ServiceID uint32
	CallID    uint32
	Encoding  string
	Payload   []byte
}

func EncodeServiceCallRequest(r ServiceCallRequest) []byte {
	enc := []byte(r.Encoding)
	buf := make([]byte, 1+4+4+4+len(enc)+len(r.Payload))
	i := 0
	buf[i] = byte(ClientOpServiceCallRequest)
	i++
	binary.LittleEndian.PutUint32(buf[i:i+4], r.ServiceID)
	i += 4
	binary.LittleEndian.PutUint32(buf[i:i+4], r.CallID)
	i += 4
	binary.LittleEndian.PutUint32(buf[i:i+4], uint32(len(enc)))
	i += 4
	i += copy(buf[i:], enc)
	copy(buf[i:], r.Payload)
	return buf
}

func DecodeServiceCallRequest(data []byte) (ServiceCallRequest, error) {
	if len(data) < 13 || data[0] != byte(ClientOpServiceCallRequest) {
		return ServiceCallRequest{}, fmt.Errorf("%w: short or mis-opcoded service call request", ErrMalformed)
	}
	i := 1
	serviceID := binary.LittleEndian.Uint32(data[i : i+4])
	i += 4
	callID := binary.LittleEndian.Uint32(data[i : i+4])
	i += 4
	encLen := binary.LittleEndian.Uint32(data[i : i+4])
	i += 4
	if uint32(len(data)-i) < encLen {
		return ServiceCallRequest{}, fmt.Errorf("%w: truncated encoding string", ErrMalformed)
	}
	encoding := string(data[i : i+int(encLen)])
	i += int(encLen)
	payload := make([]byte, len(data)-i)
	copy(payload, data[i:])
	return ServiceCallRequest{ServiceID: serviceID, CallID: callID, Encoding: encoding, Payload: payload}, nil
}

// ServiceCallResponse is the binary frame the server sends back on
// successful service dispatch.
type ServiceCallResponse struct {
	ServiceID uint32
	CallID    uint32
	Encoding  string
	Payload   []byte
}

func EncodeServiceCallResponse(r ServiceCallResponse) []byte {
	enc := []byte(r.Encoding)
	buf := make([]byte, 1+4+4+4+len(enc)+len(r.Payload))
	i := 0
	buf[i] = byte(ServerOpServiceCallResponse)
	i++
	binary.LittleEndian.PutUint32(buf[i:i+4], r.ServiceID)
	i += 4
	binary.LittleEndian.PutUint32(buf[i:i+4], r.CallID)
	i += 4
	binary.LittleEndian.PutUint32(buf[i:i+4], uint32(len(enc)))
	i += 4
	i += copy(buf[i:], enc)
	copy(buf[i:], r.Payload)
	return buf
}

func DecodeServiceCallResponse(data []byte) (ServiceCallResponse, error) {
	if len(data) < 13 || data[0] != byte(ServerOpServiceCallResponse) {
		return ServiceCallResponse{}, fmt.Errorf("%w: short or mis-opcoded service call response", ErrMalformed)
	}
	i := 1
	serviceID := binary.LittleEndian.Uint32(data[i : i+4])
	i += 4
	callID := binary.LittleEndian.Uint32(data[i : i+4])
	i += 4
	encLen := binary.LittleEndian.Uint32(data[i : i+4])
	i += 4
	if uint32(len(data)-i) < encLen {
		return ServiceCallResponse{}, fmt.Errorf("%w: truncated encoding string", ErrMalformed)
	}
	encoding := string(data[i : i+int(encLen)])
	i += int(encLen)
	payload := make([]byte, len(data)-i)
	copy(payload, data[i:])
	return ServiceCallResponse{ServiceID: serviceID, CallID: callID, Encoding: encoding, Payload: payload}, nil
}

// FetchAssetResponseFrame is the binary frame for a successful asset
// fetch. Failures are reported as a JSON FetchAssetResponse with
// Status=AssetStatusError instead (see messages.go).
type FetchAssetResponseFrame struct {
	RequestID uint32
	Payload   []byte
}

func EncodeFetchAssetResponse(r FetchAssetResponseFrame) []byte {
	buf := make([]byte, 1+4+len(r.Payload))
	buf[0] = byte(ServerOpFetchAssetResponse)
	binary.LittleEndian.PutUint32(buf[1:5], r.RequestID)
	copy(buf[5:], r.Payload)
	return buf
}

func DecodeFetchAssetResponse(data []byte) (FetchAssetResponseFrame, error) {
	if len(data) < 5 || data[0] != byte(ServerOpFetchAssetResponse) {
		return FetchAssetResponseFrame{}, fmt.Errorf("%w: short or mis-opcoded asset response", ErrMalformed)
	}
	payload := make([]byte, len(data)-5)
	copy(payload, data[5:])
	return FetchAssetResponseFrame{RequestID: binary.LittleEndian.Uint32(data[1:5]), Payload: payload}, nil
}
