package ws_test

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	fg "github.com/foxglove/foxglove-go"
	"github.com/foxglove/foxglove-go/ws"
	"github.com/foxglove/foxglove-go/ws/protocol"
)

func startTestServer(t *testing.T, caps []protocol.Capability) (*ws.Server, *fg.Context, string) {
	t.Helper()
	ctx := fg.NewContext()
	runtime := fg.NewRuntime()

	config := ws.DefaultConfig()
	config.Server.Host = "127.0.0.1"
	config.Server.Port = 0
	config.Capabilities = caps

	server := ws.NewServer(config, ctx, runtime)
	if err := server.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(server.Stop)

	addr := server.Addr().(*net.TCPAddr)
	url := "ws://127.0.0.1:" + itoa(addr.Port) + "/"
	return server, ctx, url
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{Subprotocols: []string{protocol.Subprotocol}, HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readServerInfo(t *testing.T, conn *websocket.Conn) protocol.ServerInfo {
	t.Helper()
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read server info: %v", err)
	}
	var info protocol.ServerInfo
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("decode server info: %v", err)
	}
	if info.Op != protocol.OpServerInfo {
		t.Fatalf("expected op %q, got %q", protocol.OpServerInfo, info.Op)
	}
	return info
}

func readAdvertise(t *testing.T, conn *websocket.Conn) protocol.Advertise {
	t.Helper()
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read advertise: %v", err)
	}
	var adv protocol.Advertise
	if err := json.Unmarshal(data, &adv); err != nil {
		t.Fatalf("decode advertise: %v", err)
	}
	if adv.Op != protocol.OpAdvertise {
		t.Fatalf("expected op %q, got %q", protocol.OpAdvertise, adv.Op)
	}
	return adv
}

func TestHandshakeRejectsMissingSubprotocol(t *testing.T) {
	_, _, url := startTestServer(t, nil)
	httpURL := "http" + url[2:]
	resp, err := http.Get(httpURL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing subprotocol, got %d", resp.StatusCode)
	}
}

func TestHandshakeSendsServerInfoThenAdvertise(t *testing.T) {
	_, ctx, url := startTestServer(t, nil)
	_, err := fg.ChannelBuilder{Topic: "/demo", MessageEncoding: "json", Context: ctx}.Build()
	if err != nil {
		t.Fatalf("build channel: %v", err)
	}

	conn := dial(t, url)
	info := readServerInfo(t, conn)
	if info.Name == "" {
		t.Fatalf("expected a non-empty server name")
	}

	adv := readAdvertise(t, conn)
	if len(adv.Channels) != 1 || adv.Channels[0].Topic != "/demo" {
		t.Fatalf("expected advertised channel /demo, got %+v", adv.Channels)
	}
}

func TestSubscribeAndReceiveMessageData(t *testing.T) {
	_, ctx, url := startTestServer(t, nil)
	channel, err := fg.ChannelBuilder{Topic: "/data", MessageEncoding: "json", Context: ctx}.Build()
	if err != nil {
		t.Fatalf("build channel: %v", err)
	}

	conn := dial(t, url)
	readServerInfo(t, conn)
	adv := readAdvertise(t, conn)
	chanID := adv.Channels[0].ID

	sub, _ := protocol.EncodeJSON(protocol.Subscribe{
		Op:            protocol.OpSubscribe,
		Subscriptions: []protocol.SubscribePair{{ID: 1, ChannelID: chanID}},
	})
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	// Give the server a moment to process the subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	channel.Log([]byte(`{"v":1}`), fg.PartialMetadata{})

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message data: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("expected a binary frame, got type %d", msgType)
	}
	md, err := protocol.DecodeMessageData(data)
	if err != nil {
		t.Fatalf("decode message data: %v", err)
	}
	if md.SubscriptionID != 1 {
		t.Fatalf("expected subscription id 1, got %d", md.SubscriptionID)
	}
	if string(md.Payload) != `{"v":1}` {
		t.Fatalf("unexpected payload: %s", md.Payload)
	}
}

func TestSubscribeUnknownChannelIsRejectedWithStatus(t *testing.T) {
	_, _, url := startTestServer(t, nil)
	conn := dial(t, url)
	readServerInfo(t, conn)

	sub, _ := protocol.EncodeJSON(protocol.Subscribe{
		Op:            protocol.OpSubscribe,
		Subscriptions: []protocol.SubscribePair{{ID: 1, ChannelID: 99999}},
	})
	conn.WriteMessage(websocket.TextMessage, sub)

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	var status protocol.Status
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Op != protocol.OpStatus || status.Level != protocol.StatusWarning {
		t.Fatalf("expected a warning status, got %+v", status)
	}
}

func TestServiceCallEcho(t *testing.T) {
	server, _, url := startTestServer(t, []protocol.Capability{protocol.CapabilityServices})
	server.RegisterService(&ws.Service{
		Name: "echo",
		Handler: func(request []byte, encoding string) ([]byte, string, error) {
			return request, encoding, nil
		},
	})

	conn := dial(t, url)
	readServerInfo(t, conn)

	// AdvertiseServices follows ServerInfo when services are registered
	// before the client connects.
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read advertise services: %v", err)
	}
	var advSvc protocol.AdvertiseServices
	if err := json.Unmarshal(data, &advSvc); err != nil {
		t.Fatalf("decode advertise services: %v", err)
	}
	if len(advSvc.Services) != 1 || advSvc.Services[0].Name != "echo" {
		t.Fatalf("expected the echo service to be advertised, got %+v", advSvc.Services)
	}
	serviceID := advSvc.Services[0].ID

	req := protocol.EncodeServiceCallRequest(protocol.ServiceCallRequest{
		ServiceID: serviceID,
		CallID:    7,
		Encoding:  "json",
		Payload:   []byte(`{"ping":true}`),
	})
	if err := conn.WriteMessage(websocket.BinaryMessage, req); err != nil {
		t.Fatalf("write service call: %v", err)
	}

	msgType, respData, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read service call response: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("expected a binary response frame, got type %d", msgType)
	}
	resp, err := protocol.DecodeServiceCallResponse(respData)
	if err != nil {
		t.Fatalf("decode service call response: %v", err)
	}
	if resp.CallID != 7 || string(resp.Payload) != `{"ping":true}` {
		t.Fatalf("unexpected service call response: %+v", resp)
	}
}

func TestServiceCallWithoutCapabilityIsRejected(t *testing.T) {
	_, _, url := startTestServer(t, nil)
	conn := dial(t, url)
	readServerInfo(t, conn)

	req := protocol.EncodeServiceCallRequest(protocol.ServiceCallRequest{ServiceID: 1, CallID: 1, Encoding: "json"})
	conn.WriteMessage(websocket.BinaryMessage, req)

	// Absent the services capability, the server reports a protocol
	// violation and closes the connection.
	_, _, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected a status frame before close, got read error: %v", err)
	}
}
