package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"zigbee-go-color/internal/bridge"
)

func newTestHub() *WSHub {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWSHub(logger)
}

// startHub runs a hub with the given clients registered.
func startHub(t *testing.T, clients ...*wsClient) *WSHub {
	t.Helper()
	hub := newTestHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	for _, c := range clients {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)
	return hub
}

func clientCount(hub *WSHub) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

func received(c *wsClient) int {
	n := 0
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

func TestWSHubRegisterUnregister(t *testing.T) {
	client := &wsClient{send: make(chan []byte, 16)}
	hub := startHub(t, client)
	if n := clientCount(hub); n != 1 {
		t.Fatalf("after register: count = %d, want 1", n)
	}

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)
	if n := clientCount(hub); n != 0 {
		t.Errorf("after unregister: count = %d, want 0", n)
	}

	// Unregistering again must not close the channel twice.
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)
}

func TestWSHubDeviceFilter(t *testing.T) {
	all := &wsClient{send: make(chan []byte, 16)}
	strip := &wsClient{send: make(chan []byte, 16)}
	strip.subscribe([]string{stripIEEE})
	hub := startHub(t, all, strip)

	events := []bridge.Event{
		{Type: bridge.EventStateChange, Data: bridge.StateChange{IEEEAddress: stripIEEE}},
		{Type: bridge.EventStateChange, Data: bridge.StateChange{IEEEAddress: "0011223344556677"}},
		{Type: bridge.EventDeviceAdded, Data: bridge.DeviceEvent{IEEEAddress: "0011223344556677"}},
	}
	for _, ev := range events {
		hub.Broadcast(ev)
	}
	time.Sleep(20 * time.Millisecond)

	if n := received(all); n != 3 {
		t.Errorf("unfiltered client got %d messages, want 3", n)
	}
	if n := received(strip); n != 2 {
		t.Errorf("filtered client got %d messages, want 2 (own state change + device_added)", n)
	}

	strip.subscribe(nil)
	if !strip.wants("0011223344556677") {
		t.Error("empty subscription should match every device")
	}
}

func TestWSHubReplyOnlyToTarget(t *testing.T) {
	a := &wsClient{send: make(chan []byte, 16)}
	b := &wsClient{send: make(chan []byte, 16)}
	hub := startHub(t, a, b)

	hub.Reply(a, wsError{Type: "error", Request: "set", Error: "boom"})
	// Replies to unknown clients are dropped.
	hub.Reply(&wsClient{send: make(chan []byte, 1)}, "ignored")
	time.Sleep(20 * time.Millisecond)

	if n := received(a); n != 1 {
		t.Errorf("target got %d replies, want 1", n)
	}
	if n := received(b); n != 0 {
		t.Errorf("other client got %d replies, want 0", n)
	}
}

func TestWSHubSlowClientEviction(t *testing.T) {
	slow := &wsClient{send: make(chan []byte, 1)}
	fast := &wsClient{send: make(chan []byte, 64)}
	hub := startHub(t, slow, fast)

	hub.Broadcast("msg1")
	time.Sleep(10 * time.Millisecond)
	hub.Broadcast("msg2")
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	_, slowPresent := hub.clients[slow]
	_, fastPresent := hub.clients[fast]
	hub.mu.RUnlock()

	if slowPresent {
		t.Error("slow client should have been evicted")
	}
	if !fastPresent {
		t.Error("fast client should still be present")
	}
}

func TestWSHubBroadcastDropsWhenFull(t *testing.T) {
	hub := newTestHub() // not running, so nothing drains the channel

	for i := 0; i < 256; i++ {
		hub.Broadcast(i)
	}

	done := make(chan struct{})
	go func() {
		hub.Broadcast("overflow")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Broadcast blocked when channel is full")
	}
}

func TestWSHubStopClosesClients(t *testing.T) {
	client := &wsClient{send: make(chan []byte, 16)}
	hub := startHub(t, client)

	hub.Stop()
	hub.Stop()
	time.Sleep(10 * time.Millisecond)

	if _, ok := <-client.send; ok {
		t.Error("client.send should be closed after hub stop")
	}
}

func dialWS(t *testing.T, srv *Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	// Let the hub register the client before events are emitted.
	time.Sleep(20 * time.Millisecond)
	return conn, ctx
}

type wsEvent struct {
	Type string `json:"type"`
	Data struct {
		FriendlyName string         `json:"friendly_name"`
		Delta        map[string]any `json:"delta"`
	} `json:"data"`
}

func TestWSStreamsStateChanges(t *testing.T) {
	srv, core, _ := setupTestServer(t, "")
	conn, ctx := dialWS(t, srv)

	if _, err := core.Set(ctx, "tv_strip", map[string]any{"state": "ON"}); err != nil {
		t.Fatal(err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ev wsEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "state_change" || ev.Data.FriendlyName != "tv_strip" || ev.Data.Delta["state"] != "ON" {
		t.Errorf("event = %s", data)
	}
}

func TestWSSetRequest(t *testing.T) {
	srv, _, rec := setupTestServer(t, "")
	conn, ctx := dialWS(t, srv)

	req := `{"type":"set","device":"tv_strip","payload":{"color_temp":"warm"}}`
	if err := conn.Write(ctx, websocket.MessageText, []byte(req)); err != nil {
		t.Fatal(err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ev wsEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Data.Delta["color_temp"] != float64(454) {
		t.Errorf("event = %s", data)
	}
	if names := rec.names(); len(names) != 1 || names[0] != "MoveToColorTemperature" {
		t.Errorf("commands = %v", names)
	}
}

func readWS(t *testing.T, ctx context.Context, conn *websocket.Conn, v interface{}) {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

func TestWSSetErrorReply(t *testing.T) {
	srv, _, _ := setupTestServer(t, "")
	conn, ctx := dialWS(t, srv)

	req := `{"type":"set","device":"nope","payload":{"state":"ON"}}`
	if err := conn.Write(ctx, websocket.MessageText, []byte(req)); err != nil {
		t.Fatal(err)
	}

	var resp wsError
	readWS(t, ctx, conn, &resp)
	if resp.Type != "error" || resp.Request != "set" || resp.Device != "nope" || resp.Error == "" {
		t.Errorf("reply = %+v", resp)
	}
}

func TestWSSubscribe(t *testing.T) {
	srv, core, _ := setupTestServer(t, "")
	conn, ctx := dialWS(t, srv)

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"subscribe","devices":["missing"]}`)); err != nil {
		t.Fatal(err)
	}
	var resp wsError
	readWS(t, ctx, conn, &resp)
	if resp.Request != "subscribe" || resp.Device != "missing" {
		t.Errorf("reply = %+v", resp)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"subscribe","devices":["tv_strip"]}`)); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := core.Set(ctx, "tv_strip", map[string]any{"brightness": 10}); err != nil {
		t.Fatal(err)
	}
	var ev wsEvent
	readWS(t, ctx, conn, &ev)
	if ev.Type != "state_change" || ev.Data.FriendlyName != "tv_strip" {
		t.Errorf("event = %+v", ev)
	}
}

func TestWSUnknownRequest(t *testing.T) {
	srv, _, _ := setupTestServer(t, "")
	conn, ctx := dialWS(t, srv)

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"dance"}`)); err != nil {
		t.Fatal(err)
	}
	var resp wsError
	readWS(t, ctx, conn, &resp)
	if resp.Type != "error" || resp.Request != "dance" {
		t.Errorf("reply = %+v", resp)
	}
}
