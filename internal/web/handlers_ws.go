package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"zigbee-go-color/internal/bridge"
)

// WSHub fans bridge events out to WebSocket clients. Clients may narrow
// state changes to a set of devices; device lifecycle events reach all.
type WSHub struct {
	clients map[*wsClient]struct{}
	mu      sync.RWMutex
	logger  *slog.Logger

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan interface{}
	direct     chan wsDirect

	done     chan struct{}
	stopOnce sync.Once
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	devices map[string]bool // IEEE addresses; nil means every device
}

// wsDirect is a reply addressed to a single client.
type wsDirect struct {
	client *wsClient
	msg    interface{}
}

func (c *wsClient) wants(ieee string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.devices == nil || ieee == "" || c.devices[ieee]
}

func (c *wsClient) subscribe(ieees []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(ieees) == 0 {
		c.devices = nil
		return
	}
	c.devices = make(map[string]bool, len(ieees))
	for _, ieee := range ieees {
		c.devices[ieee] = true
	}
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub(logger *slog.Logger) *WSHub {
	return &WSHub{
		clients:    make(map[*wsClient]struct{}),
		logger:     logger,
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan interface{}, 256),
		direct:     make(chan wsDirect, 64),
		done:       make(chan struct{}),
	}
}

// eventDevice returns the IEEE address a state change is about, or "" for
// messages every client receives.
func eventDevice(msg interface{}) string {
	if ev, ok := msg.(bridge.Event); ok {
		if sc, ok := ev.Data.(bridge.StateChange); ok {
			return sc.IEEEAddress
		}
	}
	return ""
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("ws client connected", "total", total)

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("ws client disconnected", "total", total)

		case d := <-h.direct:
			data, err := json.Marshal(d.msg)
			if err != nil {
				h.logger.Error("ws marshal", "err", err)
				continue
			}
			h.mu.Lock()
			if _, ok := h.clients[d.client]; ok {
				h.deliver(d.client, data)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("ws marshal", "err", err)
				continue
			}
			ieee := eventDevice(msg)
			h.mu.Lock()
			for client := range h.clients {
				if client.wants(ieee) {
					h.deliver(client, data)
				}
			}
			h.mu.Unlock()
		}
	}
}

// deliver queues data for a client, evicting it when its buffer is full.
// Callers hold h.mu.
func (h *WSHub) deliver(client *wsClient, data []byte) {
	select {
	case client.send <- data:
	default:
		h.drop(client)
		h.logger.Warn("ws client evicted (too slow)")
	}
}

// drop removes a registered client and closes its send channel. Callers
// hold h.mu.
func (h *WSHub) drop(client *wsClient) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Stop signals the hub to shut down. Safe to call multiple times.
func (h *WSHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Broadcast sends a message to all interested clients.
func (h *WSHub) Broadcast(msg interface{}) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws broadcast channel full, dropping message")
	}
}

// Reply sends a message to one client.
func (h *WSHub) Reply(client *wsClient, msg interface{}) {
	select {
	case h.direct <- wsDirect{client: client, msg: msg}:
	default:
		h.logger.Warn("ws reply channel full, dropping message")
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(s.allowedOrigins) > 0 {
		opts.OriginPatterns = s.allowedOrigins
	}

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.logger.Error("ws accept", "err", err)
		return
	}

	conn.SetReadLimit(16 << 10)

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	select {
	case s.wsHub.register <- client:
	case <-s.wsHub.done:
		conn.Close(websocket.StatusGoingAway, "server shutdown")
		return
	}

	go s.wsWritePump(client)
	s.wsReadPump(client)
}

func (s *Server) wsWritePump(client *wsClient) {
	for msg := range client.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := client.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			return
		}
	}
	client.conn.Close(websocket.StatusNormalClosure, "")
}

// wsRequest is a message sent by a WebSocket client.
//
//	{"type":"subscribe","devices":["tv_strip"]}   only these devices' state changes; [] for all
//	{"type":"set","device":"tv_strip","payload":{...}}
//	{"type":"get","device":"tv_strip","keys":["color"]}
//
// Successful requests show up as state_change events. Failures are answered
// to the sender only, as {"type":"error", ...}.
type wsRequest struct {
	Type    string         `json:"type"`
	Device  string         `json:"device,omitempty"`
	Devices []string       `json:"devices,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	Keys    []string       `json:"keys,omitempty"`
}

type wsError struct {
	Type    string `json:"type"`
	Request string `json:"request"`
	Device  string `json:"device,omitempty"`
	Error   string `json:"error"`
}

func (s *Server) wsReadPump(client *wsClient) {
	defer func() {
		select {
		case s.wsHub.unregister <- client:
		case <-s.wsHub.done:
			client.conn.Close(websocket.StatusGoingAway, "server shutdown")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-s.wsHub.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		typ, data, err := client.conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		s.handleWSRequest(ctx, client, data)
	}
}

func (s *Server) handleWSRequest(ctx context.Context, client *wsClient, data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.wsHub.Reply(client, wsError{Type: "error", Request: "parse", Error: err.Error()})
		return
	}

	fail := func(err error) {
		s.logger.Debug("ws request failed", "type", req.Type, "device", req.Device, "err", err)
		s.wsHub.Reply(client, wsError{Type: "error", Request: req.Type, Device: req.Device, Error: err.Error()})
	}

	switch req.Type {
	case "subscribe":
		ieees := make([]string, 0, len(req.Devices))
		for _, ref := range req.Devices {
			dev, err := s.core.Device(ref)
			if err != nil {
				req.Device = ref
				fail(err)
				return
			}
			ieees = append(ieees, dev.IEEEAddress)
		}
		client.subscribe(ieees)
	case "set":
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := s.core.Set(ctx, req.Device, req.Payload); err != nil {
			fail(err)
		}
	case "get":
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.core.Get(ctx, req.Device, req.Keys); err != nil {
			fail(err)
		}
	default:
		s.wsHub.Reply(client, wsError{Type: "error", Request: req.Type, Error: "unknown request type"})
	}
}
