//go:build !no_mqtt

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"zigbee-go-color/internal/bridge"
	"zigbee-go-color/internal/converter"
	"zigbee-go-color/internal/store"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker          string
	Username        string
	Password        string
	ClientID        string
	TopicPrefix     string
	Discovery       bool
	DiscoveryPrefix string
	// CommandTimeout bounds a set or get request coming in over MQTT.
	CommandTimeout time.Duration
}

// Bridge connects the color bridge to MQTT. Frontends talk to it on
// <prefix>/<device>/set and /get; an external Zigbee coordinator receives
// ZCL commands on <prefix>/zcl/<ieee>/command and sends attribute reports
// to <prefix>/zcl/<ieee>/report.
type Bridge struct {
	client pahomqtt.Client
	core   *bridge.Bridge
	cfg    Config
	prefix string
	logger *slog.Logger
	unsub  func()
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(core *bridge.Bridge, cfg Config, logger *slog.Logger) (*Bridge, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "zigbee-go-color-" + uuid.NewString()[:8]
	}
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		core:   core,
		cfg:    cfg,
		prefix: cfg.TopicPrefix,
		logger: logger.With("component", "mqtt"),
		ctx:    ctx,
		cancel: cancel,
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(cfg.TopicPrefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected", "client_id", cfg.ClientID)
			b.publishBridgeState("online")
			b.subscribe()
			b.publishAll()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	b.client = client
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		cancel()
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		cancel()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return b, nil
}

// Start subscribes to bridge events and attaches the MQTT Zigbee transport.
func (b *Bridge) Start() {
	b.core.SetTransport(b)
	b.unsub = b.core.Events().OnAll(b.handleEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	b.cancel()
	if b.unsub != nil {
		b.unsub()
	}
	b.core.SetTransport(nil)
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

// Entity implements bridge.Transport.
func (b *Bridge) Entity(dev *store.Device) converter.Entity {
	return &Entity{
		pub:      b.client,
		prefix:   b.prefix,
		ieee:     dev.IEEEAddress,
		endpoint: dev.Endpoint,
	}
}

func (b *Bridge) handleEvent(event bridge.Event) {
	switch event.Type {
	case bridge.EventStateChange:
		sc, ok := event.Data.(bridge.StateChange)
		if !ok {
			return
		}
		b.publish(b.prefix+"/"+sc.FriendlyName, mustJSON(sc.State), true)
	case bridge.EventDeviceAdded:
		de, _ := event.Data.(bridge.DeviceEvent)
		if dev, err := b.core.Device(de.IEEEAddress); err == nil {
			b.publishDeviceDiscovery(dev)
		}
		b.publishDevices()
	case bridge.EventDeviceRenamed:
		de, _ := event.Data.(bridge.DeviceEvent)
		b.publish(b.prefix+"/"+de.OldName, nil, true)
		if dev, err := b.core.Device(de.IEEEAddress); err == nil {
			b.publishDeviceDiscovery(dev)
			b.publishState(dev)
		}
		b.publishDevices()
	case bridge.EventDeviceRemoved:
		de, _ := event.Data.(bridge.DeviceEvent)
		b.publish(b.prefix+"/"+de.FriendlyName, nil, true)
		if b.cfg.Discovery {
			for _, msg := range buildRemoveDiscovery(de.IEEEAddress, b.cfg.DiscoveryPrefix) {
				b.publish(msg.Topic, msg.Payload, true)
			}
		}
		b.publishDevices()
	}
}

func (b *Bridge) publishBridgeState(state string) {
	b.publish(b.prefix+"/bridge/state", []byte(state), true)
}

// publishAll publishes discovery, the device list and cached state of every
// device, as retained messages a reconnecting frontend picks up.
func (b *Bridge) publishAll() {
	devices, err := b.core.Devices()
	if err != nil {
		b.logger.Error("list devices", "err", err)
		return
	}
	for _, dev := range devices {
		b.publishDeviceDiscovery(dev)
		b.publishState(dev)
	}
	b.publishDevices()
}

func (b *Bridge) publishState(dev *store.Device) {
	st, err := b.core.State(dev.IEEEAddress)
	if err != nil || len(st) == 0 {
		return
	}
	b.publish(b.prefix+"/"+dev.Name(), mustJSON(st), true)
}

func (b *Bridge) publishDeviceDiscovery(dev *store.Device) {
	if !b.cfg.Discovery {
		return
	}
	msgs := buildDiscovery(dev, b.core.Definition(dev), b.prefix, b.cfg.DiscoveryPrefix)
	for _, msg := range msgs {
		b.publish(msg.Topic, msg.Payload, true)
	}
	b.logger.Debug("published HA discovery", "ieee", dev.IEEEAddress, "name", dev.Name())
}

// deviceInfo is an entry of the retained bridge/devices list.
type deviceInfo struct {
	IEEEAddress  string   `json:"ieee_address"`
	FriendlyName string   `json:"friendly_name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Supported    bool     `json:"supported"`
	ColorModes   []string `json:"color_modes,omitempty"`
	Effects      []string `json:"effects,omitempty"`
	Gradient     bool     `json:"gradient,omitempty"`
}

func (b *Bridge) publishDevices() {
	devices, err := b.core.Devices()
	if err != nil {
		b.logger.Error("list devices", "err", err)
		return
	}
	list := make([]deviceInfo, 0, len(devices))
	for _, dev := range devices {
		info := deviceInfo{
			IEEEAddress:  dev.IEEEAddress,
			FriendlyName: dev.Name(),
			Manufacturer: dev.Manufacturer,
			Model:        dev.Model,
		}
		if def := b.core.Definition(dev); def != nil {
			info.Supported = true
			info.ColorModes = def.Light.ColorModes
			info.Effects = def.Effects()
			info.Gradient = def.Light.Gradient != nil
		}
		list = append(list, info)
	}
	b.publish(b.prefix+"/bridge/devices", mustJSON(list), true)
}

func (b *Bridge) subscribe() {
	subs := map[string]pahomqtt.MessageHandler{
		b.prefix + "/+/set":          b.onFrontendMessage,
		b.prefix + "/+/get":          b.onFrontendMessage,
		b.prefix + "/zcl/+/report":   b.onReport,
		b.prefix + "/bridge/request": b.onBridgeRequest,
	}
	for topic, handler := range subs {
		token := b.client.Subscribe(topic, 1, handler)
		go func(topic string) {
			if !token.WaitTimeout(5 * time.Second) {
				b.logger.Warn("MQTT subscribe timeout", "topic", topic)
			} else if err := token.Error(); err != nil {
				b.logger.Error("MQTT subscribe failed", "topic", topic, "err", err)
			}
		}(topic)
	}
}

func (b *Bridge) onFrontendMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	device, action, ok := parseDeviceTopic(b.prefix, msg.Topic())
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, b.cfg.CommandTimeout)
	defer cancel()

	switch action {
	case "set":
		payload := parseSetPayload(msg.Payload())
		if payload == nil {
			b.logger.Warn("invalid set payload", "device", device, "payload", string(msg.Payload()))
			return
		}
		if _, err := b.core.Set(ctx, device, payload); err != nil {
			b.logger.Warn("set failed", "device", device, "err", err)
		}
	case "get":
		keys := parseGetPayload(msg.Payload())
		if len(keys) == 0 {
			if dev, err := b.core.Device(device); err == nil {
				b.publishState(dev)
			}
			return
		}
		if err := b.core.Get(ctx, device, keys); err != nil {
			b.logger.Warn("get failed", "device", device, "err", err)
		}
	}
}

func (b *Bridge) onReport(_ pahomqtt.Client, msg pahomqtt.Message) {
	rest := strings.TrimPrefix(msg.Topic(), b.prefix+"/zcl/")
	ieee := strings.TrimSuffix(rest, "/report")
	cluster, attrs, err := decodeReport(msg.Payload())
	if err != nil {
		b.logger.Warn("invalid report", "ieee", ieee, "err", err)
		return
	}
	if _, err := b.core.HandleReport(ieee, cluster, attrs); err != nil {
		b.logger.Warn("report not applied", "ieee", ieee, "cluster", fmt.Sprintf("0x%04X", cluster), "err", err)
	}
}

// bridgeRequest manages devices over MQTT.
type bridgeRequest struct {
	Action       string `json:"action"` // add, remove, rename
	IEEEAddress  string `json:"ieee_address"`
	FriendlyName string `json:"friendly_name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Endpoint     uint8  `json:"endpoint"`
}

type bridgeResponse struct {
	Action string `json:"action"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (b *Bridge) onBridgeRequest(_ pahomqtt.Client, msg pahomqtt.Message) {
	var req bridgeRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		b.respond(bridgeResponse{Status: "error", Error: err.Error()})
		return
	}

	var err error
	switch req.Action {
	case "add":
		err = b.core.AddDevice(&store.Device{
			IEEEAddress:  req.IEEEAddress,
			FriendlyName: req.FriendlyName,
			Manufacturer: req.Manufacturer,
			Model:        req.Model,
			Endpoint:     req.Endpoint,
		})
	case "remove":
		err = b.core.RemoveDevice(req.IEEEAddress)
	case "rename":
		err = b.core.RenameDevice(req.IEEEAddress, req.FriendlyName)
	default:
		err = fmt.Errorf("unknown action %q", req.Action)
	}

	resp := bridgeResponse{Action: req.Action, Status: "ok"}
	if err != nil {
		resp.Status, resp.Error = "error", err.Error()
		b.logger.Warn("bridge request failed", "action", req.Action, "err", err)
	}
	b.respond(resp)
}

func (b *Bridge) respond(resp bridgeResponse) {
	b.publish(b.prefix+"/bridge/response", mustJSON(resp), false)
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}

// parseDeviceTopic splits <prefix>/<device>/<action>.
func parseDeviceTopic(prefix, topic string) (device, action string, ok bool) {
	rest, found := strings.CutPrefix(topic, prefix+"/")
	if !found {
		return "", "", false
	}
	device, action, found = strings.Cut(rest, "/")
	if !found || device == "" || device == "bridge" || strings.Contains(action, "/") {
		return "", "", false
	}
	if action != "set" && action != "get" {
		return "", "", false
	}
	return device, action, true
}

// parseSetPayload accepts a JSON object or a bare state such as ON.
func parseSetPayload(data []byte) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err == nil {
		return m
	}
	s := strings.TrimSpace(string(data))
	switch strings.ToUpper(s) {
	case "ON", "OFF", "TOGGLE":
		return map[string]any{"state": s}
	}
	return nil
}

// parseGetPayload returns the keys of a JSON object such as {"state": ""}.
func parseGetPayload(data []byte) []string {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
