// Package bridge ties device definitions, cached state and converters
// together and publishes state changes on an event bus.
package bridge

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"zigbee-go-color/internal/converter"
	"zigbee-go-color/internal/devicedb"
	"zigbee-go-color/internal/store"
)

var (
	// ErrNoTransport is returned when no Zigbee transport is attached.
	ErrNoTransport = errors.New("no zigbee transport")
	// ErrInvalidDevice is returned for device records that fail validation.
	ErrInvalidDevice = errors.New("invalid device")
)

// Transport provides the Zigbee side entity of a device.
type Transport interface {
	Entity(dev *store.Device) converter.Entity
}

// Bridge is the core of the color bridge.
type Bridge struct {
	store  store.Store
	db     *devicedb.DeviceDB
	events *EventBus
	logger *slog.Logger

	transportMu sync.RWMutex
	transport   Transport

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a bridge.
func New(st store.Store, db *devicedb.DeviceDB, logger *slog.Logger) *Bridge {
	return &Bridge{
		store:  st,
		db:     db,
		events: NewEventBus(logger.With("component", "events")),
		logger: logger.With("component", "bridge"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Events returns the event bus.
func (b *Bridge) Events() *EventBus { return b.events }

// SetTransport attaches the Zigbee transport.
func (b *Bridge) SetTransport(t Transport) {
	b.transportMu.Lock()
	b.transport = t
	b.transportMu.Unlock()
}

func (b *Bridge) entity(dev *store.Device) (converter.Entity, error) {
	b.transportMu.RLock()
	defer b.transportMu.RUnlock()
	if b.transport == nil {
		return nil, ErrNoTransport
	}
	return b.transport.Entity(dev), nil
}

// deviceLock serialises state updates of one device.
func (b *Bridge) deviceLock(ieee string) *sync.Mutex {
	b.locksMu.Lock()
	defer b.locksMu.Unlock()
	l, ok := b.locks[ieee]
	if !ok {
		l = &sync.Mutex{}
		b.locks[ieee] = l
	}
	return l
}

// NormalizeIEEE returns the address as 16 upper case hex digits. Colons and
// a 0x prefix are accepted.
func NormalizeIEEE(s string) (string, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	s = strings.ReplaceAll(s, ":", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("parse ieee address: %w", err)
	}
	if len(b) != 8 {
		return "", fmt.Errorf("ieee address must be 8 bytes, got %d", len(b))
	}
	return strings.ToUpper(s), nil
}

func validName(name string) error {
	switch {
	case name == "":
		return nil
	case name == "bridge":
		return fmt.Errorf("%w: friendly name %q is reserved", ErrInvalidDevice, name)
	case strings.ContainsAny(name, "+#/"):
		return fmt.Errorf("%w: friendly name %q is not a valid topic level", ErrInvalidDevice, name)
	}
	return nil
}

// Device resolves a device by IEEE address or friendly name.
func (b *Bridge) Device(ref string) (*store.Device, error) {
	if ieee, err := NormalizeIEEE(ref); err == nil {
		dev, err := b.store.GetDevice(ieee)
		if err == nil || !errors.Is(err, store.ErrNotFound) {
			return dev, err
		}
	}
	return b.store.FindDevice(ref)
}

// Devices lists all devices ordered by friendly name.
func (b *Bridge) Devices() ([]*store.Device, error) {
	devs, err := b.store.ListDevices()
	if err != nil {
		return nil, err
	}
	sort.Slice(devs, func(i, j int) bool { return devs[i].Name() < devs[j].Name() })
	return devs, nil
}

// Definition returns the definition of a device, or nil when the model is
// unknown.
func (b *Bridge) Definition(dev *store.Device) *devicedb.Definition {
	if b.db == nil {
		return nil
	}
	return b.db.Lookup(dev.Manufacturer, dev.Model)
}

// State returns the cached state of a device.
func (b *Bridge) State(ref string) (map[string]any, error) {
	dev, err := b.Device(ref)
	if err != nil {
		return nil, err
	}
	return b.store.GetState(dev.IEEEAddress)
}

// AddDevice stores a new device or updates an existing one with the same
// IEEE address. The cached state of an existing device is kept.
func (b *Bridge) AddDevice(dev *store.Device) error {
	ieee, err := NormalizeIEEE(dev.IEEEAddress)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDevice, err)
	}
	if err := validName(dev.FriendlyName); err != nil {
		return err
	}
	dev.IEEEAddress = ieee
	if dev.FriendlyName != "" {
		other, err := b.store.FindDevice(dev.FriendlyName)
		if err == nil && other.IEEEAddress != ieee {
			return fmt.Errorf("%w: friendly name %q already used by %s", ErrInvalidDevice, dev.FriendlyName, other.IEEEAddress)
		}
	}

	existing, err := b.store.GetDevice(ieee)
	switch {
	case err == nil:
		dev.AddedAt = existing.AddedAt
		dev.LastSeen = existing.LastSeen
	case errors.Is(err, store.ErrNotFound):
		dev.AddedAt = time.Now()
	default:
		return err
	}
	if dev.Endpoint == 0 {
		dev.Endpoint = 1
		if def := b.Definition(dev); def != nil && def.Endpoint != 0 {
			dev.Endpoint = def.Endpoint
		}
	}
	if err := b.store.SaveDevice(dev); err != nil {
		return fmt.Errorf("save device %s: %w", ieee, err)
	}

	if existing == nil {
		if b.Definition(dev) == nil {
			b.logger.Warn("no definition for device, assuming full color support",
				"ieee", ieee, "manufacturer", dev.Manufacturer, "model", dev.Model)
		}
		b.logger.Info("device added", "ieee", ieee, "name", dev.Name())
		b.events.Emit(Event{Type: EventDeviceAdded, Data: DeviceEvent{IEEEAddress: ieee, FriendlyName: dev.Name()}})
	}
	return nil
}

// RemoveDevice deletes a device and its cached state.
func (b *Bridge) RemoveDevice(ref string) error {
	dev, err := b.Device(ref)
	if err != nil {
		return err
	}
	if err := b.store.DeleteDevice(dev.IEEEAddress); err != nil {
		return fmt.Errorf("delete device %s: %w", dev.IEEEAddress, err)
	}
	b.locksMu.Lock()
	delete(b.locks, dev.IEEEAddress)
	b.locksMu.Unlock()
	b.logger.Info("device removed", "ieee", dev.IEEEAddress, "name", dev.Name())
	b.events.Emit(Event{Type: EventDeviceRemoved, Data: DeviceEvent{IEEEAddress: dev.IEEEAddress, FriendlyName: dev.Name()}})
	return nil
}

// RenameDevice changes the friendly name of a device.
func (b *Bridge) RenameDevice(ref, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty friendly name", ErrInvalidDevice)
	}
	if err := validName(name); err != nil {
		return err
	}
	dev, err := b.Device(ref)
	if err != nil {
		return err
	}
	if other, err := b.store.FindDevice(name); err == nil && other.IEEEAddress != dev.IEEEAddress {
		return fmt.Errorf("%w: friendly name %q already used by %s", ErrInvalidDevice, name, other.IEEEAddress)
	}
	old := dev.Name()
	err = b.store.UpdateDevice(dev.IEEEAddress, func(d *store.Device) error {
		d.FriendlyName = name
		return nil
	})
	if err != nil {
		return err
	}
	b.events.Emit(Event{Type: EventDeviceRenamed, Data: DeviceEvent{IEEEAddress: dev.IEEEAddress, FriendlyName: name, OldName: old}})
	return nil
}

// meta builds the converter context of a device.
func (b *Bridge) meta(dev *store.Device, msg, state map[string]any) *converter.Meta {
	def := b.Definition(dev)
	var opts devicedb.Options
	if def != nil {
		opts = def.ColorOptions()
	}
	return &converter.Meta{
		Message: msg,
		State:   state,
		Options: opts.Merge(dev.Options),
		Device:  def,
	}
}

// orderKeys returns the payload keys in processing order: state and
// brightness go first, unless the light is being turned off, in which case
// they go last so color changes still reach it.
func orderKeys(payload map[string]any) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	off := false
	if s, ok := payload["state"].(string); ok && strings.EqualFold(s, "off") {
		off = true
	}
	isOnOff := func(k string) bool {
		return k == "state" || k == "brightness" || k == "brightness_percent"
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := isOnOff(keys[i]), isOnOff(keys[j])
		if off {
			return !a && b
		}
		return a && !b
	})
	return keys
}

// Set applies a payload of properties to a device. Every property with a
// converter is attempted; errors are joined. The successful part of the
// change is merged into the cached state, which is returned.
func (b *Bridge) Set(ctx context.Context, ref string, payload map[string]any) (map[string]any, error) {
	dev, err := b.Device(ref)
	if err != nil {
		return nil, err
	}
	entity, err := b.entity(dev)
	if err != nil {
		return nil, err
	}

	lock := b.deviceLock(dev.IEEEAddress)
	lock.Lock()
	defer lock.Unlock()

	cached, err := b.store.GetState(dev.IEEEAddress)
	if err != nil {
		return nil, err
	}
	meta := b.meta(dev, payload, cached)
	convs := converter.ToZigbeeFor(meta.Device)

	delta := map[string]any{}
	used := map[*converter.ToZigbee]bool{}
	var errs []error
	for _, key := range orderKeys(payload) {
		if key == "transition" {
			continue
		}
		conv := converter.Find(convs, key)
		if conv == nil {
			errs = append(errs, fmt.Errorf("%s: %w: no converter", key, converter.ErrUnsupported))
			continue
		}
		if used[conv] {
			continue
		}
		used[conv] = true

		out, err := conv.ConvertSet(ctx, entity, key, payload[key], meta)
		if err != nil {
			b.logger.Warn("set failed", "ieee", dev.IEEEAddress, "key", key, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		mergeState(delta, out)
	}

	if len(delta) == 0 {
		return cached, errors.Join(errs...)
	}
	state, err := b.commit(dev, delta)
	if err != nil {
		errs = append(errs, err)
	}
	return state, errors.Join(errs...)
}

// Get asks the device to report the given properties. Reported values
// arrive through HandleReport.
func (b *Bridge) Get(ctx context.Context, ref string, keys []string) error {
	dev, err := b.Device(ref)
	if err != nil {
		return err
	}
	entity, err := b.entity(dev)
	if err != nil {
		return err
	}
	cached, err := b.store.GetState(dev.IEEEAddress)
	if err != nil {
		return err
	}
	meta := b.meta(dev, map[string]any{}, cached)
	convs := converter.ToZigbeeFor(meta.Device)

	used := map[*converter.ToZigbee]bool{}
	var errs []error
	for _, key := range keys {
		conv := converter.Find(convs, key)
		if conv == nil || conv.ConvertGet == nil {
			errs = append(errs, fmt.Errorf("%s: %w: no getter", key, converter.ErrUnsupported))
			continue
		}
		if used[conv] {
			continue
		}
		used[conv] = true
		if err := conv.ConvertGet(ctx, entity, key, meta); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// HandleReport converts attribute values reported by a device and merges
// them into its cached state. The delta is returned; it is empty when no
// converter understood the report.
func (b *Bridge) HandleReport(ieee string, cluster uint16, attrs map[uint16]any) (map[string]any, error) {
	dev, err := b.Device(ieee)
	if err != nil {
		return nil, err
	}

	lock := b.deviceLock(dev.IEEEAddress)
	lock.Lock()
	defer lock.Unlock()

	cached, err := b.store.GetState(dev.IEEEAddress)
	if err != nil {
		return nil, err
	}
	meta := b.meta(dev, nil, cached)

	delta := map[string]any{}
	for _, fz := range converter.FromZigbeeFor(meta.Device) {
		if fz.Cluster != cluster {
			continue
		}
		mergeState(delta, fz.Convert(attrs, meta))
	}

	err = b.store.UpdateDevice(dev.IEEEAddress, func(d *store.Device) error {
		d.LastSeen = time.Now()
		return nil
	})
	if err != nil {
		b.logger.Warn("update last seen failed", "ieee", dev.IEEEAddress, "err", err)
	}

	if len(delta) == 0 {
		b.logger.Debug("report ignored", "ieee", dev.IEEEAddress, "cluster", fmt.Sprintf("0x%04X", cluster))
		return delta, nil
	}
	if _, err := b.commit(dev, delta); err != nil {
		return nil, err
	}
	return delta, nil
}

// commit merges delta into the cached state and emits a state change.
// Callers hold the device lock.
func (b *Bridge) commit(dev *store.Device, delta map[string]any) (map[string]any, error) {
	state, err := b.store.UpdateState(dev.IEEEAddress, func(st map[string]any) error {
		mergeState(st, delta)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update state %s: %w", dev.IEEEAddress, err)
	}
	b.logger.Debug("state changed", "ieee", dev.IEEEAddress, "delta", delta)
	b.events.Emit(Event{Type: EventStateChange, Data: StateChange{
		IEEEAddress:  dev.IEEEAddress,
		FriendlyName: dev.Name(),
		State:        state,
		Delta:        delta,
	}})
	return state, nil
}

// mergeState copies src into dst. Nested objects are merged key by key.
func mergeState(dst, src map[string]any) {
	for k, v := range src {
		sv, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		dv, ok := dst[k].(map[string]any)
		if !ok {
			dv = make(map[string]any, len(sv))
			dst[k] = dv
		}
		mergeState(dv, sv)
	}
}
