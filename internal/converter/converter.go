// Package converter translates between device state properties and ZCL
// commands and attribute reports for color lights.
package converter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"zigbee-go-color/internal/color"
	"zigbee-go-color/internal/devicedb"
	"zigbee-go-color/internal/zcl"
)

var (
	// ErrUnsupported is returned when a device cannot handle a property or value.
	ErrUnsupported = errors.New("unsupported")
	// ErrInvalidValue is returned for property values of the wrong shape or range.
	ErrInvalidValue = errors.New("invalid value")
)

// Entity is the Zigbee side of a device endpoint.
type Entity interface {
	Command(ctx context.Context, cmd zcl.Command) error
	Read(ctx context.Context, cluster uint16, attrs []uint16) error
	Write(ctx context.Context, req zcl.WriteRequest) error
}

// Meta is the context a converter runs in.
type Meta struct {
	// Message is the complete set payload, so converters can see sibling
	// keys such as transition.
	Message map[string]any
	// State is the cached device state. Converters must not modify it.
	State   map[string]any
	Options devicedb.Options
	// Device is nil for devices without a definition; converters then
	// assume full color support.
	Device *devicedb.Definition
}

// ColorOptions returns the color part of the options.
func (m *Meta) ColorOptions() color.Options {
	return m.Options.Options
}

// transition returns the transition time in tenths of a second and whether
// one was requested, either in the message or as a device default.
func (m *Meta) transition() (float64, bool, error) {
	if v, ok := m.Message["transition"]; ok && v != nil {
		f, ok := toFloat(v)
		if !ok || f < 0 {
			return 0, false, fmt.Errorf("%w: transition %v", ErrInvalidValue, v)
		}
		return math.Round(f * 10), true, nil
	}
	if m.Options.Transition != nil {
		return math.Round(*m.Options.Transition * 10), true, nil
	}
	return 0, false, nil
}

// SetFunc converts one property of a set request into commands and returns
// the resulting state delta.
type SetFunc func(ctx context.Context, e Entity, key string, value any, meta *Meta) (map[string]any, error)

// GetFunc requests fresh attribute values for a property.
type GetFunc func(ctx context.Context, e Entity, key string, meta *Meta) error

// ToZigbee handles one or more properties. A converter with several keys is
// called once per request, with the first key present.
type ToZigbee struct {
	Keys       []string
	ConvertSet SetFunc
	ConvertGet GetFunc
}

// Handles reports whether key is one of the converter keys.
func (c *ToZigbee) Handles(key string) bool {
	for _, k := range c.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// FromZigbee turns attribute reports of one cluster into a state delta.
type FromZigbee struct {
	Cluster uint16
	Convert func(attrs map[uint16]any, meta *Meta) map[string]any
}

// MapNumberRange maps value linearly from one range onto another and rounds
// to precision decimals.
func MapNumberRange(value, fromLow, fromHigh, toLow, toHigh float64, precision int) float64 {
	mapped := toLow + (value-fromLow)*(toHigh-toLow)/(fromHigh-fromLow)
	return color.PrecisionRound(mapped, precision)
}

// ClampColorTemp limits mireds to [lo, hi]. A zero bound is treated as unset.
func ClampColorTemp(mireds, lo, hi float64) float64 {
	if lo != 0 && mireds < lo {
		return lo
	}
	if hi != 0 && mireds > hi {
		return hi
	}
	return mireds
}

func send(ctx context.Context, e Entity, cluster *zcl.ClusterDef, name string, args map[string]interface{}) error {
	cmd, err := zcl.NewCommand(cluster, name, args)
	if err != nil {
		return err
	}
	if err := e.Command(ctx, cmd); err != nil {
		return fmt.Errorf("%s/%s: %w", cluster.Name, name, err)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
