package converter

import (
	"context"
	"fmt"
	"strings"

	"zigbee-go-color/internal/color"
	"zigbee-go-color/internal/devicedb"
	"zigbee-go-color/internal/philips"
	"zigbee-go-color/internal/zcl"
	"zigbee-go-color/internal/zcl/clusters"
)

func multiColor(ctx context.Context, e Entity, payload []byte) error {
	return send(ctx, e, &clusters.Philips2, "MultiColor", map[string]interface{}{"data": payload})
}

func readPhilipsState(ctx context.Context, e Entity, key string, meta *Meta) error {
	return e.Read(ctx, clusters.Philips2.ID, []uint16{clusters.AttrPhilipsState})
}

func gradientOptions(meta *Meta) philips.GradientOptions {
	if meta.Device != nil && meta.Device.Light.Gradient != nil {
		return *meta.Device.Light.Gradient
	}
	return philips.GradientOptions{}
}

// Gradient sends a list of hex colors to a gradient light.
var Gradient = &ToZigbee{
	Keys: []string{"gradient"},
	ConvertSet: func(ctx context.Context, e Entity, key string, value any, meta *Meta) (map[string]any, error) {
		colors, err := stringList(value)
		if err != nil {
			return nil, err
		}
		payload, err := philips.GradientPayload(colors, gradientOptions(meta))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if err := multiColor(ctx, e, payload); err != nil {
			return nil, err
		}
		return map[string]any{"gradient": colors}, nil
	},
	ConvertGet: readPhilipsState,
}

// GradientScene applies one of the built-in gradient scenes.
var GradientScene = &ToZigbee{
	Keys: []string{"gradient_scene"},
	ConvertSet: func(ctx context.Context, e Entity, key string, value any, meta *Meta) (map[string]any, error) {
		name, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: gradient_scene must be a string", ErrInvalidValue)
		}
		payload, err := philips.ScenePayload(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if err := multiColor(ctx, e, payload); err != nil {
			return nil, err
		}
		colors, err := philips.DecodeGradient(payload, gradientOptions(meta))
		if err != nil {
			return map[string]any{}, nil
		}
		return map[string]any{"gradient": colors}, nil
	},
}

// Effect runs a Hue effect on lights that support it and falls back to the
// Identify trigger effects otherwise.
var Effect = &ToZigbee{
	Keys: []string{"effect"},
	ConvertSet: func(ctx context.Context, e Entity, key string, value any, meta *Meta) (map[string]any, error) {
		name, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: effect must be a string", ErrInvalidValue)
		}
		if meta.Device != nil && meta.Device.Light.HueEffects && philips.IsHueEffect(name) {
			payload, err := philips.EffectPayload(name)
			if err != nil {
				return nil, err
			}
			return nil, multiColor(ctx, e, payload)
		}
		return nil, triggerEffect(ctx, e, name)
	},
}

// Startup attribute values. 0xFF/0xFFFF mean "previous value".
const (
	startUpOff         = 0x00
	startUpOn          = 0x01
	startUpPrevious    = 0xff
	startUpPrevious16  = 0xffff
	defaultStartUpTemp = 366
)

// HuePowerOn sets what a Hue light does when mains power returns. The
// behavior is off, on (with optional brightness and either a color
// temperature or a hex color) or recover. The other keys are only valid
// next to hue_power_on_behavior.
var HuePowerOn = &ToZigbee{
	Keys: []string{"hue_power_on_behavior", "hue_power_on_brightness", "hue_power_on_color_temperature", "hue_power_on_color"},
	ConvertSet: func(ctx context.Context, e Entity, key string, value any, meta *Meta) (map[string]any, error) {
		msg := meta.Message
		raw, ok := msg["hue_power_on_behavior"]
		if !ok || raw == nil {
			return nil, fmt.Errorf("%w: provide a value for 'hue_power_on_behavior'", ErrInvalidValue)
		}
		behavior, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: hue_power_on_behavior must be a string", ErrInvalidValue)
		}
		behavior = strings.ToLower(behavior)
		if behavior == "default" {
			behavior = "on"
		}

		hasTemp, hasXY, hasColorCluster := true, true, true
		if meta.Device != nil {
			hasTemp = meta.Device.SupportsColorMode(devicedb.ColorModeTemp)
			hasXY = meta.Device.HasColor()
			hasColorCluster = hasTemp || hasXY
		}

		var err error
		switch behavior {
		case "off":
			err = writeAttrs(ctx, e, &clusters.OnOff, 0, attrValue{clusters.AttrStartUpOnOff, startUpOff})
		case "recover":
			err = powerOnRecover(ctx, e, hasTemp, hasXY)
		case "on":
			var p powerOnSettings
			if p, err = parsePowerOn(msg); err != nil {
				return nil, err
			}
			err = powerOn(ctx, e, p, hasColorCluster, hasTemp, hasXY)
		default:
			return nil, fmt.Errorf("%w: hue_power_on_behavior must be 'default', 'on', 'off' or 'recover', got %q", ErrInvalidValue, raw)
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{"hue_power_on_behavior": behavior}, nil
	},
}

type powerOnSettings struct {
	brightness float64
	temp       *float64
	xy         *color.XY
}

func parsePowerOn(msg map[string]any) (powerOnSettings, error) {
	p := powerOnSettings{brightness: 254}
	if v, ok := msg["hue_power_on_brightness"]; ok && v != nil {
		f, ok := toFloat(v)
		if !ok || f < 1 || f > 255 {
			return p, fmt.Errorf("%w: hue_power_on_brightness must be 1-254, got %v", ErrInvalidValue, v)
		}
		// 255 means "previous" on the wire
		p.brightness = min(f, 254)
	}

	tempRaw, hasTemp := msg["hue_power_on_color_temperature"]
	colorRaw, hasColor := msg["hue_power_on_color"]
	if hasTemp && hasColor {
		return p, fmt.Errorf("%w: provide either hue_power_on_color_temperature or hue_power_on_color, not both", ErrInvalidValue)
	}
	if hasTemp {
		f, ok := toFloat(tempRaw)
		if !ok || f < 1 || f > 0xfeff {
			return p, fmt.Errorf("%w: hue_power_on_color_temperature %v", ErrInvalidValue, tempRaw)
		}
		p.temp = &f
	}
	if hasColor {
		s, ok := colorRaw.(string)
		if !ok {
			return p, fmt.Errorf("%w: hue_power_on_color must be a hex string", ErrInvalidValue)
		}
		rgb, err := color.RGBFromHex(s)
		if err != nil {
			return p, fmt.Errorf("%w: hue_power_on_color: %v", ErrInvalidValue, err)
		}
		xy := rgb.ToXY()
		p.xy = &xy
	}
	return p, nil
}

func powerOnRecover(ctx context.Context, e Entity, hasTemp, hasXY bool) error {
	if err := writeAttrs(ctx, e, &clusters.OnOff, 0, attrValue{clusters.AttrStartUpOnOff, startUpPrevious}); err != nil {
		return err
	}
	if err := writeAttrs(ctx, e, &clusters.LevelControl, 0, attrValue{clusters.AttrStartUpCurrentLevel, startUpPrevious}); err != nil {
		return err
	}
	if hasTemp {
		if err := writeAttrs(ctx, e, &clusters.ColorControl, 0, attrValue{clusters.AttrStartUpColorTemp, startUpPrevious16}); err != nil {
			return err
		}
	}
	if hasXY {
		return writeStartUpXY(ctx, e, startUpPrevious16, startUpPrevious16)
	}
	return nil
}

func powerOn(ctx context.Context, e Entity, p powerOnSettings, hasColorCluster, hasTemp, hasXY bool) error {
	if err := writeAttrs(ctx, e, &clusters.OnOff, 0, attrValue{clusters.AttrStartUpOnOff, startUpOn}); err != nil {
		return err
	}
	if err := writeAttrs(ctx, e, &clusters.LevelControl, 0, attrValue{clusters.AttrStartUpCurrentLevel, p.brightness}); err != nil {
		return err
	}
	if !hasColorCluster {
		return nil
	}

	temp := float64(defaultStartUpTemp)
	x, y := float64(startUpPrevious16), float64(startUpPrevious16)
	switch {
	case p.temp != nil:
		// x/y go back to the light default
		if err := writeAttrs(ctx, e, &clusters.ColorControl, 0, attrValue{clusters.AttrStartUpColorTemp, *p.temp}); err != nil {
			return err
		}
		hasTemp = false
	case p.xy != nil:
		x = MapNumberRange(p.xy.X, 0, 1, 0, 65535, 0)
		y = MapNumberRange(p.xy.Y, 0, 1, 0, 65535, 0)
	}
	if hasTemp {
		if err := writeAttrs(ctx, e, &clusters.ColorControl, 0, attrValue{clusters.AttrStartUpColorTemp, temp}); err != nil {
			return err
		}
	}
	if hasXY {
		return writeStartUpXY(ctx, e, x, y)
	}
	return nil
}

// writeStartUpXY sets the power-on color. Signify lights take it as a
// manufacturer specific write of CurrentX/CurrentY.
func writeStartUpXY(ctx context.Context, e Entity, x, y float64) error {
	return writeAttrs(ctx, e, &clusters.ColorControl, clusters.PhilipsManufacturerCode,
		attrValue{clusters.AttrCurrentX, x},
		attrValue{clusters.AttrCurrentY, y})
}

type attrValue struct {
	id    uint16
	value any
}

// writeAttrs writes values to cluster, taking each data type from the
// cluster definition.
func writeAttrs(ctx context.Context, e Entity, cluster *zcl.ClusterDef, manufacturer uint16, values ...attrValue) error {
	req := zcl.WriteRequest{Cluster: cluster.ID, Manufacturer: manufacturer}
	for _, v := range values {
		def := cluster.FindAttribute(v.id)
		if def == nil {
			return fmt.Errorf("%s: unknown attribute 0x%04X", cluster.Name, v.id)
		}
		req.Records = append(req.Records, zcl.AttributeValue{ID: v.id, Type: def.Type, Value: v.value})
	}
	if err := e.Write(ctx, req); err != nil {
		return fmt.Errorf("%s write: %w", cluster.Name, err)
	}
	return nil
}

func stringList(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: gradient color %d is %T, want hex string", ErrInvalidValue, i, item)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: gradient must be a list of hex colors", ErrInvalidValue)
}
