package converter

import (
	"context"
	"fmt"
	"math"
	"strings"

	"zigbee-go-color/internal/color"
	"zigbee-go-color/internal/devicedb"
	"zigbee-go-color/internal/zcl/clusters"
)

// Color temperature bounds used when a light does not declare its range.
const (
	defaultColorTempMin = 154
	defaultColorTempMax = 500
)

// OnOffBrightness handles state and brightness together so a request with
// both keys sends a single MoveToLevelWithOnOff.
var OnOffBrightness = &ToZigbee{
	Keys: []string{"state", "brightness", "brightness_percent"},
	ConvertSet: func(ctx context.Context, e Entity, key string, value any, meta *Meta) (map[string]any, error) {
		msg := meta.Message
		transtime, specified, err := meta.transition()
		if err != nil {
			return nil, err
		}

		state := ""
		if v, ok := msg["state"]; ok && v != nil {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: state %v", ErrInvalidValue, v)
			}
			state = strings.ToLower(s)
			if state != "on" && state != "off" && state != "toggle" {
				return nil, fmt.Errorf("%w: state must be 'ON', 'OFF' or 'TOGGLE', got %q", ErrInvalidValue, s)
			}
		}

		var brightness *float64
		if v, ok := msg["brightness"]; ok && v != nil {
			f, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("%w: brightness %v", ErrInvalidValue, v)
			}
			brightness = &f
		} else if v, ok := msg["brightness_percent"]; ok && v != nil {
			f, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("%w: brightness_percent %v", ErrInvalidValue, v)
			}
			brightness = color.Float(MapNumberRange(f, 0, 100, 0, 255, 0))
		}
		if brightness != nil {
			// 255 is accepted for backwards compatibility
			if *brightness == 255 {
				*brightness = 254
			}
			if math.IsNaN(*brightness) || *brightness < 0 || *brightness > 254 {
				return nil, fmt.Errorf("%w: brightness must be between 0 and 254, got %v", ErrInvalidValue, *brightness)
			}
		}

		if state == "" && brightness == nil {
			return nil, fmt.Errorf("%w: at least one of brightness or state must have a value", ErrInvalidValue)
		}
		if state == "" {
			state = "on"
			if *brightness == 0 {
				state = "off"
			}
		}

		current, _ := meta.State["state"].(string)
		target := state
		if state == "toggle" {
			target = "on"
			if current == "ON" {
				target = "off"
			}
		}

		publishBrightness := brightness != nil
		switch {
		case target == "off":
			if specified || (brightness != nil && *brightness == 0) {
				brightness = color.Float(0)
			} else {
				brightness = nil
			}
		case brightness == nil && specified:
			level := 254.0
			if b, ok := toFloat(meta.State["brightness"]); ok && b > 0 {
				level = b
			}
			brightness = &level
			publishBrightness = true
		}

		if brightness == nil {
			name := map[string]string{"on": "On", "off": "Off", "toggle": "Toggle"}[state]
			if err := send(ctx, e, &clusters.OnOff, name, nil); err != nil {
				return nil, err
			}
			result := map[string]any{}
			switch {
			case state != "toggle":
				result["state"] = strings.ToUpper(state)
			case current != "":
				result["state"] = strings.ToUpper(target)
			}
			if result["state"] == "ON" {
				if b, ok := toFloat(meta.State["brightness"]); ok && b == 0 {
					result["brightness"] = 1
				}
			}
			return result, nil
		}

		if *brightness == 0 && target == "on" {
			*brightness = 1
		}
		err = send(ctx, e, &clusters.LevelControl, "MoveToLevelWithOnOff", map[string]interface{}{
			"level":     *brightness,
			"transtime": transtime,
		})
		if err != nil {
			return nil, err
		}

		result := map[string]any{"state": "ON"}
		if *brightness == 0 {
			result["state"] = "OFF"
		}
		if publishBrightness {
			result["brightness"] = int(*brightness)
		}
		return result, nil
	},
	ConvertGet: func(ctx context.Context, e Entity, key string, meta *Meta) error {
		if key == "state" {
			return e.Read(ctx, clusters.OnOff.ID, []uint16{0x0000})
		}
		return e.Read(ctx, clusters.LevelControl.ID, []uint16{0x0000})
	},
}

// Color sets xy or hue/saturation. RGB is gamma corrected and sent as xy.
var Color = &ToZigbee{
	Keys: []string{"color"},
	ConvertSet: func(ctx context.Context, e Entity, key string, value any, meta *Meta) (map[string]any, error) {
		c, err := color.FromConverterArg(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		transtime, _, err := meta.transition()
		if err != nil {
			return nil, err
		}

		supportsHS, enhancedHue, redFix := true, false, false
		if def := meta.Device; def != nil {
			supportsHS = def.SupportsColorMode(devicedb.ColorModeHS)
			enhancedHue = def.Light.EnhancedHue
			redFix = def.Light.ApplyRedFix
		}

		var delta color.State
		switch c := c.(type) {
		case color.RGB, color.XY:
			var xy color.XY
			if rgb, ok := c.(color.RGB); ok {
				xy = rgb.GammaCorrected().ToXY().Rounded(4)
			} else {
				xy = c.(color.XY)
			}
			// Some bulbs do not respond to the xy Home Assistant sends for pure red.
			if redFix && xy.X == 0.701 && xy.Y == 0.299 {
				xy = color.XY{X: 0.7006, Y: 0.2993}
			}
			err := send(ctx, e, &clusters.ColorControl, "MoveToColor", map[string]interface{}{
				"colorx":    MapNumberRange(xy.X, 0, 1, 0, 65535, 0),
				"colory":    MapNumberRange(xy.Y, 0, 1, 0, 65535, 0),
				"transtime": transtime,
			})
			if err != nil {
				return nil, err
			}
			delta = color.State{
				ColorMode: color.ModeXY,
				Color:     &color.StateColor{X: color.Float(xy.X), Y: color.Float(xy.Y)},
			}

		case color.HSV:
			if !supportsHS {
				return nil, fmt.Errorf("%w: this light does not support hue/saturation, use x/y instead", ErrUnsupported)
			}
			corrected := c.ColorCorrected(meta.ColorOptions())
			if err := sendHSV(ctx, e, c, corrected, value, transtime, enhancedHue); err != nil {
				return nil, err
			}
			delta = color.State{
				ColorMode: color.ModeHS,
				Color:     &color.StateColor{Hue: c.Hue, Saturation: c.Saturation},
			}

		default:
			return nil, fmt.Errorf("%w: invalid color", ErrInvalidValue)
		}

		return syncColor(delta, meta), nil
	},
	ConvertGet: func(ctx context.Context, e Entity, key string, meta *Meta) error {
		return e.Read(ctx, clusters.ColorControl.ID, readColorAttributes(meta.Device))
	},
}

func sendHSV(ctx context.Context, e Entity, hsv, corrected color.HSV, value any, transtime float64, enhanced bool) error {
	if hsv.Value != nil {
		if _, isMap := value.(map[string]any); isMap {
			err := send(ctx, e, &clusters.LevelControl, "MoveToLevelWithOnOff", map[string]interface{}{
				"level":     MapNumberRange(*corrected.Value, 0, 100, 0, 254, 0),
				"transtime": transtime,
			})
			if err != nil {
				return err
			}
		}
	}

	saturation := MapNumberRange(*corrected.Saturation, 0, 100, 0, 254, 0)
	switch {
	case hsv.Hue != nil && hsv.Saturation != nil:
		if enhanced {
			return send(ctx, e, &clusters.ColorControl, "EnhancedMoveToHueAndSaturation", map[string]interface{}{
				"enhancehue": MapNumberRange(*corrected.Hue, 0, 360, 0, 65535, 0),
				"saturation": saturation,
				"transtime":  transtime,
			})
		}
		return send(ctx, e, &clusters.ColorControl, "MoveToHueAndSaturation", map[string]interface{}{
			"hue":        MapNumberRange(*corrected.Hue, 0, 360, 0, 254, 0),
			"saturation": saturation,
			"transtime":  transtime,
		})

	case hsv.Hue != nil:
		direction := 0.0
		if m, ok := value.(map[string]any); ok {
			if d, ok := toFloat(m["direction"]); ok {
				direction = d
			}
		}
		if enhanced {
			return send(ctx, e, &clusters.ColorControl, "EnhancedMoveToHue", map[string]interface{}{
				"enhancehue": MapNumberRange(*corrected.Hue, 0, 360, 0, 65535, 0),
				"direction":  direction,
				"transtime":  transtime,
			})
		}
		return send(ctx, e, &clusters.ColorControl, "MoveToHue", map[string]interface{}{
			"hue":       MapNumberRange(*corrected.Hue, 0, 360, 0, 254, 0),
			"direction": direction,
			"transtime": transtime,
		})

	case hsv.Saturation != nil:
		return send(ctx, e, &clusters.ColorControl, "MoveToSaturation", map[string]interface{}{
			"saturation": saturation,
			"transtime":  transtime,
		})
	}
	return nil
}

func readColorAttributes(def *devicedb.Definition) []uint16 {
	attrs := []uint16{clusters.AttrColorMode}
	if def == nil || def.SupportsColorMode(devicedb.ColorModeXY) {
		attrs = append(attrs, clusters.AttrCurrentX, clusters.AttrCurrentY)
	}
	if def == nil || def.SupportsColorMode(devicedb.ColorModeHS) {
		if def != nil && def.Light.EnhancedHue {
			attrs = append(attrs, clusters.AttrEnhancedCurrentHue)
		} else {
			attrs = append(attrs, clusters.AttrCurrentHue)
		}
		attrs = append(attrs, clusters.AttrCurrentSaturation)
	}
	return attrs
}

// ColorTemp sets the color temperature in mireds, as a percentage of the
// light's range, or by preset name.
var ColorTemp = &ToZigbee{
	Keys: []string{"color_temp", "color_temp_percent"},
	ConvertSet: func(ctx context.Context, e Entity, key string, value any, meta *Meta) (map[string]any, error) {
		lo, hi := float64(defaultColorTempMin), float64(defaultColorTempMax)
		opts := meta.ColorOptions()
		if r := opts.ColorTempRange; r != nil {
			lo, hi = r[0], r[1]
		}
		presets := map[string]float64{"warmest": hi, "warm": 454, "neutral": 370, "cool": 250, "coolest": lo}

		var mireds float64
		if key == "color_temp_percent" {
			pct, ok := toFloat(value)
			if !ok {
				return nil, fmt.Errorf("%w: color_temp_percent %v", ErrInvalidValue, value)
			}
			mireds = MapNumberRange(pct, 0, 100, lo, hi, 0)
		} else if name, ok := value.(string); ok && presets[name] != 0 {
			mireds = presets[name]
		} else {
			f, ok := toFloat(value)
			if !ok || math.IsNaN(f) {
				return nil, fmt.Errorf("%w: color_temp %v", ErrInvalidValue, value)
			}
			mireds = math.Round(f)
		}
		mireds = ClampColorTemp(mireds, lo, hi)

		transtime, _, err := meta.transition()
		if err != nil {
			return nil, err
		}
		err = send(ctx, e, &clusters.ColorControl, "MoveToColorTemperature", map[string]interface{}{
			"colortemp": mireds,
			"transtime": transtime,
		})
		if err != nil {
			return nil, err
		}
		return syncColor(color.State{ColorMode: color.ModeColorTemp, ColorTemp: color.Float(mireds)}, meta), nil
	},
	ConvertGet: func(ctx context.Context, e Entity, key string, meta *Meta) error {
		return e.Read(ctx, clusters.ColorControl.ID, []uint16{clusters.AttrColorMode, clusters.AttrColorTemperature})
	},
}

// identifyEffects are the standard Identify trigger effects.
var identifyEffects = map[string]float64{
	"blink":          0,
	"breathe":        1,
	"okay":           2,
	"channel_change": 11,
	"finish_effect":  254,
	"stop_effect":    255,
}

func triggerEffect(ctx context.Context, e Entity, name string) error {
	id, ok := identifyEffects[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: effect %q", ErrUnsupported, name)
	}
	return send(ctx, e, &clusters.Identify, "TriggerEffect", map[string]interface{}{
		"effectid":      id,
		"effectvariant": 0,
	})
}
