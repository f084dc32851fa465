package converter

import (
	"encoding/hex"

	"zigbee-go-color/internal/color"
	"zigbee-go-color/internal/philips"
	"zigbee-go-color/internal/zcl/clusters"
)

var colorModeLookup = map[float64]string{
	0: color.ModeHS,
	1: color.ModeXY,
	2: color.ModeColorTemp,
}

// OnOffReport maps the OnOff attribute to state.
var OnOffReport = &FromZigbee{
	Cluster: clusters.OnOff.ID,
	Convert: func(attrs map[uint16]any, meta *Meta) map[string]any {
		v, ok := attrs[0x0000]
		if !ok {
			return nil
		}
		on, isBool := v.(bool)
		if !isBool {
			f, _ := toFloat(v)
			on = f != 0
		}
		if on {
			return map[string]any{"state": "ON"}
		}
		return map[string]any{"state": "OFF"}
	},
}

// LevelReport maps CurrentLevel to brightness.
var LevelReport = &FromZigbee{
	Cluster: clusters.LevelControl.ID,
	Convert: func(attrs map[uint16]any, meta *Meta) map[string]any {
		level, ok := toFloat(attrs[0x0000])
		if !ok {
			return nil
		}
		return map[string]any{"brightness": int(level)}
	},
}

// ColorReport maps Color Control attributes to color_mode, color and
// color_temp, then syncs them against the cached state.
var ColorReport = &FromZigbee{
	Cluster: clusters.ColorControl.ID,
	Convert: func(attrs map[uint16]any, meta *Meta) map[string]any {
		result := map[string]any{}
		if v, ok := toFloat(attrs[clusters.AttrColorTemperature]); ok {
			result["color_temp"] = v
		}
		if v, ok := toFloat(attrs[clusters.AttrColorMode]); ok {
			if mode, known := colorModeLookup[v]; known {
				result["color_mode"] = mode
			} else {
				result["color_mode"] = v
			}
		}

		c := map[string]any{}
		if v, ok := toFloat(attrs[clusters.AttrCurrentX]); ok {
			c["x"] = MapNumberRange(v, 0, 65535, 0, 1, 4)
		}
		if v, ok := toFloat(attrs[clusters.AttrCurrentY]); ok {
			c["y"] = MapNumberRange(v, 0, 65535, 0, 1, 4)
		}
		if v, ok := toFloat(attrs[clusters.AttrCurrentSaturation]); ok {
			c["saturation"] = MapNumberRange(v, 0, 254, 0, 100, 0)
		}
		if v, ok := toFloat(attrs[clusters.AttrCurrentHue]); ok {
			c["hue"] = MapNumberRange(v, 0, 254, 0, 360, 0)
		}
		if v, ok := toFloat(attrs[clusters.AttrEnhancedCurrentHue]); ok {
			c["hue"] = MapNumberRange(v, 0, 65535, 0, 360, 1)
		}
		if len(c) > 0 {
			result["color"] = c
		}
		if len(result) == 0 {
			return nil
		}

		synced := color.SyncColorState(colorState(result), colorState(meta.State), meta.ColorOptions())
		return applyColorState(result, synced)
	},
}

// PhilipsStateReport decodes the 0xFC03 state attribute of gradient lights.
var PhilipsStateReport = &FromZigbee{
	Cluster: clusters.Philips2.ID,
	Convert: func(attrs map[uint16]any, meta *Meta) map[string]any {
		var input string
		switch v := attrs[clusters.AttrPhilipsState].(type) {
		case []byte:
			input = hex.EncodeToString(v)
		case string:
			input = v
		default:
			return nil
		}
		st, err := philips.DecodeState(input, gradientOptions(meta))
		if err != nil || st.Mode != philips.ModeGradient {
			return nil
		}
		return map[string]any{"gradient": st.Colors}
	},
}
