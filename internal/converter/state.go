package converter

import "zigbee-go-color/internal/color"

// colorState extracts the color fields of a state map.
func colorState(m map[string]any) color.State {
	var s color.State
	if mode, ok := m["color_mode"].(string); ok {
		s.ColorMode = mode
	}
	if ct, ok := toFloat(m["color_temp"]); ok {
		s.ColorTemp = color.Float(ct)
	}
	c, ok := m["color"].(map[string]any)
	if !ok {
		return s
	}
	field := func(key string) *float64 {
		if f, ok := toFloat(c[key]); ok {
			return color.Float(f)
		}
		return nil
	}
	sc := &color.StateColor{Hue: field("hue"), Saturation: field("saturation"), X: field("x"), Y: field("y")}
	if sc.Hue != nil || sc.Saturation != nil || sc.X != nil || sc.Y != nil {
		s.Color = sc
	}
	return s
}

// applyColorState writes the set fields of s into dst.
func applyColorState(dst map[string]any, s color.State) map[string]any {
	if dst == nil {
		dst = make(map[string]any, 3)
	}
	if s.ColorMode != "" {
		dst["color_mode"] = s.ColorMode
	}
	if s.ColorTemp != nil {
		dst["color_temp"] = *s.ColorTemp
	}
	if s.Color != nil {
		c := make(map[string]any, 4)
		if s.Color.Hue != nil {
			c["hue"] = *s.Color.Hue
		}
		if s.Color.Saturation != nil {
			c["saturation"] = *s.Color.Saturation
		}
		if s.Color.X != nil {
			c["x"] = *s.Color.X
		}
		if s.Color.Y != nil {
			c["y"] = *s.Color.Y
		}
		dst["color"] = c
	}
	return dst
}

// syncColor runs color state sync of delta against the cached state and
// returns the synced color fields.
func syncColor(delta color.State, meta *Meta) map[string]any {
	synced := color.SyncColorState(delta, colorState(meta.State), meta.ColorOptions())
	return applyColorState(nil, synced)
}
