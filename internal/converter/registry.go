package converter

import "zigbee-go-color/internal/devicedb"

// ToZigbeeFor returns the set/get converters for a light. A nil definition
// gets every converter except the gradient ones.
func ToZigbeeFor(def *devicedb.Definition) []*ToZigbee {
	convs := []*ToZigbee{OnOffBrightness}
	if def == nil || def.HasColor() {
		convs = append(convs, Color)
	}
	if def == nil || def.SupportsColorMode(devicedb.ColorModeTemp) {
		convs = append(convs, ColorTemp)
	}
	if def != nil && def.Light.Gradient != nil {
		convs = append(convs, Gradient, GradientScene)
	}
	if def != nil && def.Light.HuePowerOn {
		convs = append(convs, HuePowerOn)
	}
	return append(convs, Effect)
}

// FromZigbeeFor returns the report converters for a light.
func FromZigbeeFor(def *devicedb.Definition) []*FromZigbee {
	convs := []*FromZigbee{OnOffReport, LevelReport, ColorReport}
	if def != nil && def.Light.Gradient != nil {
		convs = append(convs, PhilipsStateReport)
	}
	return convs
}

// Find returns the converter handling key, or nil.
func Find(convs []*ToZigbee, key string) *ToZigbee {
	for _, c := range convs {
		if c.Handles(key) {
			return c
		}
	}
	return nil
}
