//go:build !no_mqtt

package mqtt

import (
	"fmt"

	"zigbee-go-color/internal/devicedb"
	"zigbee-go-color/internal/philips"
	"zigbee-go-color/internal/store"
)

// discoveryMsg is a Home Assistant MQTT discovery payload.
type discoveryMsg struct {
	Topic   string // e.g. "homeassistant/light/zigbee_0017880109AC1A3B/light/config"
	Payload []byte // JSON, empty means delete
}

// haDevice is the "device" block in HA discovery.
type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name"`
}

// haLight is a JSON schema light.
type haLight struct {
	Name                string   `json:"name"`
	UniqueID            string   `json:"unique_id"`
	Schema              string   `json:"schema"`
	StateTopic          string   `json:"state_topic"`
	CommandTopic        string   `json:"command_topic"`
	AvailabilityTopic   string   `json:"availability_topic"`
	Brightness          bool     `json:"brightness"`
	BrightnessScale     int      `json:"brightness_scale,omitempty"`
	SupportedColorModes []string `json:"supported_color_modes"`
	MinMireds           int      `json:"min_mireds,omitempty"`
	MaxMireds           int      `json:"max_mireds,omitempty"`
	Effect              bool     `json:"effect,omitempty"`
	EffectList          []string `json:"effect_list,omitempty"`
	Device              haDevice `json:"device"`
}

// haSelect is a select entity; used for gradient scenes.
type haSelect struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	CommandTopic      string   `json:"command_topic"`
	CommandTemplate   string   `json:"command_template"`
	ValueTemplate     string   `json:"value_template"`
	AvailabilityTopic string   `json:"availability_topic"`
	Options           []string `json:"options"`
	Device            haDevice `json:"device"`
}

// deviceIdentifier returns the unique identifier for HA device registry.
func deviceIdentifier(ieee string) string {
	return "zigbee_" + ieee
}

// haColorModes maps definition color modes to HA color modes. HA does not
// allow brightness next to color modes, so it is only used alone.
func haColorModes(def *devicedb.Definition) []string {
	if def == nil {
		return []string{"brightness"}
	}
	var modes []string
	for _, m := range def.Light.ColorModes {
		switch m {
		case devicedb.ColorModeXY, devicedb.ColorModeHS, devicedb.ColorModeTemp:
			modes = append(modes, m)
		}
	}
	if len(modes) == 0 {
		modes = []string{"brightness"}
	}
	return modes
}

// buildDiscovery generates HA discovery messages for a light.
func buildDiscovery(dev *store.Device, def *devicedb.Definition, prefix, haPrefix string) []discoveryMsg {
	nodeID := deviceIdentifier(dev.IEEEAddress)
	name := dev.Name()
	stateTopic := prefix + "/" + name
	avail := prefix + "/bridge/state"

	haDev := haDevice{
		Identifiers:  []string{nodeID},
		Manufacturer: dev.Manufacturer,
		Model:        dev.Model,
		Name:         name,
	}

	light := haLight{
		Name:                name,
		UniqueID:            nodeID + "_light",
		Schema:              "json",
		StateTopic:          stateTopic,
		CommandTopic:        stateTopic + "/set",
		AvailabilityTopic:   avail,
		Brightness:          true,
		BrightnessScale:     254,
		SupportedColorModes: haColorModes(def),
		Device:              haDev,
	}
	if def != nil {
		if def.SupportsColorMode(devicedb.ColorModeTemp) {
			lo, hi := 154.0, 500.0
			if r := def.ColorOptions().ColorTempRange; r != nil {
				lo, hi = r[0], r[1]
			}
			light.MinMireds, light.MaxMireds = int(lo), int(hi)
		}
		light.EffectList = def.Effects()
		light.Effect = len(light.EffectList) > 0
	}

	msgs := []discoveryMsg{{
		Topic:   fmt.Sprintf("%s/light/%s/light/config", haPrefix, nodeID),
		Payload: mustJSON(light),
	}}

	if def != nil && def.Light.Gradient != nil {
		scene := haSelect{
			Name:              name + " Gradient Scene",
			UniqueID:          nodeID + "_gradient_scene",
			StateTopic:        stateTopic,
			CommandTopic:      stateTopic + "/set",
			CommandTemplate:   `{"gradient_scene": "{{ value }}"}`,
			ValueTemplate:     "{{ value_json.gradient_scene }}",
			AvailabilityTopic: avail,
			Options:           philips.SceneNames(),
			Device:            haDev,
		}
		msgs = append(msgs, discoveryMsg{
			Topic:   fmt.Sprintf("%s/select/%s/gradient_scene/config", haPrefix, nodeID),
			Payload: mustJSON(scene),
		})
	}
	return msgs
}

// buildRemoveDiscovery generates empty retained messages to remove a device from HA.
func buildRemoveDiscovery(ieee, haPrefix string) []discoveryMsg {
	nodeID := deviceIdentifier(ieee)
	components := []struct{ comp, obj string }{
		{"light", "light"},
		{"select", "gradient_scene"},
	}

	var msgs []discoveryMsg
	for _, c := range components {
		msgs = append(msgs, discoveryMsg{
			Topic:   fmt.Sprintf("%s/%s/%s/%s/config", haPrefix, c.comp, nodeID, c.obj),
			Payload: nil, // empty retained = delete
		})
	}
	return msgs
}
