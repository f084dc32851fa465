package converter

import (
	"reflect"
	"testing"

	"zigbee-go-color/internal/philips"
	"zigbee-go-color/internal/zcl/clusters"
)

func TestOnOffAndLevelReports(t *testing.T) {
	meta := newMeta(nil, nil, nil)
	if got := OnOffReport.Convert(map[uint16]any{0: true}, meta); got["state"] != "ON" {
		t.Errorf("on = %v", got)
	}
	if got := OnOffReport.Convert(map[uint16]any{0: 0.0}, meta); got["state"] != "OFF" {
		t.Errorf("off from number = %v", got)
	}
	if got := OnOffReport.Convert(map[uint16]any{0x4003: uint8(1)}, meta); got != nil {
		t.Errorf("unrelated attribute = %v", got)
	}
	if got := LevelReport.Convert(map[uint16]any{0: uint8(200)}, meta); got["brightness"] != 200 {
		t.Errorf("brightness = %v", got)
	}
}

func TestColorReportSyncs(t *testing.T) {
	cached := map[string]any{
		"color_temp": 300.0,
		"color":      map[string]any{"hue": 10.0, "saturation": 10.0},
	}
	attrs := map[uint16]any{
		clusters.AttrCurrentX:  uint16(26214),
		clusters.AttrCurrentY:  uint16(26214),
		clusters.AttrColorMode: uint8(1),
	}
	got := ColorReport.Convert(attrs, newMeta(gradientLight, nil, cached))

	if got["color_mode"] != "xy" {
		t.Errorf("color_mode = %v", got["color_mode"])
	}
	if got["color_temp"] != 271.0 {
		t.Errorf("color_temp = %v, want 271", got["color_temp"])
	}
	want := map[string]any{"x": 0.4, "y": 0.4, "hue": 43.0, "saturation": 63.0}
	if !reflect.DeepEqual(got["color"], want) {
		t.Errorf("color = %v, want %v", got["color"], want)
	}
}

func TestColorReportWithoutMode(t *testing.T) {
	attrs := map[uint16]any{
		clusters.AttrColorTemperature: uint16(300),
		clusters.AttrCurrentX:         uint16(19661),
		clusters.AttrCurrentY:         uint16(19661),
	}
	got := ColorReport.Convert(attrs, newMeta(gradientLight, nil, nil))
	if got["color_mode"] != "color_temp" || got["color_temp"] != 300.0 {
		t.Fatalf("got %v, want color_temp mode at 300", got)
	}
	want := map[string]any{"x": 0.415, "y": 0.3955}
	if !reflect.DeepEqual(got["color"], want) {
		t.Errorf("color = %v, want %v", got["color"], want)
	}
}

func TestColorReportHue(t *testing.T) {
	attrs := map[uint16]any{
		clusters.AttrCurrentHue:        uint8(127),
		clusters.AttrCurrentSaturation: uint8(254),
		clusters.AttrColorMode:         uint8(0),
	}
	got := ColorReport.Convert(attrs, newMeta(nil, nil, nil))
	c := got["color"].(map[string]any)
	if c["hue"] != 180.0 || c["saturation"] != 100.0 {
		t.Errorf("color = %v", c)
	}

	got = ColorReport.Convert(map[uint16]any{clusters.AttrEnhancedCurrentHue: uint16(32768)}, newMeta(nil, nil, nil))
	if c := got["color"].(map[string]any); c["hue"] != 180.0 {
		t.Errorf("enhanced hue = %v", c["hue"])
	}

	got = ColorReport.Convert(map[uint16]any{clusters.AttrColorMode: uint8(7)}, newMeta(nil, nil, nil))
	if got["color_mode"] != 7.0 {
		t.Errorf("unknown color mode = %v", got["color_mode"])
	}

	if got := ColorReport.Convert(map[uint16]any{clusters.AttrColorCapabilities: uint16(0x1f)}, newMeta(nil, nil, nil)); got != nil {
		t.Errorf("capabilities only = %v", got)
	}
}

func TestPhilipsStateReport(t *testing.T) {
	signe := *gradientLight
	signe.Light.Gradient = &philips.GradientOptions{Reverse: true}

	in := "4b0101b2875a25411350000000b3474def153e2ad42e98232c7483292800"
	got := PhilipsStateReport.Convert(map[uint16]any{clusters.AttrPhilipsState: in}, newMeta(&signe, nil, nil))
	want := []string{"#0c32ff", "#1137ff", "#2538ff", "#7951ff", "#ff77f8"}
	if !reflect.DeepEqual(got["gradient"], want) {
		t.Errorf("gradient = %v, want %v", got["gradient"], want)
	}

	// xy mode is not a gradient
	if got := PhilipsStateReport.Convert(map[uint16]any{clusters.AttrPhilipsState: []byte{0x0b, 0x00, 0x01, 0x04, 0x60, 0xb0, 0x9c, 0x4e}}, newMeta(&signe, nil, nil)); got != nil {
		t.Errorf("xy state = %v", got)
	}
}
