package converter

import (
	"context"
	"errors"
	"testing"

	"zigbee-go-color/internal/color"
	"zigbee-go-color/internal/devicedb"
	"zigbee-go-color/internal/zcl"
	"zigbee-go-color/internal/zcl/clusters"
)

type writtenAttr struct {
	cluster      uint16
	manufacturer uint16
	id           uint16
	value        float64
}

// flattenWrites lists every written record with the request it came in.
func flattenWrites(t *testing.T, writes []zcl.WriteRequest) []writtenAttr {
	t.Helper()
	var out []writtenAttr
	for _, w := range writes {
		for _, r := range w.Records {
			v, ok := toFloat(r.Value)
			if !ok {
				t.Fatalf("record 0x%04X value %v (%T) is not numeric", r.ID, r.Value, r.Value)
			}
			if _, err := zcl.EncodeValue(r.Type, r.Value); err != nil {
				t.Errorf("record 0x%04X does not encode: %v", r.ID, err)
			}
			out = append(out, writtenAttr{w.Cluster, w.Manufacturer, r.ID, v})
		}
	}
	return out
}

func TestHuePowerOn(t *testing.T) {
	const (
		onOff   = 0x0006
		level   = 0x0008
		cc      = 0x0300
		signify = clusters.PhilipsManufacturerCode
	)
	blue, err := color.RGBFromHex("#0000ff")
	if err != nil {
		t.Fatal(err)
	}
	blueXY := blue.ToXY()
	whiteLight := &devicedb.Definition{Light: devicedb.Light{ColorModes: []string{"color_temp"}, HuePowerOn: true}}
	dimLight := &devicedb.Definition{Light: devicedb.Light{HuePowerOn: true}}

	tests := []struct {
		name         string
		def          *devicedb.Definition
		msg          map[string]any
		wantBehavior string
		want         []writtenAttr
	}{
		{
			name:         "off",
			def:          gradientLight,
			msg:          map[string]any{"hue_power_on_behavior": "off"},
			wantBehavior: "off",
			want:         []writtenAttr{{onOff, 0, 0x4003, 0}},
		},
		{
			name:         "recover",
			def:          gradientLight,
			msg:          map[string]any{"hue_power_on_behavior": "recover"},
			wantBehavior: "recover",
			want: []writtenAttr{
				{onOff, 0, 0x4003, 0xff},
				{level, 0, 0x4000, 0xff},
				{cc, 0, 0x4010, 0xffff},
				{cc, signify, 0x0003, 0xffff},
				{cc, signify, 0x0004, 0xffff},
			},
		},
		{
			name:         "recover white light",
			def:          whiteLight,
			msg:          map[string]any{"hue_power_on_behavior": "recover"},
			wantBehavior: "recover",
			want: []writtenAttr{
				{onOff, 0, 0x4003, 0xff},
				{level, 0, 0x4000, 0xff},
				{cc, 0, 0x4010, 0xffff},
			},
		},
		{
			name:         "default is on with defaults",
			def:          gradientLight,
			msg:          map[string]any{"hue_power_on_behavior": "default"},
			wantBehavior: "on",
			want: []writtenAttr{
				{onOff, 0, 0x4003, 1},
				{level, 0, 0x4000, 254},
				{cc, 0, 0x4010, 366},
				{cc, signify, 0x0003, 0xffff},
				{cc, signify, 0x0004, 0xffff},
			},
		},
		{
			name: "on with color temperature",
			def:  gradientLight,
			msg: map[string]any{
				"hue_power_on_behavior":          "on",
				"hue_power_on_brightness":        255,
				"hue_power_on_color_temperature": 300,
			},
			wantBehavior: "on",
			want: []writtenAttr{
				{onOff, 0, 0x4003, 1},
				{level, 0, 0x4000, 254},
				{cc, 0, 0x4010, 300},
				{cc, signify, 0x0003, 0xffff},
				{cc, signify, 0x0004, 0xffff},
			},
		},
		{
			name: "on with color",
			def:  gradientLight,
			msg: map[string]any{
				"hue_power_on_behavior":   "ON",
				"hue_power_on_brightness": 100,
				"hue_power_on_color":      "#0000ff",
			},
			wantBehavior: "on",
			want: []writtenAttr{
				{onOff, 0, 0x4003, 1},
				{level, 0, 0x4000, 100},
				{cc, 0, 0x4010, 366},
				{cc, signify, 0x0003, MapNumberRange(blueXY.X, 0, 1, 0, 65535, 0)},
				{cc, signify, 0x0004, MapNumberRange(blueXY.Y, 0, 1, 0, 65535, 0)},
			},
		},
		{
			name:         "dimmable light skips color control",
			def:          dimLight,
			msg:          map[string]any{"hue_power_on_behavior": "on", "hue_power_on_brightness": 10},
			wantBehavior: "on",
			want: []writtenAttr{
				{onOff, 0, 0x4003, 1},
				{level, 0, 0x4000, 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &fakeEntity{}
			out, err := HuePowerOn.ConvertSet(context.Background(), e, "hue_power_on_behavior", tt.msg["hue_power_on_behavior"], newMeta(tt.def, tt.msg, nil))
			if err != nil {
				t.Fatal(err)
			}
			if out["hue_power_on_behavior"] != tt.wantBehavior {
				t.Errorf("delta = %v, want behavior %q", out, tt.wantBehavior)
			}
			got := flattenWrites(t, e.writes)
			if len(got) != len(tt.want) {
				t.Fatalf("writes = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				w := tt.want[i]
				if g := got[i]; g != w {
					t.Errorf("write %d = %+v, want %+v", i, g, w)
				}
			}
		})
	}
}

func TestHuePowerOnInvalid(t *testing.T) {
	tests := []struct {
		name string
		msg  map[string]any
	}{
		{"missing behavior", map[string]any{"hue_power_on_brightness": 100}},
		{"unknown behavior", map[string]any{"hue_power_on_behavior": "sometimes"}},
		{"not a string", map[string]any{"hue_power_on_behavior": 1}},
		{"temperature and color", map[string]any{
			"hue_power_on_behavior":          "on",
			"hue_power_on_color_temperature": 300,
			"hue_power_on_color":             "#ffffff",
		}},
		{"brightness out of range", map[string]any{"hue_power_on_behavior": "on", "hue_power_on_brightness": 0}},
		{"bad color", map[string]any{"hue_power_on_behavior": "on", "hue_power_on_color": "#zz0000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &fakeEntity{}
			_, err := HuePowerOn.ConvertSet(context.Background(), e, "hue_power_on_behavior", nil, newMeta(gradientLight, tt.msg, nil))
			if !errors.Is(err, ErrInvalidValue) {
				t.Errorf("err = %v, want ErrInvalidValue", err)
			}
			if len(e.writes) != 0 {
				t.Errorf("wrote %+v before validating", e.writes)
			}
		})
	}
}
