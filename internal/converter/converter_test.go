package converter

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"zigbee-go-color/internal/devicedb"
	"zigbee-go-color/internal/philips"
	"zigbee-go-color/internal/zcl"
	"zigbee-go-color/internal/zcl/clusters"
)

type readReq struct {
	cluster uint16
	attrs   []uint16
}

type fakeEntity struct {
	cmds   []zcl.Command
	reads  []readReq
	writes []zcl.WriteRequest
	err    error
}

func (f *fakeEntity) Command(ctx context.Context, cmd zcl.Command) error {
	if f.err != nil {
		return f.err
	}
	f.cmds = append(f.cmds, cmd)
	return nil
}

func (f *fakeEntity) Read(ctx context.Context, cluster uint16, attrs []uint16) error {
	f.reads = append(f.reads, readReq{cluster, attrs})
	return f.err
}

func (f *fakeEntity) Write(ctx context.Context, req zcl.WriteRequest) error {
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, req)
	return nil
}

// only returns the single command sent and its decoded fields.
func (f *fakeEntity) only(t *testing.T) (string, map[string]float64) {
	t.Helper()
	if len(f.cmds) != 1 {
		t.Fatalf("sent %d commands, want 1: %+v", len(f.cmds), f.cmds)
	}
	return f.cmds[0].Name, decodeFields(t, f.cmds[0])
}

func decodeFields(t *testing.T, cmd zcl.Command) map[string]float64 {
	t.Helper()
	for i := range clusters.All {
		c := &clusters.All[i]
		if c.ID != cmd.Cluster {
			continue
		}
		raw, err := zcl.ParseCommand(c, cmd)
		if err != nil {
			t.Fatalf("parse %s: %v", cmd.Name, err)
		}
		out := make(map[string]float64, len(raw))
		for k, v := range raw {
			if f, ok := toFloat(v); ok {
				out[k] = f
			}
		}
		return out
	}
	t.Fatalf("cluster 0x%04X not found", cmd.Cluster)
	return nil
}

var (
	gradientLight = &devicedb.Definition{
		Manufacturer: "Signify Netherlands B.V.",
		Model:        "LCX004",
		Light: devicedb.Light{
			ColorModes:     []string{"xy", "hs", "color_temp"},
			EnhancedHue:    true,
			ColorTempRange: &[2]float64{153, 500},
			HueEffects:     true,
			HuePowerOn:     true,
			Gradient:       &philips.GradientOptions{},
		},
	}
	xyLight = &devicedb.Definition{
		Manufacturer: "IKEA of Sweden",
		Model:        "TRADFRI bulb E27 CWS opal 600lm",
		Light:        devicedb.Light{ColorModes: []string{"xy"}, ApplyRedFix: true},
	}
	hsLight = &devicedb.Definition{
		Light: devicedb.Light{ColorModes: []string{"xy", "hs"}},
	}
)

func newMeta(def *devicedb.Definition, msg, state map[string]any) *Meta {
	m := &Meta{Message: msg, State: state, Device: def}
	if def != nil {
		m.Options = def.ColorOptions()
	}
	if m.State == nil {
		m.State = map[string]any{}
	}
	return m
}

func set(t *testing.T, c *ToZigbee, e Entity, key string, value any, meta *Meta) map[string]any {
	t.Helper()
	if meta.Message == nil {
		meta.Message = map[string]any{key: value}
	}
	out, err := c.ConvertSet(context.Background(), e, key, value, meta)
	if err != nil {
		t.Fatalf("set %s=%v: %v", key, value, err)
	}
	return out
}

func TestMapNumberRange(t *testing.T) {
	tests := []struct {
		in, fromLo, fromHi, toLo, toHi float64
		precision                      int
		want                           float64
	}{
		{0.5, 0, 1, 0, 65535, 0, 32768},
		{50, 0, 100, 0, 254, 0, 127},
		{120, 0, 360, 0, 254, 0, 85},
		{32768, 0, 65535, 0, 1, 4, 0.5},
		{50, 0, 100, 153, 500, 0, 327},
	}
	for _, tt := range tests {
		got := MapNumberRange(tt.in, tt.fromLo, tt.fromHi, tt.toLo, tt.toHi, tt.precision)
		if got != tt.want {
			t.Errorf("MapNumberRange(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClampColorTemp(t *testing.T) {
	if got := ClampColorTemp(100, 153, 500); got != 153 {
		t.Errorf("low clamp = %v", got)
	}
	if got := ClampColorTemp(600, 153, 500); got != 500 {
		t.Errorf("high clamp = %v", got)
	}
	if got := ClampColorTemp(600, 0, 0); got != 600 {
		t.Errorf("unbounded = %v", got)
	}
}

func TestColorXY(t *testing.T) {
	e := &fakeEntity{}
	out := set(t, Color, e, "color", map[string]any{"x": 0.5, "y": 0.4}, newMeta(gradientLight, nil, nil))

	name, f := e.only(t)
	if name != "MoveToColor" || f["colorx"] != 32768 || f["colory"] != 26214 || f["transtime"] != 0 {
		t.Errorf("command = %s %v", name, f)
	}
	if out["color_mode"] != "xy" {
		t.Errorf("color_mode = %v", out["color_mode"])
	}
	c := out["color"].(map[string]any)
	if c["x"] != 0.5 || c["y"] != 0.4 {
		t.Errorf("color = %v", c)
	}
	if _, ok := c["hue"]; ok {
		t.Errorf("hue synced without cached hs state: %v", c)
	}
}

func TestColorRGBIsGammaCorrected(t *testing.T) {
	e := &fakeEntity{}
	out := set(t, Color, e, "color", map[string]any{"r": 255, "g": 0, "b": 0}, newMeta(hsLight, nil, nil))

	_, f := e.only(t)
	// pure red lands on 0.7006, 0.2993
	if f["colorx"] != 45914 || f["colory"] != 19615 {
		t.Errorf("colorx/y = %v/%v", f["colorx"], f["colory"])
	}
	c := out["color"].(map[string]any)
	if c["x"] != 0.7006 || c["y"] != 0.2993 {
		t.Errorf("color = %v", c)
	}
}

func TestColorRedFix(t *testing.T) {
	e := &fakeEntity{}
	set(t, Color, e, "color", map[string]any{"x": 0.701, "y": 0.299}, newMeta(xyLight, nil, nil))
	_, f := e.only(t)
	if f["colorx"] != 45914 || f["colory"] != 19615 {
		t.Errorf("red fix not applied: %v", f)
	}

	e = &fakeEntity{}
	set(t, Color, e, "color", map[string]any{"x": 0.701, "y": 0.299}, newMeta(hsLight, nil, nil))
	_, f = e.only(t)
	if f["colorx"] != 45940 {
		t.Errorf("red fix applied without apply_red_fix: %v", f)
	}
}

func TestColorHueSaturation(t *testing.T) {
	tests := []struct {
		name    string
		def     *devicedb.Definition
		value   map[string]any
		command string
		fields  map[string]float64
	}{
		{"enhanced", gradientLight, map[string]any{"hue": 120, "saturation": 100},
			"EnhancedMoveToHueAndSaturation", map[string]float64{"enhancehue": 21845, "saturation": 254}},
		{"standard", hsLight, map[string]any{"hue": 120, "saturation": 100},
			"MoveToHueAndSaturation", map[string]float64{"hue": 85, "saturation": 254}},
		{"hue only", hsLight, map[string]any{"hue": 120, "direction": 2},
			"MoveToHue", map[string]float64{"hue": 85, "direction": 2}},
		{"enhanced hue only", gradientLight, map[string]any{"h": 120},
			"EnhancedMoveToHue", map[string]float64{"enhancehue": 21845, "direction": 0}},
		{"saturation only", hsLight, map[string]any{"saturation": 100},
			"MoveToSaturation", map[string]float64{"saturation": 254}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &fakeEntity{}
			out := set(t, Color, e, "color", tt.value, newMeta(tt.def, nil, nil))
			name, f := e.only(t)
			if name != tt.command {
				t.Fatalf("command = %s, want %s", name, tt.command)
			}
			for k, want := range tt.fields {
				if f[k] != want {
					t.Errorf("%s = %v, want %v", k, f[k], want)
				}
			}
			if out["color_mode"] != "hs" {
				t.Errorf("color_mode = %v", out["color_mode"])
			}
		})
	}
}

func TestColorHSVWithValueSetsLevel(t *testing.T) {
	e := &fakeEntity{}
	set(t, Color, e, "color", map[string]any{"h": 0, "s": 100, "v": 50}, newMeta(hsLight, nil, nil))
	if len(e.cmds) != 2 {
		t.Fatalf("sent %d commands, want 2", len(e.cmds))
	}
	if e.cmds[0].Name != "MoveToLevelWithOnOff" || e.cmds[1].Name != "MoveToHueAndSaturation" {
		t.Errorf("commands = %s, %s", e.cmds[0].Name, e.cmds[1].Name)
	}
}

func TestColorRejectsHSVOnXYLight(t *testing.T) {
	e := &fakeEntity{}
	_, err := Color.ConvertSet(context.Background(), e, "color", map[string]any{"hue": 10, "saturation": 50}, newMeta(xyLight, map[string]any{}, nil))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	if len(e.cmds) != 0 {
		t.Errorf("commands sent: %v", e.cmds)
	}
}

func TestColorInvalid(t *testing.T) {
	_, err := Color.ConvertSet(context.Background(), &fakeEntity{}, "color", map[string]any{"foo": 1}, newMeta(nil, map[string]any{}, nil))
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("err = %v, want ErrInvalidValue", err)
	}
}

func TestColorTransitionFromOptions(t *testing.T) {
	def := *xyLight
	half := 0.5
	def.Options.Transition = &half

	e := &fakeEntity{}
	set(t, Color, e, "color", "#00ff00", newMeta(&def, nil, nil))
	_, f := e.only(t)
	if f["transtime"] != 5 {
		t.Errorf("transtime = %v, want 5", f["transtime"])
	}

	e = &fakeEntity{}
	meta := newMeta(&def, map[string]any{"color": "#00ff00", "transition": 2}, nil)
	set(t, Color, e, "color", "#00ff00", meta)
	_, f = e.only(t)
	if f["transtime"] != 20 {
		t.Errorf("transtime = %v, want 20", f["transtime"])
	}
}

func TestColorTempSyncsCachedXY(t *testing.T) {
	e := &fakeEntity{}
	cached := map[string]any{"color_mode": "xy", "color": map[string]any{"x": 0.3, "y": 0.3}}
	out := set(t, ColorTemp, e, "color_temp", 300, newMeta(gradientLight, nil, cached))

	name, f := e.only(t)
	if name != "MoveToColorTemperature" || f["colortemp"] != 300 {
		t.Errorf("command = %s %v", name, f)
	}
	if out["color_mode"] != "color_temp" || out["color_temp"] != 300.0 {
		t.Errorf("state = %v", out)
	}
	c := out["color"].(map[string]any)
	if c["x"] != 0.415 || c["y"] != 0.3955 {
		t.Errorf("synced color = %v", c)
	}
	if cached["color_mode"] != "xy" {
		t.Error("cached state modified")
	}
}

func TestColorTempValues(t *testing.T) {
	ww := &devicedb.Definition{Light: devicedb.Light{ColorModes: []string{"color_temp"}, ColorTempRange: &[2]float64{153, 454}}}
	tests := []struct {
		key   string
		value any
		def   *devicedb.Definition
		want  float64
	}{
		{"color_temp", "warmest", ww, 454},
		{"color_temp", "coolest", ww, 153},
		{"color_temp", "neutral", ww, 370},
		{"color_temp", "warm", nil, 454},
		{"color_temp", "250", nil, 250},
		{"color_temp", 600, nil, 500},
		{"color_temp", 100, ww, 153},
		{"color_temp_percent", 50, gradientLight, 327},
		{"color_temp_percent", 100, ww, 454},
	}
	for _, tt := range tests {
		e := &fakeEntity{}
		set(t, ColorTemp, e, tt.key, tt.value, newMeta(tt.def, nil, nil))
		_, f := e.only(t)
		if f["colortemp"] != tt.want {
			t.Errorf("%s=%v: colortemp = %v, want %v", tt.key, tt.value, f["colortemp"], tt.want)
		}
	}

	_, err := ColorTemp.ConvertSet(context.Background(), &fakeEntity{}, "color_temp", "hot", newMeta(nil, map[string]any{}, nil))
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("err = %v, want ErrInvalidValue", err)
	}
}

func TestOnOffBrightness(t *testing.T) {
	tests := []struct {
		name    string
		msg     map[string]any
		cached  map[string]any
		command string
		fields  map[string]float64
		want    map[string]any
	}{
		{"on", map[string]any{"state": "ON"}, nil, "On", nil, map[string]any{"state": "ON"}},
		{"off", map[string]any{"state": "off"}, nil, "Off", nil, map[string]any{"state": "OFF"}},
		{"toggle", map[string]any{"state": "TOGGLE"}, map[string]any{"state": "ON"}, "Toggle", nil, map[string]any{"state": "OFF"}},
		{"toggle unknown", map[string]any{"state": "toggle"}, nil, "Toggle", nil, map[string]any{}},
		{"brightness", map[string]any{"brightness": 128}, nil, "MoveToLevelWithOnOff",
			map[string]float64{"level": 128, "transtime": 0}, map[string]any{"state": "ON", "brightness": 128}},
		{"brightness 255", map[string]any{"brightness": 255}, nil, "MoveToLevelWithOnOff",
			map[string]float64{"level": 254}, map[string]any{"state": "ON", "brightness": 254}},
		{"percent", map[string]any{"brightness_percent": 50}, nil, "MoveToLevelWithOnOff",
			map[string]float64{"level": 128}, map[string]any{"state": "ON", "brightness": 128}},
		{"off with transition", map[string]any{"state": "OFF", "transition": 2}, nil, "MoveToLevelWithOnOff",
			map[string]float64{"level": 0, "transtime": 20}, map[string]any{"state": "OFF"}},
		{"on with transition", map[string]any{"state": "ON", "transition": 1}, map[string]any{"brightness": 90.0}, "MoveToLevelWithOnOff",
			map[string]float64{"level": 90, "transtime": 10}, map[string]any{"state": "ON", "brightness": 90}},
		{"brightness zero", map[string]any{"brightness": 0}, nil, "MoveToLevelWithOnOff",
			map[string]float64{"level": 0}, map[string]any{"state": "OFF", "brightness": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &fakeEntity{}
			out := set(t, OnOffBrightness, e, "state", tt.msg["state"], newMeta(nil, tt.msg, tt.cached))
			name, f := e.only(t)
			if name != tt.command {
				t.Fatalf("command = %s, want %s", name, tt.command)
			}
			for k, want := range tt.fields {
				if f[k] != want {
					t.Errorf("%s = %v, want %v", k, f[k], want)
				}
			}
			if len(out) != len(tt.want) {
				t.Errorf("state = %v, want %v", out, tt.want)
			}
			for k, want := range tt.want {
				if out[k] != want {
					t.Errorf("state[%s] = %v (%T), want %v", k, out[k], out[k], want)
				}
			}
		})
	}
}

func TestOnOffBrightnessInvalid(t *testing.T) {
	for _, msg := range []map[string]any{
		{"brightness": 300},
		{"state": "blink"},
		{"state": 1},
		{"transition": 1},
		{"state": "ON", "transition": "slow"},
	} {
		_, err := OnOffBrightness.ConvertSet(context.Background(), &fakeEntity{}, "state", msg["state"], newMeta(nil, msg, nil))
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("%v: err = %v, want ErrInvalidValue", msg, err)
		}
	}
}

func TestGradient(t *testing.T) {
	colors := []any{"#0c32ff", "#1137ff", "#2538ff", "#7951ff", "#ff77f8"}
	e := &fakeEntity{}
	out := set(t, Gradient, e, "gradient", colors, newMeta(gradientLight, nil, nil))

	if len(e.cmds) != 1 || e.cmds[0].Name != "MultiColor" {
		t.Fatalf("commands = %+v", e.cmds)
	}
	want, _ := philips.GradientPayload([]string{"#0c32ff", "#1137ff", "#2538ff", "#7951ff", "#ff77f8"}, philips.GradientOptions{})
	if !bytes.Equal(e.cmds[0].Payload, want) {
		t.Errorf("payload = %x, want %x", e.cmds[0].Payload, want)
	}
	if e.cmds[0].ManufacturerCode != clusters.PhilipsManufacturerCode {
		t.Errorf("manufacturer code = 0x%04X", e.cmds[0].ManufacturerCode)
	}
	if got := out["gradient"].([]string); len(got) != 5 {
		t.Errorf("gradient = %v", got)
	}

	_, err := Gradient.ConvertSet(context.Background(), e, "gradient", []any{"#ff0000", 3}, newMeta(gradientLight, map[string]any{}, nil))
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("err = %v, want ErrInvalidValue", err)
	}
	_, err = Gradient.ConvertSet(context.Background(), e, "gradient", make([]any, 10), newMeta(gradientLight, map[string]any{}, nil))
	if err == nil {
		t.Error("expected error for 10 colors")
	}
}

func TestGradientScene(t *testing.T) {
	e := &fakeEntity{}
	out := set(t, GradientScene, e, "gradient_scene", "beginnings", newMeta(gradientLight, nil, nil))
	want, _ := philips.ScenePayload("beginnings")
	if len(e.cmds) != 1 || !bytes.Equal(e.cmds[0].Payload, want) {
		t.Fatalf("commands = %+v", e.cmds)
	}
	if _, ok := out["gradient"]; !ok {
		t.Errorf("state = %v, want gradient colors", out)
	}

	_, err := GradientScene.ConvertSet(context.Background(), e, "gradient_scene", "nope", newMeta(gradientLight, map[string]any{}, nil))
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("err = %v, want ErrInvalidValue", err)
	}
}

func TestEffect(t *testing.T) {
	e := &fakeEntity{}
	set(t, Effect, e, "effect", "candle", newMeta(gradientLight, nil, nil))
	want, _ := philips.EffectPayload("candle")
	if len(e.cmds) != 1 || e.cmds[0].Name != "MultiColor" || !bytes.Equal(e.cmds[0].Payload, want) {
		t.Fatalf("candle commands = %+v", e.cmds)
	}

	e = &fakeEntity{}
	set(t, Effect, e, "effect", "Blink", newMeta(gradientLight, nil, nil))
	name, f := e.only(t)
	if name != "TriggerEffect" || f["effectid"] != 0 {
		t.Errorf("blink = %s %v", name, f)
	}

	e = &fakeEntity{}
	set(t, Effect, e, "effect", "stop_effect", newMeta(xyLight, nil, nil))
	if _, f := e.only(t); f["effectid"] != 255 {
		t.Errorf("stop_effect id = %v", f["effectid"])
	}

	_, err := Effect.ConvertSet(context.Background(), &fakeEntity{}, "effect", "colorloop", newMeta(xyLight, map[string]any{}, nil))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestEntityErrorPropagates(t *testing.T) {
	boom := errors.New("radio down")
	_, err := Color.ConvertSet(context.Background(), &fakeEntity{err: boom}, "color", "#ff0000", newMeta(nil, map[string]any{}, nil))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped radio error", err)
	}
}

func TestConvertGet(t *testing.T) {
	e := &fakeEntity{}
	meta := newMeta(gradientLight, map[string]any{}, nil)
	for _, key := range []string{"state", "color", "color_temp", "gradient"} {
		c := Find(ToZigbeeFor(gradientLight), key)
		if c == nil || c.ConvertGet == nil {
			t.Fatalf("no getter for %s", key)
		}
		if err := c.ConvertGet(context.Background(), e, key, meta); err != nil {
			t.Fatal(err)
		}
	}
	wantClusters := []uint16{0x0006, 0x0300, 0x0300, 0xFC03}
	for i, r := range e.reads {
		if r.cluster != wantClusters[i] {
			t.Errorf("read %d cluster = 0x%04X, want 0x%04X", i, r.cluster, wantClusters[i])
		}
	}
	// enhanced hue lights read the 16-bit hue
	found := false
	for _, a := range e.reads[1].attrs {
		if a == clusters.AttrEnhancedCurrentHue {
			found = true
		}
	}
	if !found {
		t.Errorf("color read attrs = %v", e.reads[1].attrs)
	}
}

func TestToZigbeeFor(t *testing.T) {
	ww := &devicedb.Definition{Light: devicedb.Light{ColorModes: []string{"color_temp"}}}
	if Find(ToZigbeeFor(ww), "color") != nil {
		t.Error("white light got color converter")
	}
	if Find(ToZigbeeFor(ww), "color_temp_percent") == nil {
		t.Error("white light missing color_temp converter")
	}
	if Find(ToZigbeeFor(xyLight), "gradient") != nil {
		t.Error("bulb got gradient converter")
	}
	if Find(ToZigbeeFor(gradientLight), "gradient_scene") == nil {
		t.Error("gradient light missing gradient_scene")
	}
	if Find(ToZigbeeFor(gradientLight), "hue_power_on_color") != HuePowerOn {
		t.Error("hue light missing power-on converter")
	}
	if Find(ToZigbeeFor(xyLight), "hue_power_on_behavior") != nil {
		t.Error("bulb got hue power-on converter")
	}
	if Find(ToZigbeeFor(nil), "brightness") != OnOffBrightness {
		t.Error("brightness not handled by OnOffBrightness")
	}
}
