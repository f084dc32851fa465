package color

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestFromConverterArg(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Color
	}{
		{"bare hex", "#ff0000", RGB{Red: 1}},
		{"bare hex without hash", "00ff00", RGB{Green: 1}},
		{"xy", map[string]any{"x": 0.3, "y": 0.4}, XY{X: 0.3, Y: 0.4}},
		{"xy wins over rgb", map[string]any{"x": 0.3, "y": 0.4, "r": 1, "g": 2, "b": 3}, XY{X: 0.3, Y: 0.4}},
		{"rgb", map[string]any{"r": 255, "g": 0, "b": 0}, RGB{Red: 1}},
		{"rgb string", map[string]any{"rgb": "0,255.9,0"}, RGB{Green: 1}},
		{"hex key", map[string]any{"hex": "#0000ff"}, RGB{Blue: 1}},
		{"hsl", map[string]any{"h": 50, "s": 100, "l": 50}, NewHSV(50, 100, 100)},
		{"hsl string", map[string]any{"hsl": "50,100,50"}, NewHSV(50, 100, 100)},
		{"hsb", map[string]any{"h": 10, "s": 20, "b": 30}, NewHSV(10, 20, 30)},
		{"hsb string", map[string]any{"hsb": "10,20,30"}, NewHSV(10, 20, 30)},
		{"hsv", map[string]any{"h": 10, "s": 20, "v": 30}, NewHSV(10, 20, 30)},
		{"hsv string", map[string]any{"hsv": "10, 20, 30"}, NewHSV(10, 20, 30)},
		{"h and s", map[string]any{"h": 400, "s": 20}, PartialHSV(Float(40), Float(20), nil)},
		{"h only", map[string]any{"h": 15}, PartialHSV(Float(15), nil, nil)},
		{"s only", map[string]any{"s": 15}, PartialHSV(nil, Float(15), nil)},
		{"hue", map[string]any{"hue": 200.0}, PartialHSV(Float(200), nil, nil)},
		{"null hue is absent", map[string]any{"hue": nil, "saturation": 10}, PartialHSV(nil, Float(10), nil)},
		{"raw json", json.RawMessage(`{"x":0.5,"y":0.25}`), XY{X: 0.5, Y: 0.25}},
		{"json number", map[string]any{"x": json.Number("0.1"), "y": json.Number("0.2")}, XY{X: 0.1, Y: 0.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromConverterArg(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if !sameColor(got, tt.want) {
				t.Errorf("FromConverterArg() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFromConverterArgInvalid(t *testing.T) {
	for _, in := range []any{
		42,
		nil,
		map[string]any{},
		map[string]any{"foo": 1},
		map[string]any{"v": 100},
		map[string]any{"unknown_property": 42},
		map[string]any{"x": 0.3},
		map[string]any{"h": "abc"},
		map[string]any{"rgb": "1,2"},
		map[string]any{"hex": 12},
		"not a color",
	} {
		if _, err := FromConverterArg(in); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("FromConverterArg(%#v) err = %v, want ErrInvalidColor", in, err)
		}
	}
}

func sameColor(a, b Color) bool {
	switch av := a.(type) {
	case XY:
		bv, ok := b.(XY)
		return ok && av == bv
	case RGB:
		bv, ok := b.(RGB)
		return ok && av == bv
	case HSV:
		bv, ok := b.(HSV)
		return ok && eqPtr(av.Hue, bv.Hue) && eqPtr(av.Saturation, bv.Saturation) && eqPtr(av.Value, bv.Value)
	}
	return false
}

func eqPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func TestPrecisionRound(t *testing.T) {
	tests := []struct {
		v    float64
		p    int
		want float64
	}{
		{1.23456, 2, 1.23},
		{1.235, 0, 1},
		{0.41504, 4, 0.415},
		{-2.5, 0, -3},
	}
	for _, tt := range tests {
		if got := PrecisionRound(tt.v, tt.p); got != tt.want {
			t.Errorf("PrecisionRound(%v, %d) = %v, want %v", tt.v, tt.p, got, tt.want)
		}
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name    string
		in      Color
		wantXY  XY
		wantHex string
		wantHue float64
	}{
		{"red rgb", RGB255(255, 0, 0), XY{X: 0.7006, Y: 0.2993}, "#ff0000", 0},
		{"red hsv", NewHSV(0, 100, 100), XY{X: 0.7006, Y: 0.2993}, "#ff0000", 0},
		{"green hex", mustHex(t, "#00ff00"), XY{X: 0.1724, Y: 0.7468}, "#00ff00", 120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(tt.in)
			if got.XY != tt.wantXY {
				t.Errorf("xy = %+v, want %+v", got.XY, tt.wantXY)
			}
			if got.Hex != tt.wantHex {
				t.Errorf("hex = %q, want %q", got.Hex, tt.wantHex)
			}
			if got.HSV["hue"] != tt.wantHue || got.HSV["saturation"] != 100 || got.HSV["value"] != 100 {
				t.Errorf("hsv = %v", got.HSV)
			}
			if got.ColorTemp <= 0 {
				t.Errorf("color_temp = %v", got.ColorTemp)
			}
		})
	}
}

func TestConvertXYKeepsPoint(t *testing.T) {
	got := Convert(XY{X: 0.3127, Y: 0.329})
	if got.XY != (XY{X: 0.3127, Y: 0.329}) {
		t.Errorf("xy = %+v", got.XY)
	}
	if got.RGB["r"] < 200 || got.RGB["g"] < 200 || got.RGB["b"] < 200 {
		t.Errorf("white point rgb = %v", got.RGB)
	}
}

func mustHex(t *testing.T, s string) RGB {
	t.Helper()
	c, err := RGBFromHex(s)
	if err != nil {
		t.Fatal(err)
	}
	return c
}
