package philips

import (
	"errors"
	"reflect"
	"testing"
)

var (
	blues = []string{"#0c32ff", "#1137ff", "#2538ff", "#7951ff", "#ff77f8"}
	reds  = []string{"#ff0517", "#ffa52c", "#ff0517", "#ff0517", "#ffa52c"}
)

func TestEncodeGradient(t *testing.T) {
	tests := []struct {
		name   string
		colors []string
		opts   GradientOptions
		want   string
	}{
		{"reversed", blues, GradientOptions{Reverse: true}, "500104001350000000b2474df0353e29e42e98332c7043292800"},
		{"in order", blues, GradientOptions{}, "50010400135000000070432998332c29e42ef0353eb2474d2800"},
		{"repeating", reds, GradientOptions{Reverse: true}, "500104001350000000f3297fd56d55d56d55f3297fd56d552800"},
		{"offset", reds, GradientOptions{Reverse: true, Offset: 2}, "500104001350000000f3297fd56d55d56d55f3297fd56d552810"},
		{"single reversed", []string{"#ffffff"}, GradientOptions{Reverse: true}, "5001040007100000000727640800"},
		{"single", []string{"#ffffff"}, GradientOptions{}, "5001040007100000000727640800"},
		{"segments", []string{"#ffffff"}, GradientOptions{Segments: 31}, "500104000710000000072764f800"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeGradient(tt.colors, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("EncodeGradient() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEncodeGradientDoesNotMutateInput(t *testing.T) {
	in := append([]string(nil), blues...)
	if _, err := EncodeGradient(in, GradientOptions{Reverse: true}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, blues) {
		t.Errorf("input reordered: %v", in)
	}
}

func TestEncodeGradientInvalid(t *testing.T) {
	ten := make([]string, 10)
	for i := range ten {
		ten[i] = "#ffffff"
	}
	tests := []struct {
		name   string
		colors []string
		opts   GradientOptions
	}{
		{"no colors", nil, GradientOptions{}},
		{"too many colors", ten, GradientOptions{}},
		{"too many segments", blues, GradientOptions{Segments: 32}},
		{"negative segments", blues, GradientOptions{Segments: -1}},
		{"offset", blues, GradientOptions{Offset: 32}},
		{"bad color", []string{"#zzzzzz"}, GradientOptions{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeGradient(tt.colors, tt.opts); !errors.Is(err, ErrInvalidGradient) {
				t.Errorf("err = %v, want ErrInvalidGradient", err)
			}
		})
	}
}

func TestScaledPointRoundTrip(t *testing.T) {
	for _, hex := range []string{"#0000ff", "#ff0000", "#00ff00", "#ffffff", "#0c32ff", "#ff77f8"} {
		p, err := encodeScaledPoint(hex)
		if err != nil {
			t.Fatal(err)
		}
		if got := decodeScaledPoint(p[:]); got != hex {
			t.Errorf("round trip %s = %s", hex, got)
		}
	}
}

func TestScaledPointShortValues(t *testing.T) {
	// blue quantizes to y=0x0c2, which needs the leading zero nibble
	p, err := encodeScaledPoint("#0000ff")
	if err != nil {
		t.Fatal(err)
	}
	if p != [3]byte{0xf3, 0x22, 0x0c} {
		t.Errorf("encodeScaledPoint(blue) = % x", p)
	}
}

func TestGradientRoundTrip(t *testing.T) {
	for _, colors := range [][]string{blues, reds} {
		payload, err := EncodeGradient(colors, GradientOptions{Reverse: true})
		if err != nil {
			t.Fatal(err)
		}
		// a state report carries the command payload after an 8 byte header
		st, err := DecodeState("4b0101b2875a2541"+payload[8:], GradientOptions{Reverse: true})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(st.Colors, colors) {
			t.Errorf("decoded %v, want %v", st.Colors, colors)
		}
	}
}

func TestDecodeGradientPayload(t *testing.T) {
	b, err := GradientPayload(blues, GradientOptions{Reverse: true})
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeGradient(b, GradientOptions{Reverse: true})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, blues) {
		t.Errorf("colors = %v, want %v", got, blues)
	}

	scene, _ := ScenePayload("beginnings")
	got, err = DecodeGradient(scene, GradientOptions{Reverse: true})
	if err != nil || len(got) != 5 || got[0] != "#0c32ff" {
		t.Errorf("beginnings = %v, %v", got, err)
	}

	for _, bad := range [][]byte{nil, {0x4b, 0x01, 0x01, 0x10}, {0x50, 0x01, 0x04, 0x00, 0x13, 0x50}} {
		if _, err := DecodeGradient(bad, GradientOptions{}); !errors.Is(err, ErrMalformedState) {
			t.Errorf("DecodeGradient(% x) err = %v", bad, err)
		}
	}
}
