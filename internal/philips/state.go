package philips

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"zigbee-go-color/internal/color"
)

// Mode tags of the 0xFC03 state attribute.
const (
	tagGradient   = "4b01"
	tagColorXY    = "0b00"
	tagColorTemp  = "0f00"
	tagEffect     = "ab00"
	tagBrightness = "0300"
)

// Decoded state modes.
const (
	ModeGradient   = "gradient"
	ModeXY         = "xy"
	ModeColorTemp  = "color_temp"
	ModeEffect     = "effect"
	ModeBrightness = "brightness"
)

var ErrMalformedState = errors.New("malformed state payload")

// State is a decoded 0xFC03 state attribute. Mode is empty for tags this
// package does not know; such states carry no other fields.
type State struct {
	Mode string `json:"mode,omitempty"`
	// ColorMode is the light color mode the state implies: "gradient",
	// "xy" (also for effects) or "color_temp". Empty for brightness only.
	ColorMode  string   `json:"color_mode,omitempty"`
	On         bool     `json:"on"`
	Brightness int      `json:"brightness"`
	Colors     []string `json:"colors,omitempty"`
	Segments   int      `json:"segments,omitempty"`
	Offset     int      `json:"offset,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	ColorTemp  *int     `json:"color_temp,omitempty"`
	Effect     string   `json:"effect,omitempty"`
}

// Known reports whether the payload had a recognized mode tag.
func (s State) Known() bool { return s.Mode != "" }

// DecodeState parses the hex encoded state attribute. Layouts after the
// mode tag, on/off byte and brightness byte:
//
//	gradient    4 unknown, length, n<<4, 3 unknown, 3*n points, segments<<3, offset<<3
//	xy          x (uint16le), y (uint16le)
//	effect      x (uint16le), y (uint16le), effect code (2)
//	color_temp  mireds (uint16le), 4 unknown
//	brightness  nothing
//
// Unknown tags yield an empty State and no error.
func DecodeState(input string, opts GradientOptions) (State, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if len(input) < 4 {
		return State{}, nil
	}
	tag := input[:4]
	switch tag {
	case tagGradient, tagColorXY, tagColorTemp, tagEffect, tagBrightness:
	default:
		return State{}, nil
	}

	data, err := hex.DecodeString(input)
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	r := &stateReader{buf: data[2:]}
	var st State
	st.On = r.u8() == 1
	st.Brightness = int(r.u8())

	switch tag {
	case tagGradient:
		st.Mode, st.ColorMode = ModeGradient, ModeGradient
		r.skip(4) // unknown
		st.Colors, st.Segments, st.Offset = readGradient(r, opts)
	case tagColorXY, tagEffect:
		st.Mode, st.ColorMode = ModeXY, color.ModeXY
		x := float64(r.u16()) / 65535
		y := float64(r.u16()) / 65535
		st.X = color.Float(color.PrecisionRound(x, 4))
		st.Y = color.Float(color.PrecisionRound(y, 4))
		if tag == tagEffect {
			st.Mode = ModeEffect
			code := hex.EncodeToString(r.take(2))
			st.Effect = effectName(code)
		}
	case tagColorTemp:
		st.Mode, st.ColorMode = ModeColorTemp, color.ModeColorTemp
		t := int(r.u16())
		st.ColorTemp = &t
	case tagBrightness:
		st.Mode = ModeBrightness
	}

	if r.err != nil {
		return State{}, fmt.Errorf("%w: %s mode: %v", ErrMalformedState, st.Mode, r.err)
	}
	return st, nil
}

// DecodeGradient returns the colors of a multiColor gradient payload as
// built by GradientPayload or stored in GradientScenes.
func DecodeGradient(payload []byte, opts GradientOptions) ([]string, error) {
	if len(payload) < 4 || payload[0] != 0x50 || payload[1] != 0x01 {
		return nil, fmt.Errorf("%w: not a gradient payload", ErrMalformedState)
	}
	r := &stateReader{buf: payload[4:]}
	colors, _, _ := readGradient(r, opts)
	if r.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, r.err)
	}
	return colors, nil
}

// readGradient reads the gradient block that follows the mode header:
// length, n<<4, 3 unknown, 3*n points, segments<<3, offset<<3.
func readGradient(r *stateReader, opts GradientOptions) (colors []string, segments, offset int) {
	r.skip(1) // length
	n := int(r.u8() >> 4)
	r.skip(3)
	points := r.take(3 * n)
	segments = int(r.u8() >> 3)
	offset = int(r.u8() >> 3)
	if r.err != nil {
		return nil, 0, 0
	}
	colors = make([]string, n)
	for i := 0; i < n; i++ {
		colors[i] = decodeScaledPoint(points[3*i : 3*i+3])
	}
	if opts.Reverse {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			colors[i], colors[j] = colors[j], colors[i]
		}
	}
	return colors, segments, offset
}

// stateReader reads fixed width fields, remembering the first short read.
type stateReader struct {
	buf []byte
	err error
}

func (r *stateReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = fmt.Errorf("truncated: need %d bytes, have %d", n, len(r.buf))
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *stateReader) skip(n int) { r.take(n) }

func (r *stateReader) u8() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *stateReader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}
