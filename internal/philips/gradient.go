// Package philips implements the Hue manufacturer specific light payloads
// carried by cluster 0xFC03: gradient colors, effects and scenes, and the
// decoder for the state attribute the lights report.
package philips

import (
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	MaxGradientColors   = 9
	MaxGradientSegments = 31
	MaxGradientOffset   = 31
)

var ErrInvalidGradient = errors.New("invalid gradient")

// GradientOptions describe how a device lays out gradient colors.
type GradientOptions struct {
	// Reverse flips the color order. Used for fixtures where the last color
	// is physically first, e.g. the Signe floor lamp.
	Reverse bool `json:"reverse,omitempty" yaml:"reverse,omitempty"`
	// Segments is the number of light zones the colors are spread over.
	// Zero means one segment per color.
	Segments int `json:"segments,omitempty" yaml:"segments,omitempty"`
	// Offset rotates the starting segment of the first color.
	Offset int `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// EncodeGradient builds the multiColor payload for 1..9 hex colors, as a
// hex string. The colors slice is not modified.
func EncodeGradient(colors []string, opts GradientOptions) (string, error) {
	b, err := GradientPayload(colors, opts)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GradientPayload is EncodeGradient returning raw bytes.
func GradientPayload(colors []string, opts GradientOptions) ([]byte, error) {
	n := len(colors)
	if n > MaxGradientColors {
		return nil, fmt.Errorf("%w: expected up to %d colors, got %d", ErrInvalidGradient, MaxGradientColors, n)
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: expected at least 1 color, got 0", ErrInvalidGradient)
	}

	segments := n
	if opts.Segments != 0 {
		segments = opts.Segments
	}
	if segments < 1 || segments > MaxGradientSegments {
		return nil, fmt.Errorf("%w: expected segments to be between 1 and %d (inclusive), got %d",
			ErrInvalidGradient, MaxGradientSegments, segments)
	}
	if opts.Offset < 0 || opts.Offset > MaxGradientOffset {
		return nil, fmt.Errorf("%w: expected offset to be between 0 and %d (inclusive), got %d",
			ErrInvalidGradient, MaxGradientOffset, opts.Offset)
	}

	ordered := make([]string, n)
	copy(ordered, colors)
	if opts.Reverse {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}

	// 5001 0400 <len> <n<<4> 000000 <points> <segments<<3> <offset<<3>
	buf := make([]byte, 0, 9+3*n+2)
	buf = append(buf, 0x50, 0x01, 0x04, 0x00)
	buf = append(buf, byte(1+3*(n+1)), byte(n<<4))
	buf = append(buf, 0x00, 0x00, 0x00)
	for _, c := range ordered {
		p, err := encodeScaledPoint(c)
		if err != nil {
			return nil, fmt.Errorf("%w: color %q: %v", ErrInvalidGradient, c, err)
		}
		buf = append(buf, p[:]...)
	}
	buf = append(buf, byte(segments<<3), byte(opts.Offset<<3))
	return buf, nil
}
