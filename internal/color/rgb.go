package color

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RGB is a color with red, green and blue components in the 0..1 range.
type RGB struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

// RGBFromHex parses a hex encoded color ("#ffd500" or "ffd500").
func RGBFromHex(hex string) (RGB, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if s == "" || len(s) > 6 {
		return RGB{}, fmt.Errorf("%w: hex %q", ErrInvalidColor, hex)
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: hex %q", ErrInvalidColor, hex)
	}
	return RGB{
		Red:   float64((n>>16)&0xFF) / 255,
		Green: float64((n>>8)&0xFF) / 255,
		Blue:  float64(n&0xFF) / 255,
	}, nil
}

// RGB255 builds a color from 0..255 components.
func RGB255(r, g, b float64) RGB {
	return RGB{Red: r / 255, Green: g / 255, Blue: b / 255}
}

// Hex returns the color as a lowercase "#rrggbb" string.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", hexByte(c.Red), hexByte(c.Green), hexByte(c.Blue))
}

func hexByte(v float64) uint8 {
	n := math.Round(v * 255)
	if n < 0 || math.IsNaN(n) {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

// Rounded returns the color with every component rounded to precision decimals.
func (c RGB) Rounded(precision int) RGB {
	return RGB{
		Red:   PrecisionRound(c.Red, precision),
		Green: PrecisionRound(c.Green, precision),
		Blue:  PrecisionRound(c.Blue, precision),
	}
}

// ToHSV converts to HSV. Achromatic colors get hue 0.
func (c RGB) ToHSV() HSV {
	r, g, b := c.Red, c.Green, c.Blue
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	d := hi - lo

	s := 0.0
	if hi != 0 {
		s = d / hi
	}

	var h float64
	switch hi {
	case lo:
		h = 0
	case r:
		h = g - b
		if g < b {
			h += d * 6
		}
		h /= 6 * d
	case g:
		h = (b - r + d*2) / (6 * d)
	case b:
		h = (r - g + d*4) / (6 * d)
	}

	return NewHSV(h*360, s*100, hi*100)
}

// ToXY converts to CIE 1931 chromaticity using the Wide RGB D65 matrix.
// Black maps to (0, 0).
func (c RGB) ToXY() XY {
	x := c.Red*0.664511 + c.Green*0.154324 + c.Blue*0.162028
	y := c.Red*0.283881 + c.Green*0.668433 + c.Blue*0.047685
	z := c.Red*0.000088 + c.Green*0.072310 + c.Blue*0.986039
	sum := x + y + z
	if sum == 0 {
		return XY{}
	}
	return XY{X: x / sum, Y: y / sum}
}

// GammaCorrected linearizes sRGB encoded components. Wire values for
// Zigbee color commands are computed from the linear result.
func (c RGB) GammaCorrected() RGB {
	f := func(v float64) float64 {
		if v > 0.04045 {
			return math.Pow((v+0.055)/(1.0+0.055), 2.4)
		}
		return v / 12.92
	}
	return RGB{Red: f(c.Red), Green: f(c.Green), Blue: f(c.Blue)}
}

// GammaUncorrected applies the sRGB transfer function, the exact inverse
// of GammaCorrected.
func (c RGB) GammaUncorrected() RGB {
	f := func(v float64) float64 {
		if v <= 0.0031308 {
			return 12.92 * v
		}
		return (1.0+0.055)*math.Pow(v, 1.0/2.4) - 0.055
	}
	return RGB{Red: f(c.Red), Green: f(c.Green), Blue: f(c.Blue)}
}
