package color

import "math"

// XY is a point in the CIE 1931 chromaticity diagram. Luminance is not
// carried; conversions to RGB assume maximum brightness.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MiredsToKelvin converts a color temperature in mireds to Kelvin.
func MiredsToKelvin(mireds float64) float64 {
	return 1000000 / mireds
}

// KelvinToMireds converts a color temperature in Kelvin to mireds.
func KelvinToMireds(kelvin float64) float64 {
	return 1000000 / kelvin
}

// FromMireds returns the chromaticity of a black body at the given color
// temperature, looked up by whole Kelvin.
func FromMireds(mireds float64) XY {
	return kelvinXY(math.Round(MiredsToKelvin(mireds)))
}

// ToMireds estimates the correlated color temperature using McCamy's cubic
// approximation. Round trips through FromMireds drift by up to ~2.3 mireds.
func (c XY) ToMireds() float64 {
	n := (c.X - 0.3320) / (0.1858 - c.Y)
	kelvin := math.Abs(437*math.Pow(n, 3) + 3601*math.Pow(n, 2) + 6861*n + 5517)
	return KelvinToMireds(kelvin)
}

// ToRGB converts to RGB at full brightness. When a channel overshoots 1.0
// the others are rescaled against it; the first overshooting channel in
// red, green, blue order wins ties.
func (c XY) ToRGB() RGB {
	const brightness = 254

	z := 1.0 - c.X - c.Y
	lum := PrecisionRound(brightness/254.0, 2)
	x := (lum / c.Y) * c.X
	zz := (lum / c.Y) * z

	red := x*1.656492 - lum*0.354851 - zz*0.255038
	green := -x*0.707196 + lum*1.655397 + zz*0.036152
	blue := x*0.051713 - lum*0.121364 + zz*1.011530

	switch {
	case red > blue && red > green && red > 1.0:
		green /= red
		blue /= red
		red = 1.0
	case green > blue && green > red && green > 1.0:
		red /= green
		blue /= green
		green = 1.0
	case blue > red && blue > green && blue > 1.0:
		red /= blue
		green /= blue
		blue = 1.0
	}

	return RGB{Red: clampChannel(red), Green: clampChannel(green), Blue: clampChannel(blue)}
}

// clampChannel zeroes NaN (y == 0) and small negative rounding errors.
func clampChannel(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// ToHSV converts through RGB.
func (c XY) ToHSV() HSV {
	return c.ToRGB().ToHSV()
}

// Rounded returns the point with both coordinates rounded to precision decimals.
func (c XY) Rounded(precision int) XY {
	return XY{X: PrecisionRound(c.X, precision), Y: PrecisionRound(c.Y, precision)}
}
