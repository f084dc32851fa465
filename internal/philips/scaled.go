package philips

import (
	"math"

	"zigbee-go-color/internal/color"
)

// Gradient points are CIE xy coordinates quantized to 12 bits against the
// corners of the device gamut.
const (
	scaledMaxX  = 0.7347
	scaledMaxY  = 0.8413
	scaledRange = 4095
)

// encodeScaledPoint packs a hex color into the 3 byte gradient point.
// The 12-bit x and y values are interleaved as
//
//	byte0 = x[7:0]
//	byte1 = y[3:0]<<4 | x[11:8]
//	byte2 = y[11:4]
//
// which reads as nibbles x1 x2 y2 x0 y0 y1 in hex.
func encodeScaledPoint(hex string) ([3]byte, error) {
	rgb, err := color.RGBFromHex(hex)
	if err != nil {
		return [3]byte{}, err
	}
	xy := rgb.ToXY()
	x := quantize(xy.X * scaledRange / scaledMaxX)
	y := quantize(xy.Y * scaledRange / scaledMaxY)
	return [3]byte{
		byte(x),
		byte(y&0x0f)<<4 | byte(x>>8),
		byte(y >> 4),
	}, nil
}

// decodeScaledPoint is the inverse of encodeScaledPoint. The xy point is
// rounded to 4 decimals before converting back to RGB.
func decodeScaledPoint(p []byte) string {
	x := uint16(p[1]&0x0f)<<8 | uint16(p[0])
	y := uint16(p[2])<<4 | uint16(p[1]>>4)
	xy := color.XY{
		X: color.PrecisionRound(float64(x)*scaledMaxX/scaledRange, 4),
		Y: color.PrecisionRound(float64(y)*scaledMaxY/scaledRange, 4),
	}
	return xy.ToRGB().Hex()
}

func quantize(v float64) uint16 {
	n := math.Round(v)
	switch {
	case n < 0 || math.IsNaN(n):
		return 0
	case n > scaledRange:
		return scaledRange
	}
	return uint16(n)
}
