package color

// Conversion is one color expressed in every representation a light or a
// frontend uses.
type Conversion struct {
	XY        XY                 `json:"xy"`
	HSV       map[string]float64 `json:"hsv"`
	RGB       map[string]int     `json:"rgb"`
	Hex       string             `json:"hex"`
	ColorTemp float64            `json:"color_temp"`
}

// Convert expresses c in every representation. RGB and HSV inputs are
// treated as sRGB, so XY is what a light is sent for them. Values are
// rounded the way device state reports them.
func Convert(c Color) Conversion {
	var rgb RGB
	var xy XY
	switch v := c.(type) {
	case XY:
		xy = v
		rgb = v.ToRGB()
	case RGB:
		rgb = v
		xy = v.GammaCorrected().ToXY()
	case HSV:
		rgb = v.Complete().ToRGB()
		xy = rgb.GammaCorrected().ToXY()
	}

	hsv := rgb.ToHSV().Rounded(0)
	return Conversion{
		XY:  xy.Rounded(4),
		HSV: hsv.ToMap(false, true),
		RGB: map[string]int{
			"r": int(hexByte(rgb.Red)),
			"g": int(hexByte(rgb.Green)),
			"b": int(hexByte(rgb.Blue)),
		},
		Hex:       rgb.Hex(),
		ColorTemp: PrecisionRound(xy.ToMireds(), 0),
	}
}
