package color

import (
	"errors"
	"math"
)

// HSV is a color in HSV space. Each component is optional so a command can
// carry only the channels it changes. Hue is in 0..360, saturation and
// value in 0..100.
type HSV struct {
	Hue        *float64 `json:"hue,omitempty"`
	Saturation *float64 `json:"saturation,omitempty"`
	Value      *float64 `json:"value,omitempty"`
}

// Float returns a pointer to v, for building partial HSV colors.
func Float(v float64) *float64 {
	return &v
}

// NewHSV builds a fully specified HSV color. Hue is wrapped modulo 360.
func NewHSV(hue, saturation, value float64) HSV {
	return HSV{Hue: Float(math.Mod(hue, 360)), Saturation: Float(saturation), Value: Float(value)}
}

// PartialHSV builds an HSV color from optional components. Hue is wrapped
// modulo 360 when present.
func PartialHSV(hue, saturation, value *float64) HSV {
	c := HSV{Saturation: copyFloat(saturation), Value: copyFloat(value)}
	if hue != nil {
		c.Hue = Float(math.Mod(*hue, 360))
	}
	return c
}

// FromHSL converts HSL (hue 0..360, saturation and lightness 0..100) to HSV.
func FromHSL(hue, saturation, lightness float64) HSV {
	v := saturation*math.Min(lightness, 100-lightness)/100 + lightness
	s := 0.0
	if v != 0 {
		s = 200 * (1 - lightness/v)
	}
	return NewHSV(hue, s, v)
}

// HSVFromMap reads hue/saturation/value keys. At least hue or saturation
// must be present.
func HSVFromMap(m map[string]any) (HSV, error) {
	_, hasHue := present(m, "hue")
	_, hasSat := present(m, "saturation")
	if !hasHue && !hasSat {
		return HSV{}, errors.New("HSV color must specify at least hue or saturation")
	}
	var c HSV
	var err error
	if c.Hue, err = optionalNumber(m, "hue"); err != nil {
		return HSV{}, err
	}
	if c.Saturation, err = optionalNumber(m, "saturation"); err != nil {
		return HSV{}, err
	}
	if c.Value, err = optionalNumber(m, "value"); err != nil {
		return HSV{}, err
	}
	return PartialHSV(c.Hue, c.Saturation, c.Value), nil
}

// Complete returns the color with missing components defaulted to hue 0,
// saturation 100 and value 100.
func (c HSV) Complete() HSV {
	return NewHSV(orDefault(c.Hue, 0), orDefault(c.Saturation, 100), orDefault(c.Value, 100))
}

// Rounded returns the color with present components rounded to precision decimals.
func (c HSV) Rounded(precision int) HSV {
	round := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		return Float(PrecisionRound(*v, precision))
	}
	return HSV{Hue: round(c.Hue), Saturation: round(c.Saturation), Value: round(c.Value)}
}

// ToMap returns the present components keyed by name. With short set the
// keys are h, s and v. includeValue controls whether value is emitted.
func (c HSV) ToMap(short, includeValue bool) map[string]float64 {
	keys := [3]string{"hue", "saturation", "value"}
	if short {
		keys = [3]string{"h", "s", "v"}
	}
	m := make(map[string]float64, 3)
	if c.Hue != nil {
		m[keys[0]] = *c.Hue
	}
	if c.Saturation != nil {
		m[keys[1]] = *c.Saturation
	}
	if c.Value != nil && includeValue {
		m[keys[2]] = *c.Value
	}
	return m
}

// ToRGB converts to RGB after completing missing components.
func (c HSV) ToRGB() RGB {
	full := c.Complete()
	h := *full.Hue / 360
	s := *full.Saturation / 100
	v := *full.Value / 100

	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	switch int(i) % 6 {
	case 0:
		return RGB{Red: v, Green: t, Blue: p}
	case 1:
		return RGB{Red: q, Green: v, Blue: p}
	case 2:
		return RGB{Red: p, Green: v, Blue: t}
	case 3:
		return RGB{Red: p, Green: q, Blue: v}
	case 4:
		return RGB{Red: t, Green: p, Blue: v}
	default:
		return RGB{Red: v, Green: p, Blue: q}
	}
}

// ToXY converts through RGB.
func (c HSV) ToXY() XY {
	return c.ToRGB().ToXY()
}

// ToMireds converts through RGB and XY.
func (c HSV) ToMireds() float64 {
	return c.ToRGB().ToXY().ToMireds()
}

// GammaCorrected returns the color after sRGB gamma correction.
func (c HSV) GammaCorrected() HSV {
	return c.ToRGB().GammaCorrected().ToHSV()
}

// HueCorrected applies the entity's hue calibration, if any. Saturation
// and value are kept as is.
func (c HSV) HueCorrected(opts Options) HSV {
	out := HSV{Saturation: copyFloat(c.Saturation), Value: copyFloat(c.Value)}
	if c.Hue != nil {
		out.Hue = Float(CorrectHue(*c.Hue, opts))
	}
	return out
}

// ColorCorrected applies hue calibration followed by gamma correction.
func (c HSV) ColorCorrected(opts Options) HSV {
	return c.HueCorrected(opts).GammaCorrected()
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}
