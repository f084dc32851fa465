// Package color converts light colors between RGB, HSV, CIE xy and color
// temperature, and keeps the color fields of a device state consistent.
package color

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidColor is returned when a value has no recognizable color shape.
var ErrInvalidColor = errors.New("value does not contain valid color definition")

// Color is exactly one of HSV, RGB or XY.
type Color interface {
	isColor()
}

func (HSV) isColor() {}
func (RGB) isColor() {}
func (XY) isColor()  {}

// PrecisionRound rounds v to the given number of decimals.
func PrecisionRound(v float64, precision int) float64 {
	factor := math.Pow(10, float64(precision))
	return math.Round(v*factor) / factor
}

type argParser struct {
	name  string
	match func(m map[string]any) bool
	parse func(m map[string]any) (Color, error)
}

// argParsers are tried in order; the first matching shape wins. Ambiguous
// payloads (e.g. both x/y and r/g/b) resolve by this precedence.
var argParsers = []argParser{
	{"xy", has("x", "y"), func(m map[string]any) (Color, error) {
		x, y, err := numbers2(m, "x", "y")
		return XY{X: x, Y: y}, err
	}},
	{"rgb", has("r", "g", "b"), func(m map[string]any) (Color, error) {
		r, g, b, err := numbers3(m, "r", "g", "b")
		return RGB255(r, g, b), err
	}},
	{"rgb string", has("rgb"), func(m map[string]any) (Color, error) {
		r, g, b, err := triple(m["rgb"])
		return RGB255(r, g, b), err
	}},
	{"hex", has("hex"), func(m map[string]any) (Color, error) {
		s, ok := m["hex"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: hex must be a string", ErrInvalidColor)
		}
		return RGBFromHex(s)
	}},
	{"hsl", has("h", "s", "l"), func(m map[string]any) (Color, error) {
		h, s, l, err := numbers3(m, "h", "s", "l")
		return FromHSL(h, s, l), err
	}},
	{"hsl string", has("hsl"), func(m map[string]any) (Color, error) {
		h, s, l, err := triple(m["hsl"])
		return FromHSL(h, s, l), err
	}},
	{"hsb", has("h", "s", "b"), func(m map[string]any) (Color, error) {
		h, s, b, err := numbers3(m, "h", "s", "b")
		return NewHSV(h, s, b), err
	}},
	{"hsb string", has("hsb"), func(m map[string]any) (Color, error) {
		h, s, b, err := triple(m["hsb"])
		return NewHSV(h, s, b), err
	}},
	{"hsv", has("h", "s", "v"), func(m map[string]any) (Color, error) {
		h, s, v, err := numbers3(m, "h", "s", "v")
		return NewHSV(h, s, v), err
	}},
	{"hsv string", has("hsv"), func(m map[string]any) (Color, error) {
		h, s, v, err := triple(m["hsv"])
		return NewHSV(h, s, v), err
	}},
	{"hs", has("h", "s"), func(m map[string]any) (Color, error) {
		h, s, err := numbers2(m, "h", "s")
		return PartialHSV(&h, &s, nil), err
	}},
	{"h", has("h"), func(m map[string]any) (Color, error) {
		h, err := number(m["h"])
		return PartialHSV(&h, nil, nil), err
	}},
	{"s", has("s"), func(m map[string]any) (Color, error) {
		s, err := number(m["s"])
		return PartialHSV(nil, &s, nil), err
	}},
	{"hue/saturation", hasAny("hue", "saturation"), func(m map[string]any) (Color, error) {
		return HSVFromMap(m)
	}},
}

// FromConverterArg parses an untyped color payload as received from an
// upstream command. Accepted shapes: {x,y}, {r,g,b}, {rgb:"r,g,b"},
// {hex}, a bare hex string, {h,s,l}, {hsl}, {h,s,b}, {hsb}, {h,s,v},
// {hsv}, and any of h/s or hue/saturation alone.
func FromConverterArg(value any) (Color, error) {
	var m map[string]any
	switch v := value.(type) {
	case string:
		return RGBFromHex(v)
	case map[string]any:
		m = v
	case json.RawMessage:
		if err := json.Unmarshal(v, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidColor, err)
		}
	default:
		return nil, ErrInvalidColor
	}

	for _, p := range argParsers {
		if !p.match(m) {
			continue
		}
		c, err := p.parse(m)
		if err != nil {
			return nil, fmt.Errorf("%s color: %w", p.name, err)
		}
		return c, nil
	}
	return nil, ErrInvalidColor
}

func present(m map[string]any, key string) (any, bool) {
	v, ok := m[key]
	return v, ok && v != nil
}

func has(keys ...string) func(map[string]any) bool {
	return func(m map[string]any) bool {
		for _, k := range keys {
			if _, ok := present(m, k); !ok {
				return false
			}
		}
		return true
	}
}

func hasAny(keys ...string) func(map[string]any) bool {
	return func(m map[string]any) bool {
		for _, k := range keys {
			if _, ok := present(m, k); ok {
				return true
			}
		}
		return false
	}
}

// number accepts JSON numbers, Go numeric types and numeric strings.
func number(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidColor, n)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidColor, n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: unexpected %T", ErrInvalidColor, v)
}

func optionalNumber(m map[string]any, key string) (*float64, error) {
	v, ok := present(m, key)
	if !ok {
		return nil, nil
	}
	f, err := number(v)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func numbers2(m map[string]any, a, b string) (float64, float64, error) {
	x, err := number(m[a])
	if err != nil {
		return 0, 0, err
	}
	y, err := number(m[b])
	return x, y, err
}

func numbers3(m map[string]any, a, b, c string) (float64, float64, float64, error) {
	x, y, err := numbers2(m, a, b)
	if err != nil {
		return 0, 0, 0, err
	}
	z, err := number(m[c])
	return x, y, z, err
}

// triple parses "a,b,c" where each part starts with an integer.
func triple(v any) (float64, float64, float64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: expected comma separated string, got %T", ErrInvalidColor, v)
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: expected 3 components in %q", ErrInvalidColor, s)
	}
	var out [3]float64
	for i, p := range parts {
		n, err := leadingInt(p)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: component %q", ErrInvalidColor, p)
		}
		out[i] = float64(n)
	}
	return out[0], out[1], out[2], nil
}

// leadingInt parses the integer prefix of s, ignoring trailing garbage such
// as a fractional part.
func leadingInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return strconv.Atoi(s[:end])
}
