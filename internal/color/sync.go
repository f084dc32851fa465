package color

// Color modes reported in device state.
const (
	ModeHS        = "hs"
	ModeXY        = "xy"
	ModeColorTemp = "color_temp"
)

// StateColor is the "color" object of a light state. Which fields are set
// depends on the color modes the light reports.
type StateColor struct {
	Hue        *float64 `json:"hue,omitempty"`
	Saturation *float64 `json:"saturation,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
}

func (c *StateColor) hasHS() bool { return c != nil && c.Hue != nil && c.Saturation != nil }
func (c *StateColor) hasXY() bool { return c != nil && c.X != nil && c.Y != nil }

func (c *StateColor) empty() bool {
	return c.Hue == nil && c.Saturation == nil && c.X == nil && c.Y == nil
}

func (c *StateColor) clone() *StateColor {
	if c == nil {
		return nil
	}
	return &StateColor{Hue: copyFloat(c.Hue), Saturation: copyFloat(c.Saturation), X: copyFloat(c.X), Y: copyFloat(c.Y)}
}

// State holds the color related fields of a light state.
type State struct {
	ColorMode string      `json:"color_mode,omitempty"`
	Color     *StateColor `json:"color,omitempty"`
	ColorTemp *float64    `json:"color_temp,omitempty"`
}

// ClampColorTemp limits mireds to the configured physical range, if any.
func (o Options) ClampColorTemp(mireds float64) float64 {
	if o.ColorTempRange == nil {
		return mireds
	}
	lo, hi := o.ColorTempRange[0], o.ColorTempRange[1]
	if mireds < lo {
		return lo
	}
	if mireds > hi {
		return hi
	}
	return mireds
}

// SyncColorState reconciles color, color_temp and color_mode. newState
// carries only the changed fields, oldState the cached state. The result
// holds the active mode, its values and every other representation either
// state already tracks, derived from the active one. Other state fields are
// not included; callers merge the result themselves. Neither input is
// modified.
func SyncColorState(newState, oldState State, opts Options) State {
	if !opts.SyncEnabled() {
		return State{
			ColorMode: newState.ColorMode,
			Color:     newState.Color.clone(),
			ColorTemp: copyFloat(newState.ColorTemp),
		}
	}

	var result State
	switch {
	case newState.ColorMode != "":
		result.ColorMode = newState.ColorMode
	case newState.ColorTemp != nil && newState.Color == nil:
		// A lone temperature replaces whatever mode was cached.
		result.ColorMode = ModeColorTemp
	case oldState.ColorMode != "":
		result.ColorMode = oldState.ColorMode
	case newState.ColorTemp != nil:
		result.ColorMode = ModeColorTemp
	case newState.Color != nil && newState.Color.Hue != nil:
		result.ColorMode = ModeHS
	default:
		result.ColorMode = ModeXY
	}

	wantTemp := oldState.ColorTemp != nil || newState.ColorTemp != nil
	wantHS := oldState.Color.hasHS() || newState.Color.hasHS()
	wantXY := oldState.Color.hasXY() || newState.Color.hasXY()

	pick := func(field func(*StateColor) *float64) *float64 {
		if newState.Color != nil && field(newState.Color) != nil {
			return copyFloat(field(newState.Color))
		}
		if oldState.Color != nil && field(oldState.Color) != nil {
			return copyFloat(field(oldState.Color))
		}
		return nil
	}

	col := &StateColor{}
	switch result.ColorMode {
	case ModeHS:
		col.Hue = pick(func(c *StateColor) *float64 { return c.Hue })
		col.Saturation = pick(func(c *StateColor) *float64 { return c.Saturation })
		if col.Hue != nil && col.Saturation != nil {
			hsv := PartialHSV(col.Hue, col.Saturation, nil)
			if wantTemp {
				result.ColorTemp = Float(opts.ClampColorTemp(PrecisionRound(hsv.ToMireds(), 0)))
			}
			if wantXY {
				xy := hsv.ToXY().Rounded(4)
				col.X, col.Y = Float(xy.X), Float(xy.Y)
			}
		}
	case ModeXY:
		col.X = pick(func(c *StateColor) *float64 { return c.X })
		col.Y = pick(func(c *StateColor) *float64 { return c.Y })
		if col.X != nil && col.Y != nil {
			xy := XY{X: *col.X, Y: *col.Y}
			if wantTemp {
				result.ColorTemp = Float(opts.ClampColorTemp(PrecisionRound(xy.ToMireds(), 0)))
			}
			if wantHS {
				setHS(col, xy)
			}
		}
	case ModeColorTemp:
		switch {
		case newState.ColorTemp != nil:
			result.ColorTemp = copyFloat(newState.ColorTemp)
		case oldState.ColorTemp != nil:
			result.ColorTemp = copyFloat(oldState.ColorTemp)
		}
		if result.ColorTemp != nil {
			xy := FromMireds(*result.ColorTemp)
			if wantXY {
				r := xy.Rounded(4)
				col.X, col.Y = Float(r.X), Float(r.Y)
			}
			if wantHS {
				setHS(col, xy)
			}
		}
	}

	if !col.empty() {
		result.Color = col
	}
	return result
}

func setHS(col *StateColor, xy XY) {
	hsv := xy.ToHSV().Rounded(0)
	col.Hue = copyFloat(hsv.Hue)
	col.Saturation = copyFloat(hsv.Saturation)
}
