package color

import (
	"math"
	"sort"
)

// HueCorrection is one calibration point mapping a requested hue to the hue
// the device must be sent to render it.
type HueCorrection struct {
	In  float64 `json:"in" yaml:"in"`
	Out float64 `json:"out" yaml:"out"`
}

// Options are the per-device or per-group color options.
type Options struct {
	// HueCorrection is an optional sparse calibration map.
	HueCorrection []HueCorrection `json:"hue_correction,omitempty" yaml:"hue_correction,omitempty"`
	// ColorSync enables cross-representation state sync. Nil means enabled.
	ColorSync *bool `json:"color_sync,omitempty" yaml:"color_sync,omitempty"`
	// ColorTempRange is the device's physical [min, max] mireds range, used
	// to clamp synced color_temp values.
	ColorTempRange *[2]float64 `json:"color_temp_range,omitempty" yaml:"color_temp_range,omitempty"`
}

// SyncEnabled reports whether SyncColorState should reconcile representations.
func (o Options) SyncEnabled() bool {
	return o.ColorSync == nil || *o.ColorSync
}

// InterpolateHue corrects hue by piecewise-linear interpolation between the
// nearest calibration points below and above it. Maps with fewer than two
// points leave hue unchanged. The caller's slice is not reordered.
func InterpolateHue(hue float64, correctionMap []HueCorrection) float64 {
	if len(correctionMap) < 2 {
		return hue
	}

	sorted := make([]HueCorrection, len(correctionMap))
	copy(sorted, correctionMap)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].In < sorted[j].In })

	left := HueCorrection{In: 0, Out: 0}
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].In <= hue {
			// first of any points sharing this In, in caller order
			for i > 0 && sorted[i-1].In == sorted[i].In {
				i--
			}
			left = sorted[i]
			break
		}
	}

	right := HueCorrection{In: 359, Out: 359}
	for _, m := range sorted {
		if m.In > hue {
			right = m
			break
		}
	}

	ratio := 1 - (right.In-hue)/(right.In-left.In)
	return math.Round(left.Out + ratio*(right.Out-left.Out))
}

// CorrectHue applies opts.HueCorrection when configured.
func CorrectHue(hue float64, opts Options) float64 {
	if opts.HueCorrection == nil {
		return hue
	}
	return InterpolateHue(hue, opts.HueCorrection)
}
