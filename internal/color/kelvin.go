package color

import "math"

// Kelvin to CIE xy lookup covering 1000K..15000K in 1K steps, values rounded
// to 4 decimals. Built once at init from the Kim et al. cubic spline fit of
// the Planckian locus and never modified afterwards.
const (
	kelvinTableMin = 1000
	kelvinTableMax = 15000
)

var kelvinTable = buildKelvinTable()

func buildKelvinTable() []XY {
	table := make([]XY, kelvinTableMax-kelvinTableMin+1)
	for i := range table {
		table[i] = planckianXY(float64(kelvinTableMin + i)).Rounded(4)
	}
	return table
}

func planckianXY(t float64) XY {
	t2 := t * t
	t3 := t2 * t

	var x float64
	if t <= 4000 {
		x = -0.2661239e9/t3 - 0.2343589e6/t2 + 0.8776956e3/t + 0.179910
	} else {
		x = -3.0258469e9/t3 + 2.1070379e6/t2 + 0.2226347e3/t + 0.240390
	}

	x2 := x * x
	x3 := x2 * x

	var y float64
	switch {
	case t <= 2222:
		y = -1.1063814*x3 - 1.34811020*x2 + 2.18555832*x - 0.20219683
	case t <= 4000:
		y = -0.9549476*x3 - 1.37418593*x2 + 2.09137015*x - 0.16748867
	default:
		y = 3.0817580*x3 - 5.87338670*x2 + 3.75112997*x - 0.37001483
	}
	return XY{X: x, Y: y}
}

// kelvinXY looks up a whole Kelvin value, clamping to the table range.
func kelvinXY(kelvin float64) XY {
	switch {
	case math.IsNaN(kelvin) || kelvin < kelvinTableMin:
		kelvin = kelvinTableMin
	case kelvin > kelvinTableMax:
		kelvin = kelvinTableMax
	}
	return kelvinTable[int(kelvin)-kelvinTableMin]
}
