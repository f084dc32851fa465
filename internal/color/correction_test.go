package color

import "testing"

func TestInterpolateHue(t *testing.T) {
	m := []HueCorrection{{In: 120, Out: 130}, {In: 0, Out: 0}, {In: 60, Out: 80}}
	tests := []struct {
		hue, want float64
	}{
		{0, 0},
		{30, 40},
		{60, 80},
		{90, 105},
		{200, 207},
		{359, 359},
	}
	for _, tt := range tests {
		if got := InterpolateHue(tt.hue, m); got != tt.want {
			t.Errorf("InterpolateHue(%v) = %v, want %v", tt.hue, got, tt.want)
		}
	}
	if m[0].In != 120 {
		t.Error("InterpolateHue reordered the caller's map")
	}
}

func TestInterpolateHueShortMap(t *testing.T) {
	if got := InterpolateHue(123.4, []HueCorrection{{In: 0, Out: 50}}); got != 123.4 {
		t.Errorf("single point map = %v, want identity", got)
	}
	if got := InterpolateHue(10, nil); got != 10 {
		t.Errorf("nil map = %v, want identity", got)
	}
}

func TestInterpolateHueDuplicateIn(t *testing.T) {
	m := []HueCorrection{{In: 60, Out: 70}, {In: 120, Out: 120}, {In: 60, Out: 90}}
	if got := InterpolateHue(90, m); got != 95 {
		t.Errorf("InterpolateHue(90) = %v, want 95 from the first point at 60", got)
	}
}

func TestInterpolateHueDefaultLeftEdge(t *testing.T) {
	m := []HueCorrection{{In: 100, Out: 120}, {In: 200, Out: 180}}
	if got := InterpolateHue(50, m); got != 60 {
		t.Errorf("InterpolateHue(50) = %v, want 60", got)
	}
}

func TestCorrectHue(t *testing.T) {
	if got := CorrectHue(42, Options{}); got != 42 {
		t.Errorf("CorrectHue without map = %v", got)
	}
	opts := Options{HueCorrection: []HueCorrection{{In: 0, Out: 10}, {In: 180, Out: 190}}}
	if got := CorrectHue(90, opts); got != 100 {
		t.Errorf("CorrectHue(90) = %v, want 100", got)
	}
}

func TestOptionsSyncEnabled(t *testing.T) {
	off := false
	if !(Options{}).SyncEnabled() {
		t.Error("nil color_sync should enable sync")
	}
	if (Options{ColorSync: &off}).SyncEnabled() {
		t.Error("color_sync=false should disable sync")
	}
}
