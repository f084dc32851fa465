package devicedb

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"zigbee-go-color/internal/color"
	"zigbee-go-color/internal/zcl"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestDeviceDBAddLookup(t *testing.T) {
	db := New()
	db.Add(Definition{
		Manufacturer: "IKEA of Sweden",
		Model:        "TRADFRI bulb E27 CWS opal 600lm",
		Light:        Light{ColorModes: []string{ColorModeXY, ColorModeHS}},
	})

	if db.Len() != 1 {
		t.Fatalf("len = %d, want 1", db.Len())
	}
	def := db.Lookup("IKEA of Sweden", "TRADFRI bulb E27 CWS opal 600lm")
	if def == nil {
		t.Fatal("lookup returned nil")
	}
	if !def.HasColor() || def.SupportsColorMode(ColorModeTemp) {
		t.Errorf("color modes = %v", def.Light.ColorModes)
	}
	if db.Lookup("IKEA of Sweden", "unknown") != nil {
		t.Error("expected nil for unknown model")
	}
}

func TestLoadDir(t *testing.T) {
	registry := zcl.NewRegistry(quietLogger())
	dir := t.TempDir()

	err := os.WriteFile(filepath.Join(dir, "test.json"), []byte(`{
		"clusters": [
			{"id": 64515, "name": "Philips2", "attributes": [{"id": 2, "name": "State", "type": 65, "access": 5}]}
		],
		"devices": [
			{"manufacturer": "ACME", "model": "bulb", "light": {"color_modes": ["color_temp"], "color_temp_range": [153, 370]}}
		],
		"manufacturers": [
			{"name": "Signify Netherlands B.V.", "models": [
				{"model": "LCX004", "endpoint": 11,
				 "light": {"color_modes": ["xy", "hs"], "gradient": {"reverse": true}},
				 "options": {"hue_correction": [{"in": 0, "out": 5}, {"in": 120, "out": 110}], "transition": 1}}
			]}
		]
	}`), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not json"), 0o644)

	db, err := LoadDir(dir, registry, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if db.Len() != 2 {
		t.Fatalf("len = %d, want 2", db.Len())
	}
	if registry.Get(0xFC03) == nil {
		t.Error("custom cluster not registered")
	}

	hue := db.Lookup("Signify Netherlands B.V.", "LCX004")
	if hue == nil {
		t.Fatal("grouped model not found")
	}
	if hue.Endpoint != 11 || hue.Light.Gradient == nil || !hue.Light.Gradient.Reverse {
		t.Errorf("def = %+v", hue)
	}
	if len(hue.Options.HueCorrection) != 2 || *hue.Options.Transition != 1 {
		t.Errorf("options = %+v", hue.Options)
	}

	acme := db.Lookup("ACME", "bulb")
	opts := acme.ColorOptions()
	if opts.ColorTempRange == nil || opts.ColorTempRange[1] != 370 {
		t.Errorf("color temp range = %v", opts.ColorTempRange)
	}
}

func TestLoadDirMissing(t *testing.T) {
	db, err := LoadDir(filepath.Join(t.TempDir(), "nope"), zcl.NewRegistry(quietLogger()), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if db.Len() != 0 {
		t.Errorf("len = %d", db.Len())
	}
}

func TestLoadDirRejectsBadFiles(t *testing.T) {
	tests := map[string]string{
		"syntax":   `{"devices": [`,
		"no model": `{"devices": [{"manufacturer": "ACME"}]}`,
		"segments": `{"devices": [{"manufacturer": "A", "model": "B", "light": {"gradient": {"segments": 40}}}]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			os.WriteFile(filepath.Join(dir, "bad.json"), []byte(body), 0o644)
			if _, err := LoadDir(dir, zcl.NewRegistry(quietLogger()), quietLogger()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadShippedDefinitions(t *testing.T) {
	db, err := LoadDir(filepath.Join("..", "..", "devices"), zcl.NewRegistry(quietLogger()), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	signe := db.Lookup("Signify Netherlands B.V.", "915005987201")
	if signe == nil || !signe.Light.Gradient.Reverse {
		t.Fatalf("signe = %+v", signe)
	}
	effects := signe.Effects()
	if effects[len(effects)-1] != "stop_hue_effect" {
		t.Errorf("effects = %v", effects)
	}
}

func TestOptionsMerge(t *testing.T) {
	off := false
	tr := 2.0
	base := Options{Options: color.Options{HueCorrection: []color.HueCorrection{{In: 0, Out: 1}}}}
	got := base.Merge(Options{Options: color.Options{ColorSync: &off}, Transition: &tr})
	if len(got.HueCorrection) != 1 || got.SyncEnabled() || *got.Transition != 2 {
		t.Errorf("merged = %+v", got)
	}
}
