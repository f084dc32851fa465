// Package devicedb maps manufacturer/model fingerprints to light
// capabilities and default converter options.
package devicedb

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"zigbee-go-color/internal/color"
	"zigbee-go-color/internal/philips"
	"zigbee-go-color/internal/zcl"
)

// Light color modes a definition can declare.
const (
	ColorModeXY   = "xy"
	ColorModeHS   = "hs"
	ColorModeTemp = "color_temp"
)

// Light describes what a light model supports.
type Light struct {
	ColorModes []string `json:"color_modes,omitempty"`
	// EnhancedHue selects the 16-bit enhanced hue commands.
	EnhancedHue bool `json:"enhanced_hue,omitempty"`
	// ColorTempRange is the physical [min, max] mireds range.
	ColorTempRange *[2]float64 `json:"color_temp_range,omitempty"`
	// ApplyRedFix nudges pure red xy so the light does not render orange.
	ApplyRedFix bool `json:"apply_red_fix,omitempty"`
	// HueEffects enables the manufacturer effect command.
	HueEffects bool `json:"hue_effects,omitempty"`
	// HuePowerOn enables the Signify power-on behavior settings.
	HuePowerOn   bool                     `json:"hue_power_on,omitempty"`
	Gradient     *philips.GradientOptions `json:"gradient,omitempty"`
	ExtraEffects []string                 `json:"extra_effects,omitempty"`
}

// Options are per-device converter options. Definitions carry defaults,
// the bridge config may override them per device.
type Options struct {
	color.Options `yaml:",inline"`
	// Transition is the default transition in seconds.
	Transition *float64 `json:"transition,omitempty" yaml:"transition,omitempty"`
}

// Merge returns o with every option set in override replaced.
func (o Options) Merge(override Options) Options {
	out := o
	if override.HueCorrection != nil {
		out.HueCorrection = override.HueCorrection
	}
	if override.ColorSync != nil {
		out.ColorSync = override.ColorSync
	}
	if override.ColorTempRange != nil {
		out.ColorTempRange = override.ColorTempRange
	}
	if override.Transition != nil {
		out.Transition = override.Transition
	}
	return out
}

// ManufacturerGroup groups device models under one manufacturer name.
type ManufacturerGroup struct {
	Name   string       `json:"name"`
	Models []Definition `json:"models"`
}

// Definition describes a specific light model.
type Definition struct {
	Manufacturer string  `json:"manufacturer"`
	Model        string  `json:"model"`
	Description  string  `json:"description,omitempty"`
	Endpoint     uint8   `json:"endpoint,omitempty"`
	Light        Light   `json:"light"`
	Options      Options `json:"options,omitempty"`
}

// SupportsColorMode reports whether mode is listed in the light's color modes.
func (d *Definition) SupportsColorMode(mode string) bool {
	for _, m := range d.Light.ColorModes {
		if m == mode {
			return true
		}
	}
	return false
}

// HasColor reports whether the light supports xy or hue/saturation.
func (d *Definition) HasColor() bool {
	return d.SupportsColorMode(ColorModeXY) || d.SupportsColorMode(ColorModeHS)
}

// Effects lists the effect names the light accepts.
func (d *Definition) Effects() []string {
	return philips.SupportedEffects(d.HasColor(), d.Light.Gradient != nil, d.Light.ExtraEffects)
}

// ColorOptions returns the definition's default options with the color
// temperature range filled from the light capabilities.
func (d *Definition) ColorOptions() Options {
	o := d.Options
	if o.ColorTempRange == nil && d.Light.ColorTempRange != nil {
		r := *d.Light.ColorTempRange
		o.ColorTempRange = &r
	}
	return o
}

// DeviceDB holds device definitions keyed by manufacturer+model.
type DeviceDB struct {
	defs map[string]*Definition
}

func deviceKey(manufacturer, model string) string {
	return manufacturer + "\x00" + model
}

// New creates an empty device database.
func New() *DeviceDB {
	return &DeviceDB{defs: make(map[string]*Definition)}
}

// Add inserts a device definition into the database.
func (db *DeviceDB) Add(def Definition) {
	cp := def
	db.defs[deviceKey(def.Manufacturer, def.Model)] = &cp
}

// Lookup finds a device definition by manufacturer and model.
func (db *DeviceDB) Lookup(manufacturer, model string) *Definition {
	return db.defs[deviceKey(manufacturer, model)]
}

// Len returns the number of device definitions.
func (db *DeviceDB) Len() int {
	return len(db.defs)
}

// deviceFile is the JSON structure for files in the devices directory.
type deviceFile struct {
	Clusters      []zcl.ClusterDef    `json:"clusters,omitempty"`
	Devices       []Definition        `json:"devices,omitempty"`
	Manufacturers []ManufacturerGroup `json:"manufacturers,omitempty"`
}

// LoadDir reads all *.json files from a directory, registering custom
// clusters into the ZCL registry and loading light definitions.
// Returns an empty DeviceDB (not an error) if the directory doesn't exist or is empty.
func LoadDir(dir string, registry *zcl.Registry, logger *slog.Logger) (*DeviceDB, error) {
	db := New()

	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return db, fmt.Errorf("glob devices dir: %w", err)
	}
	if len(matches) == 0 {
		logger.Info("no device definition files found", "dir", dir)
		return db, nil
	}

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return db, fmt.Errorf("read %s: %w", path, err)
		}

		var df deviceFile
		if err := json.Unmarshal(data, &df); err != nil {
			return db, fmt.Errorf("parse %s: %w", path, err)
		}

		for _, c := range df.Clusters {
			registry.Register(c)
		}
		count := 0
		add := func(d Definition) error {
			if d.Manufacturer == "" || d.Model == "" {
				return fmt.Errorf("%s: definition without manufacturer or model", path)
			}
			if g := d.Light.Gradient; g != nil && (g.Segments < 0 || g.Segments > philips.MaxGradientSegments) {
				return fmt.Errorf("%s: %s: gradient segments %d out of range", path, d.Model, g.Segments)
			}
			db.Add(d)
			count++
			return nil
		}
		for _, d := range df.Devices {
			if err := add(d); err != nil {
				return db, err
			}
		}
		for _, mg := range df.Manufacturers {
			for _, d := range mg.Models {
				d.Manufacturer = mg.Name
				if err := add(d); err != nil {
					return db, err
				}
			}
		}

		logger.Info("loaded device file", "path", filepath.Base(path),
			"clusters", len(df.Clusters), "devices", count)
	}

	logger.Info("device database loaded", "files", len(matches), "devices", db.Len())
	return db, nil
}
