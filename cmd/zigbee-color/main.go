package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"zigbee-go-color/internal/bridge"
	"zigbee-go-color/internal/devicedb"
	"zigbee-go-color/internal/store"
	"zigbee-go-color/internal/web"
	"zigbee-go-color/internal/zcl"
	"zigbee-go-color/internal/zcl/clusters"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// DeviceConfig declares a light the bridge manages.
type DeviceConfig struct {
	IEEEAddress  string           `yaml:"ieee_address"`
	FriendlyName string           `yaml:"friendly_name"`
	Manufacturer string           `yaml:"manufacturer"`
	Model        string           `yaml:"model"`
	Endpoint     uint8            `yaml:"endpoint"`
	Options      devicedb.Options `yaml:"options"`
}

type Config struct {
	Web struct {
		Listen         string   `yaml:"listen"`
		APIKey         string   `yaml:"api_key"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"web"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	MQTT struct {
		Enabled         bool   `yaml:"enabled"`
		Broker          string `yaml:"broker"`
		Username        string `yaml:"username"`
		Password        string `yaml:"password"`
		ClientID        string `yaml:"client_id"`
		TopicPrefix     string `yaml:"topic_prefix"`
		Discovery       bool   `yaml:"discovery"`
		DiscoveryPrefix string `yaml:"discovery_prefix"`
		CommandTimeout  string `yaml:"command_timeout"`
	} `yaml:"mqtt"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Automation struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"automation"`
	DevicesDir string         `yaml:"devices_dir"`
	ScriptsDir string         `yaml:"scripts_dir"`
	Devices    []DeviceConfig `yaml:"devices"`
}

func (c *Config) validate() error {
	var errs []error
	if c.Web.Listen == "" {
		errs = append(errs, fmt.Errorf("web.listen is required"))
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, fmt.Errorf("mqtt.broker is required when mqtt is enabled"))
	}
	if c.MQTT.CommandTimeout != "" {
		if _, err := time.ParseDuration(c.MQTT.CommandTimeout); err != nil {
			errs = append(errs, fmt.Errorf("mqtt.command_timeout: %w", err))
		}
	}

	seen := make(map[string]bool)
	for i, d := range c.Devices {
		if _, err := bridge.NormalizeIEEE(d.IEEEAddress); err != nil {
			errs = append(errs, fmt.Errorf("devices[%d]: %w", i, err))
		}
		if d.FriendlyName == "" {
			continue
		}
		if seen[d.FriendlyName] {
			errs = append(errs, fmt.Errorf("devices[%d]: duplicate friendly_name %q", i, d.FriendlyName))
		}
		seen[d.FriendlyName] = true
	}
	return errors.Join(errs...)
}

func main() {
	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := cfg.validate(); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("zigbee-color starting", "version", version)

	registry := zcl.NewRegistry(logger)
	clusters.RegisterAll(registry)

	deviceDB, err := devicedb.LoadDir(cfg.DevicesDir, registry, logger)
	if err != nil {
		logger.Error("load device definitions", "err", err)
		os.Exit(1)
	}
	logger.Info("ZCL registry initialized", "clusters", len(registry.All()), "devices", deviceDB.Len())

	db, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	core := bridge.New(db, deviceDB, logger)
	if err := addConfiguredDevices(core, cfg.Devices, logger); err != nil {
		logger.Error("configure devices", "err", err)
		os.Exit(1)
	}

	// MQTT first: it is the transport lights are reached through.
	mqtt := initMQTT(core, cfg, logger)

	// No-op when built with the no_automation tag.
	auto, autoWebOpts := initAutomation(core, cfg, logger)

	var webOpts []web.ServerOption
	if cfg.Web.APIKey != "" {
		webOpts = append(webOpts, web.WithAPIKey(cfg.Web.APIKey))
	}
	if len(cfg.Web.AllowedOrigins) > 0 {
		webOpts = append(webOpts, web.WithAllowedOrigins(cfg.Web.AllowedOrigins))
	}
	webOpts = append(webOpts, web.WithVersion(version))
	webOpts = append(webOpts, autoWebOpts...)

	webServer := web.NewServer(core, logger, webOpts...)

	httpServer := &http.Server{
		Addr:         cfg.Web.Listen,
		Handler:      webServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("web server starting", "addr", cfg.Web.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	signal.Stop(sigCh)
	logger.Info("shutting down", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	auto.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "err", err)
	}
	webServer.Stop()
	mqtt.Stop()

	logger.Info("goodbye")
}

// addConfiguredDevices upserts the devices listed in the config. Devices
// added at runtime through the API or MQTT are left alone.
func addConfiguredDevices(core *bridge.Bridge, devices []DeviceConfig, logger *slog.Logger) error {
	for _, d := range devices {
		dev := &store.Device{
			IEEEAddress:  d.IEEEAddress,
			FriendlyName: d.FriendlyName,
			Manufacturer: d.Manufacturer,
			Model:        d.Model,
			Endpoint:     d.Endpoint,
			Options:      d.Options,
		}
		if err := core.AddDevice(dev); err != nil {
			return fmt.Errorf("device %s: %w", d.IEEEAddress, err)
		}
		if core.Definition(dev) == nil {
			logger.Warn("device model not in device database", "device", dev.Name(), "manufacturer", d.Manufacturer, "model", d.Model)
		}
	}
	return nil
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	cfg.Automation.Enabled = true
	cfg.MQTT.Discovery = true
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8080"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "zigbee-color.db"
	}
	if cfg.DevicesDir == "" {
		cfg.DevicesDir = "devices"
	}
	if cfg.ScriptsDir == "" {
		cfg.ScriptsDir = "scripts"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "zigbee2mqtt"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return &cfg, nil
}

func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
