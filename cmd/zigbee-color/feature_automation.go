//go:build !no_automation

package main

import (
	"log/slog"

	"zigbee-go-color/internal/automation"
	"zigbee-go-color/internal/bridge"
	"zigbee-go-color/internal/web"
)

type autoStopper struct {
	engine *automation.Engine
}

func (a *autoStopper) Stop() {
	if a.engine != nil {
		a.engine.Stop()
	}
}

func initAutomation(core *bridge.Bridge, cfg *Config, logger *slog.Logger) (*autoStopper, []web.ServerOption) {
	if !cfg.Automation.Enabled {
		return &autoStopper{}, nil
	}
	scriptMgr, err := automation.NewManager(cfg.ScriptsDir, logger)
	if err != nil {
		logger.Error("create script manager", "err", err)
		return &autoStopper{}, nil
	}

	engine := automation.NewEngine(core, scriptMgr, logger)
	engine.Start()

	opts := []web.ServerOption{
		web.WithAutomation(engine, scriptMgr),
	}
	return &autoStopper{engine: engine}, opts
}
