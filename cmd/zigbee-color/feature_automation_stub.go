//go:build no_automation

package main

import (
	"log/slog"

	"zigbee-go-color/internal/bridge"
	"zigbee-go-color/internal/web"
)

type autoStopper struct{}

func (a *autoStopper) Stop() {}

func initAutomation(_ *bridge.Bridge, _ *Config, _ *slog.Logger) (*autoStopper, []web.ServerOption) {
	return &autoStopper{}, nil
}
