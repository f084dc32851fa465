//go:build no_mqtt

package main

import (
	"log/slog"

	"zigbee-go-color/internal/bridge"
)

type mqttStopper struct{}

func (m *mqttStopper) Stop() {}

func initMQTT(_ *bridge.Bridge, _ *Config, logger *slog.Logger) *mqttStopper {
	logger.Warn("built without mqtt, lights cannot be reached")
	return &mqttStopper{}
}
