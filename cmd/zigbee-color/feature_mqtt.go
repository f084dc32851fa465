//go:build !no_mqtt

package main

import (
	"log/slog"
	"time"

	mqttbridge "zigbee-go-color/internal/mqtt"

	"zigbee-go-color/internal/bridge"
)

type mqttStopper struct {
	bridge *mqttbridge.Bridge
}

func (m *mqttStopper) Stop() {
	if m.bridge != nil {
		m.bridge.Stop()
	}
}

func initMQTT(core *bridge.Bridge, cfg *Config, logger *slog.Logger) *mqttStopper {
	if !cfg.MQTT.Enabled {
		logger.Warn("mqtt disabled, lights cannot be reached")
		return &mqttStopper{}
	}
	// validate has already checked the duration.
	timeout, _ := time.ParseDuration(cfg.MQTT.CommandTimeout)
	b, err := mqttbridge.NewBridge(core, mqttbridge.Config{
		Broker:          cfg.MQTT.Broker,
		Username:        cfg.MQTT.Username,
		Password:        cfg.MQTT.Password,
		ClientID:        cfg.MQTT.ClientID,
		TopicPrefix:     cfg.MQTT.TopicPrefix,
		Discovery:       cfg.MQTT.Discovery,
		DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
		CommandTimeout:  timeout,
	}, logger)
	if err != nil {
		logger.Error("mqtt bridge", "err", err)
		return &mqttStopper{}
	}
	b.Start()
	return &mqttStopper{bridge: b}
}
