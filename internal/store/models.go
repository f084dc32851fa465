package store

import (
	"time"

	"zigbee-go-color/internal/devicedb"
)

// Device is a light known to the bridge.
type Device struct {
	IEEEAddress  string           `json:"ieee_address"`
	FriendlyName string           `json:"friendly_name"`
	Manufacturer string           `json:"manufacturer,omitempty"`
	Model        string           `json:"model,omitempty"`
	Endpoint     uint8            `json:"endpoint,omitempty"`
	Options      devicedb.Options `json:"options"`
	AddedAt      time.Time        `json:"added_at"`
	LastSeen     time.Time        `json:"last_seen"`
}

// Name returns the friendly name, falling back to the IEEE address.
func (d *Device) Name() string {
	if d.FriendlyName != "" {
		return d.FriendlyName
	}
	return d.IEEEAddress
}
