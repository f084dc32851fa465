package store

import "errors"

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface.
type Store interface {
	// Device operations
	SaveDevice(dev *Device) error
	GetDevice(ieee string) (*Device, error)
	FindDevice(friendlyName string) (*Device, error)
	DeleteDevice(ieee string) error
	ListDevices() ([]*Device, error)

	// UpdateDevice atomically reads, modifies, and saves a device in a single
	// transaction. Returns ErrNotFound if the device does not exist.
	UpdateDevice(ieee string, fn func(dev *Device) error) error

	// GetState returns the cached state of a device, empty if none is stored.
	GetState(ieee string) (map[string]any, error)

	// UpdateState atomically reads the cached state, lets fn modify it and
	// saves the result, returning the saved state. Returns ErrNotFound if
	// the device does not exist.
	UpdateState(ieee string, fn func(state map[string]any) error) (map[string]any, error)

	// Close the store
	Close() error
}
