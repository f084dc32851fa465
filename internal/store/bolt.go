package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketDevices = []byte("devices")
	bucketState   = []byte("state")
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketDevices, bucketState} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func bucket(tx *bolt.Tx, name []byte) (*bolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("bucket %q not found", name)
	}
	return b, nil
}

func getDevice(b *bolt.Bucket, ieee string) (*Device, error) {
	data := b.Get([]byte(ieee))
	if data == nil {
		return nil, fmt.Errorf("device %s: %w", ieee, ErrNotFound)
	}
	var dev Device
	if err := json.Unmarshal(data, &dev); err != nil {
		return nil, fmt.Errorf("device %s: %w", ieee, err)
	}
	return &dev, nil
}

func putJSON(b *bolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

func (s *BoltStore) SaveDevice(dev *Device) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketDevices)
		if err != nil {
			return err
		}
		return putJSON(b, dev.IEEEAddress, dev)
	})
}

func (s *BoltStore) GetDevice(ieee string) (*Device, error) {
	var dev *Device
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketDevices)
		if err != nil {
			return err
		}
		dev, err = getDevice(b, ieee)
		return err
	})
	return dev, err
}

// FindDevice looks a device up by friendly name. Names are unique per
// bridge, so a linear scan over the bucket is enough.
func (s *BoltStore) FindDevice(friendlyName string) (*Device, error) {
	devices, err := s.ListDevices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.FriendlyName == friendlyName {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device %q: %w", friendlyName, ErrNotFound)
}

// DeleteDevice removes the device and its cached state.
func (s *BoltStore) DeleteDevice(ieee string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketDevices, bucketState} {
			b, err := bucket(tx, name)
			if err != nil {
				return err
			}
			if err := b.Delete([]byte(ieee)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) ListDevices() ([]*Device, error) {
	var devices []*Device
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDevices)
		if b == nil {
			return nil // no bucket = no devices
		}
		devices = make([]*Device, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var dev Device
			if err := json.Unmarshal(v, &dev); err != nil {
				return err
			}
			devices = append(devices, &dev)
			return nil
		})
	})
	return devices, err
}

func (s *BoltStore) UpdateDevice(ieee string, fn func(dev *Device) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketDevices)
		if err != nil {
			return err
		}
		dev, err := getDevice(b, ieee)
		if err != nil {
			return err
		}
		if err := fn(dev); err != nil {
			return err
		}
		return putJSON(b, ieee, dev)
	})
}

func (s *BoltStore) GetState(ieee string) (map[string]any, error) {
	state := map[string]any{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketState)
		if err != nil {
			return err
		}
		if data := b.Get([]byte(ieee)); data != nil {
			return json.Unmarshal(data, &state)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *BoltStore) UpdateState(ieee string, fn func(state map[string]any) error) (map[string]any, error) {
	state := map[string]any{}
	err := s.db.Update(func(tx *bolt.Tx) error {
		devices, err := bucket(tx, bucketDevices)
		if err != nil {
			return err
		}
		if devices.Get([]byte(ieee)) == nil {
			return fmt.Errorf("device %s: %w", ieee, ErrNotFound)
		}
		b, err := bucket(tx, bucketState)
		if err != nil {
			return err
		}
		if data := b.Get([]byte(ieee)); data != nil {
			if err := json.Unmarshal(data, &state); err != nil {
				return fmt.Errorf("state %s: %w", ieee, err)
			}
		}
		if err := fn(state); err != nil {
			return err
		}
		return putJSON(b, ieee, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
