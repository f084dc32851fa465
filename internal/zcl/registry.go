package zcl

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds all known ZCL cluster definitions.
type Registry struct {
	mu       sync.RWMutex
	clusters map[uint16]*ClusterDef
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		clusters: make(map[uint16]*ClusterDef),
		logger:   logger,
	}
}

// Register adds a cluster definition to the registry.
func (r *Registry) Register(c ClusterDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clusters[c.ID]; ok {
		existing.Merge(&c)
		r.logger.Debug("cluster merged", "id", fmt.Sprintf("0x%04X", c.ID), "name", existing.Name)
	} else {
		r.clusters[c.ID] = c.DeepCopy()
		r.logger.Debug("cluster registered", "id", fmt.Sprintf("0x%04X", c.ID), "name", c.Name)
	}
}

// Get returns a cluster definition by ID, or nil if not found.
// The returned value is a deep copy; callers may modify it safely.
func (r *Registry) Get(id uint16) *ClusterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.clusters[id]
	if c == nil {
		return nil
	}
	return c.DeepCopy()
}

// All returns all registered cluster definitions ordered by ID.
// Each entry is a deep copy; callers may modify them safely.
func (r *Registry) All() []ClusterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]ClusterDef, 0, len(r.clusters))
	for _, c := range r.clusters {
		result = append(result, *c.DeepCopy())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Command builds a named command of a registered cluster.
func (r *Registry) Command(clusterID uint16, name string, args map[string]interface{}) (Command, error) {
	r.mu.RLock()
	c := r.clusters[clusterID]
	r.mu.RUnlock()
	if c == nil {
		return Command{}, fmt.Errorf("%w: cluster 0x%04X not registered", ErrUnknownCommand, clusterID)
	}
	return NewCommand(c, name, args)
}

// DecodeAttributes resolves decoded records to attribute names. Records of
// unknown attributes are keyed by their hex ID.
func (r *Registry) DecodeAttributes(clusterID uint16, records []AttributeValue) map[string]interface{} {
	c := r.Get(clusterID)
	out := make(map[string]interface{}, len(records))
	for _, rec := range records {
		if rec.Status != ZCLStatusSuccess {
			continue
		}
		key := fmt.Sprintf("0x%04X", rec.ID)
		if c != nil {
			if def := c.FindAttribute(rec.ID); def != nil {
				key = def.Name
			}
		}
		out[key] = rec.Value
	}
	return out
}
