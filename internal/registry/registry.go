package registry

import (
	"sync"

	"github.com/hazardwatch/go-hazard-zones/internal/models"
)

// Registry is the client-side view of known hazard devices. It is written
// from two paths, bulk proximity-search refreshes and incremental push
// updates; every write goes through one mutex so a snapshot never observes
// a half-applied bulk replace.
type Registry struct {
	mu      sync.RWMutex
	devices map[int64]models.HazardDevice
}

func New() *Registry {
	return &Registry{
		devices: make(map[int64]models.HazardDevice),
	}
}

// Replace swaps the full registry content for the given search result.
// Devices absent from the new result are dropped.
func (r *Registry) Replace(devices []models.HazardDevice) {
	next := make(map[int64]models.HazardDevice, len(devices))
	for _, d := range devices {
		if !d.IsAlert {
			continue
		}
		next[d.ID] = d
	}

	r.mu.Lock()
	r.devices = next
	r.mu.Unlock()
}

// Apply merges a single push-driven update: upsert when the device is
// alerting, delete otherwise. Deleting an absent id is a no-op.
func (r *Registry) Apply(d models.HazardDevice) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !d.IsAlert {
		delete(r.devices, d.ID)
		return
	}
	r.devices[d.ID] = d
}

// Snapshot returns a copy of the current devices for evaluation.
func (r *Registry) Snapshot() []models.HazardDevice {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.HazardDevice, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
