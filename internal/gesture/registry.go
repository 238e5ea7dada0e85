package gesture

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nategarelik/ox-board-sub009/internal/logging"
)

// MappingRegistry owns the authoritative set of configured mappings. All
// mutation happens through explicit Register/Update/Unregister calls; the
// processing pipeline only ever takes read snapshots, so editors and the
// per-frame path never contend beyond the snapshot read.
type MappingRegistry struct {
	mutex    sync.RWMutex
	mappings map[MappingID]GestureMapping
	catalog  *TargetCatalog
	logger   zerolog.Logger

	// snapshot is rebuilt on every mutation so the per-frame path reads an
	// immutable, pre-sorted slice without holding the write lock
	snapshot []GestureMapping
}

// NewMappingRegistry creates a registry validating against the given target
// catalog
func NewMappingRegistry(catalog *TargetCatalog) *MappingRegistry {
	logger := logging.GetSubsystemLogger("gesture").With().Str("component", "mapping-registry").Logger()
	return &MappingRegistry{
		mappings: make(map[MappingID]GestureMapping),
		catalog:  catalog,
		logger:   logger,
	}
}

// Register validates and inserts a new mapping. A mapping arriving without an
// identity is assigned one. On success the mapping's UpdatedAt is set to now
// and the new identity is returned; on failure no state is mutated.
func (r *MappingRegistry) Register(mapping GestureMapping) (MappingID, error) {
	if mapping.ID == "" {
		mapping.ID = NewMappingID()
	}
	now := time.Now()
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = now
	}
	mapping.UpdatedAt = now

	if err := ValidateMapping(mapping, r.catalog); err != nil {
		return "", err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.mappings[mapping.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateMapping, mapping.ID)
	}
	if len(r.mappings) >= GetConfig().MaxMappings {
		return "", ErrRegistryFull
	}

	r.mappings[mapping.ID] = mapping.clone()
	r.rebuildSnapshotLocked()

	r.logger.Debug().
		Str("mapping_id", string(mapping.ID)).
		Str("gesture", string(mapping.Input.GestureKind)).
		Str("target", mapping.Target.Key()).
		Msg("mapping registered")
	return mapping.ID, nil
}

// Update applies a partial patch to an existing mapping. The merged result is
// validated before anything is stored; a failed update leaves the mapping
// untouched. A successful update bumps UpdatedAt.
func (r *MappingRegistry) Update(id MappingID, patch MappingPatch) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, exists := r.mappings[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrMappingNotFound, id)
	}

	merged := patch.apply(current)
	merged.ID = id // identity is stable across edits
	merged.CreatedAt = current.CreatedAt
	merged.UpdatedAt = time.Now()

	if err := ValidateMapping(merged, r.catalog); err != nil {
		return err
	}

	r.mappings[id] = merged
	r.rebuildSnapshotLocked()

	r.logger.Debug().Str("mapping_id", string(id)).Msg("mapping updated")
	return nil
}

// setCalibration installs or clears calibration data for a mapping. Used by
// the calibrator when a calibration session commits.
func (r *MappingRegistry) setCalibration(id MappingID, cal *CalibrationData) error {
	if err := ValidateCalibration(cal); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, exists := r.mappings[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrMappingNotFound, id)
	}
	if cal != nil {
		copied := *cal
		if cal.CenterPoint != nil {
			center := *cal.CenterPoint
			copied.CenterPoint = &center
		}
		current.Calibration = &copied
	} else {
		current.Calibration = nil
	}
	current.UpdatedAt = time.Now()
	r.mappings[id] = current
	r.rebuildSnapshotLocked()
	return nil
}

// Unregister removes a mapping. Removing an unknown identity is an error.
func (r *MappingRegistry) Unregister(id MappingID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.mappings[id]; !exists {
		return fmt.Errorf("%w: %s", ErrMappingNotFound, id)
	}
	delete(r.mappings, id)
	r.rebuildSnapshotLocked()

	r.logger.Debug().Str("mapping_id", string(id)).Msg("mapping unregistered")
	return nil
}

// Get returns a copy of the mapping with the given identity
func (r *MappingRegistry) Get(id MappingID) (GestureMapping, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	m, ok := r.mappings[id]
	if !ok {
		return GestureMapping{}, false
	}
	return m.clone(), true
}

// List returns copies of all mappings ordered by creation time
func (r *MappingRegistry) List() []GestureMapping {
	snapshot := r.Snapshot()
	copies := make([]GestureMapping, len(snapshot))
	for i, m := range snapshot {
		copies[i] = m.clone()
	}
	return copies
}

// GetByGroup returns copies of all mappings sharing an exclusive group
func (r *MappingRegistry) GetByGroup(group string) []GestureMapping {
	var result []GestureMapping
	for _, m := range r.Snapshot() {
		if m.Arbitration.ExclusiveGroup == group {
			result = append(result, m.clone())
		}
	}
	return result
}

// Count returns the number of registered mappings
func (r *MappingRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.mappings)
}

// Snapshot returns the current immutable mapping snapshot for the per-frame
// path. Callers must treat the returned slice and its contents as read-only.
func (r *MappingRegistry) Snapshot() []GestureMapping {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.snapshot
}

// ReplaceAll atomically swaps the whole mapping set, used when activating a
// preset. The incoming set is validated in full before anything is replaced.
func (r *MappingRegistry) ReplaceAll(mappings []GestureMapping) error {
	if len(mappings) > GetConfig().MaxMappings {
		return ErrRegistryFull
	}
	now := time.Now()
	incoming := make(map[MappingID]GestureMapping, len(mappings))
	for _, m := range mappings {
		if _, dup := incoming[m.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateMapping, m.ID)
		}
		if err := ValidateMapping(m, r.catalog); err != nil {
			return err
		}
		c := m.clone()
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		incoming[m.ID] = c
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.mappings = incoming
	r.rebuildSnapshotLocked()
	r.logger.Info().Int("mapping_count", len(incoming)).Msg("mapping set replaced")
	return nil
}

// rebuildSnapshotLocked regenerates the read snapshot. Caller must hold the
// write lock.
func (r *MappingRegistry) rebuildSnapshotLocked() {
	snapshot := make([]GestureMapping, 0, len(r.mappings))
	for _, m := range r.mappings {
		snapshot = append(snapshot, m)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].CreatedAt.Equal(snapshot[j].CreatedAt) {
			return snapshot[i].ID < snapshot[j].ID
		}
		return snapshot[i].CreatedAt.Before(snapshot[j].CreatedAt)
	})
	r.snapshot = snapshot
}
