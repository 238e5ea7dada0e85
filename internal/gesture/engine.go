package gesture

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/nategarelik/ox-board-sub009/internal/logging"
)

// ControlUpdate is one parameter change produced by the pipeline and handed
// to the audio collaborator. Dispatch is fire-and-forget; the collaborator
// clamps defensively on its side.
type ControlUpdate struct {
	Target    AudioControlTarget `json:"target"`
	Value     float64            `json:"value"`
	MappingID MappingID          `json:"mappingId,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// ControlDispatcher receives control updates from the pipeline. Dispatch must
// not block; the pipeline does not wait for acknowledgement.
type ControlDispatcher interface {
	Dispatch(update ControlUpdate)
}

// EngineMetrics is a point-in-time copy of the engine's frame counters, safe
// to hand to callers
type EngineMetrics struct {
	SamplesProcessed  int64 `json:"samples_processed"`
	SamplesRejected   int64 `json:"samples_rejected"`
	MappingsHeld      int64 `json:"mappings_held"`
	UpdatesDispatched int64 `json:"updates_dispatched"`
	ConflictsDetected int64 `json:"conflicts_detected"`

	LastSampleTime      time.Time     `json:"last_sample_time"`
	AverageFrameLatency time.Duration `json:"average_frame_latency"`
}

// engineCounters is the live counter storage. Every field is accessed
// atomically: the frame path writes while metrics readers (health endpoint,
// state endpoint, periodic broadcaster) read concurrently. Timestamps and
// durations are kept as int64 nanoseconds for the same reason.
// int64 fields stay 8-byte aligned on 32-bit ARM by being first in Engine.
type engineCounters struct {
	samplesProcessed  int64
	samplesRejected   int64
	mappingsHeld      int64
	updatesDispatched int64
	conflictsDetected int64
	lastSampleTime    int64 // unix nanoseconds, 0 until the first sample
	avgFrameLatency   int64 // nanoseconds
}

// mappingRuntime is the per-mapping mutable state the pipeline keeps between
// frames: the last accepted raw value and the previous smoothed output. Its
// lifetime equals the mapping's lifetime; disabling a mapping discards it so
// re-enabling does not replay stale history.
type mappingRuntime struct {
	lastRaw     float64
	hasRaw      bool
	prevOutput  float64
	hasOutput   bool
	lastFinal   float64
	active      bool
	activatedAt time.Time
}

// Engine is the gesture-to-control mapping engine. One instance is owned by
// the application's composition root; there is no ambient global engine.
//
// ProcessSample is driven by a single producer (the hand-tracking ingest
// loop). Registry edits and preset activation may happen concurrently from
// API handlers; they synchronize with the frame path through the registry
// snapshot and the frame mutex.
type Engine struct {
	counters engineCounters

	registry   *MappingRegistry
	catalog    *TargetCatalog
	calibrator *Calibrator
	dispatcher ControlDispatcher
	global     atomic.Pointer[GlobalSettings]
	logger     zerolog.Logger

	// frameMutex serializes the per-frame path against runtime-state resets
	// (preset activation, stop). Uncontended in steady state.
	frameMutex sync.Mutex
	runtime    map[MappingID]*mappingRuntime

	stateMutex     sync.RWMutex
	activeIDs      []MappingID
	conflicts      []GestureConflict
	activePresetID string

	events  *EngineEventBroadcaster
	running int32
}

// NewEngine creates an engine validating against the given target catalog and
// dispatching to the given collaborator
func NewEngine(catalog *TargetCatalog, dispatcher ControlDispatcher) *Engine {
	logger := logging.GetSubsystemLogger("gesture").With().Str("component", "engine").Logger()
	registry := NewMappingRegistry(catalog)
	return &Engine{
		registry:   registry,
		catalog:    catalog,
		calibrator: NewCalibrator(registry),
		dispatcher: dispatcher,
		logger:     logger,
		runtime:    make(map[MappingID]*mappingRuntime),
	}
}

// Registry returns the engine's mapping registry
func (e *Engine) Registry() *MappingRegistry {
	return e.registry
}

// Catalog returns the audio target catalog the engine validates against
func (e *Engine) Catalog() *TargetCatalog {
	return e.catalog
}

// Calibrator returns the engine's calibrator
func (e *Engine) Calibrator() *Calibrator {
	return e.calibrator
}

// SetEventBroadcaster attaches an event broadcaster for conflict and metrics
// events. Must be called before Start.
func (e *Engine) SetEventBroadcaster(events *EngineEventBroadcaster) {
	e.events = events
}

// Start begins frame processing. Samples arriving while stopped are dropped.
func (e *Engine) Start() error {
	if !atomic.CompareAndSwapInt32(&e.running, 0, 1) {
		return fmt.Errorf("gesture engine is already running")
	}
	if e.global.Load() == nil {
		global := DefaultGlobalSettings()
		e.global.Store(&global)
	}
	e.logger.Info().
		Int("mapping_count", e.registry.Count()).
		Str("conflict_resolution", string(e.GlobalSettings().ConflictResolution)).
		Msg("gesture engine started")
	return nil
}

// Stop halts frame processing and discards all per-mapping runtime state
func (e *Engine) Stop() {
	if !atomic.CompareAndSwapInt32(&e.running, 1, 0) {
		return
	}
	e.frameMutex.Lock()
	e.runtime = make(map[MappingID]*mappingRuntime)
	e.frameMutex.Unlock()

	e.calibrator.Cancel()
	e.logger.Info().Msg("gesture engine stopped")
}

// IsRunning reports whether the engine is processing frames
func (e *Engine) IsRunning() bool {
	return atomic.LoadInt32(&e.running) == 1
}

// GlobalSettings returns the active preset-level settings
func (e *Engine) GlobalSettings() GlobalSettings {
	if gs := e.global.Load(); gs != nil {
		return *gs
	}
	return DefaultGlobalSettings()
}

// UpdateGlobalSettings validates and installs new preset-level settings
func (e *Engine) UpdateGlobalSettings(settings GlobalSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	e.global.Store(&settings)
	e.logger.Info().
		Float64("global_sensitivity", settings.GlobalSensitivity).
		Float64("global_smoothing", settings.GlobalSmoothing).
		Str("conflict_resolution", string(settings.ConflictResolution)).
		Msg("global settings updated")
	return nil
}

// ApplyPreset atomically replaces the mapping set and global settings with
// the preset's contents and resets all per-mapping runtime state. Never
// called from the frame path.
func (e *Engine) ApplyPreset(preset MappingPreset) error {
	if err := preset.Validate(e.catalog); err != nil {
		return err
	}
	if err := e.registry.ReplaceAll(preset.Mappings); err != nil {
		return err
	}
	global := preset.Global
	e.global.Store(&global)

	e.frameMutex.Lock()
	e.runtime = make(map[MappingID]*mappingRuntime)
	e.frameMutex.Unlock()

	e.stateMutex.Lock()
	e.activePresetID = preset.ID
	e.activeIDs = nil
	e.conflicts = nil
	e.stateMutex.Unlock()

	e.logger.Info().
		Str("preset_id", preset.ID).
		Str("preset_name", preset.Name).
		Int("mapping_count", len(preset.Mappings)).
		Msg("preset applied")

	if e.events != nil {
		e.events.BroadcastPresetChanged(preset.ID, preset.Name, len(preset.Mappings))
	}
	return nil
}

// ActivePresetID returns the identity of the most recently applied preset,
// empty when mappings were assembled ad hoc
func (e *Engine) ActivePresetID() string {
	e.stateMutex.RLock()
	defer e.stateMutex.RUnlock()
	return e.activePresetID
}

// ActiveMappings returns the identities of mappings that produced a value in
// the most recent frame
func (e *Engine) ActiveMappings() []MappingID {
	e.stateMutex.RLock()
	defer e.stateMutex.RUnlock()
	return append([]MappingID(nil), e.activeIDs...)
}

// Conflicts returns the arbitration records of the most recent frame
func (e *Engine) Conflicts() []GestureConflict {
	e.stateMutex.RLock()
	defer e.stateMutex.RUnlock()
	return append([]GestureConflict(nil), e.conflicts...)
}

// GetMetrics returns a copy of the engine's frame counters
func (e *Engine) GetMetrics() EngineMetrics {
	metrics := EngineMetrics{
		SamplesProcessed:    atomic.LoadInt64(&e.counters.samplesProcessed),
		SamplesRejected:     atomic.LoadInt64(&e.counters.samplesRejected),
		MappingsHeld:        atomic.LoadInt64(&e.counters.mappingsHeld),
		UpdatesDispatched:   atomic.LoadInt64(&e.counters.updatesDispatched),
		ConflictsDetected:   atomic.LoadInt64(&e.counters.conflictsDetected),
		AverageFrameLatency: time.Duration(atomic.LoadInt64(&e.counters.avgFrameLatency)),
	}
	if ns := atomic.LoadInt64(&e.counters.lastSampleTime); ns != 0 {
		metrics.LastSampleTime = time.Unix(0, ns)
	}
	return metrics
}

// updateFrameLatency folds one frame's processing time into the EMA average
func (e *Engine) updateFrameLatency(latency time.Duration) {
	current := atomic.LoadInt64(&e.counters.avgFrameLatency)
	if current == 0 {
		atomic.StoreInt64(&e.counters.avgFrameLatency, int64(latency))
		return
	}
	// Weighted average: 90% old, 10% new
	atomic.StoreInt64(&e.counters.avgFrameLatency, int64(float64(current)*0.9+float64(latency)*0.1))
}
