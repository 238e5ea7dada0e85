package gesture

import (
	"sync/atomic"
	"time"
)

// EngineConfig centralizes the tunable constants used across the gesture
// engine. Values are read on the per-frame path, so the active configuration
// is swapped atomically rather than locked.
type EngineConfig struct {
	// MinSensitivity and MaxSensitivity bound the per-mapping sensitivity
	// multiplier. Registration rejects values outside this range.
	MinSensitivity float64
	MaxSensitivity float64

	// MaxDeadZone bounds the per-mapping deadzone. Raw gesture parameters are
	// normalized, so a deadzone near 1.0 would suppress all movement.
	MaxDeadZone float64

	// MinGlobalSensitivity and MaxGlobalSensitivity bound the preset-level
	// sensitivity factor applied on top of each mapping's own sensitivity.
	MinGlobalSensitivity float64
	MaxGlobalSensitivity float64

	// ExpectedFrameInterval is the nominal spacing of gesture samples from
	// the hand-tracking collaborator (24-30 Hz typical). Used only for
	// latency accounting, never for gating.
	ExpectedFrameInterval time.Duration

	// FrameLatencyWarnThreshold triggers a warning log when a single frame
	// takes longer than this to process.
	FrameLatencyWarnThreshold time.Duration

	// MetricsUpdateInterval is the cadence of metrics events pushed to
	// subscribed clients.
	MetricsUpdateInterval time.Duration

	// EventSendTimeout bounds a single event write to a subscriber before the
	// subscriber is considered failed.
	EventSendTimeout time.Duration

	// MaxMappings caps the registry size. A frame iterates every enabled
	// mapping, so the cap keeps the per-frame path bounded.
	MaxMappings int

	// EventTimeFormat is the timestamp format used in outbound events.
	EventTimeFormat string
}

// DefaultEngineConfig returns the engine defaults
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MinSensitivity:            0.1,
		MaxSensitivity:            5.0,
		MaxDeadZone:               0.5,
		MinGlobalSensitivity:      0.1,
		MaxGlobalSensitivity:      2.0,
		ExpectedFrameInterval:     33 * time.Millisecond,
		FrameLatencyWarnThreshold: 10 * time.Millisecond,
		MetricsUpdateInterval:     time.Second,
		EventSendTimeout:          2 * time.Second,
		MaxMappings:               256,
		EventTimeFormat:           time.RFC3339Nano,
	}
}

// Validate checks configuration invariants before the config is installed
func (c *EngineConfig) Validate() error {
	if c.MinSensitivity <= 0 || c.MaxSensitivity <= c.MinSensitivity {
		return ErrInvalidConfiguration
	}
	if c.MaxDeadZone < 0 || c.MaxDeadZone > 1 {
		return ErrInvalidConfiguration
	}
	if c.MinGlobalSensitivity <= 0 || c.MaxGlobalSensitivity <= c.MinGlobalSensitivity {
		return ErrInvalidConfiguration
	}
	if c.MetricsUpdateInterval <= 0 || c.EventSendTimeout <= 0 {
		return ErrInvalidConfiguration
	}
	if c.MaxMappings <= 0 {
		return ErrInvalidConfiguration
	}
	return nil
}

var activeConfig atomic.Pointer[EngineConfig]

func init() {
	activeConfig.Store(DefaultEngineConfig())
}

// GetConfig returns the active engine configuration
func GetConfig() *EngineConfig {
	return activeConfig.Load()
}

// UpdateConfig validates and installs a new engine configuration
func UpdateConfig(config *EngineConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	activeConfig.Store(config)
	return nil
}
