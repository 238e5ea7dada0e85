package gesture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nategarelik/ox-board-sub009/internal/logging"
)

// Calibration errors
var (
	ErrCalibrationBusy    = errors.New("another mapping is already calibrating")
	ErrNotCalibrating     = errors.New("no calibration session in progress")
	ErrInsufficientSample = errors.New("calibration needs at least two distinct samples")
	ErrNoSampleObserved   = errors.New("no raw sample observed yet")
)

// Calibrator runs per-mapping calibration sessions. At most one mapping
// calibrates at a time: idle -> calibrating(mappingID) -> idle. While a
// mapping calibrates, its normal dispatch is suspended; all other mappings
// process unaffected.
type Calibrator struct {
	mutex    sync.Mutex
	registry *MappingRegistry
	logger   zerolog.Logger

	active    bool
	mappingID MappingID
	minInput  float64
	maxInput  float64
	center    *float64
	lastRaw   float64
	observed  int
	distinct  bool // a second, different raw value has been seen
}

// NewCalibrator creates a calibrator committing results into the registry
func NewCalibrator(registry *MappingRegistry) *Calibrator {
	logger := logging.GetSubsystemLogger("gesture").With().Str("component", "calibrator").Logger()
	return &Calibrator{registry: registry, logger: logger}
}

// Start begins a calibration session for the given mapping. Any previous
// calibration data on the mapping is cleared immediately.
func (c *Calibrator) Start(id MappingID) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.active {
		return fmt.Errorf("%w: %s", ErrCalibrationBusy, c.mappingID)
	}
	if _, ok := c.registry.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrMappingNotFound, id)
	}
	if err := c.registry.setCalibration(id, nil); err != nil {
		return err
	}

	c.active = true
	c.mappingID = id
	c.observed = 0
	c.distinct = false
	c.center = nil

	c.logger.Info().Str("mapping_id", string(id)).Msg("calibration started")
	return nil
}

// Observe feeds one raw sample into the active session, widening the recorded
// input range. Called from the per-frame path; a no-op when idle.
func (c *Calibrator) Observe(id MappingID, raw float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.active || c.mappingID != id || !isFinite(raw) {
		return
	}
	if c.observed == 0 {
		c.minInput = raw
		c.maxInput = raw
	} else {
		if raw < c.minInput {
			c.minInput = raw
		}
		if raw > c.maxInput {
			c.maxInput = raw
		}
	}
	c.distinct = c.maxInput > c.minInput
	c.lastRaw = raw
	c.observed++
}

// SetCenter captures the most recently observed raw value as the bipolar
// center point of the session
func (c *Calibrator) SetCenter() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.active {
		return ErrNotCalibrating
	}
	if c.observed == 0 {
		return ErrNoSampleObserved
	}
	center := c.lastRaw
	c.center = &center
	c.logger.Debug().Float64("center", center).Msg("calibration center captured")
	return nil
}

// Finish ends the session. With at least two distinct observed values the
// recorded range is committed to the mapping; otherwise the mapping is left
// uncalibrated and ErrInsufficientSample is returned. Either way the
// calibrator returns to idle and normal dispatch resumes for the mapping.
func (c *Calibrator) Finish() (*CalibrationData, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.active {
		return nil, ErrNotCalibrating
	}

	id := c.mappingID
	c.active = false
	c.mappingID = ""

	if !c.distinct {
		calibrationSessionsTotal.WithLabelValues("insufficient").Inc()
		c.logger.Warn().
			Str("mapping_id", string(id)).
			Int("observed", c.observed).
			Msg("calibration discarded, insufficient samples")
		return nil, fmt.Errorf("%w: mapping %s", ErrInsufficientSample, id)
	}

	cal := &CalibrationData{MinInput: c.minInput, MaxInput: c.maxInput}
	if c.center != nil && *c.center > c.minInput && *c.center < c.maxInput {
		center := *c.center
		cal.CenterPoint = &center
	}
	if err := c.registry.setCalibration(id, cal); err != nil {
		return nil, err
	}
	calibrationSessionsTotal.WithLabelValues("committed").Inc()

	c.logger.Info().
		Str("mapping_id", string(id)).
		Float64("min_input", cal.MinInput).
		Float64("max_input", cal.MaxInput).
		Bool("has_center", cal.CenterPoint != nil).
		Msg("calibration committed")
	return cal, nil
}

// Cancel abandons the active session without committing anything
func (c *Calibrator) Cancel() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.active {
		return
	}
	calibrationSessionsTotal.WithLabelValues("cancelled").Inc()
	c.logger.Info().Str("mapping_id", string(c.mappingID)).Msg("calibration cancelled")
	c.active = false
	c.mappingID = ""
}

// Calibrating returns the mapping currently being calibrated, if any
func (c *Calibrator) Calibrating() (MappingID, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.mappingID, c.active
}
