package gesture

import (
	"math"
	"sync/atomic"
	"time"
)

// GestureSample is one frame's extracted scalar parameters for a tracked
// hand (or hand pair), as produced by the hand-tracking collaborator
type GestureSample struct {
	Kind       GestureKind        `json:"kind"`
	Parameters map[string]float64 `json:"parameters"`
	Confidence float64            `json:"confidence"`
	Handedness Handedness         `json:"handedness"`
	Timestamp  time.Time          `json:"timestamp"`
}

// evalOutcome classifies one mapping's evaluation for a frame
type evalOutcome int

const (
	evalAbsent evalOutcome = iota // gated out, no output this frame
	evalHeld                      // deadzone hold, previous output stays in effect
	evalProduced
)

// ProcessSample runs the per-frame pipeline for one gesture sample: for every
// candidate mapping it applies the confidence gate, zone gate, deadzone,
// calibration normalization, sensitivity, curve, inversion, smoothing and
// target scaling, then arbitrates exclusive groups and dispatches the
// surviving control updates.
//
// The frame path never blocks and never lets a single malformed mapping or
// parameter abort the frame; the worst case for any mapping is producing no
// output. Samples arriving while the engine is stopped are dropped.
func (e *Engine) ProcessSample(sample GestureSample) {
	if !e.IsRunning() {
		return
	}

	start := time.Now()
	if sample.Timestamp.IsZero() {
		sample.Timestamp = start
	}

	if math.IsNaN(sample.Confidence) || sample.Confidence < 0 || sample.Confidence > 1 {
		atomic.AddInt64(&e.counters.samplesRejected, 1)
		samplesRejectedTotal.WithLabelValues("invalid_confidence").Inc()
		return
	}
	input, ok := LookupGestureInput(sample.Kind)
	if !ok {
		atomic.AddInt64(&e.counters.samplesRejected, 1)
		samplesRejectedTotal.WithLabelValues("unknown_gesture").Inc()
		return
	}

	global := e.GlobalSettings()
	snapshot := e.registry.Snapshot()
	calibratingID, calibrating := e.calibrator.Calibrating()

	// Sample-level gates shared by every mapping of this gesture kind. A
	// failing gate means "absent", not zero: previously dispatched values
	// stay in effect at their targets.
	gated := sample.Confidence < input.Constraint.MinConfidence ||
		!input.Constraint.acceptsHandedness(sample.Handedness)

	e.frameMutex.Lock()
	defer e.frameMutex.Unlock()

	enabled := make(map[MappingID]struct{}, len(snapshot))
	var ungrouped []activeResult
	var grouped map[string][]activeResult

	for i := range snapshot {
		m := &snapshot[i]
		if !m.Enabled {
			continue
		}
		enabled[m.ID] = struct{}{}

		if m.Input.GestureKind != sample.Kind {
			continue
		}

		// A calibrating mapping consumes raw samples but never dispatches
		if calibrating && m.ID == calibratingID {
			if raw, ok := sample.Parameters[m.Input.Parameter]; ok {
				e.calibrator.Observe(m.ID, raw)
			}
			continue
		}

		rt := e.runtime[m.ID]
		if rt == nil {
			rt = &mappingRuntime{}
			e.runtime[m.ID] = rt
		}

		if gated {
			rt.active = false
			continue
		}

		value, outcome := e.evaluateMapping(m, rt, &sample, global)
		switch outcome {
		case evalHeld:
			atomic.AddInt64(&e.counters.mappingsHeld, 1)
			mappingsHeldTotal.Inc()
			rt.active = false
		case evalAbsent:
			rt.active = false
		case evalProduced:
			if !rt.active {
				rt.active = true
				rt.activatedAt = sample.Timestamp
			}
			result := activeResult{mapping: m, value: value, activatedAt: rt.activatedAt}
			if group := m.Arbitration.ExclusiveGroup; group != "" {
				if grouped == nil {
					grouped = make(map[string][]activeResult)
				}
				grouped[group] = append(grouped[group], result)
			} else {
				ungrouped = append(ungrouped, result)
			}
		}
	}

	// Runtime state lives exactly as long as its mapping stays registered
	// and enabled; dropping it here is what clears smoothing history when a
	// mapping is disabled.
	for id := range e.runtime {
		if _, ok := enabled[id]; !ok {
			delete(e.runtime, id)
		}
	}

	updates := make([]ControlUpdate, 0, len(ungrouped)+len(grouped))
	activeIDs := make([]MappingID, 0, len(ungrouped)+len(grouped))
	for _, r := range ungrouped {
		updates = append(updates, newControlUpdate(r, sample.Timestamp))
		activeIDs = append(activeIDs, r.mapping.ID)
	}

	var frameConflicts []GestureConflict
	for group, candidates := range grouped {
		resolved, conflict, err := resolveGroup(group, global.ConflictResolution, candidates, sample.Timestamp)
		if err != nil {
			// Mixed targets under average mode: not fatal, candidates were
			// dispatched independently
			e.logger.Debug().
				Str("group", group).
				Int("candidates", len(candidates)).
				Msg("average resolution fell back to independent dispatch")
		}
		updates = append(updates, resolved...)
		frameConflicts = append(frameConflicts, conflict)
		for _, c := range candidates {
			activeIDs = append(activeIDs, c.mapping.ID)
		}
		if conflict.Contended {
			atomic.AddInt64(&e.counters.conflictsDetected, 1)
			conflictsResolvedTotal.WithLabelValues(string(global.ConflictResolution)).Inc()
			if e.events != nil {
				e.events.BroadcastConflict(conflict)
			}
		}
	}

	e.dispatch(updates)

	e.stateMutex.Lock()
	e.activeIDs = activeIDs
	e.conflicts = frameConflicts
	e.stateMutex.Unlock()

	atomic.AddInt64(&e.counters.samplesProcessed, 1)
	atomic.StoreInt64(&e.counters.lastSampleTime, sample.Timestamp.UnixNano())
	samplesProcessedTotal.Inc()
	activeMappingsGauge.Set(float64(len(activeIDs)))
	registeredMappingsGauge.Set(float64(len(snapshot)))

	elapsed := time.Since(start)
	e.updateFrameLatency(elapsed)
	frameProcessingSeconds.Observe(elapsed.Seconds())
	if elapsed > GetConfig().FrameLatencyWarnThreshold {
		e.logger.Warn().
			Dur("frame_latency", elapsed).
			Int("mapping_count", len(snapshot)).
			Msg("slow gesture frame")
	}
}

// evaluateMapping runs steps 2-9 of the per-frame pipeline for one mapping.
// The confidence gate has already been applied at the sample level.
func (e *Engine) evaluateMapping(m *GestureMapping, rt *mappingRuntime, sample *GestureSample, global GlobalSettings) (float64, evalOutcome) {
	raw, ok := sample.Parameters[m.Input.Parameter]
	if !ok || !isFinite(raw) {
		return 0, evalAbsent
	}

	// Zone gate: the mapping only produces output while the tracked point is
	// inside its activation zone
	if m.Zone != nil {
		x, okX := sample.Parameters["x"]
		y, okY := sample.Parameters["y"]
		if !okX || !okY || !m.Zone.Contains(Point{X: x, Y: y}) {
			return 0, evalAbsent
		}
	}

	// Deadzone: small jitter around the last accepted raw value holds the
	// previous output. The reference raw is only advanced on acceptance so
	// slow drift below the threshold cannot creep the output.
	if rt.hasRaw && math.Abs(raw-rt.lastRaw) < m.Input.DeadZone {
		return 0, evalHeld
	}
	rt.lastRaw = raw
	rt.hasRaw = true

	// Calibration normalize: remap the recorded input range to [0,1],
	// clamped, never extrapolated. Without calibration the gesture parameter
	// is assumed to already be normalized.
	var norm float64
	if m.Calibration != nil {
		norm = normalizeCalibrated(raw, m.Calibration)
	} else {
		norm = clamp01(raw)
	}

	// Sensitivity scales the excursion from center
	config := GetConfig()
	sensitivity := clampRange(
		m.Input.Sensitivity*global.GlobalSensitivity,
		config.MinSensitivity, config.MaxSensitivity,
	)
	value := clamp01(0.5 + (norm-0.5)*sensitivity)

	value = ApplyCurve(m.Interp.Curve, value)
	if m.Interp.Invert {
		value = 1 - value
	}

	// Exponential moving average; factor 0 is fully responsive, 1 freezes
	// the output after the first sample
	smoothing := clamp01(m.Interp.Smoothing * global.GlobalSmoothing)
	if rt.hasOutput {
		value = smoothing*rt.prevOutput + (1-smoothing)*value
	}
	rt.prevOutput = value
	rt.hasOutput = true

	final := m.Target.MinValue + value*(m.Target.MaxValue-m.Target.MinValue)
	rt.lastFinal = final
	return final, evalProduced
}

// normalizeCalibrated remaps raw from the calibrated input range to [0,1].
// With a center point the lower and upper halves map to [0,0.5] and [0.5,1]
// so bipolar controls sit at rest in the middle.
func normalizeCalibrated(raw float64, cal *CalibrationData) float64 {
	if cal.CenterPoint != nil {
		center := *cal.CenterPoint
		if raw <= center {
			if center == cal.MinInput {
				return 0.5
			}
			return clamp01((raw-cal.MinInput)/(center-cal.MinInput)) * 0.5
		}
		if cal.MaxInput == center {
			return 0.5
		}
		return 0.5 + clamp01((raw-center)/(cal.MaxInput-center))*0.5
	}
	if cal.MaxInput == cal.MinInput {
		return 0.5
	}
	return clamp01((raw - cal.MinInput) / (cal.MaxInput - cal.MinInput))
}

// dispatch forwards the frame's control updates to the audio collaborator.
// Within a frame the last update for a given target wins, matching the audio
// parameter model of a simple settable value.
func (e *Engine) dispatch(updates []ControlUpdate) {
	if e.dispatcher == nil || len(updates) == 0 {
		return
	}

	byTarget := make(map[string]int, len(updates))
	final := updates[:0]
	for _, update := range updates {
		key := update.Target.Key()
		if i, seen := byTarget[key]; seen {
			final[i] = update
			continue
		}
		byTarget[key] = len(final)
		final = append(final, update)
	}

	for _, update := range final {
		e.dispatcher.Dispatch(update)
		atomic.AddInt64(&e.counters.updatesDispatched, 1)
		updatesDispatchedTotal.Inc()
	}
}
