package gesture

import (
	"errors"
	"fmt"
	"math"
)

// Validation errors
var (
	ErrInvalidMapping       = errors.New("invalid mapping")
	ErrUnknownGestureKind   = errors.New("unknown gesture kind")
	ErrUnknownParameter     = errors.New("gesture does not expose parameter")
	ErrUnknownTarget        = errors.New("target not present in catalog")
	ErrZeroWidthTarget      = errors.New("target range has zero width")
	ErrInvalidDeadZone      = errors.New("invalid deadzone")
	ErrInvalidSensitivity   = errors.New("sensitivity out of range")
	ErrInvalidSmoothing     = errors.New("smoothing factor out of range")
	ErrInvalidCurve         = errors.New("unknown curve kind")
	ErrInvalidZone          = errors.New("invalid activation zone")
	ErrInvalidCalibration   = errors.New("invalid calibration data")
	ErrDuplicateMapping     = errors.New("duplicate mapping identity")
	ErrDuplicateTarget      = errors.New("duplicate target")
	ErrMappingNotFound      = errors.New("mapping not found")
	ErrRegistryFull         = errors.New("mapping registry is full")
	ErrInvalidConfiguration = errors.New("invalid engine configuration")
	ErrInvalidGlobals       = errors.New("invalid global settings")
)

// ValidateTarget validates an audio control target descriptor
func ValidateTarget(target AudioControlTarget) error {
	switch target.Kind {
	case TargetCrossfader, TargetChannel, TargetMaster, TargetEffect:
	default:
		return fmt.Errorf("%w: unknown target kind %q", ErrInvalidMapping, target.Kind)
	}
	if target.Parameter == "" {
		return fmt.Errorf("%w: empty parameter name", ErrInvalidMapping)
	}
	if !isFinite(target.MinValue) || !isFinite(target.MaxValue) {
		return fmt.Errorf("%w: non-finite range", ErrInvalidMapping)
	}
	if target.MinValue >= target.MaxValue {
		return ErrZeroWidthTarget
	}
	if target.Default < target.MinValue || target.Default > target.MaxValue {
		return fmt.Errorf("%w: default outside range", ErrInvalidMapping)
	}
	return nil
}

// ValidateZone validates an activation zone descriptor
func ValidateZone(zone *Zone) error {
	if zone == nil {
		return nil
	}
	switch zone.Kind {
	case ZoneRectangle:
		if zone.Width <= 0 || zone.Height <= 0 {
			return fmt.Errorf("%w: rectangle with non-positive extent", ErrInvalidZone)
		}
	case ZoneCircle:
		if zone.Radius <= 0 {
			return fmt.Errorf("%w: circle with non-positive radius", ErrInvalidZone)
		}
	case ZonePolygon:
		if len(zone.Vertices) < 3 {
			return fmt.Errorf("%w: polygon with fewer than 3 vertices", ErrInvalidZone)
		}
	default:
		return fmt.Errorf("%w: unknown zone kind %q", ErrInvalidZone, zone.Kind)
	}
	return nil
}

// ValidateCalibration validates calibration data attached to a mapping
func ValidateCalibration(cal *CalibrationData) error {
	if cal == nil {
		return nil
	}
	if !isFinite(cal.MinInput) || !isFinite(cal.MaxInput) {
		return fmt.Errorf("%w: non-finite bounds", ErrInvalidCalibration)
	}
	if cal.MinInput >= cal.MaxInput {
		return fmt.Errorf("%w: minInput >= maxInput", ErrInvalidCalibration)
	}
	if cal.CenterPoint != nil {
		center := *cal.CenterPoint
		if !isFinite(center) || center <= cal.MinInput || center >= cal.MaxInput {
			return fmt.Errorf("%w: center outside (minInput, maxInput)", ErrInvalidCalibration)
		}
	}
	return nil
}

// ValidateMapping validates a full mapping against the engine configuration
// and the target catalog. The catalog may be nil when validating documents
// detached from a live engine (schema-level checks only).
func ValidateMapping(m GestureMapping, catalog *TargetCatalog) error {
	if m.ID == "" {
		return fmt.Errorf("%w: empty identity", ErrInvalidMapping)
	}

	input, ok := LookupGestureInput(m.Input.GestureKind)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownGestureKind, m.Input.GestureKind)
	}
	if !containsString(input.Parameters, m.Input.Parameter) {
		return fmt.Errorf("%w: %q has no parameter %q",
			ErrUnknownParameter, m.Input.GestureKind, m.Input.Parameter)
	}

	config := GetConfig()
	if m.Input.DeadZone < 0 || m.Input.DeadZone > config.MaxDeadZone {
		return fmt.Errorf("%w: %v", ErrInvalidDeadZone, m.Input.DeadZone)
	}
	if m.Input.Sensitivity < config.MinSensitivity || m.Input.Sensitivity > config.MaxSensitivity {
		return fmt.Errorf("%w: %v not in [%v, %v]",
			ErrInvalidSensitivity, m.Input.Sensitivity, config.MinSensitivity, config.MaxSensitivity)
	}
	if m.Interp.Smoothing < 0 || m.Interp.Smoothing > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSmoothing, m.Interp.Smoothing)
	}
	switch m.Interp.Curve {
	case CurveLinear, CurveExponential, CurveLogarithmic, CurveSmooth:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCurve, m.Interp.Curve)
	}

	if err := ValidateTarget(m.Target); err != nil {
		return err
	}
	if catalog != nil {
		if _, ok := catalog.Lookup(m.Target); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTarget, m.Target.Key())
		}
	}

	if err := ValidateZone(m.Zone); err != nil {
		return err
	}
	return ValidateCalibration(m.Calibration)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
