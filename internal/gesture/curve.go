package gesture

import "math"

// CurveKind identifies a response curve applied to a normalized control value
type CurveKind string

const (
	CurveLinear      CurveKind = "linear"
	CurveExponential CurveKind = "exponential"
	CurveLogarithmic CurveKind = "logarithmic"
	CurveSmooth      CurveKind = "smooth"
)

// ApplyCurve maps a normalized input t in [0,1] through the given response
// curve. All curves are monotonic on [0,1] and satisfy curve(0)=0, curve(1)=1.
// Inputs outside [0,1] are clamped before the curve is applied.
func ApplyCurve(kind CurveKind, t float64) float64 {
	t = clamp01(t)
	switch kind {
	case CurveExponential:
		return t * t
	case CurveLogarithmic:
		return math.Sqrt(t)
	case CurveSmooth:
		// Hermite smoothstep
		return t * t * (3 - 2*t)
	default:
		return t
	}
}

// clamp01 clamps v to the [0,1] interval
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clampRange clamps v to the [min,max] interval
func clampRange(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
