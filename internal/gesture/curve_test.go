package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyCurveEndpoints(t *testing.T) {
	kinds := []CurveKind{CurveLinear, CurveExponential, CurveLogarithmic, CurveSmooth}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			assert.Equal(t, 0.0, ApplyCurve(kind, 0))
			assert.Equal(t, 1.0, ApplyCurve(kind, 1))
		})
	}
}

func TestApplyCurveShapes(t *testing.T) {
	tests := []struct {
		name     string
		kind     CurveKind
		input    float64
		expected float64
	}{
		{"linear midpoint", CurveLinear, 0.5, 0.5},
		{"exponential midpoint", CurveExponential, 0.5, 0.25},
		{"logarithmic quarter", CurveLogarithmic, 0.25, 0.5},
		{"smooth midpoint", CurveSmooth, 0.5, 0.5},
		{"smooth quarter", CurveSmooth, 0.25, 0.15625},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ApplyCurve(tt.kind, tt.input), 1e-12)
		})
	}
}

func TestApplyCurveMonotonic(t *testing.T) {
	kinds := []CurveKind{CurveLinear, CurveExponential, CurveLogarithmic, CurveSmooth}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			prev := ApplyCurve(kind, 0)
			for i := 1; i <= 100; i++ {
				v := ApplyCurve(kind, float64(i)/100)
				assert.GreaterOrEqual(t, v, prev, "curve must not decrease")
				prev = v
			}
		})
	}
}

func TestApplyCurveClampsInput(t *testing.T) {
	assert.Equal(t, 0.0, ApplyCurve(CurveExponential, -0.5))
	assert.Equal(t, 1.0, ApplyCurve(CurveExponential, 1.5))
	assert.Equal(t, 0.0, ApplyCurve(CurveLinear, -100))
	assert.Equal(t, 1.0, ApplyCurve(CurveSmooth, 2))
}

func TestApplyCurveUnknownKindFallsBackToLinear(t *testing.T) {
	assert.Equal(t, 0.3, ApplyCurve(CurveKind("bogus"), 0.3))
}
