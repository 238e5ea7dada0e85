package gesture

import (
	"time"

	"github.com/google/uuid"
)

// MappingID is the stable identity of a gesture mapping. It survives edits;
// only removal retires it.
type MappingID string

// NewMappingID generates a fresh mapping identity
func NewMappingID() MappingID {
	return MappingID(uuid.NewString())
}

// InputDescriptor selects the gesture signal a mapping consumes and how raw
// values are conditioned before normalization
type InputDescriptor struct {
	GestureKind GestureKind `json:"gestureKind"`
	Parameter   string      `json:"parameter"`
	DeadZone    float64     `json:"deadZone"`
	Sensitivity float64     `json:"sensitivity"`
}

// InterpolationDescriptor shapes the normalized value before it is scaled to
// the target range
type InterpolationDescriptor struct {
	Curve     CurveKind `json:"curve"`
	Smoothing float64   `json:"smoothing"`
	Invert    bool      `json:"invert"`
}

// ArbitrationDescriptor controls how the conflict resolver treats a mapping.
// Mappings sharing a non-empty ExclusiveGroup may not simultaneously drive
// independent outputs.
type ArbitrationDescriptor struct {
	Priority       int    `json:"priority"`
	ExclusiveGroup string `json:"exclusiveGroup,omitempty"`
}

// CalibrationData is the recorded input range (and optional center) used to
// normalize raw gesture values before the curve is applied
type CalibrationData struct {
	MinInput    float64  `json:"minInput"`
	MaxInput    float64  `json:"maxInput"`
	CenterPoint *float64 `json:"centerPoint,omitempty"`
}

// GestureMapping binds a gesture input to an audio control target. It is the
// central entity of the engine; the registry owns the authoritative copy.
type GestureMapping struct {
	ID          MappingID               `json:"id"`
	Name        string                  `json:"name,omitempty"`
	Enabled     bool                    `json:"enabled"`
	Input       InputDescriptor         `json:"input"`
	Target      AudioControlTarget      `json:"target"`
	Interp      InterpolationDescriptor `json:"interpolation"`
	Arbitration ArbitrationDescriptor   `json:"arbitration"`
	Zone        *Zone                   `json:"zone,omitempty"`
	Calibration *CalibrationData        `json:"calibration,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// clone returns a deep copy of the mapping so registry-owned state is never
// aliased by callers
func (m GestureMapping) clone() GestureMapping {
	c := m
	if m.Zone != nil {
		zone := *m.Zone
		if m.Zone.Vertices != nil {
			zone.Vertices = append([]Point(nil), m.Zone.Vertices...)
		}
		c.Zone = &zone
	}
	if m.Calibration != nil {
		cal := *m.Calibration
		if m.Calibration.CenterPoint != nil {
			center := *m.Calibration.CenterPoint
			cal.CenterPoint = &center
		}
		c.Calibration = &cal
	}
	if m.Target.Channel != nil {
		channel := *m.Target.Channel
		c.Target.Channel = &channel
	}
	return c
}

// MappingPatch carries partial updates for an existing mapping. Nil fields
// leave the current value unchanged; the merged result is validated as a whole
// before any state is mutated.
type MappingPatch struct {
	Name        *string                  `json:"name,omitempty"`
	Enabled     *bool                    `json:"enabled,omitempty"`
	Input       *InputDescriptor         `json:"input,omitempty"`
	Target      *AudioControlTarget      `json:"target,omitempty"`
	Interp      *InterpolationDescriptor `json:"interpolation,omitempty"`
	Arbitration *ArbitrationDescriptor   `json:"arbitration,omitempty"`
	Zone        *Zone                    `json:"zone,omitempty"`
	ClearZone   bool                     `json:"clearZone,omitempty"`
	Calibration *CalibrationData         `json:"calibration,omitempty"`
	ClearCal    bool                     `json:"clearCalibration,omitempty"`
}

// apply merges the patch into a copy of the mapping and returns it
func (p MappingPatch) apply(m GestureMapping) GestureMapping {
	merged := m.clone()
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Enabled != nil {
		merged.Enabled = *p.Enabled
	}
	if p.Input != nil {
		merged.Input = *p.Input
	}
	if p.Target != nil {
		merged.Target = *p.Target
	}
	if p.Interp != nil {
		merged.Interp = *p.Interp
	}
	if p.Arbitration != nil {
		merged.Arbitration = *p.Arbitration
	}
	if p.ClearZone {
		merged.Zone = nil
	} else if p.Zone != nil {
		zone := *p.Zone
		merged.Zone = &zone
	}
	if p.ClearCal {
		merged.Calibration = nil
	} else if p.Calibration != nil {
		cal := *p.Calibration
		merged.Calibration = &cal
	}
	return merged
}
