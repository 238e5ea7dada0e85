package gesture

// GestureKind identifies a class of gesture signal the hand-tracking
// collaborator can produce
type GestureKind string

const (
	GestureTwoHandDistance GestureKind = "twoHandDistance"
	GesturePinch           GestureKind = "pinch"
	GesturePalmHeight      GestureKind = "palmHeight"
	GestureSpread          GestureKind = "spread"
	GestureSwipe           GestureKind = "swipe"
)

// HandRequirement describes how many tracked hands a gesture needs
type HandRequirement string

const (
	OneHand  HandRequirement = "one"
	TwoHands HandRequirement = "two"
)

// Handedness identifies which hand (or hands) produced a sample
type Handedness string

const (
	HandLeft  Handedness = "left"
	HandRight Handedness = "right"
	HandBoth  Handedness = "both"
	HandAny   Handedness = "any"
)

// GestureConstraint restricts which samples a gesture input accepts
type GestureConstraint struct {
	MinConfidence float64         `json:"minConfidence"`
	Hands         HandRequirement `json:"hands"`
	Handedness    Handedness      `json:"handedness"`
}

// GestureInput describes a class of producible gesture signal: its kind, the
// named scalar parameters it exposes, and the constraints samples must meet.
// The catalogue is static; it is never mutated at runtime.
type GestureInput struct {
	Kind       GestureKind       `json:"kind"`
	Parameters []string          `json:"parameters"`
	Constraint GestureConstraint `json:"constraint"`
}

// gestureCatalogue is the static set of gesture inputs the hand-tracking
// collaborator produces. Parameter values are normalized to [0,1] unless a
// mapping carries calibration data.
var gestureCatalogue = map[GestureKind]GestureInput{
	GestureTwoHandDistance: {
		Kind:       GestureTwoHandDistance,
		Parameters: []string{"distance", "x", "y"},
		Constraint: GestureConstraint{MinConfidence: 0.7, Hands: TwoHands, Handedness: HandBoth},
	},
	GesturePinch: {
		Kind:       GesturePinch,
		Parameters: []string{"strength", "x", "y"},
		Constraint: GestureConstraint{MinConfidence: 0.6, Hands: OneHand, Handedness: HandAny},
	},
	GesturePalmHeight: {
		Kind:       GesturePalmHeight,
		Parameters: []string{"height", "x", "y"},
		Constraint: GestureConstraint{MinConfidence: 0.5, Hands: OneHand, Handedness: HandAny},
	},
	GestureSpread: {
		Kind:       GestureSpread,
		Parameters: []string{"spread", "x", "y"},
		Constraint: GestureConstraint{MinConfidence: 0.6, Hands: OneHand, Handedness: HandAny},
	},
	GestureSwipe: {
		Kind:       GestureSwipe,
		Parameters: []string{"velocity", "x", "y"},
		Constraint: GestureConstraint{MinConfidence: 0.7, Hands: OneHand, Handedness: HandAny},
	},
}

// LookupGestureInput returns the catalogue entry for a gesture kind
func LookupGestureInput(kind GestureKind) (GestureInput, bool) {
	input, ok := gestureCatalogue[kind]
	return input, ok
}

// GestureInputs returns the full gesture input catalogue
func GestureInputs() []GestureInput {
	inputs := make([]GestureInput, 0, len(gestureCatalogue))
	for _, input := range gestureCatalogue {
		inputs = append(inputs, input)
	}
	return inputs
}

// acceptsHandedness reports whether a constraint accepts a sample's handedness
func (gc GestureConstraint) acceptsHandedness(h Handedness) bool {
	if gc.Handedness == HandAny || gc.Handedness == "" {
		return true
	}
	return gc.Handedness == h
}
