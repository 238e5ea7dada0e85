package gesture

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// newPresetID generates a fresh preset identity
func newPresetID() string {
	return uuid.NewString()
}

// ConflictResolutionMode selects how simultaneously active mappings in the
// same exclusive group are arbitrated. The mode is a preset-level setting.
type ConflictResolutionMode string

const (
	ResolvePriority ConflictResolutionMode = "priority"
	ResolveAverage  ConflictResolutionMode = "average"
	ResolveLatest   ConflictResolutionMode = "latest"
)

// GlobalSettings are preset-wide factors layered on top of each mapping's own
// descriptors. Sensitivity multiplies per-mapping sensitivity; smoothing
// multiplies per-mapping smoothing.
type GlobalSettings struct {
	GlobalSensitivity  float64                `json:"globalSensitivity"`
	GlobalSmoothing    float64                `json:"globalSmoothing"`
	ConflictResolution ConflictResolutionMode `json:"conflictResolution"`
}

// NewGlobalSettings validates and constructs global settings atomically.
// A partially valid settings value is never produced.
func NewGlobalSettings(sensitivity, smoothing float64, resolution ConflictResolutionMode) (GlobalSettings, error) {
	config := GetConfig()
	if sensitivity < config.MinGlobalSensitivity || sensitivity > config.MaxGlobalSensitivity {
		return GlobalSettings{}, fmt.Errorf("%w: globalSensitivity %v", ErrInvalidGlobals, sensitivity)
	}
	if smoothing < 0 || smoothing > 1 {
		return GlobalSettings{}, fmt.Errorf("%w: globalSmoothing %v", ErrInvalidGlobals, smoothing)
	}
	switch resolution {
	case ResolvePriority, ResolveAverage, ResolveLatest:
	default:
		return GlobalSettings{}, fmt.Errorf("%w: conflictResolution %q", ErrInvalidGlobals, resolution)
	}
	return GlobalSettings{
		GlobalSensitivity:  sensitivity,
		GlobalSmoothing:    smoothing,
		ConflictResolution: resolution,
	}, nil
}

// DefaultGlobalSettings returns neutral global settings with priority
// arbitration
func DefaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		GlobalSensitivity:  1.0,
		GlobalSmoothing:    1.0,
		ConflictResolution: ResolvePriority,
	}
}

// Validate checks the settings against the engine configuration
func (gs GlobalSettings) Validate() error {
	_, err := NewGlobalSettings(gs.GlobalSensitivity, gs.GlobalSmoothing, gs.ConflictResolution)
	return err
}

// MappingPreset is a named, versioned bundle of mappings plus global
// settings. Built-in presets are read-only; user presets are fully mutable.
type MappingPreset struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Mappings  []GestureMapping `json:"mappings"`
	Global    GlobalSettings   `json:"globalSettings"`
	Tags      []string         `json:"tags,omitempty"`
	BuiltIn   bool             `json:"builtIn,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Validate checks preset invariants: valid globals, valid mappings, no
// duplicate mapping identities
func (p *MappingPreset) Validate(catalog *TargetCatalog) error {
	if p.Name == "" {
		return fmt.Errorf("%w: preset without name", ErrInvalidMapping)
	}
	if err := p.Global.Validate(); err != nil {
		return err
	}
	seen := make(map[MappingID]struct{}, len(p.Mappings))
	for i := range p.Mappings {
		m := &p.Mappings[i]
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateMapping, m.ID)
		}
		seen[m.ID] = struct{}{}
		if err := ValidateMapping(*m, catalog); err != nil {
			return fmt.Errorf("mapping %s: %w", m.ID, err)
		}
	}
	return nil
}

// BuiltinPresets returns the read-only presets shipped with the engine. Each
// call returns fresh copies so callers cannot mutate the originals.
func BuiltinPresets() []MappingPreset {
	now := time.Unix(0, 0).UTC()
	deck0, deck1 := 0, 1

	crossfader := MappingPreset{
		ID:      "builtin-crossfader",
		Name:    "Two-Hand Crossfader",
		BuiltIn: true,
		Global:  DefaultGlobalSettings(),
		Tags:    []string{"builtin", "crossfader"},
		Mappings: []GestureMapping{{
			ID:      MappingID(uuid.NewMD5(uuid.NameSpaceOID, []byte("builtin-crossfader-0")).String()),
			Name:    "Hand distance to crossfader",
			Enabled: true,
			Input: InputDescriptor{
				GestureKind: GestureTwoHandDistance,
				Parameter:   "distance",
				DeadZone:    0.02,
				Sensitivity: 1.0,
			},
			Target: AudioControlTarget{
				Kind: TargetCrossfader, Parameter: "position",
				MinValue: 0, MaxValue: 1, Default: 0.5, Label: "Crossfader",
			},
			Interp:      InterpolationDescriptor{Curve: CurveSmooth, Smoothing: 0.3},
			Arbitration: ArbitrationDescriptor{Priority: 10, ExclusiveGroup: "crossfader"},
			CreatedAt:   now,
			UpdatedAt:   now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	volumes := MappingPreset{
		ID:      "builtin-deck-volumes",
		Name:    "Dual-Deck Volume",
		BuiltIn: true,
		Global:  DefaultGlobalSettings(),
		Tags:    []string{"builtin", "volume"},
		Mappings: []GestureMapping{
			{
				ID:      MappingID(uuid.NewMD5(uuid.NameSpaceOID, []byte("builtin-volume-left")).String()),
				Name:    "Left palm height to deck 1 volume",
				Enabled: true,
				Input: InputDescriptor{
					GestureKind: GesturePalmHeight,
					Parameter:   "height",
					DeadZone:    0.03,
					Sensitivity: 1.2,
				},
				Target: AudioControlTarget{
					Kind: TargetChannel, Channel: &deck0, Parameter: "volume",
					MinValue: 0, MaxValue: 1, Default: 0.75, Label: "Deck 1 Volume",
				},
				Interp:      InterpolationDescriptor{Curve: CurveExponential, Smoothing: 0.4},
				Arbitration: ArbitrationDescriptor{Priority: 5},
				Zone:        &Zone{Kind: ZoneRectangle, X: 0, Y: 0, Width: 0.5, Height: 1},
				CreatedAt:   now,
				UpdatedAt:   now,
			},
			{
				ID:      MappingID(uuid.NewMD5(uuid.NameSpaceOID, []byte("builtin-volume-right")).String()),
				Name:    "Right palm height to deck 2 volume",
				Enabled: true,
				Input: InputDescriptor{
					GestureKind: GesturePalmHeight,
					Parameter:   "height",
					DeadZone:    0.03,
					Sensitivity: 1.2,
				},
				Target: AudioControlTarget{
					Kind: TargetChannel, Channel: &deck1, Parameter: "volume",
					MinValue: 0, MaxValue: 1, Default: 0.75, Label: "Deck 2 Volume",
				},
				Interp:      InterpolationDescriptor{Curve: CurveExponential, Smoothing: 0.4},
				Arbitration: ArbitrationDescriptor{Priority: 5},
				Zone:        &Zone{Kind: ZoneRectangle, X: 0.5, Y: 0, Width: 0.5, Height: 1},
				CreatedAt:   now,
				UpdatedAt:   now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	filter := MappingPreset{
		ID:      "builtin-filter-sweep",
		Name:    "Pinch Filter Sweep",
		BuiltIn: true,
		Global:  DefaultGlobalSettings(),
		Tags:    []string{"builtin", "filter"},
		Mappings: []GestureMapping{{
			ID:      MappingID(uuid.NewMD5(uuid.NameSpaceOID, []byte("builtin-filter-0")).String()),
			Name:    "Pinch strength to deck 1 filter",
			Enabled: true,
			Input: InputDescriptor{
				GestureKind: GesturePinch,
				Parameter:   "strength",
				DeadZone:    0.01,
				Sensitivity: 1.5,
			},
			Target: AudioControlTarget{
				Kind: TargetChannel, Channel: &deck0, Parameter: "filter",
				MinValue: 20, MaxValue: 20000, Default: 20000, Unit: "Hz",
				Label: "Deck 1 Filter Cutoff",
			},
			Interp:      InterpolationDescriptor{Curve: CurveLogarithmic, Smoothing: 0.5},
			Arbitration: ArbitrationDescriptor{Priority: 3, ExclusiveGroup: "deck1-filter"},
			CreatedAt:   now,
			UpdatedAt:   now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	presets := []MappingPreset{crossfader, volumes, filter}
	copies := make([]MappingPreset, len(presets))
	for i, p := range presets {
		copies[i] = p.clone()
	}
	return copies
}

// clone returns a deep copy of the preset
func (p MappingPreset) clone() MappingPreset {
	c := p
	c.Mappings = make([]GestureMapping, len(p.Mappings))
	for i, m := range p.Mappings {
		c.Mappings[i] = m.clone()
	}
	if p.Tags != nil {
		c.Tags = append([]string(nil), p.Tags...)
	}
	return c
}
