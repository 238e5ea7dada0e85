package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crossfaderTarget references the crossfader position parameter of the
// default catalog
func crossfaderTarget() AudioControlTarget {
	return AudioControlTarget{
		Kind: TargetCrossfader, Parameter: "position",
		MinValue: 0, MaxValue: 1, Default: 0.5,
	}
}

func deckVolumeTarget(deck int) AudioControlTarget {
	channel := deck
	return AudioControlTarget{
		Kind: TargetChannel, Channel: &channel, Parameter: "volume",
		MinValue: 0, MaxValue: 1, Default: 0.75,
	}
}

// testMapping builds a valid pinch-to-crossfader mapping
func testMapping(name string) GestureMapping {
	return GestureMapping{
		ID:      NewMappingID(),
		Name:    name,
		Enabled: true,
		Input: InputDescriptor{
			GestureKind: GesturePinch,
			Parameter:   "strength",
			DeadZone:    0.05,
			Sensitivity: 1.0,
		},
		Target: crossfaderTarget(),
		Interp: InterpolationDescriptor{Curve: CurveLinear},
	}
}

func TestRegistryRegisterAssignsIdentity(t *testing.T) {
	registry := NewMappingRegistry(NewDefaultTargetCatalog())

	mapping := testMapping("no identity")
	mapping.ID = ""
	id, err := registry.Register(mapping)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	stored, ok := registry.Get(id)
	require.True(t, ok)
	assert.Equal(t, "no identity", stored.Name)
	assert.False(t, stored.UpdatedAt.IsZero())
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestRegistryRegisterRejectsDuplicateIdentity(t *testing.T) {
	registry := NewMappingRegistry(NewDefaultTargetCatalog())

	mapping := testMapping("first")
	_, err := registry.Register(mapping)
	require.NoError(t, err)

	_, err = registry.Register(mapping)
	assert.ErrorIs(t, err, ErrDuplicateMapping)
	assert.Equal(t, 1, registry.Count())
}

func TestRegistryRegisterRejectsInvalidMapping(t *testing.T) {
	registry := NewMappingRegistry(NewDefaultTargetCatalog())

	tests := []struct {
		name     string
		mutate   func(*GestureMapping)
		expected error
	}{
		{"unknown gesture", func(m *GestureMapping) { m.Input.GestureKind = "wave" }, ErrUnknownGestureKind},
		{"unknown parameter", func(m *GestureMapping) { m.Input.Parameter = "wingspan" }, ErrUnknownParameter},
		{"negative deadzone", func(m *GestureMapping) { m.Input.DeadZone = -0.1 }, ErrInvalidDeadZone},
		{"excessive sensitivity", func(m *GestureMapping) { m.Input.Sensitivity = 50 }, ErrInvalidSensitivity},
		{"smoothing above one", func(m *GestureMapping) { m.Interp.Smoothing = 1.5 }, ErrInvalidSmoothing},
		{"unknown curve", func(m *GestureMapping) { m.Interp.Curve = "bezier" }, ErrInvalidCurve},
		{"unknown target", func(m *GestureMapping) { m.Target.Parameter = "nonexistent" }, ErrUnknownTarget},
		{"zero-width target", func(m *GestureMapping) { m.Target.MaxValue = m.Target.MinValue }, ErrZeroWidthTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapping := testMapping(tt.name)
			tt.mutate(&mapping)
			_, err := registry.Register(mapping)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
	assert.Equal(t, 0, registry.Count(), "failed registrations must not mutate the registry")
}

func TestRegistryUpdateValidatesMergedResult(t *testing.T) {
	registry := NewMappingRegistry(NewDefaultTargetCatalog())

	id, err := registry.Register(testMapping("patch me"))
	require.NoError(t, err)

	// Invalid patch leaves the mapping untouched
	badInput := InputDescriptor{GestureKind: GesturePinch, Parameter: "strength", DeadZone: 2.0, Sensitivity: 1.0}
	err = registry.Update(id, MappingPatch{Input: &badInput})
	assert.ErrorIs(t, err, ErrInvalidDeadZone)

	current, ok := registry.Get(id)
	require.True(t, ok)
	assert.Equal(t, 0.05, current.Input.DeadZone)

	// Valid patch applies and bumps UpdatedAt
	before := current.UpdatedAt
	newName := "patched"
	err = registry.Update(id, MappingPatch{Name: &newName})
	require.NoError(t, err)

	updated, ok := registry.Get(id)
	require.True(t, ok)
	assert.Equal(t, "patched", updated.Name)
	assert.Equal(t, id, updated.ID, "identity is stable across edits")
	assert.False(t, updated.UpdatedAt.Before(before))
}

func TestRegistryUpdateClearsZoneAndCalibration(t *testing.T) {
	registry := NewMappingRegistry(NewDefaultTargetCatalog())

	mapping := testMapping("clearable")
	mapping.Zone = &Zone{Kind: ZoneRectangle, Width: 0.5, Height: 1}
	mapping.Calibration = &CalibrationData{MinInput: 0.1, MaxInput: 0.9}
	id, err := registry.Register(mapping)
	require.NoError(t, err)

	err = registry.Update(id, MappingPatch{ClearZone: true, ClearCal: true})
	require.NoError(t, err)

	updated, _ := registry.Get(id)
	assert.Nil(t, updated.Zone)
	assert.Nil(t, updated.Calibration)
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewMappingRegistry(NewDefaultTargetCatalog())

	id, err := registry.Register(testMapping("ephemeral"))
	require.NoError(t, err)
	require.NoError(t, registry.Unregister(id))

	_, ok := registry.Get(id)
	assert.False(t, ok)
	assert.ErrorIs(t, registry.Unregister(id), ErrMappingNotFound)
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	registry := NewMappingRegistry(NewDefaultTargetCatalog())

	mapping := testMapping("aliasing")
	mapping.Zone = &Zone{Kind: ZoneRectangle, Width: 0.5, Height: 1}
	id, err := registry.Register(mapping)
	require.NoError(t, err)

	first, _ := registry.Get(id)
	first.Zone.Width = 0.01
	first.Name = "mutated"

	second, _ := registry.Get(id)
	assert.Equal(t, "aliasing", second.Name)
	assert.Equal(t, 0.5, second.Zone.Width, "callers must not alias registry state")
}

func TestRegistryListOrderedByCreation(t *testing.T) {
	registry := NewMappingRegistry(NewDefaultTargetCatalog())

	for _, name := range []string{"a", "b", "c"} {
		_, err := registry.Register(testMapping(name))
		require.NoError(t, err)
	}

	list := registry.List()
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].CreatedAt.Before(list[i-1].CreatedAt))
	}
}

func TestRegistryReplaceAllIsAtomic(t *testing.T) {
	registry := NewMappingRegistry(NewDefaultTargetCatalog())

	_, err := registry.Register(testMapping("survivor"))
	require.NoError(t, err)

	good := testMapping("good")
	bad := testMapping("bad")
	bad.Input.Sensitivity = 99

	err = registry.ReplaceAll([]GestureMapping{good, bad})
	assert.ErrorIs(t, err, ErrInvalidSensitivity)
	assert.Equal(t, 1, registry.Count(), "failed replace must leave the registry untouched")

	err = registry.ReplaceAll([]GestureMapping{good})
	require.NoError(t, err)
	assert.Equal(t, 1, registry.Count())
	_, ok := registry.Get(good.ID)
	assert.True(t, ok)
}

func TestRegistryFull(t *testing.T) {
	original := GetConfig()
	small := *original
	small.MaxMappings = 2
	require.NoError(t, UpdateConfig(&small))
	defer func() { _ = UpdateConfig(original) }()

	registry := NewMappingRegistry(NewDefaultTargetCatalog())
	_, err := registry.Register(testMapping("one"))
	require.NoError(t, err)
	_, err = registry.Register(testMapping("two"))
	require.NoError(t, err)

	_, err = registry.Register(testMapping("three"))
	assert.ErrorIs(t, err, ErrRegistryFull)
}
