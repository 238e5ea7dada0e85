package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCalibrationFixture(t *testing.T) (*Calibrator, *MappingRegistry, MappingID) {
	t.Helper()
	registry := NewMappingRegistry(NewDefaultTargetCatalog())
	calibrator := NewCalibrator(registry)
	id, err := registry.Register(testMapping("calibratable"))
	require.NoError(t, err)
	return calibrator, registry, id
}

func TestCalibrationCommitsObservedRange(t *testing.T) {
	calibrator, registry, id := newCalibrationFixture(t)

	require.NoError(t, calibrator.Start(id))
	calibrator.Observe(id, 0.3)
	calibrator.Observe(id, 0.1)
	calibrator.Observe(id, 0.8)

	cal, err := calibrator.Finish()
	require.NoError(t, err)
	assert.Equal(t, 0.1, cal.MinInput)
	assert.Equal(t, 0.8, cal.MaxInput)
	assert.Nil(t, cal.CenterPoint)

	stored, ok := registry.Get(id)
	require.True(t, ok)
	require.NotNil(t, stored.Calibration)
	assert.Equal(t, 0.1, stored.Calibration.MinInput)
	assert.Equal(t, 0.8, stored.Calibration.MaxInput)
}

func TestCalibrationCapturesCenter(t *testing.T) {
	calibrator, registry, id := newCalibrationFixture(t)

	require.NoError(t, calibrator.Start(id))
	calibrator.Observe(id, 0.1)
	calibrator.Observe(id, 0.9)
	calibrator.Observe(id, 0.4)
	require.NoError(t, calibrator.SetCenter())

	cal, err := calibrator.Finish()
	require.NoError(t, err)
	require.NotNil(t, cal.CenterPoint)
	assert.Equal(t, 0.4, *cal.CenterPoint)

	stored, _ := registry.Get(id)
	require.NotNil(t, stored.Calibration.CenterPoint)
	assert.Equal(t, 0.4, *stored.Calibration.CenterPoint)
}

func TestCalibrationCenterOnRangeEdgeIsDropped(t *testing.T) {
	calibrator, _, id := newCalibrationFixture(t)

	require.NoError(t, calibrator.Start(id))
	calibrator.Observe(id, 0.1)
	calibrator.Observe(id, 0.9)
	// lastRaw equals maxInput, so the captured center sits on the range edge
	require.NoError(t, calibrator.SetCenter())

	cal, err := calibrator.Finish()
	require.NoError(t, err)
	assert.Nil(t, cal.CenterPoint, "degenerate center must not be committed")
}

func TestCalibrationInsufficientSamples(t *testing.T) {
	calibrator, registry, id := newCalibrationFixture(t)

	require.NoError(t, calibrator.Start(id))
	calibrator.Observe(id, 0.5)
	calibrator.Observe(id, 0.5)

	_, err := calibrator.Finish()
	assert.ErrorIs(t, err, ErrInsufficientSample)

	stored, _ := registry.Get(id)
	assert.Nil(t, stored.Calibration, "mapping stays uncalibrated on failure")

	_, active := calibrator.Calibrating()
	assert.False(t, active, "calibrator returns to idle either way")
}

func TestCalibrationStartClearsPreviousData(t *testing.T) {
	calibrator, registry, id := newCalibrationFixture(t)

	require.NoError(t, registry.Update(id, MappingPatch{
		Calibration: &CalibrationData{MinInput: 0.2, MaxInput: 0.7},
	}))
	require.NoError(t, calibrator.Start(id))

	stored, _ := registry.Get(id)
	assert.Nil(t, stored.Calibration, "starting a session invalidates old calibration immediately")
}

func TestCalibrationSingleSessionAtATime(t *testing.T) {
	calibrator, registry, id := newCalibrationFixture(t)
	other, err := registry.Register(testMapping("second"))
	require.NoError(t, err)

	require.NoError(t, calibrator.Start(id))
	assert.ErrorIs(t, calibrator.Start(other), ErrCalibrationBusy)

	calibrator.Cancel()
	assert.NoError(t, calibrator.Start(other))
}

func TestCalibrationSessionErrors(t *testing.T) {
	calibrator, _, id := newCalibrationFixture(t)

	assert.ErrorIs(t, calibrator.SetCenter(), ErrNotCalibrating)
	_, err := calibrator.Finish()
	assert.ErrorIs(t, err, ErrNotCalibrating)
	assert.ErrorIs(t, calibrator.Start("no-such-mapping"), ErrMappingNotFound)

	require.NoError(t, calibrator.Start(id))
	assert.ErrorIs(t, calibrator.SetCenter(), ErrNoSampleObserved)
	calibrator.Cancel()
}

func TestCalibrationCancelDiscardsSession(t *testing.T) {
	calibrator, registry, id := newCalibrationFixture(t)

	require.NoError(t, calibrator.Start(id))
	calibrator.Observe(id, 0.1)
	calibrator.Observe(id, 0.9)
	calibrator.Cancel()

	stored, _ := registry.Get(id)
	assert.Nil(t, stored.Calibration)

	_, active := calibrator.Calibrating()
	assert.False(t, active)
}
