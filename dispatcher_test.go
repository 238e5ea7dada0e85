package oxboard

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nategarelik/ox-board-sub009/internal/gesture"
	"github.com/nategarelik/ox-board-sub009/internal/presetstore"
)

func TestAsyncDispatcherRelaysWithoutBlocking(t *testing.T) {
	events := gesture.NewEngineEventBroadcaster(nil)
	defer events.Close()
	dispatcher := NewAsyncControlDispatcher(events)
	defer dispatcher.Close()

	update := gesture.ControlUpdate{
		Target: gesture.AudioControlTarget{
			Kind: gesture.TargetCrossfader, Parameter: "position",
			MinValue: 0, MaxValue: 1, Default: 0.5,
		},
		Value:     0.5,
		Timestamp: time.Now(),
	}

	// With no subscribers the drain goroutine discards updates; Dispatch must
	// return immediately regardless
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10*controlUpdateBuffer; i++ {
			dispatcher.Dispatch(update)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Dispatch blocked the frame path")
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"mapping not found", gesture.ErrMappingNotFound, http.StatusNotFound},
		{"preset not found", presetstore.ErrPresetNotFound, http.StatusNotFound},
		{"duplicate mapping", gesture.ErrDuplicateMapping, http.StatusConflict},
		{"import collision", gesture.ErrImportCollision, http.StatusConflict},
		{"calibration busy", gesture.ErrCalibrationBusy, http.StatusConflict},
		{"registry full", gesture.ErrRegistryFull, http.StatusInsufficientStorage},
		{"builtin read-only", presetstore.ErrPresetReadOnly, http.StatusForbidden},
		{"schema too new", gesture.ErrSchemaVersionTooNew, http.StatusUnprocessableEntity},
		{"validation failure", gesture.ErrInvalidSensitivity, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusForError(tt.err))
		})
	}
}
