package oxboard

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nategarelik/ox-board-sub009/internal/gesture"
	"github.com/nategarelik/ox-board-sub009/internal/presetstore"
)

func newServerFixture(t *testing.T) (*gesture.Engine, *httptest.Server) {
	t.Helper()

	events := gesture.NewEngineEventBroadcaster(nil)
	t.Cleanup(events.Close)
	dispatcher := NewAsyncControlDispatcher(events)
	t.Cleanup(dispatcher.Close)

	engine := gesture.NewEngine(gesture.NewDefaultTargetCatalog(), dispatcher)
	require.NoError(t, engine.Start())
	t.Cleanup(engine.Stop)

	store, err := presetstore.New(t.TempDir())
	require.NoError(t, err)

	server := NewServer(&AppConfig{ListenAddr: ":0"}, engine, store, events)
	ts := httptest.NewServer(server.buildRouter())
	t.Cleanup(ts.Close)
	return engine, ts
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestGestureSocketIngestsFramesAndClosesCleanly(t *testing.T) {
	engine, ts := newServerFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(ts, "/ws/gestures"), nil)
	require.NoError(t, err)

	sample := gesture.GestureSample{
		Kind:       gesture.GesturePinch,
		Parameters: map[string]float64{"strength": 0.4, "x": 0.5, "y": 0.5},
		Confidence: 0.9,
		Handedness: gesture.HandRight,
	}
	require.NoError(t, wsjson.Write(ctx, conn, sample))

	deadline := time.Now().Add(2 * time.Second)
	for engine.GetMetrics().SamplesProcessed == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, int64(1), engine.GetMetrics().SamplesProcessed)

	// A clean client close is not an ingest failure; the server acknowledges
	// with a normal closure rather than an internal-error close frame
	assert.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestEventsSocketReceivesControlUpdates(t *testing.T) {
	engine, ts := newServerFixture(t)

	_, err := engine.Registry().Register(gesture.GestureMapping{
		ID:      gesture.NewMappingID(),
		Name:    "ws relay",
		Enabled: true,
		Input: gesture.InputDescriptor{
			GestureKind: gesture.GesturePinch,
			Parameter:   "strength",
			Sensitivity: 1.0,
		},
		Target: gesture.AudioControlTarget{
			Kind: gesture.TargetCrossfader, Parameter: "position",
			MinValue: 0, MaxValue: 1, Default: 0.5,
		},
		Interp: gesture.InterpolationDescriptor{Curve: gesture.CurveLinear},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(ts, "/ws/events"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Give the subscription a moment to register before producing the frame
	time.Sleep(50 * time.Millisecond)
	engine.ProcessSample(gesture.GestureSample{
		Kind:       gesture.GesturePinch,
		Parameters: map[string]float64{"strength": 0.4, "x": 0.5, "y": 0.5},
		Confidence: 0.9,
		Handedness: gesture.HandRight,
		Timestamp:  time.Now(),
	})

	var event gesture.EngineEvent
	require.NoError(t, wsjson.Read(ctx, conn, &event))
	assert.Equal(t, gesture.EventControlUpdate, event.Type)
}
