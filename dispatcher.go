package oxboard

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/nategarelik/ox-board-sub009/internal/gesture"
	"github.com/nategarelik/ox-board-sub009/internal/logging"
)

// controlUpdateBuffer bounds the dispatch queue between the frame path and
// the WebSocket broadcaster. At 30 Hz frames this is several seconds of
// headroom; beyond that updates are stale anyway.
const controlUpdateBuffer = 256

// AsyncControlDispatcher decouples the per-frame path from subscriber I/O.
// Dispatch enqueues without blocking and drops when the queue is full; a
// single goroutine drains the queue into the event broadcaster, which relays
// updates to the in-browser audio graph.
type AsyncControlDispatcher struct {
	updates chan gesture.ControlUpdate
	events  *gesture.EngineEventBroadcaster
	dropped int64
	logger  zerolog.Logger
	done    chan struct{}
}

// NewAsyncControlDispatcher creates and starts a dispatcher relaying updates
// through the given broadcaster
func NewAsyncControlDispatcher(events *gesture.EngineEventBroadcaster) *AsyncControlDispatcher {
	logger := logging.GetSubsystemLogger("gesture").With().Str("component", "control-dispatcher").Logger()
	d := &AsyncControlDispatcher{
		updates: make(chan gesture.ControlUpdate, controlUpdateBuffer),
		events:  events,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch enqueues a control update without blocking the frame path
func (d *AsyncControlDispatcher) Dispatch(update gesture.ControlUpdate) {
	select {
	case d.updates <- update:
	default:
		// Queue full: drop rather than block a frame. The audio parameter
		// model is last-write-wins, so a newer update will follow.
		if n := atomic.AddInt64(&d.dropped, 1); n%100 == 1 {
			d.logger.Warn().Int64("dropped_total", n).Msg("control update queue full, dropping")
		}
	}
}

// Dropped returns the number of updates dropped due to a full queue
func (d *AsyncControlDispatcher) Dropped() int64 {
	return atomic.LoadInt64(&d.dropped)
}

// Close stops the drain goroutine
func (d *AsyncControlDispatcher) Close() {
	close(d.done)
}

func (d *AsyncControlDispatcher) run() {
	for {
		select {
		case <-d.done:
			return
		case update := <-d.updates:
			d.events.BroadcastControlUpdate(update)
		}
	}
}
