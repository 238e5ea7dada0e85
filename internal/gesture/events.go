package gesture

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/nategarelik/ox-board-sub009/internal/logging"
)

// EngineEventType represents the different engine events pushed to clients
type EngineEventType string

const (
	EventControlUpdate    EngineEventType = "control-update"
	EventConflictDetected EngineEventType = "conflict-detected"
	EventCalibrationState EngineEventType = "calibration-state"
	EventPresetChanged    EngineEventType = "preset-changed"
	EventMetricsUpdate    EngineEventType = "engine-metrics-update"
)

// EngineEvent is one WebSocket engine event
type EngineEvent struct {
	Type EngineEventType `json:"type"`
	Data interface{}     `json:"data"`
}

// CalibrationStateData describes a calibration session transition
type CalibrationStateData struct {
	MappingID   string `json:"mappingId,omitempty"`
	Calibrating bool   `json:"calibrating"`
	Committed   bool   `json:"committed,omitempty"`
}

// PresetChangedData describes an applied preset
type PresetChangedData struct {
	PresetID     string `json:"presetId"`
	PresetName   string `json:"presetName"`
	MappingCount int    `json:"mappingCount"`
}

// EngineMetricsData is the wire form of the engine counters
type EngineMetricsData struct {
	SamplesProcessed  int64  `json:"samples_processed"`
	SamplesRejected   int64  `json:"samples_rejected"`
	MappingsHeld      int64  `json:"mappings_held"`
	UpdatesDispatched int64  `json:"updates_dispatched"`
	ConflictsDetected int64  `json:"conflicts_detected"`
	LastSampleTime    string `json:"last_sample_time"`
	AverageLatency    string `json:"average_latency"`
}

// engineEventSubscriber is one WebSocket connection subscribed to engine
// events
type engineEventSubscriber struct {
	conn   *websocket.Conn
	ctx    context.Context
	logger *zerolog.Logger
}

// EngineEventBroadcaster fans engine events out to subscribed WebSocket
// connections and periodically pushes engine metrics
type EngineEventBroadcaster struct {
	subscribers map[string]*engineEventSubscriber
	mutex       sync.RWMutex
	logger      *zerolog.Logger
	metrics     func() EngineMetricsData
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewEngineEventBroadcaster creates a broadcaster. metricsFn supplies the
// current engine counters for the periodic metrics events; it may be nil to
// disable them.
func NewEngineEventBroadcaster(metricsFn func() EngineMetricsData) *EngineEventBroadcaster {
	l := logging.GetSubsystemLogger("gesture").With().Str("component", "engine-events").Logger()
	b := &EngineEventBroadcaster{
		subscribers: make(map[string]*engineEventSubscriber),
		logger:      &l,
		metrics:     metricsFn,
		stop:        make(chan struct{}),
	}
	if metricsFn != nil {
		go b.runMetricsBroadcasting()
	}
	return b
}

// Subscribe adds a WebSocket connection to receive engine events. An existing
// subscription for the same connection id is replaced without closing the
// shared socket.
func (b *EngineEventBroadcaster) Subscribe(connectionID string, conn *websocket.Conn, ctx context.Context, logger *zerolog.Logger) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if _, exists := b.subscribers[connectionID]; exists {
		b.logger.Debug().Str("connection_id", connectionID).Msg("duplicate engine events subscription, replacing entry")
		delete(b.subscribers, connectionID)
	}
	b.subscribers[connectionID] = &engineEventSubscriber{conn: conn, ctx: ctx, logger: logger}
	b.logger.Debug().Str("connection_id", connectionID).Msg("engine events subscription added")
}

// Unsubscribe removes a WebSocket connection from engine events
func (b *EngineEventBroadcaster) Unsubscribe(connectionID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	delete(b.subscribers, connectionID)
	b.logger.Debug().Str("connection_id", connectionID).Msg("engine events subscription removed")
}

// Close stops the periodic metrics broadcasting goroutine
func (b *EngineEventBroadcaster) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
}

// BroadcastControlUpdate pushes one dispatched control update
func (b *EngineEventBroadcaster) BroadcastControlUpdate(update ControlUpdate) {
	b.broadcast(EngineEvent{Type: EventControlUpdate, Data: update})
}

// BroadcastConflict pushes one contended arbitration record
func (b *EngineEventBroadcaster) BroadcastConflict(conflict GestureConflict) {
	b.broadcast(EngineEvent{Type: EventConflictDetected, Data: conflict})
}

// BroadcastCalibrationState pushes a calibration session transition
func (b *EngineEventBroadcaster) BroadcastCalibrationState(data CalibrationStateData) {
	b.broadcast(EngineEvent{Type: EventCalibrationState, Data: data})
}

// BroadcastPresetChanged pushes an applied-preset notification
func (b *EngineEventBroadcaster) BroadcastPresetChanged(id, name string, mappingCount int) {
	b.broadcast(EngineEvent{Type: EventPresetChanged, Data: PresetChangedData{
		PresetID:     id,
		PresetName:   name,
		MappingCount: mappingCount,
	}})
}

// ConvertMetrics formats engine counters for the wire
func ConvertMetrics(m EngineMetrics) EngineMetricsData {
	lastSample := ""
	if !m.LastSampleTime.IsZero() {
		lastSample = m.LastSampleTime.Format(GetConfig().EventTimeFormat)
	}
	return EngineMetricsData{
		SamplesProcessed:  m.SamplesProcessed,
		SamplesRejected:   m.SamplesRejected,
		MappingsHeld:      m.MappingsHeld,
		UpdatesDispatched: m.UpdatesDispatched,
		ConflictsDetected: m.ConflictsDetected,
		LastSampleTime:    lastSample,
		AverageLatency:    m.AverageFrameLatency.String(),
	}
}

// runMetricsBroadcasting periodically pushes engine metrics to subscribers
func (b *EngineEventBroadcaster) runMetricsBroadcasting() {
	ticker := time.NewTicker(GetConfig().MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
		}

		b.mutex.RLock()
		subscriberCount := len(b.subscribers)
		b.mutex.RUnlock()

		// Skip metrics gathering entirely when nobody is listening
		if subscriberCount == 0 {
			continue
		}

		b.broadcast(EngineEvent{Type: EventMetricsUpdate, Data: b.metrics()})
	}
}

// broadcast sends an event to all subscribers, dropping any that fail
func (b *EngineEventBroadcaster) broadcast(event EngineEvent) {
	b.mutex.RLock()
	subscribersCopy := make(map[string]*engineEventSubscriber, len(b.subscribers))
	for id, sub := range b.subscribers {
		subscribersCopy[id] = sub
	}
	b.mutex.RUnlock()

	var failed []string
	for connectionID, subscriber := range subscribersCopy {
		if !b.sendToSubscriber(subscriber, event) {
			failed = append(failed, connectionID)
		}
	}

	if len(failed) > 0 {
		b.mutex.Lock()
		for _, connectionID := range failed {
			delete(b.subscribers, connectionID)
			b.logger.Warn().Str("connection_id", connectionID).Msg("removed failed engine events subscriber")
		}
		b.mutex.Unlock()
	}
}

// sendToSubscriber sends one event to one subscriber
func (b *EngineEventBroadcaster) sendToSubscriber(subscriber *engineEventSubscriber, event EngineEvent) bool {
	if subscriber.ctx.Err() != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(subscriber.ctx, GetConfig().EventSendTimeout)
	defer cancel()

	if err := wsjson.Write(ctx, subscriber.conn, event); err != nil {
		// Closed connections are expected churn, not warnings
		if strings.Contains(err.Error(), "use of closed network connection") ||
			strings.Contains(err.Error(), "connection reset by peer") ||
			strings.Contains(err.Error(), "context canceled") {
			subscriber.logger.Debug().Err(err).Msg("websocket closed during engine event send")
		} else {
			subscriber.logger.Warn().Err(err).Msg("failed to send engine event to subscriber")
		}
		return false
	}
	return true
}
