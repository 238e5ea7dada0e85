package oxboard

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nategarelik/ox-board-sub009/internal/gesture"
	"github.com/nategarelik/ox-board-sub009/internal/logging"
)

// handleGestureSocket is the hand-tracking ingest endpoint. The browser-side
// tracker streams GestureSample frames as JSON; each frame is fed straight
// into the engine's per-frame pipeline on this goroutine, preserving the
// single-producer contract.
func (s *Server) handleGestureSocket(c *gin.Context) {
	logger := logging.GetSubsystemLogger("web").With().
		Str("component", "gesture-ingest").
		Str("remote_addr", c.Request.RemoteAddr).
		Logger()

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("gesture ingest websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "ingest closed")

	ctx := c.Request.Context()
	logger.Info().Msg("gesture ingest connected")

	frames := 0
	for {
		var sample gesture.GestureSample
		if err := wsjson.Read(ctx, conn, &sample); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
				errors.Is(err, context.Canceled) {
				logger.Info().Int("frames", frames).Msg("gesture ingest disconnected")
				conn.Close(websocket.StatusNormalClosure, "")
			} else {
				logger.Warn().Err(err).Int("frames", frames).Msg("gesture ingest read failed")
			}
			return
		}
		if sample.Timestamp.IsZero() {
			sample.Timestamp = time.Now()
		}
		s.engine.ProcessSample(sample)
		frames++
	}
}

// handleEventsSocket subscribes a client to engine events: control updates,
// conflicts, calibration transitions, preset changes and periodic metrics.
func (s *Server) handleEventsSocket(c *gin.Context) {
	connectionID := uuid.NewString()
	logger := logging.GetSubsystemLogger("web").With().
		Str("component", "events-socket").
		Str("connection_id", connectionID).
		Logger()

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("events websocket accept failed")
		return
	}

	ctx := c.Request.Context()
	s.events.Subscribe(connectionID, conn, ctx, &logger)
	defer func() {
		s.events.Unsubscribe(connectionID)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	logger.Info().Msg("engine events subscriber connected")

	// Drain the read side so pings and close frames are processed. Clients
	// are not expected to send anything.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			logger.Debug().Err(err).Msg("engine events subscriber disconnected")
			return
		}
	}
}
