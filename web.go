package oxboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nategarelik/ox-board-sub009/internal/gesture"
	"github.com/nategarelik/ox-board-sub009/internal/logging"
	"github.com/nategarelik/ox-board-sub009/internal/presetstore"
)

// Server wires the gesture engine, preset store and event broadcaster behind
// the HTTP and WebSocket surface. It is constructed once by Main; there is no
// package-level server state.
type Server struct {
	config *AppConfig
	engine *gesture.Engine
	codec  *gesture.PresetCodec
	store  *presetstore.Store
	events *gesture.EngineEventBroadcaster
	logger zerolog.Logger

	http *http.Server
}

// NewServer assembles the HTTP surface around an engine
func NewServer(config *AppConfig, engine *gesture.Engine, store *presetstore.Store, events *gesture.EngineEventBroadcaster) *Server {
	logger := logging.GetSubsystemLogger("web").With().Str("component", "server").Logger()
	return &Server{
		config: config,
		engine: engine,
		codec:  gesture.NewPresetCodec(engine.Registry(), engine.Catalog()),
		store:  store,
		events: events,
		logger: logger,
	}
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.http = &http.Server{Addr: s.config.ListenAddr, Handler: s.buildRouter()}
	s.logger.Info().Str("listen_addr", s.config.ListenAddr).Msg("web server listening")

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// buildRouter assembles the gin route table
func (s *Server) buildRouter() *gin.Engine {
	if !s.config.GinDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/gestures", s.handleListGestures)
		api.GET("/targets", s.handleListTargets)
		api.GET("/state", s.handleEngineState)

		api.GET("/mappings", s.handleListMappings)
		api.POST("/mappings", s.handleCreateMapping)
		api.GET("/mappings/:id", s.handleGetMapping)
		api.PATCH("/mappings/:id", s.handleUpdateMapping)
		api.DELETE("/mappings/:id", s.handleDeleteMapping)

		api.GET("/presets", s.handleListPresets)
		api.POST("/presets/:id/activate", s.handleActivatePreset)
		api.DELETE("/presets/:id", s.handleDeletePreset)
		api.POST("/presets/export", s.handleExportPreset)
		api.POST("/presets/import", s.handleImportPreset)

		api.POST("/calibration/:id/start", s.handleCalibrationStart)
		api.POST("/calibration/center", s.handleCalibrationCenter)
		api.POST("/calibration/finish", s.handleCalibrationFinish)
		api.POST("/calibration/cancel", s.handleCalibrationCancel)

		api.PUT("/settings", s.handleUpdateSettings)
	}

	router.GET("/ws/gestures", s.handleGestureSocket)
	router.GET("/ws/events", s.handleEventsSocket)

	return router
}

// Shutdown stops the HTTP server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	metrics := s.engine.GetMetrics()
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"engine_running":    s.engine.IsRunning(),
		"active_preset":     s.engine.ActivePresetID(),
		"mapping_count":     s.engine.Registry().Count(),
		"samples_processed": metrics.SamplesProcessed,
	})
}

func (s *Server) handleListGestures(c *gin.Context) {
	c.JSON(http.StatusOK, gesture.GestureInputs())
}

func (s *Server) handleListTargets(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Catalog().List())
}

func (s *Server) handleEngineState(c *gin.Context) {
	calibratingID, calibrating := s.engine.Calibrator().Calibrating()
	state := gin.H{
		"running":        s.engine.IsRunning(),
		"activePreset":   s.engine.ActivePresetID(),
		"activeMappings": s.engine.ActiveMappings(),
		"conflicts":      s.engine.Conflicts(),
		"metrics":        gesture.ConvertMetrics(s.engine.GetMetrics()),
		"globalSettings": s.engine.GlobalSettings(),
	}
	if calibrating {
		state["calibrating"] = string(calibratingID)
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleListMappings(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Registry().List())
}

func (s *Server) handleCreateMapping(c *gin.Context) {
	var mapping gesture.GestureMapping
	if err := c.ShouldBindJSON(&mapping); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := s.engine.Registry().Register(mapping)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleGetMapping(c *gin.Context) {
	id := gesture.MappingID(c.Param("id"))
	mapping, ok := s.engine.Registry().Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": gesture.ErrMappingNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, mapping)
}

func (s *Server) handleUpdateMapping(c *gin.Context) {
	id := gesture.MappingID(c.Param("id"))
	var patch gesture.MappingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.Registry().Update(id, patch); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteMapping(c *gin.Context) {
	id := gesture.MappingID(c.Param("id"))
	if err := s.engine.Registry().Unregister(id); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.List())
}

func (s *Server) handleActivatePreset(c *gin.Context) {
	id := c.Param("id")
	doc, err := s.store.Load(id)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.ApplyPreset(gesture.PresetFromDocument(doc)); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activePreset": id, "mappingCount": len(doc.Mappings)})
}

func (s *Server) handleDeletePreset(c *gin.Context) {
	if err := s.store.Delete(c.Param("id")); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// exportRequest selects what to export. With no ids the whole registry is
// exported.
type exportRequest struct {
	Name string              `json:"name" binding:"required"`
	IDs  []gesture.MappingID `json:"ids,omitempty"`
	Save bool                `json:"save,omitempty"`
}

func (s *Server) handleExportPreset(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := s.codec.Export(req.Name, s.engine.GlobalSettings(), req.IDs...)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	if req.Save {
		if err := s.store.Save(doc); err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleImportPreset(c *gin.Context) {
	var doc gesture.PresetDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gesture.ErrMalformedDocument.Error()})
		return
	}

	opts := gesture.ImportOptions{
		BestEffort:  c.Query("bestEffort") == "true",
		OnCollision: gesture.CollisionPolicy(c.DefaultQuery("onCollision", string(gesture.CollisionReject))),
	}
	summary, err := s.codec.Import(doc, opts)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleCalibrationStart(c *gin.Context) {
	id := gesture.MappingID(c.Param("id"))
	if err := s.engine.Calibrator().Start(id); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	s.events.BroadcastCalibrationState(gesture.CalibrationStateData{
		MappingID:   string(id),
		Calibrating: true,
	})
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCalibrationCenter(c *gin.Context) {
	if err := s.engine.Calibrator().SetCenter(); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCalibrationFinish(c *gin.Context) {
	cal, err := s.engine.Calibrator().Finish()
	if err != nil {
		s.events.BroadcastCalibrationState(gesture.CalibrationStateData{Calibrating: false})
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	s.events.BroadcastCalibrationState(gesture.CalibrationStateData{Calibrating: false, Committed: true})
	c.JSON(http.StatusOK, cal)
}

func (s *Server) handleCalibrationCancel(c *gin.Context) {
	s.engine.Calibrator().Cancel()
	s.events.BroadcastCalibrationState(gesture.CalibrationStateData{Calibrating: false})
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var settings gesture.GlobalSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.UpdateGlobalSettings(settings); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// statusForError maps engine error kinds to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, gesture.ErrMappingNotFound),
		errors.Is(err, presetstore.ErrPresetNotFound):
		return http.StatusNotFound
	case errors.Is(err, gesture.ErrDuplicateMapping),
		errors.Is(err, gesture.ErrImportCollision),
		errors.Is(err, gesture.ErrCalibrationBusy):
		return http.StatusConflict
	case errors.Is(err, gesture.ErrRegistryFull):
		return http.StatusInsufficientStorage
	case errors.Is(err, presetstore.ErrPresetReadOnly):
		return http.StatusForbidden
	case errors.Is(err, gesture.ErrSchemaVersionTooNew),
		errors.Is(err, gesture.ErrSchemaVersionTooOld):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// shutdownTimeout bounds graceful HTTP shutdown at process exit
const shutdownTimeout = 5 * time.Second
