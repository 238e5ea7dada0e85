package oxboard

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nategarelik/ox-board-sub009/internal/gesture"
	"github.com/nategarelik/ox-board-sub009/internal/logging"
	"github.com/nategarelik/ox-board-sub009/internal/presetstore"
)

// Main is the composition root: it builds the engine, preset store and web
// surface, applies the configured startup preset and blocks until the process
// receives SIGINT or SIGTERM.
func Main() {
	config := LoadConfig()
	logger := logging.GetDefaultLogger()

	logger.Info().
		Str("listen_addr", config.ListenAddr).
		Str("preset_dir", config.PresetDir).
		Msg("starting ox-board gesture engine")

	catalog := gesture.NewDefaultTargetCatalog()

	// The broadcaster is created first so the dispatcher and engine can feed
	// it; the metrics closure is bound after the engine exists.
	var engine *gesture.Engine
	events := gesture.NewEngineEventBroadcaster(func() gesture.EngineMetricsData {
		return gesture.ConvertMetrics(engine.GetMetrics())
	})
	dispatcher := NewAsyncControlDispatcher(events)
	engine = gesture.NewEngine(catalog, dispatcher)
	engine.SetEventBroadcaster(events)

	store, err := presetstore.New(config.PresetDir)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open preset store")
		os.Exit(1)
	}

	if config.ActivePreset != "" {
		doc, err := store.Load(config.ActivePreset)
		if err != nil {
			logger.Warn().Err(err).Str("preset_id", config.ActivePreset).Msg("startup preset not loaded, engine starts empty")
		} else if err := engine.ApplyPreset(gesture.PresetFromDocument(doc)); err != nil {
			logger.Warn().Err(err).Str("preset_id", config.ActivePreset).Msg("startup preset rejected, engine starts empty")
		}
	}

	if err := engine.Start(); err != nil {
		logger.Error().Err(err).Msg("failed to start gesture engine")
		os.Exit(1)
	}

	server := NewServer(config, engine, store, events)
	go func() {
		if err := server.Run(); err != nil {
			logger.Error().Err(err).Msg("web server failed")
			os.Exit(1)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("ox-board shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("web server shutdown incomplete")
	}

	engine.Stop()
	events.Close()
	dispatcher.Close()
}
