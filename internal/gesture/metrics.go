package gesture

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Per-frame pipeline metrics
	samplesProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oxboard_gesture_samples_processed_total",
			Help: "Total number of gesture samples processed by the pipeline",
		},
	)

	samplesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxboard_gesture_samples_rejected_total",
			Help: "Total number of gesture samples rejected before mapping evaluation",
		},
		[]string{"reason"},
	)

	mappingsHeldTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oxboard_gesture_mappings_held_total",
			Help: "Total number of per-mapping evaluations held by the deadzone",
		},
	)

	updatesDispatchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oxboard_gesture_updates_dispatched_total",
			Help: "Total number of control updates dispatched to the audio collaborator",
		},
	)

	conflictsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxboard_gesture_conflicts_resolved_total",
			Help: "Total number of contended exclusive-group resolutions",
		},
		[]string{"mode"},
	)

	activeMappingsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "oxboard_gesture_active_mappings",
			Help: "Number of mappings in the most recent frame's active set",
		},
	)

	registeredMappingsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "oxboard_gesture_registered_mappings",
			Help: "Number of mappings currently registered",
		},
	)

	frameProcessingSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oxboard_gesture_frame_processing_seconds",
			Help:    "Wall time spent processing one gesture sample",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
		},
	)

	calibrationSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxboard_gesture_calibration_sessions_total",
			Help: "Total number of finished calibration sessions",
		},
		[]string{"outcome"},
	)
)
