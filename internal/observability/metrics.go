// Package observability holds the Prometheus metrics shared across the
// daemon. Collectors register into the default registry at import time and
// are served by the daemon API's /metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "frames_processed_total",
		Help:      "Total number of vision frames fed to the tracker",
	})

	FramesMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "frames_malformed_total",
		Help:      "Total number of vision frames rejected as malformed",
	})

	ProviderRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "provider_restarts_total",
		Help:      "Total number of vision provider process restarts",
	})

	ActiveTracks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "facegate",
		Name:      "active_tracks",
		Help:      "Number of face tracks currently under observation",
	})

	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "decisions_total",
		Help:      "Attendance decisions by outcome",
	}, []string{"outcome"})

	DecisionsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "decisions_suppressed_total",
		Help:      "Decisions suppressed by the per-window cooldown",
	})

	DecisionsUnsaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "decisions_unsaved_total",
		Help:      "Decisions lost because the event store rejected the append",
	})

	EventsSynced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "events_synced_total",
		Help:      "Attendance events confirmed by the backend",
	})

	EventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "events_rejected_total",
		Help:      "Attendance events permanently rejected by the backend",
	})

	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "delivery_failures_total",
		Help:      "Transient delivery failures that scheduled a retry",
	})

	DeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "facegate",
		Name:      "delivery_duration_seconds",
		Help:      "Duration of attendance event posts to the backend",
		Buckets:   prometheus.DefBuckets,
	})

	QueuePending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "facegate",
		Name:      "queue_pending",
		Help:      "Events in the durable queue not yet confirmed by the backend",
	})

	BackendReachable = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "facegate",
		Name:      "backend_reachable",
		Help:      "Settled connectivity state: 1 online, 0 offline",
	})

	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "facegate",
		Name:      "ws_clients",
		Help:      "Number of connected kiosk UI feed clients",
	})

	CameraEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "camera_events_total",
		Help:      "Video device hotplug events by action",
	}, []string{"action"})
)
