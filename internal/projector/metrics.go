package projector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsProjected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "willwe_indexer_projector_events_total",
		Help: "Number of events projected, by event name",
	}, []string{"network", "event"})

	projectionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "willwe_indexer_projector_errors_total",
		Help: "Number of events whose projection failed, by event name",
	}, []string{"network", "event"})

	projectionSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "willwe_indexer_projector_skipped_total",
		Help: "Number of logs skipped (undecodable or missing key fields)",
	}, []string{"network"})
)
