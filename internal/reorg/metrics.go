package reorg

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reorgsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "willwe_indexer_reorgs_detected_total",
		Help: "Number of chain reorganizations detected",
	}, []string{"network"})

	reorgDepth = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "willwe_indexer_reorg_depth_blocks",
		Help:    "Depth in blocks of detected reorganizations",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
	}, []string{"network"})

	trackedBlocks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "willwe_indexer_reorg_tracked_blocks",
		Help: "Number of non-finalized block hashes currently tracked",
	}, []string{"network"})
)

// reorgDetected records one detection with its depth.
func reorgDetected(network string, depth uint64) {
	reorgsDetected.WithLabelValues(network).Inc()
	reorgDepth.WithLabelValues(network).Observe(float64(depth))
}
