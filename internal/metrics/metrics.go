// Package metrics holds the cross-component Prometheus metrics and the
// metrics HTTP server.
package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Indexing metrics
	LastIndexedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "willwe_indexer_last_indexed_block",
			Help: "The last block number successfully indexed",
		},
		[]string{"network"},
	)

	BlocksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "willwe_indexer_blocks_processed_total",
			Help: "Total number of blocks processed",
		},
		[]string{"network"},
	)

	LogsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "willwe_indexer_logs_indexed_total",
			Help: "Total number of logs indexed",
		},
		[]string{"network"},
	)

	BlockProcessingTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "willwe_indexer_block_processing_duration_seconds",
			Help:    "Time taken to process one batch of blocks",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"network"},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "willwe_indexer_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "willwe_indexer_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "willwe_indexer_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "willwe_indexer_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

func LastIndexedBlockSet(network string, blockNum uint64) {
	LastIndexedBlock.WithLabelValues(network).Set(float64(blockNum))
}

func BlocksProcessedAdd(network string, count uint64) {
	BlocksProcessed.WithLabelValues(network).Add(float64(count))
}

func LogsIndexedAdd(network string, count uint64) {
	LogsIndexed.WithLabelValues(network).Add(float64(count))
}

func BlockProcessingTimeLog(network string, duration time.Duration) {
	BlockProcessingTime.WithLabelValues(network).Observe(duration.Seconds())
}

func ComponentHealthSet(component string, healthy bool) {
	value := float64(1)
	if !healthy {
		value = 0
	}
	ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateSystemMetrics refreshes runtime gauges. Called periodically by the
// metrics server.
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())
	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
