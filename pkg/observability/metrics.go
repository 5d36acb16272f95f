package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the graph index.
type Metrics struct {
	// Search metrics
	SearchesTotal    prometheus.Counter
	SearchLatency    prometheus.Histogram
	SearchResultSize prometheus.Histogram
	SearchTruncated  prometheus.Counter

	// Explore metrics
	ExploresTotal prometheus.Counter

	// Graph metrics
	GraphSize        prometheus.Gauge
	GraphDegree      prometheus.Gauge
	GraphAvgWeight   prometheus.Gauge
	GraphNonRNGEdges prometheus.Gauge

	// Builder metrics
	BuildStepsTotal    *prometheus.CounterVec
	BuildImprovedTotal prometheus.Counter
	VerticesAdded      prometheus.Counter
	VerticesRemoved    prometheus.Counter
	SwapTriesTotal     prometheus.Counter
	BuildStepDuration  prometheus.Histogram

	// Batch operation metrics
	BatchAddTotal    prometheus.Counter
	BatchAddDuration prometheus.Histogram

	// IO metrics
	GraphSaveDuration prometheus.Histogram
	GraphLoadDuration prometheus.Histogram

	// System metrics
	GoroutinesCount prometheus.Gauge
	MemoryUsage     prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		SearchesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "deg_searches_total",
				Help: "Total number of k-NN search operations",
			},
		),
		SearchLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "deg_search_latency_seconds",
				Help:    "Search latency in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		SearchResultSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "deg_search_result_size",
				Help:    "Number of results returned by a search call",
				Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500},
			},
		),
		SearchTruncated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "deg_search_truncated_total",
				Help: "Total number of searches that exhausted their distance-computation budget",
			},
		),

		ExploresTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "deg_explores_total",
				Help: "Total number of explore operations",
			},
		),

		GraphSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "deg_graph_size",
				Help: "Current number of vertices in the graph",
			},
		),
		GraphDegree: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "deg_graph_degree",
				Help: "Configured edges-per-vertex of the graph",
			},
		),
		GraphAvgWeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "deg_graph_avg_edge_weight",
				Help: "Average edge weight across the graph",
			},
		),
		GraphNonRNGEdges: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "deg_graph_non_rng_edges",
				Help: "Number of edges that fail the Relative Neighborhood Graph check",
			},
		),

		BuildStepsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deg_build_steps_total",
				Help: "Total number of builder steps by kind (add, remove, improve)",
			},
			[]string{"step"},
		),
		BuildImprovedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "deg_build_improved_total",
				Help: "Total number of successful edge-improvement swaps",
			},
		),
		VerticesAdded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "deg_vertices_added_total",
				Help: "Total number of vertices added to the graph",
			},
		),
		VerticesRemoved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "deg_vertices_removed_total",
				Help: "Total number of vertices removed from the graph",
			},
		),
		SwapTriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "deg_swap_tries_total",
				Help: "Total number of edge-improvement swap attempts",
			},
		),
		BuildStepDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "deg_build_step_duration_seconds",
				Help:    "Duration of a single builder step in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),

		BatchAddTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "deg_batch_add_total",
				Help: "Total number of batch-add operations",
			},
		),
		BatchAddDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "deg_batch_add_duration_seconds",
				Help:    "Batch add duration in seconds",
				Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),

		GraphSaveDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "deg_graph_save_duration_seconds",
				Help:    "Duration of a graph save-to-disk call in seconds",
				Buckets: []float64{.001, .01, .1, .5, 1, 5, 10, 30},
			},
		),
		GraphLoadDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "deg_graph_load_duration_seconds",
				Help:    "Duration of a graph load-from-disk call in seconds",
				Buckets: []float64{.001, .01, .1, .5, 1, 5, 10, 30},
			},
		),

		GoroutinesCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "deg_goroutines",
				Help: "Current number of goroutines",
			},
		),
		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "deg_memory_bytes",
				Help: "Memory usage in bytes",
			},
		),
	}

	return m
}

// RecordSearch records a search operation.
func (m *Metrics) RecordSearch(duration time.Duration, resultSize int, truncated bool) {
	m.SearchesTotal.Inc()
	m.SearchLatency.Observe(duration.Seconds())
	m.SearchResultSize.Observe(float64(resultSize))
	if truncated {
		m.SearchTruncated.Inc()
	}
}

// RecordExplore records an explore operation.
func (m *Metrics) RecordExplore() {
	m.ExploresTotal.Inc()
}

// UpdateGraphStats updates the graph-shape gauges, typically called
// after a build step or on a periodic analysis pass.
func (m *Metrics) UpdateGraphStats(size, degree int, avgWeight float64, nonRNGEdges int) {
	m.GraphSize.Set(float64(size))
	m.GraphDegree.Set(float64(degree))
	m.GraphAvgWeight.Set(avgWeight)
	m.GraphNonRNGEdges.Set(float64(nonRNGEdges))
}

// RecordBuildStep records one builder step of the given kind.
func (m *Metrics) RecordBuildStep(step string, duration time.Duration) {
	m.BuildStepsTotal.WithLabelValues(step).Inc()
	m.BuildStepDuration.Observe(duration.Seconds())
}

// RecordImprovement records a successful edge-improvement swap.
func (m *Metrics) RecordImprovement() {
	m.BuildImprovedTotal.Inc()
}

// RecordSwapTry records one edge-improvement swap attempt, successful
// or not.
func (m *Metrics) RecordSwapTry() {
	m.SwapTriesTotal.Inc()
}

// RecordVertexAdded records a vertex added to the graph.
func (m *Metrics) RecordVertexAdded() {
	m.VerticesAdded.Inc()
}

// RecordVertexRemoved records a vertex removed from the graph.
func (m *Metrics) RecordVertexRemoved() {
	m.VerticesRemoved.Inc()
}

// RecordBatchAdd records a batch-add operation.
func (m *Metrics) RecordBatchAdd(duration time.Duration, count int) {
	m.BatchAddTotal.Inc()
	m.BatchAddDuration.Observe(duration.Seconds())
	m.VerticesAdded.Add(float64(count))
}

// RecordSave records a graph save-to-disk call.
func (m *Metrics) RecordSave(duration time.Duration) {
	m.GraphSaveDuration.Observe(duration.Seconds())
}

// RecordLoad records a graph load-from-disk call.
func (m *Metrics) RecordLoad(duration time.Duration) {
	m.GraphLoadDuration.Observe(duration.Seconds())
}

// UpdateGoroutineCount updates the goroutine count gauge.
func (m *Metrics) UpdateGoroutineCount(count int) {
	m.GoroutinesCount.Set(float64(count))
}

// UpdateMemoryUsage updates the memory usage gauge.
func (m *Metrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}
