package observability

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commandLabel atomic.Value

func init() {
	commandLabel.Store("unknown")
}

// SetCommand labels every metric with the running command name.
func SetCommand(s string) {
	if s == "" {
		s = "unknown"
	}
	commandLabel.Store(s)
}

func getCommand() string {
	if v := commandLabel.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "unknown"
}

var (
	catalogQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_queries_total",
			Help: "Catalog queries by outcome.",
		},
		[]string{"outcome", "command"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7min
		},
		[]string{"upstream", "command"},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_results_total",
			Help: "Catalog cache results by outcome.",
		},
		[]string{"outcome", "backend"},
	)

	downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "downloads_total",
			Help: "Completed downloads by kind and outcome.",
		},
		[]string{"kind", "outcome", "command"},
	)

	downloadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "download_bytes_total",
			Help: "Bytes written to disk by downloads.",
		},
		[]string{"kind", "command"},
	)

	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Point-cloud pipeline executions by stage and outcome.",
		},
		[]string{"pipeline", "outcome"},
	)

	pipelinePoints = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipeline_points",
			Help: "Points produced by the last pipeline execution.",
		},
		[]string{"pipeline"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ObserveCatalogQuery(err error, durationSeconds float64) {
	c := getCommand()
	catalogQueriesTotal.WithLabelValues(outcome(err), c).Inc()
	upstreamLatencySeconds.WithLabelValues("catalog", c).Observe(durationSeconds)
}

func ObserveDownload(kind string, bytes int64, err error, durationSeconds float64) {
	c := getCommand()
	downloadsTotal.WithLabelValues(kind, outcome(err), c).Inc()
	if bytes > 0 {
		downloadBytesTotal.WithLabelValues(kind, c).Add(float64(bytes))
	}
	upstreamLatencySeconds.WithLabelValues("bulk", c).Observe(durationSeconds)
}

func IncCacheHit(backend string) {
	cacheResults.WithLabelValues("hit", backend).Inc()
}

func IncCacheMiss(backend string) {
	cacheResults.WithLabelValues("miss", backend).Inc()
}

func ObservePipeline(name string, points int64, err error) {
	pipelineRunsTotal.WithLabelValues(name, outcome(err)).Inc()
	pipelinePoints.WithLabelValues(name).Set(float64(points))
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
