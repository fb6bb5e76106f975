package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-course-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
// It also receives actor lifecycle callbacks and scoring fallback notices.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	actorDuration     *prometheus.HistogramVec
	actorOps          *prometheus.CounterVec
	activations       *prometheus.GaugeVec
	stateDuration     *prometheus.HistogramVec
	enrollments       *prometheus.CounterVec
	scoringFallbacks  *prometheus.CounterVec
	repairQueueOnce   sync.Once
	repairQueuePeeker atomic.Value

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	actorOpCount         uint64
	actorDurationTotal   uint64
	activeCount          int64
	stateWriteCount      uint64
	stateWriteTotal      uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	actorDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "actor_operation_duration_seconds",
		Help:    "Duration of actor turns",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"kind"})

	actorOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "actor_operations_total",
		Help: "Actor turns by kind and outcome",
	}, []string{"kind", "outcome"})

	activations := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "actor_activations",
		Help: "Live actor activations by kind",
	}, []string{"kind"})

	stateDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "state_store_duration_seconds",
		Help:    "Latency of actor state persistence",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "op"})

	enrollments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_outcomes_total",
		Help: "Enrollment attempts by outcome",
	}, []string{"outcome"})

	scoringFallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scoring_fallbacks_total",
		Help: "Scores produced by fallback rules",
	}, []string{"kind"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		actorDuration, actorOps, activations, stateDuration, enrollments, scoringFallbacks, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		actorDuration:    actorDuration,
		actorOps:         actorOps,
		activations:      activations,
		stateDuration:    stateDuration,
		enrollments:      enrollments,
		scoringFallbacks: scoringFallbacks,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// Activated counts a new actor activation.
func (m *MetricsService) Activated(kind string) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(kind).Inc()
	atomic.AddInt64(&m.activeCount, 1)
}

// Deactivated counts a retired actor activation.
func (m *MetricsService) Deactivated(kind string) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(kind).Dec()
	atomic.AddInt64(&m.activeCount, -1)
}

// Observed records one actor turn.
func (m *MetricsService) Observed(kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.actorDuration.WithLabelValues(kind).Observe(duration.Seconds())
	m.actorOps.WithLabelValues(kind, outcome).Inc()
	atomic.AddUint64(&m.actorOpCount, 1)
	atomic.AddUint64(&m.actorDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveStateOperation records persistence latency per backend.
func (m *MetricsService) ObserveStateOperation(backend, op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stateDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
	if op == "write" {
		atomic.AddUint64(&m.stateWriteCount, 1)
		atomic.AddUint64(&m.stateWriteTotal, uint64(duration.Nanoseconds()))
	}
}

// RecordEnrollment counts an enrollment outcome.
func (m *MetricsService) RecordEnrollment(outcome models.EnrollmentOutcome) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(string(outcome)).Inc()
}

// RecordScoringFallback counts a score produced without a trained model.
func (m *MetricsService) RecordScoringFallback(kind string) {
	if m == nil {
		return
	}
	m.scoringFallbacks.WithLabelValues(kind).Inc()
}

// TrackRepairQueue exposes the pending repair count. Only the first call
// registers the gauge.
func (m *MetricsService) TrackRepairQueue(pending func() int) {
	if m == nil || pending == nil {
		return
	}
	m.repairQueuePeeker.Store(pending)
	m.repairQueueOnce.Do(func() {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "enrollment_repairs_pending",
			Help: "Enrollment repairs waiting to complete",
		}, func() float64 {
			return float64(m.pendingRepairs())
		}))
	})
}

func (m *MetricsService) pendingRepairs() int {
	fn, ok := m.repairQueuePeeker.Load().(func() int)
	if !ok {
		return 0
	}
	return fn()
}

// Snapshot returns aggregated metrics suitable for analytics endpoints.
func (m *MetricsService) Snapshot() models.AnalyticsSystemMetrics {
	if m == nil {
		return models.AnalyticsSystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	actorOps := atomic.LoadUint64(&m.actorOpCount)
	actorDuration := atomic.LoadUint64(&m.actorDurationTotal)
	writes := atomic.LoadUint64(&m.stateWriteCount)
	writeDuration := atomic.LoadUint64(&m.stateWriteTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	return models.AnalyticsSystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: averageMs(reqDuration, requests),
		ActorOperations:          actorOps,
		AverageActorOperationMs:  averageMs(actorDuration, actorOps),
		ActiveActivations:        int(atomic.LoadInt64(&m.activeCount)),
		StateWrites:              writes,
		AverageStateWriteMs:      averageMs(writeDuration, writes),
		EnrollmentRepairsPending: m.pendingRepairs(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func averageMs(totalNanos, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNanos) / float64(count) / float64(time.Millisecond)
}
