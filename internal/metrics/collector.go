// Package metrics exposes pipeline, intake and HTTP metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Vovarama1992/kisan_voice/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kisan_voice"

type Collector struct {
	// pipeline
	stageDuration  *prometheus.HistogramVec
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	pronunciations *prometheus.CounterVec

	// intake
	updatesTotal *prometheus.CounterVec

	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	reg      prometheus.Registerer
	gatherer prometheus.Gatherer
}

// NewCollector registers everything on reg. Tests pass a fresh prometheus.NewRegistry().
func NewCollector(reg *prometheus.Registry) *Collector {
	f := promauto.With(reg)
	c := &Collector{reg: reg, gatherer: reg}

	c.stageDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock time of one pipeline stage",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"stage", "outcome"},
	)

	c.runsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished pipeline runs",
		},
		[]string{"source", "state", "kind"},
	)

	c.runDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end time of a pipeline run",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"source"},
	)

	c.pronunciations = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pronunciation_outcomes_total",
			Help:      "How replies were prepared for synthesis",
		},
		[]string{"outcome"},
	)

	c.updatesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_updates_total",
			Help:      "Inbound updates by intake status",
		},
		[]string{"status"},
	)

	c.httpRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	return c
}

// StageDone implements pipeline.Recorder.
func (c *Collector) StageDone(_ *pipeline.Run, r pipeline.StageReport) {
	outcome := "ok"
	if r.Err != nil {
		outcome = string(r.Kind)
	}
	c.stageDuration.WithLabelValues(string(r.Stage), outcome).Observe(r.Duration.Seconds())
}

// RunDone implements pipeline.Recorder.
func (c *Collector) RunDone(run *pipeline.Run) {
	kind := ""
	if run.Failure != nil {
		kind = string(run.Failure.Kind)
	}
	c.runsTotal.WithLabelValues(run.Source, string(run.State), kind).Inc()
	c.runDuration.WithLabelValues(run.Source).Observe(run.Duration().Seconds())
	if run.Prepared.Outcome != "" {
		c.pronunciations.WithLabelValues(string(run.Prepared.Outcome)).Inc()
	}
}

// UpdateAccepted implements telegram.Observer.
func (c *Collector) UpdateAccepted(status string) {
	c.updatesTotal.WithLabelValues(status).Inc()
}

// QueueGauges exports the worker queue depth and capacity.
func (c *Collector) QueueGauges(depth, capacity func() int) {
	promauto.With(c.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_queue_depth",
		Help:      "Jobs waiting for a worker",
	}, func() float64 { return float64(depth()) })
	promauto.With(c.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_queue_capacity",
		Help:      "Size of the worker queue",
	}, func() float64 { return float64(capacity()) })
}

// unmatchedPath labels requests no route matched, keeping label cardinality bounded.
const unmatchedPath = "unmatched"

// Middleware counts requests by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := unmatchedPath
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				path = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		c.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler serves /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
