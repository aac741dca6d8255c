// Package metrics exposes Prometheus collectors for the HTTP layer, slate
// submissions, provider ingestion and the live event stream.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "perfect_slate"

// Recorder owns a private registry. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	submissions  *prometheus.CounterVec
	ingestRuns   *prometheus.CounterVec
	ingestGames  *prometheus.CounterVec
	picksGraded  *prometheus.CounterVec
	finalized    *prometheus.CounterVec
	sseClients   prometheus.Gauge
}

// New registers every collector plus the Go and process collectors
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slate_submissions_total",
			Help:      "Slate submissions by result.",
		}, []string{"result"}),
		ingestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Provider ingestion runs by sport, kind and outcome.",
		}, []string{"sport", "kind", "outcome"}),
		ingestGames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_games_total",
			Help:      "Games seen during odds ingestion by sport and disposition.",
		}, []string{"sport", "disposition"}),
		picksGraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "picks_graded_total",
			Help:      "Graded picks by result.",
		}, []string{"result"}),
		finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contests_finalized_total",
			Help:      "Finalized contests by sport and whether the pool rolled over.",
		}, []string{"sport", "rollover"}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Connected live event stream clients.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests,
		r.httpDuration,
		r.submissions,
		r.ingestRuns,
		r.ingestGames,
		r.picksGraded,
		r.finalized,
		r.sseClients,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Submission counts a submission; result is "accepted" or the rejection reason
func (r *Recorder) Submission(result string) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(result).Inc()
}

// IngestRun counts a provider run; kind is "odds" or "scores"
func (r *Recorder) IngestRun(sport, kind string, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.ingestRuns.WithLabelValues(sport, kind, outcome).Inc()
}

func (r *Recorder) IngestGames(sport string, processed, skipped int) {
	if r == nil {
		return
	}
	r.ingestGames.WithLabelValues(sport, "processed").Add(float64(processed))
	r.ingestGames.WithLabelValues(sport, "skipped").Add(float64(skipped))
}

func (r *Recorder) PickGraded(result string) {
	if r == nil {
		return
	}
	r.picksGraded.WithLabelValues(result).Inc()
}

func (r *Recorder) ContestFinalized(sport string, rolledOver bool) {
	if r == nil {
		return
	}
	r.finalized.WithLabelValues(sport, strconv.FormatBool(rolledOver)).Inc()
}

func (r *Recorder) SSEClientConnected() {
	if r == nil {
		return
	}
	r.sseClients.Inc()
}

func (r *Recorder) SSEClientDisconnected() {
	if r == nil {
		return
	}
	r.sseClients.Dec()
}
