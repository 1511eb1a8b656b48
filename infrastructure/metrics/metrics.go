// Package metrics exposes query and HTTP counters in the Prometheus format.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixml/jobsel/application/service"
	"github.com/helixml/jobsel/domain/selection"
)

const namespace = "jobsel"

// Outcome labels.
const (
	OutcomeOK = "ok"
	// OutcomeOther covers errors that carry no selection error kind.
	OutcomeOther = "error"
)

var outcomes = []struct {
	err   error
	label string
}{
	{selection.ErrUnknownQueue, "unknown_queue"},
	{selection.ErrUnknownAttribute, "unknown_attribute"},
	{selection.ErrUnknownResource, "unknown_resource"},
	{selection.ErrPermissionDenied, "permission_denied"},
	{selection.ErrInvalidOperator, "invalid_operator"},
	{selection.ErrInvalidValue, "invalid_value"},
	{selection.ErrOutOfMemory, "out_of_memory"},
}

// Outcome returns the outcome label for a query error.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			return o.label
		}
	}
	return OutcomeOther
}

// Recorder records query and HTTP metrics on one registry.
type Recorder struct {
	registry        *prometheus.Registry
	queriesTotal    *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	matchedJobs     *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var _ service.Recorder = (*Recorder)(nil)

// NewRecorder creates a Recorder with its own registry. Go runtime and
// process collectors are registered alongside the query metrics.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		queriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of select queries by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Select query latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		matchedJobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "matched_jobs_total",
				Help:      "Total number of jobs returned by successful queries",
			},
			[]string{"kind"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveQuery implements service.Recorder.
func (r *Recorder) ObserveQuery(kind service.Kind, matched int, elapsed time.Duration, err error) {
	k := kind.String()
	r.queriesTotal.WithLabelValues(k, Outcome(err)).Inc()
	r.queryDuration.WithLabelValues(k).Observe(elapsed.Seconds())
	if err == nil {
		r.matchedJobs.WithLabelValues(k).Add(float64(matched))
	}
}

// ObserveRequest records one completed HTTP request.
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the /metrics handler for the registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
