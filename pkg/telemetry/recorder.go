// Package telemetry exports enrichment run metrics via Prometheus.
package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns the collectors for provider calls, batches and runs
type Recorder struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retries         *prometheus.CounterVec
	batches         *prometheus.CounterVec
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	keywords        *prometheus.CounterVec
	runsInFlight    prometheus.Gauge
}

// NewRecorder registers the collectors against reg (nil means the default registerer).
// Registering twice on the same registry reuses the existing collectors.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kwenrich_api_requests_total",
			Help: "Provider HTTP attempts partitioned by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kwenrich_api_request_duration_seconds",
			Help:    "Provider HTTP attempt latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"endpoint"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kwenrich_api_retries_total",
			Help: "Retries after transient provider failures.",
		}, []string{"endpoint"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kwenrich_batches_total",
			Help: "Batches processed partitioned by result.",
		}, []string{"result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kwenrich_runs_total",
			Help: "Enrichment runs partitioned by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kwenrich_run_duration_seconds",
			Help:    "Wall time per enrichment run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}),
		keywords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kwenrich_keywords_total",
			Help: "Unique keywords partitioned by state (fetched, missing, rejected).",
		}, []string{"state"}),
		runsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kwenrich_runs_in_flight",
			Help: "Runs currently executing.",
		}),
	}

	var err error
	if r.requests, err = register(reg, r.requests); err != nil {
		return nil, err
	}
	if r.requestDuration, err = register(reg, r.requestDuration); err != nil {
		return nil, err
	}
	if r.retries, err = register(reg, r.retries); err != nil {
		return nil, err
	}
	if r.batches, err = register(reg, r.batches); err != nil {
		return nil, err
	}
	if r.runs, err = register(reg, r.runs); err != nil {
		return nil, err
	}
	if r.runDuration, err = register(reg, r.runDuration); err != nil {
		return nil, err
	}
	if r.keywords, err = register(reg, r.keywords); err != nil {
		return nil, err
	}
	if r.runsInFlight, err = register(reg, r.runsInFlight); err != nil {
		return nil, err
	}
	return r, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

// ObserveRequest records one provider HTTP attempt
func (r *Recorder) ObserveRequest(endpoint, outcome string, duration time.Duration) {
	r.requests.WithLabelValues(endpoint, outcome).Inc()
	if duration > 0 {
		r.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	}
}

// ObserveRetry records one retry after a transient failure
func (r *Recorder) ObserveRetry(endpoint string) {
	r.retries.WithLabelValues(endpoint).Inc()
}

// ObserveBatch records a finished batch ("ok", "failed", "canceled")
func (r *Recorder) ObserveBatch(result string) {
	r.batches.WithLabelValues(result).Inc()
}

// RunStarted marks a run as in flight
func (r *Recorder) RunStarted() {
	r.runsInFlight.Inc()
}

// RunFinished records the outcome and duration of a run
func (r *Recorder) RunFinished(result string, duration time.Duration) {
	r.runsInFlight.Dec()
	r.runs.WithLabelValues(result).Inc()
	if duration > 0 {
		r.runDuration.Observe(duration.Seconds())
	}
}

// ObserveKeywords adds unique keyword counts per state
func (r *Recorder) ObserveKeywords(fetched, missing, rejected int) {
	r.keywords.WithLabelValues("fetched").Add(float64(fetched))
	r.keywords.WithLabelValues("missing").Add(float64(missing))
	r.keywords.WithLabelValues("rejected").Add(float64(rejected))
}
