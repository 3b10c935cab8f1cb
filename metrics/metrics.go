// Package metrics collects request and upload metrics for the data lake client.
//
// Collectors live on a private registry. A long-running process serves them
// with Handler; the CLI writes them once per invocation with WriteTextfile for
// the node exporter textfile collector.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sagarc03/datalake"
)

const namespace = "datalake"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics implements transport.Observer and upload.Observer.
type Metrics struct {
	reg         *prometheus.Registry
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	uploads     *prometheus.CounterVec
	uploadBytes prometheus.Counter
}

// New creates a Metrics instance with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      "requests_total",
		Help:      "Total API requests by method and status code.",
	}, []string{"method", "code"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      "request_duration_seconds",
		Help:      "Histogram of API request latencies.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upload",
		Name:      "total",
		Help:      "Finished uploads by outcome and the last stage that ran.",
	}, []string{"outcome", "stage"})
	uploadBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upload",
		Name:      "bytes_total",
		Help:      "Bytes of confirmed uploads.",
	})

	reg.MustRegister(requests, latency, uploads, uploadBytes)

	return &Metrics{
		reg:         reg,
		requests:    requests,
		latency:     latency,
		uploads:     uploads,
		uploadBytes: uploadBytes,
	}
}

// ObserveRequest records one transport call.
func (m *Metrics) ObserveRequest(method string, statusCode int, err error, elapsed time.Duration) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	m.requests.WithLabelValues(method, code).Inc()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveUpload records a finished upload run.
func (m *Metrics) ObserveUpload(stage datalake.Stage, err error, size int64) {
	if err != nil {
		var se *datalake.StageError
		if errors.As(err, &se) {
			stage = se.Stage
		}
		m.uploads.WithLabelValues(OutcomeFailure, string(stage)).Inc()
		return
	}
	m.uploads.WithLabelValues(OutcomeSuccess, string(stage)).Inc()
	m.uploadBytes.Add(float64(size))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
