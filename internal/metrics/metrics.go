// Package metrics exports storage and pipeline telemetry to Prometheus.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"go-stamppdf/internal/storage"
)

const Namespace = "stamppdf"

// register adds c to reg, returning the collector already registered under
// the same description when there is one.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

// StorageObserver implements storage.Observer.
type StorageObserver struct {
	duration       *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	uploadedBytes  prometheus.Counter
	verifyAttempts prometheus.Histogram
}

// NewStorageObserver registers the storage metrics on reg, or on the default
// registerer when reg is nil.
func NewStorageObserver(reg prometheus.Registerer) (*StorageObserver, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &StorageObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Latency of object storage operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "storage",
			Name:      "operation_errors_total",
			Help:      "Count of object storage failures.",
		}, []string{"operation"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "storage",
			Name:      "uploaded_bytes_total",
			Help:      "Cumulative payload size uploaded to object storage.",
		}),
		verifyAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "storage",
			Name:      "verify_attempts",
			Help:      "Download attempts needed to verify an upload.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}),
	}

	var err error
	if o.duration, err = register(reg, o.duration); err != nil {
		return nil, err
	}
	if o.errors, err = register(reg, o.errors); err != nil {
		return nil, err
	}
	if o.uploadedBytes, err = register(reg, o.uploadedBytes); err != nil {
		return nil, err
	}
	if o.verifyAttempts, err = register(reg, o.verifyAttempts); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *StorageObserver) RecordUpload(duration time.Duration, sizeBytes uint64, err error) {
	if o == nil {
		return
	}
	o.record("upload", duration, err)
	if err == nil {
		o.uploadedBytes.Add(float64(sizeBytes))
	}
}

func (o *StorageObserver) RecordDownload(duration time.Duration, err error) {
	o.record("download", duration, err)
}

func (o *StorageObserver) RecordDelete(duration time.Duration, err error) {
	o.record("delete", duration, err)
}

func (o *StorageObserver) RecordVerify(attempts int, err error) {
	if o == nil {
		return
	}
	o.verifyAttempts.Observe(float64(attempts))
	if err != nil {
		o.errors.WithLabelValues("verify").Inc()
	}
}

func (o *StorageObserver) record(op string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		o.errors.WithLabelValues(op).Inc()
	}
}

var _ storage.Observer = (*StorageObserver)(nil)

// PipelineObserver counts stamping requests by flow and outcome.
type PipelineObserver struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewPipelineObserver(reg prometheus.Registerer) (*PipelineObserver, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PipelineObserver{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Stamping requests by flow and outcome.",
		}, []string{"flow", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "End to end stamping latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow"}),
	}
	var err error
	if o.requests, err = register(reg, o.requests); err != nil {
		return nil, err
	}
	if o.duration, err = register(reg, o.duration); err != nil {
		return nil, err
	}
	return o, nil
}

// RecordRequest observes one request. outcome is "ok" or an error kind.
func (o *PipelineObserver) RecordRequest(flow, outcome string, duration time.Duration) {
	if o == nil {
		return
	}
	o.requests.WithLabelValues(flow, outcome).Inc()
	o.duration.WithLabelValues(flow).Observe(duration.Seconds())
}
