package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const metricsJobName = "interview_dispatch"

// Metrics stores Prometheus collectors for one run. The registry is pushed to a
// Pushgateway at the end of the run since the process does not serve HTTP.
type Metrics struct {
	registry *prometheus.Registry

	rowsIngestedTotal      prometheus.Counter
	roundsUploadedTotal    prometheus.Counter
	pendingRounds          prometheus.Gauge
	roundsProcessedTotal   *prometheus.CounterVec
	providerErrorsTotal    *prometheus.CounterVec
	emailSendDuration      *prometheus.HistogramVec
	batchesTotal           prometheus.Counter
	lastRunSuccessUnixtime prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		rowsIngestedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsJobName,
			Name:      "csv_rows_ingested_total",
			Help:      "Total number of candidate rows read from the CSV input.",
		}),
		roundsUploadedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsJobName,
			Name:      "rounds_uploaded_total",
			Help:      "Total number of interview round records created in the store.",
		}),
		pendingRounds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsJobName,
			Name:      "pending_rounds",
			Help:      "Number of pending interview rounds fetched for sending.",
		}),
		roundsProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsJobName,
				Name:      "rounds_processed_total",
				Help:      "Total number of interview rounds reconciled, by final email status.",
			},
			[]string{"status"},
		),
		providerErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsJobName,
				Name:      "provider_errors_total",
				Help:      "Total number of failed provider calls by provider and reason.",
			},
			[]string{"provider", "reason"},
		),
		emailSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsJobName,
				Name:      "email_send_duration_seconds",
				Help:      "Provider send duration in seconds grouped by provider.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"provider"},
		),
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsJobName,
			Name:      "batches_total",
			Help:      "Total number of send batches processed.",
		}),
		lastRunSuccessUnixtime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsJobName,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed without a fatal error.",
		}),
	}

	registry.MustRegister(
		m.rowsIngestedTotal,
		m.roundsUploadedTotal,
		m.pendingRounds,
		m.roundsProcessedTotal,
		m.providerErrorsTotal,
		m.emailSendDuration,
		m.batchesTotal,
		m.lastRunSuccessUnixtime,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) AddRowsIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsIngestedTotal.Add(float64(n))
}

func (m *Metrics) AddRoundsUploaded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.roundsUploadedTotal.Add(float64(n))
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pendingRounds.Set(float64(n))
}

func (m *Metrics) IncRoundProcessed(status string) {
	if m == nil {
		return
	}
	m.roundsProcessedTotal.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *Metrics) IncProviderError(provider string, reason string) {
	if m == nil {
		return
	}
	m.providerErrorsTotal.WithLabelValues(normalizeLabel(provider), normalizeLabel(reason)).Inc()
}

func (m *Metrics) ObserveSendDuration(provider string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.emailSendDuration.WithLabelValues(normalizeLabel(provider)).Observe(seconds)
}

func (m *Metrics) IncBatch() {
	if m == nil {
		return
	}
	m.batchesTotal.Inc()
}

func (m *Metrics) MarkRunSucceeded(at time.Time) {
	if m == nil {
		return
	}
	m.lastRunSuccessUnixtime.Set(float64(at.Unix()))
}

// Push sends the registry to a Pushgateway. An empty url is a no-op.
func (m *Metrics) Push(ctx context.Context, url string, runID string) error {
	if m == nil || strings.TrimSpace(url) == "" {
		return nil
	}

	pusher := push.New(url, metricsJobName).Gatherer(m.registry)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
