package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records health evaluation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCheck records one dependency evaluation and its reported status.
	RecordCheck(ctx context.Context, subject Subject, status string, duration time.Duration, err error)

	// RecordSystemStatus records the folded status of an evaluation round.
	// level orders statuses worst (0) to best.
	RecordSystemStatus(ctx context.Context, app string, status string, level int64)

	// RecordPingerRun records one background run and the consecutive failure count after it.
	RecordPingerRun(ctx context.Context, subject Subject, status string, consecutiveFailures int64)
}

type metricsImpl struct {
	checkCount       metric.Int64Counter
	errorCount       metric.Int64Counter
	durationHist     metric.Float64Histogram
	systemStatus     metric.Int64Gauge
	pingerRuns       metric.Int64Counter
	consecutiveGauge metric.Int64Gauge
}

// NewMetrics creates Metrics backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	checkCount, err := meter.Int64Counter(
		"health.check.total",
		metric.WithDescription("Total number of dependency evaluations"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"health.check.errors",
		metric.WithDescription("Dependency evaluations that ended in an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"health.check.duration_ms",
		metric.WithDescription("Dependency evaluation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	systemStatus, err := meter.Int64Gauge(
		"health.system.status",
		metric.WithDescription("Folded system status: 0 outage, 1 major, 2 minor, 3 ok"),
	)
	if err != nil {
		return nil, err
	}

	pingerRuns, err := meter.Int64Counter(
		"health.pinger.runs",
		metric.WithDescription("Background pinger runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	consecutiveGauge, err := meter.Int64Gauge(
		"health.pinger.consecutive_failures",
		metric.WithDescription("Consecutive failed pinger runs"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		checkCount:       checkCount,
		errorCount:       errorCount,
		durationHist:     durationHist,
		systemStatus:     systemStatus,
		pingerRuns:       pingerRuns,
		consecutiveGauge: consecutiveGauge,
	}, nil
}

func (m *metricsImpl) RecordCheck(ctx context.Context, subject Subject, status string, duration time.Duration, err error) {
	attrs := append(subject.attributes(), attribute.String("check.status", status))
	opt := metric.WithAttributes(attrs...)

	m.checkCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(subject.attributes()...))
}

func (m *metricsImpl) RecordSystemStatus(ctx context.Context, app string, status string, level int64) {
	m.systemStatus.Record(ctx, level, metric.WithAttributes(
		attribute.String("app", app),
		attribute.String("system.status", status),
	))
}

func (m *metricsImpl) RecordPingerRun(ctx context.Context, subject Subject, status string, consecutiveFailures int64) {
	m.pingerRuns.Add(ctx, 1, metric.WithAttributes(
		append(subject.attributes(), attribute.String("check.status", status))...,
	))
	m.consecutiveGauge.Record(ctx, consecutiveFailures, metric.WithAttributes(subject.attributes()...))
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordCheck(context.Context, Subject, string, time.Duration, error) {}
func (noopMetrics) RecordSystemStatus(context.Context, string, string, int64)       {}
func (noopMetrics) RecordPingerRun(context.Context, Subject, string, int64)          {}
