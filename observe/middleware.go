package observe

import (
	"context"
	"time"
)

// CheckFunc is the signature of an instrumented evaluation. It returns the
// reported status name and any error raised while evaluating.
type CheckFunc func(ctx context.Context) (status string, err error)

// Middleware wraps evaluations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a CheckFunc safe for concurrent use.
//   - Context: the span context is propagated to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap instruments fn for the given subject.
func (m *Middleware) Wrap(subject Subject, fn CheckFunc) CheckFunc {
	return func(ctx context.Context) (string, error) {
		ctx, span := m.tracer.StartSpan(ctx, subject)
		start := time.Now()

		status, err := fn(ctx)

		duration := time.Since(start)
		m.tracer.EndSpan(span, status, err)
		m.metrics.RecordCheck(ctx, subject, status, duration, err)

		fields := []Field{
			{Key: "dependency", Value: subject.ID},
			{Key: "status", Value: status},
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			m.logger.Warn(ctx, "dependency check failed", fields...)
		} else {
			m.logger.Debug(ctx, "dependency check completed", fields...)
		}

		return status, err
	}
}

// Metrics returns the metrics sink used by the middleware.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// Logger returns the logger used by the middleware.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
