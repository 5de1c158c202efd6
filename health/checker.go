package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/resilience"
)

const (
	// DefaultPoolSize is the number of checks a Checker runs at once.
	DefaultPoolSize = 16

	// DefaultMaxInFlight caps outstanding evaluations of one dependency id.
	DefaultMaxInFlight = 2
)

// Result messages for failures synthesized by the Checker.
const (
	msgTimedOut     = "Timed out prior to completion"
	msgInterrupted  = "Check interrupted before completion"
	msgCancelled    = "Check was cancelled before completion"
	msgPoolRejected = "Check could not start: worker pool exhausted"
	msgPanicked     = "Check panicked"
	msgNoResult     = "Check returned no result"
	msgUnknown      = "Check failed for an unknown reason"
)

// CheckerConfig configures a Checker.
type CheckerConfig struct {
	// PoolSize bounds how many checks execute at once. A round evaluates at
	// most PoolSize dependencies at a time; submissions that still find the
	// pool full, because concurrent rounds or abandoned checks hold it, fail
	// fast with ErrPoolExhausted.
	// Default: 16
	PoolSize int

	// MaxInFlight caps concurrent evaluations of the same dependency id.
	// Callers sharing one execution each count against the cap.
	// Default: 2
	MaxInFlight int

	// Sequential evaluates dependencies one at a time instead of in parallel.
	Sequential bool

	// Logger receives lifecycle diagnostics. Default: no-op.
	Logger observe.Logger

	// Tracer opens a span per dependency evaluation. Default: no-op.
	Tracer observe.Tracer

	// Metrics records per-check and system status measurements. Default: no-op.
	Metrics observe.Metrics

	// Now overrides the clock. Default: time.Now.
	Now func() time.Time
}

// Checker evaluates dependencies safely: each evaluation is bounded by the
// dependency's timeout, shared with concurrent evaluations of the same id,
// capped per id and converted into a CheckResult whatever happens.
//
// Nothing is retried; each call is one attempt.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: cancelling ctx interrupts waiting; the interrupted check is
//   recorded as an OUTAGE and ctx remains cancelled for the caller.
// - Errors: only lifecycle misuse (duplicate ids in one round) is returned.
type Checker struct {
	config   CheckerConfig
	exec     *executor
	inflight *resilience.KeyedBulkhead
	mw       *observe.Middleware
	logger   observe.Logger
	metrics  observe.Metrics
	now      func() time.Time
}

// NewChecker creates a Checker with defaults applied.
func NewChecker(config CheckerConfig) *Checker {
	if config.PoolSize <= 0 {
		config.PoolSize = DefaultPoolSize
	}
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = DefaultMaxInFlight
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Checker{
		config:   config,
		exec:     newExecutor(config.PoolSize),
		inflight: resilience.NewKeyedBulkhead(resilience.BulkheadConfig{MaxConcurrent: config.MaxInFlight}),
		mw:       observe.NewMiddleware(config.Tracer, config.Metrics, config.Logger),
		logger:   config.Logger,
		metrics:  config.Metrics,
		now:      config.Now,
	}
}

// NewResultSet starts a round that shares the Checker's logger and clock.
func (c *Checker) NewResultSet() *ResultSet {
	return newResultSet(c.logger, c.now)
}

// Evaluate checks every dependency in a fresh round and returns it.
func (c *Checker) Evaluate(ctx context.Context, deps []Dependency) (*ResultSet, error) {
	rs := c.NewResultSet()
	err := c.EvaluateInto(ctx, rs, deps)
	return rs, err
}

// EvaluateInto checks every dependency into rs. It returns the joined
// lifecycle errors of dependencies that could not be initialized in rs; all
// other outcomes are recorded as results.
func (c *Checker) EvaluateInto(ctx context.Context, rs *ResultSet, deps []Dependency) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	if c.config.Sequential {
		g.SetLimit(1)
	} else {
		// One round never holds more pool slots than exist.
		g.SetLimit(c.config.PoolSize)
	}

	for _, dep := range deps {
		g.Go(func() error {
			if err := c.check(ctx, rs, dep); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	status := rs.SystemStatus()
	c.metrics.RecordSystemStatus(ctx, rs.AppName(), status.String(), int64(status))
	return errors.Join(errs...)
}

// EvaluateOne checks a single dependency and returns its result. It never returns nil.
func (c *Checker) EvaluateOne(ctx context.Context, dep Dependency) *CheckResult {
	rs := c.NewResultSet()
	if err := c.check(ctx, rs, dep); err != nil {
		return c.failure(dep.Descriptor(), c.now(), err, err.Error())
	}
	if r, ok := rs.Result(dep.Descriptor().ID); ok {
		return r
	}
	return c.failure(dep.Descriptor(), c.now(), ErrNoResult, msgNoResult)
}

// InFlight reports how many callers are currently evaluating id.
func (c *Checker) InFlight(id string) int {
	return c.inflight.Active(id)
}

// Close cancels outstanding executions and rejects new ones.
func (c *Checker) Close() {
	c.exec.close()
}

func (c *Checker) check(ctx context.Context, rs *ResultSet, dep Dependency) error {
	desc := dep.Descriptor()
	if err := rs.Init(desc); err != nil {
		c.logger.Error(ctx, "refusing to evaluate dependency twice in one round",
			observe.F("dependency", desc.ID), observe.F("round", rs.ID()), observe.F("error", err))
		return err
	}

	var result *CheckResult
	if p, ok := dep.(*Pinger); ok {
		result = c.direct(ctx, rs, p)
	} else {
		result = c.pooled(ctx, rs, dep, desc)
	}
	c.record(ctx, rs, result)
	return nil
}

// direct calls a Pinger synchronously. Pingers bound their own execution.
func (c *Checker) direct(ctx context.Context, rs *ResultSet, p *Pinger) *CheckResult {
	desc := p.Descriptor()
	start := c.now()
	c.markExecuting(ctx, rs, desc)

	out := callDependency(ctx, p)
	return c.resolve(desc, start, out)
}

// pooled submits dep to the worker pool and waits up to its timeout.
func (c *Checker) pooled(ctx context.Context, rs *ResultSet, dep Dependency, desc Descriptor) *CheckResult {
	start := c.now()

	if err := c.inflight.Acquire(ctx, desc.ID); err != nil {
		err = fmt.Errorf("%w: %d checks of %q are already outstanding: %w", ErrTooManyInFlight, c.config.MaxInFlight, desc.ID, err)
		return c.failure(desc, start, err, fmt.Sprintf("Too many checks of %s are already in flight", desc.ID))
	}
	defer c.inflight.Release(desc.ID)

	f, ch, err := c.exec.submit(desc.ID, func(fctx context.Context) outcome {
		return c.instrumented(fctx, dep, desc)
	})
	if err != nil {
		return c.failure(desc, start, err, msgPoolRejected)
	}
	defer f.leave()
	c.markExecuting(ctx, rs, desc)

	var timeout <-chan time.Time
	limit := desc.timeout()
	if limit > 0 {
		t := time.NewTimer(limit)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case res := <-ch:
		out, _ := res.Val.(outcome)
		return c.resolve(desc, start, out)

	case <-timeout:
		c.exec.abandon(desc.ID, f, ErrCheckTimeout)
		err := fmt.Errorf("%w after %s", ErrCheckTimeout, limit)
		return c.failure(desc, start, err, msgTimedOut)

	case <-ctx.Done():
		// Other callers may still be waiting on the shared execution.
		if f.waiters.Load() <= 1 {
			c.exec.abandon(desc.ID, f, ErrCheckInterrupted)
		}
		err := fmt.Errorf("%w: %w", ErrCheckInterrupted, context.Cause(ctx))
		return c.failure(desc, start, err, msgInterrupted)
	}
}

func (c *Checker) markExecuting(ctx context.Context, rs *ResultSet, desc Descriptor) {
	if err := rs.Execute(desc); err != nil {
		c.logger.Error(ctx, "dependency already marked executing",
			observe.F("dependency", desc.ID), observe.F("round", rs.ID()), observe.F("error", err))
	}
}

// instrumented runs dep inside the pool with tracing and metrics.
func (c *Checker) instrumented(ctx context.Context, dep Dependency, desc Descriptor) outcome {
	var out outcome
	_, _ = c.mw.Wrap(desc.subject(), func(ctx context.Context) (string, error) {
		out = callDependency(ctx, dep)
		if out.err != nil || out.result == nil {
			if ctx.Err() != nil {
				out.cancelled = true
			}
			return StatusOutage.String(), firstErr(out.err, ErrNoResult)
		}
		return out.result.Status().String(), nil
	})(ctx)
	return out
}

// callDependency evaluates dep, converting a panic into an error.
func callDependency(ctx context.Context, dep Dependency) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: newPanicError(r)}
		}
	}()
	r, err := dep.Evaluate(ctx)
	return outcome{result: r, err: err}
}

// resolve turns an outcome into the result recorded for desc.
func (c *Checker) resolve(desc Descriptor, start time.Time, out outcome) *CheckResult {
	switch {
	case out.err != nil && errors.Is(out.err, ErrCheckPanic):
		return c.failure(desc, start, out.err, msgPanicked)
	case out.cancelled:
		err := fmt.Errorf("%w: %w", ErrCheckCancelled, firstErr(out.err, ErrNoResult))
		return c.failure(desc, start, err, msgCancelled)
	case out.err != nil:
		msg := out.err.Error()
		if msg == "" {
			msg = msgUnknown
		}
		return c.failure(desc, start, out.err, msg)
	case out.result == nil:
		return c.failure(desc, start, ErrNoResult, msgNoResult)
	}

	r := out.result
	if r.ID() == desc.ID && !r.Timestamp().IsZero() {
		return r
	}
	b := ResultFrom(desc, r)
	if r.Timestamp().IsZero() {
		b.WithTimestamp(start).WithDuration(c.now().Sub(start))
	}
	return b.Build()
}

// failure synthesizes an OUTAGE result for desc.
func (c *Checker) failure(desc Descriptor, start time.Time, err error, msg string) *CheckResult {
	return NewResult(desc, StatusOutage, msg).
		WithErr(err).
		WithTimestamp(start).
		WithDuration(c.now().Sub(start)).
		WithPeriod(desc.PingPeriod).
		Build()
}

// record completes and finalizes result. Neither step may take the caller down.
func (c *Checker) record(ctx context.Context, rs *ResultSet, result *CheckResult) {
	guard := func(step string, fn func()) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error(ctx, "result set "+step+" panicked",
					observe.F("dependency", result.ID()), observe.F("round", rs.ID()), observe.F("panic", fmt.Sprint(r)))
			}
		}()
		fn()
	}
	guard("completion", func() { rs.Complete(result) })
	guard("finalization", func() { rs.Finalize(result) })
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
