package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/healthops/observe"
)

// DefaultFailureThreshold is the number of consecutive failures a Pinger
// tolerates as MINOR before reporting the underlying status.
const DefaultFailureThreshold = 3

// msgNoDetail is reported when a failed run carries no message at all.
const msgNoDetail = "Timed out"

// PingerConfig configures a Pinger.
type PingerConfig struct {
	// PingPeriod overrides the dependency's own period.
	// Default: the descriptor's PingPeriod, else DefaultPingPeriod.
	PingPeriod time.Duration

	// FailureThreshold is how many consecutive failures are softened to MINOR
	// once the dependency has succeeded at least once.
	// Default: 3
	FailureThreshold int

	// Checker evaluates the wrapped dependency. Default: a private Checker
	// the Pinger owns and closes.
	Checker *Checker

	Logger  observe.Logger
	Tracer  observe.Tracer
	Metrics observe.Metrics
	Now     func() time.Time
}

// Pinger samples one dependency in the background and serves the latest
// sample. Short failure streaks after a success are reported as MINOR so a
// single blip does not take the system down.
//
// A Pinger is itself a Dependency and may be registered with a Manager.
//
// Contract:
// - Concurrency: safe for concurrent use. Runs are serialized.
// - Context: Run and the first Evaluate block on the wrapped dependency.
type Pinger struct {
	dep       Dependency
	desc      Descriptor
	threshold int
	checker   *Checker
	owned     bool
	logger    observe.Logger
	metrics   observe.Metrics
	now       func() time.Time
	listeners *Dispatcher

	run  sync.Mutex
	last atomic.Pointer[CheckResult]

	mu                  sync.Mutex
	lastDuration        time.Duration
	lastExecuted        time.Time
	lastKnownGood       time.Time
	totalSuccesses      int64
	totalFailures       int64
	consecutiveFailures int64
	lastThrown          *Thrown
	failures            minuteCounter
}

// PingerStats is a point-in-time copy of a Pinger's counters.
type PingerStats struct {
	ID                  string
	Period              time.Duration
	LastDuration        time.Duration
	LastExecuted        time.Time
	LastKnownGood       time.Time
	TotalSuccesses      int64
	TotalFailures       int64
	ConsecutiveFailures int64
	LastThrown          *Thrown

	// FailuresPerMinute holds failure counts for the last hour, most recent minute first.
	FailuresPerMinute []int64
	FailuresLastHour  int64
}

// NewPinger wraps dep.
func NewPinger(dep Dependency, config PingerConfig) (*Pinger, error) {
	if dep == nil {
		return nil, ErrNilDependency
	}
	desc := dep.Descriptor()
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	desc = desc.withDefaults()
	if config.PingPeriod > 0 {
		desc.PingPeriod = config.PingPeriod
	}
	if desc.PingPeriod <= 0 {
		desc.PingPeriod = DefaultPingPeriod
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultFailureThreshold
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

	p := &Pinger{
		dep:       dep,
		desc:      desc,
		threshold: config.FailureThreshold,
		checker:   config.Checker,
		logger:    config.Logger.With(observe.F("dependency", desc.ID)),
		metrics:   config.Metrics,
		now:       config.Now,
		listeners: NewDispatcher(config.Logger),
	}
	if p.checker == nil {
		p.checker = NewChecker(CheckerConfig{
			PoolSize: 2,
			Logger:   config.Logger,
			Tracer:   config.Tracer,
			Metrics:  config.Metrics,
			Now:      config.Now,
		})
		p.owned = true
	}
	return p, nil
}

// Descriptor returns the wrapped dependency's descriptor with the pinger's period.
func (p *Pinger) Descriptor() Descriptor { return p.desc }

// Unwrap returns the wrapped dependency.
func (p *Pinger) Unwrap() Dependency { return p.dep }

// Period returns the sampling period.
func (p *Pinger) Period() time.Duration { return p.desc.PingPeriod }

// Evaluate returns the latest sample. Before the first run completes it runs
// inline; concurrent first callers wait for that single run.
func (p *Pinger) Evaluate(ctx context.Context) (*CheckResult, error) {
	if r := p.last.Load(); r != nil {
		return r, nil
	}

	p.run.Lock()
	if r := p.last.Load(); r != nil {
		p.run.Unlock()
		return r, nil
	}
	prev, next := p.runLocked(ctx)
	p.run.Unlock()

	p.notify(prev, next)
	return next, nil
}

// Last returns the latest sample, or nil before the first run.
func (p *Pinger) Last() *CheckResult { return p.last.Load() }

// Run samples the wrapped dependency once and notifies listeners.
func (p *Pinger) Run(ctx context.Context) *CheckResult {
	p.run.Lock()
	prev, next := p.runLocked(ctx)
	p.run.Unlock()

	p.notify(prev, next)
	return next
}

// runLocked must be called with p.run held.
func (p *Pinger) runLocked(ctx context.Context) (prev, next *CheckResult) {
	start := p.now()
	reported := p.checker.EvaluateOne(ctx, p.dep)
	elapsed := p.now().Sub(start)

	if reported.Status() == StatusOK {
		next = p.succeeded(reported, start, elapsed)
	} else {
		next = p.failed(reported, start, elapsed)
	}

	prev = p.last.Swap(next)
	p.metrics.RecordPingerRun(ctx, p.desc.subject(), next.Status().String(), p.Stats().ConsecutiveFailures)
	return prev, next
}

func (p *Pinger) succeeded(reported *CheckResult, start time.Time, elapsed time.Duration) *CheckResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.consecutiveFailures = 0
	p.totalSuccesses++
	p.lastDuration = elapsed
	p.lastExecuted = start
	p.lastKnownGood = start
	p.lastThrown = nil

	return ResultFrom(p.desc, reported).
		WithErr(nil).
		WithTimestamp(start).
		WithDuration(elapsed).
		WithLastKnownGood(start).
		WithPeriod(p.desc.PingPeriod).
		Build()
}

func (p *Pinger) failed(reported *CheckResult, start time.Time, elapsed time.Duration) *CheckResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.consecutiveFailures++
	p.totalFailures++
	p.failures.inc(start)
	p.lastDuration = elapsed
	p.lastExecuted = start
	p.lastThrown = reported.Thrown()

	status := reported.Status()
	if p.consecutiveFailures < int64(p.threshold) && p.totalSuccesses > 0 {
		status = StatusMinor
	}

	msg := reported.ErrorMessage()
	if t := reported.Thrown(); t != nil && t.Message != "" {
		msg = t.Message
	}
	if msg == "" {
		msg = msgNoDetail
	}

	return NewResult(p.desc, status, msg).
		WithErr(reported.Err()).
		WithTimestamp(start).
		WithDuration(elapsed).
		WithLastKnownGood(p.lastKnownGood).
		WithPeriod(p.desc.PingPeriod).
		Build()
}

func (p *Pinger) notify(prev, next *CheckResult) {
	if prev == nil || prev.Status() != next.Status() {
		fields := []observe.Field{observe.F("status", next.Status().String())}
		if prev != nil {
			fields = append(fields, observe.F("previous", prev.Status().String()))
		}
		p.logger.Info(context.Background(), "dependency status changed", fields...)
		p.listeners.changed(p, prev, next)
	}
	p.listeners.checked(p, next)
}

// Stats returns a copy of the pinger's counters.
func (p *Pinger) Stats() PingerStats {
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	return PingerStats{
		ID:                  p.desc.ID,
		Period:              p.desc.PingPeriod,
		LastDuration:        p.lastDuration,
		LastExecuted:        p.lastExecuted,
		LastKnownGood:       p.lastKnownGood,
		TotalSuccesses:      p.totalSuccesses,
		TotalFailures:       p.totalFailures,
		ConsecutiveFailures: p.consecutiveFailures,
		LastThrown:          p.lastThrown,
		FailuresPerMinute:   p.failures.last(now, counterBuckets),
		FailuresLastHour:    p.failures.total(now, counterBuckets),
	}
}

// AddListener registers l for this pinger's OnChecked and OnChanged events.
func (p *Pinger) AddListener(l Listener) { p.listeners.Add(l) }

// ClearListeners removes every listener.
func (p *Pinger) ClearListeners() { p.listeners.Clear() }

// Listeners returns a copy of the registered listeners.
func (p *Pinger) Listeners() []Listener { return p.listeners.Listeners() }

// Close releases the private Checker, if the pinger owns one.
func (p *Pinger) Close() {
	if p.owned {
		p.checker.Close()
	}
}
