package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonwraymond/healthops/observe"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// AppName is stamped on every evaluation round.
	AppName string

	// PingPeriod is used for pingers whose dependency does not ask for a
	// specific period. Default: DefaultPingPeriod.
	PingPeriod time.Duration

	// PoolSize and MaxInFlight configure the shared Checker.
	PoolSize    int
	MaxInFlight int

	// Sequential evaluates registered dependencies one at a time.
	Sequential bool

	// Throttle wraps registered dependencies other than pingers in Throttled.
	Throttle bool

	Logger  observe.Logger
	Tracer  observe.Tracer
	Metrics observe.Metrics
	Now     func() time.Time
}

// Manager owns the dependency registry, schedules pingers and evaluates the
// registry on demand.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: Evaluate honors ctx for waiting; Shutdown waits for in-progress
//   pinger runs until ctx ends.
// - Errors: registry misuse returns ErrDuplicateDependency or
//   ErrDependencyNotFound; check failures are reported as results.
type Manager struct {
	config    ManagerConfig
	checker   *Checker
	scheduler *scheduler
	listeners *Dispatcher
	logger    observe.Logger

	mu     sync.RWMutex
	deps   map[string]Dependency
	closed bool
}

// NewManager creates a Manager with defaults applied.
func NewManager(config ManagerConfig) *Manager {
	if config.PingPeriod <= 0 {
		config.PingPeriod = DefaultPingPeriod
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
	if config.AppName != "" {
		config.Logger = config.Logger.With(observe.F("app", config.AppName))
	}

	return &Manager{
		config: config,
		checker: NewChecker(CheckerConfig{
			PoolSize:    config.PoolSize,
			MaxInFlight: config.MaxInFlight,
			Sequential:  config.Sequential,
			Logger:      config.Logger,
			Tracer:      config.Tracer,
			Metrics:     config.Metrics,
			Now:         config.Now,
		}),
		scheduler: newScheduler(time.Now),
		listeners: NewDispatcher(config.Logger),
		logger:    config.Logger,
		deps:      make(map[string]Dependency),
	}
}

// AppName returns the application name stamped on rounds.
func (m *Manager) AppName() string { return m.config.AppName }

// Checker returns the Checker the manager evaluates with.
func (m *Manager) Checker() *Checker { return m.checker }

// AddDependency registers dep and notifies OnAdded.
func (m *Manager) AddDependency(dep Dependency) error {
	if dep == nil {
		return ErrNilDependency
	}
	if err := dep.Descriptor().Validate(); err != nil {
		return err
	}
	if m.config.Throttle {
		dep = Throttle(dep)
	}
	if err := m.register(dep); err != nil {
		return err
	}

	m.logger.Info(context.Background(), "dependency added", observe.F("dependency", dep.Descriptor().ID))
	m.listeners.added(dep)
	return nil
}

func (m *Manager) register(dep Dependency) error {
	id := dep.Descriptor().ID

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	if _, ok := m.deps[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateDependency, id)
	}
	m.deps[id] = dep
	return nil
}

// LaunchPinger wraps dep in a Pinger, registers it and starts sampling it
// immediately with a fixed delay between runs.
//
// The pinger uses the dependency's own period when it sets one other than
// DefaultPingPeriod, and the manager's period otherwise.
func (m *Manager) LaunchPinger(dep Dependency) (*Pinger, error) {
	if dep == nil {
		return nil, ErrNilDependency
	}
	period := m.config.PingPeriod
	if p := dep.Descriptor().PingPeriod; p > 0 && p != DefaultPingPeriod {
		period = p
	}

	p, err := NewPinger(dep, PingerConfig{
		PingPeriod: period,
		Logger:     m.config.Logger,
		Tracer:     m.config.Tracer,
		Metrics:    m.config.Metrics,
		Now:        m.config.Now,
	})
	if err != nil {
		return nil, err
	}
	if err := m.register(p); err != nil {
		p.Close()
		return nil, err
	}
	p.AddListener(forward{to: m.listeners})

	id := p.Descriptor().ID
	if !m.scheduler.schedule(id, period, func(ctx context.Context) { p.Run(ctx) }) {
		m.unregister(id)
		p.Close()
		return nil, ErrManagerClosed
	}

	m.logger.Info(context.Background(), "pinger launched",
		observe.F("dependency", id), observe.F("period", period.String()))
	m.listeners.added(p)
	return p, nil
}

// RemoveDependency unregisters id, interrupting its scheduled pinger if any,
// and notifies OnRemoved.
func (m *Manager) RemoveDependency(id string) error {
	dep, ok := m.unregister(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrDependencyNotFound, id)
	}
	m.scheduler.cancel(id)
	if p, ok := dep.(*Pinger); ok {
		p.Close()
	}

	m.logger.Info(context.Background(), "dependency removed", observe.F("dependency", id))
	m.listeners.removed(dep)
	return nil
}

func (m *Manager) unregister(id string) (Dependency, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dep, ok := m.deps[id]
	delete(m.deps, id)
	return dep, ok
}

// Dependency returns the registered dependency for id.
func (m *Manager) Dependency(id string) (Dependency, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dep, ok := m.deps[id]
	return dep, ok
}

// Dependencies returns the registered dependencies sorted by id.
func (m *Manager) Dependencies() []Dependency {
	m.mu.RLock()
	out := make([]Dependency, 0, len(m.deps))
	for _, dep := range m.deps {
		out = append(out, dep)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Descriptor().ID < out[j].Descriptor().ID
	})
	return out
}

// DependencyIDs returns the registered ids, sorted.
func (m *Manager) DependencyIDs() []string {
	deps := m.Dependencies()
	ids := make([]string, len(deps))
	for i, dep := range deps {
		ids[i] = dep.Descriptor().ID
	}
	return ids
}

// Evaluate checks every registered dependency in a new round.
func (m *Manager) Evaluate(ctx context.Context) (*ResultSet, error) {
	return m.evaluate(ctx, m.Dependencies())
}

// EvaluateLive checks every dependency in a new round, bypassing pinger
// caches: a pinger's wrapped dependency is evaluated directly and the
// pinger's own state is left untouched.
func (m *Manager) EvaluateLive(ctx context.Context) (*ResultSet, error) {
	deps := m.Dependencies()
	for i, dep := range deps {
		if p, ok := dep.(*Pinger); ok {
			deps[i] = p.Unwrap()
		}
	}
	return m.evaluate(ctx, deps)
}

// EvaluateID checks the dependency registered as id in a new round.
func (m *Manager) EvaluateID(ctx context.Context, id string) (*ResultSet, error) {
	dep, ok := m.Dependency(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDependencyNotFound, id)
	}
	return m.evaluate(ctx, []Dependency{dep})
}

func (m *Manager) evaluate(ctx context.Context, deps []Dependency) (*ResultSet, error) {
	rs := m.checker.NewResultSet()
	rs.SetAppName(m.config.AppName)
	err := m.checker.EvaluateInto(ctx, rs, deps)
	return rs, err
}

// AddListener registers l for events from every dependency.
func (m *Manager) AddListener(l Listener) { m.listeners.Add(l) }

// ClearListeners removes every listener.
func (m *Manager) ClearListeners() { m.listeners.Clear() }

// Listeners returns a copy of the registered listeners.
func (m *Manager) Listeners() []Listener { return m.listeners.Listeners() }

// Shutdown stops scheduling, interrupts pinger runs and waits for them until
// ctx ends. Registration fails with ErrManagerClosed afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	var pingers []*Pinger
	for _, dep := range m.deps {
		if p, ok := dep.(*Pinger); ok {
			pingers = append(pingers, p)
		}
	}
	m.mu.Unlock()

	err := m.scheduler.shutdown(ctx)
	for _, p := range pingers {
		p.Close()
	}
	m.checker.Close()
	return err
}
