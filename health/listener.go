package health

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonwraymond/healthops/observe"
)

// Listener observes dependency lifecycle and evaluation events.
//
// Contract:
// - Concurrency: callbacks may arrive from several goroutines at once.
// - Errors: a panicking callback is recovered and logged; other listeners
//   still receive the event.
type Listener interface {
	OnAdded(dep Dependency)
	OnRemoved(dep Dependency)

	// OnChecked fires after every background run.
	OnChecked(dep Dependency, result *CheckResult)

	// OnChanged fires when a run's status differs from the previous one.
	// prev is nil on the first run.
	OnChanged(dep Dependency, prev, next *CheckResult)
}

// ListenerFuncs adapts optional functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Added   func(dep Dependency)
	Removed func(dep Dependency)
	Checked func(dep Dependency, result *CheckResult)
	Changed func(dep Dependency, prev, next *CheckResult)
}

func (l ListenerFuncs) OnAdded(dep Dependency) {
	if l.Added != nil {
		l.Added(dep)
	}
}

func (l ListenerFuncs) OnRemoved(dep Dependency) {
	if l.Removed != nil {
		l.Removed(dep)
	}
}

func (l ListenerFuncs) OnChecked(dep Dependency, result *CheckResult) {
	if l.Checked != nil {
		l.Checked(dep, result)
	}
}

func (l ListenerFuncs) OnChanged(dep Dependency, prev, next *CheckResult) {
	if l.Changed != nil {
		l.Changed(dep, prev, next)
	}
}

// Dispatcher fans events out to registered listeners.
// The zero value is not usable; create one with NewDispatcher.
type Dispatcher struct {
	logger observe.Logger

	mu        sync.RWMutex
	listeners []Listener
}

// NewDispatcher creates a Dispatcher that logs listener panics to logger.
func NewDispatcher(logger observe.Logger) *Dispatcher {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Dispatcher{logger: logger}
}

// Add registers l. Nil listeners are ignored.
func (d *Dispatcher) Add(l Listener) {
	if l == nil {
		return
	}
	d.mu.Lock()
	d.listeners = append(d.listeners, l)
	d.mu.Unlock()
}

// Clear removes every listener.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	d.listeners = nil
	d.mu.Unlock()
}

// Listeners returns a copy of the registered listeners.
func (d *Dispatcher) Listeners() []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Listener(nil), d.listeners...)
}

func (d *Dispatcher) added(dep Dependency) {
	d.each("added", dep, func(l Listener) { l.OnAdded(dep) })
}

func (d *Dispatcher) removed(dep Dependency) {
	d.each("removed", dep, func(l Listener) { l.OnRemoved(dep) })
}

func (d *Dispatcher) checked(dep Dependency, result *CheckResult) {
	d.each("checked", dep, func(l Listener) { l.OnChecked(dep, result) })
}

func (d *Dispatcher) changed(dep Dependency, prev, next *CheckResult) {
	d.each("changed", dep, func(l Listener) { l.OnChanged(dep, prev, next) })
}

func (d *Dispatcher) each(event string, dep Dependency, fn func(Listener)) {
	for _, l := range d.Listeners() {
		d.safely(event, dep, l, fn)
	}
}

func (d *Dispatcher) safely(event string, dep Dependency, l Listener, fn func(Listener)) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(context.Background(), "listener panicked",
				observe.F("event", event),
				observe.F("dependency", dep.Descriptor().ID),
				observe.F("listener", fmt.Sprintf("%T", l)),
				observe.F("panic", fmt.Sprint(r)))
		}
	}()
	fn(l)
}

// forward relays a Pinger's events to another dispatcher.
type forward struct {
	to *Dispatcher
}

func (f forward) OnAdded(dep Dependency)   { f.to.added(dep) }
func (f forward) OnRemoved(dep Dependency) { f.to.removed(dep) }
func (f forward) OnChecked(dep Dependency, result *CheckResult) {
	f.to.checked(dep, result)
}
func (f forward) OnChanged(dep Dependency, prev, next *CheckResult) {
	f.to.changed(dep, prev, next)
}
