package health

import (
	"cmp"
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// CheckFunc grades a dependency directly. An empty message is fine for OK.
type CheckFunc func(ctx context.Context) (CheckStatus, string, error)

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

// funcDependency adapts a CheckFunc to Dependency.
type funcDependency struct {
	desc  Descriptor
	check CheckFunc
	now   func() time.Time
}

// NewFuncDependency builds a Dependency from a grading function.
// A returned error yields an OUTAGE result carrying it.
func NewFuncDependency(desc Descriptor, check CheckFunc) (Dependency, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if check == nil {
		return nil, ErrNoCheckFunc
	}
	return &funcDependency{desc: desc.withDefaults(), check: check, now: time.Now}, nil
}

func (d *funcDependency) Descriptor() Descriptor { return d.desc }

func (d *funcDependency) Evaluate(ctx context.Context) (*CheckResult, error) {
	start := d.now()
	status, msg, err := d.check(ctx)
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		return NewResult(d.desc, StatusOutage, msg).
			WithErr(err).
			WithTimestamp(start).
			WithDuration(d.now().Sub(start)).
			WithPeriod(d.desc.PingPeriod).
			Build(), nil
	}
	return NewResult(d.desc, status, msg).
		WithTimestamp(start).
		WithDuration(d.now().Sub(start)).
		WithPeriod(d.desc.PingPeriod).
		Build(), nil
}

// PingOption configures NewPingDependency.
type PingOption func(*pingDependency)

// WithToggle gates the check on enabled. While it reads false the check is
// skipped and reported OK.
func WithToggle(enabled *atomic.Bool) PingOption {
	return func(d *pingDependency) { d.toggle = enabled }
}

type pingDependency struct {
	*funcDependency
	toggle *atomic.Bool
}

// NewPingDependency builds a Dependency that is OK when ping returns nil and
// OUTAGE otherwise.
func NewPingDependency(desc Descriptor, ping PingFunc, opts ...PingOption) (Dependency, error) {
	if ping == nil {
		return nil, ErrNoCheckFunc
	}
	d := &pingDependency{}
	for _, opt := range opts {
		opt(d)
	}

	fd, err := NewFuncDependency(desc, func(ctx context.Context) (CheckStatus, string, error) {
		if d.toggle != nil && !d.toggle.Load() {
			return StatusOK, "Check disabled", nil
		}
		if err := ping(ctx); err != nil {
			return StatusOutage, "", err
		}
		return StatusOK, "", nil
	})
	if err != nil {
		return nil, err
	}
	d.funcDependency = fd.(*funcDependency)
	return d, nil
}

// Thresholds grade a measurement: values up to OK are OK, up to Minor are
// MINOR, up to Major are MAJOR and anything larger is an OUTAGE.
type Thresholds[T cmp.Ordered] struct {
	OK    T
	Minor T
	Major T
}

// Validate reports whether the thresholds are ordered.
func (t Thresholds[T]) Validate() error {
	if cmp.Less(t.Minor, t.OK) || cmp.Less(t.Major, t.Minor) {
		return fmt.Errorf("%w: want ok <= minor <= major, got %v, %v, %v", ErrInvalidThresholds, t.OK, t.Minor, t.Major)
	}
	return nil
}

// Grade returns the status for value.
func (t Thresholds[T]) Grade(value T) CheckStatus {
	switch {
	case value <= t.OK:
		return StatusOK
	case value <= t.Minor:
		return StatusMinor
	case value <= t.Major:
		return StatusMajor
	}
	return StatusOutage
}

// NewThresholdDependency builds a Dependency that grades measure against
// thresholds. A measurement error yields an OUTAGE.
func NewThresholdDependency[T cmp.Ordered](desc Descriptor, thresholds Thresholds[T], measure func(ctx context.Context) (T, error)) (Dependency, error) {
	if measure == nil {
		return nil, ErrNoCheckFunc
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return NewFuncDependency(desc, func(ctx context.Context) (CheckStatus, string, error) {
		value, err := measure(ctx)
		if err != nil {
			return StatusOutage, "", err
		}
		status := thresholds.Grade(value)
		if status == StatusOK {
			return status, "", nil
		}
		return status, fmt.Sprintf("%v exceeds %v", value, thresholds.OK), nil
	})
}
