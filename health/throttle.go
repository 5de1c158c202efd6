package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/healthops/resilience"
)

// ThrottleLimit is the number of concurrent calls a Throttled dependency admits.
const ThrottleLimit = 2

// Throttled admits at most ThrottleLimit concurrent evaluations of the wrapped
// dependency. Excess calls get an OUTAGE result without reaching it.
type Throttled struct {
	dep      Dependency
	bulkhead *resilience.Bulkhead
	now      func() time.Time
}

// Throttle wraps dep in a Throttled. Pingers already serialize their runs and
// are returned unchanged, as are dependencies that are already throttled.
func Throttle(dep Dependency) Dependency {
	switch dep.(type) {
	case *Pinger, *Throttled:
		return dep
	}
	return &Throttled{
		dep:      dep,
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: ThrottleLimit}),
		now:      time.Now,
	}
}

// Descriptor returns the wrapped dependency's descriptor.
func (t *Throttled) Descriptor() Descriptor { return t.dep.Descriptor() }

// Unwrap returns the wrapped dependency.
func (t *Throttled) Unwrap() Dependency { return t.dep }

// Evaluate calls the wrapped dependency if a slot is free.
func (t *Throttled) Evaluate(ctx context.Context) (*CheckResult, error) {
	if !t.bulkhead.TryAcquire() {
		desc := t.dep.Descriptor()
		err := fmt.Errorf("%w: %d earlier checks of %q have not returned", ErrTooManyInFlight, ThrottleLimit, desc.ID)
		return NewResult(desc, StatusOutage, "Unable to check: earlier checks have not returned").
			WithErr(err).
			WithTimestamp(t.now()).
			WithPeriod(desc.PingPeriod).
			Build(), nil
	}
	defer t.bulkhead.Release()
	return t.dep.Evaluate(ctx)
}

// Active returns the number of calls currently inside the wrapped dependency.
func (t *Throttled) Active() int {
	return t.bulkhead.Metrics().Active
}
