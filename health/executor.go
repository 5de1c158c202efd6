package health

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// executor runs checks on a bounded pool and shares one execution between
// concurrent submissions for the same id.
type executor struct {
	pool  *semaphore.Weighted
	group singleflight.Group

	base context.Context
	stop context.CancelFunc

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is one outstanding execution.
type flight struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	waiters atomic.Int32
}

// outcome is what a flight delivers to every waiter.
type outcome struct {
	result    *CheckResult
	err       error
	cancelled bool
}

func newExecutor(size int) *executor {
	base, stop := context.WithCancel(context.Background())
	return &executor{
		pool:    semaphore.NewWeighted(int64(size)),
		base:    base,
		stop:    stop,
		flights: make(map[string]*flight),
	}
}

// submit starts run for id, or joins the flight already outstanding for id.
// The returned channel delivers exactly one outcome; the caller must call
// leave on the flight when it stops waiting.
func (e *executor) submit(id string, run func(context.Context) outcome) (*flight, <-chan singleflight.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if f, ok := e.flights[id]; ok {
		f.waiters.Add(1)
		return f, e.group.DoChan(id, orphaned), nil
	}

	if e.base.Err() != nil || !e.pool.TryAcquire(1) {
		return nil, nil, ErrPoolExhausted
	}

	ctx, cancel := context.WithCancelCause(e.base)
	f := &flight{ctx: ctx, cancel: cancel}
	f.waiters.Add(1)
	e.flights[id] = f

	ch := e.group.DoChan(id, func() (any, error) {
		defer e.pool.Release(1)
		out := run(ctx)
		e.detach(id, f)
		cancel(nil)
		return out, nil
	})
	return f, ch, nil
}

// orphaned only runs if a flight is tracked without a singleflight call, which
// detach and submit never allow while holding e.mu.
func orphaned() (any, error) {
	return outcome{err: ErrNoResult}, nil
}

// detach removes f as the flight for id so later submissions start afresh.
func (e *executor) detach(id string, f *flight) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.flights[id] == f {
		e.group.Forget(id)
		delete(e.flights, id)
	}
}

// abandon cancels f with cause and detaches it.
func (e *executor) abandon(id string, f *flight, cause error) {
	f.cancel(cause)
	e.detach(id, f)
}

// leave records that one waiter stopped waiting and returns how many remain.
func (f *flight) leave() int32 {
	return f.waiters.Add(-1)
}

// inFlight reports whether an execution is outstanding for id.
func (e *executor) inFlight(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.flights[id]
	return ok
}

// close cancels every outstanding flight and rejects new submissions.
func (e *executor) close() {
	e.stop()
}
