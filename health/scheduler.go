package health

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// scheduler runs tasks with a fixed delay between the end of one run and the
// start of the next. One goroutine dispatches due tasks; each run executes on
// its own goroutine and a task never overlaps itself.
type scheduler struct {
	now func() time.Time

	mu      sync.Mutex
	queue   taskQueue
	tasks   map[string]*task
	wake    chan struct{}
	stopped bool

	ctx  context.Context
	stop context.CancelFunc
	runs sync.WaitGroup
	done chan struct{}
}

type task struct {
	id     string
	delay  time.Duration
	run    func(context.Context)
	next   time.Time
	index  int // heap position, -1 while running or cancelled
	ctx    context.Context
	cancel context.CancelFunc
}

func newScheduler(now func() time.Time) *scheduler {
	ctx, stop := context.WithCancel(context.Background())
	s := &scheduler{
		now:   now,
		tasks: make(map[string]*task),
		wake:  make(chan struct{}, 1),
		ctx:   ctx,
		stop:  stop,
		done:  make(chan struct{}),
	}
	go s.loop()
	return s
}

// schedule starts running fn for id immediately and then every delay after
// each run completes. It replaces any task already scheduled for id.
func (s *scheduler) schedule(id string, delay time.Duration, fn func(context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if old, ok := s.tasks[id]; ok {
		s.cancelLocked(old)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	t := &task{id: id, delay: delay, run: fn, next: s.now(), ctx: ctx, cancel: cancel}
	s.tasks[id] = t
	heap.Push(&s.queue, t)
	s.signal()
	return true
}

// cancel stops the task for id, interrupting a run in progress.
func (s *scheduler) cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if ok {
		s.cancelLocked(t)
	}
	return ok
}

func (s *scheduler) cancelLocked(t *task) {
	t.cancel()
	delete(s.tasks, t.id)
	if t.index >= 0 {
		heap.Remove(&s.queue, t.index)
	}
}

// scheduled reports whether a task is registered for id.
func (s *scheduler) scheduled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	return ok
}

// shutdown cancels every task and waits for runs to return or ctx to end.
func (s *scheduler) shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		s.stop()
		for _, t := range s.tasks {
			s.cancelLocked(t)
		}
		s.signal()
	}
	s.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		<-s.done
		s.runs.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *scheduler) loop() {
	defer close(s.done)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		wait := time.Hour
		now := s.now()
		for s.queue.Len() > 0 {
			t := s.queue[0]
			if d := t.next.Sub(now); d > 0 {
				wait = d
				break
			}
			heap.Pop(&s.queue)
			s.dispatchLocked(t)
		}
		s.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
		case <-s.wake:
		}
	}
}

// dispatchLocked runs t on its own goroutine and requeues it afterwards.
func (s *scheduler) dispatchLocked(t *task) {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		t.run(t.ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stopped || s.tasks[t.id] != t {
			return
		}
		t.next = s.now().Add(t.delay)
		heap.Push(&s.queue, t)
		s.signal()
	}()
}

// taskQueue is a min-heap of tasks ordered by next run time.
type taskQueue []*task

func (q taskQueue) Len() int           { return len(q) }
func (q taskQueue) Less(i, j int) bool { return q[i].next.Before(q[j].next) }
func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
