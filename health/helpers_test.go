package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/healthops/observe"
)

type logEntry struct {
	level string
	msg   string
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level, msg})
	l.mu.Unlock()
}

func (l *recordingLogger) Info(_ context.Context, msg string, _ ...observe.Field) {
	l.add("info", msg)
}
func (l *recordingLogger) Warn(_ context.Context, msg string, _ ...observe.Field) {
	l.add("warn", msg)
}
func (l *recordingLogger) Error(_ context.Context, msg string, _ ...observe.Field) {
	l.add("error", msg)
}
func (l *recordingLogger) Debug(_ context.Context, msg string, _ ...observe.Field) {
	l.add("debug", msg)
}
func (l *recordingLogger) With(...observe.Field) observe.Logger { return l }

func (l *recordingLogger) count(level, msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			n++
		}
	}
	return n
}

// stubDependency evaluates through fn and counts calls.
type stubDependency struct {
	desc  Descriptor
	fn    func(ctx context.Context) (*CheckResult, error)
	calls atomic.Int32
}

func newStub(desc Descriptor, fn func(ctx context.Context) (*CheckResult, error)) *stubDependency {
	return &stubDependency{desc: desc, fn: fn}
}

// statusStub always reports status.
func statusStub(desc Descriptor, status CheckStatus) *stubDependency {
	return newStub(desc, func(context.Context) (*CheckResult, error) {
		return NewResult(desc, status, "").Build(), nil
	})
}

func (s *stubDependency) Descriptor() Descriptor { return s.desc }

func (s *stubDependency) Evaluate(ctx context.Context) (*CheckResult, error) {
	s.calls.Add(1)
	return s.fn(ctx)
}

// scriptedDependency reports the statuses it was given, in order, then repeats the last.
type scriptedDependency struct {
	desc Descriptor

	mu     sync.Mutex
	script []CheckStatus
}

func (s *scriptedDependency) Descriptor() Descriptor { return s.desc }

func (s *scriptedDependency) set(statuses ...CheckStatus) {
	s.mu.Lock()
	s.script = statuses
	s.mu.Unlock()
}

func (s *scriptedDependency) Evaluate(context.Context) (*CheckResult, error) {
	s.mu.Lock()
	status := s.script[0]
	if len(s.script) > 1 {
		s.script = s.script[1:]
	}
	s.mu.Unlock()

	msg := ""
	if status != StatusOK {
		msg = "scripted " + status.String()
	}
	return NewResult(s.desc, status, msg).Build(), nil
}

// fakeClock advances only when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
