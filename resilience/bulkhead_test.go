package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewBulkhead_Defaults(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{})
	if b.config.MaxConcurrent != 10 {
		t.Errorf("MaxConcurrent = %d, want 10", b.config.MaxConcurrent)
	}
}

func TestBulkhead_FailFast(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := b.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() #%d error = %v", i+1, err)
		}
	}
	if err := b.Acquire(ctx); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Acquire() #3 error = %v, want ErrBulkheadFull", err)
	}
	if b.TryAcquire() {
		t.Error("TryAcquire() = true on full bulkhead")
	}

	b.Release()
	if !b.TryAcquire() {
		t.Error("TryAcquire() = false after Release")
	}

	m := b.Metrics()
	if m.Active != 2 || m.MaxActive != 2 || m.Available != 0 || m.Rejected != 1 {
		t.Errorf("Metrics() = %+v, want Active=2 MaxActive=2 Available=0 Rejected=1", m)
	}
}

func TestBulkhead_ReleaseEmptyIsNoop(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	b.Release()
	if m := b.Metrics(); m.Active != 0 {
		t.Errorf("Active = %d, want 0", m.Active)
	}
}

func TestBulkhead_WaitForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.Release()
	}()

	if err := b.Acquire(context.Background()); err != nil {
		t.Errorf("waiting Acquire() error = %v", err)
	}
}

func TestBulkhead_WaitTimesOut(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	_ = b.Acquire(context.Background())

	if err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Acquire() error = %v, want ErrBulkheadFull", err)
	}
}

func TestBulkhead_WaitCancelled(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	_ = b.Acquire(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if err := b.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestBulkhead_ExecuteBoundsConcurrency(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 3, MaxWait: time.Second})

	var current, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Execute(context.Background(), func(context.Context) error {
				n := atomic.AddInt32(&current, 1)
				defer atomic.AddInt32(&current, -1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				return nil
			})
			if err != nil {
				t.Errorf("Execute() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if p := atomic.LoadInt32(&peak); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
}

func TestKeyedBulkhead_IndependentKeys(t *testing.T) {
	k := NewKeyedBulkhead(BulkheadConfig{MaxConcurrent: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := k.Acquire(ctx, "db"); err != nil {
			t.Fatalf("Acquire(db) #%d error = %v", i+1, err)
		}
	}
	if err := k.Acquire(ctx, "db"); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Acquire(db) #3 error = %v, want ErrBulkheadFull", err)
	}
	if err := k.Acquire(ctx, "cache"); err != nil {
		t.Errorf("Acquire(cache) error = %v", err)
	}

	if got := k.Active("db"); got != 2 {
		t.Errorf("Active(db) = %d, want 2", got)
	}

	m := k.Metrics()
	if m.Keys != 2 || m.Active != 3 || m.Rejected != 1 || m.MaxConcurrent != 2 {
		t.Errorf("Metrics() = %+v, want Keys=2 Active=3 Rejected=1 MaxConcurrent=2", m)
	}
}

func TestKeyedBulkhead_DropsIdleKeys(t *testing.T) {
	k := NewKeyedBulkhead(BulkheadConfig{MaxConcurrent: 1})
	ctx := context.Background()

	if err := k.Acquire(ctx, "db"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	_ = k.Acquire(ctx, "db") // rejected, must not leak a reference
	k.Release("db")

	if m := k.Metrics(); m.Keys != 0 {
		t.Errorf("Keys = %d after release, want 0", m.Keys)
	}
	if got := k.Active("db"); got != 0 {
		t.Errorf("Active(db) = %d, want 0", got)
	}

	k.Release("unknown")
}
