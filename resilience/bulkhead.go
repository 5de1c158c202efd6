package resilience

import (
	"context"
	"sync"
	"time"
)

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the maximum number of concurrent operations.
	// Default: 10
	MaxConcurrent int

	// MaxWait is the maximum time to wait for a slot.
	// Default: 0 (no waiting, fail immediately)
	MaxWait time.Duration
}

func (c BulkheadConfig) withDefaults() BulkheadConfig {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 10
	}
	return c
}

// Bulkhead limits concurrent operations.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}

	mu        sync.Mutex
	active    int
	maxActive int
	rejected  int64
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	config = config.withDefaults()
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// TryAcquire takes a slot if one is free right now.
func (b *Bulkhead) TryAcquire() bool {
	select {
	case b.sem <- struct{}{}:
		b.admitted()
		return true
	default:
		return false
	}
}

// Acquire acquires a slot in the bulkhead.
// Returns ErrBulkheadFull if no slot becomes available within MaxWait.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if b.TryAcquire() {
		return nil
	}

	if b.config.MaxWait <= 0 {
		b.reject()
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		b.admitted()
		return nil
	case <-timer.C:
		b.reject()
		return ErrBulkheadFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) admitted() {
	b.mu.Lock()
	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}
	b.mu.Unlock()
}

func (b *Bulkhead) reject() {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
}

// Release releases a slot in the bulkhead. Releasing an empty bulkhead is a no-op.
func (b *Bulkhead) Release() {
	select {
	case <-b.sem:
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	default:
	}
}

// Execute runs the operation within the bulkhead.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()

	return op(ctx)
}

// Metrics returns current bulkhead metrics.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BulkheadMetrics{
		Active:        b.active,
		MaxActive:     b.maxActive,
		Available:     b.config.MaxConcurrent - b.active,
		MaxConcurrent: b.config.MaxConcurrent,
		Rejected:      b.rejected,
	}
}

// BulkheadMetrics contains bulkhead statistics.
type BulkheadMetrics struct {
	Active        int
	MaxActive     int
	Available     int
	MaxConcurrent int
	Rejected      int64
}

// KeyedBulkhead applies an independent Bulkhead to each key.
//
// Bulkheads are created on first use and dropped once no holder or waiter
// references them, so the key space may be unbounded.
type KeyedBulkhead struct {
	config BulkheadConfig

	mu       sync.Mutex
	slots    map[string]*keyedSlot
	rejected int64
}

type keyedSlot struct {
	bulkhead *Bulkhead
	refs     int
}

// NewKeyedBulkhead creates a KeyedBulkhead whose per-key limits follow config.
func NewKeyedBulkhead(config BulkheadConfig) *KeyedBulkhead {
	return &KeyedBulkhead{
		config: config.withDefaults(),
		slots:  make(map[string]*keyedSlot),
	}
}

// Acquire acquires a slot for key. Returns ErrBulkheadFull when the key is at capacity.
func (k *KeyedBulkhead) Acquire(ctx context.Context, key string) error {
	k.mu.Lock()
	slot, ok := k.slots[key]
	if !ok {
		slot = &keyedSlot{bulkhead: NewBulkhead(k.config)}
		k.slots[key] = slot
	}
	slot.refs++
	k.mu.Unlock()

	err := slot.bulkhead.Acquire(ctx)
	if err != nil {
		k.mu.Lock()
		if err == ErrBulkheadFull {
			k.rejected++
		}
		k.unref(key, slot)
		k.mu.Unlock()
	}
	return err
}

// Release releases a slot previously acquired for key.
func (k *KeyedBulkhead) Release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	slot, ok := k.slots[key]
	if !ok {
		return
	}
	slot.bulkhead.Release()
	k.unref(key, slot)
}

// unref must be called with k.mu held.
func (k *KeyedBulkhead) unref(key string, slot *keyedSlot) {
	slot.refs--
	if slot.refs <= 0 && k.slots[key] == slot {
		delete(k.slots, key)
	}
}

// Active returns the number of slots currently held for key.
func (k *KeyedBulkhead) Active(key string) int {
	k.mu.Lock()
	slot, ok := k.slots[key]
	k.mu.Unlock()
	if !ok {
		return 0
	}
	return slot.bulkhead.Metrics().Active
}

// Metrics returns aggregate statistics across keys.
func (k *KeyedBulkhead) Metrics() KeyedBulkheadMetrics {
	k.mu.Lock()
	defer k.mu.Unlock()

	m := KeyedBulkheadMetrics{
		Keys:          len(k.slots),
		MaxConcurrent: k.config.MaxConcurrent,
		Rejected:      k.rejected,
	}
	for _, slot := range k.slots {
		m.Active += slot.bulkhead.Metrics().Active
	}
	return m
}

// KeyedBulkheadMetrics contains aggregate keyed bulkhead statistics.
type KeyedBulkheadMetrics struct {
	Keys          int
	Active        int
	MaxConcurrent int
	Rejected      int64
}
