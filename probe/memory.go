package probe

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/jonwraymond/healthops/health"
)

// MemoryConfig configures the memory probe.
type MemoryConfig struct {
	// WarningThreshold is the share of MaxAlloc above which the probe reports MINOR.
	// Value should be between 0 and 1. Default: 0.8 (80%)
	WarningThreshold float64

	// CriticalThreshold is the share of MaxAlloc above which the probe reports MAJOR.
	// Usage above MaxAlloc itself is an OUTAGE.
	// Value should be between 0 and 1. Default: 0.95 (95%)
	CriticalThreshold float64

	// MaxAlloc is the allocation budget in bytes.
	// Default: 0 (the memory obtained from the OS)
	MaxAlloc uint64

	// ReadStats overrides how memory statistics are sampled.
	ReadStats func(*runtime.MemStats)
}

func (c MemoryConfig) withDefaults() MemoryConfig {
	if c.WarningThreshold <= 0 || c.WarningThreshold >= 1 {
		c.WarningThreshold = 0.8
	}
	if c.CriticalThreshold <= 0 || c.CriticalThreshold >= 1 {
		c.CriticalThreshold = 0.95
	}
	if c.CriticalThreshold < c.WarningThreshold {
		c.CriticalThreshold = min(c.WarningThreshold+0.1, 0.99)
	}
	if c.ReadStats == nil {
		c.ReadStats = runtime.ReadMemStats
	}
	return c
}

// Memory grades heap allocation against a budget.
type Memory struct {
	desc       health.Descriptor
	config     MemoryConfig
	thresholds health.Thresholds[float64]
}

// NewMemory creates a memory probe. The descriptor's type defaults to memory.
func NewMemory(desc health.Descriptor, config MemoryConfig) (*Memory, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.Type == "" {
		desc.Type = health.TypeMemory
	}
	config = config.withDefaults()

	return &Memory{
		desc:   desc,
		config: config,
		thresholds: health.Thresholds[float64]{
			OK:    config.WarningThreshold,
			Minor: config.CriticalThreshold,
			Major: 1,
		},
	}, nil
}

// Descriptor returns the probe's descriptor.
func (m *Memory) Descriptor() health.Descriptor { return m.desc }

// Evaluate samples memory statistics and grades the usage ratio.
func (m *Memory) Evaluate(ctx context.Context) (*health.CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var stats runtime.MemStats
	m.config.ReadStats(&stats)

	budget := m.config.MaxAlloc
	if budget == 0 {
		budget = stats.Sys
	}
	if budget == 0 {
		return health.NewResult(m.desc, health.StatusOK, "memory stats unavailable").
			WithTimestamp(start).
			Build(), nil
	}

	usage := float64(stats.Alloc) / float64(budget)
	status := m.thresholds.Grade(usage)

	var msg string
	switch status {
	case health.StatusOK:
		msg = ""
	case health.StatusMinor:
		msg = fmt.Sprintf("memory usage high: %.1f%%", usage*100)
	default:
		msg = fmt.Sprintf("memory usage critical: %.1f%%", usage*100)
	}

	return health.NewResult(m.desc, status, msg).
		WithTimestamp(start).
		WithDuration(time.Since(start)).
		Build(), nil
}
