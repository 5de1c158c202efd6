package probe

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonwraymond/healthops/health"
)

// FileConfig configures the file freshness probe.
type FileConfig struct {
	// Path is the file whose modification time is watched. Required.
	Path string

	// MaxAge is the age up to which the file is fresh. Older files are MINOR.
	// Default: 1h
	MaxAge time.Duration

	// MajorAge is the age beyond which the file is MAJOR. Default: 2 * MaxAge.
	MajorAge time.Duration

	// OutageAge is the age beyond which the file is an OUTAGE. Default: 4 * MaxAge.
	OutageAge time.Duration

	// Now overrides the clock. Default: time.Now.
	Now func() time.Time
}

func (c FileConfig) withDefaults() FileConfig {
	if c.MaxAge <= 0 {
		c.MaxAge = time.Hour
	}
	if c.MajorAge <= 0 {
		c.MajorAge = 2 * c.MaxAge
	}
	if c.OutageAge <= 0 {
		c.OutageAge = 4 * c.MaxAge
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// NewFile creates a probe that grades how long ago a file was modified,
// for example a feed dropped by a batch job. A missing file is an OUTAGE.
func NewFile(desc health.Descriptor, config FileConfig) (health.Dependency, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("%w: file path", ErrMissingTarget)
	}
	if desc.Type == "" {
		desc.Type = health.TypeDisk
	}
	config = config.withDefaults()

	thresholds := health.Thresholds[time.Duration]{
		OK:    config.MaxAge,
		Minor: config.MajorAge,
		Major: config.OutageAge,
	}
	return health.NewThresholdDependency(desc, thresholds, func(ctx context.Context) (time.Duration, error) {
		info, err := os.Stat(config.Path)
		if err != nil {
			return 0, err
		}
		age := config.Now().Sub(info.ModTime())
		if age > config.OutageAge {
			return age, fmt.Errorf("%w: %s last modified %s ago", ErrStale, config.Path, age.Round(time.Second))
		}
		return age, nil
	})
}
