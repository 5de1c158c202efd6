package health

import (
	"context"
	"strings"
	"time"

	"github.com/jonwraymond/healthops/observe"
)

const (
	// DefaultTimeout is the bound configured probes get when their settings
	// leave the timeout unset.
	DefaultTimeout = 10 * time.Second

	// DefaultPingPeriod is the background sampling interval.
	DefaultPingPeriod = 30 * time.Second
)

// DependencyType classifies what kind of resource a dependency is.
type DependencyType string

// Standard dependency types.
const (
	TypeMySQL         DependencyType = "mysql"
	TypeMongo         DependencyType = "mongo"
	TypeCassandra     DependencyType = "cassandra"
	TypeOtherDatabase DependencyType = "other database"
	TypeMemory        DependencyType = "memory"
	TypeDisk          DependencyType = "disk"
	TypeHTTPService   DependencyType = "http service"
	TypeOtherService  DependencyType = "other service"
	TypeThirdParty    DependencyType = "3rd party"
	TypeOther         DependencyType = "other"
)

// Descriptor carries the identity and evaluation policy of a dependency.
type Descriptor struct {
	// ID uniquely identifies the dependency within a Manager. Required.
	ID string

	// Description is a human summary of what the dependency is.
	Description string

	// DocumentationURL points operators at a runbook.
	DocumentationURL string

	// Timeout bounds one evaluation. Zero or negative means unbounded.
	Timeout time.Duration

	// PingPeriod is the desired interval between background samples.
	PingPeriod time.Duration

	// Urgency controls how far a failure can drag down system status.
	Urgency Urgency

	// Type classifies the dependency. Default: TypeOther.
	Type DependencyType

	// ServicePool names the pool of service instances behind the dependency.
	ServicePool string
}

// Validate reports whether the descriptor is usable.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrMissingID
	}
	return nil
}

// withDefaults fills Type and PingPeriod when the caller left them unset.
func (d Descriptor) withDefaults() Descriptor {
	if d.Type == "" {
		d.Type = TypeOther
	}
	if d.PingPeriod == 0 {
		d.PingPeriod = DefaultPingPeriod
	}
	return d
}

// timeout returns the evaluation bound, or zero for none.
func (d Descriptor) timeout() time.Duration {
	return max(d.Timeout, 0)
}

// subject converts the descriptor for telemetry.
func (d Descriptor) subject() observe.Subject {
	return observe.Subject{
		ID:      d.ID,
		Type:    string(d.Type),
		Urgency: d.Urgency.String(),
		Pool:    d.ServicePool,
	}
}

// Dependency is a named, checkable unit the process relies on.
//
// Contract:
// - Concurrency: Evaluate must be safe for concurrent calls; the engine adds no locking.
// - Context: Evaluate should return promptly once ctx is done; the engine
//   cancels ctx on timeout but cannot force a blocked call to return.
// - Errors: returning an error is equivalent to an OUTAGE result carrying it.
//   A nil result with a nil error is treated as a failure.
type Dependency interface {
	// Descriptor returns the dependency's identity and policy. It must be stable.
	Descriptor() Descriptor

	// Evaluate performs one check.
	Evaluate(ctx context.Context) (*CheckResult, error)
}
