package probe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"

	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/secret"
)

// Supported probe kinds.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQL    = "sql"
	KindHTTP   = "http"
	KindRedis  = "redis"
	KindKafka  = "kafka"
)

// Kinds lists the supported probe kinds.
var Kinds = []string{KindMemory, KindFile, KindSQL, KindHTTP, KindRedis, KindKafka}

// DefaultSQLDriver is the database/sql driver used when a Spec names none.
const DefaultSQLDriver = "postgres"

// Spec describes a probe in configuration.
//
// Target, Targets and Password may hold ${ENV} references or secretref:
// values; Build resolves them before connecting.
type Spec struct {
	ID               string        `mapstructure:"id" json:"id"`
	Kind             string        `mapstructure:"kind" json:"kind"`
	Description      string        `mapstructure:"description" json:"description,omitempty"`
	DocumentationURL string        `mapstructure:"documentation_url" json:"documentation_url,omitempty"`
	Urgency          string        `mapstructure:"urgency" json:"urgency,omitempty"`
	Type             string        `mapstructure:"type" json:"type,omitempty"`
	ServicePool      string        `mapstructure:"service_pool" json:"service_pool,omitempty"`
	Timeout          time.Duration `mapstructure:"timeout" json:"timeout,omitempty"`
	PingPeriod       time.Duration `mapstructure:"ping_period" json:"ping_period,omitempty"`

	// Background samples the probe with a pinger instead of evaluating it live.
	Background bool `mapstructure:"background" json:"background,omitempty"`

	// Target is the DSN, URL or file path the probe checks.
	Target string `mapstructure:"target" json:"target,omitempty"`

	// Targets lists Redis addresses or Kafka seed brokers.
	Targets []string `mapstructure:"targets" json:"targets,omitempty"`

	Password string `mapstructure:"password" json:"-"`
	Driver   string `mapstructure:"driver" json:"driver,omitempty"`
	Query    string `mapstructure:"query" json:"query,omitempty"`

	// MaxAge is the file freshness limit.
	MaxAge time.Duration `mapstructure:"max_age" json:"max_age,omitempty"`

	// Warning and Critical are the memory usage ratios.
	Warning  float64 `mapstructure:"warning" json:"warning,omitempty"`
	Critical float64 `mapstructure:"critical" json:"critical,omitempty"`
}

// Descriptor converts the identity and policy fields of the spec. An unset
// timeout becomes health.DefaultTimeout; a negative one leaves the probe
// unbounded.
func (s Spec) Descriptor() (health.Descriptor, error) {
	urgency, err := health.ParseUrgency(s.Urgency)
	if err != nil {
		return health.Descriptor{}, fmt.Errorf("probe %q: %w", s.ID, err)
	}
	if s.Timeout == 0 {
		s.Timeout = health.DefaultTimeout
	}
	desc := health.Descriptor{
		ID:               s.ID,
		Description:      s.Description,
		DocumentationURL: s.DocumentationURL,
		Timeout:          s.Timeout,
		PingPeriod:       s.PingPeriod,
		Urgency:          urgency,
		Type:             health.DependencyType(s.Type),
		ServicePool:      s.ServicePool,
	}
	return desc, desc.Validate()
}

// Build constructs the dependency described by spec. The returned closer
// releases any client Build created; it is never nil.
func Build(ctx context.Context, spec Spec, resolver *secret.Resolver) (health.Dependency, io.Closer, error) {
	desc, err := spec.Descriptor()
	if err != nil {
		return nil, nopCloser{}, err
	}
	if spec, err = resolve(ctx, spec, resolver); err != nil {
		return nil, nopCloser{}, fmt.Errorf("probe %q: %w", spec.ID, err)
	}

	switch strings.ToLower(spec.Kind) {
	case KindMemory:
		dep, err := NewMemory(desc, MemoryConfig{WarningThreshold: spec.Warning, CriticalThreshold: spec.Critical})
		if err != nil {
			return nil, nopCloser{}, err
		}
		return dep, nopCloser{}, nil

	case KindFile:
		dep, err := NewFile(desc, FileConfig{Path: spec.Target, MaxAge: spec.MaxAge})
		return dep, nopCloser{}, err

	case KindSQL:
		if spec.Target == "" {
			return nil, nopCloser{}, fmt.Errorf("%w: probe %q needs a dsn", ErrMissingTarget, spec.ID)
		}
		driver := spec.Driver
		if driver == "" {
			driver = DefaultSQLDriver
		}
		db, err := sql.Open(driver, spec.Target)
		if err != nil {
			return nil, nopCloser{}, fmt.Errorf("probe %q: open %s: %w", spec.ID, driver, err)
		}
		var opts []SQLOption
		if spec.Query != "" {
			opts = append(opts, WithQuery(spec.Query))
		}
		dep, err := NewSQL(desc, db, opts...)
		return dep, db, err

	case KindHTTP:
		dep, err := NewHTTP(desc, HTTPConfig{URL: spec.Target, Client: &http.Client{Timeout: max(desc.Timeout, 0)}})
		return dep, nopCloser{}, err

	case KindRedis:
		client, err := NewRedisClient(RedisConfig{Addrs: targets(spec), Password: spec.Password})
		if err != nil {
			return nil, nopCloser{}, err
		}
		dep, err := NewRedis(desc, client)
		return dep, client, err

	case KindKafka:
		client, err := NewKafkaClient(targets(spec))
		if err != nil {
			return nil, nopCloser{}, err
		}
		dep, err := NewKafka(desc, client)
		return dep, closerFunc(func() error { client.Close(); return nil }), err
	}

	return nil, nopCloser{}, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownKind, spec.Kind, strings.Join(Kinds, ", "))
}

func resolve(ctx context.Context, spec Spec, resolver *secret.Resolver) (Spec, error) {
	var err error
	if spec.Target, err = resolver.ResolveValue(ctx, spec.Target); err != nil {
		return spec, err
	}
	if spec.Password, err = resolver.ResolveValue(ctx, spec.Password); err != nil {
		return spec, err
	}
	if spec.Targets, err = resolver.ResolveSlice(ctx, spec.Targets); err != nil {
		return spec, err
	}
	return spec, nil
}

func targets(spec Spec) []string {
	if len(spec.Targets) > 0 {
		return spec.Targets
	}
	if spec.Target != "" {
		return strings.Split(spec.Target, ",")
	}
	return nil
}

// CloseAll closes every closer and joins the errors.
func CloseAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
