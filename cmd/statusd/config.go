package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/probe"
)

const envPrefix = "HEALTHOPS"

var errNoProbes = errors.New("statusd: no probes configured")

// Config is the statusd configuration file.
type Config struct {
	AppName         string        `mapstructure:"app_name"`
	Listen          string        `mapstructure:"listen"`
	PingPeriod      time.Duration `mapstructure:"ping_period"`
	PoolSize        int           `mapstructure:"pool_size"`
	MaxInFlight     int           `mapstructure:"max_in_flight"`
	Sequential      bool          `mapstructure:"sequential"`
	Throttle        bool          `mapstructure:"throttle"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Probes    []probe.Spec    `mapstructure:"probes"`
}

// TelemetryConfig selects logging, tracing and metrics exporters.
type TelemetryConfig struct {
	LogLevel        string  `mapstructure:"log_level"`
	TracingExporter string  `mapstructure:"tracing_exporter"`
	SamplePct       float64 `mapstructure:"sample_pct"`
	MetricsExporter string  `mapstructure:"metrics_exporter"`
}

// AuthConfig configures privileged access to detailed reports. Secrets
// accept ${ENV} and secretref: values.
type AuthConfig struct {
	PrivilegedRole string         `mapstructure:"privileged_role"`
	JWT            JWTConfig      `mapstructure:"jwt"`
	APIKeys        []APIKeyConfig `mapstructure:"api_keys"`
}

// JWTConfig enables bearer token authentication when Secret is set.
type JWTConfig struct {
	Secret   string `mapstructure:"secret"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

// APIKeyConfig registers one static API key.
type APIKeyConfig struct {
	ID        string   `mapstructure:"id"`
	Key       string   `mapstructure:"key"`
	Principal string   `mapstructure:"principal"`
	Roles     []string `mapstructure:"roles"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "statusd")
	v.SetDefault("listen", ":8080")
	v.SetDefault("ping_period", health.DefaultPingPeriod)
	v.SetDefault("pool_size", health.DefaultPoolSize)
	v.SetDefault("max_in_flight", health.DefaultMaxInFlight)
	v.SetDefault("sequential", false)
	v.SetDefault("throttle", false)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("telemetry.log_level", "info")
	v.SetDefault("telemetry.tracing_exporter", "none")
	v.SetDefault("telemetry.sample_pct", 1.0)
	v.SetDefault("telemetry.metrics_exporter", "prometheus")
	v.SetDefault("auth.privileged_role", "")
	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.jwt.audience", "")
}

// newViper creates a viper instance reading path (when set) and
// HEALTHOPS_* environment overrides such as HEALTHOPS_TELEMETRY_LOG_LEVEL.
func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("statusd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/statusd")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads and validates the configuration. A missing file is an
// error only when path was given explicitly.
func loadConfig(v *viper.Viper, path string) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports configuration errors that would stop the daemon.
func (c Config) Validate() error {
	if len(c.Probes) == 0 {
		return errNoProbes
	}
	seen := make(map[string]struct{}, len(c.Probes))
	for _, spec := range c.Probes {
		if _, err := spec.Descriptor(); err != nil {
			return err
		}
		if _, dup := seen[spec.ID]; dup {
			return fmt.Errorf("%w: %q", health.ErrDuplicateDependency, spec.ID)
		}
		seen[spec.ID] = struct{}{}
	}
	obs := c.Telemetry.observeConfig(c.AppName, version)
	return obs.Validate()
}

func (t TelemetryConfig) observeConfig(service, version string) observe.Config {
	return observe.Config{
		ServiceName:     service,
		Version:         version,
		TracingExporter: t.TracingExporter,
		SamplePct:       t.SamplePct,
		MetricsExporter: t.MetricsExporter,
		LogLevel:        t.LogLevel,
	}
}
