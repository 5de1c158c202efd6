package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/probe"
	"github.com/jonwraymond/healthops/secret"
)

// telemetry bundles what the manager needs from an Observer.
type telemetry struct {
	logger  observe.Logger
	tracer  observe.Tracer
	metrics observe.Metrics
}

func newTelemetry(obs observe.Observer) (telemetry, error) {
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return telemetry{}, err
	}
	return telemetry{
		logger:  mw.Logger(),
		tracer:  observe.NewTracer(obs.Tracer()),
		metrics: mw.Metrics(),
	}, nil
}

// buildManager registers every configured probe. When background is false,
// probes marked background are registered for live evaluation instead of
// being launched as pingers. The returned closers release probe clients.
func buildManager(ctx context.Context, cfg Config, tel telemetry, resolver *secret.Resolver, background bool) (*health.Manager, []io.Closer, error) {
	m := health.NewManager(health.ManagerConfig{
		AppName:     cfg.AppName,
		PingPeriod:  cfg.PingPeriod,
		PoolSize:    cfg.PoolSize,
		MaxInFlight: cfg.MaxInFlight,
		Sequential:  cfg.Sequential,
		Throttle:    cfg.Throttle,
		Logger:      tel.logger,
		Tracer:      tel.tracer,
		Metrics:     tel.metrics,
	})

	var closers []io.Closer
	fail := func(err error) (*health.Manager, []io.Closer, error) {
		_ = m.Shutdown(ctx)
		_ = probe.CloseAll(closers)
		return nil, nil, err
	}

	for _, spec := range cfg.Probes {
		dep, closer, err := probe.Build(ctx, spec, resolver)
		closers = append(closers, closer)
		if err != nil {
			return fail(err)
		}
		if spec.Background && background {
			_, err = m.LaunchPinger(dep)
		} else {
			err = m.AddDependency(dep)
		}
		if err != nil {
			return fail(fmt.Errorf("register %q: %w", spec.ID, err))
		}
	}
	return m, closers, nil
}

// logTransitions logs every background status change.
func logTransitions(logger observe.Logger) health.Listener {
	return health.ListenerFuncs{
		Changed: func(dep health.Dependency, prev, next *health.CheckResult) {
			from := "NONE"
			if prev != nil {
				from = prev.Status().String()
			}
			logger.Info(context.Background(), "status transition",
				observe.F("dependency", dep.Descriptor().ID),
				observe.F("from", from),
				observe.F("to", next.Status().String()),
				observe.F("message", next.ErrorMessage()))
		},
	}
}

// buildAuthenticator returns nil when no credentials are configured.
func buildAuthenticator(ctx context.Context, cfg AuthConfig, resolver *secret.Resolver) (auth.Authenticator, error) {
	var chain []auth.Authenticator

	if cfg.JWT.Secret != "" {
		key, err := resolver.ResolveValue(ctx, cfg.JWT.Secret)
		if err != nil {
			return nil, fmt.Errorf("jwt secret: %w", err)
		}
		a, err := auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:   []byte(key),
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
		})
		if err != nil {
			return nil, err
		}
		chain = append(chain, a)
	}

	if len(cfg.APIKeys) > 0 {
		store := auth.NewMemoryAPIKeyStore()
		for _, k := range cfg.APIKeys {
			key, err := resolver.ResolveValue(ctx, k.Key)
			if err != nil {
				return nil, fmt.Errorf("api key %q: %w", k.ID, err)
			}
			if key == "" {
				return nil, fmt.Errorf("api key %q: %w", k.ID, auth.ErrMissingKey)
			}
			store.Add(&auth.APIKeyInfo{
				ID:        k.ID,
				KeyHash:   auth.HashAPIKey(key),
				Principal: k.Principal,
				Roles:     k.Roles,
			})
		}
		chain = append(chain, auth.NewAPIKeyAuthenticator(auth.APIKeyConfig{}, store))
	}

	if len(chain) == 0 {
		return nil, nil
	}
	return auth.NewChain(chain...), nil
}
