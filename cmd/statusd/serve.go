package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/probe"
	"github.com/jonwraymond/healthops/report"
	"github.com/jonwraymond/healthops/secret"
)

func newServeCmd(cfgFile *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the status daemon",
		Long: "Launches background pingers for probes marked background, then serves status\n" +
			"reports and Prometheus metrics until interrupted.",
		Example: "statusd serve --config /etc/statusd/statusd.yaml\n" +
			"HEALTHOPS_LISTEN=:9090 statusd serve",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newViper(*cfgFile)
			if err := v.BindPFlag("listen", cmd.Flags().Lookup("listen")); err != nil {
				return err
			}
			cfg, err := loadConfig(v, *cfgFile)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", cfg.Listen)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, ln)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", ":8080", "address to serve HTTP traffic on")
	return cmd
}

// serve runs the daemon on ln until ctx ends.
func serve(ctx context.Context, cfg Config, ln net.Listener) error {
	obs, err := observe.NewObserver(ctx, cfg.Telemetry.observeConfig(cfg.AppName, version))
	if err != nil {
		ln.Close()
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	tel, err := newTelemetry(obs)
	if err != nil {
		ln.Close()
		return err
	}
	logger := tel.logger

	resolver := secret.NewDefaultResolver()
	defer resolver.Close()

	authn, err := buildAuthenticator(ctx, cfg.Auth, resolver)
	if err != nil {
		ln.Close()
		return err
	}

	m, closers, err := buildManager(ctx, cfg, tel, resolver, true)
	if err != nil {
		ln.Close()
		return err
	}
	defer probe.CloseAll(closers)
	m.AddListener(logTransitions(logger))

	handler, err := report.NewHandler(report.HandlerConfig{
		Source:         m,
		Timeout:        cfg.RequestTimeout,
		PrivilegedRole: cfg.Auth.PrivilegedRole,
		Logger:         logger,
	})
	if err != nil {
		ln.Close()
		return err
	}

	server := &http.Server{
		Handler:           auth.Middleware(authn, logger)(newMux(handler)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info(ctx, "statusd started",
		observe.F("listen", ln.Addr().String()),
		observe.F("dependencies", len(m.DependencyIDs())),
		observe.F("version", version))

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info(shutdownCtx, "statusd stopping")
		return errors.Join(server.Shutdown(shutdownCtx), m.Shutdown(shutdownCtx))
	})
	return group.Wait()
}

func newMux(h *report.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	report.RegisterHandlers(mux, h)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}
