package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/probe"
	"github.com/jonwraymond/healthops/report"
	"github.com/jonwraymond/healthops/secret"
)

// errOutage makes the process exit non-zero without printing an error.
var errOutage = errors.New("statusd: system outage")

func newCheckCmd(cfgFile *string) *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate every dependency once and print the report",
		Long: "Evaluates every configured dependency live, prints the report as JSON and\n" +
			"exits with status 1 when the system is in outage.",
		Example: "statusd check --config statusd.yaml\n" +
			"statusd check --summary",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v := newViper(*cfgFile)
			cfg, err := loadConfig(v, *cfgFile)
			if err != nil {
				return err
			}

			logger := observe.NewLoggerWithWriter(cfg.Telemetry.LogLevel, cmd.ErrOrStderr())
			tel := telemetry{logger: logger, metrics: observe.NopMetrics()}
			resolver := secret.NewDefaultResolver()
			defer resolver.Close()

			m, closers, err := buildManager(ctx, cfg, tel, resolver, false)
			if err != nil {
				return err
			}
			defer probe.CloseAll(closers)
			defer m.Shutdown(ctx)

			rs, err := m.Evaluate(ctx)
			if err != nil {
				logger.Warn(ctx, "evaluation round incomplete", observe.F("error", err.Error()))
			}
			snap := rs.Snapshot()

			reporter := report.NewReporter(report.ReporterConfig{})
			var view any = reporter.Detailed(snap, true)
			if summary {
				view = reporter.Summary(snap)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(view); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			if snap.SystemStatus == health.StatusOutage {
				return errOutage
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print the summary view instead of the detailed one")
	return cmd
}
