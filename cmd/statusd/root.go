package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "statusd",
		Short: "Dependency health checks and status reports",
		Long: "statusd checks the dependencies listed in its configuration file and serves\n" +
			"status reports over HTTP. Configuration is read from statusd.yaml in the\n" +
			"working directory or /etc/statusd, or from --config; any key can be overridden\n" +
			"with a HEALTHOPS_ environment variable (for example HEALTHOPS_LISTEN).",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to the configuration file")

	cmd.AddCommand(
		newServeCmd(&cfgFile),
		newCheckCmd(&cfgFile),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the statusd version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "statusd %s\n", version)
			return err
		},
	}
}
