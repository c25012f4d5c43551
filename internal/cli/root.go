// Package cli is the deverp command line: the product browser plus
// scripting commands for products, requests, the dashboard and settings.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// globalOptions are the persistent root flags.
type globalOptions struct {
	configPath  string
	metricsAddr string
	logLevel    string
	baseURL     string
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRoot().ExecuteContext(ctx)
}

// NewRoot builds the command tree.
func NewRoot() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "deverp",
		Short:         "DevERP inventory client",
		Long:          "Browse the DevERP inventory with infinite scrolling, work the request queue and inspect the dashboard from a terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, opts, &filterFlags{})
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ./deverp.yaml or the user config dir)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /health, /ready and /metrics on this address")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error, disabled")
	flags.StringVar(&opts.baseURL, "base-url", "", "backend base URL")

	root.AddCommand(
		BrowseCmd(opts),
		ProductsCmd(opts),
		RequestsCmd(opts),
		DashboardCmd(opts),
		ViewModeCmd(opts),
		ConfigCmd(opts),
	)
	return root
}
