// Package cli defines the kwenrich commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"keyword-enricher/internal/config"
	"keyword-enricher/pkg/logger"
)

// rootOptions is shared by every subcommand; PersistentPreRunE fills cfg and log
type rootOptions struct {
	configPath string
	envFile    string
	debug      bool

	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "kwenrich",
		Short: "Enrich keyword spreadsheets with DataForSEO search metrics",
		Long: `kwenrich reads a CSV or XLSX file of keywords (or a Google Search Console
export), fetches search volume, competition and CPC from DataForSEO in
rate-limited batches and writes the rows back out with the metrics attached.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (YAML); settings can also be given as KWENRICH_* variables")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with DATAFORSEO_LOGIN / DATAFORSEO_PASSWORD")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newEnrichCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}

func (o *rootOptions) load() error {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return err
	}

	cfg, err := config.NewManager().Load(o.configPath)
	if err != nil {
		return err
	}
	if o.debug {
		cfg.Logger.Level = "debug"
	}

	o.cfg = cfg
	o.log = logger.New(cfg.Logger)
	logger.SetLogger(o.log)
	logger.SetGlobalLogger(o.log)
	return nil
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
