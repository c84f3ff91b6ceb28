// Command pipelinectl inspects and repairs the sales pipeline from a shell.
// It talks to the same record store as the API server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crm-pipeline-api/internal/app"
	"crm-pipeline-api/internal/config"
	"crm-pipeline-api/internal/metrics"
)

// globalOptions are shared by every subcommand
type globalOptions struct {
	configPath string
	driver     string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "pipelinectl",
		Short: "Inspect and maintain the CRM sales pipeline",
		Long: `pipelinectl reads and changes the pipeline stages and customers
through the same record store the API server uses.

Structural changes take the same stage lock as the server, so running
pipelinectl next to live replicas is safe when Redis is configured.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "override store.driver (postgres, postgrest, memory)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(boardCmd(opts))
	rootCmd.AddCommand(stagesCmd(opts))
	rootCmd.AddCommand(reconcileCmd(opts))
	rootCmd.AddCommand(migrateCmd(opts))

	return rootCmd
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.driver != "" {
		cfg.Store.Driver = o.driver
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (o *globalOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// withApp builds the app for one command and flushes its events afterwards
func (o *globalOptions) withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	logger := o.logger()
	defer logger.Sync()

	// Private registry: a one-shot command exposes no metrics
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), logger)
	a, err := app.New(ctx, cfg, m, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	err = fn(a)
	a.Events.Flush()
	return err
}
