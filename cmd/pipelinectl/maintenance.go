package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"crm-pipeline-api/internal/app"
	"crm-pipeline-api/internal/config"
	"crm-pipeline-api/internal/job"
	"crm-pipeline-api/internal/metrics"
	"crm-pipeline-api/internal/pipeline"
)

func reconcileCmd(opts *globalOptions) *cobra.Command {
	var cleanupExports bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reload the pipeline from the store and report its health",
		Long: `Reload stages and customers from the record store and print the
numbers the reconcile job exports as metrics: dangling customers that
reference a deleted stage, and gaps in the stage positions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				reconcile := job.NewReconcileJob(a.Manager, a.Metrics, a.Config.Store.Timeout, a.Logger)
				stats, err := reconcile.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				printStats(cmd.OutOrStdout(), stats)

				if !cleanupExports {
					return nil
				}
				if a.Store.Exports == nil || a.S3 == nil {
					return fmt.Errorf("export cleanup needs the postgres store and s3 configured")
				}
				removed := job.NewExportCleanupJob(a.Store.Exports, a.S3, a.Logger).RunOnce(cmd.Context())
				fmt.Fprintf(cmd.OutOrStdout(), "Expired exports removed: %d\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&cleanupExports, "cleanup-exports", false, "also delete exports past their retention")
	return cmd
}

func migrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		Long:  `Run the schema migrations against the postgres record store, regardless of database.auto_migrate.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate needs store.driver %q, got %q", config.DriverPostgres, cfg.Store.Driver)
			}
			cfg.Database.AutoMigrate = true

			logger := opts.logger()
			defer logger.Sync()

			store, err := app.OpenStore(cmd.Context(), cfg, metrics.NewWithRegistry(prometheus.NewRegistry(), logger), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgGreen).Sprint("Migrations completed"))
			return nil
		},
	}
}

func printStats(out io.Writer, stats pipeline.Stats) {
	fmt.Fprintf(out, "Stages:         %d\n", stats.Stages)
	fmt.Fprintf(out, "Customers:      %d\n", stats.Customers)
	fmt.Fprintf(out, "Pipeline value: %.2f\n", stats.TotalValue)

	warn := color.New(color.FgYellow)
	if stats.DanglingCustomers > 0 {
		fmt.Fprintf(out, "Dangling:       %s\n", warn.Sprint(stats.DanglingCustomers))
	} else {
		fmt.Fprintf(out, "Dangling:       %d\n", stats.DanglingCustomers)
	}
	if stats.PositionGaps > 0 {
		fmt.Fprintf(out, "Position gaps:  %s\n", warn.Sprint(stats.PositionGaps))
	} else {
		fmt.Fprintf(out, "Position gaps:  %d\n", stats.PositionGaps)
	}
}
