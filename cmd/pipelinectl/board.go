package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"crm-pipeline-api/internal/app"
	"crm-pipeline-api/internal/pipeline"
)

func boardCmd(opts *globalOptions) *cobra.Command {
	var search, stage string

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the pipeline board",
		Long: `Print every stage in order with its customers and total value.

Customers whose stage was deleted are listed separately as dangling.

Examples:
  pipelinectl board
  pipelinectl board --search acme`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := pipeline.BoardFilter{Search: search}
			if stage != "" {
				id, err := uuid.Parse(stage)
				if err != nil {
					return fmt.Errorf("invalid --stage: %w", err)
				}
				filter.StageID = &id
			}

			return opts.withApp(cmd.Context(), func(a *app.App) error {
				printBoard(cmd.OutOrStdout(), a.Manager.GetBoard(filter))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "only customers whose name, email or company match")
	cmd.Flags().StringVar(&stage, "stage", "", "only customers of this stage id")

	return cmd
}

func printBoard(out io.Writer, board pipeline.Board) {
	bold := color.New(color.Bold)
	for _, col := range board.Columns {
		fmt.Fprintf(out, "%s  %s\n",
			bold.Sprintf("%d. %s", col.Stage.Position, col.Stage.Name),
			color.New(color.FgGreen).Sprintf("%.2f", col.TotalValue),
		)
		printCustomers(out, col.Customers)
	}

	if len(board.Unplaced) > 0 {
		fmt.Fprintln(out, bold.Sprint("No stage"))
		printCustomers(out, board.Unplaced)
	}
	if len(board.Dangling) > 0 {
		fmt.Fprintln(out, color.New(color.FgRed, color.Bold).Sprint("Dangling (stage deleted)"))
		printCustomers(out, board.Dangling)
	}

	fmt.Fprintf(out, "\n%d customers, total value %.2f\n", board.TotalCustomers, board.TotalValue)
}

func printCustomers(out io.Writer, customers []pipeline.CustomerView) {
	if len(customers) == 0 {
		fmt.Fprintln(out, "    (empty)")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range customers {
		fmt.Fprintf(w, "    %s\t%s\t%s\t%.2f\t%s\n",
			c.Name, c.Email, dash(c.Company), c.Value, c.LastContact.Format("2006-01-02"))
	}
	w.Flush()
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
