package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"crm-pipeline-api/internal/app"
	"crm-pipeline-api/internal/dto"
)

func stagesCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "List and manage pipeline stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				stages, err := a.StageService.ListStages(cmd.Context())
				if err != nil {
					return err
				}
				printStages(cmd.OutOrStdout(), stages)
				return nil
			})
		},
	}

	cmd.AddCommand(stageCreateCmd(opts))
	cmd.AddCommand(stageReorderCmd(opts))
	cmd.AddCommand(stageDeleteCmd(opts))

	return cmd
}

func stageCreateCmd(opts *globalOptions) *cobra.Command {
	var colorName string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Append a stage to the end of the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				stage, err := a.StageService.CreateStage(cmd.Context(), &dto.CreateStageRequest{
					Name:  args[0],
					Color: colorName,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s at position %d (%s)\n",
					color.New(color.FgGreen).Sprint("Created"), stage.Name, stage.Position, stage.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&colorName, "color", "bg-gray-500", "stage color class")
	return cmd
}

func stageReorderCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <stage-id>...",
		Short: "Set the left-to-right stage order",
		Long: `Write a new stage order. Every stage must be named exactly once.

If the store fails half way, the stages already written keep their new
positions. Running the same command again finishes the reorder.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				stages, err := a.StageService.ReorderStages(cmd.Context(), &dto.ReorderStagesRequest{StageIDs: ids})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgGreen).Sprint("Stages reordered"))
				printStages(cmd.OutOrStdout(), stages)
				return nil
			})
		},
	}
}

func stageDeleteCmd(opts *globalOptions) *cobra.Command {
	var reassignTo string

	cmd := &cobra.Command{
		Use:   "delete <stage-id>",
		Short: "Delete a stage",
		Long: `Delete a stage. A stage that customers still reference is only
deleted when --reassign-to names the stage they move to.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid stage id %q: %w", args[0], err)
			}
			var target *uuid.UUID
			if reassignTo != "" {
				t, err := uuid.Parse(reassignTo)
				if err != nil {
					return fmt.Errorf("invalid --reassign-to: %w", err)
				}
				target = &t
			}

			return opts.withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.StageService.DeleteStage(cmd.Context(), id, target)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s", color.New(color.FgRed).Sprint("Deleted"), res.StageID)
				if res.ReassignedTo != nil {
					fmt.Fprintf(cmd.OutOrStdout(), ", %d customers moved to %s", res.ReassignedCount, *res.ReassignedTo)
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reassignTo, "reassign-to", "", "stage id that receives the deleted stage's customers")
	return cmd
}

func printStages(out io.Writer, stages []dto.StageResponse) {
	if len(stages) == 0 {
		fmt.Fprintln(out, color.New(color.FgYellow).Sprint("No stages"))
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tNAME\tCOLOR\tID")
	for _, s := range stages {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Position, s.Name, s.Color, s.ID)
	}
	w.Flush()
}

func parseIDs(args []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid stage id %q: %w", arg, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
