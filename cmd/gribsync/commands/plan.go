package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/gribsync/cmd/gribsync/opts"
	"github.com/walteh/gribsync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// NewPlanCmd creates a new plan command
func NewPlanCmd(o *opts.RootOpts) *cobra.Command {
	var ov opts.Overrides
	var verbose bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the batches a sync would transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := o.Resolve(cmd, &ov); err != nil {
				return err
			}

			sup, err := o.Supervisor()
			if err != nil {
				return err
			}
			planner, err := o.Planner()
			if err != nil {
				return err
			}

			entries, err := o.Lister(sup).List(ctx, o.Config.SourceDir())
			if err != nil {
				return errors.Errorf("listing run %s: %w", o.Config.Run, err)
			}
			p, err := planner.Plan(entries).Slice(o.Config.BatchRange())
			if err != nil {
				return errors.Errorf("selecting batch range: %w", err)
			}
			return status.RenderPlan(cmd.OutOrStdout(), p, verbose)
		},
	}

	opts.AddOverrideFlags(cmd, &ov)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every file of every batch")
	return cmd
}
