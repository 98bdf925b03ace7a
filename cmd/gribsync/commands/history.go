package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/gribsync/cmd/gribsync/opts"
	"github.com/walteh/gribsync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// NewHistoryCmd creates a new history command
func NewHistoryCmd(o *opts.RootOpts) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-uuid]",
		Short: "Show recorded runs, or the batches of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := o.Resolve(cmd, nil); err != nil {
				return err
			}
			ledger, err := o.OpenHistory(ctx)
			if err != nil {
				return err
			}
			if ledger == nil {
				return errors.Errorf("no history path configured (history.path or GRIBSYNC_HISTORY)")
			}
			defer ledger.Close()

			if len(args) == 1 {
				batches, err := ledger.Batches(ctx, args[0])
				if err != nil {
					return err
				}
				return status.RenderBatches(cmd.OutOrStdout(), batches)
			}

			runs, err := ledger.Runs(ctx, limit)
			if err != nil {
				return err
			}
			return status.RenderRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show, 0 for all")
	return cmd
}
