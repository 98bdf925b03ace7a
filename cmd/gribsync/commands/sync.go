package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/walteh/gribsync/cmd/gribsync/opts"
	"github.com/walteh/gribsync/pkg/log"
	"github.com/walteh/gribsync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// NewSyncCmd creates a new sync command
func NewSyncCmd(o *opts.RootOpts) *cobra.Command {
	var ov opts.Overrides
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror one model run into the destination",
		Long: `Sync mirrors one model run. It will:
1. List the run directory on the remote
2. Group the files into one batch per variable
3. Copy every batch (or the --start/--stop range) with rclone
4. Report the batches that failed

A failed batch does not stop the run. Interrupting the run lets the current
batch drain before exiting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := o.Resolve(cmd, &ov); err != nil {
				return err
			}
			cfg := o.Config

			op, closeHistory, err := o.Operator(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeHistory(); err != nil {
					o.Logger.Warn().Err(err).Msg("closing history")
				}
			}()

			o.Console.Header(fmt.Sprintf("syncing run %s", cfg.Run))

			full, err := op.Plan(ctx)
			if err != nil {
				return errors.Errorf("planning: %w", err)
			}

			o.Console.StartRunOperation(ctx, log.RunOperation{
				RunID:       cfg.Run,
				Source:      cfg.Tool().Remote.URL(cfg.SourceDir()),
				Destination: cfg.Destination,
				Batches:     full.Len(),
			})
			report, runErr := op.Run(ctx, full)
			o.Console.EndRunOperation(ctx)

			if report != nil && report.Summary != nil {
				o.Console.LogNewline()
				if err := status.RenderSummary(cmd.OutOrStdout(), report.Summary); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}
			if report.Summary.Failed > 0 {
				o.Console.Warningf("%d of %d batches failed", report.Summary.Failed, report.Summary.Planned)
				return errors.Errorf("%d batches failed", report.Summary.Failed)
			}
			o.Console.Success("run mirrored")
			return nil
		},
	}

	opts.AddOverrideFlags(cmd, &ov)
	return cmd
}
