package commands

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/walteh/gribsync/cmd/gribsync/opts"
	"github.com/walteh/gribsync/pkg/listing"
	"gitlab.com/tozd/go/errors"
)

// NewListCmd creates a new list command
func NewListCmd(o *opts.RootOpts) *cobra.Command {
	var ov opts.Overrides
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the files of the run directory on the remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := o.Resolve(cmd, &ov); err != nil {
				return err
			}
			sup, err := o.Supervisor()
			if err != nil {
				return err
			}

			entries, err := o.Lister(sup).List(ctx, o.Config.SourceDir())
			if err != nil {
				return errors.Errorf("listing run %s: %w", o.Config.Run, err)
			}
			files := listing.Files(entries)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(files)
			}
			var total int64
			for _, f := range files {
				total += f.Size
				fmt.Fprintf(out, "%10s  %s\n", humanize.Bytes(uint64(f.Size)), f.Path)
			}
			fmt.Fprintf(out, "%d files, %s\n", len(files), humanize.Bytes(uint64(total)))
			return nil
		},
	}

	opts.AddOverrideFlags(cmd, &ov)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the normalized entries as JSON")
	return cmd
}
