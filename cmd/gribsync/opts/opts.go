package opts

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/gribsync/pkg/config"
	"github.com/walteh/gribsync/pkg/history"
	"github.com/walteh/gribsync/pkg/listing"
	"github.com/walteh/gribsync/pkg/log"
	"github.com/walteh/gribsync/pkg/operation"
	"github.com/walteh/gribsync/pkg/plan"
	"github.com/walteh/gribsync/pkg/rclone"
	"github.com/walteh/gribsync/pkg/supervisor"
	"gitlab.com/tozd/go/errors"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	Config  *config.Config
	Logger  *zerolog.Logger
	Console *log.Logger
}

// Overrides are the per command flags that win over file and environment
type Overrides struct {
	Run         string
	Destination string
	Start       int
	Stop        int
	Timeout     time.Duration
	Transfers   int
}

// AddOverrideFlags registers the override flags on cmd
func AddOverrideFlags(cmd *cobra.Command, ov *Overrides) {
	f := cmd.Flags()
	f.StringVar(&ov.Run, "run", "", "model run to mirror, e.g. 00")
	f.StringVar(&ov.Destination, "dest", "", "local destination root")
	f.IntVar(&ov.Start, "start", 0, "first batch index (zero based)")
	f.IntVar(&ov.Stop, "stop", 0, "batch index to stop before, 0 for the end")
	f.DurationVar(&ov.Timeout, "timeout", 0, "per batch timeout")
	f.IntVar(&ov.Transfers, "transfers", 0, "parallel file transfers inside one batch")
}

// Resolve applies the overrides that were set and validates the config
func (o *RootOpts) Resolve(cmd *cobra.Command, ov *Overrides) error {
	cfg := o.Config
	if ov != nil {
		flags := cmd.Flags()
		if flags.Changed("run") {
			cfg.Run = ov.Run
		}
		if flags.Changed("dest") {
			cfg.Destination = ov.Destination
		}
		if flags.Changed("start") {
			cfg.Range.Start = ov.Start
		}
		if flags.Changed("stop") {
			cfg.Range.Stop = ov.Stop
		}
		if flags.Changed("timeout") {
			cfg.Transfer.Timeout = ov.Timeout.String()
		}
		if flags.Changed("transfers") {
			cfg.Transfer.Transfers = ov.Transfers
		}
	}
	if err := cfg.Validate(); err != nil {
		return errors.Errorf("validating config: %w", err)
	}
	o.Logger.Debug().Str("config", cfg.String()).Str("hash", cfg.Hash()).Msg("configuration resolved")
	return nil
}

// Supervisor builds the process supervisor for rclone
func (o *RootOpts) Supervisor() (*supervisor.Supervisor, error) {
	classifier, err := supervisor.NewClassifier(o.Config.ClassifierRules())
	if err != nil {
		return nil, errors.Errorf("building output classifier: %w", err)
	}
	sup := supervisor.New(o.Logger)
	sup.Classifier = classifier
	sup.GracePeriod = o.Config.GracePeriod()
	sup.Redact = rclone.Redact
	return sup, nil
}

// Lister builds the remote lister
func (o *RootOpts) Lister(exec listing.Executor) *listing.Lister {
	return &listing.Lister{
		Logger:  o.Logger,
		Exec:    exec,
		Tool:    o.Config.Tool(),
		Timeout: o.Config.ListTimeout(),
	}
}

// Planner builds the batch planner
func (o *RootOpts) Planner() (*plan.Planner, error) {
	filter, err := o.Config.PlanFilter()
	if err != nil {
		return nil, errors.Errorf("building filter: %w", err)
	}
	return &plan.Planner{
		Logger:          o.Logger,
		SourceRoot:      o.Config.Remote.Root,
		RunID:           o.Config.Run,
		DestinationRoot: o.Config.Destination,
		Filter:          filter,
	}, nil
}

// Runner builds the batch runner, reporting outcomes to the console
func (o *RootOpts) Runner(exec operation.Executor) *operation.Runner {
	return &operation.Runner{
		Logger:    o.Logger,
		Exec:      exec,
		Tool:      o.Config.Tool(),
		Transfers: o.Config.Transfer.Transfers,
		Timeout:   o.Config.Timeout(),
		TempDir:   o.Config.TempDir,
		Recorder:  o.Console,
	}
}

// OpenHistory opens the ledger, returning nil when none is configured
func (o *RootOpts) OpenHistory(ctx context.Context) (*history.Ledger, error) {
	if o.Config.History.Path == "" {
		return nil, nil
	}
	l, err := history.Open(ctx, o.Config.History.Path)
	if err != nil {
		return nil, errors.Errorf("opening history: %w", err)
	}
	return l, nil
}

// Operator wires the full pipeline. The returned close function releases the
// history ledger, if one was opened.
func (o *RootOpts) Operator(ctx context.Context) (operation.Operator, func() error, error) {
	noop := func() error { return nil }

	sup, err := o.Supervisor()
	if err != nil {
		return nil, noop, err
	}
	planner, err := o.Planner()
	if err != nil {
		return nil, noop, err
	}

	opts := operation.Options{
		Logger:     o.Logger,
		Lister:     o.Lister(sup),
		Planner:    planner,
		Runner:     o.Runner(sup),
		Range:      o.Config.BatchRange(),
		ConfigHash: o.Config.Hash(),
	}

	closer := noop
	ledger, err := o.OpenHistory(ctx)
	if err != nil {
		o.Logger.Warn().Err(err).Msg("run history unavailable, continuing without it")
	} else if ledger != nil {
		opts.Ledger = ledger
		closer = ledger.Close
	}

	op, err := operation.New(opts)
	if err != nil {
		_ = closer()
		return nil, noop, errors.Errorf("creating operator: %w", err)
	}
	return op, closer, nil
}
