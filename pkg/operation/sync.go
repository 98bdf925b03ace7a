package operation

import (
	"context"
	"time"

	"github.com/walteh/gribsync/pkg/plan"
	"gitlab.com/tozd/go/errors"
)

// Sync implements Operator.Sync
func (o *operator) Sync(ctx context.Context) (*Report, error) {
	full, err := o.Plan(ctx)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, full)
}

// Run implements Operator.Run
func (o *operator) Run(ctx context.Context, full *plan.BatchPlan) (*Report, error) {
	var err error
	p := full
	if !o.rng.IsZero() {
		p, err = full.Slice(o.rng)
		if err != nil {
			return nil, errors.Errorf("selecting batch range: %w", err)
		}
		o.logger.Info().
			Int("start", o.rng.Start).
			Int("stop", o.rng.Stop).
			Int("selected", p.Len()).
			Int("planned", full.Len()).
			Msg("restricting run to batch range")
	}

	report := &Report{Plan: p}
	if p.Len() == 0 {
		o.logger.Warn().Str("source", o.sourceDir()).Msg("nothing to sync")
		report.Summary = &Summary{}
		return report, nil
	}

	runner := *o.runner
	if o.ledger != nil {
		id, err := o.ledger.BeginRun(ctx, RunInfo{
			RunID:       o.planner.RunID,
			Source:      o.sourceDir(),
			Destination: o.planner.DestinationRoot,
			ConfigHash:  o.configHash,
			Batches:     p.Len(),
			Started:     time.Now().UTC(),
		})
		if err != nil {
			o.logger.Warn().Err(err).Msg("run history unavailable, continuing without it")
		} else {
			report.LedgerID = id
			runner.Recorder = chainRecorder{first: ledgerRecorder{ledger: o.ledger, runID: id}, next: o.runner.Recorder}
		}
	}

	sum, runErr := runner.Run(ctx, p)
	report.Summary = sum

	if report.LedgerID != "" {
		if err := o.ledger.FinishRun(context.WithoutCancel(ctx), report.LedgerID, sum); err != nil {
			o.logger.Warn().Err(err).Msg("recording run result")
		}
	}

	if runErr != nil {
		return report, errors.Errorf("syncing run %s: %w", o.planner.RunID, runErr)
	}
	return report, nil
}

// ledgerRecorder binds a ledger to one run
type ledgerRecorder struct {
	ledger Ledger
	runID  string
}

func (l ledgerRecorder) RecordBatch(ctx context.Context, o Outcome) error {
	return l.ledger.RecordBatch(ctx, l.runID, o)
}

type chainRecorder struct {
	first Recorder
	next  Recorder
}

func (c chainRecorder) RecordBatch(ctx context.Context, o Outcome) error {
	err := c.first.RecordBatch(ctx, o)
	if c.next != nil {
		if nerr := c.next.RecordBatch(ctx, o); nerr != nil && err == nil {
			err = nerr
		}
	}
	return err
}
