// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package operation

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/gribsync/pkg/fault"
	"github.com/walteh/gribsync/pkg/plan"
	"github.com/walteh/gribsync/pkg/rclone"
	"github.com/walteh/gribsync/pkg/supervisor"
	"gitlab.com/tozd/go/errors"
)

// 🏃 Executor runs one external command; *supervisor.Supervisor implements it
type Executor interface {
	Execute(ctx context.Context, argv []string, timeout time.Duration) (*supervisor.Result, error)
}

// 📝 Recorder receives every batch outcome as soon as it is known
type Recorder interface {
	RecordBatch(ctx context.Context, o Outcome) error
}

// 📦 Outcome is what happened to one batch
type Outcome struct {
	Index      int // position in the full plan
	Key        plan.TransferKey
	Files      int
	Bytes      int64
	Result     *supervisor.Result // nil when the tool never ran
	Err        error
	CleanupErr error // file list could not be removed; never replaces Err
}

// Succeeded reports whether the transfer tool finished the batch
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Cause classifies Err
func (o Outcome) Cause() fault.Cause {
	return fault.CauseOf(o.Err)
}

// 📊 Summary aggregates a run
type Summary struct {
	Planned   int // batches in the (possibly sliced) plan
	Succeeded int
	Failed    int
	Cancelled bool
	Outcomes  []Outcome
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	if o.Succeeded() {
		s.Succeeded++
	} else {
		s.Failed++
	}
}

// Attempted is the number of batches the runner started
func (s *Summary) Attempted() int {
	return len(s.Outcomes)
}

// 🏃 Runner executes the batches of a plan one at a time
type Runner struct {
	Logger    *zerolog.Logger
	Exec      Executor
	Tool      rclone.Tool
	Transfers int           // parallel file transfers inside one batch
	Timeout   time.Duration // per batch, 0 means none
	TempDir   string        // where file lists are written, "" for os.TempDir
	Recorder  Recorder
}

// 🏃 Run executes every batch of p in order. A failed batch never stops the
// run; a cancelled ctx does, after the in-flight batch has been drained and
// cleaned up. The summary is returned in both cases.
func (r *Runner) Run(ctx context.Context, p *plan.BatchPlan) (*Summary, error) {
	logger := r.logger()
	sum := &Summary{Planned: p.Len()}

	for i := range p.Len() {
		if err := ctx.Err(); err != nil {
			sum.Cancelled = true
			logger.Warn().Int("remaining", p.Len()-i).Msg("shutdown requested, not starting further batches")
			return sum, fault.New(fault.CauseCancelled, err)
		}

		batch := p.At(i)
		index := p.Offset() + i
		logger.Info().Msgf("[%d/%d] syncing %d files to %s", index+1, p.Total(), len(batch.Files), batch.Key.Destination)

		o := r.runBatch(ctx, index, batch)
		sum.add(o)
		r.record(ctx, o)

		if !o.Cause().Isolated() {
			sum.Cancelled = true
			logger.Warn().Str("source", batch.Key.Source).Msg("batch interrupted by shutdown request")
			return sum, errors.Errorf("batch %d: %w", index, o.Err)
		}
		if o.Err != nil {
			ev := logger.Error().Err(o.Err).
				Str("source", batch.Key.Source).
				Str("destination", batch.Key.Destination).
				Stringer("cause", o.Cause())
			if o.Result != nil {
				ev = ev.Int("exit_code", o.Result.ExitCode)
			}
			ev.Msg("batch failed")
		}
	}

	logger.Info().
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Msg("batch run finished")
	return sum, nil
}

func (r *Runner) runBatch(ctx context.Context, index int, batch plan.Batch) (o Outcome) {
	o = Outcome{
		Index: index,
		Key:   batch.Key,
		Files: len(batch.Files),
		Bytes: batch.Bytes,
	}

	listPath, err := writeFileList(r.TempDir, batch.Files)
	if err != nil {
		o.Err = fault.New(fault.CauseIO, err)
		return o
	}
	defer func() {
		if err := os.Remove(listPath); err != nil {
			o.CleanupErr = errors.Errorf("removing file list %s: %w", listPath, err)
			r.logger().Warn().Err(err).Str("file_list", listPath).Msg("could not remove file list")
		}
	}()

	argv := r.Tool.CopyCommand(batch.Key.Source, batch.Key.Destination, listPath, r.Transfers)
	o.Result, o.Err = r.Exec.Execute(ctx, argv, r.Timeout)
	return o
}

// record hands the outcome to the recorder even when ctx is already
// cancelled, so the interrupted batch is not lost.
func (r *Runner) record(ctx context.Context, o Outcome) {
	if r.Recorder == nil {
		return
	}
	if err := r.Recorder.RecordBatch(context.WithoutCancel(ctx), o); err != nil {
		r.logger().Warn().Err(err).Int("batch", o.Index).Msg("recording batch outcome")
	}
}

func (r *Runner) logger() *zerolog.Logger {
	if r.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return r.Logger
}
