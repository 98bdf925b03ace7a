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
	"path"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/gribsync/pkg/listing"
	"github.com/walteh/gribsync/pkg/plan"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Operator defines the mirror operations
type Operator interface {
	// Plan lists the run directory and groups its files into batches
	Plan(ctx context.Context) (*plan.BatchPlan, error)
	// Run transfers the batches of full that fall into the configured range
	Run(ctx context.Context, full *plan.BatchPlan) (*Report, error)
	// Sync is Plan followed by Run
	Sync(ctx context.Context) (*Report, error)
}

// 📂 Lister fetches a recursive listing; *listing.Lister implements it
type Lister interface {
	List(ctx context.Context, dir string) ([]listing.RemoteEntry, error)
}

// 📒 Ledger persists runs and their batch outcomes
type Ledger interface {
	BeginRun(ctx context.Context, info RunInfo) (string, error)
	RecordBatch(ctx context.Context, runID string, o Outcome) error
	FinishRun(ctx context.Context, runID string, sum *Summary) error
}

// ℹ️ RunInfo describes a run as it starts
type RunInfo struct {
	RunID       string // the model run token, e.g. 2025030112
	Source      string
	Destination string
	ConfigHash  string
	Batches     int
	Started     time.Time
}

// 📋 Report is what Sync produced
type Report struct {
	LedgerID string // "" when no ledger was used
	Plan     *plan.BatchPlan
	Summary  *Summary
}

// 🔧 Options contains configuration for the operator
type Options struct {
	Logger     *zerolog.Logger
	Lister     Lister
	Planner    *plan.Planner
	Runner     *Runner
	Ledger     Ledger // optional
	Range      plan.Range
	ConfigHash string
}

// 🏭 New creates a new operator with the given options
func New(opts Options) (Operator, error) {
	if opts.Lister == nil {
		return nil, errors.Errorf("lister is required")
	}
	if opts.Planner == nil {
		return nil, errors.Errorf("planner is required")
	}
	if opts.Runner == nil {
		return nil, errors.Errorf("runner is required")
	}
	if err := opts.Range.Validate(); err != nil {
		return nil, errors.Errorf("validating range: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &operator{
		logger:     logger,
		lister:     opts.Lister,
		planner:    opts.Planner,
		runner:     opts.Runner,
		ledger:     opts.Ledger,
		rng:        opts.Range,
		configHash: opts.ConfigHash,
	}, nil
}

// 🎮 operator implements the Operator interface
type operator struct {
	logger     *zerolog.Logger
	lister     Lister
	planner    *plan.Planner
	runner     *Runner
	ledger     Ledger
	rng        plan.Range
	configHash string
}

// sourceDir is the remote directory holding the run
func (o *operator) sourceDir() string {
	return path.Join(o.planner.SourceRoot, o.planner.RunID)
}

// Plan implements Operator.Plan
func (o *operator) Plan(ctx context.Context) (*plan.BatchPlan, error) {
	entries, err := o.lister.List(ctx, o.sourceDir())
	if err != nil {
		return nil, errors.Errorf("listing run %s: %w", o.planner.RunID, err)
	}
	return o.planner.Plan(entries), nil
}

// Sync method is implemented in sync.go
