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

package plan

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/walteh/gribsync/pkg/listing"
)

// 🧭 Planner classifies listing entries into batches.
//
// The remote side of a key is SourceRoot/RunID/<variable>, the local side is
// DestinationRoot/<YYYY-MM-DDTHHZ>/<variable>. Entry paths are relative to
// SourceRoot/RunID, the directory that was listed.
type Planner struct {
	Logger          *zerolog.Logger
	SourceRoot      string
	RunID           string
	DestinationRoot string
	Filter          Filter
}

// 🎯 Decision is the outcome of classifying one entry
type Decision struct {
	Included bool
	Key      TransferKey
	Reason   SkipReason // set when not included
	Rule     string     // exclusion rule for SkipFiltered
}

// Decide classifies a single entry. It depends only on the entry and the
// planner's fixed roots.
func (p *Planner) Decide(e listing.RemoteEntry) Decision {
	if e.IsDir {
		return Decision{Reason: SkipDirectory}
	}
	if rule, ok := p.Filter.Excluded(e.Path); ok {
		return Decision{Reason: SkipFiltered, Rule: rule}
	}

	token, ok := FindRunToken(e.Name)
	if !ok {
		return Decision{Reason: SkipNoRunToken}
	}
	runTime, err := ParseRunToken(token)
	if err != nil {
		return Decision{Reason: SkipNoRunToken, Rule: token}
	}
	runDir := FormatRunDir(runTime)

	segments := strings.Split(e.Path, "/")
	if len(segments) != 2 || !plainSegment(segments[0]) || !plainSegment(segments[1]) {
		return Decision{Reason: SkipShape}
	}
	variable := segments[0]

	return Decision{
		Included: true,
		Key: TransferKey{
			Source:      path.Join(p.SourceRoot, p.RunID, path.Dir(e.Path)),
			Destination: filepath.Join(p.DestinationRoot, runDir, variable),
		},
	}
}

// 🗺️ Plan folds entries into a BatchPlan in one pass. Invalid entries are
// skipped, never fatal.
func (p *Planner) Plan(entries []listing.RemoteEntry) *BatchPlan {
	logger := p.logger()
	b := newBuilder()

	for _, e := range entries {
		d := p.Decide(e)
		if d.Included {
			b.add(d.Key, e.Name, e.Size)
			continue
		}

		b.skip(d.Reason)
		switch d.Reason {
		case SkipFiltered:
			logger.Debug().Str("path", e.Path).Str("rule", d.Rule).Msg("excluded by filter")
		case SkipNoRunToken:
			ev := logger.Warn().Str("file", e.Name).Str("path", e.Path)
			if d.Rule != "" {
				ev = ev.Str("token", d.Rule)
			}
			ev.Msg("skipping file without a valid _YYYYMMDDHH_ run token")
		case SkipShape:
			logger.Debug().Str("path", e.Path).Msg("skipping entry that is not <variable>/<file>")
		}
	}

	plan := b.build()
	logger.Info().
		Int("batches", plan.Len()).
		Int("files", plan.Files()).
		Str("size", humanize.Bytes(uint64(plan.Bytes()))).
		Int("skipped_filtered", plan.Skipped(SkipFiltered)).
		Int("skipped_no_run_token", plan.Skipped(SkipNoRunToken)).
		Int("skipped_path_shape", plan.Skipped(SkipShape)).
		Msg("batch plan ready")
	return plan
}

func (p *Planner) logger() *zerolog.Logger {
	if p.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return p.Logger
}

// plainSegment rejects segments that would escape or collapse the run tree.
func plainSegment(s string) bool {
	return s != "" && s != "." && s != ".."
}
