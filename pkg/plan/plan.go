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

// Package plan groups remote listing entries into destination-keyed transfer
// batches.
package plan

import (
	"gitlab.com/tozd/go/errors"
)

// 🔑 TransferKey identifies one batch
type TransferKey struct {
	Source      string // absolute remote directory holding the files
	Destination string // absolute local directory receiving them
}

// 📦 Batch is one remote directory's worth of files bound for one local directory
type Batch struct {
	Key   TransferKey
	Files []string // file names in encounter order, duplicates kept
	Bytes int64
}

// ⏭️ SkipReason names why an entry is not part of any batch
type SkipReason int

const (
	SkipDirectory SkipReason = iota
	SkipFiltered
	SkipNoRunToken
	SkipShape
)

// SkipReasons lists every reason in reporting order
var SkipReasons = []SkipReason{SkipDirectory, SkipFiltered, SkipNoRunToken, SkipShape}

// String returns a string representation of SkipReason
func (r SkipReason) String() string {
	switch r {
	case SkipDirectory:
		return "directory"
	case SkipFiltered:
		return "filtered"
	case SkipNoRunToken:
		return "no_run_token"
	case SkipShape:
		return "path_shape"
	default:
		return "unknown"
	}
}

// 📐 Range restricts a run to batches [Start, Stop). Stop 0 means the end of
// the plan.
type Range struct {
	Start int
	Stop  int
}

// IsZero reports whether the range covers the whole plan
func (r Range) IsZero() bool {
	return r.Start == 0 && r.Stop == 0
}

// Validate checks the range independently of any plan
func (r Range) Validate() error {
	if r.Start < 0 || r.Stop < 0 {
		return errors.Errorf("batch range [%d, %d) has a negative bound", r.Start, r.Stop)
	}
	if r.Stop != 0 && r.Stop < r.Start {
		return errors.Errorf("batch range [%d, %d) ends before it starts", r.Start, r.Stop)
	}
	return nil
}

// 🗺️ BatchPlan is the immutable result of planning: every batch keyed by its
// TransferKey plus the order in which keys were first seen.
type BatchPlan struct {
	order   []TransferKey
	batches map[TransferKey]*Batch
	skipped map[SkipReason]int
	offset  int
	total   int
}

// Len returns the number of batches in this plan
func (p *BatchPlan) Len() int {
	return len(p.order)
}

// Offset is the index of this plan's first batch in the plan it was sliced
// from, 0 for a full plan.
func (p *BatchPlan) Offset() int {
	return p.offset
}

// Total is the batch count of the full plan this one was sliced from
func (p *BatchPlan) Total() int {
	return p.total
}

// At returns a copy of the i-th batch
func (p *BatchPlan) At(i int) Batch {
	return p.batches[p.order[i]].clone()
}

// Batches returns copies of all batches in enumeration order
func (p *BatchPlan) Batches() []Batch {
	out := make([]Batch, 0, len(p.order))
	for _, k := range p.order {
		out = append(out, p.batches[k].clone())
	}
	return out
}

// Files returns the number of file names across all batches
func (p *BatchPlan) Files() int {
	n := 0
	for _, b := range p.batches {
		n += len(b.Files)
	}
	return n
}

// Bytes returns the listed size of all batched files
func (p *BatchPlan) Bytes() int64 {
	var n int64
	for _, b := range p.batches {
		n += b.Bytes
	}
	return n
}

// Skipped returns how many entries were left out for reason
func (p *BatchPlan) Skipped(reason SkipReason) int {
	return p.skipped[reason]
}

// 🔪 Slice returns the sub-plan covered by r. Bounds past the end are clamped.
func (p *BatchPlan) Slice(r Range) (*BatchPlan, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	start, stop := r.Start, r.Stop
	if stop == 0 || stop > len(p.order) {
		stop = len(p.order)
	}
	if start > stop {
		start = stop
	}

	sub := &BatchPlan{
		order:   append([]TransferKey(nil), p.order[start:stop]...),
		batches: make(map[TransferKey]*Batch, stop-start),
		skipped: p.skipped,
		offset:  p.offset + start,
		total:   p.total,
	}
	for _, k := range sub.order {
		sub.batches[k] = p.batches[k]
	}
	return sub, nil
}

// FromBatches builds a plan from ready batches, merging repeated keys
func FromBatches(batches []Batch) *BatchPlan {
	b := newBuilder()
	for _, batch := range batches {
		b.addBatch(batch)
	}
	return b.build()
}

func (b *Batch) clone() Batch {
	return Batch{Key: b.Key, Files: append([]string(nil), b.Files...), Bytes: b.Bytes}
}

// builder is the single-pass fold behind Plan; it is never exposed
type builder struct {
	order   []TransferKey
	batches map[TransferKey]*Batch
	skipped map[SkipReason]int
}

func newBuilder() *builder {
	return &builder{
		batches: map[TransferKey]*Batch{},
		skipped: map[SkipReason]int{},
	}
}

func (b *builder) batch(key TransferKey) *Batch {
	batch, ok := b.batches[key]
	if !ok {
		batch = &Batch{Key: key}
		b.batches[key] = batch
		b.order = append(b.order, key)
	}
	return batch
}

func (b *builder) add(key TransferKey, name string, size int64) {
	batch := b.batch(key)
	batch.Files = append(batch.Files, name)
	batch.Bytes += size
}

func (b *builder) addBatch(in Batch) {
	batch := b.batch(in.Key)
	batch.Files = append(batch.Files, in.Files...)
	batch.Bytes += in.Bytes
}

func (b *builder) skip(reason SkipReason) {
	b.skipped[reason]++
}

func (b *builder) build() *BatchPlan {
	p := &BatchPlan{
		order:   b.order,
		batches: b.batches,
		skipped: b.skipped,
		total:   len(b.order),
	}
	*b = builder{}
	return p
}
