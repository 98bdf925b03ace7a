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

// Package history keeps a SQLite ledger of sync runs and their batches.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/walteh/gribsync/pkg/operation"
	"gitlab.com/tozd/go/errors"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
  id           TEXT PRIMARY KEY,
  run_id       TEXT NOT NULL,
  source       TEXT NOT NULL,
  destination  TEXT NOT NULL,
  config_hash  TEXT,
  batches      INTEGER NOT NULL,
  started_at   TEXT NOT NULL,
  finished_at  TEXT,
  succeeded    INTEGER NOT NULL DEFAULT 0,
  failed       INTEGER NOT NULL DEFAULT 0,
  cancelled    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS batches (
  run          TEXT NOT NULL REFERENCES runs(id),
  idx          INTEGER NOT NULL,
  source       TEXT NOT NULL,
  destination  TEXT NOT NULL,
  files        INTEGER NOT NULL,
  bytes        INTEGER NOT NULL,
  cause        TEXT NOT NULL,
  exit_code    INTEGER NOT NULL,
  duration_ms  INTEGER NOT NULL,
  error        TEXT,
  recorded_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS batches_run ON batches(run, idx);
`

// 📒 Ledger is a SQLite backed operation.Ledger
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

var _ operation.Ledger = (*Ledger)(nil)

// 🏭 Open opens (creating if needed) the ledger at path
func Open(ctx context.Context, path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Errorf("creating history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Errorf("opening history %s: %w", path, err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Errorf("creating history schema: %w", err)
	}
	return &Ledger{db: db, now: time.Now}, nil
}

// Close releases the database
func (l *Ledger) Close() error {
	return l.db.Close()
}

// BeginRun inserts a run row and returns its generated id
func (l *Ledger) BeginRun(ctx context.Context, info operation.RunInfo) (string, error) {
	id := uuid.NewString()
	started := info.Started
	if started.IsZero() {
		started = l.now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, run_id, source, destination, config_hash, batches, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, info.RunID, info.Source, info.Destination, info.ConfigHash, info.Batches, formatTime(started),
	)
	if err != nil {
		return "", errors.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// RecordBatch stores one batch outcome of run id
func (l *Ledger) RecordBatch(ctx context.Context, id string, o operation.Outcome) error {
	exitCode := -1
	var duration time.Duration
	if o.Result != nil {
		exitCode = o.Result.ExitCode
		duration = o.Result.Duration
	}
	var msg sql.NullString
	if o.Err != nil {
		msg = sql.NullString{String: o.Err.Error(), Valid: true}
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO batches (run, idx, source, destination, files, bytes, cause, exit_code, duration_ms, error, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, o.Index, o.Key.Source, o.Key.Destination, o.Files, o.Bytes,
		o.Cause().String(), exitCode, duration.Milliseconds(), msg, formatTime(l.now()),
	)
	if err != nil {
		return errors.Errorf("inserting batch %d: %w", o.Index, err)
	}
	return nil
}

// FinishRun stamps the run with its final counts
func (l *Ledger) FinishRun(ctx context.Context, id string, sum *operation.Summary) error {
	if sum == nil {
		sum = &operation.Summary{}
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, succeeded = ?, failed = ?, cancelled = ? WHERE id = ?`,
		formatTime(l.now()), sum.Succeeded, sum.Failed, sum.Cancelled, id,
	)
	if err != nil {
		return errors.Errorf("updating run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Errorf("run %s not found", id)
	}
	return nil
}

// fixed width so that text ordering is time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return time.Time{}, errors.Errorf("parsing timestamp %q: %w", s.String, err)
	}
	return t, nil
}
