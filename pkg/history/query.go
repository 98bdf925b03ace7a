package history

import (
	"context"
	"database/sql"
	"time"

	"gitlab.com/tozd/go/errors"
)

// 📄 RunRecord is one row of the runs table
type RunRecord struct {
	ID          string
	RunID       string
	Source      string
	Destination string
	ConfigHash  string
	Batches     int
	Started     time.Time
	Finished    time.Time // zero while the run is in progress or was killed
	Succeeded   int
	Failed      int
	Cancelled   bool
}

// Done reports whether FinishRun was called for the run
func (r RunRecord) Done() bool {
	return !r.Finished.IsZero()
}

// 📄 BatchRecord is one row of the batches table
type BatchRecord struct {
	Index       int
	Source      string
	Destination string
	Files       int
	Bytes       int64
	Cause       string
	ExitCode    int
	Duration    time.Duration
	Error       string
}

// Runs returns the most recent runs first, at most limit (all when <= 0)
func (l *Ledger) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, run_id, source, destination, config_hash, batches, started_at, finished_at, succeeded, failed, cancelled
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var hash, started, finished sql.NullString
		if err := rows.Scan(&r.ID, &r.RunID, &r.Source, &r.Destination, &hash, &r.Batches,
			&started, &finished, &r.Succeeded, &r.Failed, &r.Cancelled); err != nil {
			return nil, errors.Errorf("scanning run: %w", err)
		}
		r.ConfigHash = hash.String
		if r.Started, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.Finished, err = parseTime(finished); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("iterating runs: %w", err)
	}
	return out, nil
}

// Batches returns the recorded batches of run id in plan order
func (l *Ledger) Batches(ctx context.Context, id string) ([]BatchRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT idx, source, destination, files, bytes, cause, exit_code, duration_ms, error
		 FROM batches WHERE run = ? ORDER BY idx`, id)
	if err != nil {
		return nil, errors.Errorf("querying batches of %s: %w", id, err)
	}
	defer rows.Close()

	var out []BatchRecord
	for rows.Next() {
		var b BatchRecord
		var ms int64
		var msg sql.NullString
		if err := rows.Scan(&b.Index, &b.Source, &b.Destination, &b.Files, &b.Bytes,
			&b.Cause, &b.ExitCode, &ms, &msg); err != nil {
			return nil, errors.Errorf("scanning batch: %w", err)
		}
		b.Duration = time.Duration(ms) * time.Millisecond
		b.Error = msg.String
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("iterating batches: %w", err)
	}
	return out, nil
}
