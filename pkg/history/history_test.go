package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/gribsync/pkg/fault"
	"github.com/walteh/gribsync/pkg/operation"
	"github.com/walteh/gribsync/pkg/plan"
	"github.com/walteh/gribsync/pkg/supervisor"
	"gitlab.com/tozd/go/errors"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	started := time.Date(2026, 1, 12, 3, 15, 0, 0, time.UTC)
	id, err := l.BeginRun(ctx, operation.RunInfo{
		RunID:       "00",
		Source:      "/weather/nwp/icon-eu/grib/00",
		Destination: "/data/icon-eu",
		ConfigHash:  "abc123",
		Batches:     2,
		Started:     started,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	key := plan.TransferKey{Source: "/weather/nwp/icon-eu/grib/00/t_2m", Destination: "/data/icon-eu/2026-01-12T00Z/t_2m"}
	ok := operation.Outcome{
		Index: 0, Key: key, Files: 3, Bytes: 300,
		Result: &supervisor.Result{Succeeded: true, ExitCode: 0, Duration: 1500 * time.Millisecond},
	}
	failed := operation.Outcome{
		Index: 1, Key: key, Files: 1, Bytes: 10,
		Result: &supervisor.Result{ExitCode: 3},
		Err:    &fault.Error{Cause: fault.CauseNonZeroExit, ExitCode: 3, Err: errors.New("rclone exited with status 3")},
	}
	require.NoError(t, l.RecordBatch(ctx, id, ok))
	require.NoError(t, l.RecordBatch(ctx, id, failed))
	require.NoError(t, l.FinishRun(ctx, id, &operation.Summary{Planned: 2, Succeeded: 1, Failed: 1}))

	runs, err := l.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, id, r.ID)
	assert.Equal(t, "00", r.RunID)
	assert.Equal(t, "abc123", r.ConfigHash)
	assert.Equal(t, 2, r.Batches)
	assert.True(t, started.Equal(r.Started))
	assert.True(t, r.Done())
	assert.Equal(t, 1, r.Succeeded)
	assert.Equal(t, 1, r.Failed)
	assert.False(t, r.Cancelled)

	batches, err := l.Batches(ctx, id)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "none", batches[0].Cause)
	assert.Equal(t, 1500*time.Millisecond, batches[0].Duration)
	assert.Empty(t, batches[0].Error)
	assert.Equal(t, "non_zero_exit", batches[1].Cause)
	assert.Equal(t, 3, batches[1].ExitCode)
	assert.Contains(t, batches[1].Error, "status 3")
}

func TestLedgerRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	base := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	for i, run := range []string{"00", "06", "12"} {
		_, err := l.BeginRun(ctx, operation.RunInfo{RunID: run, Started: base.Add(time.Duration(i) * 6 * time.Hour)})
		require.NoError(t, err)
	}

	runs, err := l.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "12", runs[0].RunID)
	assert.Equal(t, "06", runs[1].RunID)
	assert.False(t, runs[0].Done())

	all, err := l.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLedgerCancelledRun(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	id, err := l.BeginRun(ctx, operation.RunInfo{RunID: "18", Batches: 5})
	require.NoError(t, err)
	require.NoError(t, l.RecordBatch(ctx, id, operation.Outcome{
		Index: 0,
		Err:   fault.New(fault.CauseCancelled, context.Canceled),
	}))
	require.NoError(t, l.FinishRun(ctx, id, &operation.Summary{Planned: 5, Failed: 1, Cancelled: true}))

	runs, err := l.Runs(ctx, 1)
	require.NoError(t, err)
	assert.True(t, runs[0].Cancelled)

	batches, err := l.Batches(ctx, id)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "cancelled", batches[0].Cause)
	assert.Equal(t, -1, batches[0].ExitCode)
}

func TestFinishUnknownRun(t *testing.T) {
	l := openTestLedger(t)
	err := l.FinishRun(context.Background(), "missing", &operation.Summary{})
	assert.ErrorContains(t, err, "not found")
}

func TestLedgerReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	l, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = l.BeginRun(ctx, operation.RunInfo{RunID: "00"})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = Open(ctx, path)
	require.NoError(t, err)
	defer l.Close()
	runs, err := l.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
