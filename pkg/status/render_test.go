package status

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/gribsync/pkg/fault"
	"github.com/walteh/gribsync/pkg/history"
	"github.com/walteh/gribsync/pkg/operation"
	"github.com/walteh/gribsync/pkg/plan"
	"github.com/walteh/gribsync/pkg/supervisor"
	"gitlab.com/tozd/go/errors"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

func twoBatchPlan() *plan.BatchPlan {
	return plan.FromBatches([]plan.Batch{
		{Key: testKey, Files: []string{"f_2026011200_000_T_2M.grib2.bz2", "f_2026011200_001_T_2M.grib2.bz2"}, Bytes: 3_000_000},
		{
			Key:   plan.TransferKey{Source: "/weather/nwp/icon-eu/grib/00/u_10m", Destination: "/data/2026-01-12T00Z/u_10m"},
			Files: []string{"f_2026011200_000_U_10M.grib2.bz2"},
			Bytes: 1_000_000,
		},
	})
}

func TestRenderPlan(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPlan(&buf, twoBatchPlan(), false))

	out := buf.String()
	assert.Contains(t, out, "/data/2026-01-12T00Z/t_2m")
	assert.Contains(t, out, "/data/2026-01-12T00Z/u_10m")
	assert.Contains(t, out, "3.0 MB")
	assert.Contains(t, out, "2 of 2 batches, 3 files, 4.0 MB")
	assert.NotContains(t, out, "f_2026011200_000_T_2M.grib2.bz2")
}

func TestRenderPlanVerboseSlice(t *testing.T) {
	sub, err := twoBatchPlan().Slice(plan.Range{Start: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderPlan(&buf, sub, true))

	out := buf.String()
	assert.Contains(t, out, "f_2026011200_000_U_10M.grib2.bz2")
	assert.NotContains(t, out, "/data/2026-01-12T00Z/t_2m")
	assert.Contains(t, out, "1 of 2 batches")
}

func TestRenderSummary(t *testing.T) {
	sum := &operation.Summary{Planned: 3, Succeeded: 1, Failed: 1, Cancelled: true, Outcomes: []operation.Outcome{
		{Index: 0, Key: testKey, Files: 2},
		{
			Index:  1,
			Key:    plan.TransferKey{Destination: "/data/2026-01-12T00Z/u_10m"},
			Result: &supervisor.Result{ExitCode: 5},
			Err:    &fault.Error{Cause: fault.CauseNonZeroExit, ExitCode: 5, Err: errors.New("rclone exited with status 5")},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, sum))

	out := buf.String()
	assert.Contains(t, out, "/data/2026-01-12T00Z/u_10m")
	assert.Contains(t, out, "non_zero_exit")
	assert.Contains(t, out, "status 5")
	assert.NotContains(t, out, "/data/2026-01-12T00Z/t_2m")
	assert.Contains(t, out, "⏳ Progress: 1/3 (33%) batches succeeded, 1 failed, 1 not started (cancelled)")
}

func TestRenderRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRuns(&buf, nil))
	assert.Equal(t, "no runs recorded\n", buf.String())

	started := time.Date(2026, 1, 12, 3, 0, 0, 0, time.UTC)
	runs := []history.RunRecord{
		{ID: "b", RunID: "06", Started: started.Add(6 * time.Hour), Batches: 4},
		{ID: "a", RunID: "00", Started: started, Finished: started.Add(90 * time.Second), Batches: 4, Succeeded: 3, Failed: 1},
	}

	buf.Reset()
	require.NoError(t, RenderRuns(&buf, runs))
	out := buf.String()
	assert.Contains(t, out, "unfinished")
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "2026-01-12T03:00:00Z")
}

func TestRenderBatches(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderBatches(&buf, []history.BatchRecord{
		{Index: 4, Destination: "/data/2026-01-12T00Z/t_2m", Files: 3, Bytes: 2048, Cause: "timed_out", ExitCode: -1, Duration: 2 * time.Minute},
	}))
	out := buf.String()
	assert.Contains(t, out, "timed_out")
	assert.Contains(t, out, "2m0s")
	assert.Contains(t, out, "2.0 kB")
}
