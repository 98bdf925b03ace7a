package operation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/gribsync/pkg/fault"
	"github.com/walteh/gribsync/pkg/plan"
	"github.com/walteh/gribsync/pkg/rclone"
	"github.com/walteh/gribsync/pkg/supervisor"
	"gitlab.com/tozd/go/errors"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, argv []string, timeout time.Duration) (*supervisor.Result, error) {
	args := m.Called(ctx, argv, timeout)
	res, _ := args.Get(0).(*supervisor.Result)
	return res, args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordBatch(ctx context.Context, o Outcome) error {
	return m.Called(ctx, o).Error(0)
}

// filesFrom extracts the file list path from a copy command
func filesFrom(argv []string) string {
	for _, a := range argv {
		if v, ok := strings.CutPrefix(a, "--files-from-raw="); ok {
			return v
		}
	}
	return ""
}

func sourceOf(argv []string) string {
	for _, a := range argv {
		if v, ok := strings.CutPrefix(a, ":ftp:"); ok {
			return v
		}
	}
	return ""
}

func testPlan(n int) *plan.BatchPlan {
	var batches []plan.Batch
	for i := 0; i < n; i++ {
		v := string(rune('a' + i))
		batches = append(batches, plan.Batch{
			Key: plan.TransferKey{
				Source:      "/grib/00/" + v,
				Destination: "/data/2026-01-12T00Z/" + v,
			},
			Files: []string{"f_2026011200_000_" + v + ".grib2.bz2", "f_2026011200_001_" + v + ".grib2.bz2"},
			Bytes: 20,
		})
	}
	return plan.FromBatches(batches)
}

func newTestRunner(t *testing.T, exec Executor) (*Runner, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	return &Runner{
		Logger:    &logger,
		Exec:      exec,
		Tool:      rclone.Tool{Remote: rclone.Remote{Host: "opendata.dwd.de"}},
		Transfers: 4,
		Timeout:   time.Minute,
		TempDir:   t.TempDir(),
	}, &buf
}

func requireNoFileLists(t *testing.T, dir string) {
	t.Helper()
	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, left, "file lists must be removed")
}

func TestRunnerIsolatesFailures(t *testing.T) {
	exec := &mockExecutor{}
	r, _ := newTestRunner(t, exec)
	p := testPlan(3)

	var seen []string
	exec.On("Execute", mock.Anything, mock.Anything, time.Minute).Run(func(args mock.Arguments) {
		argv := args.Get(1).([]string)
		data, err := os.ReadFile(filesFrom(argv))
		require.NoError(t, err)
		seen = append(seen, string(data))
	}).Return(&supervisor.Result{Succeeded: true, ExitCode: 0}, nil).Once()
	exec.On("Execute", mock.Anything, mock.Anything, time.Minute).Return(
		&supervisor.Result{ExitCode: 3, Cause: fault.CauseNonZeroExit},
		&fault.Error{Cause: fault.CauseNonZeroExit, ExitCode: 3, Err: errors.New("rclone exited with status 3")},
	).Once()
	exec.On("Execute", mock.Anything, mock.Anything, time.Minute).Return(&supervisor.Result{Succeeded: true}, nil).Once()

	sum, err := r.Run(context.Background(), p)
	require.NoError(t, err)

	exec.AssertNumberOfCalls(t, "Execute", 3)
	assert.Equal(t, 3, sum.Attempted())
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.False(t, sum.Cancelled)
	assert.Equal(t, fault.CauseNonZeroExit, sum.Outcomes[1].Cause())
	assert.Equal(t, fault.CauseNone, sum.Outcomes[2].Cause())

	require.Len(t, seen, 1)
	assert.Equal(t, "f_2026011200_000_a.grib2.bz2\nf_2026011200_001_a.grib2.bz2\n", seen[0])
	requireNoFileLists(t, r.TempDir)
}

func TestRunnerStopsOnCancellation(t *testing.T) {
	exec := &mockExecutor{}
	r, _ := newTestRunner(t, exec)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &mockRecorder{}
	rec.On("RecordBatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		assert.NoError(t, args.Get(0).(context.Context).Err(), "outcomes are recorded even after cancellation")
	}).Return(nil)
	r.Recorder = rec

	exec.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(&supervisor.Result{Succeeded: true}, nil).Once()
	exec.On("Execute", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		cancel()
	}).Return(
		&supervisor.Result{ExitCode: -1, Cause: fault.CauseCancelled},
		&fault.Error{Cause: fault.CauseCancelled, ExitCode: -1, Err: context.Canceled},
	).Once()

	sum, err := r.Run(ctx, testPlan(4))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, fault.IsCancelled(err))

	exec.AssertNumberOfCalls(t, "Execute", 2)
	rec.AssertNumberOfCalls(t, "RecordBatch", 2)
	assert.True(t, sum.Cancelled)
	assert.Equal(t, 4, sum.Planned)
	assert.Equal(t, 2, sum.Attempted())
	requireNoFileLists(t, r.TempDir)
}

func TestRunnerAlreadyCancelled(t *testing.T) {
	exec := &mockExecutor{}
	r, _ := newTestRunner(t, exec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := r.Run(ctx, testPlan(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, sum.Cancelled)
	assert.Zero(t, sum.Attempted())
	exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunnerProgressUsesAbsoluteIndex(t *testing.T) {
	exec := &mockExecutor{}
	r, buf := newTestRunner(t, exec)
	exec.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(&supervisor.Result{Succeeded: true}, nil)

	sub, err := testPlan(5).Slice(plan.Range{Start: 2, Stop: 4})
	require.NoError(t, err)

	sum, err := r.Run(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 2, sum.Outcomes[0].Index)
	assert.Equal(t, 3, sum.Outcomes[1].Index)

	out := buf.String()
	assert.Contains(t, out, "[3/5] syncing 2 files to /data/2026-01-12T00Z/c")
	assert.Contains(t, out, "[4/5] syncing 2 files to /data/2026-01-12T00Z/d")
	assert.NotContains(t, out, "[1/5]")
}

func TestRunnerCommandShape(t *testing.T) {
	exec := &mockExecutor{}
	r, _ := newTestRunner(t, exec)

	exec.On("Execute", mock.Anything, mock.Anything, time.Minute).Run(func(args mock.Arguments) {
		argv := args.Get(1).([]string)
		assert.Equal(t, []string{"rclone", "copy"}, argv[:2])
		assert.Equal(t, "/grib/00/a", sourceOf(argv))
		assert.Contains(t, argv, "/data/2026-01-12T00Z/a")
		assert.Contains(t, argv, "--transfers=4")
		assert.Contains(t, argv, "--no-traverse")
		assert.Equal(t, r.TempDir, filepath.Dir(filesFrom(argv)))
	}).Return(&supervisor.Result{Succeeded: true}, nil)

	_, err := r.Run(context.Background(), testPlan(1))
	require.NoError(t, err)
	exec.AssertExpectations(t)
}

func TestRunnerFileListFailure(t *testing.T) {
	exec := &mockExecutor{}
	r, _ := newTestRunner(t, exec)
	r.TempDir = filepath.Join(t.TempDir(), "missing")

	sum, err := r.Run(context.Background(), testPlan(2))
	require.NoError(t, err)

	exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 2, sum.Failed)
	assert.Nil(t, sum.Outcomes[0].Result)
	assert.Equal(t, fault.CauseIO, sum.Outcomes[0].Cause())
}

func TestRunnerIsolatesTimeouts(t *testing.T) {
	exec := &mockExecutor{}
	r, buf := newTestRunner(t, exec)

	exec.On("Execute", mock.Anything, mock.Anything, time.Minute).Return(
		&supervisor.Result{ExitCode: -1, Cause: fault.CauseTimedOut},
		fault.New(fault.CauseTimedOut, errors.New("rclone did not finish within 1m0s")),
	).Once()
	exec.On("Execute", mock.Anything, mock.Anything, time.Minute).Return(&supervisor.Result{Succeeded: true}, nil).Once()

	sum, err := r.Run(context.Background(), testPlan(2))
	require.NoError(t, err)

	exec.AssertNumberOfCalls(t, "Execute", 2)
	assert.False(t, sum.Cancelled)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, fault.CauseTimedOut, sum.Outcomes[0].Cause())
	assert.True(t, sum.Outcomes[1].Succeeded())
	assert.Contains(t, buf.String(), `"source":"/grib/00/a"`)
	requireNoFileLists(t, r.TempDir)
}

func TestRunnerCleanupFailureKeepsTransferResult(t *testing.T) {
	exec := &mockExecutor{}
	r, buf := newTestRunner(t, exec)

	removeList := func(args mock.Arguments) {
		require.NoError(t, os.Remove(filesFrom(args.Get(1).([]string))))
	}
	exec.On("Execute", mock.Anything, mock.Anything, time.Minute).Run(removeList).
		Return(&supervisor.Result{Succeeded: true}, nil).Once()
	exec.On("Execute", mock.Anything, mock.Anything, time.Minute).Run(removeList).Return(
		&supervisor.Result{ExitCode: 1, Cause: fault.CauseNonZeroExit},
		&fault.Error{Cause: fault.CauseNonZeroExit, ExitCode: 1, Err: errors.New("rclone exited with status 1")},
	).Once()

	sum, err := r.Run(context.Background(), testPlan(2))
	require.NoError(t, err)

	ok, failed := sum.Outcomes[0], sum.Outcomes[1]
	assert.Error(t, ok.CleanupErr)
	assert.True(t, ok.Succeeded())
	assert.Equal(t, fault.CauseNone, ok.Cause())

	assert.Error(t, failed.CleanupErr)
	assert.False(t, failed.Succeeded())
	assert.Equal(t, fault.CauseNonZeroExit, failed.Cause())

	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Contains(t, buf.String(), "could not remove file list")
}
