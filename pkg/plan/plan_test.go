package plan

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batches(n int) []Batch {
	out := make([]Batch, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Batch{
			Key:   TransferKey{Source: fmt.Sprintf("/src/v%d", i), Destination: fmt.Sprintf("/dst/v%d", i)},
			Files: []string{fmt.Sprintf("f%d", i)},
			Bytes: 1,
		})
	}
	return out
}

func TestSlice(t *testing.T) {
	full := FromBatches(batches(10))

	tests := []struct {
		name          string
		r             Range
		wantLen       int
		wantOffset    int
		expectedError string
	}{
		{name: "whole_plan", r: Range{}, wantLen: 10},
		{name: "middle", r: Range{Start: 4, Stop: 7}, wantLen: 3, wantOffset: 4},
		{name: "open_end", r: Range{Start: 8}, wantLen: 2, wantOffset: 8},
		{name: "stop_past_end", r: Range{Start: 5, Stop: 50}, wantLen: 5, wantOffset: 5},
		{name: "start_past_end", r: Range{Start: 40, Stop: 50}, wantLen: 0, wantOffset: 10},
		{name: "negative", r: Range{Start: -1}, expectedError: "negative bound"},
		{name: "inverted", r: Range{Start: 5, Stop: 2}, expectedError: "ends before it starts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := full.Slice(tt.r)
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, sub.Len())
			assert.Equal(t, tt.wantOffset, sub.Offset())
			assert.Equal(t, 10, sub.Total())
			if sub.Len() > 0 {
				assert.Equal(t, full.At(tt.wantOffset), sub.At(0))
			}
		})
	}
}

func TestSliceOfSlice(t *testing.T) {
	full := FromBatches(batches(10))
	a, err := full.Slice(Range{Start: 2, Stop: 8})
	require.NoError(t, err)
	b, err := a.Slice(Range{Start: 1, Stop: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, b.Offset())
	assert.Equal(t, full.At(3), b.At(0))
	assert.Equal(t, full.At(4), b.At(1))
}

func TestFromBatchesMergesKeys(t *testing.T) {
	in := batches(2)
	in = append(in, Batch{Key: in[0].Key, Files: []string{"extra"}, Bytes: 5})

	p := FromBatches(in)
	require.Equal(t, 2, p.Len())
	assert.Equal(t, []string{"f0", "extra"}, p.At(0).Files)
	assert.Equal(t, int64(6), p.At(0).Bytes)
	assert.Equal(t, 3, p.Files())
	assert.Equal(t, int64(7), p.Bytes())
}

func TestRunTokenRoundTrip(t *testing.T) {
	for _, token := range []string{"2026011200", "2025123118", "2024022906"} {
		parsed, err := ParseRunToken(token)
		require.NoError(t, err)
		assert.Equal(t, token, FormatRunToken(parsed))

		dirName := FormatRunDir(parsed)
		back, err := ParseRunDir(dirName)
		require.NoError(t, err)
		assert.True(t, parsed.Equal(back))

		found, ok := FindRunToken("x_" + FormatRunToken(back) + "_000_T.grib2.bz2")
		require.True(t, ok)
		assert.Equal(t, token, found)
	}
}

func TestFormatRunDir(t *testing.T) {
	ts := time.Date(2026, 1, 12, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-01-12T06Z", FormatRunDir(ts))

	_, err := ParseRunToken("2026013206")
	require.Error(t, err)

	_, ok := FindRunToken("f_202601120_000.grib2")
	assert.False(t, ok, "nine digits are not a run token")
}
