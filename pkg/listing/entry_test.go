package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/gribsync/pkg/fault"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		want          []RemoteEntry
		expectedError string
	}{
		{
			name: "rclone_lsjson_output",
			input: `[
{"Path":"alb_rad","Name":"alb_rad","Size":-1,"MimeType":"inode/directory","ModTime":"2026-01-12T02:00:00Z","IsDir":true},
{"Path":"alb_rad/icon-eu_europe_regular-lat-lon_single-level_2026011200_000_ALB_RAD.grib2.bz2","Name":"icon-eu_europe_regular-lat-lon_single-level_2026011200_000_ALB_RAD.grib2.bz2","Size":204131,"IsDir":false}
]`,
			want: []RemoteEntry{
				{Path: "alb_rad", Name: "alb_rad", Size: 0, IsDir: true},
				{
					Path: "alb_rad/icon-eu_europe_regular-lat-lon_single-level_2026011200_000_ALB_RAD.grib2.bz2",
					Name: "icon-eu_europe_regular-lat-lon_single-level_2026011200_000_ALB_RAD.grib2.bz2",
					Size: 204131,
				},
			},
		},
		{
			name:  "empty_array",
			input: "[\n]\n",
			want:  []RemoteEntry{},
		},
		{
			name:  "size_absent",
			input: `[{"Path":"t_2m","Name":"t_2m","IsDir":true}]`,
			want:  []RemoteEntry{{Path: "t_2m", Name: "t_2m", IsDir: true}},
		},
		{name: "empty_payload", input: "  ", expectedError: "empty listing"},
		{name: "object_not_array", input: `{"Path":"a"}`, expectedError: "not a JSON array"},
		{name: "truncated", input: `[{"Path":"a","Name":"a","IsDir":false}`, expectedError: "decoding listing"},
		{name: "wrong_type", input: `[{"Path":1,"Name":"a","IsDir":false}]`, expectedError: "decoding listing"},
		{name: "missing_isdir", input: `[{"Path":"a","Name":"a"}]`, expectedError: "missing IsDir"},
		{name: "missing_name", input: `[{"Path":"a","IsDir":false}]`, expectedError: "missing Name"},
		{name: "null_record", input: `[null]`, expectedError: "null record"},
		{name: "name_mismatch", input: `[{"Path":"a/b","Name":"c","IsDir":false}]`, expectedError: "not the last segment"},
		{name: "negative_file_size", input: `[{"Path":"a","Name":"a","Size":-5,"IsDir":false}]`, expectedError: "negative size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize([]byte(tt.input))
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Equal(t, fault.CauseOutputParse, fault.CauseOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFiles(t *testing.T) {
	entries := []RemoteEntry{
		{Path: "a", Name: "a", IsDir: true},
		{Path: "a/x", Name: "x"},
		{Path: "a/y", Name: "y"},
	}
	assert.Equal(t, []RemoteEntry{entries[1], entries[2]}, Files(entries))
}
