package plan

import (
	"regexp"
	"time"

	"gitlab.com/tozd/go/errors"
)

const (
	tokenLayout  = "2006010215"
	runDirLayout = "2006-01-02T15Z"
)

// runTokenPattern finds the YYYYMMDDHH run stamp embedded in file names,
// e.g. icon-eu_europe_regular-lat-lon_single-level_2026011200_000_ALB_RAD.grib2.bz2
var runTokenPattern = regexp.MustCompile(`_(\d{10})_`)

// FindRunToken returns the first 10-digit run token in name
func FindRunToken(name string) (string, bool) {
	m := runTokenPattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseRunToken parses a YYYYMMDDHH token as a UTC run time
func ParseRunToken(token string) (time.Time, error) {
	t, err := time.ParseInLocation(tokenLayout, token, time.UTC)
	if err != nil {
		return time.Time{}, errors.Errorf("parsing run token %q: %w", token, err)
	}
	return t, nil
}

// FormatRunToken is the inverse of ParseRunToken
func FormatRunToken(t time.Time) string {
	return t.UTC().Format(tokenLayout)
}

// FormatRunDir returns the sortable directory name of a run, YYYY-MM-DDTHHZ
func FormatRunDir(t time.Time) string {
	return t.UTC().Format(runDirLayout)
}

// ParseRunDir is the inverse of FormatRunDir
func ParseRunDir(name string) (time.Time, error) {
	t, err := time.ParseInLocation(runDirLayout, name, time.UTC)
	if err != nil {
		return time.Time{}, errors.Errorf("parsing run directory %q: %w", name, err)
	}
	return t, nil
}
