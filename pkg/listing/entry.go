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

// Package listing turns the transfer tool's JSON directory listing into typed
// entries.
package listing

import (
	"bytes"
	"encoding/json"
	"path"

	"github.com/walteh/gribsync/pkg/fault"
	"gitlab.com/tozd/go/errors"
)

// 📄 RemoteEntry is one record of a remote listing
type RemoteEntry struct {
	Path  string // slash separated, relative to the listed directory
	Name  string // last segment of Path
	Size  int64
	IsDir bool
}

// rawEntry mirrors one lsjson record. Pointers tell absent fields apart.
type rawEntry struct {
	Path  *string `json:"Path"`
	Name  *string `json:"Name"`
	Size  *int64  `json:"Size"`
	IsDir *bool   `json:"IsDir"`
}

// 🔍 Normalize validates a raw listing and returns its entries in order.
//
// Any payload that is not a JSON array of records carrying Path, Name and
// IsDir fails with fault.CauseOutputParse. Size may be absent; rclone reports
// -1 for directories, which becomes 0.
func Normalize(data []byte) ([]RemoteEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fault.Newf(fault.CauseOutputParse, "empty listing")
	}
	if trimmed[0] != '[' {
		return nil, fault.Newf(fault.CauseOutputParse, "listing is not a JSON array")
	}

	var raws []*rawEntry
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fault.New(fault.CauseOutputParse, errors.Errorf("decoding listing: %w", err))
	}

	entries := make([]RemoteEntry, 0, len(raws))
	for i, raw := range raws {
		entry, err := raw.normalize()
		if err != nil {
			return nil, fault.New(fault.CauseOutputParse, errors.Errorf("record %d: %w", i, err))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *rawEntry) normalize() (RemoteEntry, error) {
	if r == nil {
		return RemoteEntry{}, errors.New("null record")
	}
	if r.Path == nil || *r.Path == "" {
		return RemoteEntry{}, errors.New("missing Path")
	}
	if r.Name == nil || *r.Name == "" {
		return RemoteEntry{}, errors.Errorf("missing Name for %q", *r.Path)
	}
	if r.IsDir == nil {
		return RemoteEntry{}, errors.Errorf("missing IsDir for %q", *r.Path)
	}
	if path.Base(*r.Path) != *r.Name {
		return RemoteEntry{}, errors.Errorf("name %q is not the last segment of %q", *r.Name, *r.Path)
	}

	var size int64
	if r.Size != nil {
		size = *r.Size
	}
	if size < 0 {
		if !*r.IsDir {
			return RemoteEntry{}, errors.Errorf("negative size %d for file %q", size, *r.Path)
		}
		size = 0
	}

	return RemoteEntry{
		Path:  *r.Path,
		Name:  *r.Name,
		Size:  size,
		IsDir: *r.IsDir,
	}, nil
}

// Files returns the entries that are not directories
func Files(entries []RemoteEntry) []RemoteEntry {
	files := make([]RemoteEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir {
			files = append(files, e)
		}
	}
	return files
}
