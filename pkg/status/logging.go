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

package status

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/walteh/gribsync/pkg/fault"
	"github.com/walteh/gribsync/pkg/operation"
)

// 🎨 Display configuration
const (
	lineIndent = 4  // spaces to indent batch entries
	destWidth  = 45 // width for the destination directory
	filesWidth = 10 // width for the file count
	causeWidth = 20 // width for the cause text
)

// 🎯 FormatOutcomeLine formats one batch outcome as an aligned, colored line
func FormatOutcomeLine(o operation.Outcome) string {
	var prefix string
	switch o.Cause() {
	case fault.CauseNone:
		prefix = color.GreenString("✓")
	case fault.CauseCancelled:
		prefix = color.YellowString("⟳")
	default:
		prefix = color.RedString("✗")
	}

	destPart := fmt.Sprintf("%-*s", destWidth, o.Key.Destination)
	filesPart := fmt.Sprintf("%-*s", filesWidth, fmt.Sprintf("%d files", o.Files))
	causePart := fmt.Sprintf("%-*s", causeWidth, o.Cause())

	return fmt.Sprintf("%s%s %s %s %s %s",
		strings.Repeat(" ", lineIndent),
		prefix,
		destPart,
		filesPart,
		causePart,
		humanize.Bytes(uint64(o.Bytes)),
	)
}
