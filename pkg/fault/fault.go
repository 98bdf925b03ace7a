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

// Package fault holds the failure taxonomy shared by the supervisor, the
// listing normalizer and the batch runner.
package fault

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// 🏷️ Cause classifies why an external invocation or a parse did not succeed
type Cause int

const (
	CauseNone        Cause = iota
	CauseNonZeroExit       // tool ran and reported failure
	CauseTimedOut          // tool exceeded its allotted time
	CauseCancelled         // supervisor itself was asked to stop
	CauseOutputParse       // listing or tool output was not in the expected form
	CauseIO                // local resource could not be created, read or removed
)

// String returns a string representation of Cause
func (c Cause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseNonZeroExit:
		return "non_zero_exit"
	case CauseTimedOut:
		return "timed_out"
	case CauseCancelled:
		return "cancelled"
	case CauseOutputParse:
		return "output_parse_failure"
	case CauseIO:
		return "io_failure"
	default:
		return "unknown"
	}
}

// Isolated reports whether a failure with this cause only affects its own
// batch. Cancellation is the one cause that ends the whole run.
func (c Cause) Isolated() bool {
	return c != CauseCancelled
}

// ❌ Error is a classified failure
type Error struct {
	Cause    Cause
	ExitCode int
	Err      error
}

// New creates a classified error wrapping err
func New(cause Cause, err error) *Error {
	return &Error{Cause: cause, ExitCode: -1, Err: err}
}

// Newf creates a classified error from a format string
func Newf(cause Cause, format string, args ...any) *Error {
	return New(cause, errors.Errorf(format, args...))
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Cause.String()
	}
	if e.Cause == CauseNonZeroExit {
		return fmt.Sprintf("%s (exit code %d): %v", e.Cause, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Cause, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// 🔍 CauseOf returns the cause of the first *Error in err's chain. A nil error
// has CauseNone; an unclassified error is treated as CauseIO.
func CauseOf(err error) Cause {
	if err == nil {
		return CauseNone
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Cause
	}
	return CauseIO
}

// IsCancelled reports whether err carries CauseCancelled
func IsCancelled(err error) bool {
	return CauseOf(err) == CauseCancelled
}
