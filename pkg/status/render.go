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
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/walteh/gribsync/pkg/history"
	"github.com/walteh/gribsync/pkg/operation"
	"github.com/walteh/gribsync/pkg/plan"
	"gitlab.com/tozd/go/errors"
)

func renderTable(w io.Writer, data pterm.TableData) error {
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render(); err != nil {
		return errors.Errorf("rendering table: %w", err)
	}
	return nil
}

// 🗺️ RenderPlan prints the batches of p. With verbose set every file name is
// listed below its batch.
func RenderPlan(w io.Writer, p *plan.BatchPlan, verbose bool) error {
	data := pterm.TableData{{"#", "Source", "Destination", "Files", "Size"}}
	for i, b := range p.Batches() {
		data = append(data, []string{
			strconv.Itoa(p.Offset() + i + 1),
			b.Key.Source,
			b.Key.Destination,
			strconv.Itoa(len(b.Files)),
			humanize.Bytes(uint64(b.Bytes)),
		})
		if verbose {
			for _, f := range b.Files {
				data = append(data, []string{"", "", "  " + f, "", ""})
			}
		}
	}
	if err := renderTable(w, data); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d of %d batches, %d files, %s\n",
		p.Len(), p.Total(), p.Files(), humanize.Bytes(uint64(p.Bytes())))
	for _, reason := range plan.SkipReasons {
		if n := p.Skipped(reason); n > 0 {
			fmt.Fprintf(w, "skipped (%s): %d\n", reason, n)
		}
	}
	return nil
}

// 📊 RenderSummary prints the failed batches of a run and its totals
func RenderSummary(w io.Writer, sum *operation.Summary) error {
	var failed []operation.Outcome
	for _, o := range sum.Outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}

	if len(failed) > 0 {
		data := pterm.TableData{{"#", "Destination", "Cause", "Exit", "Error"}}
		for _, o := range failed {
			exit := "-"
			if o.Result != nil && o.Result.ExitCode >= 0 {
				exit = strconv.Itoa(o.Result.ExitCode)
			}
			data = append(data, []string{
				strconv.Itoa(o.Index + 1),
				o.Key.Destination,
				o.Cause().String(),
				exit,
				o.Err.Error(),
			})
		}
		if err := renderTable(w, data); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s batches succeeded, %d failed", FormatProgress(sum.Succeeded, sum.Planned), sum.Failed)
	if skipped := sum.Planned - sum.Attempted(); skipped > 0 {
		fmt.Fprintf(w, ", %d not started", skipped)
	}
	if sum.Cancelled {
		fmt.Fprint(w, " (cancelled)")
	}
	fmt.Fprintln(w)
	return nil
}

// 📜 RenderRuns prints recorded runs, newest first
func RenderRuns(w io.Writer, runs []history.RunRecord) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}
	data := pterm.TableData{{"ID", "Run", "Started", "Duration", "Batches", "Succeeded", "Failed", "State"}}
	for _, r := range runs {
		data = append(data, []string{
			r.ID,
			r.RunID,
			r.Started.Format(time.RFC3339),
			runDuration(r),
			strconv.Itoa(r.Batches),
			strconv.Itoa(r.Succeeded),
			strconv.Itoa(r.Failed),
			runState(r),
		})
	}
	return renderTable(w, data)
}

func runDuration(r history.RunRecord) string {
	if !r.Done() {
		return "-"
	}
	return r.Finished.Sub(r.Started).Round(time.Second).String()
}

func runState(r history.RunRecord) string {
	switch {
	case !r.Done():
		return "unfinished"
	case r.Cancelled:
		return "cancelled"
	case r.Failed > 0:
		return "partial"
	default:
		return "ok"
	}
}

// RenderBatches prints the recorded batches of one run
func RenderBatches(w io.Writer, batches []history.BatchRecord) error {
	if len(batches) == 0 {
		fmt.Fprintln(w, "no batches recorded")
		return nil
	}
	data := pterm.TableData{{"#", "Destination", "Files", "Size", "Cause", "Exit", "Duration"}}
	for _, b := range batches {
		data = append(data, []string{
			strconv.Itoa(b.Index + 1),
			b.Destination,
			strconv.Itoa(b.Files),
			humanize.Bytes(uint64(b.Bytes)),
			b.Cause,
			strconv.Itoa(b.ExitCode),
			b.Duration.Round(time.Millisecond).String(),
		})
	}
	return renderTable(w, data)
}
