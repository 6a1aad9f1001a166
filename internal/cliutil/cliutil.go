// Package cliutil is the terminal presentation layer for cmd/cryo,
// adapted from the teacher's internal/format/colors.go (the
// color.New(...).SprintFunc() palette) and internal/output/terminal.go
// (rodaine/table rendering), repurposed from per-provider health tables
// to the dataset registry and per-run report summary.
package cliutil

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/ethcryo/cryo/internal/coordinator"
	"github.com/ethcryo/cryo/internal/dataset"
	"github.com/ethcryo/cryo/internal/report"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// PrintDatasets renders the registry's dataset table for `cryo ls`
// (SPEC_FULL.md §4 item 2).
func PrintDatasets(all []*dataset.Dataset) {
	headerFmt := color.New(color.FgCyan, color.Underline).SprintfFunc()
	tbl := table.New("Dataset", "Aliases", "Granularity", "Needs Trace", "Default Columns")
	tbl.WithHeaderFormatter(headerFmt)

	for _, ds := range all {
		needsTrace := "no"
		if ds.NeedsTrace {
			needsTrace = yellow("yes")
		}
		tbl.AddRow(ds.Name, joinOrDash(ds.Aliases), ds.Granularity.String(), needsTrace, len(ds.DefaultColumns))
	}
	tbl.Print()
}

// PrintPlan renders a dry-run Plan (SPEC_FULL.md §4, "dry mode").
func PrintPlan(p *coordinator.Plan) {
	fmt.Println(bold(fmt.Sprintf("chain_id=%d  chunks=%d  estimated_requests=%d", p.ChainID, p.ChunkCount, p.EstimatedRequests)))
	fmt.Println()

	headerFmt := color.New(color.FgCyan, color.Underline).SprintfFunc()
	tbl := table.New("Dataset", "Columns", "Required Methods", "Needs Trace")
	tbl.WithHeaderFormatter(headerFmt)
	for _, d := range p.Datasets {
		needsTrace := "no"
		if d.NeedsTrace {
			needsTrace = yellow("yes")
		}
		tbl.AddRow(d.Name, len(d.Columns), joinOrDash(d.RequiredMethods), needsTrace)
	}
	tbl.Print()
}

// PrintSummary renders a completed run's report: counts, tail latency,
// and a table of failures with their error kind and block range (spec.md
// §7, "the user-visible summary prints counts ... and lists failures").
func PrintSummary(rep *report.Report) {
	done, skipped, failed := rep.Counts()
	fmt.Printf("%s %s  %s %s  %s %s\n",
		bold("done:"), green(done),
		bold("skipped:"), yellow(skipped),
		bold("failed:"), colorCount(failed))

	tl := rep.DurationPercentiles()
	fmt.Printf("%s p50=%s p95=%s p99=%s max=%s\n", bold("chunk duration:"),
		tl.P50.Round(time.Millisecond), tl.P95.Round(time.Millisecond),
		tl.P99.Round(time.Millisecond), tl.Max.Round(time.Millisecond))

	failures := rep.Failures()
	if len(failures) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(bold("failures:"))
	headerFmt := color.New(color.FgCyan, color.Underline).SprintfFunc()
	tbl := table.New("Dataset", "Chunk", "Error Kind", "Error")
	tbl.WithHeaderFormatter(headerFmt)
	for _, f := range failures {
		tbl.AddRow(f.Dataset, f.ChunkID, red(f.ErrorKind), f.Error)
	}
	tbl.Print()
}

func colorCount(n int) string {
	if n == 0 {
		return green(n)
	}
	return red(n)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	out := items[0]
	for _, s := range items[1:] {
		out += ", " + s
	}
	return out
}
