// Package report tracks per-chunk status and aggregates a run summary
// (spec.md §4, component 9, "Progress and report"). Adapted from the
// teacher's internal/report.WriteJSON (timestamped-filename sidecar
// writer) combined with its internal/stats.CalculateTailLatency
// (percentile math) and internal/metrics.Collector (aggregation) —
// repurposed from per-provider health rows to per-(dataset, chunk)
// acquisition outcomes.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ethcryo/cryo/internal/cryoerr"
)

// MillisDuration marshals a time.Duration as an integer millisecond count,
// the teacher's convention in internal/report.Entry for all latency fields.
type MillisDuration time.Duration

func (d MillisDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).Milliseconds())
}

// Status is one chunk's terminal state (spec.md §4.7's state machine,
// minus the in-flight Queued/Running states the coordinator tracks itself).
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Entry is one ChunkOutput (spec.md §3), the unit the Report aggregates.
// Mirrors the shape SPEC_FULL.md §4 item 4 specifies: "dataset, chunk_id,
// status, row_count, bytes, duration_ms, error_kind, error".
type Entry struct {
	Dataset   string         `json:"dataset"`
	ChunkID   string         `json:"chunk_id"`
	Status    Status         `json:"status"`
	RowCount  int            `json:"row_count"`
	Bytes     int64          `json:"bytes"`
	LatencyMS MillisDuration `json:"duration_ms"`
	ErrorKind string         `json:"error_kind,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Report is the aggregated set of Entry values keyed by (dataset,
// chunk_id) (spec.md §3). The coordinator's worker pool calls Add from
// multiple goroutines at once (one per chunk in flight, up to
// max_concurrent_chunks), so mu guards entries the same way the teacher's
// internal/provider.ExecuteAll guards its per-provider result slice.
type Report struct {
	mu      sync.Mutex
	entries []Entry
}

// New returns an empty Report.
func New() *Report { return &Report{} }

// Add records one chunk's outcome, classifying the error via cryoerr.KindOf
// when the chunk failed.
func (r *Report) Add(dataset, chunkID string, status Status, rowCount int, bytes int64, duration time.Duration, err error) {
	e := Entry{
		Dataset:   dataset,
		ChunkID:   chunkID,
		Status:    status,
		RowCount:  rowCount,
		Bytes:     bytes,
		LatencyMS: MillisDuration(duration),
	}
	if err != nil {
		e.ErrorKind = cryoerr.KindOf(err).String()
		e.Error = err.Error()
	}
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

// Counts returns the number of done/skipped/failed chunks, for the
// user-visible summary (spec.md §7).
func (r *Report) Counts() (done, skipped, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		switch e.Status {
		case StatusDone:
			done++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return
}

// Failures returns every failed entry, for printing "failures with their
// error kind and block range" (spec.md §7).
func (r *Report) Failures() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.Status == StatusFailed {
			out = append(out, e)
		}
	}
	return out
}

// TailLatency holds p50, p95, p99, and max latency values — same shape as
// the teacher's internal/stats.TailLatency, applied here to completed
// chunks' durations (fetch, projection and write together) instead of
// per-provider RPC latencies.
type TailLatency struct {
	P50, P95, P99, Max time.Duration
}

// DurationPercentiles mirrors the teacher's CalculateTailLatency exactly
// (sort, then nearest-rank percentile), over every StatusDone entry.
func (r *Report) DurationPercentiles() TailLatency {
	r.mu.Lock()
	var latencies []time.Duration
	for _, e := range r.entries {
		if e.Status == StatusDone {
			latencies = append(latencies, time.Duration(e.LatencyMS))
		}
	}
	r.mu.Unlock()
	if len(latencies) == 0 {
		return TailLatency{}
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return TailLatency{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
		P99: percentile(sorted, 0.99),
		Max: sorted[len(sorted)-1],
	}
}

// percentile uses the nearest-rank method: ceil(n*p)-1, clamped to
// [0, n-1] — verbatim from the teacher's internal/stats.Percentile.
func percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(float64(n)*p)) - 1
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

type jsonReport struct {
	GeneratedAt time.Time `json:"generated_at"`
	Done        int       `json:"done"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Entries     []Entry   `json:"entries"`
}

// WriteSidecar writes the report to {reportDir}/{timestamp}.json (spec.md
// §6; default {output_dir}/.cryo/reports/{timestamp}.json), the same
// create-dir-then-timestamped-file pattern as the teacher's
// internal/report.WriteJSON, generalized to a caller-supplied directory
// instead of the teacher's hardcoded "reports".
func (r *Report) WriteSidecar(reportDir string, generatedAt time.Time) (string, error) {
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return "", fmt.Errorf("report: create report directory: %w", err)
	}

	done, skipped, failed := r.Counts()
	r.mu.Lock()
	entries := append([]Entry(nil), r.entries...)
	r.mu.Unlock()
	jr := jsonReport{GeneratedAt: generatedAt, Done: done, Skipped: skipped, Failed: failed, Entries: entries}

	filename := fmt.Sprintf("%d.json", generatedAt.Unix())
	path := filepath.Join(reportDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: create report file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jr); err != nil {
		return "", fmt.Errorf("report: encode json: %w", err)
	}
	return path, nil
}
