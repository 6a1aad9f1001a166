package report

import (
	"sync"
	"testing"
	"time"
)

// TestAddIsSafeForConcurrentUse exercises the exact shape of
// Coordinator.Run's fan-out: many goroutines calling Add at once. Run with
// -race, this would fail before Report.mu existed.
func TestAddIsSafeForConcurrentUse(t *testing.T) {
	r := New()
	const n = 200

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			r.Add("blocks", "chunk", StatusDone, i, int64(i), time.Millisecond, nil)
		}(i)
	}
	wg.Wait()

	done, skipped, failed := r.Counts()
	if done != n {
		t.Fatalf("expected %d done entries, got %d (skipped=%d failed=%d)", n, done, skipped, failed)
	}
}

func TestCountsAndFailures(t *testing.T) {
	r := New()
	r.Add("blocks", "1_to_1", StatusDone, 10, 100, time.Millisecond, nil)
	r.Add("blocks", "2_to_2", StatusSkipped, 0, 0, 0, nil)
	r.Add("logs", "1_to_1", StatusFailed, 0, 0, time.Millisecond, errTest{})

	done, skipped, failed := r.Counts()
	if done != 1 || skipped != 1 || failed != 1 {
		t.Fatalf("got done=%d skipped=%d failed=%d, want 1,1,1", done, skipped, failed)
	}
	failures := r.Failures()
	if len(failures) != 1 || failures[0].Dataset != "logs" {
		t.Fatalf("expected one logs failure, got %+v", failures)
	}
}

type errTest struct{}

func (errTest) Error() string { return "boom" }

func TestDurationPercentilesOverDoneEntriesOnly(t *testing.T) {
	r := New()
	r.Add("blocks", "a", StatusDone, 1, 1, 10*time.Millisecond, nil)
	r.Add("blocks", "b", StatusDone, 1, 1, 20*time.Millisecond, nil)
	r.Add("blocks", "c", StatusDone, 1, 1, 30*time.Millisecond, nil)
	r.Add("blocks", "d", StatusFailed, 0, 0, 1*time.Hour, errTest{})

	tl := r.DurationPercentiles()
	if tl.Max != 30*time.Millisecond {
		t.Fatalf("expected max=30ms (failed entries excluded), got %v", tl.Max)
	}
}
