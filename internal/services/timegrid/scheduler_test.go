package timegrid

import (
	"testing"
	"time"

	drepo "ChochScan/internal/domain/repository"
)

func contains(tfs []drepo.Timeframe, tf drepo.Timeframe) bool {
	for _, x := range tfs {
		if x == tf {
			return true
		}
	}
	return false
}

func TestSchedulerGrace(t *testing.T) {
	s := NewScheduler([]drepo.Timeframe{drepo.TF5m}, 30*time.Second)
	s.lastScanned[drepo.TF5m] = time.Date(2025, 10, 26, 10, 0, 0, 0, time.UTC)

	// 10:05 candle closed, but only 12s have elapsed.
	now := time.Date(2025, 10, 26, 10, 5, 12, 0, time.UTC)
	if got := s.Scannable(now); len(got) != 0 {
		t.Fatalf("scannable before grace: %v", got)
	}

	now = time.Date(2025, 10, 26, 10, 5, 35, 0, time.UTC)
	got := s.Scannable(now)
	if !contains(got, drepo.TF5m) {
		t.Fatalf("expected 5m scannable at %v", now)
	}
	want := time.Date(2025, 10, 26, 10, 5, 0, 0, time.UTC)
	if !s.LastScanned(drepo.TF5m).Equal(want) {
		t.Fatalf("last scanned = %v, want %v", s.LastScanned(drepo.TF5m), want)
	}
}

func TestSchedulerCoalescesMissedTicks(t *testing.T) {
	s := NewScheduler([]drepo.Timeframe{drepo.TF5m}, 30*time.Second)

	// Three candle closes elapse with no ticks; the next tick yields one
	// scan for the most recent close only.
	now := time.Date(2025, 10, 26, 12, 16, 0, 0, time.UTC)
	got := s.Scannable(now)
	if len(got) != 1 {
		t.Fatalf("expected one scannable timeframe, got %v", got)
	}
	if !s.LastScanned(drepo.TF5m).Equal(time.Date(2025, 10, 26, 12, 15, 0, 0, time.UTC)) {
		t.Fatalf("unexpected last scanned %v", s.LastScanned(drepo.TF5m))
	}

	// The same close never fires twice.
	if got := s.Scannable(now.Add(time.Minute)); len(got) != 0 {
		t.Fatalf("duplicate scan for same close: %v", got)
	}
}

func TestScheduler25mUsesReferenceGrid(t *testing.T) {
	s := NewScheduler([]drepo.Timeframe{drepo.TF25m}, 30*time.Second)

	// 00:20 is a 25m boundary (reference 2025-10-24 17:05), midnight is not.
	now := time.Date(2025, 10, 26, 0, 21, 0, 0, time.UTC)
	got := s.Scannable(now)
	if !contains(got, drepo.TF25m) {
		t.Fatalf("expected 25m scannable at %v", now)
	}
	if !s.LastScanned(drepo.TF25m).Equal(time.Date(2025, 10, 26, 0, 20, 0, 0, time.UTC)) {
		t.Fatalf("unexpected 25m close %v", s.LastScanned(drepo.TF25m))
	}
}

func TestSchedulerMultipleTimeframesSameTick(t *testing.T) {
	s := NewScheduler([]drepo.Timeframe{drepo.TF5m, drepo.TF15m, drepo.TF30m, drepo.TF1h}, 30*time.Second)
	now := time.Date(2025, 10, 26, 13, 0, 45, 0, time.UTC)
	got := s.Scannable(now)
	for _, tf := range []drepo.Timeframe{drepo.TF5m, drepo.TF15m, drepo.TF30m, drepo.TF1h} {
		if !contains(got, tf) {
			t.Fatalf("expected %s scannable on the hour, got %v", tf, got)
		}
	}
}
