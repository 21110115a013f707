package timegrid

import (
	"testing"
	"time"

	drepo "ChochScan/internal/domain/repository"
)

func TestPeriodStart25mAcrossMidnight(t *testing.T) {
	// Reference 2025-10-24 17:05 UTC, interval 25m. Boundaries around the
	// 2025-10-25/26 midnight are 23:30, 23:55, 00:20, 00:45, 01:10.
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2025, 10, 25, 23, 30, 0, 0, time.UTC), time.Date(2025, 10, 25, 23, 30, 0, 0, time.UTC)},
		{time.Date(2025, 10, 25, 23, 54, 59, 0, time.UTC), time.Date(2025, 10, 25, 23, 30, 0, 0, time.UTC)},
		{time.Date(2025, 10, 25, 23, 55, 0, 0, time.UTC), time.Date(2025, 10, 25, 23, 55, 0, 0, time.UTC)},
		{time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC), time.Date(2025, 10, 25, 23, 55, 0, 0, time.UTC)},
		{time.Date(2025, 10, 26, 0, 20, 0, 0, time.UTC), time.Date(2025, 10, 26, 0, 20, 0, 0, time.UTC)},
		{time.Date(2025, 10, 26, 1, 9, 0, 0, time.UTC), time.Date(2025, 10, 26, 0, 45, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got := PeriodStart(drepo.TF25m, c.in)
		if !got.Equal(c.want) {
			t.Fatalf("PeriodStart(25m, %v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestPeriodStartBeforeReference(t *testing.T) {
	// Times before the anchor must still land on the same arithmetic
	// progression reference + k*interval with k negative.
	in := time.Date(2025, 10, 24, 17, 4, 0, 0, time.UTC)
	got := PeriodStart(drepo.TF25m, in)
	want := time.Date(2025, 10, 24, 16, 40, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("PeriodStart before reference = %v, want %v", got, want)
	}
}

func TestPeriodStartNativeMidnightModular(t *testing.T) {
	in := time.Date(2025, 10, 26, 10, 7, 12, 0, time.UTC)
	if got := PeriodStart(drepo.TF5m, in); !got.Equal(time.Date(2025, 10, 26, 10, 5, 0, 0, time.UTC)) {
		t.Fatalf("5m period start = %v", got)
	}
	if got := PeriodStart(drepo.TF1h, in); !got.Equal(time.Date(2025, 10, 26, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("1h period start = %v", got)
	}
}

func TestAggregatedReferencesOnProgression(t *testing.T) {
	for _, tf := range []drepo.Timeframe{drepo.TF10m, drepo.TF20m, drepo.TF25m, drepo.TF40m, drepo.TF50m} {
		ref, ok := Reference(tf)
		if !ok {
			t.Fatalf("missing reference for %s", tf)
		}
		if !PeriodStart(tf, ref).Equal(ref) {
			t.Fatalf("%s reference not on its own grid", tf)
		}
	}
}
