package candles

import (
	"testing"
	"time"

	"ChochScan/internal/domain/models"
	drepo "ChochScan/internal/domain/repository"
)

// fiveMinSeries builds n closed 5m candles starting at from. Prices walk
// deterministically so each bar is distinguishable.
func fiveMinSeries(from time.Time, n int) []models.Candle {
	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i)
		out = append(out, models.Candle{
			OpenTime: from.Add(time.Duration(i) * 5 * time.Minute),
			Open:     base,
			High:     base + 2,
			Low:      base - 2,
			Close:    base + 1,
			Volume:   10 + float64(i),
		})
	}
	return out
}

func TestAggregate25mAcrossMidnight(t *testing.T) {
	// 5m candles 23:30 .. 01:30 cover five full 25m periods on the
	// reference grid: 23:30, 23:55, 00:20, 00:45, 01:10. None of the
	// period starts is midnight-aligned.
	from := time.Date(2025, 10, 25, 23, 30, 0, 0, time.UTC)
	base := fiveMinSeries(from, 25)

	got, err := Aggregate(drepo.TF25m, base)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 aggregated candles, got %d", len(got))
	}
	wantStarts := []time.Time{
		time.Date(2025, 10, 25, 23, 30, 0, 0, time.UTC),
		time.Date(2025, 10, 25, 23, 55, 0, 0, time.UTC),
		time.Date(2025, 10, 26, 0, 20, 0, 0, time.UTC),
		time.Date(2025, 10, 26, 0, 45, 0, 0, time.UTC),
		time.Date(2025, 10, 26, 1, 10, 0, 0, time.UTC),
	}
	for i, want := range wantStarts {
		if !got[i].OpenTime.Equal(want) {
			t.Fatalf("candle %d opens %v, want %v", i, got[i].OpenTime, want)
		}
		if got[i].OpenTime.Minute()%60 == 0 && got[i].OpenTime.Hour() == 0 {
			t.Fatalf("candle %d unexpectedly midnight-aligned", i)
		}
	}

	// The 00:20 candle is composed of the 5m bars 00:20 .. 00:40.
	c := got[2]
	first, last := base[10], base[14]
	if c.Open != first.Open {
		t.Fatalf("open = %v, want %v", c.Open, first.Open)
	}
	if c.Close != last.Close {
		t.Fatalf("close = %v, want %v", c.Close, last.Close)
	}
	var vol, high, low float64
	low = base[10].Low
	for _, b := range base[10:15] {
		vol += b.Volume
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	if c.Volume != vol {
		t.Fatalf("volume = %v, want %v", c.Volume, vol)
	}
	if c.High != high || c.Low != low {
		t.Fatalf("high/low = %v/%v, want %v/%v", c.High, c.Low, high, low)
	}
}

func TestAggregateDropsGappedPeriods(t *testing.T) {
	from := time.Date(2025, 10, 25, 23, 30, 0, 0, time.UTC)
	base := fiveMinSeries(from, 15)

	// Remove one bar inside the second 25m period.
	gapped := append([]models.Candle{}, base[:7]...)
	gapped = append(gapped, base[8:]...)

	got, err := Aggregate(drepo.TF25m, gapped)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candles with second period dropped, got %d", len(got))
	}
	if !got[1].OpenTime.Equal(time.Date(2025, 10, 26, 0, 20, 0, 0, time.UTC)) {
		t.Fatalf("unexpected surviving period %v", got[1].OpenTime)
	}
}

func TestAggregateIdempotentOnPartialAppend(t *testing.T) {
	from := time.Date(2025, 10, 25, 23, 30, 0, 0, time.UTC)
	base := fiveMinSeries(from, 10)

	before, err := Aggregate(drepo.TF25m, base)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	// Appending candles that do not complete a new period changes nothing.
	extended := fiveMinSeries(from, 12)
	after, err := Aggregate(drepo.TF25m, extended)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(before) != len(after) {
		t.Fatalf("partial append changed output: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("candle %d changed: %+v vs %+v", i, before[i], after[i])
		}
	}
}

func TestAggregateRejectsUnorderedInput(t *testing.T) {
	from := time.Date(2025, 10, 25, 23, 30, 0, 0, time.UTC)
	base := fiveMinSeries(from, 5)
	base[2], base[3] = base[3], base[2]
	if _, err := Aggregate(drepo.TF25m, base); err == nil {
		t.Fatal("expected error for unordered input")
	}
}

func TestAggregateRejectsNativeTimeframe(t *testing.T) {
	if _, err := Aggregate(drepo.TF15m, nil); err == nil {
		t.Fatal("expected error for native timeframe")
	}
}

func TestTail(t *testing.T) {
	cs := fiveMinSeries(time.Date(2025, 10, 25, 0, 0, 0, 0, time.UTC), 5)
	if got := Tail(cs, 3); len(got) != 3 || !got[0].OpenTime.Equal(cs[2].OpenTime) {
		t.Fatalf("unexpected tail %v", got)
	}
	if got := Tail(cs, 10); len(got) != 5 {
		t.Fatalf("tail larger than input should return all, got %d", len(got))
	}
}
