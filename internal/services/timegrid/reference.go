package timegrid

import (
	"time"

	drepo "ChochScan/internal/domain/repository"
)

// Aggregated timeframes are anchored to fixed UTC reference instants
// instead of midnight. 25m does not divide 1440 minutes, so a midnight
// anchor would drift across days; a fixed reference yields one globally
// consistent partitioning. The aggregator and the scheduler must share
// this map, otherwise candle boundaries diverge.
var references = map[drepo.Timeframe]time.Time{
	drepo.TF10m: time.Date(2025, 10, 24, 17, 10, 0, 0, time.UTC),
	drepo.TF20m: time.Date(2025, 10, 24, 17, 20, 0, 0, time.UTC),
	drepo.TF25m: time.Date(2025, 10, 24, 17, 5, 0, 0, time.UTC),
	drepo.TF40m: time.Date(2025, 10, 24, 16, 40, 0, 0, time.UTC),
	drepo.TF50m: time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC),
}

// Reference returns the anchor instant for a reference-aligned timeframe.
func Reference(tf drepo.Timeframe) (time.Time, bool) {
	ref, ok := references[tf]
	return ref, ok
}

// PeriodStart returns the open time of the tf candle containing t.
// Reference-aligned timeframes use their anchor; native timeframes are
// midnight-modular, which time.Truncate gives directly in UTC.
func PeriodStart(tf drepo.Timeframe, t time.Time) time.Time {
	interval := tf.Duration()
	ref, ok := references[tf]
	if !ok {
		return t.Truncate(interval)
	}
	d := t.Sub(ref)
	k := d / interval
	if d < 0 && d%interval != 0 {
		k--
	}
	return ref.Add(k * interval)
}

// LastClose returns the most recent candle close time at or before now.
// The candle opening at PeriodStart(now) is still forming, so the latest
// close is exactly that period start.
func LastClose(tf drepo.Timeframe, now time.Time) time.Time {
	return PeriodStart(tf, now)
}
