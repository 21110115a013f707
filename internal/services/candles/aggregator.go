package candles

import (
	"fmt"

	"ChochScan/internal/domain/models"
	drepo "ChochScan/internal/domain/repository"
	"ChochScan/internal/services/timegrid"
)

// Aggregate builds closed tf candles from a sequence of closed 5m
// candles. Each output candle opens on the timeframe's reference grid
// and covers exactly interval/5 input candles; periods with missing 5m
// bars are dropped, never interpolated. Input must be ordered by open
// time ascending.
func Aggregate(tf drepo.Timeframe, base []models.Candle) ([]models.Candle, error) {
	if !drepo.IsAggregated(tf) {
		return nil, fmt.Errorf("aggregate: %s is not an aggregated timeframe", tf)
	}
	need := tf.Multiplier()

	var out []models.Candle
	i := 0
	for i < len(base) {
		if i > 0 && !base[i].OpenTime.After(base[i-1].OpenTime) {
			return nil, fmt.Errorf("aggregate: candles out of order at %v", base[i].OpenTime)
		}
		start := timegrid.PeriodStart(tf, base[i].OpenTime)

		agg := models.Candle{
			OpenTime: start,
			Open:     base[i].Open,
			High:     base[i].High,
			Low:      base[i].Low,
			Close:    base[i].Close,
			Volume:   base[i].Volume,
		}
		count := 1
		j := i + 1
		for j < len(base) && timegrid.PeriodStart(tf, base[j].OpenTime).Equal(start) {
			c := base[j]
			if c.High > agg.High {
				agg.High = c.High
			}
			if c.Low < agg.Low {
				agg.Low = c.Low
			}
			agg.Close = c.Close
			agg.Volume += c.Volume
			count++
			j++
		}

		// A gap inside the period, or a period cut off at either end of
		// the input, leaves fewer than interval/5 bars: drop it.
		if count == need {
			out = append(out, agg)
		}
		i = j
	}
	return out, nil
}

// Tail returns the last n candles of cs, or all of them if fewer.
func Tail(cs []models.Candle, n int) []models.Candle {
	if len(cs) <= n {
		return cs
	}
	return cs[len(cs)-n:]
}
