package repository

import (
	"strings"
	"time"
)

// Timeframe represents a candle interval.
type Timeframe string

const (
	TF5m  Timeframe = "5m"
	TF10m Timeframe = "10m"
	TF15m Timeframe = "15m"
	TF20m Timeframe = "20m"
	TF25m Timeframe = "25m"
	TF30m Timeframe = "30m"
	TF40m Timeframe = "40m"
	TF50m Timeframe = "50m"
	TF1h  Timeframe = "1h"
)

var tfMinutes = map[Timeframe]int{
	TF5m:  5,
	TF10m: 10,
	TF15m: 15,
	TF20m: 20,
	TF25m: 25,
	TF30m: 30,
	TF40m: 40,
	TF50m: 50,
	TF1h:  60,
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	_, ok := tfMinutes[tf]
	return ok
}

// IsAggregated reports whether tf is built locally from 5m candles
// rather than served natively by the exchange.
func IsAggregated(tf Timeframe) bool {
	switch tf {
	case TF10m, TF20m, TF25m, TF40m, TF50m:
		return true
	default:
		return false
	}
}

// Minutes returns the interval length; 0 for unknown timeframes.
func (tf Timeframe) Minutes() int { return tfMinutes[tf] }

// Duration returns the interval length as a time.Duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tfMinutes[tf]) * time.Minute
}

// Multiplier returns how many 5m candles make up one tf candle.
func (tf Timeframe) Multiplier() int { return tfMinutes[tf] / 5 }

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF5m }

// DefaultTimeframes is the scan set used when none is configured.
func DefaultTimeframes() []Timeframe {
	return []Timeframe{TF5m, TF15m, TF30m, TF1h}
}

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(strings.TrimSpace(s))
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// ParseTimeframes parses a comma list into valid timeframes, dropping
// unknown entries. Empty input yields the default set.
func ParseTimeframes(s string) []Timeframe {
	if strings.TrimSpace(s) == "" {
		return DefaultTimeframes()
	}
	parts := strings.Split(s, ",")
	out := make([]Timeframe, 0, len(parts))
	for _, p := range parts {
		tf := Timeframe(strings.TrimSpace(p))
		if IsValidTimeframe(tf) {
			out = append(out, tf)
		}
	}
	if len(out) == 0 {
		return DefaultTimeframes()
	}
	return out
}
