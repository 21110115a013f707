package models

import "time"

// Direction of a confirmed reversal.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
	DirectionNone Direction = "NONE"
)

// PatternGroup tags which of the three ordering families a validated
// eight-pivot pattern belongs to. The zero value means no pattern.
type PatternGroup string

const (
	GroupNone PatternGroup = ""
	GroupG1   PatternGroup = "G1"
	GroupG2   PatternGroup = "G2"
	GroupG3   PatternGroup = "G3"
)

// Signal is one confirmed CHoCH reversal for a (symbol, timeframe) pair.
// Bar indices are relative to the 50-candle window of the scan that
// produced the signal.
type Signal struct {
	Symbol      string
	Timeframe   string
	Direction   Direction
	Group       PatternGroup
	Price       float64
	SignalTime  time.Time
	PivotPrices [8]float64
	PivotBars   [8]int
}

// DetectionResult is the outcome of one confirmation pass over a scan window.
type DetectionResult struct {
	Fired      bool
	Direction  Direction
	Group      PatternGroup
	Price      float64
	SignalTime time.Time
	Pivots     []Pivot
}
