package models

import "time"

// Alert direction and type labels as persisted and displayed.
const (
	AlertDirectionLong  = "Long"
	AlertDirectionShort = "Short"
	AlertTypeUp         = "CHoCH Up"
	AlertTypeDown       = "CHoCH Down"
)

// Alert is the persisted form of a Signal, one row in the alerts table.
// PatternGroup is nil for rows written before group tagging existed.
type Alert struct {
	ID           string     `db:"id"`
	Symbol       string     `db:"symbol"`
	Timeframe    string     `db:"timeframe"`
	Direction    string     `db:"direction"`
	PatternGroup *string    `db:"pattern_group"`
	SignalType   string     `db:"signal_type"`
	Price        float64    `db:"price"`
	SignalTime   time.Time  `db:"signal_time"`
	CreatedAt    time.Time  `db:"created_at"`
}

// NewAlertFromSignal maps a confirmed signal onto its alert row.
// The caller assigns the ID.
func NewAlertFromSignal(s Signal) Alert {
	a := Alert{
		Symbol:     s.Symbol,
		Timeframe:  s.Timeframe,
		Direction:  AlertDirectionLong,
		SignalType: AlertTypeUp,
		Price:      s.Price,
		SignalTime: s.SignalTime,
	}
	if s.Direction == DirectionDown {
		a.Direction = AlertDirectionShort
		a.SignalType = AlertTypeDown
	}
	if s.Group != GroupNone {
		g := string(s.Group)
		a.PatternGroup = &g
	}
	return a
}

// GroupLabel returns the pattern group for display, "N/A" when absent.
func (a Alert) GroupLabel() string {
	if a.PatternGroup == nil || *a.PatternGroup == "" {
		return "N/A"
	}
	return *a.PatternGroup
}
