package models

// PivotKind distinguishes swing highs from swing lows.
type PivotKind string

const (
	PivotHigh PivotKind = "HIGH"
	PivotLow  PivotKind = "LOW"
)

// Opposite returns the other kind.
func (k PivotKind) Opposite() PivotKind {
	if k == PivotHigh {
		return PivotLow
	}
	return PivotHigh
}

// PivotVariant classifies a pivot by the triplet of bars around it.
// Synthetic marks a pivot inserted between two same-kind pivots to
// preserve alternation.
type PivotVariant string

const (
	VariantPH1       PivotVariant = "PH1"
	VariantPH2       PivotVariant = "PH2"
	VariantPH3       PivotVariant = "PH3"
	VariantPL1       PivotVariant = "PL1"
	VariantPL2       PivotVariant = "PL2"
	VariantPL3       PivotVariant = "PL3"
	VariantSynthetic PivotVariant = "SYN"
)

// Pivot is a swing point anchored to a bar index within the scan window.
// It carries the extremes and volume of its underlying bar so pattern
// checks run over pivots alone, without reaching back into the window.
type Pivot struct {
	BarIndex int
	Price    float64
	Kind     PivotKind
	Variant  PivotVariant
	High     float64
	Low      float64
	Volume   float64
}
