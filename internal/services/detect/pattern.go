package detect

import (
	"ChochScan/internal/domain/models"
)

// ValidateLastEight tests whether the last eight stored pivots form a
// valid uptrend or downtrend pattern. On success it records the pattern,
// its group tag and the breakout references on the state and returns
// true. On failure the previous pattern info is cleared; the CHoCH lock
// is left to the unlock rule.
func (d *Detector) ValidateLastEight(st *State) bool {
	eight, ok := st.lastEight()
	if !ok {
		st.clearPattern()
		return false
	}

	up := alternates(eight, models.PivotLow)
	down := alternates(eight, models.PivotHigh)
	if !up && !down {
		st.clearPattern()
		return false
	}

	var p [9]float64 // 1-based pivot prices, p[1]..p[8]
	for i, piv := range eight {
		p[i+1] = piv.Price
	}

	var group models.PatternGroup
	switch {
	case up && validUp(eight, p):
		group = upGroup(p)
	case down && validDown(eight, p):
		group = downGroup(p)
	}
	if group == models.GroupNone {
		st.clearPattern()
		return false
	}

	st.lastEightUp = up
	st.lastEightDown = down
	st.group = group
	st.pattern = eight
	st.lastEightBar = eight[7].BarIndex
	return true
}

// alternates checks strict kind alternation starting from first.
func alternates(eight [8]models.Pivot, first models.PivotKind) bool {
	want := first
	for _, p := range eight {
		if p.Kind != want {
			return false
		}
		want = want.Opposite()
	}
	return true
}

// validUp checks retest, extreme and breakout for an uptrend pattern.
func validUp(eight [8]models.Pivot, p [9]float64) bool {
	// Retest: P7 dips back into the P4 bar's range.
	if eight[6].Low >= eight[3].High {
		return false
	}
	// Extreme: P8 is the pattern maximum.
	for i := 1; i <= 7; i++ {
		if p[i] > p[8] {
			return false
		}
	}
	// Breakout: P5 clears the P2 bar, P3 holds above the P1 bar.
	return eight[4].Low > eight[1].High && eight[2].Low > eight[0].Low
}

// validDown is the downtrend mirror of validUp.
func validDown(eight [8]models.Pivot, p [9]float64) bool {
	if eight[6].High <= eight[3].Low {
		return false
	}
	for i := 1; i <= 7; i++ {
		if p[i] < p[8] {
			return false
		}
	}
	return eight[4].High < eight[1].Low && eight[2].High < eight[0].High
}

// upGroup selects the ordering family for an uptrend pattern.
// Precedence is G1 > G2 > G3: the first satisfied group wins.
func upGroup(p [9]float64) models.PatternGroup {
	switch {
	case p[2] < p[4] && p[4] < p[6] && p[6] < p[8] &&
		p[3] < p[5] && p[5] < p[7]:
		return models.GroupG1
	case p[3] < p[7] && p[7] < p[5] &&
		p[2] < p[6] && p[6] < p[4] && p[4] < p[8] &&
		p[2] < p[5]:
		return models.GroupG2
	case p[3] < p[5] && p[5] < p[7] &&
		p[2] < p[6] && p[6] < p[4] && p[4] < p[8] &&
		p[2] < p[5]:
		return models.GroupG3
	default:
		return models.GroupNone
	}
}

// downGroup mirrors upGroup with all comparisons reversed.
// Precedence is G1 > G2 > G3: the first satisfied group wins.
func downGroup(p [9]float64) models.PatternGroup {
	switch {
	case p[2] > p[4] && p[4] > p[6] && p[6] > p[8] &&
		p[3] > p[5] && p[5] > p[7]:
		return models.GroupG1
	case p[3] > p[7] && p[7] > p[5] &&
		p[2] > p[6] && p[6] > p[4] && p[4] > p[8] &&
		p[2] > p[5]:
		return models.GroupG2
	case p[3] > p[5] && p[5] > p[7] &&
		p[2] > p[6] && p[6] > p[4] && p[4] > p[8] &&
		p[2] > p[5]:
		return models.GroupG3
	default:
		return models.GroupNone
	}
}
