package detect

import (
	"fmt"

	"ChochScan/internal/domain/models"
	drepo "ChochScan/internal/domain/repository"
)

// Confirm applies the three-candle reversal test to the window's most
// recent closed candles: pre-CHoCH, CHoCH bar, confirmation bar. When
// the base, price-by-group and volume-by-group conditions all hold for
// the direction opposing the validated pattern, it fires exactly one
// signal for that pattern and sets the lock.
//
// Conditions that are not (yet) satisfied are never errors; the result
// simply does not fire.
func (d *Detector) Confirm(st *State, window []models.Candle) (models.DetectionResult, error) {
	res := models.DetectionResult{Direction: models.DirectionNone}
	if !st.HasPattern() {
		return res, nil
	}
	if st.group == models.GroupNone {
		return res, fmt.Errorf("%w: pattern validated with no group tag", drepo.ErrLogicAssertion)
	}
	if len(window) < 3 {
		return res, nil
	}

	n := len(window)
	pre, mid, cur := window[n-3], window[n-2], window[n-1]
	curBar := n - 1
	if curBar <= st.lastEightBar {
		return res, nil
	}
	if st.chochLocked {
		return res, nil
	}

	p2 := st.pattern[1].Price
	p5 := st.pattern[4].Price
	p6 := st.pattern[5].Price
	p7 := st.pattern[6].Price

	var fired bool
	var direction models.Direction
	switch {
	case st.lastEightDown:
		// Reversal of a downtrend confirms upward.
		fired = confirmUp(pre, mid, cur, p2, p5, p6, p7, st.group) &&
			volumeOK(st, mid.Volume)
		direction = models.DirectionUp
	case st.lastEightUp:
		fired = confirmDown(pre, mid, cur, p2, p5, p6, p7, st.group) &&
			volumeOK(st, mid.Volume)
		direction = models.DirectionDown
	}
	if !fired {
		return res, nil
	}

	st.chochLocked = true
	res.Fired = true
	res.Direction = direction
	res.Group = st.group
	res.Price = mid.Close
	res.SignalTime = cur.OpenTime
	res.Pivots = append(res.Pivots, st.pattern[:]...)
	return res, nil
}

func confirmUp(pre, mid, cur models.Candle, p2, p5, p6, p7 float64, group models.PatternGroup) bool {
	// CHoCH bar: higher low, close above the pre bar and P6, capped by P2.
	base := mid.Low > pre.Low && mid.Close > pre.High &&
		mid.Close > p6 && mid.Close < p2
	if !base {
		return false
	}
	// Confirmation bar holds above the pre bar without exceeding P2.
	if !(cur.Low > pre.High && cur.Close <= p2) {
		return false
	}
	switch group {
	case models.GroupG2:
		return cur.Close <= p7
	default: // G1, G3
		return cur.Close <= p5
	}
}

func confirmDown(pre, mid, cur models.Candle, p2, p5, p6, p7 float64, group models.PatternGroup) bool {
	base := mid.High < pre.High && mid.Close < pre.Low &&
		mid.Close < p6 && mid.Close > p2
	if !base {
		return false
	}
	if !(cur.High < pre.Low && cur.Close >= p2) {
		return false
	}
	switch group {
	case models.GroupG2:
		return cur.Close >= p7
	default:
		return cur.Close >= p5
	}
}

// volumeOK applies the group's volume clusters, with v4..v8 the volumes
// of the bars where P4..P8 formed and vMid the CHoCH bar's volume.
func volumeOK(st *State, vMid float64) bool {
	v4 := st.pattern[3].Volume
	v5 := st.pattern[4].Volume
	v6 := st.pattern[5].Volume
	v7 := st.pattern[6].Volume
	v8 := st.pattern[7].Volume

	if st.group == models.GroupG1 {
		// (A ∧ B) ∨ C over the 678, 456 and 45678 clusters.
		m678 := max3(v6, v7, v8)
		a := m678 == v6 || m678 == v8 || m678 == vMid
		m456 := max3(v4, v5, v6)
		b := m456 == v4 || m456 == v6
		mAll := max3(m678, v4, v5)
		c := mAll == v8 || mAll == vMid
		return (a && b) || c
	}
	// G2 and G3 share the 456 cluster rule.
	m456 := max3(v4, v5, v6)
	return m456 == v4 || m456 == v5 || m456 == vMid
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
