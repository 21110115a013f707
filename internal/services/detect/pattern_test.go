package detect

import (
	"testing"

	"ChochScan/internal/domain/models"
)

// pv builds a pattern pivot anchored at bar with explicit bar extremes.
// High pivots price at the bar high, low pivots at the bar low.
func pv(bar int, kind models.PivotKind, hi, lo, vol float64) models.Pivot {
	p := models.Pivot{BarIndex: bar, Kind: kind, High: hi, Low: lo, Volume: vol}
	if kind == models.PivotHigh {
		p.Price = hi
	} else {
		p.Price = lo
	}
	return p
}

// downtrendG1 is a valid downtrend eight-pattern in the G1 ordering:
// lower highs 120, 114, 107, 105 and lower lows 108, 104, 100, 96, with
// the P7 retest poking above the P4 bar low and the P5 high under the
// P2 bar low.
func downtrendG1(vols [8]float64) []models.Pivot {
	return []models.Pivot{
		pv(10, models.PivotHigh, 120, 118, vols[0]),
		pv(12, models.PivotLow, 110, 108, vols[1]),
		pv(14, models.PivotHigh, 114, 112, vols[2]),
		pv(16, models.PivotLow, 106, 104, vols[3]),
		pv(18, models.PivotHigh, 107, 105, vols[4]),
		pv(20, models.PivotLow, 102, 100, vols[5]),
		pv(22, models.PivotHigh, 105, 103, vols[6]),
		pv(24, models.PivotLow, 98, 96, vols[7]),
	}
}

// uptrendG2 is a valid uptrend eight-pattern in the G2 ordering
// (p3 < p7 < p5): prices 95, 100, 101, 109, 107, 103, 106, 110.
func uptrendG2(vols [8]float64) []models.Pivot {
	return []models.Pivot{
		pv(10, models.PivotLow, 97, 95, vols[0]),
		pv(12, models.PivotHigh, 100, 98, vols[1]),
		pv(14, models.PivotLow, 103, 101, vols[2]),
		pv(16, models.PivotHigh, 109, 107, vols[3]),
		pv(18, models.PivotLow, 109, 107, vols[4]),
		pv(20, models.PivotHigh, 103, 101, vols[5]),
		pv(22, models.PivotLow, 108, 106, vols[6]),
		pv(24, models.PivotHigh, 110, 108, vols[7]),
	}
}

func stateWith(pivots []models.Pivot) *State {
	st := NewState()
	st.pivots = append(st.pivots, pivots...)
	return st
}

func TestValidateDowntrendG1(t *testing.T) {
	d := New(DefaultConfig())
	st := stateWith(downtrendG1([8]float64{}))
	if !d.ValidateLastEight(st) {
		t.Fatal("expected valid downtrend pattern")
	}
	if !st.lastEightDown || st.lastEightUp {
		t.Fatalf("direction flags up=%v down=%v", st.lastEightUp, st.lastEightDown)
	}
	if st.Group() != models.GroupG1 {
		t.Fatalf("group = %s, want G1", st.Group())
	}
	if st.lastEightBar != 24 {
		t.Fatalf("last eight bar = %d, want 24", st.lastEightBar)
	}
	if st.pattern[1].Price != 108 || st.pattern[4].Price != 107 || st.pattern[5].Price != 100 {
		t.Fatalf("reference prices p2=%v p5=%v p6=%v", st.pattern[1].Price, st.pattern[4].Price, st.pattern[5].Price)
	}
}

func TestValidateUptrendG2(t *testing.T) {
	d := New(DefaultConfig())
	st := stateWith(uptrendG2([8]float64{}))
	if !d.ValidateLastEight(st) {
		t.Fatal("expected valid uptrend pattern")
	}
	if !st.lastEightUp || st.lastEightDown {
		t.Fatalf("direction flags up=%v down=%v", st.lastEightUp, st.lastEightDown)
	}
	if st.Group() != models.GroupG2 {
		t.Fatalf("group = %s, want G2", st.Group())
	}
}

func TestValidateUptrendG3(t *testing.T) {
	// Same shape as G2 but with p5 and p7 swapped so p3 < p5 < p7.
	pivots := uptrendG2([8]float64{})
	pivots[4] = pv(18, models.PivotLow, 106, 104, 0)  // p5 = 104
	pivots[6] = pv(22, models.PivotLow, 108, 106, 0)  // p7 = 106
	d := New(DefaultConfig())
	st := stateWith(pivots)
	if !d.ValidateLastEight(st) {
		t.Fatal("expected valid uptrend pattern")
	}
	if st.Group() != models.GroupG3 {
		t.Fatalf("group = %s, want G3", st.Group())
	}
}

func TestValidateRejectsBrokenAlternation(t *testing.T) {
	pivots := downtrendG1([8]float64{})
	pivots[3].Kind = models.PivotHigh
	d := New(DefaultConfig())
	st := stateWith(pivots)
	if d.ValidateLastEight(st) {
		t.Fatal("pattern with broken alternation validated")
	}
	if st.HasPattern() {
		t.Fatal("direction flags survived failed validation")
	}
}

func TestValidateRejectsNonExtremeP8(t *testing.T) {
	pivots := downtrendG1([8]float64{})
	// P8 above P6: no longer the pattern minimum.
	pivots[7] = pv(24, models.PivotLow, 103, 101, 0)
	d := New(DefaultConfig())
	if d.ValidateLastEight(stateWith(pivots)) {
		t.Fatal("pattern without extreme P8 validated")
	}
}

func TestValidateRejectsFailedRetest(t *testing.T) {
	pivots := downtrendG1([8]float64{})
	// Lower the P7 bar so its high no longer reaches above the P4 low.
	pivots[6] = pv(22, models.PivotHigh, 103.5, 101, 0)
	d := New(DefaultConfig())
	if d.ValidateLastEight(stateWith(pivots)) {
		t.Fatal("pattern without retest validated")
	}
}

func TestValidateRejectsFailedBreakout(t *testing.T) {
	pivots := downtrendG1([8]float64{})
	// Raise the P5 bar above the P2 bar low.
	pivots[4] = pv(18, models.PivotHigh, 109, 107, 0)
	d := New(DefaultConfig())
	if d.ValidateLastEight(stateWith(pivots)) {
		t.Fatal("pattern without breakout validated")
	}
}

func TestValidateNeedsEightPivots(t *testing.T) {
	pivots := downtrendG1([8]float64{})[:7]
	d := New(DefaultConfig())
	if d.ValidateLastEight(stateWith(pivots)) {
		t.Fatal("seven pivots validated")
	}
}
