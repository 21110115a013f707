package detect

import (
	"errors"
	"testing"
	"time"

	"ChochScan/internal/domain/models"
	drepo "ChochScan/internal/domain/repository"
)

var t0 = time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC)

func candleAt(i int, o, h, l, c, v float64) models.Candle {
	return models.Candle{
		OpenTime: t0.Add(time.Duration(i) * 5 * time.Minute),
		Open:     o, High: h, Low: l, Close: c, Volume: v,
	}
}

// zigzag4 yields a window with a pivot high every 4 bars (phase 1) and a
// pivot low two bars later (phase 3), all classifying as PH1/PL1. The
// slow drift keeps every comparison strict.
func zigzag4(n int) []models.Candle {
	out := make([]models.Candle, 0, n)
	for k := 0; k < n; k++ {
		b := 100 + 0.1*float64(k)
		var c models.Candle
		switch k % 4 {
		case 1: // peak
			c = candleAt(k, b+2, b+5, b+1, b+4, 10)
		case 3: // trough
			c = candleAt(k, b-2, b-1, b-5, b-4, 10)
		case 0:
			c = candleAt(k, b-1, b+2, b-2, b+1, 10)
		default:
			c = candleAt(k, b+1, b+2, b-2, b-1, 10)
		}
		out = append(out, c)
	}
	return out
}

// zigzag6 spaces pivots six bars apart: a peak at phase 1 and a trough
// at phase 4, with sloping bars between that never form pivots.
func zigzag6(n int) []models.Candle {
	out := make([]models.Candle, 0, n)
	for k := 0; k < n; k++ {
		b := 100 + 0.05*float64(k)
		var c models.Candle
		switch k % 6 {
		case 1: // peak
			c = candleAt(k, b+2, b+5, b+1, b+4, 10)
		case 2:
			c = candleAt(k, b+1, b+3, b-1, b, 10)
		case 3:
			c = candleAt(k, b, b+1, b-3, b-2, 10)
		case 4: // trough
			c = candleAt(k, b-2, b-1, b-5, b-4, 10)
		case 5:
			c = candleAt(k, b-1, b+1, b-3, b, 10)
		default:
			c = candleAt(k, b, b+3, b-1, b+2, 10)
		}
		out = append(out, c)
	}
	return out
}

func TestRebuildPivotsAlternatingZigzag(t *testing.T) {
	d := New(DefaultConfig())
	st := NewState()
	if err := d.RebuildPivots(st, zigzag4(50)); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	pivots := st.Pivots()
	if len(pivots) == 0 {
		t.Fatal("no pivots detected")
	}
	for i, p := range pivots {
		wantKind := models.PivotHigh
		wantVariant := models.VariantPH1
		if p.BarIndex%4 == 3 {
			wantKind = models.PivotLow
			wantVariant = models.VariantPL1
		}
		if p.Kind != wantKind || p.Variant != wantVariant {
			t.Fatalf("pivot %d at bar %d: kind=%s variant=%s", i, p.BarIndex, p.Kind, p.Variant)
		}
		if i > 0 && pivots[i-1].Kind == p.Kind {
			t.Fatalf("consecutive pivots %d,%d share kind %s", i-1, i, p.Kind)
		}
	}
}

func TestRebuildPivotsPricesMatchExtremes(t *testing.T) {
	d := New(DefaultConfig())
	st := NewState()
	window := zigzag4(50)
	if err := d.RebuildPivots(st, window); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	for _, p := range st.Pivots() {
		bar := window[p.BarIndex]
		if p.Kind == models.PivotHigh && p.Price != bar.High {
			t.Fatalf("high pivot at bar %d price %v != bar high %v", p.BarIndex, p.Price, bar.High)
		}
		if p.Kind == models.PivotLow && p.Price != bar.Low {
			t.Fatalf("low pivot at bar %d price %v != bar low %v", p.BarIndex, p.Price, bar.Low)
		}
	}
}

func TestSyntheticInsertedForShortGap(t *testing.T) {
	// Dropping lows from the allow-set leaves consecutive highs three
	// bars apart; each gap gets exactly one synthetic low at the gap's
	// minimum, keeping alternation intact.
	cfg := DefaultConfig()
	cfg.AllowPL1 = false
	d := New(cfg)
	st := NewState()
	window := zigzag4(50)
	if err := d.RebuildPivots(st, window); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	pivots := st.Pivots()
	synCount := 0
	for i, p := range pivots {
		if i > 0 && pivots[i-1].Kind == p.Kind {
			t.Fatalf("alternation broken at pivot %d", i)
		}
		if p.Variant == models.VariantSynthetic {
			synCount++
			if p.Kind != models.PivotLow {
				t.Fatalf("synthetic at bar %d has kind %s", p.BarIndex, p.Kind)
			}
			if p.BarIndex%4 != 3 {
				t.Fatalf("synthetic at bar %d, expected trough bar", p.BarIndex)
			}
			if p.Price != window[p.BarIndex].Low {
				t.Fatalf("synthetic price %v != gap minimum %v", p.Price, window[p.BarIndex].Low)
			}
		}
	}
	highs := (len(pivots) + 1) / 2
	if synCount != highs-1 {
		t.Fatalf("expected one synthetic per high pair, got %d for %d highs", synCount, highs)
	}
}

func TestNoSyntheticForWideGap(t *testing.T) {
	// With pivots six bars apart, removing the lows leaves a five-bar
	// gap between highs: above the threshold, so nothing is inserted.
	cfg := DefaultConfig()
	cfg.AllowPL1 = false
	d := New(cfg)
	st := NewState()
	if err := d.RebuildPivots(st, zigzag6(50)); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	pivots := st.Pivots()
	if len(pivots) < 2 {
		t.Fatalf("expected multiple highs, got %d pivots", len(pivots))
	}
	for _, p := range pivots {
		if p.Variant == models.VariantSynthetic {
			t.Fatalf("unexpected synthetic at bar %d", p.BarIndex)
		}
		if p.Kind != models.PivotHigh {
			t.Fatalf("unexpected %s pivot at bar %d", p.Kind, p.BarIndex)
		}
	}
}

func TestRebuildPivotsShortWindow(t *testing.T) {
	d := New(DefaultConfig())
	st := NewState()
	err := d.RebuildPivots(st, zigzag4(49))
	if !errors.Is(err, drepo.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestRebuildPivotsMalformedCandle(t *testing.T) {
	d := New(DefaultConfig())
	st := NewState()
	window := zigzag4(50)
	window[10].Low = window[10].High + 1
	err := d.RebuildPivots(st, window)
	if !errors.Is(err, drepo.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}

func TestRebuildPivotsDeterministic(t *testing.T) {
	d := New(DefaultConfig())
	window := zigzag4(50)

	a, b := NewState(), NewState()
	if err := d.RebuildPivots(a, window); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if err := d.RebuildPivots(b, window); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	pa, pb := a.Pivots(), b.Pivots()
	if len(pa) != len(pb) {
		t.Fatalf("pivot counts differ: %d vs %d", len(pa), len(pb))
	}
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("pivot %d differs: %+v vs %+v", i, pa[i], pb[i])
		}
	}
}

func TestVariantClassificationTable(t *testing.T) {
	// Each case is the bar triplet (i-1, i, i+1) as {high, low} pairs.
	cases := []struct {
		name    string
		triplet [3][2]float64
		want    variantMatch
	}{
		{"ph1", [3][2]float64{{10, 5}, {12, 7}, {11, 6}}, matchPH1},
		{"ph2", [3][2]float64{{12, 7}, {12, 6}, {11, 5}}, matchPH2},
		{"ph3", [3][2]float64{{11, 5}, {12, 6}, {12, 7}}, matchPH3},
		{"pl1", [3][2]float64{{12, 7}, {11, 5}, {12, 6}}, matchPL1},
		{"pl2", [3][2]float64{{12, 6}, {12, 5}, {13, 7}}, matchPL2},
		{"pl3", [3][2]float64{{13, 7}, {12, 5}, {11, 6}}, matchPL3},
	}
	for _, c := range cases {
		window := []models.Candle{
			{High: c.triplet[0][0], Low: c.triplet[0][1], Open: c.triplet[0][1], Close: c.triplet[0][1]},
			{High: c.triplet[1][0], Low: c.triplet[1][1], Open: c.triplet[1][1], Close: c.triplet[1][1]},
			{High: c.triplet[2][0], Low: c.triplet[2][1], Open: c.triplet[2][1], Close: c.triplet[2][1]},
		}
		if got := classifyVariant(window, 1); got != c.want {
			t.Errorf("%s: classified %v, want %v", c.name, got, c.want)
		}
	}
}
