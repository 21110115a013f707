package detect

import (
	"errors"
	"testing"
	"time"

	"ChochScan/internal/domain/models"
	drepo "ChochScan/internal/domain/repository"
)

// confirmWindow builds a 50-candle window whose last three bars are
// pre, mid, cur. The filler bars are inert; Confirm only reads the tail.
func confirmWindow(pre, mid, cur models.Candle) []models.Candle {
	window := make([]models.Candle, 0, 50)
	for i := 0; i < 47; i++ {
		window = append(window, candleAt(i, 100, 101, 99, 100, 10))
	}
	pre.OpenTime = t0.Add(47 * 5 * time.Minute)
	mid.OpenTime = t0.Add(48 * 5 * time.Minute)
	cur.OpenTime = t0.Add(49 * 5 * time.Minute)
	return append(window, pre, mid, cur)
}

func bar(o, h, l, c, v float64) models.Candle {
	return models.Candle{Open: o, High: h, Low: l, Close: c, Volume: v}
}

// armedDownG1 returns a state holding a validated downtrend G1 pattern
// with cooperative volumes (v4=20, v6=30, v8=40).
func armedDownG1(t *testing.T) *State {
	t.Helper()
	d := New(DefaultConfig())
	st := stateWith(downtrendG1([8]float64{10, 10, 10, 20, 10, 30, 10, 40}))
	if !d.ValidateLastEight(st) {
		t.Fatal("fixture pattern did not validate")
	}
	return st
}

func TestConfirmUpG1Fires(t *testing.T) {
	d := New(DefaultConfig())
	st := armedDownG1(t)

	pre := bar(98.3, 98.5, 97.0, 97.2, 10)
	mid := bar(97.2, 101.5, 97.1, 101.0, 50)
	cur := bar(101.0, 101.2, 100.5, 101.0, 10)
	window := confirmWindow(pre, mid, cur)
	res, err := d.Confirm(st, window)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !res.Fired {
		t.Fatal("expected signal to fire")
	}
	if res.Direction != models.DirectionUp || res.Group != models.GroupG1 {
		t.Fatalf("direction=%s group=%s", res.Direction, res.Group)
	}
	if res.Price != 101.0 {
		t.Fatalf("price = %v, want CHoCH bar close 101.0", res.Price)
	}
	if !res.SignalTime.Equal(window[49].OpenTime) {
		t.Fatalf("signal time %v, want confirmation open %v", res.SignalTime, window[49].OpenTime)
	}
	if len(res.Pivots) != 8 {
		t.Fatalf("expected 8 pattern pivots, got %d", len(res.Pivots))
	}
	if !st.Locked() {
		t.Fatal("lock not set after firing")
	}
}

func TestConfirmUpNotAboveP6(t *testing.T) {
	// The CHoCH bar close must be strictly above P6 (here 100).
	d := New(DefaultConfig())
	st := armedDownG1(t)

	pre := bar(98.3, 98.5, 97.0, 97.2, 10)
	mid := bar(97.2, 101.5, 97.1, 100.0, 50)
	cur := bar(100.0, 101.2, 100.5, 101.0, 10)
	res, err := d.Confirm(st, confirmWindow(pre, mid, cur))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Fired {
		t.Fatal("fired with CHoCH close not above P6")
	}
	if st.Locked() {
		t.Fatal("lock set without firing")
	}
}

func TestConfirmUpCloseAboveP2(t *testing.T) {
	// Confirmation close exceeding P2 (108) blocks the fire.
	d := New(DefaultConfig())
	st := armedDownG1(t)

	pre := bar(98.3, 98.5, 97.0, 97.2, 10)
	mid := bar(97.2, 101.5, 97.1, 101.0, 50)
	cur := bar(101.0, 108.6, 100.5, 108.5, 10)
	res, err := d.Confirm(st, confirmWindow(pre, mid, cur))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Fired {
		t.Fatal("fired with confirmation close above P2")
	}
}

func TestConfirmLockPreventsDuplicate(t *testing.T) {
	d := New(DefaultConfig())
	st := armedDownG1(t)

	pre := bar(98.3, 98.5, 97.0, 97.2, 10)
	mid := bar(97.2, 101.5, 97.1, 101.0, 50)
	cur := bar(101.0, 101.2, 100.5, 101.0, 10)
	window := confirmWindow(pre, mid, cur)

	res, err := d.Confirm(st, window)
	if err != nil || !res.Fired {
		t.Fatalf("first confirm fired=%v err=%v", res.Fired, err)
	}

	// Identical re-run: the lock holds.
	res, err = d.Confirm(st, window)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Fired {
		t.Fatal("second confirm fired for the same pattern")
	}

	// A pivot past P8 releases the lock, but the shifted last eight no
	// longer validate, so nothing fires until a new pattern forms.
	st.store(pv(30, models.PivotHigh, 102, 101, 10), DefaultConfig().KeepPivots)
	if st.Locked() {
		t.Fatal("lock survived a pivot past the pattern")
	}
	if d.ValidateLastEight(st) {
		t.Fatal("shifted pivot set unexpectedly validated")
	}
	res, err = d.Confirm(st, window)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Fired {
		t.Fatal("fired without a validated pattern")
	}
}

func TestConfirmDownG2Fires(t *testing.T) {
	d := New(DefaultConfig())
	// G2 volume rule: max(v4, v5, v6) must be v4, v5 or the CHoCH bar's
	// volume; here v6=30 is matched by vMid=30.
	st := stateWith(uptrendG2([8]float64{10, 10, 10, 10, 10, 30, 10, 10}))
	if !d.ValidateLastEight(st) {
		t.Fatal("fixture pattern did not validate")
	}

	pre := bar(110, 111, 107, 108, 10)
	mid := bar(106, 106.5, 101.5, 102, 30)
	cur := bar(102, 106.8, 101.8, 106.5, 10)
	res, err := d.Confirm(st, confirmWindow(pre, mid, cur))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !res.Fired {
		t.Fatal("expected down signal to fire")
	}
	if res.Direction != models.DirectionDown || res.Group != models.GroupG2 {
		t.Fatalf("direction=%s group=%s", res.Direction, res.Group)
	}
	if res.Price != 102 {
		t.Fatalf("price = %v, want CHoCH bar close 102", res.Price)
	}
}

func TestConfirmDownG2VolumeBlocks(t *testing.T) {
	d := New(DefaultConfig())
	// v6 dominates the 456 cluster and the CHoCH volume does not match.
	st := stateWith(uptrendG2([8]float64{10, 10, 10, 10, 10, 30, 10, 10}))
	if !d.ValidateLastEight(st) {
		t.Fatal("fixture pattern did not validate")
	}

	pre := bar(110, 111, 107, 108, 10)
	mid := bar(106, 106.5, 101.5, 102, 25)
	cur := bar(102, 106.8, 101.8, 106.5, 10)
	res, err := d.Confirm(st, confirmWindow(pre, mid, cur))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Fired {
		t.Fatal("fired with uncooperative volumes")
	}
}

func TestConfirmG1VolumeClusterC(t *testing.T) {
	// The 456 cluster rule (B) fails but C holds: v8 dominates the
	// whole 45678 cluster.
	d := New(DefaultConfig())
	st := stateWith(downtrendG1([8]float64{10, 10, 10, 10, 30, 10, 10, 40}))
	if !d.ValidateLastEight(st) {
		t.Fatal("fixture pattern did not validate")
	}

	pre := bar(98.3, 98.5, 97.0, 97.2, 10)
	mid := bar(97.2, 101.5, 97.1, 101.0, 20)
	cur := bar(101.0, 101.2, 100.5, 101.0, 10)
	res, err := d.Confirm(st, confirmWindow(pre, mid, cur))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !res.Fired {
		t.Fatal("expected cluster C to satisfy the volume rule")
	}
}

func TestConfirmRequiresCandlesPastPattern(t *testing.T) {
	d := New(DefaultConfig())
	st := armedDownG1(t)
	st.lastEightBar = 49 // pattern ends on the last window bar

	pre := bar(98.3, 98.5, 97.0, 97.2, 10)
	mid := bar(97.2, 101.5, 97.1, 101.0, 50)
	cur := bar(101.0, 101.2, 100.5, 101.0, 10)
	res, err := d.Confirm(st, confirmWindow(pre, mid, cur))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Fired {
		t.Fatal("fired with confirmation bar inside the pattern")
	}
}

func TestConfirmLogicAssertionOnMissingGroup(t *testing.T) {
	d := New(DefaultConfig())
	st := armedDownG1(t)
	st.group = models.GroupNone // should be impossible

	pre := bar(98.3, 98.5, 97.0, 97.2, 10)
	mid := bar(97.2, 101.5, 97.1, 101.0, 50)
	cur := bar(101.0, 101.2, 100.5, 101.0, 10)
	_, err := d.Confirm(st, confirmWindow(pre, mid, cur))
	if !errors.Is(err, drepo.ErrLogicAssertion) {
		t.Fatalf("expected ErrLogicAssertion, got %v", err)
	}
}

func TestConfirmNoPatternIsNoOp(t *testing.T) {
	d := New(DefaultConfig())
	st := NewState()
	res, err := d.Confirm(st, confirmWindow(bar(1, 2, 0.5, 1.5, 1), bar(1, 2, 0.5, 1.5, 1), bar(1, 2, 0.5, 1.5, 1)))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Fired {
		t.Fatal("fired without a pattern")
	}
}
