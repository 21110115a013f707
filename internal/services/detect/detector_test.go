package detect

import (
	"errors"
	"testing"

	"ChochScan/internal/domain/models"
	drepo "ChochScan/internal/domain/repository"
)

func TestScanDeterministic(t *testing.T) {
	d := New(DefaultConfig())
	window := zigzag4(50)

	a, b := NewState(), NewState()
	resA, errA := d.Scan(a, window)
	resB, errB := d.Scan(b, window)
	if errA != nil || errB != nil {
		t.Fatalf("scan errors: %v, %v", errA, errB)
	}
	if resA.Fired != resB.Fired || resA.Direction != resB.Direction || resA.Group != resB.Group {
		t.Fatalf("scan not deterministic: %+v vs %+v", resA, resB)
	}
	if a.Locked() != b.Locked() {
		t.Fatal("lock state diverged on identical input")
	}
}

func TestScanShortWindowNoOp(t *testing.T) {
	d := New(DefaultConfig())
	st := NewState()
	_, err := d.Scan(st, zigzag4(30))
	if !errors.Is(err, drepo.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if len(st.Pivots()) != 0 {
		t.Fatal("short window mutated state")
	}
}

func TestScanZigzagNoPattern(t *testing.T) {
	// A plain monotone zigzag never satisfies breakout, so no pattern
	// validates and no signal fires.
	d := New(DefaultConfig())
	st := NewState()
	res, err := d.Scan(st, zigzag4(50))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Fired {
		t.Fatal("zigzag fired a signal")
	}
	if st.HasPattern() {
		t.Fatal("zigzag validated an eight-pattern")
	}
	if res.Direction != models.DirectionNone {
		t.Fatalf("direction = %s, want NONE", res.Direction)
	}
}
