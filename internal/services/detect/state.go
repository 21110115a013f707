package detect

import (
	"ChochScan/internal/domain/models"
)

// State is the per-(symbol, timeframe) detector state. It is owned by a
// single scanner worker; access is never concurrent.
//
// Pivot history is rebuilt from scratch on every scan, but the last
// validated eight-pattern and the CHoCH lock carry across scans so that
// one pattern fires at most one signal (S3 semantics): identical input
// revalidates the identical pattern and finds the lock still set.
type State struct {
	pivots []models.Pivot

	lastEightUp   bool
	lastEightDown bool
	group         models.PatternGroup
	pattern       [8]models.Pivot
	lastEightBar  int
	chochLocked   bool
}

// NewState creates an empty state.
func NewState() *State {
	return &State{lastEightBar: -1}
}

// resetPivots clears the pivot history for a fresh rebuild. Pattern and
// lock info survive; they are refreshed by the validator and the unlock
// rule as the new window is processed.
func (s *State) resetPivots() {
	s.pivots = s.pivots[:0]
}

// store appends a pivot preserving bar order and applies the unlock
// rule: a pivot strictly newer than the last eight-pattern's P8 bar
// releases the CHoCH lock so the next pattern may fire.
func (s *State) store(p models.Pivot, keep int) {
	s.pivots = append(s.pivots, p)
	if len(s.pivots) > keep {
		s.pivots = s.pivots[len(s.pivots)-keep:]
	}
	if s.chochLocked && s.lastEightBar >= 0 && p.BarIndex > s.lastEightBar {
		s.chochLocked = false
	}
}

// lastPivot returns the most recently stored pivot, if any.
func (s *State) lastPivot() (models.Pivot, bool) {
	if len(s.pivots) == 0 {
		return models.Pivot{}, false
	}
	return s.pivots[len(s.pivots)-1], true
}

// lastEight returns the last eight stored pivots in bar order.
func (s *State) lastEight() ([8]models.Pivot, bool) {
	var out [8]models.Pivot
	if len(s.pivots) < 8 {
		return out, false
	}
	copy(out[:], s.pivots[len(s.pivots)-8:])
	return out, true
}

// clearPattern drops the last-eight info after a failed validation.
// The lock is left alone; it is released only by the unlock rule.
func (s *State) clearPattern() {
	s.lastEightUp = false
	s.lastEightDown = false
	s.group = models.GroupNone
}

// Pivots returns the stored pivot history.
func (s *State) Pivots() []models.Pivot { return s.pivots }

// Locked reports whether the current pattern has already fired.
func (s *State) Locked() bool { return s.chochLocked }

// Group returns the group tag of the last validated pattern.
func (s *State) Group() models.PatternGroup { return s.group }

// HasPattern reports whether the last eight pivots validated.
func (s *State) HasPattern() bool { return s.lastEightUp || s.lastEightDown }
