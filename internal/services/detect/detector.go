package detect

import (
	"ChochScan/internal/domain/models"
)

// Detector runs the pivot, pattern and confirmation stages over scan
// windows. It is stateless itself; all per-(symbol, timeframe) state
// lives in State values owned by the caller.
type Detector struct {
	cfg Config
}

// New creates a detector with the given configuration.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Config returns the detector configuration.
func (d *Detector) Config() Config { return d.cfg }

// Scan runs one full detection cycle over a window of closed candles:
// rebuild pivots, validate the last eight, and attempt confirmation.
// The returned result fires at most once per validated pattern.
func (d *Detector) Scan(st *State, window []models.Candle) (models.DetectionResult, error) {
	if err := d.RebuildPivots(st, window); err != nil {
		return models.DetectionResult{Direction: models.DirectionNone}, err
	}
	if !d.ValidateLastEight(st) {
		return models.DetectionResult{Direction: models.DirectionNone}, nil
	}
	return d.Confirm(st, window)
}
