package detect

// Config controls pivot detection and pattern validation. The zero
// value is not usable; start from DefaultConfig.
type Config struct {
	// PivotLeft and PivotRight are the neighbor counts a bar must
	// strictly exceed on each side to qualify as a pivot.
	PivotLeft  int
	PivotRight int

	// WindowSize is the number of closed candles per scan. Scans over
	// shorter windows are no-ops.
	WindowSize int

	// KeepPivots caps the stored pivot history per state.
	KeepPivots int

	// UseVariantFilter drops pivots whose surrounding triplet matches
	// none of the six variants, or a variant outside the allow-set.
	UseVariantFilter bool

	AllowPH1 bool
	AllowPH2 bool
	AllowPH3 bool
	AllowPL1 bool
	AllowPL2 bool
	AllowPL3 bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PivotLeft:        1,
		PivotRight:       1,
		WindowSize:       50,
		KeepPivots:       200,
		UseVariantFilter: true,
		AllowPH1:         true,
		AllowPH2:         true,
		AllowPH3:         true,
		AllowPL1:         true,
		AllowPL2:         true,
		AllowPL3:         true,
	}
}

func (c Config) allows(v variantMatch) bool {
	switch v {
	case matchPH1:
		return c.AllowPH1
	case matchPH2:
		return c.AllowPH2
	case matchPH3:
		return c.AllowPH3
	case matchPL1:
		return c.AllowPL1
	case matchPL2:
		return c.AllowPL2
	case matchPL3:
		return c.AllowPL3
	default:
		return false
	}
}
