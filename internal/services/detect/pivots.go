package detect

import (
	"fmt"

	"ChochScan/internal/domain/models"
	drepo "ChochScan/internal/domain/repository"
)

type variantMatch int

const (
	matchNone variantMatch = iota
	matchPH1
	matchPH2
	matchPH3
	matchPL1
	matchPL2
	matchPL3
)

func (v variantMatch) variant() models.PivotVariant {
	switch v {
	case matchPH1:
		return models.VariantPH1
	case matchPH2:
		return models.VariantPH2
	case matchPH3:
		return models.VariantPH3
	case matchPL1:
		return models.VariantPL1
	case matchPL2:
		return models.VariantPL2
	case matchPL3:
		return models.VariantPL3
	default:
		return ""
	}
}

// RebuildPivots resets the state's pivot history and reconstructs it
// from the window. The window must hold at least WindowSize closed
// candles; shorter windows return ErrInsufficientData and leave the
// state untouched.
func (d *Detector) RebuildPivots(st *State, window []models.Candle) error {
	if len(window) < d.cfg.WindowSize {
		return fmt.Errorf("%w: %d candles, need %d", drepo.ErrInsufficientData, len(window), d.cfg.WindowSize)
	}
	for i := range window {
		if err := window[i].Validate(); err != nil {
			return fmt.Errorf("%w: %v", drepo.ErrMalformedInput, err)
		}
	}

	st.resetPivots()
	left, right := d.cfg.PivotLeft, d.cfg.PivotRight
	for i := left; i < len(window)-right; i++ {
		kind, ok := pivotAt(window, i, left, right)
		if !ok {
			continue
		}
		price := window[i].High
		if kind == models.PivotLow {
			price = window[i].Low
		}
		p := models.Pivot{
			BarIndex: i,
			Price:    price,
			Kind:     kind,
			High:     window[i].High,
			Low:      window[i].Low,
			Volume:   window[i].Volume,
		}

		match := classifyVariant(window, i)
		if d.cfg.UseVariantFilter {
			if match == matchNone || !d.cfg.allows(match) {
				continue
			}
		}
		p.Variant = match.variant()

		d.storeWithSynthetic(st, window, p)
	}
	return nil
}

// pivotAt reports whether bar i is a pivot and of which kind. A pivot
// high strictly exceeds the highs of its left and right neighbors; a
// bar satisfying both tests counts as a high.
func pivotAt(window []models.Candle, i, left, right int) (models.PivotKind, bool) {
	isHigh, isLow := true, true
	for k := i - left; k < i; k++ {
		if window[k].High >= window[i].High {
			isHigh = false
		}
		if window[k].Low <= window[i].Low {
			isLow = false
		}
	}
	for k := i + 1; k <= i+right; k++ {
		if window[k].High >= window[i].High {
			isHigh = false
		}
		if window[k].Low <= window[i].Low {
			isLow = false
		}
	}
	switch {
	case isHigh:
		return models.PivotHigh, true
	case isLow:
		return models.PivotLow, true
	default:
		return "", false
	}
}

// classifyVariant tests the triplet of bars i-1, i, i+1 against the six
// variant predicates. The rows are mutually exclusive by construction.
func classifyVariant(window []models.Candle, i int) variantMatch {
	h1, l1 := window[i-1].High, window[i-1].Low
	h2, l2 := window[i].High, window[i].Low
	h3, l3 := window[i+1].High, window[i+1].Low

	switch {
	case h2 > h1 && h2 > h3 && l2 > l1 && l2 > l3:
		return matchPH1
	case h2 >= h1 && h2 > h3 && l2 > l3 && l2 < l1:
		return matchPH2
	case h2 > h1 && h2 >= h3 && l2 < l3 && l2 > l1:
		return matchPH3
	case l2 < l1 && l2 < l3 && h2 < h1 && h2 < h3:
		return matchPL1
	case h2 >= h1 && h2 < h3 && l2 < l3 && l2 <= l1:
		return matchPL2
	case l2 < l1 && l2 < l3 && h2 < h1 && h2 > h3:
		return matchPL3
	default:
		return matchNone
	}
}

// maxSyntheticGap bounds fake-pivot insertion: a gap of more than three
// bars inside a 50-bar window is too sparse for a reliable synthetic.
const maxSyntheticGap = 3

// storeWithSynthetic stores p, first inserting a synthetic pivot of the
// opposite kind when p and the previously stored pivot share a kind and
// the bars strictly between them number 1 to 3. The synthetic takes the
// opposite extreme of that gap: the minimum low between two highs, the
// maximum high between two lows.
func (d *Detector) storeWithSynthetic(st *State, window []models.Candle, p models.Pivot) {
	if prev, ok := st.lastPivot(); ok && prev.Kind == p.Kind {
		gap := p.BarIndex - prev.BarIndex - 1
		if gap >= 1 && gap <= maxSyntheticGap {
			best := prev.BarIndex + 1
			for k := prev.BarIndex + 2; k < p.BarIndex; k++ {
				if p.Kind == models.PivotHigh {
					if window[k].Low < window[best].Low {
						best = k
					}
				} else {
					if window[k].High > window[best].High {
						best = k
					}
				}
			}
			syn := models.Pivot{
				BarIndex: best,
				Kind:     p.Kind.Opposite(),
				Variant:  models.VariantSynthetic,
				High:     window[best].High,
				Low:      window[best].Low,
				Volume:   window[best].Volume,
			}
			if syn.Kind == models.PivotHigh {
				syn.Price = window[best].High
			} else {
				syn.Price = window[best].Low
			}
			st.store(syn, d.cfg.KeepPivots)
		}
	}
	st.store(p, d.cfg.KeepPivots)
}
