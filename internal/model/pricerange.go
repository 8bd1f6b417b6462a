package model

import "github.com/shopspring/decimal"

// PriceRange is the span of prices observed between two consecutive
// evaluation points. Threshold crossing is detected as range containment:
// the previous observation is included as an excluded bound, so a price
// sitting exactly on the threshold never re-fires on the next cycle.
type PriceRange struct {
	low, high         decimal.Decimal
	openLow, openHigh bool
	empty             bool
}

func EmptyPriceRange() PriceRange {
	return PriceRange{empty: true}
}

func (r PriceRange) IsEmpty() bool { return r.empty }

func (r PriceRange) Extend(p decimal.Decimal) PriceRange {
	if r.empty {
		return PriceRange{low: p, high: p}
	}
	if p.LessThan(r.low) {
		r.low = p
		r.openLow = false
	}
	if p.GreaterThan(r.high) {
		r.high = p
		r.openHigh = false
	}
	return r
}

// ExcludeBound marks p as excluded if it sits exactly on a bound of the
// range. A range collapsed to a single excluded point becomes empty.
func (r PriceRange) ExcludeBound(p decimal.Decimal) PriceRange {
	if r.empty {
		return r
	}
	if r.low.Equal(r.high) && r.low.Equal(p) {
		return EmptyPriceRange()
	}
	if p.Equal(r.low) {
		r.openLow = true
	}
	if p.Equal(r.high) {
		r.openHigh = true
	}
	return r
}

func (r PriceRange) Contains(threshold decimal.Decimal) bool {
	if r.empty {
		return false
	}
	if threshold.LessThan(r.low) || threshold.GreaterThan(r.high) {
		return false
	}
	if r.openLow && threshold.Equal(r.low) {
		return false
	}
	if r.openHigh && threshold.Equal(r.high) {
		return false
	}
	return true
}

func (r PriceRange) LowHigh() (decimal.Decimal, decimal.Decimal) {
	return r.low, r.high
}
