package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestPriceRangeEmpty(t *testing.T) {
	r := EmptyPriceRange()
	if !r.IsEmpty() {
		t.Fatalf("expected empty range")
	}
	if r.Contains(dec(0)) {
		t.Fatalf("empty range must not contain anything")
	}
}

func TestPriceRangeContains(t *testing.T) {
	r := EmptyPriceRange().Extend(dec(90)).Extend(dec(110))
	if !r.Contains(dec(100)) {
		t.Fatalf("expected 100 in [90,110]")
	}
	if !r.Contains(dec(90)) || !r.Contains(dec(110)) {
		t.Fatalf("closed bounds must be contained")
	}
	if r.Contains(dec(89)) || r.Contains(dec(111)) {
		t.Fatalf("out-of-range values must not be contained")
	}
}

func TestPriceRangeExcludeBound(t *testing.T) {
	// Previous observation 90 is an excluded bound: a threshold exactly at
	// the previous price must not fire again.
	r := EmptyPriceRange().Extend(dec(110)).Extend(dec(90)).ExcludeBound(dec(90))
	if r.Contains(dec(90)) {
		t.Fatalf("excluded bound must not be contained")
	}
	if !r.Contains(dec(110)) || !r.Contains(dec(100)) {
		t.Fatalf("rest of the range must be contained")
	}
}

func TestPriceRangeCollapsedPointIsEmpty(t *testing.T) {
	r := EmptyPriceRange().Extend(dec(100)).ExcludeBound(dec(100))
	if !r.IsEmpty() {
		t.Fatalf("single excluded point must collapse to empty")
	}
}

func TestPriceRangeNoFireWithoutCrossing(t *testing.T) {
	// Price sequence [90, 95, 99] against threshold 100: never fires.
	threshold := dec(100)
	prev := dec(90)
	for _, p := range []decimal.Decimal{dec(95), dec(99)} {
		r := EmptyPriceRange().Extend(p).Extend(prev).ExcludeBound(prev)
		if r.Contains(threshold) {
			t.Fatalf("threshold fired without crossing at %s", p)
		}
		prev = p
	}
}

func TestPriceRangeFiresOncePerCrossing(t *testing.T) {
	// [99, 101, 99] against threshold 100: fires on 99->101 and again on
	// the downward crossing 101->99 (crossings are symmetric).
	threshold := dec(100)

	up := EmptyPriceRange().Extend(dec(101)).Extend(dec(99)).ExcludeBound(dec(99))
	if !up.Contains(threshold) {
		t.Fatalf("upward crossing must fire")
	}

	down := EmptyPriceRange().Extend(dec(99)).Extend(dec(101)).ExcludeBound(dec(101))
	if !down.Contains(threshold) {
		t.Fatalf("downward crossing must fire")
	}

	// Price staying past the threshold must not re-fire.
	flat := EmptyPriceRange().Extend(dec(102)).Extend(dec(101)).ExcludeBound(dec(101))
	if flat.Contains(threshold) {
		t.Fatalf("no crossing, must not fire")
	}
}

func TestPriceRangeThresholdOnPreviousPrice(t *testing.T) {
	// Threshold exactly at the previous price: [100 -> 105] must not fire
	// for threshold 100 (it fired when the price reached 100).
	r := EmptyPriceRange().Extend(dec(105)).Extend(dec(100)).ExcludeBound(dec(100))
	if r.Contains(dec(100)) {
		t.Fatalf("bound threshold must not re-fire")
	}
}
