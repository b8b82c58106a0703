package minotaur

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Numeric tolerances shared by the interval routines.
// degenTol decides when an interval collapses to a point at zero.
const (
	degenTol = 1e-10
	spanTol  = 1e-8
)

// BoundsOnProduct computes sound bounds on the product of the intervals
// [l0,u0] and [l1,u1].
//
// The zeroXInfZero flag controls the 0 * inf convention: when true, a
// degenerate zero interval annihilates everything and the product is [0,0].
// When false, the product of a zero interval with an interval reaching an
// infinity stays open on that side.
func BoundsOnProduct(zeroXInfZero bool, l0, u0, l1, u1 float64) (lb, ub float64) {

	// if the second interval is degenerate at zero, swap the two intervals so
	// that only the first one needs checking below.
	if math.Abs(l1) <= degenTol && math.Abs(u1) <= degenTol {
		l0, l1 = l1, l0
		u0, u1 = u1, u0
	}

	if math.Abs(l0) <= degenTol && math.Abs(u0) <= degenTol {
		if zeroXInfZero {
			return 0, 0
		}
		lb, ub = 0, 0
		if math.IsInf(l1, -1) {
			lb = math.Inf(-1)
		}
		if math.IsInf(u1, 1) {
			ub = math.Inf(1)
		}
		return lb, ub
	}

	// either side being the whole real line makes the product the whole line.
	if (math.IsInf(l1, -1) && math.IsInf(u1, 1)) || (math.IsInf(l0, -1) && math.IsInf(u0, 1)) {
		return math.Inf(-1), math.Inf(1)
	}

	// Four corner products. A NaN here can only come from 0 * inf; the
	// lower-lower and upper-upper corners resolve to -inf, the mixed
	// corners to +inf.
	corner := func(a, b float64, nanVal float64) float64 {
		p := a * b
		if math.IsNaN(p) {
			return nanVal
		}
		return p
	}

	ninf, pinf := math.Inf(-1), math.Inf(1)
	prods := [4]float64{
		corner(l0, l1, ninf),
		corner(u0, l1, pinf),
		corner(u0, u1, ninf),
		corner(l0, u1, pinf),
	}
	lb, ub = prods[0], prods[0]
	for _, p := range prods[1:] {
		lb = math.Min(lb, p)
		ub = math.Max(ub, p)
	}
	return lb, ub
}

// BoundsOnRecip computes sound bounds on the reciprocal of [l0,u0].
func BoundsOnRecip(l0, u0 float64) (lb, ub float64) {
	switch {
	case math.Abs(u0) < degenTol && math.Abs(l0) < degenTol:
		// interval is just {0}
		return math.Inf(-1), math.Inf(1)
	case l0 < -degenTol && u0 > degenTol:
		// interval strictly spans zero
		return math.Inf(-1), math.Inf(1)
	case math.Abs(u0) < degenTol && l0 < 0:
		// upper end touches zero from below
		return math.Inf(-1), 1.0 / l0
	case math.Abs(l0) < degenTol && u0 > 0:
		// lower end touches zero from above
		return 1.0 / u0, math.Inf(1)
	default:
		return 1.0 / u0, 1.0 / l0
	}
}

// BoundsOnDiv computes sound bounds on [l0,u0] / [l1,u1] as the product of
// the first interval with the reciprocal of the second.
func BoundsOnDiv(l0, u0, l1, u1 float64) (lb, ub float64) {
	tl, tu := BoundsOnRecip(l1, u1)
	return BoundsOnProduct(false, l0, u0, tl, tu)
}

// RevBoundsOnMult computes bounds on z where z*[l1,u1] = [l0,u0]. When both
// intervals contain zero no information can be deduced.
func RevBoundsOnMult(l0, u0, l1, u1 float64) (lb, ub float64) {
	if l0 <= spanTol && u0 >= -spanTol && l1 <= spanTol && u1 >= -spanTol {
		return math.Inf(-1), math.Inf(1)
	}
	return BoundsOnDiv(l0, u0, l1, u1)
}

// BoundsOnSquare computes sound bounds on the square of [l1,u1].
func BoundsOnSquare(l1, u1 float64) (lb, ub float64) {
	switch {
	case u1 < 0: // both bounds are negative.
		return u1 * u1, l1 * l1
	case l1 > 0: // both bounds are positive.
		return l1 * l1, u1 * u1
	default: // lb is negative, ub is positive.
		return 0, math.Max(l1*l1, u1*u1)
	}
}

// InnerProduct returns the dot product of two dense vectors of equal length.
func InnerProduct(x, a []float64) float64 {
	return floats.Dot(x, a)
}

// SparseInnerProduct returns the dot product of a dense vector with a sparse
// vector given as an index-to-coefficient map.
func SparseInnerProduct(x []float64, g map[int]float64) float64 {
	sum := 0.0
	for i, v := range g {
		sum += v * x[i]
	}
	return sum
}

// IsInt reports whether v is within tol of an integer.
func IsInt(v, tol float64) bool {
	return math.Abs(math.Floor(v+0.5)-v) < tol
}

// MinArray returns the smallest element of a. Panics on an empty slice.
func MinArray(a []float64) float64 {
	return floats.Min(a)
}

// Distance returns the Euclidean distance between two points of equal
// dimension.
func Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Gcd returns the greatest common divisor of d1 and d2 up to tolerance etol,
// treating both as nonnegative.
func Gcd(d1, d2, etol float64) float64 {
	d1 = math.Abs(d1)
	d2 = math.Abs(d2)
	if d2 < d1 {
		d1, d2 = d2, d1
	}
	if d1 < etol {
		return d2
	}
	rem := math.Mod(d2, d1)
	for rem > etol {
		d2 = d1
		d1 = rem
		rem = math.Mod(d2, d1)
	}
	return d1
}

// ToClockTime formats a duration given in seconds as HH:MM:SS:CC, where CC
// is centiseconds. Hours are not wrapped.
func ToClockTime(t float64) string {
	it := int(t * 100)
	h := it / 360000
	it %= 360000
	m := it / 6000
	it %= 6000
	s := it / 100
	c := it % 100
	return fmt.Sprintf("%02d:%02d:%02d:%02d", h, m, s, c)
}
