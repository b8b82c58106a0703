package minotaur

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundsOnProduct(t *testing.T) {
	ninf, pinf := math.Inf(-1), math.Inf(1)

	tests := []struct {
		name           string
		zeroXInfZero   bool
		l0, u0, l1, u1 float64
		wantLb, wantUb float64
	}{
		{
			name: "positive times positive",
			l0:   2, u0: 3, l1: 4, u1: 5,
			wantLb: 8, wantUb: 15,
		},
		{
			name: "mixed sign times positive",
			l0:   -2, u0: 3, l1: 4, u1: 5,
			wantLb: -10, wantUb: 15,
		},
		{
			name: "negative times negative",
			l0:   -3, u0: -2, l1: -5, u1: -4,
			wantLb: 8, wantUb: 15,
		},
		{
			name:         "zero interval annihilates when flag set",
			zeroXInfZero: true,
			l0:           0, u0: 0, l1: ninf, u1: 5,
			wantLb: 0, wantUb: 0,
		},
		{
			name: "zero interval stays open without flag",
			l0:   0, u0: 0, l1: ninf, u1: 5,
			wantLb: ninf, wantUb: 0,
		},
		{
			name: "zero interval in second position",
			l0:   ninf, u0: 5, l1: 0, u1: 0,
			wantLb: ninf, wantUb: 0,
		},
		{
			name: "whole line swallows everything",
			l0:   ninf, u0: pinf, l1: 1, u1: 2,
			wantLb: ninf, wantUb: pinf,
		},
		{
			name: "zero endpoint against open lower end",
			l0:   0, u0: 1, l1: ninf, u1: 2,
			wantLb: ninf, wantUb: 2,
		},
		{
			name: "zero endpoint against open upper end",
			l0:   0, u0: 1, l1: -2, u1: pinf,
			wantLb: -2, wantUb: pinf,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lb, ub := BoundsOnProduct(tt.zeroXInfZero, tt.l0, tt.u0, tt.l1, tt.u1)
			assert.Equal(t, tt.wantLb, lb)
			assert.Equal(t, tt.wantUb, ub)
		})
	}
}

func TestBoundsOnRecip(t *testing.T) {
	ninf, pinf := math.Inf(-1), math.Inf(1)

	tests := []struct {
		name           string
		l0, u0         float64
		wantLb, wantUb float64
	}{
		{name: "strictly positive", l0: 2, u0: 4, wantLb: 0.25, wantUb: 0.5},
		{name: "strictly negative", l0: -4, u0: -2, wantLb: -0.5, wantUb: -0.25},
		{name: "spans zero", l0: -1, u0: 1, wantLb: ninf, wantUb: pinf},
		{name: "degenerate zero", l0: 0, u0: 0, wantLb: ninf, wantUb: pinf},
		{name: "touches zero from above", l0: 0, u0: 2, wantLb: 0.5, wantUb: pinf},
		{name: "touches zero from below", l0: -2, u0: 0, wantLb: ninf, wantUb: -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lb, ub := BoundsOnRecip(tt.l0, tt.u0)
			assert.Equal(t, tt.wantLb, lb)
			assert.Equal(t, tt.wantUb, ub)
		})
	}
}

func TestBoundsOnDiv(t *testing.T) {
	lb, ub := BoundsOnDiv(1, 2, 2, 4)
	assert.Equal(t, 0.25, lb)
	assert.Equal(t, 1.0, ub)

	lb, ub = BoundsOnDiv(1, 2, -1, 1)
	assert.Equal(t, math.Inf(-1), lb)
	assert.Equal(t, math.Inf(1), ub)
}

func TestRevBoundsOnMult(t *testing.T) {
	// z * [2,4] = [4,8] deduces z in [1,4].
	lb, ub := RevBoundsOnMult(4, 8, 2, 4)
	assert.Equal(t, 1.0, lb)
	assert.Equal(t, 4.0, ub)

	// both intervals contain zero: nothing can be deduced.
	lb, ub = RevBoundsOnMult(-1, 1, -2, 2)
	assert.Equal(t, math.Inf(-1), lb)
	assert.Equal(t, math.Inf(1), ub)
}

func TestBoundsOnSquare(t *testing.T) {
	tests := []struct {
		name           string
		l1, u1         float64
		wantLb, wantUb float64
	}{
		{name: "negative interval", l1: -3, u1: -2, wantLb: 4, wantUb: 9},
		{name: "positive interval", l1: 2, u1: 3, wantLb: 4, wantUb: 9},
		{name: "spans zero", l1: -2, u1: 3, wantLb: 0, wantUb: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lb, ub := BoundsOnSquare(tt.l1, tt.u1)
			assert.Equal(t, tt.wantLb, lb)
			assert.Equal(t, tt.wantUb, ub)
		})
	}
}

func TestInnerProducts(t *testing.T) {
	x := []float64{1, 2, 3}
	assert.Equal(t, 14.0, InnerProduct(x, []float64{1, 2, 3}))
	assert.Equal(t, 8.0, SparseInnerProduct(x, map[int]float64{0: 2, 2: 2}))
	assert.Equal(t, 0.0, SparseInnerProduct(x, nil))
}

func TestIsInt(t *testing.T) {
	assert.True(t, IsInt(2, 1e-6))
	assert.True(t, IsInt(2.0000001, 1e-6))
	assert.True(t, IsInt(1.9999999, 1e-6))
	assert.False(t, IsInt(2.5, 1e-6))
	assert.False(t, IsInt(2.001, 1e-6))
}

func TestMinArrayAndDistance(t *testing.T) {
	assert.Equal(t, -2.0, MinArray([]float64{3, -2, 7}))
	assert.Equal(t, 5.0, Distance([]float64{0, 0}, []float64{3, 4}))
}

func TestGcd(t *testing.T) {
	tests := []struct {
		name   string
		d1, d2 float64
		want   float64
	}{
		{name: "integers", d1: 4, d2: 6, want: 2},
		{name: "order does not matter", d1: 6, d2: 4, want: 2},
		{name: "fractions", d1: 0.5, d2: 1.25, want: 0.25},
		{name: "zero yields the other", d1: 0, d2: 3, want: 3},
		{name: "negatives treated as magnitudes", d1: -4, d2: 6, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Gcd(tt.d1, tt.d2, 1e-9), 1e-9)
		})
	}
}

func TestToClockTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{seconds: 0, want: "00:00:00:00"},
		{seconds: 90.5, want: "00:01:30:50"},
		{seconds: 3661.25, want: "01:01:01:25"},
		{seconds: 0.07, want: "00:00:00:07"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ToClockTime(tt.seconds))
	}
}
