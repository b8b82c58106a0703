package minotaur

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Relaxation is the LP relaxation of the problem at one node of the tree:
//
//	minimize    c^T x
//	subject to  A * x = b
//	            lower <= x <= upper
//
// with x implicitly nonnegative. Variable bounds are the only mutable part;
// branching and bound-tightening modifications rewrite them in place and the
// matrices are shared across the whole subtree.
type Relaxation struct {
	c []float64
	A *mat.Dense
	b []float64

	lower []float64
	upper []float64

	// which variables carry an integrality requirement, same order as c.
	integer []bool
}

// NewRelaxation assembles a relaxation from its standard-form parts. The
// lower and upper slices are copied; c, A, b and integer are shared.
func NewRelaxation(c []float64, A *mat.Dense, b []float64, lower, upper []float64, integer []bool) *Relaxation {
	if insane := sanityCheckDimensions(c, A, b); insane != nil {
		panic(insane)
	}
	l := make([]float64, len(lower))
	copy(l, lower)
	u := make([]float64, len(upper))
	copy(u, upper)
	return &Relaxation{c: c, A: A, b: b, lower: l, upper: u, integer: integer}
}

func (r *Relaxation) NumVars() int { return len(r.c) }

func (r *Relaxation) VarLb(i int) float64 { return r.lower[i] }
func (r *Relaxation) VarUb(i int) float64 { return r.upper[i] }

func (r *Relaxation) SetVarLb(i int, lb float64) { r.lower[i] = lb }
func (r *Relaxation) SetVarUb(i int, ub float64) { r.upper[i] = ub }

func (r *Relaxation) IsInteger(i int) bool { return r.integer[i] }

// Clone gives a worker its own relaxation copy. Bounds are deep-copied, the
// constraint matrices are immutable and shared.
func (r *Relaxation) Clone() *Relaxation {
	l := make([]float64, len(r.lower))
	copy(l, r.lower)
	u := make([]float64, len(r.upper))
	copy(u, r.upper)
	return &Relaxation{c: r.c, A: r.A, b: r.b, lower: l, upper: u, integer: r.integer}
}

// boundConstraints expresses the current finite variable bounds as
// inequality rows G*x <= h over the nonnegative orthant. A finite upper
// bound u becomes x_i <= u; a strictly positive lower bound l becomes
// -x_i <= -l.
func (r *Relaxation) boundConstraints() (*mat.Dense, []float64) {
	type row struct {
		index  int
		factor float64
		rhs    float64
	}
	var rows []row
	for i := range r.c {
		if u := r.upper[i]; !math.IsInf(u, 1) {
			rows = append(rows, row{index: i, factor: 1, rhs: u})
		}
		if l := r.lower[i]; l > 0 {
			rows = append(rows, row{index: i, factor: -1, rhs: -l})
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	G := mat.NewDense(len(rows), len(r.c), nil)
	h := make([]float64, len(rows))
	for k, rw := range rows {
		G.Set(k, rw.index, rw.factor)
		h[k] = rw.rhs
	}
	return G, h
}

// Convert a problem with inequalities (G and h) to a problem with only
// nonnegative equalities (matrix aNew and vector bNew) using slack
// variables.
func convertToEqualities(c []float64, A *mat.Dense, b []float64, G *mat.Dense, h []float64) (cNew []float64, aNew *mat.Dense, bNew []float64) {
	if G == nil {
		panic("provided pointer to G matrix is nil")
	}

	nVar := len(c)
	nCons := len(b)
	nIneq := len(h)
	nNewVar := nVar + nIneq
	nNewCons := nCons + nIneq

	// the slack variables join the objective with zero cost.
	cNew = make([]float64, nNewVar)
	copy(cNew, c)

	bNew = make([]float64, nNewCons)
	copy(bNew, b)
	copy(bNew[nCons:], h)

	aNew = mat.NewDense(nNewCons, nNewVar, nil)

	// embed the original A matrix in the top left part of aNew.
	if A != nil {
		aNew.Slice(0, nCons, 0, nVar).(*mat.Dense).Copy(A)
	}

	// embed G below the view of the old A.
	aNew.Slice(nCons, nNewCons, 0, nVar).(*mat.Dense).Copy(G)

	// diagonally fill the bottom-right block with the slack indicators.
	bottomRight := aNew.Slice(nCons, nNewCons, nVar, nNewVar).(*mat.Dense)
	for i := 0; i < nIneq; i++ {
		bottomRight.Set(i, i, 1)
	}

	return cNew, aNew, bNew
}

// Sanity check for the relaxation dimensions.
func sanityCheckDimensions(c []float64, A *mat.Dense, b []float64) error {
	if A == nil {
		return errors.New("no constraint matrix provided")
	}
	rA, cA := A.Dims()
	if rA != len(b) {
		return errors.New("number of rows in A matrix is not equal to length of b")
	}
	if cA != len(c) {
		return errors.New("number of columns in A matrix is not equal to number of variables")
	}
	return nil
}
