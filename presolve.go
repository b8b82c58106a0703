package minotaur

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// presolver reduces the model before the search starts and records, per
// reduction, an undoer that maps solutions back to the model's shape.
type presolver struct {
	undoers []undoer
}

type undoer func(*Solution) *Solution

func newPresolver() *presolver {
	return &presolver{}
}

func (p *presolver) addUndoer(u undoer) {
	p.undoers = append(p.undoers, u)
}

// presolve compiles a model into the root relaxation: inequalities become
// equalities over slack variables, and empty constraint rows are dropped.
func (p *presolver) presolve(m *Model) *Relaxation {
	c, A, b, G, h := m.matrices()
	lower, upper := m.bounds()
	integer := m.integrality()

	nOrig := len(c)
	if G != nil {
		c, A, b = convertToEqualities(c, A, b, G, h)

		// slack variables are continuous and unbounded above.
		grown := len(c) - nOrig
		for i := 0; i < grown; i++ {
			lower = append(lower, 0)
			upper = append(upper, math.Inf(1))
			integer = append(integer, false)
		}

		// map the solution back to its original shape.
		p.addUndoer(func(s *Solution) *Solution {
			return &Solution{x: s.x[:nOrig], obj: s.obj}
		})
	}

	if A == nil {
		panic("model has no constraints")
	}
	A, b = removeEmptyRows(A, b)

	return NewRelaxation(c, A, b, lower, upper, integer)
}

func (p *presolver) postSolver() *PostSolver {
	return &PostSolver{undoers: p.undoers}
}

// PostSolver replays the presolve reductions backwards on a solution of the
// reduced problem.
type PostSolver struct {
	undoers []undoer
}

func (ps *PostSolver) PostSolve(s *Solution) *Solution {
	if s == nil {
		return nil
	}
	for i := len(ps.undoers) - 1; i >= 0; i-- {
		s = ps.undoers[i](s)
	}
	return s
}

// removeEmptyRows drops all-zero rows of the equality constraint matrix.
func removeEmptyRows(A *mat.Dense, b []float64) (*mat.Dense, []float64) {
	aRows, aCols := A.Dims()
	var nonEmpty []int
	for i := 0; i < aRows; i++ {
		for j := 0; j < aCols; j++ {
			if A.At(i, j) != 0 {
				nonEmpty = append(nonEmpty, i)
				break
			}
		}
	}

	if len(nonEmpty) == 0 {
		panic("all rows of A are empty")
	}
	if len(nonEmpty) == aRows {
		bNew := make([]float64, aRows)
		copy(bNew, b)
		return mat.DenseCopyOf(A), bNew
	}

	var data []float64
	var bNew []float64
	for _, r := range nonEmpty {
		data = append(data, A.RawRowView(r)...)
		bNew = append(bNew, b[r])
	}
	return mat.NewDense(len(nonEmpty), aCols, data), bNew
}
