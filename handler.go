package minotaur

import (
	"fmt"
	"io"
	"math"
)

// Modification is a reversible change to a relaxation, typically a variable
// bound change. A modification is applied and undone at most once each;
// Undo must restore the relaxation exactly as Apply found it.
type Modification interface {
	Apply(rel *Relaxation)
	Undo(rel *Relaxation)
	Write(out io.Writer)
}

// BoundType selects which bound of a variable a modification rewrites.
type BoundType int

const (
	LowerBound BoundType = iota
	UpperBound
)

// VarBoundMod changes one bound of one variable and remembers the old value
// for undo.
type VarBoundMod struct {
	index  int
	bound  BoundType
	newVal float64
	oldVal float64
}

func NewVarBoundMod(index int, bound BoundType, newVal float64) *VarBoundMod {
	return &VarBoundMod{index: index, bound: bound, newVal: newVal}
}

func (m *VarBoundMod) Apply(rel *Relaxation) {
	if m.bound == LowerBound {
		m.oldVal = rel.VarLb(m.index)
		rel.SetVarLb(m.index, m.newVal)
	} else {
		m.oldVal = rel.VarUb(m.index)
		rel.SetVarUb(m.index, m.newVal)
	}
}

func (m *VarBoundMod) Undo(rel *Relaxation) {
	if m.bound == LowerBound {
		rel.SetVarLb(m.index, m.oldVal)
	} else {
		rel.SetVarUb(m.index, m.oldVal)
	}
}

func (m *VarBoundMod) Write(out io.Writer) {
	which := "lb"
	if m.bound == UpperBound {
		which = "ub"
	}
	fmt.Fprintf(out, "var %d %s <- %g\n", m.index, which, m.newVal)
}

// Handler produces branching candidates for one class of constraints and
// knows how to realize a branching decision on the relaxation. Handlers are
// registered in an ordered collection; registration order breaks ties.
type Handler interface {
	Name() string

	// BranchingCandidates inspects the primal point x and returns
	// candidates to branch on. It may instead return modifications that
	// tighten the relaxation without branching, or report that the node is
	// infeasible.
	BranchingCandidates(rel *Relaxation, x []float64) (mods []Modification, varCands []*BrVarCand, genCands []BrCand, isInf bool)

	// BranchMod builds the single-direction modification for a candidate.
	BranchMod(cand BrCand, x []float64, rel *Relaxation, dir Direction) Modification

	// Branches builds the child branches for the chosen candidate. The
	// preferred direction of the candidate comes first.
	Branches(cand BrCand, x []float64, rel *Relaxation, pool *SolutionPool) []*Branch
}

// IntVarHandler produces a candidate for every integrality-constrained
// variable whose value is fractional in the current relaxation solution.
type IntVarHandler struct {
	tol float64
}

func NewIntVarHandler(tol float64) *IntVarHandler {
	return &IntVarHandler{tol: tol}
}

func (h *IntVarHandler) Name() string { return "IntVarHandler" }

func (h *IntVarHandler) BranchingCandidates(rel *Relaxation, x []float64) ([]Modification, []*BrVarCand, []BrCand, bool) {
	var cands []*BrVarCand
	for i := 0; i < rel.NumVars(); i++ {
		if !rel.IsInteger(i) {
			continue
		}
		if rel.VarLb(i) > rel.VarUb(i)+h.tol {
			return nil, nil, nil, true
		}
		frac := x[i] - math.Floor(x[i])
		if frac > h.tol && frac < 1-h.tol {
			cands = append(cands, NewBrVarCand(i, frac, 1-frac))
		}
	}
	return nil, cands, nil, false
}

func (h *IntVarHandler) BranchMod(cand BrCand, x []float64, rel *Relaxation, dir Direction) Modification {
	i := cand.PCostIndex()
	if dir == DownBranch {
		return NewVarBoundMod(i, UpperBound, math.Floor(x[i]))
	}
	return NewVarBoundMod(i, LowerBound, math.Ceil(x[i]))
}

func (h *IntVarHandler) Branches(cand BrCand, x []float64, rel *Relaxation, pool *SolutionPool) []*Branch {
	i := cand.PCostIndex()
	activity := x[i]

	down := NewBranch(cand, DownBranch, activity, NewVarBoundMod(i, UpperBound, math.Floor(activity)))
	up := NewBranch(cand, UpBranch, activity, NewVarBoundMod(i, LowerBound, math.Ceil(activity)))

	if cand.Direction() == UpBranch {
		return []*Branch{up, down}
	}
	return []*Branch{down, up}
}
