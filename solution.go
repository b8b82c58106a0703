package minotaur

import (
	"math"
	"sync"
)

// Solution is a feasible point together with its objective value.
type Solution struct {
	x   []float64
	obj float64
}

func NewSolution(x []float64, obj float64) *Solution {
	xc := make([]float64, len(x))
	copy(xc, x)
	return &Solution{x: xc, obj: obj}
}

// Primal returns the solution point. Callers must not modify it.
func (s *Solution) Primal() []float64 { return s.x }

func (s *Solution) ObjValue() float64 { return s.obj }

// SolutionPool keeps the incumbent shared between workers. The incumbent is
// only ever replaced by a strictly better one, so the cutoff observed by any
// reader is monotone non-increasing.
type SolutionPool struct {
	mu   sync.Mutex
	best *Solution
}

func NewSolutionPool() *SolutionPool {
	return &SolutionPool{}
}

// Add offers a new feasible solution. It reports whether the solution
// replaced the incumbent.
func (p *SolutionPool) Add(s *Solution) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.best == nil || s.obj < p.best.obj {
		p.best = s
		return true
	}
	return false
}

// BestSolution returns the incumbent, or nil if none is known yet.
func (p *SolutionPool) BestSolution() *Solution {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.best
}

// BestSolutionValue returns the cutoff: the incumbent objective, or +inf
// when no feasible solution is known.
func (p *SolutionPool) BestSolutionValue() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.best == nil {
		return math.Inf(1)
	}
	return p.best.obj
}
