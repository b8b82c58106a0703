package minotaur

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMiddleware collects every node decision the driver makes.
type recordingMiddleware struct {
	mu        sync.Mutex
	decisions []SearchDecision
}

func (m *recordingMiddleware) ProcessDecision(n *Node, d SearchDecision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
}

func (m *recordingMiddleware) count(d SearchDecision) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := 0
	for _, got := range m.decisions {
		if got == d {
			c++
		}
	}
	return c
}

// knapsackModel is a two-variable integer problem whose LP relaxation is
// fractional: minimize -x1 - 2*x2 subject to x1 + x2 <= 3.5 with both
// variables integer in [0,10]. The integer optimum is (0,3) at -6.
func knapsackModel() (*Model, *Relaxation, *PostSolver) {
	m := NewModel()
	x1 := m.AddVariable(-1, true, 0, 10)
	x2 := m.AddVariable(-2, true, 0, 10)
	m.AddInequality([]Expression{
		{Coef: 1, Variable: x1},
		{Coef: 1, Variable: x2},
	}, 3.5)
	rel, post := m.ToRelaxation()
	return m, rel, post
}

func TestSearchSolvesSmallIntegerProblem(t *testing.T) {
	_, rel, post := knapsackModel()
	mw := &recordingMiddleware{}

	s := NewSearch(rel, DefaultSearchOptions(), nil, mw, nil)
	sol, err := s.Run()
	require.NoError(t, err)

	sol = post.PostSolve(sol)
	assert.InDelta(t, -6, sol.ObjValue(), 1e-6)
	assert.InDelta(t, 0, sol.Primal()[0], 1e-6)
	assert.InDelta(t, 3, sol.Primal()[1], 1e-6)

	assert.GreaterOrEqual(t, mw.count(NodeNewIncumbent), 1)
}

func TestSearchParallelWorkersAgree(t *testing.T) {
	_, rel, post := knapsackModel()

	opts := DefaultSearchOptions()
	opts.Workers = 4
	opts.MergeInterval = 1

	s := NewSearch(rel, opts, nil, nil, nil)
	sol, err := s.Run()
	require.NoError(t, err)

	sol = post.PostSolve(sol)
	assert.InDelta(t, -6, sol.ObjValue(), 1e-6)
}

func TestSearchReportsIntegerInfeasibility(t *testing.T) {
	// 2x = 1 has no integer solution.
	m := NewModel()
	x := m.AddVariable(-1, true, 0, 10)
	m.AddEquality([]Expression{{Coef: 2, Variable: x}}, 1)
	rel, _ := m.ToRelaxation()

	s := NewSearch(rel, DefaultSearchOptions(), nil, nil, nil)
	sol, err := s.Run()
	assert.Nil(t, sol)
	assert.ErrorIs(t, err, ErrNoFeasibleSolution)
}

func TestSearchSeededIncumbentDominatesTree(t *testing.T) {
	_, rel, _ := knapsackModel()
	mw := &recordingMiddleware{}

	s := NewSearch(rel, DefaultSearchOptions(), nil, mw, nil)
	seeded := NewSolution([]float64{0, 0, 0}, -100)
	require.True(t, s.Pool().Add(seeded))

	sol, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, seeded, sol)
	assert.GreaterOrEqual(t, mw.count(NodeDominated), 1)
	assert.Equal(t, 0, mw.count(NodeNewIncumbent))
}

func TestSearchDefaultOptions(t *testing.T) {
	opts := DefaultSearchOptions()
	assert.Equal(t, 1, opts.Workers)
	assert.Equal(t, 1e-6, opts.IntTol)
	assert.Equal(t, 10, opts.MergeInterval)
	assert.Equal(t, DefaultBrancherOptions(), opts.Brancher)
}

func TestSearchMergeWorkerCountsObservationsOnce(t *testing.T) {
	_, rel, _ := knapsackModel()
	s := NewSearch(rel, DefaultSearchOptions(), nil, nil, nil)

	pc := NewPseudoCosts(rel.NumVars())
	pc.updateUp(0, 2)
	pc.updateUp(0, 4)

	s.mergeWorker(0, pc)
	assert.Equal(t, 2, s.snap.TimesUp[0])
	assert.InDelta(t, 3, s.snap.PseudoUp[0], 1e-12)

	// merging the unchanged ledger again must not double count.
	s.mergeWorker(0, pc)
	assert.Equal(t, 2, s.snap.TimesUp[0])
	assert.InDelta(t, 3, s.snap.PseudoUp[0], 1e-12)

	// a new observation folds in as a delta.
	pc.updateUp(0, 9)
	s.mergeWorker(0, pc)
	assert.Equal(t, 3, s.snap.TimesUp[0])
	assert.InDelta(t, 5, s.snap.PseudoUp[0], 1e-12)
}

func TestSearchMergeWorkersFromTwoLedgers(t *testing.T) {
	_, rel, _ := knapsackModel()
	opts := DefaultSearchOptions()
	opts.Workers = 2
	s := NewSearch(rel, opts, nil, nil, nil)

	a := NewPseudoCosts(rel.NumVars())
	a.updateDown(1, 2)
	b := NewPseudoCosts(rel.NumVars())
	b.updateDown(1, 4)

	s.mergeWorker(0, a)
	s.mergeWorker(1, b)

	assert.Equal(t, 2, s.snap.TimesDown[1])
	assert.InDelta(t, 3, s.snap.PseudoDown[1], 1e-12)
}
