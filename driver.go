package minotaur

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrNoFeasibleSolution is returned by Search.Run when the tree is exhausted
// without finding an integer feasible point.
var ErrNoFeasibleSolution = errors.New("no integer feasible solution found")

// SearchDecision records what the driver did with a node.
type SearchDecision string

const (
	NodeInfeasible     SearchDecision = "relaxation has no feasible solution"
	NodeEngineFailure  SearchDecision = "engine failed on relaxation"
	NodeDominated      SearchDecision = "worse than incumbent"
	NodeNewIncumbent   SearchDecision = "better than incumbent and integer feasible, so replacing incumbent"
	NodeBranched       SearchDecision = "better than incumbent but fractional, so branching"
	NodePrunedByBranch SearchDecision = "pruned by brancher"
	NodeModified       SearchDecision = "modified by brancher, re-solving"
)

// SearchMiddleware receives every node decision as it is made. Useful for
// instrumentation during testing.
type SearchMiddleware interface {
	ProcessDecision(node *Node, d SearchDecision)
}

type dummyMiddleware struct{}

func (dummyMiddleware) ProcessDecision(*Node, SearchDecision) {}

// SearchOptions configures the branch-and-bound driver.
type SearchOptions struct {
	// Workers is the number of concurrent tree workers. Results are
	// deterministic for Workers == 1.
	Workers int

	// Brancher configures each worker's reliability brancher.
	Brancher BrancherOptions

	// IntTol is the integrality tolerance used to accept solutions.
	IntTol float64

	// MergeInterval is the number of nodes a worker processes between two
	// merges of its pseudo-cost ledger into the shared snapshot.
	MergeInterval int
}

func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Workers:       1,
		Brancher:      DefaultBrancherOptions(),
		IntTol:        1e-6,
		MergeInterval: 10,
	}
}

// Search drives parallel branch-and-bound over subtrees: every worker owns a
// node stack, a relaxation engine and a reliability brancher; the incumbent
// pool and the merged pseudo-cost snapshot are the only shared state.
type Search struct {
	rootRel    *Relaxation
	handlers   []Handler
	opts       SearchOptions
	logger     *slog.Logger
	middleware SearchMiddleware

	pool *SolutionPool

	nodeIDs   atomic.Uint64
	open      atomic.Int64
	processed atomic.Int64

	spare     chan *Node
	done      chan struct{}
	closeOnce sync.Once

	snapMu sync.Mutex
	snap   Snapshot
	// per-worker ledger state at the last merge, to avoid double counting.
	lastMerged []*PseudoCosts
}

// NewSearch builds a driver over the root relaxation. A nil handler list
// installs the integer-variable handler; a nil middleware installs a no-op.
func NewSearch(root *Relaxation, opts SearchOptions, handlers []Handler, mw SearchMiddleware, logger *slog.Logger) *Search {
	if logger == nil {
		logger = slog.Default()
	}
	if mw == nil {
		mw = dummyMiddleware{}
	}
	if len(handlers) == 0 {
		handlers = []Handler{NewIntVarHandler(opts.IntTol)}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Search{
		rootRel:    root,
		handlers:   handlers,
		opts:       opts,
		logger:     logger,
		middleware: mw,
		pool:       NewSolutionPool(),
		spare:      make(chan *Node, opts.Workers*2),
		done:       make(chan struct{}),
		snap:       NewSnapshot(root.NumVars()),
		lastMerged: make([]*PseudoCosts, opts.Workers),
	}
}

// Run explores the tree until exhaustion and returns the best solution.
func (s *Search) Run() (*Solution, error) {
	root := NewNode(s.nodeIDs.Add(1), nil, nil)
	s.open.Add(1)
	s.spare <- root

	var wg sync.WaitGroup
	for w := 0; w < s.opts.Workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.worker(id)
		}(w)
	}
	wg.Wait()

	best := s.pool.BestSolution()
	if best == nil {
		return nil, ErrNoFeasibleSolution
	}
	return best, nil
}

// Pool exposes the incumbent pool, e.g. for seeding a known solution before
// Run.
func (s *Search) Pool() *SolutionPool { return s.pool }

func (s *Search) worker(id int) {
	stack := NewNodeStack()
	engine := NewSimplexEngine()
	brancher := NewReliabilityBrancher(s.opts.Brancher, s.handlers, s.logger)
	brancher.SetEngine(engine)

	sinceMerge := 0
	for {
		n := stack.Pop()
		if n == nil {
			select {
			case n = <-s.spare:
			case <-s.done:
				s.mergeWorker(id, brancher.PseudoCosts())
				return
			}
		}

		s.processNode(n, stack, engine, brancher)

		sinceMerge++
		if sinceMerge >= s.opts.MergeInterval {
			s.mergeWorker(id, brancher.PseudoCosts())
			sinceMerge = 0
		}
		if s.open.Load() == 0 {
			s.closeOnce.Do(func() { close(s.done) })
		}
	}
}

// close a node: it leaves the set of open nodes.
func (s *Search) closeNode(n *Node, d SearchDecision) {
	s.middleware.ProcessDecision(n, d)
	s.open.Add(-1)
}

func (s *Search) processNode(n *Node, stack *NodeStack, engine *SimplexEngine, brancher *ReliabilityBrancher) {
	rel := s.relaxationFor(n)
	engine.Load(rel)

	firstSolve := true
	for {
		status := engine.Solve()
		s.processed.Add(1)

		switch status {
		case ProvenOptimal, ProvenLocalOptimal:
		case ProvenInfeasible, ProvenLocalInfeasible:
			s.closeNode(n, NodeInfeasible)
			return
		default:
			s.logger.Warn("engine failure at node", "node", n.ID(), "status", status.String())
			s.closeNode(n, NodeEngineFailure)
			return
		}

		obj := engine.SolutionValue()
		n.SetLb(obj)
		sol := NewSolution(engine.Solution(), obj)
		if firstSolve {
			brancher.UpdateAfterSolve(n, sol)
			firstSolve = false
		}

		// objective is always minimization.
		if obj >= s.pool.BestSolutionValue()-s.opts.Brancher.ETol {
			s.closeNode(n, NodeDominated)
			return
		}

		if s.integerFeasible(rel, sol.Primal()) {
			if s.pool.Add(sol) {
				s.closeNode(n, NodeNewIncumbent)
			} else {
				s.closeNode(n, NodeDominated)
			}
			return
		}

		branches, brStatus, mods := brancher.FindBranches(rel, n, sol, s.pool,
			s.snapshotCopy(), int(s.processed.Load()))

		switch brStatus {
		case PrunedByBrancher:
			s.closeNode(n, NodePrunedByBranch)
			return

		case ModifiedByBrancher:
			for _, m := range mods {
				m.Apply(rel)
			}
			s.middleware.ProcessDecision(n, NodeModified)
			// re-solve the tightened node.

		case NotModifiedByBrancher:
			if len(branches) == 0 {
				// no handler objects to this point: accept it.
				if s.pool.Add(sol) {
					s.closeNode(n, NodeNewIncumbent)
				} else {
					s.closeNode(n, NodeDominated)
				}
				return
			}
			s.expand(n, branches, stack)
			return
		}
	}
}

// expand turns branches into child nodes. The preferred branch is pushed
// last so depth-first traversal dives into it first; other children are
// offered to idle workers when the spare channel has room.
func (s *Search) expand(n *Node, branches []*Branch, stack *NodeStack) {
	children := make([]*Node, len(branches))
	for i, br := range branches {
		children[i] = NewNode(s.nodeIDs.Add(1), n, br)
		s.open.Add(1)
	}

	// non-preferred children first; try to hand them off.
	for i := len(children) - 1; i >= 1; i-- {
		if s.opts.Workers > 1 {
			select {
			case s.spare <- children[i]:
				continue
			default:
			}
		}
		stack.Push(children[i])
	}
	stack.Push(children[0])

	s.closeNode(n, NodeBranched)
}

// relaxationFor rebuilds the node's relaxation by replaying the branch
// modifications on the path from the root.
func (s *Search) relaxationFor(n *Node) *Relaxation {
	var path []*Branch
	for p := n; p != nil; p = p.Parent() {
		if p.Branch() != nil {
			path = append(path, p.Branch())
		}
	}
	rel := s.rootRel.Clone()
	for i := len(path) - 1; i >= 0; i-- {
		path[i].Modification().Apply(rel)
	}
	return rel
}

func (s *Search) integerFeasible(rel *Relaxation, x []float64) bool {
	for i := 0; i < rel.NumVars(); i++ {
		if rel.IsInteger(i) && !IsInt(x[i], s.opts.IntTol) {
			return false
		}
	}
	return true
}

// snapshotCopy hands out a private copy of the shared snapshot.
func (s *Search) snapshotCopy() Snapshot {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	return s.snap.Clone()
}

// mergeWorker folds the observations a worker ledger gained since its last
// merge into the shared snapshot. Deltas keep each observation counted once
// no matter how often or in which order workers merge.
func (s *Search) mergeWorker(id int, pc *PseudoCosts) {
	if pc == nil {
		return
	}
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	prev := s.lastMerged[id]
	for i := 0; i < pc.NumVars(); i++ {
		prevTU, prevPU := 0, 0.0
		prevTD, prevPD := 0, 0.0
		if prev != nil {
			prevTU, prevPU = prev.timesUp[i], prev.pseudoUp[i]
			prevTD, prevPD = prev.timesDown[i], prev.pseudoDown[i]
		}

		if d := pc.timesUp[i] - prevTU; d > 0 {
			sum := pc.pseudoUp[i]*float64(pc.timesUp[i]) - prevPU*float64(prevTU)
			tot := s.snap.TimesUp[i] + d
			s.snap.PseudoUp[i] = (s.snap.PseudoUp[i]*float64(s.snap.TimesUp[i]) + sum) / float64(tot)
			s.snap.TimesUp[i] = tot
		}
		if d := pc.timesDown[i] - prevTD; d > 0 {
			sum := pc.pseudoDown[i]*float64(pc.timesDown[i]) - prevPD*float64(prevTD)
			tot := s.snap.TimesDown[i] + d
			s.snap.PseudoDown[i] = (s.snap.PseudoDown[i]*float64(s.snap.TimesDown[i]) + sum) / float64(tot)
			s.snap.TimesDown[i] = tot
		}
	}

	cp := NewPseudoCosts(pc.NumVars())
	copy(cp.pseudoUp, pc.pseudoUp)
	copy(cp.pseudoDown, pc.pseudoDown)
	copy(cp.timesUp, pc.timesUp)
	copy(cp.timesDown, pc.timesDown)
	s.lastMerged[id] = cp
}
