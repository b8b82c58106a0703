package minotaur

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"
)

// BrancherStatus is the outcome of one FindBranches call.
type BrancherStatus int

const (
	// NotModifiedByBrancher: branching candidates were ranked and branches
	// are returned.
	NotModifiedByBrancher BrancherStatus = iota

	// ModifiedByBrancher: the node is kept but its relaxation must be
	// tightened with the returned modifications and re-solved.
	ModifiedByBrancher

	// PrunedByBrancher: the node is proven infeasible or dominated and must
	// be closed.
	PrunedByBrancher
)

func (s BrancherStatus) String() string {
	switch s {
	case ModifiedByBrancher:
		return "modified by brancher"
	case PrunedByBrancher:
		return "pruned by brancher"
	default:
		return "not modified by brancher"
	}
}

// BrancherOptions are the knobs of the reliability brancher.
type BrancherOptions struct {
	// MaxIterations caps the engine iterations of one strong-branch solve.
	MaxIterations int

	// MaxStrongCands bounds how many unreliable candidates are
	// strong-branched per node.
	MaxStrongCands int

	// MaxDepth: nodes deeper than this skip strong branching entirely.
	MaxDepth int

	// MinNodeDist is the minimum number of processed nodes between two
	// strong-branchings of the same variable.
	MinNodeDist int

	// Thresh is the observation count per direction at which a variable's
	// pseudo-costs become trusted.
	Thresh int

	// TrustCutoff allows pruning a strong-branch side whose objective
	// change exceeds the cutoff slack.
	TrustCutoff bool

	// ETol is the numeric tolerance.
	ETol float64
}

func DefaultBrancherOptions() BrancherOptions {
	return BrancherOptions{
		MaxIterations:  25,
		MaxStrongCands: 20,
		MaxDepth:       1000,
		MinNodeDist:    50,
		Thresh:         4,
		TrustCutoff:    true,
		ETol:           1e-6,
	}
}

// BrancherStats counts the work done by a brancher over its lifetime.
type BrancherStats struct {
	Calls      int
	EngProbs   int
	StrBrCalls int
	BndChange  int
	Iters      int
	StrTime    time.Duration
}

// Write prints the counters in the solver's stats format.
func (st *BrancherStats) Write(out io.Writer) {
	prefix := "reliability brancher: "
	fmt.Fprintf(out, "%stimes called                = %d\n", prefix, st.Calls)
	fmt.Fprintf(out, "%sno. of problems in engine   = %d\n", prefix, st.EngProbs)
	fmt.Fprintf(out, "%stimes relaxation solved     = %d\n", prefix, st.StrBrCalls)
	fmt.Fprintf(out, "%stimes bounds changed        = %d\n", prefix, st.BndChange)
	fmt.Fprintf(out, "%sstrong branching iterations = %d\n", prefix, st.Iters)
	fmt.Fprintf(out, "%stime in solving relaxations = %s\n", prefix, ToClockTime(st.StrTime.Seconds()))
}

// Weights of the unreliability sort score: observation count dominates,
// pseudo-cost magnitude and fractionality only break ties.
const (
	unrelScoreWt = 1e-5
	unrelInfWt   = 1e-6
)

// ReliabilityBrancher picks the branching candidate at each node. Variables
// with enough pseudo-cost history are ranked directly; the rest are probed
// with strong branching, which doubles as a source of pruning and bound
// tightening.
//
// One brancher instance belongs to one worker. The pseudo-cost ledger it
// owns is local; globally merged snapshots arrive by value with every call.
type ReliabilityBrancher struct {
	opts     BrancherOptions
	handlers []Handler
	engine   Engine
	logger   *slog.Logger

	rel *Relaxation
	pc  *PseudoCosts
	x   []float64

	status BrancherStatus
	mods   []Modification

	relCands   []BrCand
	unrelCands []BrCand

	init  bool
	stats *BrancherStats
}

// NewReliabilityBrancher creates a brancher over an ordered handler set.
// Handler order is part of the contract: it decides candidate collection
// order and therefore tie-breaks.
func NewReliabilityBrancher(opts BrancherOptions, handlers []Handler, logger *slog.Logger) *ReliabilityBrancher {
	if logger == nil {
		logger = slog.Default()
	}
	hs := make([]Handler, len(handlers))
	copy(hs, handlers)
	return &ReliabilityBrancher{
		opts:     opts,
		handlers: hs,
		logger:   logger,
		stats:    &BrancherStats{},
	}
}

func (rb *ReliabilityBrancher) Name() string { return "ReliabilityBrancher" }

// SetEngine hands the brancher the engine it may use for strong branching.
// The engine must already be loaded with the worker's relaxation.
func (rb *ReliabilityBrancher) SetEngine(e Engine) { rb.engine = e }

func (rb *ReliabilityBrancher) Stats() *BrancherStats { return rb.stats }

// PseudoCosts exposes the worker-local ledger so the driver can merge it
// into the shared snapshot between calls.
func (rb *ReliabilityBrancher) PseudoCosts() *PseudoCosts { return rb.pc }

// FindBranches decides what to do with the current node. Exactly one of the
// following holds on return: branches are non-empty and the status is
// NotModifiedByBrancher; mods are non-empty and the status is
// ModifiedByBrancher; the status is PrunedByBrancher and both are empty.
//
// snap is the globally merged pseudo-cost snapshot, passed by value; the
// brancher folds its local ledger into it before classification.
// nodesProc is the logical clock used to space strong-branchings.
func (rb *ReliabilityBrancher) FindBranches(rel *Relaxation, node *Node, sol *Solution,
	pool *SolutionPool, snap Snapshot, nodesProc int) (branches []*Branch, status BrancherStatus, mods []Modification) {

	rb.stats.Calls++
	if !rb.init {
		rb.init = true
		rb.pc = NewPseudoCosts(rel.NumVars())
	}
	rb.rel = rel
	rb.status = NotModifiedByBrancher
	rb.mods = rb.mods[:0]

	// copy the primal point: strong branching overwrites the engine
	// solution it was taken from.
	rb.x = append(rb.x[:0], sol.Primal()...)

	rb.findCandidates(snap, nodesProc)
	if rb.status == PrunedByBrancher {
		rb.freeCandidates()
		return nil, PrunedByBrancher, nil
	}

	var best BrCand
	if rb.status == NotModifiedByBrancher {
		best = rb.findBestCandidate(sol.ObjValue(), pool.BestSolutionValue(), node, snap, nodesProc)
	}

	if rb.status == NotModifiedByBrancher && best == nil {
		// no handler produced a candidate and none reported infeasibility;
		// the caller decides how to fathom the node.
		rb.freeCandidates()
		return nil, NotModifiedByBrancher, nil
	}

	if rb.status == NotModifiedByBrancher {
		branches = best.Handler().Branches(best, rb.x, rb.rel, pool)
		if len(branches) == 0 {
			panic("handler returned no branches for the chosen candidate")
		}
		for _, br := range branches {
			br.SetBrCand(best)
		}
		rb.logger.Debug("best candidate", "name", best.Name(), "direction", best.Direction())
	} else {
		mods = append(mods, rb.mods...)
		rb.logger.Debug("found modifications", "count", len(mods), "status", rb.status)
	}

	rb.freeCandidates()
	return branches, rb.status, mods
}

// findCandidates collects candidates from every handler and splits the
// variable candidates into the reliable and unreliable pools.
func (rb *ReliabilityBrancher) findCandidates(snap Snapshot, nodesProc int) {
	var varCands []*BrVarCand
	var genCands []BrCand

	for _, h := range rb.handlers {
		hmods, vcs, gcs, isInf := h.BranchingCandidates(rb.rel, rb.x)
		for _, c := range vcs {
			c.SetHandler(h)
		}
		for _, c := range gcs {
			c.SetHandler(h)
		}
		varCands = append(varCands, vcs...)
		genCands = append(genCands, gcs...)
		rb.mods = append(rb.mods, hmods...)
		if isInf || len(rb.mods) > 0 {
			if isInf {
				rb.status = PrunedByBrancher
			} else {
				rb.status = ModifiedByBrancher
			}
			return
		}
	}

	// merge the local ledger into the snapshot working copy, then check
	// each variable candidate for reliable pseudo costs.
	for _, c := range varCands {
		idx := c.PCostIndex()
		snap.mergeVar(idx, rb.pc)
		recent := math.Abs(float64(nodesProc-rb.pc.lastStrBranched[idx])) < float64(rb.opts.MinNodeDist)
		trusted := snap.TimesUp[idx] >= rb.opts.Thresh && snap.TimesDown[idx] >= rb.opts.Thresh
		if recent || trusted {
			rb.relCands = append(rb.relCands, c)
		} else {
			score := float64(snap.TimesUp[idx]+snap.TimesDown[idx]) -
				unrelScoreWt*(snap.PseudoUp[idx]+snap.PseudoDown[idx]) -
				unrelInfWt*math.Max(c.DDist(), c.UDist())
			c.SetScore(score)
			rb.unrelCands = append(rb.unrelCands, c)
		}
	}

	// candidates that are not variables are always taken as reliable.
	rb.relCands = append(rb.relCands, genCands...)

	// least observed first.
	sortByScore(rb.unrelCands)

	rb.logger.Debug("candidates classified",
		"reliable", len(rb.relCands), "unreliable", len(rb.unrelCands))
}

// findBestCandidate ranks the reliable pool by pseudo-cost score, then
// strong-branches the unreliable pool, keeping the best scorer seen. It may
// flip the call status to pruned or modified when strong branching proves a
// side infeasible.
func (rb *ReliabilityBrancher) findBestCandidate(objval, cutoff float64, node *Node,
	snap Snapshot, nodesProc int) BrCand {

	bestScore := math.Inf(-1)
	var best BrCand

	consider := func(c BrCand, score, changeUp, changeDown float64) {
		if score > bestScore {
			bestScore = score
			best = c
			if changeUp > changeDown {
				c.SetDirection(DownBranch)
			} else {
				c.SetDirection(UpBranch)
			}
		}
	}

	// first evaluate candidates that have reliable pseudo costs.
	for _, c := range rb.relCands {
		changeDown, changeUp, score := rb.pcScore(c, snap)
		consider(c, score, changeUp, changeDown)
	}

	maxChange := cutoff - objval

	// now do strong branching on unreliable candidates.
	if len(rb.unrelCands) > 0 {
		rb.engine.EnableStrBrSetup()
		rb.engine.SetIterationLimit(rb.opts.MaxIterations)
		maxCnt := rb.opts.MaxStrongCands
		if node.Depth() > rb.opts.MaxDepth {
			maxCnt = 0
		}

		pos := 0
		for ; pos < len(rb.unrelCands) && pos < maxCnt; pos++ {
			c := rb.unrelCands[pos]
			objUp, objDown, statusUp, statusDown := rb.strongBranch(c)
			changeUp := math.Max(objUp-objval, 0)
			changeDown := math.Max(objDown-objval, 0)
			changeUp, changeDown = rb.useStrongBranchInfo(c, maxChange, changeUp, changeDown, statusUp, statusDown)
			score := branchingScore(changeUp, changeDown)
			rb.pc.lastStrBranched[c.PCostIndex()] = nodesProc + 1
			rb.logger.Debug("strong branched", "name", c.Name(),
				"down", changeDown, "up", changeUp, "score", score)
			if rb.status != NotModifiedByBrancher {
				break
			}
			consider(c, score, changeUp, changeDown)
		}
		rb.engine.ResetIterationLimit()
		rb.engine.DisableStrBrSetup()

		if rb.status == NotModifiedByBrancher {
			// score the unreliable candidates the loop never reached.
			for ; pos < len(rb.unrelCands); pos++ {
				c := rb.unrelCands[pos]
				changeDown, changeUp, score := rb.pcScore(c, snap)
				consider(c, score, changeUp, changeDown)
			}
		}
	}
	return best
}

// pcScore predicts the objective change of both branches of a candidate
// from pseudo-costs. Generic candidates report their own score.
func (rb *ReliabilityBrancher) pcScore(c BrCand, snap Snapshot) (changeDown, changeUp, score float64) {
	idx := c.PCostIndex()
	if idx > InvalidPCostIndex {
		changeDown = c.DDist() * snap.PseudoDown[idx]
		changeUp = c.UDist() * snap.PseudoUp[idx]
		return changeDown, changeUp, branchingScore(changeUp, changeDown)
	}
	return 0, 0, c.Score()
}

// branchingScore blends the two predicted child bounds, weighting the worse
// side at 0.8.
func branchingScore(upScore, downScore float64) float64 {
	if upScore > downScore {
		return downScore*0.8 + upScore*0.2
	}
	return upScore*0.8 + downScore*0.2
}

// strongBranch probes both children of a candidate: apply the bound change,
// solve, undo, in each direction.
func (rb *ReliabilityBrancher) strongBranch(c BrCand) (objUp, objDown float64, statusUp, statusDown EngineStatus) {
	h := c.Handler()

	// first go down.
	mod := h.BranchMod(c, rb.x, rb.rel, DownBranch)
	mod.Apply(rb.rel)
	statusDown = rb.solveTimed()
	objDown = rb.engine.SolutionValue()
	mod.Undo(rb.rel)

	// now go up.
	mod = h.BranchMod(c, rb.x, rb.rel, UpBranch)
	mod.Apply(rb.rel)
	statusUp = rb.solveTimed()
	objUp = rb.engine.SolutionValue()
	mod.Undo(rb.rel)

	return objUp, objDown, statusUp, statusDown
}

func (rb *ReliabilityBrancher) solveTimed() EngineStatus {
	start := time.Now()
	status := rb.engine.Solve()
	rb.stats.StrTime += time.Since(start)
	rb.stats.StrBrCalls++
	rb.stats.Iters += rb.engine.IterationCount()
	return status
}

// shouldPrune interprets one strong-branch solve. isRel is cleared when the
// engine outcome cannot be trusted as a pseudo-cost observation.
func (rb *ReliabilityBrancher) shouldPrune(chCutoff, change float64, status EngineStatus, isRel *bool) bool {
	switch status {
	case ProvenLocalInfeasible, ProvenInfeasible, ProvenObjectiveCutOff:
		return true
	case ProvenLocalOptimal, ProvenOptimal:
		if rb.opts.TrustCutoff && change > chCutoff-rb.opts.ETol {
			return true
		}
	case EngineIterationLimit:
		// no conclusion, but the partial bound is still usable.
	case ProvenFailedCQFeas, ProvenFailedCQInfeas:
		rb.logger.Info("failed CQ, continuing", "status", status)
		*isRel = false
		rb.stats.EngProbs++
	default:
		rb.logger.Error("unexpected engine status", "status", status)
		*isRel = false
		rb.stats.EngProbs++
	}
	return false
}

// useStrongBranchInfo turns a pair of strong-branch outcomes into pruning,
// a one-sided bound change, or a pair of pseudo-cost observations.
func (rb *ReliabilityBrancher) useStrongBranchInfo(c BrCand, chCutoff, changeUp, changeDown float64,
	statusUp, statusDown EngineStatus) (float64, float64) {

	idx := c.PCostIndex()
	isRel := true

	pruneDown := rb.shouldPrune(chCutoff, changeDown, statusDown, &isRel)
	pruneUp := rb.shouldPrune(chCutoff, changeUp, statusUp, &isRel)

	switch {
	case !isRel:
		changeUp, changeDown = 0, 0
	case pruneUp && pruneDown:
		rb.status = PrunedByBrancher
		rb.stats.BndChange += 2
	case pruneUp:
		rb.status = ModifiedByBrancher
		rb.mods = append(rb.mods, c.Handler().BranchMod(c, rb.x, rb.rel, DownBranch))
		rb.stats.BndChange++
	case pruneDown:
		rb.status = ModifiedByBrancher
		rb.mods = append(rb.mods, c.Handler().BranchMod(c, rb.x, rb.rel, UpBranch))
		rb.stats.BndChange++
	default:
		rb.pc.updateDown(idx, math.Abs(changeDown)/(math.Abs(c.DDist())+rb.opts.ETol))
		rb.pc.updateUp(idx, math.Abs(changeUp)/(math.Abs(c.UDist())+rb.opts.ETol))
	}
	return changeUp, changeDown
}

// UpdateAfterSolve ingests the bound obtained for a child node as a
// pseudo-cost observation on the variable it was branched from. The root
// node yields no observation.
func (rb *ReliabilityBrancher) UpdateAfterSolve(node *Node, sol *Solution) {
	parent := node.Parent()
	if parent == nil || node.Branch() == nil {
		return
	}
	if !rb.init {
		// a worker can be handed a shared child before its first
		// FindBranches call.
		rb.init = true
		rb.pc = NewPseudoCosts(len(sol.Primal()))
	}
	c := node.Branch().BrCand()
	idx := c.PCostIndex()
	if idx <= InvalidPCostIndex {
		return
	}
	oldVal := node.Branch().Activity()
	newVal := sol.Primal()[idx]
	cost := (node.Lb() - parent.Lb()) / (math.Abs(newVal-oldVal) + rb.opts.ETol)
	if newVal < oldVal {
		rb.pc.updateDown(idx, cost)
	} else {
		rb.pc.updateUp(idx, cost)
	}
}

// WriteStats prints the brancher counters.
func (rb *ReliabilityBrancher) WriteStats(out io.Writer) {
	rb.stats.Write(out)
}

// freeCandidates drops the per-call candidate pools. The winning candidate
// survives through the references held by the emitted branches.
func (rb *ReliabilityBrancher) freeCandidates() {
	for i := range rb.relCands {
		rb.relCands[i] = nil
	}
	for i := range rb.unrelCands {
		rb.unrelCands[i] = nil
	}
	rb.relCands = rb.relCands[:0]
	rb.unrelCands = rb.unrelCands[:0]
}
