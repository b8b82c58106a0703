package minotaur

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// EngineStatus reports the outcome of one relaxation solve.
type EngineStatus int

const (
	EngineUnknownStatus EngineStatus = iota
	ProvenOptimal
	ProvenLocalOptimal
	ProvenInfeasible
	ProvenLocalInfeasible
	ProvenUnbounded
	ProvenObjectiveCutOff
	ProvenFailedCQFeas
	ProvenFailedCQInfeas
	EngineIterationLimit
	EngineError
)

func (s EngineStatus) String() string {
	switch s {
	case ProvenOptimal:
		return "optimal"
	case ProvenLocalOptimal:
		return "local optimal"
	case ProvenInfeasible:
		return "infeasible"
	case ProvenLocalInfeasible:
		return "local infeasible"
	case ProvenUnbounded:
		return "unbounded"
	case ProvenObjectiveCutOff:
		return "objective cut off"
	case ProvenFailedCQFeas:
		return "failed CQ (feasible)"
	case ProvenFailedCQInfeas:
		return "failed CQ (infeasible)"
	case EngineIterationLimit:
		return "iteration limit"
	case EngineError:
		return "engine error"
	default:
		return "unknown"
	}
}

// Engine solves the relaxation it is loaded with. One engine instance is
// owned by one worker; the brancher drives it during strong branching
// through the setup and iteration-limit hooks.
type Engine interface {
	// Load points the engine at a relaxation. Subsequent Solve calls read
	// the relaxation's current bounds.
	Load(rel *Relaxation)

	Solve() EngineStatus

	// SolutionValue returns the objective value of the last solve.
	SolutionValue() float64

	// Solution returns the primal point of the last solve. The slice is
	// owned by the engine and overwritten on the next solve.
	Solution() []float64

	// EnableStrBrSetup and DisableStrBrSetup bracket a strong-branching
	// episode, letting the engine keep warm-start state cheap to restore.
	EnableStrBrSetup()
	DisableStrBrSetup()

	SetIterationLimit(limit int)
	ResetIterationLimit()

	// IterationCount reports the simplex iterations of the last solve, for
	// statistics.
	IterationCount() int
}

// SimplexEngine solves the bounded LP relaxation with gonum's simplex
// method. The variable bounds are folded into inequality rows before every
// solve, so bound modifications between solves need no reload.
type SimplexEngine struct {
	rel *Relaxation

	obj   float64
	x     []float64
	iters int

	iterLimit int
	strBr     bool

	// last error returned by the LP solver, wrapped with context.
	lastErr error
}

func NewSimplexEngine() *SimplexEngine {
	return &SimplexEngine{}
}

func (e *SimplexEngine) Load(rel *Relaxation) {
	e.rel = rel
}

func (e *SimplexEngine) Solve() EngineStatus {
	r := e.rel
	e.lastErr = nil
	e.iters = 0

	// conflicting bounds prove infeasibility without a solve.
	for i := 0; i < r.NumVars(); i++ {
		if r.VarLb(i) > r.VarUb(i) {
			e.obj = math.Inf(1)
			return ProvenInfeasible
		}
	}

	c, A, b := r.c, r.A, r.b
	if G, h := r.boundConstraints(); G != nil {
		c, A, b = convertToEqualities(r.c, r.A, r.b, G, h)
	}

	z, x, err := lp.Simplex(c, A, b, 0, nil)
	if err != nil {
		e.obj = math.Inf(1)
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return ProvenInfeasible
		case errors.Is(err, lp.ErrUnbounded):
			e.obj = math.Inf(-1)
			return ProvenUnbounded
		case errors.Is(err, lp.ErrSingular):
			e.lastErr = errors.Wrap(err, "simplex: singular basis")
			return EngineError
		default:
			e.lastErr = errors.Wrap(err, "simplex")
			return EngineUnknownStatus
		}
	}

	// drop the slack variables added for the bound rows.
	if len(x) > r.NumVars() {
		x = x[:r.NumVars()]
	}
	e.obj = z
	e.x = x
	return ProvenOptimal
}

func (e *SimplexEngine) SolutionValue() float64 { return e.obj }

func (e *SimplexEngine) Solution() []float64 { return e.x }

func (e *SimplexEngine) EnableStrBrSetup()  { e.strBr = true }
func (e *SimplexEngine) DisableStrBrSetup() { e.strBr = false }

// The gonum simplex runs to completion; the limit is recorded so that the
// brancher's handshake is honored, but it cannot interrupt a solve.
func (e *SimplexEngine) SetIterationLimit(limit int) { e.iterLimit = limit }
func (e *SimplexEngine) ResetIterationLimit()        { e.iterLimit = 0 }

// gonum's simplex does not report its iteration count, so this is always
// zero.
func (e *SimplexEngine) IterationCount() int { return e.iters }

// LastError returns the wrapped solver error of the most recent failed
// solve, or nil.
func (e *SimplexEngine) LastError() error { return e.lastErr }
