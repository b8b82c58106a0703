package minotaur

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Model is the user-facing problem description: a linear objective over
// bounded variables, equality and inequality constraints, and per-variable
// integrality marks. It is compiled into the root Relaxation once before the
// search starts.
type Model struct {
	variables    []*Variable
	equalities   []constraint
	inequalities []constraint
}

// Variable is one decision variable of the model.
type Variable struct {
	// coefficient of the variable in the objective function.
	Coefficient float64

	// integrality constraint.
	Integer bool

	// bounds; variables are nonnegative, so Lower must be >= 0.
	Lower float64
	Upper float64

	index int
}

// Expression is a coefficient-variable pair; summed expressions form the
// left-hand side of a constraint.
type Expression struct {
	Coef     float64
	Variable *Variable
}

type constraint struct {
	expressions []Expression
	rhs         float64
}

func NewModel() *Model {
	return &Model{}
}

// AddVariable declares a variable with the given objective coefficient and
// bounds and returns a reference to it for use in constraint expressions.
func (m *Model) AddVariable(coef float64, integer bool, lower, upper float64) *Variable {
	if lower < 0 {
		panic("variables are nonnegative: lower bound must be >= 0")
	}
	v := &Variable{
		Coefficient: coef,
		Integer:     integer,
		Lower:       lower,
		Upper:       upper,
		index:       len(m.variables),
	}
	m.variables = append(m.variables, v)
	return v
}

// AddEquality adds the constraint sum(expr) = equalTo.
func (m *Model) AddEquality(expr []Expression, equalTo float64) {
	m.checkExpressions(expr)
	m.equalities = append(m.equalities, constraint{expressions: expr, rhs: equalTo})
}

// AddInequality adds the constraint sum(expr) <= smallerThan.
func (m *Model) AddInequality(expr []Expression, smallerThan float64) {
	m.checkExpressions(expr)
	m.inequalities = append(m.inequalities, constraint{expressions: expr, rhs: smallerThan})
}

func (m *Model) checkExpressions(expr []Expression) {
	if len(expr) == 0 {
		panic("must add expressions")
	}
	for _, e := range expr {
		if e.Variable == nil || e.Variable.index >= len(m.variables) ||
			m.variables[e.Variable.index] != e.Variable {
			panic("expression contains a variable not declared on this model")
		}
	}
}

func (m *Model) NumVars() int { return len(m.variables) }

// matrices assembles the dense objective and constraint data.
func (m *Model) matrices() (c []float64, A *mat.Dense, b []float64, G *mat.Dense, h []float64) {
	n := len(m.variables)
	c = make([]float64, n)
	for i, v := range m.variables {
		c[i] = v.Coefficient
	}

	if len(m.equalities) > 0 {
		A = mat.NewDense(len(m.equalities), n, nil)
		b = make([]float64, len(m.equalities))
		for r, eq := range m.equalities {
			for _, e := range eq.expressions {
				A.Set(r, e.Variable.index, e.Coef)
			}
			b[r] = eq.rhs
		}
	}

	if len(m.inequalities) > 0 {
		G = mat.NewDense(len(m.inequalities), n, nil)
		h = make([]float64, len(m.inequalities))
		for r, iq := range m.inequalities {
			for _, e := range iq.expressions {
				G.Set(r, e.Variable.index, e.Coef)
			}
			h[r] = iq.rhs
		}
	}
	return c, A, b, G, h
}

// ToRelaxation compiles the model into the root relaxation, running the
// presolve steps and returning the postsolve mapper that restores solution
// points to model shape.
func (m *Model) ToRelaxation() (*Relaxation, *PostSolver) {
	prepper := newPresolver()
	rel := prepper.presolve(m)
	return rel, prepper.postSolver()
}

func (m *Model) bounds() (lower, upper []float64) {
	lower = make([]float64, len(m.variables))
	upper = make([]float64, len(m.variables))
	for i, v := range m.variables {
		lower[i] = v.Lower
		upper[i] = v.Upper
	}
	return lower, upper
}

func (m *Model) integrality() []bool {
	ints := make([]bool, len(m.variables))
	for i, v := range m.variables {
		ints[i] = v.Integer
	}
	return ints
}

// Inf is a convenience for unbounded-above variables.
func Inf() float64 { return math.Inf(1) }
