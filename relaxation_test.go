package minotaur

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// newBoxRelaxation builds a single-constraint relaxation over n variables
// with bounds [0,10], for tests that only exercise the bound machinery.
func newBoxRelaxation(n int, integer []bool) *Relaxation {
	c := make([]float64, n)
	row := make([]float64, n)
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := 0; i < n; i++ {
		c[i] = -1
		row[i] = 1
		upper[i] = 10
	}
	if integer == nil {
		integer = make([]bool, n)
	}
	A := mat.NewDense(1, n, row)
	return NewRelaxation(c, A, []float64{5}, lower, upper, integer)
}

func TestNewRelaxationChecksDimensions(t *testing.T) {
	assert.Panics(t, func() {
		NewRelaxation([]float64{1, 2}, nil, []float64{1}, nil, nil, nil)
	})
	assert.Panics(t, func() {
		NewRelaxation([]float64{1, 2}, mat.NewDense(1, 3, nil), []float64{1}, nil, nil, nil)
	})
	assert.Panics(t, func() {
		NewRelaxation([]float64{1, 2}, mat.NewDense(2, 2, nil), []float64{1}, nil, nil, nil)
	})
}

func TestRelaxationCloneIsolatesBounds(t *testing.T) {
	rel := newBoxRelaxation(2, []bool{true, false})
	clone := rel.Clone()

	clone.SetVarLb(0, 3)
	clone.SetVarUb(1, 4)

	assert.Equal(t, 0.0, rel.VarLb(0))
	assert.Equal(t, 10.0, rel.VarUb(1))
	assert.Equal(t, 3.0, clone.VarLb(0))
	assert.Equal(t, 4.0, clone.VarUb(1))

	// integrality marks are shared, not copied.
	assert.True(t, clone.IsInteger(0))
	assert.False(t, clone.IsInteger(1))
}

func TestBoundConstraints(t *testing.T) {
	rel := newBoxRelaxation(2, nil)
	rel.SetVarLb(1, 2)
	rel.SetVarUb(0, math.Inf(1))

	G, h := rel.boundConstraints()
	require.NotNil(t, G)

	// one row for the finite upper bound of var 1, one for its positive
	// lower bound.
	r, cols := G.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, cols)
	assert.Equal(t, []float64{10, -2}, h)
	assert.Equal(t, 1.0, G.At(0, 1))
	assert.Equal(t, -1.0, G.At(1, 1))
	assert.Equal(t, 0.0, G.At(0, 0))
}

func TestBoundConstraintsEmptyWhenBoundsAreFree(t *testing.T) {
	rel := newBoxRelaxation(2, nil)
	rel.SetVarUb(0, math.Inf(1))
	rel.SetVarUb(1, math.Inf(1))

	G, h := rel.boundConstraints()
	assert.Nil(t, G)
	assert.Nil(t, h)
}

func TestConvertToEqualities(t *testing.T) {
	c := []float64{1, 2}
	A := mat.NewDense(1, 2, []float64{1, 1})
	b := []float64{3}
	G := mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1,
	})
	h := []float64{5, 6}

	cNew, aNew, bNew := convertToEqualities(c, A, b, G, h)

	assert.Equal(t, []float64{1, 2, 0, 0}, cNew)
	assert.Equal(t, []float64{3, 5, 6}, bNew)

	r, cols := aNew.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 4, cols)

	want := mat.NewDense(3, 4, []float64{
		1, 1, 0, 0,
		1, 0, 1, 0,
		0, 1, 0, 1,
	})
	assert.True(t, mat.Equal(want, aNew))
}

func TestConvertToEqualitiesWithoutEqualityBlock(t *testing.T) {
	c := []float64{1}
	G := mat.NewDense(1, 1, []float64{2})
	h := []float64{4}

	cNew, aNew, bNew := convertToEqualities(c, nil, nil, G, h)

	assert.Equal(t, []float64{1, 0}, cNew)
	assert.Equal(t, []float64{4}, bNew)
	assert.True(t, mat.Equal(mat.NewDense(1, 2, []float64{2, 1}), aNew))
}

func TestConvertToEqualitiesPanicsOnNilG(t *testing.T) {
	assert.Panics(t, func() {
		convertToEqualities([]float64{1}, nil, nil, nil, nil)
	})
}
