package minotaur

import (
	"fmt"
	"sort"
)

// Direction selects which child of a branching is meant.
type Direction int

const (
	DownBranch Direction = iota
	UpBranch
)

func (d Direction) String() string {
	if d == DownBranch {
		return "down"
	}
	return "up"
}

// InvalidPCostIndex marks a candidate that is not backed by a single
// variable; such candidates carry their own score instead of pseudo-costs.
const InvalidPCostIndex = -1

// BrCand is a branching candidate: a point at which the current node can be
// split. Variable candidates carry a pseudo-cost index, generic candidates
// report InvalidPCostIndex and are scored by their handler.
type BrCand interface {
	// PCostIndex returns the index into the pseudo-cost arrays, or
	// InvalidPCostIndex for generic candidates.
	PCostIndex() int

	// DDist is the distance from the current value to the rounded-down
	// branch point, UDist to the rounded-up one.
	DDist() float64
	UDist() float64

	Direction() Direction
	SetDirection(d Direction)

	Score() float64
	SetScore(s float64)

	Handler() Handler
	SetHandler(h Handler)

	Name() string
}

// brCandBase carries the state shared by all candidate variants.
type brCandBase struct {
	score   float64
	dir     Direction
	handler Handler
}

func (c *brCandBase) Direction() Direction     { return c.dir }
func (c *brCandBase) SetDirection(d Direction) { c.dir = d }
func (c *brCandBase) Score() float64           { return c.score }
func (c *brCandBase) SetScore(s float64)       { c.score = s }
func (c *brCandBase) Handler() Handler         { return c.handler }
func (c *brCandBase) SetHandler(h Handler)     { c.handler = h }

// BrVarCand is a candidate backed by a single decision variable whose value
// is fractional in the current relaxation solution.
type BrVarCand struct {
	brCandBase
	index int
	dDist float64
	uDist float64
}

// NewBrVarCand creates a variable candidate at the given variable index with
// the fractional distances to its two branch points.
func NewBrVarCand(index int, dDist, uDist float64) *BrVarCand {
	return &BrVarCand{index: index, dDist: dDist, uDist: uDist}
}

func (c *BrVarCand) PCostIndex() int { return c.index }
func (c *BrVarCand) DDist() float64  { return c.dDist }
func (c *BrVarCand) UDist() float64  { return c.uDist }

func (c *BrVarCand) Name() string {
	return fmt.Sprintf("var %d", c.index)
}

// RankCand is a generic candidate produced by a handler that does not branch
// on a single variable. It is always treated as reliable and ranked by the
// score its handler assigned.
type RankCand struct {
	brCandBase
	name string
}

func NewRankCand(name string, score float64) *RankCand {
	c := &RankCand{name: name}
	c.score = score
	return c
}

func (c *RankCand) PCostIndex() int { return InvalidPCostIndex }
func (c *RankCand) DDist() float64  { return 0 }
func (c *RankCand) UDist() float64  { return 0 }
func (c *RankCand) Name() string    { return c.name }

// CompareScore orders candidates by increasing score. The head of a slice
// sorted with it is the least reliable candidate, the one to strong-branch
// first.
func CompareScore(a, b BrCand) bool {
	return a.Score() < b.Score()
}

func sortByScore(cands []BrCand) {
	sort.SliceStable(cands, func(i, j int) bool {
		return CompareScore(cands[i], cands[j])
	})
}
