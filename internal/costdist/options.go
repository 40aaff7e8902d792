package costdist

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// EdgeRule combines the traversal costs of two adjacent cells into the cost
// of stepping between them.
type EdgeRule int

const (
	// Mean charges the arithmetic mean of both cells. Symmetric.
	Mean EdgeRule = iota
	// Max charges the larger of both cells. Symmetric.
	Max
	// Destination charges the cost of the cell being entered. Asymmetric.
	Destination
)

var edgeRuleNames = map[EdgeRule]string{Mean: "mean", Max: "max", Destination: "destination"}

func (r EdgeRule) String() string {
	if s, ok := edgeRuleNames[r]; ok {
		return s
	}
	return "unknown"
}

// ParseEdgeRule parses "mean", "max" or "destination".
func ParseEdgeRule(s string) (EdgeRule, error) {
	for r, name := range edgeRuleNames {
		if strings.EqualFold(s, name) {
			return r, nil
		}
	}
	return 0, eris.Wrapf(ErrUnknownRule, "costdist: edge rule %q", s)
}

// DiagonalPolicy sets the step length of diagonal moves.
type DiagonalPolicy int

const (
	// Euclidean weights diagonal steps by √2 and orthogonal steps by 1.
	Euclidean DiagonalPolicy = iota
	// Uniform weights every step by 1.
	Uniform
)

func (p DiagonalPolicy) String() string {
	switch p {
	case Euclidean:
		return "euclidean"
	case Uniform:
		return "uniform"
	}
	return "unknown"
}

// ParseDiagonalPolicy parses "euclidean" or "uniform".
func ParseDiagonalPolicy(s string) (DiagonalPolicy, error) {
	switch strings.ToLower(s) {
	case "euclidean":
		return Euclidean, nil
	case "uniform":
		return Uniform, nil
	}
	return 0, eris.Wrapf(ErrUnknownRule, "costdist: diagonal policy %q", s)
}

// DefaultCheckEvery is how many heap pops pass between cancellation checks.
const DefaultCheckEvery = 4096

// Options tunes a solve. The zero value is the mean rule with Euclidean
// diagonals, no extra no-data sentinel and no predecessor tracking.
type Options struct {
	Rule     EdgeRule
	Diagonal DiagonalPolicy

	// NoData marks impassable cells in addition to negative, NaN and
	// infinite costs.
	NoData    float64
	HasNoData bool

	// TrackPredecessors records, for every finalized cell, the neighbour it
	// was reached from. Needed for Trace and Routes.
	TrackPredecessors bool

	// CheckEvery sets how often the context is polled and Progress is
	// called. Zero means DefaultCheckEvery.
	CheckEvery int

	// Progress, when set, receives the number of finalized cells and the
	// total cell count.
	Progress func(finalized, total int)
}

// DefaultOptions returns the mean rule with Euclidean diagonals.
func DefaultOptions() Options {
	return Options{Rule: Mean, Diagonal: Euclidean, CheckEvery: DefaultCheckEvery}
}

func (o Options) withDefaults() Options {
	if o.CheckEvery <= 0 {
		o.CheckEvery = DefaultCheckEvery
	}
	return o
}

// passable reports whether a cell with cost c may be entered.
func (o Options) passable(c float64) bool {
	if !(c >= 0) || math.IsInf(c, 1) {
		return false
	}
	return !(o.HasNoData && c == o.NoData)
}

// EdgeCost returns the cost of stepping from a cell costing from to an
// adjacent cell costing to.
func (o Options) EdgeCost(from, to float64, diagonal bool) float64 {
	var c float64
	switch o.Rule {
	case Max:
		c = math.Max(from, to)
	case Destination:
		c = to
	default:
		c = (from + to) / 2
	}
	if diagonal && o.Diagonal == Euclidean {
		c *= math.Sqrt2
	}
	return c
}
