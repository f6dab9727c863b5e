package optimize

import (
	"sync"

	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
)

// GridConfig configures a GridOptimizer.
type GridConfig struct {
	Space     *paramspace.Space
	Objective string
	Maximize  bool
	NumPoints int // per continuous/integer dimension; default 5
}

// GridOptimizer exhaustively enumerates the Cartesian product of a
// discretized parameter space in lexicographic dimension order. Observations
// are ignored except for best-tracking; once the grid is exhausted, Propose
// keeps returning done.
type GridOptimizer struct {
	mu      sync.Mutex
	grid    []paramspace.Vector
	index   int
	pending *pending
	best    *bestTracker
}

// NewGridOptimizer builds the full grid eagerly.
func NewGridOptimizer(cfg GridConfig) *GridOptimizer {
	numPoints := cfg.NumPoints
	if numPoints <= 0 {
		numPoints = 5
	}
	return &GridOptimizer{
		grid:    buildGrid(cfg.Space, numPoints),
		pending: newPending(),
		best:    newBestTracker(cfg.Maximize),
	}
}

func (g *GridOptimizer) Propose() (paramspace.Vector, Handle, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.index >= len(g.grid) {
		return nil, 0, true
	}
	vec := g.grid[g.index]
	g.index++
	h, _ := g.pending.issue(vec)
	return vec.Clone(), h, false
}

func (g *GridOptimizer) Observe(handle Handle, objective float64, ok bool) {
	vec, found := g.pending.take(handle)
	if !found || !ok {
		return
	}
	g.best.consider(vec, objective, int64(handle))
}

func (g *GridOptimizer) Best() (paramspace.Vector, float64, bool) {
	return g.best.get()
}

// buildGrid discretizes every dimension per §4.4's rule and returns the
// Cartesian product in the space's canonical (lexicographic) name order,
// with the last name varying fastest.
func buildGrid(space *paramspace.Space, numPoints int) []paramspace.Vector {
	names := space.Names()

	values := make([][]any, len(names))
	for i, name := range names {
		spec, _ := space.Spec(name)
		values[i] = discretize(spec, numPoints)
	}

	combos := [][]any{{}}
	for _, seq := range values {
		next := make([][]any, 0, len(combos)*len(seq))
		for _, partial := range combos {
			for _, v := range seq {
				row := make([]any, len(partial)+1)
				copy(row, partial)
				row[len(partial)] = v
				next = append(next, row)
			}
		}
		combos = next
	}

	grid := make([]paramspace.Vector, len(combos))
	for i, combo := range combos {
		vec := make(paramspace.Vector, len(names))
		for j, name := range names {
			vec[name] = combo[j]
		}
		grid[i] = vec
	}
	return grid
}

func discretize(spec paramspace.Spec, numPoints int) []any {
	switch spec.Kind {
	case paramspace.Continuous:
		return linspaceAny(spec.Min, spec.Max, numPoints)
	case paramspace.Integer:
		lo, hi := int(spec.Min), int(spec.Max)
		intervalLen := hi - lo + 1
		if intervalLen <= numPoints {
			out := make([]any, 0, intervalLen)
			for v := lo; v <= hi; v++ {
				out = append(out, v)
			}
			return out
		}
		points := linspace(spec.Min, spec.Max, numPoints)
		seen := make(map[int]bool, numPoints)
		out := make([]any, 0, numPoints)
		for _, p := range points {
			v := int(p + 0.5)
			if v > hi {
				v = hi
			}
			if v < lo {
				v = lo
			}
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
		return out
	case paramspace.Categorical:
		out := make([]any, len(spec.Categories))
		copy(out, spec.Categories)
		return out
	default:
		return nil
	}
}

// linspace returns n evenly spaced values over [min, max] inclusive. n==1
// returns [min].
func linspace(min, max float64, n int) []float64 {
	if n <= 1 {
		return []float64{min}
	}
	out := make([]float64, n)
	step := (max - min) / float64(n-1)
	for i := 0; i < n; i++ {
		out[i] = min + step*float64(i)
	}
	out[n-1] = max
	return out
}

func linspaceAny(min, max float64, n int) []any {
	points := linspace(min, max, n)
	out := make([]any, len(points))
	for i, p := range points {
		out[i] = p
	}
	return out
}
