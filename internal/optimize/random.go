package optimize

import (
	"sync"

	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
	"github.com/GoSim-25-26J-441/optengine/pkg/utils"
)

// RandomConfig configures a RandomOptimizer.
type RandomConfig struct {
	Space         *paramspace.Space
	Objective     string
	Maximize      bool
	NumIterations int
	Seed          int64
}

// RandomOptimizer samples each dimension independently and uniformly on
// every Propose, using one seeded PRNG shared across the whole run — the
// result is deterministic given seed and Propose call order, including
// under concurrent callers since access is serialized by mu.
type RandomOptimizer struct {
	mu            sync.Mutex
	space         *paramspace.Space
	numIterations int
	issued        int
	rng           *utils.RandSource
	pending       *pending
	best          *bestTracker
}

// NewRandomOptimizer builds a RandomOptimizer. A zero seed draws entropy
// from the clock via utils.NewRandSource's convention.
func NewRandomOptimizer(cfg RandomConfig) *RandomOptimizer {
	return &RandomOptimizer{
		space:         cfg.Space,
		numIterations: cfg.NumIterations,
		rng:           utils.NewRandSource(cfg.Seed),
		pending:       newPending(),
		best:          newBestTracker(cfg.Maximize),
	}
}

func (r *RandomOptimizer) Propose() (paramspace.Vector, Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.issued >= r.numIterations {
		return nil, 0, true
	}
	r.issued++

	vec := make(paramspace.Vector, len(r.space.Names()))
	for _, name := range r.space.Names() {
		spec, _ := r.space.Spec(name)
		vec[name] = r.sampleDimension(spec)
	}

	h, _ := r.pending.issue(vec)
	return vec.Clone(), h, false
}

func (r *RandomOptimizer) sampleDimension(spec paramspace.Spec) any {
	switch spec.Kind {
	case paramspace.Continuous:
		return r.rng.UniformFloat64(spec.Min, spec.Max)
	case paramspace.Integer:
		lo, hi := int(spec.Min), int(spec.Max)
		return lo + r.rng.Intn(hi-lo+1)
	case paramspace.Categorical:
		idx := r.rng.Intn(len(spec.Categories))
		return spec.Categories[idx]
	default:
		return nil
	}
}

func (r *RandomOptimizer) Observe(handle Handle, objective float64, ok bool) {
	vec, found := r.pending.take(handle)
	if !found || !ok {
		return
	}
	r.best.consider(vec, objective, int64(handle))
}

func (r *RandomOptimizer) Best() (paramspace.Vector, float64, bool) {
	return r.best.get()
}
