// Package optimize implements the ask/tell optimizer family: grid, random,
// and Bayesian, behind one uniform Optimizer contract so the Controller
// never branches on which strategy is in play.
package optimize

import (
	"math"
	"sync"

	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
)

// Handle correlates a Propose call with its later Observe call. Handles are
// opaque to callers and need not be observed in proposal order.
type Handle int64

// Optimizer is the uniform ask/tell contract every strategy satisfies.
type Optimizer interface {
	// Propose returns the next vector to evaluate and a handle for the
	// matching Observe call. done is true once the optimizer's budget is
	// exhausted; vec and handle are meaningless when done is true.
	Propose() (vec paramspace.Vector, handle Handle, done bool)

	// Observe feeds back the scalar objective for a proposed handle, or
	// records a failure when ok is false. Out-of-order and concurrent calls
	// are safe.
	Observe(handle Handle, objective float64, ok bool)

	// Best returns the best vector and objective observed so far.
	Best() (vec paramspace.Vector, objective float64, found bool)
}

// bestTracker implements the shared best-tracking rule: among ok
// observations, the best is the highest objective if maximizing else the
// lowest, ties broken by earliest proposal index (the lower step wins a tie,
// whatever order the observations arrive in).
type bestTracker struct {
	mu       sync.Mutex
	maximize bool
	have     bool
	vec      paramspace.Vector
	value    float64
	step     int64
}

func newBestTracker(maximize bool) *bestTracker {
	return &bestTracker{maximize: maximize}
}

func (b *bestTracker) consider(vec paramspace.Vector, value float64, step int64) {
	if math.IsNaN(value) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.have {
		b.have = true
		b.vec = vec.Clone()
		b.value = value
		b.step = step
		return
	}
	var better bool
	if b.maximize {
		better = value > b.value
	} else {
		better = value < b.value
	}
	if better || (value == b.value && step < b.step) {
		b.vec = vec.Clone()
		b.value = value
		b.step = step
	}
}

func (b *bestTracker) get() (paramspace.Vector, float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.have {
		return nil, 0, false
	}
	return b.vec.Clone(), b.value, true
}

// pending maps each issued handle to its proposed vector so Observe can
// recover the vector a handle refers to; shared by all three strategies.
// Best() does not read it.
type pending struct {
	mu   sync.Mutex
	next int64
	vecs map[Handle]paramspace.Vector
}

func newPending() *pending {
	return &pending{vecs: make(map[Handle]paramspace.Vector)}
}

func (p *pending) issue(vec paramspace.Vector) (Handle, int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	step := p.next
	p.next++
	h := Handle(step)
	p.vecs[h] = vec
	return h, step
}

func (p *pending) take(h Handle) (paramspace.Vector, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	vec, ok := p.vecs[h]
	if ok {
		delete(p.vecs, h)
	}
	return vec, ok
}
