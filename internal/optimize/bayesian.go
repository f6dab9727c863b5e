package optimize

import (
	"math"
	"sync"

	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
	"github.com/GoSim-25-26J-441/optengine/pkg/utils"
)

// Acquisition names a Bayesian acquisition function.
type Acquisition string

const (
	AcqEI  Acquisition = "EI"
	AcqLCB Acquisition = "LCB"
	AcqPI  Acquisition = "PI"
)

// BayesianConfig configures a BayesianOptimizer.
type BayesianConfig struct {
	Space          *paramspace.Space
	Objective      string
	Maximize       bool
	NumIterations  int
	NInitialPoints int // default 5
	Seed           int64
	Acquisition    Acquisition // default EI
}

// BayesianOptimizer runs nInitialPoints random proposals, then fits a
// Gaussian-process surrogate on every observation received so far and
// proposes the candidate maximizing the chosen acquisition function over a
// random sample of the encoded continuous relaxation of the space.
//
// Internally everything is minimized: objectives from a maximizing
// Experiment are negated before being added to the training set and negated
// back out of Best().
type BayesianOptimizer struct {
	mu             sync.Mutex
	space          *paramspace.Space
	maximize       bool
	numIterations  int
	nInitialPoints int
	acquisition    Acquisition
	rng            *utils.RandSource

	issued    int
	pending   *pending
	best      *bestTracker
	haveWorst bool
	worstY    float64 // worst observed, minimize convention

	trainX [][]float64
	trainY []float64
}

// NewBayesianOptimizer builds a BayesianOptimizer.
func NewBayesianOptimizer(cfg BayesianConfig) *BayesianOptimizer {
	nInit := cfg.NInitialPoints
	if nInit <= 0 {
		nInit = 5
	}
	acq := cfg.Acquisition
	if acq == "" {
		acq = AcqEI
	}
	return &BayesianOptimizer{
		space:          cfg.Space,
		maximize:       cfg.Maximize,
		numIterations:  cfg.NumIterations,
		nInitialPoints: nInit,
		acquisition:    acq,
		rng:            utils.NewRandSource(cfg.Seed),
		pending:        newPending(),
		best:           newBestTracker(cfg.Maximize),
	}
}

func (o *BayesianOptimizer) Propose() (paramspace.Vector, Handle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.issued >= o.numIterations {
		return nil, 0, true
	}
	o.issued++

	var vec paramspace.Vector
	if o.issued <= o.nInitialPoints || len(o.trainY) < o.nInitialPoints {
		// Phase 1, or phase 2 waiting on observations that haven't landed
		// yet (parallel workers still in flight) — fall back to a random
		// draw rather than fitting a surrogate on too little data.
		vec = o.randomVector()
	} else {
		vec = o.surrogateVector()
	}

	h, _ := o.pending.issue(vec)
	return vec.Clone(), h, false
}

func (o *BayesianOptimizer) randomVector() paramspace.Vector {
	names := o.space.Names()
	vec := make(paramspace.Vector, len(names))
	for _, name := range names {
		spec, _ := o.space.Spec(name)
		switch spec.Kind {
		case paramspace.Continuous:
			vec[name] = o.rng.UniformFloat64(spec.Min, spec.Max)
		case paramspace.Integer:
			lo, hi := int(spec.Min), int(spec.Max)
			vec[name] = lo + o.rng.Intn(hi-lo+1)
		case paramspace.Categorical:
			vec[name] = spec.Categories[o.rng.Intn(len(spec.Categories))]
		}
	}
	return vec
}

// surrogateVector fits a GP on the current training set and returns the
// encoded candidate (decoded back to a Vector) maximizing the acquisition
// function among a random sample of the continuous relaxation.
func (o *BayesianOptimizer) surrogateVector() paramspace.Vector {
	gp := fitGP(o.trainX, o.trainY)
	bestY := o.trainY[0]
	for _, y := range o.trainY {
		if y < bestY {
			bestY = y
		}
	}

	lower := o.space.BoundsLower()
	upper := o.space.BoundsUpper()

	const numCandidates = 200
	var bestCandidate []float64
	bestAcq := math.Inf(-1)
	for i := 0; i < numCandidates; i++ {
		cand := make([]float64, len(lower))
		for d := range cand {
			cand[d] = lower[d] + o.rng.Float64()*(upper[d]-lower[d])
		}
		mean, std := gp.predict(cand)
		a := acquisitionValue(o.acquisition, mean, std, bestY)
		if a > bestAcq {
			bestAcq = a
			bestCandidate = cand
		}
	}
	if bestCandidate == nil {
		return o.randomVector()
	}
	return o.space.Decode(bestCandidate)
}

func acquisitionValue(acq Acquisition, mean, std, bestY float64) float64 {
	switch acq {
	case AcqLCB:
		const kappa = 1.96
		return kappa*std - mean
	case AcqPI:
		if std <= 0 {
			if bestY-mean > 0 {
				return 1
			}
			return 0
		}
		z := (bestY - mean) / std
		return normalCDF(z)
	default: // EI
		if std <= 0 {
			return math.Max(bestY-mean, 0)
		}
		improvement := bestY - mean
		z := improvement / std
		return improvement*normalCDF(z) + std*normalPDF(z)
	}
}

func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

func normalPDF(z float64) float64 {
	return math.Exp(-0.5*z*z) / math.Sqrt(2*math.Pi)
}

func (o *BayesianOptimizer) Observe(handle Handle, objective float64, ok bool) {
	o.mu.Lock()
	vec, found := o.pending.take(handle)
	if !found {
		o.mu.Unlock()
		return
	}

	var y float64
	if ok {
		y = objective
		if o.maximize {
			y = -y
		}
		if !o.haveWorst || y > o.worstY {
			o.haveWorst = true
			o.worstY = y
		}
	} else {
		// Pessimistic sentinel: worse than anything observed so far, so the
		// surrogate learns to avoid this region instead of crashing on a
		// missing objective.
		const margin = 1.0
		sentinel := margin
		if o.haveWorst {
			sentinel = o.worstY + margin
		}
		y = sentinel
		o.haveWorst = true
		o.worstY = sentinel
	}

	o.trainX = append(o.trainX, o.space.Encode(vec))
	o.trainY = append(o.trainY, y)
	o.mu.Unlock()

	if ok {
		o.best.consider(vec, objective, int64(handle))
	}
}

func (o *BayesianOptimizer) Best() (paramspace.Vector, float64, bool) {
	return o.best.get()
}
