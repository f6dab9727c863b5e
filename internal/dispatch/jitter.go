package dispatch

import (
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
	"github.com/GoSim-25-26J-441/optengine/pkg/utils"
)

// Jitter produces a perturbed vector with up to ±1% multiplicative noise on
// numeric values, seeded deterministically by attempt — a pure function of
// (vec, attempt), not of wall-clock time. Categorical values are left
// untouched. Used by the Controller's retry policy.
func Jitter(vec paramspace.Vector, attempt int) paramspace.Vector {
	names := make([]string, 0, len(vec))
	for name := range vec {
		names = append(names, name)
	}
	sort.Strings(names)

	// utils.NewRandSource seeds from the clock when given 0, so attempt 0
	// gets a fixed non-zero seed instead.
	seed := int64(attempt)
	if seed == 0 {
		seed = math.MinInt64
	}
	rng := utils.NewRandSource(seed)
	out := vec.Clone()
	for _, name := range names {
		switch v := vec[name].(type) {
		case float64:
			out[name] = v * (1 + rng.UniformFloat64(-0.01, 0.01))
		case int:
			noisy := float64(v) * (1 + rng.UniformFloat64(-0.01, 0.01))
			out[name] = int(math.Round(noisy))
		}
	}
	return out
}
