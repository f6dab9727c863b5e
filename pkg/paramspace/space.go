// Package paramspace defines the typed search space an Optimizer explores:
// named parameter specs, the vectors of concrete values drawn from them, and
// the dense encode/decode round trip optimizers operate on internally.
package paramspace

import (
	"fmt"
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/optengine/pkg/utils"
)

// Kind distinguishes the three admissible parameter shapes.
type Kind int

const (
	Continuous Kind = iota
	Integer
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Spec describes one named variable in the search space.
//
// For Continuous and Integer specs, Min and Max bound a closed interval with
// Min < Max. For Categorical specs, Categories is a non-empty ordered list of
// comparable values (string, float64, or bool); equality is value equality.
type Spec struct {
	Name        string
	Kind        Kind
	Min         float64
	Max         float64
	Categories  []any
	Description string
}

// ContinuousSpec builds a continuous Spec over [min, max].
func ContinuousSpec(name string, min, max float64) Spec {
	return Spec{Name: name, Kind: Continuous, Min: min, Max: max}
}

// IntegerSpec builds an integer Spec over [min, max] (both inclusive).
func IntegerSpec(name string, min, max int) Spec {
	return Spec{Name: name, Kind: Integer, Min: float64(min), Max: float64(max)}
}

// CategoricalSpec builds a categorical Spec over an ordered, non-empty list
// of values.
func CategoricalSpec(name string, categories ...any) Spec {
	return Spec{Name: name, Kind: Categorical, Categories: categories}
}

func (s Spec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("parameter spec has empty name")
	}
	switch s.Kind {
	case Continuous, Integer:
		if !(s.Min < s.Max) {
			return fmt.Errorf("parameter %q: min (%v) must be less than max (%v)", s.Name, s.Min, s.Max)
		}
	case Categorical:
		if len(s.Categories) == 0 {
			return fmt.Errorf("parameter %q: categorical spec must have at least one category", s.Name)
		}
	default:
		return fmt.Errorf("parameter %q: unknown kind %d", s.Name, s.Kind)
	}
	return nil
}

// categoryIndex returns the index of value within the spec's category list,
// or -1 if it is not present.
func (s Spec) categoryIndex(value any) int {
	for i, c := range s.Categories {
		if c == value {
			return i
		}
	}
	return -1
}

// Vector maps parameter names to concrete values.
type Vector map[string]any

// Clone returns a shallow copy of the vector.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Space is an immutable mapping from name to Spec with a canonical,
// lexicographic dimension order.
type Space struct {
	specs map[string]Spec
	order []string // lexicographic over names
}

// New constructs a Space from a set of specs. Names must be unique and every
// spec internally consistent (non-empty interval or category list).
func New(specs ...Spec) (*Space, error) {
	m := make(map[string]Spec, len(specs))
	order := make([]string, 0, len(specs))
	for _, s := range specs {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, exists := m[s.Name]; exists {
			return nil, fmt.Errorf("duplicate parameter name %q", s.Name)
		}
		m[s.Name] = s
		order = append(order, s.Name)
	}
	sort.Strings(order)
	return &Space{specs: m, order: order}, nil
}

// Names returns parameter names in canonical (lexicographic) order.
func (sp *Space) Names() []string {
	out := make([]string, len(sp.order))
	copy(out, sp.order)
	return out
}

// Spec returns the named spec and whether it exists.
func (sp *Space) Spec(name string) (Spec, bool) {
	s, ok := sp.specs[name]
	return s, ok
}

// Dimension is the number of real dimensions in Encode's output — exactly
// one per parameter, regardless of kind.
func (sp *Space) Dimension() int {
	return len(sp.order)
}

// BoundsLower returns, in canonical order, the lower bound of each
// dimension's encoded representation (0 for categoricals, the encoded index
// of the first category).
func (sp *Space) BoundsLower() []float64 {
	out := make([]float64, len(sp.order))
	for i, name := range sp.order {
		s := sp.specs[name]
		switch s.Kind {
		case Categorical:
			out[i] = 0
		default:
			out[i] = s.Min
		}
	}
	return out
}

// BoundsUpper returns, in canonical order, the upper bound of each
// dimension's encoded representation.
func (sp *Space) BoundsUpper() []float64 {
	out := make([]float64, len(sp.order))
	for i, name := range sp.order {
		s := sp.specs[name]
		switch s.Kind {
		case Categorical:
			out[i] = float64(len(s.Categories) - 1)
		default:
			out[i] = s.Max
		}
	}
	return out
}

// Validate checks that vec has exactly one value per spec, in-range for
// continuous/integer, in-set for categorical. NaN is never admissible.
func (sp *Space) Validate(vec Vector) []error {
	var errs []error
	for _, name := range sp.order {
		s := sp.specs[name]
		val, present := vec[name]
		if !present {
			errs = append(errs, fmt.Errorf("parameter %q: missing", name))
			continue
		}
		switch s.Kind {
		case Continuous:
			f, ok := toFloat(val)
			if !ok {
				errs = append(errs, fmt.Errorf("parameter %q: expected numeric value, got %T", name, val))
				continue
			}
			if math.IsNaN(f) {
				errs = append(errs, fmt.Errorf("parameter %q: NaN is not admissible", name))
				continue
			}
			if f < s.Min || f > s.Max {
				errs = append(errs, fmt.Errorf("parameter %q: %v outside [%v, %v]", name, f, s.Min, s.Max))
			}
		case Integer:
			f, ok := toFloat(val)
			if !ok {
				errs = append(errs, fmt.Errorf("parameter %q: expected integer value, got %T", name, val))
				continue
			}
			if math.IsNaN(f) {
				errs = append(errs, fmt.Errorf("parameter %q: NaN is not admissible", name))
				continue
			}
			if f != math.Trunc(f) {
				errs = append(errs, fmt.Errorf("parameter %q: %v is not an integer", name, f))
				continue
			}
			if f < s.Min || f > s.Max {
				errs = append(errs, fmt.Errorf("parameter %q: %v outside [%v, %v]", name, f, s.Min, s.Max))
			}
		case Categorical:
			if s.categoryIndex(val) < 0 {
				errs = append(errs, fmt.Errorf("parameter %q: %v not in %v", name, val, s.Categories))
			}
		}
	}
	for name := range vec {
		if _, known := sp.specs[name]; !known {
			errs = append(errs, fmt.Errorf("parameter %q: not part of this space", name))
		}
	}
	return errs
}

// Encode flattens vec to a dense real vector in canonical dimension order.
// Categorical values become the index into their ordered category list;
// integers are passed through as reals.
func (sp *Space) Encode(vec Vector) []float64 {
	out := make([]float64, len(sp.order))
	for i, name := range sp.order {
		s := sp.specs[name]
		val := vec[name]
		switch s.Kind {
		case Categorical:
			idx := s.categoryIndex(val)
			if idx < 0 {
				idx = 0
			}
			out[i] = float64(idx)
		default:
			f, _ := toFloat(val)
			out[i] = f
		}
	}
	return out
}

// Decode is the inverse of Encode: integers round nearest (halves to even)
// then clamp to range; categorical indices round nearest, clamp to
// [0, len(categories)-1], then truncate to an integer index.
func (sp *Space) Decode(real []float64) Vector {
	out := make(Vector, len(sp.order))
	for i, name := range sp.order {
		if i >= len(real) {
			break
		}
		s := sp.specs[name]
		x := real[i]
		switch s.Kind {
		case Continuous:
			out[name] = utils.ClampFloat64(x, s.Min, s.Max)
		case Integer:
			rounded := math.RoundToEven(x)
			out[name] = int(utils.ClampFloat64(rounded, s.Min, s.Max))
		case Categorical:
			idx := math.RoundToEven(x)
			maxIdx := float64(len(s.Categories) - 1)
			idx = utils.ClampFloat64(idx, 0, maxIdx)
			out[name] = s.Categories[int(idx)]
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	default:
		return 0, false
	}
}
