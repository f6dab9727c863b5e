package dispatch

import (
	"context"

	"github.com/GoSim-25-26J-441/optengine/internal/kpi"
	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
	"github.com/GoSim-25-26J-441/optengine/pkg/simresult"
)

// Model is the in-process backend's capability contract: a user-supplied
// simulation the Dispatcher invokes directly within the engine's address
// space.
type Model interface {
	Run(ctx context.Context, params paramspace.Vector) (*simresult.Result, error)
	ParameterSpace() *paramspace.Space
	KPIDefinitions() map[string]kpi.Spec
	ValidateParameters(params paramspace.Vector) error
	Metadata() map[string]any
}

// Dispatcher is the single contract both backends satisfy:
// Run(vec, ctx) → (Result, error).
type Dispatcher interface {
	Run(ctx context.Context, vec paramspace.Vector) (*simresult.Result, error)
}
