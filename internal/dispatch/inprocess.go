package dispatch

import (
	"context"
	"errors"

	"github.com/GoSim-25-26J-441/optengine/internal/errs"
	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
	"github.com/GoSim-25-26J-441/optengine/pkg/simresult"
)

// InProcessBackend wraps a user-supplied Model so it satisfies Dispatcher.
type InProcessBackend struct {
	Model Model
}

// NewInProcessBackend returns a Dispatcher that invokes model directly.
func NewInProcessBackend(model Model) *InProcessBackend {
	return &InProcessBackend{Model: model}
}

func (b *InProcessBackend) Run(ctx context.Context, vec paramspace.Vector) (*simresult.Result, error) {
	if err := b.Model.ValidateParameters(vec); err != nil {
		return nil, errs.Wrap(errs.ValidationFailed, "model rejected parameters", err)
	}

	result, err := b.Model.Run(ctx, vec)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, errs.Wrap(errs.Cancelled, "model run cancelled", err)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errs.Wrap(errs.Timeout, "model run exceeded deadline", err)
		}
		return nil, errs.Wrap(errs.ModelInternal, "model run failed", err)
	}

	if result.Parameters == nil {
		result.Parameters = vec
	}
	return result, nil
}
