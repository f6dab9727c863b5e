// Package experiment implements the Experiment Controller: the worker-pool
// state machine that drives proposal, dispatch, evaluation, and feedback
// between an Optimizer and a Dispatcher, recording every iteration and
// streaming progress.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/optengine/internal/dispatch"
	"github.com/GoSim-25-26J-441/optengine/internal/errs"
	"github.com/GoSim-25-26J-441/optengine/internal/kpi"
	"github.com/GoSim-25-26J-441/optengine/internal/optimize"
	"github.com/GoSim-25-26J-441/optengine/internal/progress"
	"github.com/GoSim-25-26J-441/optengine/internal/store"
	"github.com/GoSim-25-26J-441/optengine/pkg/logger"
	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
	"github.com/GoSim-25-26J-441/optengine/pkg/simresult"
	"github.com/GoSim-25-26J-441/optengine/pkg/utils"
)

// OnError names how the Controller reacts once an iteration's retries are
// exhausted (or immediately, for errors the taxonomy marks non-retryable).
type OnError string

const (
	Raise    OnError = "raise"
	Retry    OnError = "retry"
	Fallback OnError = "fallback"
)

// RetryPolicy governs per-iteration retry behavior.
type RetryPolicy struct {
	MaxAttempts    int
	OnError        OnError
	FallbackResult *simresult.Result
	Backoff        utils.BackoffStrategy // nil uses the Controller's default
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.OnError == "" {
		p.OnError = Raise
	}
	if p.Backoff == nil {
		p.Backoff = utils.DefaultDispatchBackoff()
	}
	return p
}

// RunOptions configures one call to Experiment.Run.
type RunOptions struct {
	MaxIterations  int // 0 means unbounded (defer entirely to the optimizer's own budget)
	Parallelism    int // default 1
	PerCallTimeout time.Duration
	RunDeadline    time.Duration // 0 means no global deadline
	Retry          RetryPolicy
	SaveBasePath   string
}

// FinalResults is the Controller's return value on normal or cancelled
// termination.
type FinalResults struct {
	BestParameters paramspace.Vector
	BestKPIs       map[string]float64
	Iterations     int
	ElapsedSeconds float64
	Cancelled      bool
	Records        []store.IterationRecord
	LatencyP50Ms   float64
	LatencyP95Ms   float64
}

// Experiment wires a ParameterSpace, KPI Aggregator, Dispatcher, and
// Optimizer into one coordinated run.
type Experiment struct {
	Space      *paramspace.Space
	Aggregator *kpi.Aggregator
	Dispatcher dispatch.Dispatcher
	Optimizer  optimize.Optimizer
	Store      *store.Store
	Stream     *progress.Stream
	Log        *slog.Logger

	optMu    sync.Mutex // serializes Optimizer.Propose/Observe and step assignment
	nextStep int64
}

// New wires the required collaborators and installs a fresh Store and
// Stream.
func New(space *paramspace.Space, agg *kpi.Aggregator, d dispatch.Dispatcher, opt optimize.Optimizer) *Experiment {
	return &Experiment{
		Space:      space,
		Aggregator: agg,
		Dispatcher: d,
		Optimizer:  opt,
		Store:      store.New(),
		Stream:     progress.New(progress.DefaultBufferSize),
		Log:        logger.Default,
	}
}

// Run drives the experiment to completion, to cancellation, or to the
// optimizer's own exhaustion, whichever comes first.
func (e *Experiment) Run(ctx context.Context, opts RunOptions) (*FinalResults, error) {
	objectiveName, maximize, hasObjective := e.Aggregator.Objective()
	if e.Optimizer == nil {
		return nil, e.failRun(fmt.Errorf("experiment: no optimizer configured"))
	}
	if !hasObjective {
		return nil, e.failRun(fmt.Errorf("experiment: no objective kpi configured"))
	}
	if len(e.Space.Names()) == 0 {
		return nil, e.failRun(fmt.Errorf("experiment: parameter space is empty"))
	}

	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	retry := opts.Retry.normalized()

	runCtx := ctx
	var cancelRun context.CancelFunc
	if opts.RunDeadline > 0 {
		runCtx, cancelRun = context.WithTimeout(ctx, opts.RunDeadline)
		defer cancelRun()
	}

	start := time.Now()
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	issued := 0

	for {
		if runCtx.Err() != nil {
			break
		}
		if opts.MaxIterations > 0 && issued >= opts.MaxIterations {
			break
		}

		e.optMu.Lock()
		vec, handle, done := e.Optimizer.Propose()
		if done {
			e.optMu.Unlock()
			break
		}
		step := e.nextStep + 1
		e.nextStep = step
		e.optMu.Unlock()

		issued++
		sem <- struct{}{}
		wg.Add(1)
		go func(vec paramspace.Vector, handle optimize.Handle, step int64) {
			defer wg.Done()
			defer func() { <-sem }()
			e.runIteration(runCtx, vec, handle, step, opts.PerCallTimeout, retry, objectiveName, maximize)
		}(vec, handle, step)
	}

	wg.Wait()

	records := e.Store.All()
	result := &FinalResults{
		Iterations: len(records),
		Records:    records,
		Cancelled:  ctx.Err() != nil,
	}
	if best, ok := e.Store.Best(objectiveName, maximize); ok {
		result.BestParameters = best.Parameters
		result.BestKPIs = best.KPIs
	}
	result.ElapsedSeconds = time.Since(start).Seconds()
	if elapsed := elapsedMillis(records); len(elapsed) > 0 {
		result.LatencyP50Ms = utils.P50(elapsed)
		result.LatencyP95Ms = utils.P95(elapsed)
	}

	if e.Log != nil {
		e.Log.Info("experiment run finished",
			"iterations", issued, "cancelled", result.Cancelled,
			"latency_p50_ms", result.LatencyP50Ms, "latency_p95_ms", result.LatencyP95Ms)
	}

	e.Stream.Publish(progress.Event{
		Type:           progress.EventComplete,
		BestParameters: result.BestParameters,
		BestKPIs:       result.BestKPIs,
		Iterations:     result.Iterations,
		ElapsedSeconds: result.ElapsedSeconds,
		Cancelled:      result.Cancelled,
	})

	if opts.SaveBasePath != "" {
		if err := e.Store.SaveAll(opts.SaveBasePath, objectiveName, maximize, result.ElapsedSeconds); err != nil {
			return result, fmt.Errorf("experiment: saving results: %w", err)
		}
	}

	return result, nil
}

func (e *Experiment) failRun(err error) error {
	e.ensureStream()
	e.Stream.Publish(progress.Event{Type: progress.EventError, Message: err.Error()})
	return err
}

func (e *Experiment) ensureStream() {
	if e.Stream == nil {
		e.Stream = progress.New(progress.DefaultBufferSize)
	}
	if e.Store == nil {
		e.Store = store.New()
	}
}

// runIteration carries one proposal through validation, dispatch (with
// retry/jitter), KPI aggregation, storage, and optimizer feedback.
func (e *Experiment) runIteration(
	ctx context.Context,
	vec paramspace.Vector,
	handle optimize.Handle,
	step int64,
	perCallTimeout time.Duration,
	retry RetryPolicy,
	objectiveName string,
	maximize bool,
) {
	iterStart := time.Now()

	if problems := e.Space.Validate(vec); len(problems) > 0 {
		rec := store.IterationRecord{
			Step:       step,
			Parameters: vec,
			Status:     store.StatusFailed,
			Error:      errs.New(errs.ValidationFailed, joinErrors(problems)).Error(),
			ElapsedMs:  time.Since(iterStart).Milliseconds(),
			Attempts:   0,
		}
		e.record(rec)
		e.observe(handle, 0, false)
		return
	}

	result, attempts, dispatchErr := e.dispatchWithRetry(ctx, vec, step, perCallTimeout, retry)

	if dispatchErr != nil {
		if ctx.Err() != nil {
			e.record(store.IterationRecord{
				Step: step, Parameters: vec, Status: store.StatusCancelled,
				Error: dispatchErr.Error(), ElapsedMs: time.Since(iterStart).Milliseconds(), Attempts: attempts,
			})
			e.observe(handle, 0, false)
			return
		}
		if retry.OnError == Fallback && retry.FallbackResult != nil {
			result = retry.FallbackResult
		} else {
			e.record(store.IterationRecord{
				Step: step, Parameters: vec, Status: store.StatusFailed,
				Error: dispatchErr.Error(), ElapsedMs: time.Since(iterStart).Milliseconds(), Attempts: attempts,
			})
			e.observe(handle, 0, false)
			return
		}
	}

	kpis := e.Aggregator.Apply(result)
	objective, _, objErr := e.Aggregator.ObjectiveValue(kpis)
	status := store.StatusOK
	errMsg := ""

	if objErr != nil {
		if retry.OnError == Fallback && retry.FallbackResult != nil {
			fallbackKPIs := e.Aggregator.Apply(retry.FallbackResult)
			if fv, _, fErr := e.Aggregator.ObjectiveValue(fallbackKPIs); fErr == nil {
				kpis = fallbackKPIs
				objective = fv
			} else {
				status = store.StatusFailed
				errMsg = objErr.Error()
			}
		} else {
			status = store.StatusFailed
			errMsg = objErr.Error()
		}
	}

	rec := store.IterationRecord{
		Step:           step,
		Parameters:     vec,
		KPIs:           kpis,
		ObjectiveValue: objective,
		Status:         status,
		ElapsedMs:      time.Since(iterStart).Milliseconds(),
		Error:          errMsg,
		Attempts:       attempts,
	}
	e.record(rec)
	e.observe(handle, objective, status == store.StatusOK)
}

// dispatchWithRetry runs the Dispatcher, retrying per policy on retryable
// error kinds, jittering parameters on every attempt after the first.
func (e *Experiment) dispatchWithRetry(
	ctx context.Context,
	vec paramspace.Vector,
	step int64,
	perCallTimeout time.Duration,
	retry RetryPolicy,
) (*simresult.Result, int, error) {
	var lastErr error
	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		callVec := vec
		if attempt > 1 {
			callVec = dispatch.Jitter(vec, attempt+int(step)*1000)
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if perCallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, perCallTimeout)
		}
		result, err := e.Dispatcher.Run(callCtx, callVec)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			return result, attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, attempt, errs.Wrap(errs.Cancelled, "experiment run cancelled", ctx.Err())
		}

		kind := errs.KindOf(err)
		if !kind.Retryable() || attempt == retry.MaxAttempts {
			return nil, attempt, err
		}

		select {
		case <-time.After(retry.Backoff.NextDelay(attempt - 1)):
		case <-ctx.Done():
			return nil, attempt, errs.Wrap(errs.Cancelled, "experiment run cancelled", ctx.Err())
		}
	}
	return nil, retry.MaxAttempts, lastErr
}

// record appends rec to the Store and publishes a corresponding step event —
// every recorded iteration surfaces on the stream, successful or not, so a
// consumer draining it sees one step per proposal (§4.5, §7).
func (e *Experiment) record(rec store.IterationRecord) {
	e.Store.Append(rec)
	if e.Log != nil {
		e.Log.Debug("iteration recorded", logger.StepAttrs(rec.Step, string(rec.Status), rec.ObjectiveValue, rec.ElapsedMs)...)
	}
	e.Stream.Publish(progress.Event{
		Type:           progress.EventStep,
		Step:           rec.Step,
		Parameters:     rec.Parameters,
		KPIs:           rec.KPIs,
		ObjectiveValue: rec.ObjectiveValue,
		ElapsedMs:      rec.ElapsedMs,
		Status:         rec.Status,
		Error:          rec.Error,
	})
}

func (e *Experiment) observe(handle optimize.Handle, objective float64, ok bool) {
	e.optMu.Lock()
	defer e.optMu.Unlock()
	e.Optimizer.Observe(handle, objective, ok)
}

func elapsedMillis(records []store.IterationRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = float64(r.ElapsedMs)
	}
	return out
}

func joinErrors(problems []error) string {
	msgs := make([]string, len(problems))
	for i, err := range problems {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
