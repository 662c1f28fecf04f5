// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/wrikka/wpackages-sub001/internal/clock"
	"github.com/wrikka/wpackages-sub001/internal/obslog"
	"github.com/wrikka/wpackages-sub001/pkg/workflow/expression"
	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// Executor is the capability WE consumes to run one action, evaluate one
// condition, or extract one value. BA is one implementation; tests supply
// an in-memory fake.
type Executor interface {
	// ExecuteAction runs a named action with JSON params and returns an
	// optional JSON result.
	ExecuteAction(ctx context.Context, name string, params json.RawMessage, ec *ExecutionContext) (json.RawMessage, error)

	// EvaluateCondition evaluates cond against ec. Host bindings over BA
	// implement this in-process (no wire roundtrip) per the embedding
	// surface contract; it only needs page state when the condition's
	// variables were themselves populated by a prior Extract step.
	EvaluateCondition(ctx context.Context, cond *Condition, ec *ExecutionContext) (bool, error)

	// ExtractValue resolves a selector (optionally scoped to an attribute)
	// to a string value.
	ExtractValue(ctx context.Context, selector string, attribute string, ec *ExecutionContext) (string, error)
}

// Engine executes registered workflows against a supplied Executor.
type Engine struct {
	registry *Registry
	logger   *slog.Logger
	clock    clock.Clock
	eval     *expression.Evaluator
}

// NewEngine constructs an Engine. A nil clock uses clock.System{}; a nil
// logger discards output.
func NewEngine(registry *Registry, logger *slog.Logger, c clock.Clock) *Engine {
	if c == nil {
		c = clock.System{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{registry: registry, logger: logger, clock: c, eval: expression.New()}
}

// Register registers wf. Wf must have a non-empty ID and is thereafter
// immutable.
func (e *Engine) Register(wf Workflow) error {
	return e.registry.Register(wf)
}

// Unregister removes a workflow definition.
func (e *Engine) Unregister(id string) error {
	return e.registry.Unregister(id)
}

// Get returns a registered workflow by id.
func (e *Engine) Get(id string) (Workflow, error) {
	return e.registry.Get(id)
}

// List returns every registered workflow.
func (e *Engine) List() []Workflow {
	return e.registry.List()
}

// Execute runs workflow id against executor, seeding ExecutionContext with
// the workflow's own variable defaults overlaid by initialVars (initial
// values win; workflow defaults fill gaps).
func (e *Engine) Execute(ctx context.Context, id string, executor Executor, sessionID string, initialVars map[string]string) (WorkflowResult, error) {
	wf, err := e.registry.Get(id)
	if err != nil {
		return WorkflowResult{}, err
	}

	start := e.clock.Now()
	ec := &ExecutionContext{
		WorkflowID: wf.ID,
		SessionID:  sessionID,
		Variables:  map[string]string{},
	}
	for k, v := range wf.Variables {
		ec.Variables[k] = v
	}
	for k, v := range initialVars {
		ec.Variables[k] = v
	}

	log := obslog.WithWorkflowRun(e.logger, wf.ID)

	run := &runState{
		engine:   e,
		executor: executor,
		ec:       ec,
		wf:       wf,
		logger:   log,
	}

	fatalErr := run.runSteps(ctx, wf.Steps)

	result := WorkflowResult{
		Success:        fatalErr == nil,
		StepResults:    ec.StepResults,
		FinalVariables: ec.Variables,
		DurationMS:     durationMS(e.clock.Now().Sub(start)),
	}
	if fatalErr != nil {
		result.Error = fatalErr.Error()
	}
	return result, nil
}

// runState threads the mutable pieces of one execution through the
// iterative step interpreter.
type runState struct {
	engine   *Engine
	executor Executor
	ec       *ExecutionContext
	wf       Workflow
	logger   *slog.Logger
}

// frame is one pending body of steps: a top-level Workflow.Steps list, a
// Conditional's chosen branch, a Loop's body (replayed per iteration), or a
// Fallback's steps. Nested Conditional/Loop bodies are pushed as new frames
// on an explicit stack rather than recursed into, so arbitrarily deep
// nesting costs heap, not Go call-stack frames.
type frame struct {
	steps []Step
	idx   int

	isLoop      bool
	loopCond    *Condition
	loopMax     int
	loopIter    int
	fallbackErr bool // steps in this frame are a Fallback body: any failure is fatal
}

// runSteps drives top-level steps to completion (or first fatal failure)
// using an explicit frame stack. Returns the fatal error, or nil on success.
func (r *runState) runSteps(ctx context.Context, steps []Step) error {
	stack := []*frame{{steps: steps}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if top.idx >= len(top.steps) {
			if top.isLoop {
				top.loopIter++
				if top.loopIter <= top.loopMax {
					ok, err := r.evalCondition(ctx, top.loopCond)
					if err == nil && ok {
						top.idx = 0
						continue
					}
				}
			}
			stack = stack[:len(stack)-1]
			continue
		}

		step := top.steps[top.idx]
		top.idx++

		switch step.Kind {
		case StepKindConditional:
			ok, err := r.evalCondition(ctx, step.Condition)
			if err != nil {
				return &xerrors.ExecutorError{Cause: err}
			}
			branch := step.ElseSteps
			if ok {
				branch = step.ThenSteps
			}
			if len(branch) > 0 {
				stack = append(stack, &frame{steps: branch})
			}

		case StepKindLoop:
			if step.MaxIterations <= 0 {
				continue
			}
			ok, err := r.evalCondition(ctx, step.Condition)
			if err != nil {
				return &xerrors.ExecutorError{Cause: err}
			}
			if !ok {
				continue
			}
			stack = append(stack, &frame{
				steps:    step.Body,
				isLoop:   true,
				loopCond: step.Condition,
				loopMax:  step.MaxIterations,
				loopIter: 1,
			})

		default:
			if fatal, err := r.runLeafWithPolicy(ctx, step); fatal {
				return err
			}
		}
	}
	return nil
}

func (r *runState) evalCondition(ctx context.Context, cond *Condition) (bool, error) {
	if cond == nil {
		return true, nil
	}
	return r.executor.EvaluateCondition(ctx, cond, r.ec)
}

// runLeafWithPolicy executes one leaf step (Action/Wait/Extract/Validate),
// records its StepResult, and — on failure — consults the workflow's
// ErrorHandler. Returns fatal=true when the run must stop.
func (r *runState) runLeafWithPolicy(ctx context.Context, step Step) (fatal bool, fatalErr error) {
	result, err := r.runLeaf(ctx, step)
	r.ec.StepResults = append(r.ec.StepResults, result)
	if err == nil {
		return false, nil
	}

	handler := r.wf.OnError
	if handler == nil {
		return true, err
	}

	switch handler.Action {
	case ErrorActionContinue:
		return false, nil

	case ErrorActionRetry:
		attempts := handler.Attempts
		if attempts < 1 {
			attempts = 1
		}
		var lastErr error = err
		for i := 1; i < attempts; i++ {
			result, lastErr = r.runLeaf(ctx, step)
			r.ec.StepResults = append(r.ec.StepResults, result)
			if lastErr == nil {
				return false, nil
			}
		}
		return true, lastErr

	case ErrorActionFallback:
		// A failure inside the fallback steps is fatal, not handled again.
		r.wf.OnError = nil
		fatal := r.runSteps(ctx, handler.Steps)
		r.wf.OnError = handler
		if fatal != nil {
			return true, fatal
		}
		return false, nil

	case ErrorActionStop:
		fallthrough
	default:
		return true, err
	}
}

// runLeaf dispatches a single non-nested step and returns its StepResult.
func (r *runState) runLeaf(ctx context.Context, step Step) (StepResult, error) {
	start := r.engine.clock.Now()
	var data json.RawMessage
	var err error

	switch step.Kind {
	case StepKindAction:
		data, err = r.executeActionWithRetry(ctx, step)
	case StepKindWait:
		err = r.executeWait(ctx, step)
	case StepKindExtract:
		err = r.executeExtract(ctx, step)
	case StepKindValidate:
		err = r.executeValidate(ctx, step)
	default:
		err = fmt.Errorf("unsupported leaf step kind: %s", step.Kind)
	}

	result := StepResult{
		Index:      len(r.ec.StepResults),
		Kind:       step.Kind,
		Success:    err == nil,
		Data:       data,
		DurationMS: durationMS(r.engine.clock.Now().Sub(start)),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result, err
}

// executeActionWithRetry runs an Action step's executor call with its own
// RetryConfig (independent of the workflow-level ErrorHandler), per
// spec.md §4.1.
func (r *runState) executeActionWithRetry(ctx context.Context, step Step) (json.RawMessage, error) {
	cfg := DefaultRetryConfig()
	if step.Retry != nil {
		cfg = *step.Retry
	}

	backoff := time.Duration(cfg.BackoffMS) * time.Millisecond
	maxBackoff := time.Duration(cfg.MaxBackoffMS) * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		data, err := r.executor.ExecuteAction(ctx, step.ActionName, step.Params, r.ec)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if attempt >= cfg.MaxAttempts {
			return nil, &xerrors.MaxRetriesExceededError{
				Action:   step.ActionName,
				Attempts: attempt,
				Cause:    lastErr,
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.engine.clock.After(backoff):
		}

		next := time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if next > maxBackoff {
			next = maxBackoff
		}
		backoff = next
	}
	return nil, lastErr
}

// executeWait sleeps for DurationMS, or polls Condition every 100ms up to
// DurationMS, returning Timeout if the condition never becomes true.
func (r *runState) executeWait(ctx context.Context, step Step) error {
	if step.Condition == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.engine.clock.After(time.Duration(step.DurationMS) * time.Millisecond):
			return nil
		}
	}

	deadline := r.engine.clock.Now().Add(time.Duration(step.DurationMS) * time.Millisecond)
	const pollInterval = 100 * time.Millisecond

	for {
		ok, err := r.executor.EvaluateCondition(ctx, step.Condition, r.ec)
		if err != nil {
			return &xerrors.ExecutorError{Cause: err}
		}
		if ok {
			return nil
		}
		if !r.engine.clock.Now().Before(deadline) {
			return &xerrors.TimeoutError{Reason: "wait condition not satisfied within duration_ms"}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.engine.clock.After(pollInterval):
		}
	}
}

func (r *runState) executeExtract(ctx context.Context, step Step) error {
	value, err := r.executor.ExtractValue(ctx, step.Selector, step.Attribute, r.ec)
	if err != nil {
		return &xerrors.ExecutorError{Cause: err}
	}
	r.ec.Set(step.VariableName, value)
	return nil
}

func (r *runState) executeValidate(ctx context.Context, step Step) error {
	ok, err := r.executor.EvaluateCondition(ctx, step.Condition, r.ec)
	if err != nil {
		return &xerrors.ExecutorError{Cause: err}
	}
	if !ok {
		return &xerrors.ValidationFailedError{Message: step.ErrorMessage}
	}
	return nil
}
