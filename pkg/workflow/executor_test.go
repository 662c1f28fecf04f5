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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrikka/wpackages-sub001/internal/clock"
	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// fakeExecutor is an in-memory Executor for testing the engine's dispatch
// logic without a real BA daemon.
type fakeExecutor struct {
	actionCalls  int
	failNTimes   int
	conditionVal bool
	conditionErr error
	extractVal   string
}

func (f *fakeExecutor) ExecuteAction(ctx context.Context, name string, params json.RawMessage, ec *ExecutionContext) (json.RawMessage, error) {
	f.actionCalls++
	if f.actionCalls <= f.failNTimes {
		return nil, assertErr("action not ready yet")
	}
	return json.RawMessage(`{"ok":true}`), nil
}

func (f *fakeExecutor) EvaluateCondition(ctx context.Context, cond *Condition, ec *ExecutionContext) (bool, error) {
	if f.conditionErr != nil {
		return false, f.conditionErr
	}
	if cond == nil {
		return true, nil
	}
	return EvaluateCondition(cond, ec.Variables, nil)
}

func (f *fakeExecutor) ExtractValue(ctx context.Context, selector, attribute string, ec *ExecutionContext) (string, error) {
	return f.extractVal, nil
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func assertErr(msg string) error { return simpleErr(msg) }

func newTestEngine(t *testing.T) (*Engine, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(time.Unix(0, 0))
	reg := NewRegistry()
	return NewEngine(reg, nil, fc), fc
}

func TestEngine_ExecuteSimpleActionSuccess(t *testing.T) {
	engine, _ := newTestEngine(t)
	wf := Workflow{
		ID: "wf1",
		Steps: []Step{
			{Kind: StepKindAction, ActionName: "click", Retry: &RetryConfig{MaxAttempts: 1, BackoffMS: 10, BackoffMultiplier: 2, MaxBackoffMS: 100}},
		},
	}
	require.NoError(t, engine.Register(wf))

	executor := &fakeExecutor{}
	result, err := engine.Execute(context.Background(), "wf1", executor, "sess1", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.StepResults, 1)
	assert.True(t, result.StepResults[0].Success)
}

func TestEngine_ActionRetriesThenSucceeds(t *testing.T) {
	engine, fc := newTestEngine(t)
	wf := Workflow{
		ID: "wf-retry",
		Steps: []Step{
			{Kind: StepKindAction, ActionName: "flaky", Retry: &RetryConfig{MaxAttempts: 3, BackoffMS: 100, BackoffMultiplier: 2, MaxBackoffMS: 1000}},
		},
	}
	require.NoError(t, engine.Register(wf))

	executor := &fakeExecutor{failNTimes: 2}

	done := make(chan struct{})
	go func() {
		result, err := engine.Execute(context.Background(), "wf-retry", executor, "sess1", nil)
		require.NoError(t, err)
		assert.True(t, result.Success)
		close(done)
	}()

	// Drain the two backoff sleeps (100ms, then 200ms) deterministically.
	time.Sleep(5 * time.Millisecond)
	fc.Advance(100 * time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	fc.Advance(200 * time.Millisecond)

	<-done
	assert.Equal(t, 3, executor.actionCalls)
}

func TestEngine_ActionExhaustsRetries(t *testing.T) {
	engine, fc := newTestEngine(t)
	wf := Workflow{
		ID: "wf-fail",
		Steps: []Step{
			{Kind: StepKindAction, ActionName: "always-fails", Retry: &RetryConfig{MaxAttempts: 2, BackoffMS: 50, BackoffMultiplier: 2, MaxBackoffMS: 500}},
		},
	}
	require.NoError(t, engine.Register(wf))
	executor := &fakeExecutor{failNTimes: 100}

	done := make(chan WorkflowResult)
	go func() {
		result, err := engine.Execute(context.Background(), "wf-fail", executor, "sess1", nil)
		require.NoError(t, err)
		done <- result
	}()

	time.Sleep(5 * time.Millisecond)
	fc.Advance(50 * time.Millisecond)

	result := <-done
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "MaxRetriesExceeded")
}

func TestEngine_ConditionalBranchesTaken(t *testing.T) {
	engine, _ := newTestEngine(t)
	wf := Workflow{
		ID: "wf-cond",
		Steps: []Step{
			{
				Kind:      StepKindConditional,
				Condition: &Condition{Op: OpEq, Left: vr("mode"), Right: lit("fast")},
				ThenSteps: []Step{{Kind: StepKindExtract, VariableName: "branch", Selector: "#x"}},
				ElseSteps: []Step{{Kind: StepKindExtract, VariableName: "branch", Selector: "#y"}},
			},
		},
	}
	require.NoError(t, engine.Register(wf))

	executor := &fakeExecutor{extractVal: "then-taken"}
	result, err := engine.Execute(context.Background(), "wf-cond", executor, "s", map[string]string{"mode": "fast"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "then-taken", result.FinalVariables["branch"])
	assert.Len(t, result.StepResults, 1)
}

func TestEngine_LoopRunsUntilConditionOrMaxIterations(t *testing.T) {
	engine, _ := newTestEngine(t)
	wf := Workflow{
		ID: "wf-loop",
		Steps: []Step{
			{
				Kind:          StepKindLoop,
				Condition:     &Condition{Op: OpNe, Left: vr("done"), Right: lit("yes")},
				MaxIterations: 10,
				Body: []Step{
					{Kind: StepKindExtract, VariableName: "done", Selector: "#flag"},
				},
			},
		},
	}
	require.NoError(t, engine.Register(wf))

	executor := &fakeExecutor{extractVal: "yes"}
	result, err := engine.Execute(context.Background(), "wf-loop", executor, "s", map[string]string{"done": "no"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.StepResults, 1) // condition false on first re-check, loop stops after 1 body run
}

func TestEngine_LoopRespectsMaxIterationsCeiling(t *testing.T) {
	engine, _ := newTestEngine(t)
	wf := Workflow{
		ID: "wf-loop-max",
		Steps: []Step{
			{
				Kind:          StepKindLoop,
				Condition:     &Condition{Op: OpEq, Left: lit("1"), Right: lit("1")}, // always true
				MaxIterations: 3,
				Body: []Step{
					{Kind: StepKindExtract, VariableName: "noop", Selector: "#x"},
				},
			},
		},
	}
	require.NoError(t, engine.Register(wf))

	executor := &fakeExecutor{extractVal: "v"}
	result, err := engine.Execute(context.Background(), "wf-loop-max", executor, "s", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.StepResults, 3)
}

func TestEngine_OnErrorContinue(t *testing.T) {
	engine, _ := newTestEngine(t)
	wf := Workflow{
		ID:      "wf-continue",
		OnError: &ErrorHandler{Action: ErrorActionContinue},
		Steps: []Step{
			{Kind: StepKindAction, ActionName: "a", Retry: &RetryConfig{MaxAttempts: 1, BackoffMS: 1, BackoffMultiplier: 1, MaxBackoffMS: 1}},
			{Kind: StepKindExtract, VariableName: "after", Selector: "#x"},
		},
	}
	require.NoError(t, engine.Register(wf))

	executor := &fakeExecutor{failNTimes: 100, extractVal: "reached"}
	result, err := engine.Execute(context.Background(), "wf-continue", executor, "s", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "reached", result.FinalVariables["after"])
}

func TestEngine_OnErrorStopIsFatal(t *testing.T) {
	engine, _ := newTestEngine(t)
	wf := Workflow{
		ID:      "wf-stop",
		OnError: &ErrorHandler{Action: ErrorActionStop},
		Steps: []Step{
			{Kind: StepKindAction, ActionName: "a", Retry: &RetryConfig{MaxAttempts: 1, BackoffMS: 1, BackoffMultiplier: 1, MaxBackoffMS: 1}},
			{Kind: StepKindExtract, VariableName: "after", Selector: "#x"},
		},
	}
	require.NoError(t, engine.Register(wf))

	executor := &fakeExecutor{failNTimes: 100}
	result, err := engine.Execute(context.Background(), "wf-stop", executor, "s", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotContains(t, result.FinalVariables, "after")
}

func TestEngine_OnErrorFallback(t *testing.T) {
	engine, _ := newTestEngine(t)
	wf := Workflow{
		ID: "wf-fallback",
		OnError: &ErrorHandler{
			Action: ErrorActionFallback,
			Steps:  []Step{{Kind: StepKindExtract, VariableName: "recovered", Selector: "#fallback"}},
		},
		Steps: []Step{
			{Kind: StepKindAction, ActionName: "a", Retry: &RetryConfig{MaxAttempts: 1, BackoffMS: 1, BackoffMultiplier: 1, MaxBackoffMS: 1}},
		},
	}
	require.NoError(t, engine.Register(wf))

	executor := &fakeExecutor{failNTimes: 100, extractVal: "fallback-ran"}
	result, err := engine.Execute(context.Background(), "wf-fallback", executor, "s", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "fallback-ran", result.FinalVariables["recovered"])
}

func TestEngine_ValidateFailureProducesValidationError(t *testing.T) {
	engine, _ := newTestEngine(t)
	wf := Workflow{
		ID: "wf-validate",
		Steps: []Step{
			{Kind: StepKindValidate, Condition: &Condition{Op: OpEq, Left: lit("a"), Right: lit("b")}, ErrorMessage: "a must equal b"},
		},
	}
	require.NoError(t, engine.Register(wf))

	executor := &fakeExecutor{}
	result, err := engine.Execute(context.Background(), "wf-validate", executor, "s", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "a must equal b")
}

func TestEngine_WaitWithoutConditionSleeps(t *testing.T) {
	engine, fc := newTestEngine(t)
	wf := Workflow{
		ID: "wf-wait",
		Steps: []Step{
			{Kind: StepKindWait, DurationMS: 250},
		},
	}
	require.NoError(t, engine.Register(wf))

	done := make(chan WorkflowResult)
	go func() {
		result, err := engine.Execute(context.Background(), "wf-wait", &fakeExecutor{}, "s", nil)
		require.NoError(t, err)
		done <- result
	}()

	time.Sleep(5 * time.Millisecond)
	fc.Advance(250 * time.Millisecond)

	result := <-done
	assert.True(t, result.Success)
}

func TestEngine_WaitWithConditionTimesOut(t *testing.T) {
	engine, fc := newTestEngine(t)
	wf := Workflow{
		ID: "wf-wait-cond",
		Steps: []Step{
			{Kind: StepKindWait, DurationMS: 150, Condition: &Condition{Op: OpEq, Left: vr("ready"), Right: lit("yes")}},
		},
	}
	require.NoError(t, engine.Register(wf))

	done := make(chan WorkflowResult)
	go func() {
		result, err := engine.Execute(context.Background(), "wf-wait-cond", &fakeExecutor{}, "s", map[string]string{"ready": "no"})
		require.NoError(t, err)
		done <- result
	}()

	time.Sleep(5 * time.Millisecond)
	fc.Advance(100 * time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	fc.Advance(100 * time.Millisecond)

	result := <-done
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timeout")
}

func TestEngine_UnregisteredWorkflowReturnsNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.Execute(context.Background(), "missing", &fakeExecutor{}, "s", nil)
	require.Error(t, err)
	var notFound *xerrors.WorkflowNotFoundError
	assert.ErrorAs(t, err, &notFound)
}
