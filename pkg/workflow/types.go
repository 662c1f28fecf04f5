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

// Package workflow implements the workflow engine: registration of
// immutable step programs and execution of those programs against a
// pluggable Executor capability.
package workflow

import (
	"encoding/json"
	"time"
)

// Workflow is an immutable, registered step program.
type Workflow struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	Steps     []Step            `json:"steps" yaml:"steps"`
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
	OnError   *ErrorHandler     `json:"on_error,omitempty" yaml:"on_error,omitempty"`
}

// StepKind discriminates the Step tagged union.
type StepKind string

const (
	StepKindAction      StepKind = "action"
	StepKindWait        StepKind = "wait"
	StepKindConditional StepKind = "conditional"
	StepKindLoop        StepKind = "loop"
	StepKindExtract     StepKind = "extract"
	StepKindValidate    StepKind = "validate"
)

// Step is a tagged-union step definition. Exactly the fields relevant to
// Kind are populated; the rest are zero value. This mirrors the teacher's
// StepDefinition+StepType pattern rather than a Go sum type, since JSON/YAML
// definitions need a flat, serializable shape.
type Step struct {
	Kind StepKind `json:"kind" yaml:"kind"`

	// Action
	ActionName string          `json:"name,omitempty" yaml:"name,omitempty"`
	Params     json.RawMessage `json:"params,omitempty" yaml:"params,omitempty"`
	Retry      *RetryConfig    `json:"retry,omitempty" yaml:"retry,omitempty"`

	// Wait
	DurationMS int64      `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
	Condition  *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`

	// Conditional
	ThenSteps []Step `json:"then_steps,omitempty" yaml:"then_steps,omitempty"`
	ElseSteps []Step `json:"else_steps,omitempty" yaml:"else_steps,omitempty"`

	// Loop
	Body          []Step `json:"body,omitempty" yaml:"body,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`

	// Extract
	VariableName string `json:"variable_name,omitempty" yaml:"variable_name,omitempty"`
	Selector     string `json:"selector,omitempty" yaml:"selector,omitempty"`
	Attribute    string `json:"attribute,omitempty" yaml:"attribute,omitempty"`

	// Validate
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// RetryConfig governs per-action retry/backoff. Zero value is invalid;
// use DefaultRetryConfig.
type RetryConfig struct {
	MaxAttempts       int     `json:"max_attempts" yaml:"max_attempts"`
	BackoffMS         int64   `json:"backoff_ms" yaml:"backoff_ms"`
	BackoffMultiplier float64 `json:"backoff_multiplier" yaml:"backoff_multiplier"`
	MaxBackoffMS      int64   `json:"max_backoff_ms" yaml:"max_backoff_ms"`
}

// DefaultRetryConfig returns the spec-mandated default: 3 attempts, 500ms
// base, x2 multiplier, capped at 10s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffMS:         500,
		BackoffMultiplier: 2.0,
		MaxBackoffMS:      10_000,
	}
}

// ErrorHandlerAction selects how a workflow reacts to a step failure.
type ErrorHandlerAction string

const (
	ErrorActionStop     ErrorHandlerAction = "stop"
	ErrorActionContinue ErrorHandlerAction = "continue"
	ErrorActionRetry    ErrorHandlerAction = "retry"
	ErrorActionFallback ErrorHandlerAction = "fallback"
)

// ErrorHandler is a workflow-level failure policy.
type ErrorHandler struct {
	Action   ErrorHandlerAction `json:"action" yaml:"action"`
	Attempts int                `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Steps    []Step             `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// ExecutionContext is the mutable state threaded through one workflow run.
type ExecutionContext struct {
	WorkflowID  string
	SessionID   string
	Variables   map[string]string
	StepResults []StepResult
}

// Set writes a variable with last-write-wins semantics.
func (c *ExecutionContext) Set(name, value string) {
	if c.Variables == nil {
		c.Variables = make(map[string]string)
	}
	c.Variables[name] = value
}

// StepResult is recorded for every step attempt that reaches a terminal
// outcome, success or failure.
type StepResult struct {
	Index      int             `json:"index"`
	Kind       StepKind        `json:"kind"`
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

// WorkflowResult is the outcome of one execute() call.
type WorkflowResult struct {
	Success        bool              `json:"success"`
	StepResults    []StepResult      `json:"step_results"`
	FinalVariables map[string]string `json:"final_variables"`
	Error          string            `json:"error,omitempty"`
	DurationMS     int64             `json:"duration_ms"`
}

func durationMS(d time.Duration) int64 {
	return d.Milliseconds()
}
