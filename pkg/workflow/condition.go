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
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wrikka/wpackages-sub001/pkg/workflow/expression"
)

// ConditionOp discriminates the Condition tagged tree.
type ConditionOp string

const (
	OpEq         ConditionOp = "eq"
	OpNe         ConditionOp = "ne"
	OpGt         ConditionOp = "gt"
	OpGte        ConditionOp = "gte"
	OpLt         ConditionOp = "lt"
	OpLte        ConditionOp = "lte"
	OpContains   ConditionOp = "contains"
	OpStartsWith ConditionOp = "starts_with"
	OpEndsWith   ConditionOp = "ends_with"
	OpAnd        ConditionOp = "and"
	OpOr         ConditionOp = "or"
	OpNot        ConditionOp = "not"
	OpExists     ConditionOp = "exists"
	OpTruthy     ConditionOp = "truthy"
	OpRegex      ConditionOp = "regex"
)

// Condition is a compound tree of comparisons, boolean connectives, and
// existence/regex predicates, per spec.md §3.1.
type Condition struct {
	Op ConditionOp `json:"op" yaml:"op"`

	// Comparison operands (Eq/Ne/Gt/Gte/Lt/Lte/Contains/StartsWith/EndsWith)
	Left  *Operand `json:"left,omitempty" yaml:"left,omitempty"`
	Right *Operand `json:"right,omitempty" yaml:"right,omitempty"`

	// Boolean connectives
	Children []Condition `json:"children,omitempty" yaml:"children,omitempty"` // And/Or: 2+, Not: 1

	// Exists/Truthy
	Var string `json:"var,omitempty" yaml:"var,omitempty"`

	// Regex
	Field   string `json:"field,omitempty" yaml:"field,omitempty"`
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// OperandKind discriminates an Operand.
type OperandKind string

const (
	OperandLiteral OperandKind = "literal"
	OperandVar     OperandKind = "var"
	OperandFunc    OperandKind = "func"
)

// Operand is a literal, a variable reference, or a named pure function call.
type Operand struct {
	Kind    OperandKind `json:"kind" yaml:"kind"`
	Literal string      `json:"literal,omitempty" yaml:"literal,omitempty"`
	VarName string      `json:"var,omitempty" yaml:"var,omitempty"`
	Func    string      `json:"func,omitempty" yaml:"func,omitempty"`
	Args    []Operand   `json:"args,omitempty" yaml:"args,omitempty"`
}

// Evaluate resolves operand to a string value against vars.
func (o *Operand) Evaluate(vars map[string]string, eval *expression.Evaluator) (string, error) {
	if o == nil {
		return "", nil
	}
	switch o.Kind {
	case OperandLiteral:
		return o.Literal, nil
	case OperandVar:
		return vars[o.VarName], nil
	case OperandFunc:
		args := make([]string, len(o.Args))
		for i := range o.Args {
			v, err := o.Args[i].Evaluate(vars, eval)
			if err != nil {
				return "", err
			}
			args[i] = v
		}
		return eval.CallFunc(o.Func, args)
	default:
		return "", fmt.Errorf("unknown operand kind: %s", o.Kind)
	}
}

// EvaluateCondition walks the Condition tree and returns its boolean result.
func EvaluateCondition(c *Condition, vars map[string]string, eval *expression.Evaluator) (bool, error) {
	if c == nil {
		return true, nil
	}
	switch c.Op {
	case OpAnd:
		for i := range c.Children {
			ok, err := EvaluateCondition(&c.Children[i], vars, eval)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case OpOr:
		for i := range c.Children {
			ok, err := EvaluateCondition(&c.Children[i], vars, eval)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case OpNot:
		if len(c.Children) != 1 {
			return false, fmt.Errorf("not requires exactly one child")
		}
		ok, err := EvaluateCondition(&c.Children[0], vars, eval)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case OpExists:
		_, ok := vars[c.Var]
		return ok, nil
	case OpTruthy:
		v, ok := vars[c.Var]
		if !ok {
			return false, nil
		}
		return isTruthy(v), nil
	case OpRegex:
		v := vars[c.Field]
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return false, fmt.Errorf("invalid regex %q: %w", c.Pattern, err)
		}
		return re.MatchString(v), nil
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpContains, OpStartsWith, OpEndsWith:
		return evaluateComparison(c, vars, eval)
	default:
		return false, fmt.Errorf("unknown condition op: %s", c.Op)
	}
}

func evaluateComparison(c *Condition, vars map[string]string, eval *expression.Evaluator) (bool, error) {
	left, err := c.Left.Evaluate(vars, eval)
	if err != nil {
		return false, err
	}
	right, err := c.Right.Evaluate(vars, eval)
	if err != nil {
		return false, err
	}

	switch c.Op {
	case OpEq:
		return left == right, nil
	case OpNe:
		return left != right, nil
	case OpContains:
		return strings.Contains(left, right), nil
	case OpStartsWith:
		return strings.HasPrefix(left, right), nil
	case OpEndsWith:
		return strings.HasSuffix(left, right), nil
	case OpGt, OpGte, OpLt, OpLte:
		lf, lerr := strconv.ParseFloat(left, 64)
		rf, rerr := strconv.ParseFloat(right, 64)
		if lerr != nil || rerr != nil {
			// Fall back to lexical comparison if not numeric.
			switch c.Op {
			case OpGt:
				return left > right, nil
			case OpGte:
				return left >= right, nil
			case OpLt:
				return left < right, nil
			default:
				return left <= right, nil
			}
		}
		switch c.Op {
		case OpGt:
			return lf > rf, nil
		case OpGte:
			return lf >= rf, nil
		case OpLt:
			return lf < rf, nil
		default:
			return lf <= rf, nil
		}
	default:
		return false, fmt.Errorf("unreachable comparison op: %s", c.Op)
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}
