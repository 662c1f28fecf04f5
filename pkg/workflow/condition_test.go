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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrikka/wpackages-sub001/pkg/workflow/expression"
)

func lit(v string) *Operand   { return &Operand{Kind: OperandLiteral, Literal: v} }
func vr(name string) *Operand { return &Operand{Kind: OperandVar, VarName: name} }

func TestEvaluateCondition_NilIsTrue(t *testing.T) {
	ok, err := EvaluateCondition(nil, nil, expression.New())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateCondition_Comparisons(t *testing.T) {
	eval := expression.New()
	vars := map[string]string{"status": "ready", "count": "3"}

	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		{"eq true", Condition{Op: OpEq, Left: vr("status"), Right: lit("ready")}, true},
		{"eq false", Condition{Op: OpEq, Left: vr("status"), Right: lit("pending")}, false},
		{"ne", Condition{Op: OpNe, Left: vr("status"), Right: lit("pending")}, true},
		{"contains", Condition{Op: OpContains, Left: vr("status"), Right: lit("ead")}, true},
		{"starts_with", Condition{Op: OpStartsWith, Left: vr("status"), Right: lit("rea")}, true},
		{"ends_with", Condition{Op: OpEndsWith, Left: vr("status"), Right: lit("dy")}, true},
		{"gt numeric", Condition{Op: OpGt, Left: vr("count"), Right: lit("2")}, true},
		{"lte numeric", Condition{Op: OpLte, Left: vr("count"), Right: lit("3")}, true},
		{"lt lexical fallback", Condition{Op: OpLt, Left: lit("abc"), Right: lit("abd")}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EvaluateCondition(&tc.cond, vars, eval)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateCondition_AndOrNot(t *testing.T) {
	eval := expression.New()
	vars := map[string]string{"a": "1", "b": "2"}

	and := Condition{Op: OpAnd, Children: []Condition{
		{Op: OpEq, Left: vr("a"), Right: lit("1")},
		{Op: OpEq, Left: vr("b"), Right: lit("2")},
	}}
	ok, err := EvaluateCondition(&and, vars, eval)
	require.NoError(t, err)
	assert.True(t, ok)

	or := Condition{Op: OpOr, Children: []Condition{
		{Op: OpEq, Left: vr("a"), Right: lit("nope")},
		{Op: OpEq, Left: vr("b"), Right: lit("2")},
	}}
	ok, err = EvaluateCondition(&or, vars, eval)
	require.NoError(t, err)
	assert.True(t, ok)

	not := Condition{Op: OpNot, Children: []Condition{
		{Op: OpEq, Left: vr("a"), Right: lit("1")},
	}}
	ok, err = EvaluateCondition(&not, vars, eval)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateCondition_ExistsTruthyRegex(t *testing.T) {
	eval := expression.New()
	vars := map[string]string{"present": "", "flag": "true", "email": "a@b.com"}

	ok, err := EvaluateCondition(&Condition{Op: OpExists, Var: "present"}, vars, eval)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateCondition(&Condition{Op: OpExists, Var: "missing"}, vars, eval)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = EvaluateCondition(&Condition{Op: OpTruthy, Var: "flag"}, vars, eval)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateCondition(&Condition{Op: OpTruthy, Var: "present"}, vars, eval)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = EvaluateCondition(&Condition{Op: OpRegex, Field: "email", Pattern: `^[^@]+@[^@]+$`}, vars, eval)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateCondition_FuncOperand(t *testing.T) {
	eval := expression.New()
	vars := map[string]string{"name": "  Ada  "}

	cond := Condition{
		Op: OpEq,
		Left: &Operand{
			Kind: OperandFunc,
			Func: "trim",
			Args: []Operand{*vr("name")},
		},
		Right: lit("Ada"),
	}
	ok, err := EvaluateCondition(&cond, vars, eval)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateCondition_NotRequiresExactlyOneChild(t *testing.T) {
	eval := expression.New()
	_, err := EvaluateCondition(&Condition{Op: OpNot}, map[string]string{}, eval)
	assert.Error(t, err)
}
