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

// Package expression evaluates the named pure functions (len, upper, lower,
// trim, concat, sum, ...) that a workflow Condition's Operand tree can
// invoke, using github.com/expr-lang/expr as the evaluation engine.
package expression

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator compiles and caches one expr-lang program per distinct function
// name, since the named-function set is small and fixed.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// New returns an Evaluator ready to call the spec's named pure functions
// plus the supplemented contains_any/coalesce helpers.
func New() *Evaluator {
	return &Evaluator{cache: make(map[string]*vm.Program)}
}

// env is the function namespace exposed to compiled expr-lang programs.
// expr-lang reserves "len" and "contains" as operators, so the workflow
// operand tree calls them through these wrapper names instead.
func env() map[string]interface{} {
	return map[string]interface{}{
		"strLen": func(s string) int { return len([]rune(s)) },
		"upper":  strings.ToUpper,
		"lower":  strings.ToLower,
		"trim":   strings.TrimSpace,
		"concat": func(args ...string) string { return strings.Join(args, "") },
		"sum": func(args ...string) string {
			var total float64
			for _, a := range args {
				if f, err := strconv.ParseFloat(a, 64); err == nil {
					total += f
				}
			}
			return strconv.FormatFloat(total, 'f', -1, 64)
		},
		"containsAny": func(s string, substrs ...string) bool {
			for _, sub := range substrs {
				if strings.Contains(s, sub) {
					return true
				}
			}
			return false
		},
		"coalesce": func(args ...string) string {
			for _, a := range args {
				if a != "" {
					return a
				}
			}
			return ""
		},
	}
}

// funcAliases maps the spec's public function names to the env identifiers
// above (the spec names len/contains collide with expr-lang operators).
var funcAliases = map[string]string{
	"len":          "strLen",
	"upper":        "upper",
	"lower":        "lower",
	"trim":         "trim",
	"concat":       "concat",
	"sum":          "sum",
	"contains_any": "containsAny",
	"coalesce":     "coalesce",
}

// CallFunc evaluates the named pure function against string args, returning
// its string result.
func (e *Evaluator) CallFunc(name string, args []string) (string, error) {
	alias, ok := funcAliases[name]
	if !ok {
		return "", fmt.Errorf("unknown condition function: %s", name)
	}

	program, err := e.compile(alias, len(args))
	if err != nil {
		return "", fmt.Errorf("compiling function %s: %w", name, err)
	}

	evalEnv := env()
	for i, a := range args {
		evalEnv[argName(i)] = a
	}

	result, err := expr.Run(program, evalEnv)
	if err != nil {
		return "", fmt.Errorf("evaluating function %s: %w", name, err)
	}

	switch v := result.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// compile builds (and caches) the expr-lang program for calling alias with
// argc positional parameters, e.g. "concat(arg0, arg1)".
func (e *Evaluator) compile(alias string, argc int) (*vm.Program, error) {
	key := fmt.Sprintf("%s/%d", alias, argc)

	e.mu.RLock()
	if p, ok := e.cache[key]; ok {
		e.mu.RUnlock()
		return p, nil
	}
	e.mu.RUnlock()

	names := make([]string, argc)
	for i := range names {
		names[i] = argName(i)
	}
	src := fmt.Sprintf("%s(%s)", alias, strings.Join(names, ", "))

	compileEnv := env()
	for _, n := range names {
		compileEnv[n] = ""
	}

	program, err := expr.Compile(src, expr.Env(compileEnv))
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[key] = program
	e.mu.Unlock()
	return program, nil
}

func argName(i int) string {
	return fmt.Sprintf("arg%d", i)
}
