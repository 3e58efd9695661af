package calcforge

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// arithmeticEvaluator evaluates the generic-arithmetic tail of the
// special-form chain through expr-lang against a closed namespace:
// numeric literals, + - * / ** and parentheses, plus a fixed set of math
// functions and constants. User text is never executed as host code.
type arithmeticEvaluator struct {
	cache sync.Map // expression string → compiled *vm.Program
	env   map[string]any
}

func newArithmeticEvaluator() *arithmeticEvaluator {
	return &arithmeticEvaluator{env: mathNamespace()}
}

// mathNamespace is the whole identifier surface visible to generic
// arithmetic. Anything outside it is an expression error.
func mathNamespace() map[string]any {
	return map[string]any{
		"pi":    math.Pi,
		"e":     math.E,
		"abs":   math.Abs,
		"sqrt":  math.Sqrt,
		"cbrt":  math.Cbrt,
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"asin":  math.Asin,
		"acos":  math.Acos,
		"atan":  math.Atan,
		"log":   math.Log,
		"log2":  math.Log2,
		"log10": math.Log10,
		"exp":   math.Exp,
		"floor": math.Floor,
		"ceil":  math.Ceil,
		"round": math.Round,
		"trunc": math.Trunc,
		"pow":   math.Pow,
		"mod":   math.Mod,
		"hypot": math.Hypot,
	}
}

// Evaluate compiles (with caching) and runs an arithmetic expression,
// returning its numeric result. Division by zero and other non-finite
// outcomes are reported as errors rather than leaking Inf/NaN into the
// value map.
func (a *arithmeticEvaluator) Evaluate(expression string) (float64, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return 0, fmt.Errorf("empty expression")
	}

	program, err := a.compile(expression)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", expression, err)
	}
	result, err := expr.Run(program, a.env)
	if err != nil {
		return 0, fmt.Errorf("evaluate %q: %w", expression, err)
	}

	f, ok := toFloat(result)
	if !ok {
		return 0, fmt.Errorf("expression %q produced %T, expected a number", expression, result)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("expression %q has no finite result (division by zero?)", expression)
	}
	return f, nil
}

func (a *arithmeticEvaluator) compile(expression string) (*vm.Program, error) {
	if cached, ok := a.cache.Load(expression); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(expression, expr.Env(a.env))
	if err != nil {
		return nil, err
	}
	a.cache.Store(expression, program)
	return program, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// floatifyLiterals rewrites bare integer literals as float literals
// ("1/2" → "1.0/2.0") so division follows calculator semantics instead
// of integer truncation. Digits that are part of an identifier (log2) or
// of a decimal literal are left alone.
func floatifyLiterals(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); {
		c := s[i]
		if c < '0' || c > '9' {
			b.WriteByte(c)
			i++
			continue
		}
		if i > 0 && (isIdentByte(s[i-1]) || s[i-1] == '.') {
			b.WriteByte(c)
			i++
			continue
		}
		j := i
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		b.WriteString(s[i:j])
		if j >= len(s) || s[j] != '.' {
			b.WriteString(".0")
		}
		i = j
	}
	return b.String()
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
