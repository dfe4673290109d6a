package eval_test

import (
	"math"
	"testing"

	"github.com/st9007a/MathEX/pkg/ast"
	"github.com/st9007a/MathEX/pkg/env"
	"github.com/st9007a/MathEX/pkg/errors"
	"github.com/st9007a/MathEX/pkg/eval"
	"github.com/st9007a/MathEX/pkg/funcs"
	"github.com/st9007a/MathEX/pkg/parser"
	"github.com/st9007a/MathEX/pkg/source"
	"github.com/st9007a/MathEX/pkg/value"
)

func mustCompile(t *testing.T, src string, e *env.Environment, reg *funcs.Registry) value.Num {
	t.Helper()
	unit := source.FromEval(src)
	p := parser.New(unit, e, reg)
	tree, errs := p.Parse()
	if len(errs) > 0 {
		t.Fatalf("compile(%q): %s", src, errors.Display(errs))
	}
	return eval.Eval(tree)
}

func near(a, b value.Num) bool {
	return math.Abs(float64(a)-float64(b)) < 1e-4
}

func TestArithmeticMatrix(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  value.Num
	}{
		{"add", "1 + 2", 3},
		{"sub", "5 - 8", -3},
		{"mul", "3 * 4", 12},
		{"div", "7 / 2", 3.5},
		{"remainder", "7 % 2", 1},
		{"power", "2 ** 10", 1024},
		{"power_right_assoc", "2 ** 3 ** 2", 512}, // 2**(3**2), not (2**2)**3
		{"unary_minus", "-5 + 3", -2},
		{"precedence", "2 + 3 * 4", 14},
		{"grouping", "(2 + 3) * 4", 20},
		{"shl", "1 << 4", 16},
		{"shr", "256 >> 4", 16},
		{"bitand", "12 & 10", 8},
		{"bitor", "12 | 3", 15},
		{"bitxor", "12 ^ 10", 6},
		{"bitnot", "^0", -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := env.New()
			reg := funcs.NewRegistry()
			got := mustCompile(t, tc.input, e, reg)
			if !near(got, tc.want) {
				t.Fatalf("%s: got %v want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestComparisonMatrix(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  value.Num
	}{
		{"lt_true", "1 < 2", 1},
		{"lt_false", "2 < 1", 0},
		{"le_eq", "2 <= 2", 1},
		{"gt_true", "3 > 2", 1},
		{"ge_true", "2 >= 2", 1},
		{"eq_true", "2 == 2", 1},
		{"ne_true", "2 != 3", 1},
		{"ne_false", "2 != 2", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := env.New()
			reg := funcs.NewRegistry()
			got := mustCompile(t, tc.input, e, reg)
			if got != tc.want {
				t.Fatalf("%s: got %v want %v", tc.input, got, tc.want)
			}
		})
	}
}

// TestLogicalAndShortCircuit checks invariant 4: if a is 0, b's side effect
// (an assignment) must not be observed.
func TestLogicalAndShortCircuit(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	got := mustCompile(t, "0 && (y = 99)", e, reg)
	if got != 0 {
		t.Fatalf("got %v want 0", got)
	}
	h, ok := e.Lookup("y")
	if ok && h.Value != 0 {
		t.Fatalf("b's side effect leaked through a short-circuited &&: y = %v", h.Value)
	}
}

// TestLogicalAndValue checks that a truthy && returns b's raw value, not a
// canonicalized 1.
func TestLogicalAndValue(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	got := mustCompile(t, "1 && 5", e, reg)
	if got != 5 {
		t.Fatalf("got %v want 5 (raw rhs value, not canonicalized)", got)
	}
}

func TestLogicalOrShortCircuit(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	got := mustCompile(t, "3 || (y = 99)", e, reg)
	if got != 3 {
		t.Fatalf("got %v want 3", got)
	}
	h, ok := e.Lookup("y")
	if ok && h.Value != 0 {
		t.Fatalf("b's side effect leaked through a short-circuited ||: y = %v", h.Value)
	}
}

func TestLogicalOrFallthrough(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	got := mustCompile(t, "0 || 7", e, reg)
	if got != 7 {
		t.Fatalf("got %v want 7", got)
	}
}

func TestAssignReturnsValueAndMutatesEnv(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	got := mustCompile(t, "x = 42", e, reg)
	if got != 42 {
		t.Fatalf("assign expression evaluated to %v, want 42", got)
	}
	h, ok := e.Lookup("x")
	if !ok || h.Value != 42 {
		t.Fatalf("env[x] = %v, want 42", h)
	}
}

func TestComma(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	got := mustCompile(t, "x = 1, x = 2, x + 1", e, reg)
	if got != 3 {
		t.Fatalf("got %v want 3", got)
	}
}

// TestReevaluationIsStable checks invariant 2: re-evaluating a pure tree
// twice without intervening assignment yields the same result.
func TestReevaluationIsStable(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	unit := source.FromEval("x = 3, x * x + 1")
	p := parser.New(unit, e, reg)
	tree, errs := p.Parse()
	if len(errs) > 0 {
		t.Fatalf("compile: %s", errors.Display(errs))
	}
	first := eval.Eval(tree)
	second := eval.Eval(tree)
	if first != second {
		t.Fatalf("re-evaluation diverged: %v != %v", first, second)
	}
}

// TestMacroExpansion exercises $(name, body...) definition and call-site
// expansion. The macro body reaches the call's actual argument only through
// $1, $2, ...; a body referencing its own name-carrier variable is not
// rebound by expansion, only $N is.
func TestMacroExpansion(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	got := mustCompile(t, "$(sq, $1 * $1), sq(7)", e, reg)
	if got != 49 {
		t.Fatalf("got %v want 49", got)
	}
}

func TestMacroExpansionMultiArg(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	got := mustCompile(t, "$(add3, $1 + $2 + $3), add3(1, 2, 3)", e, reg)
	if got != 6 {
		t.Fatalf("got %v want 6", got)
	}
}

func TestFuncDispatch(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	reg.Register(&ast.Descriptor{
		Name: "double",
		Invoke: func(d *ast.Descriptor, args []ast.Node, ctx []byte, eval ast.EvalFunc) value.Num {
			return eval(args[0]) * 2
		},
	})
	got := mustCompile(t, "double(21)", e, reg)
	if got != 42 {
		t.Fatalf("got %v want 42", got)
	}
}

// TestFuncLazyArguments checks that a host function sees argument subtrees,
// not pre-evaluated values, and may skip evaluating one.
func TestFuncLazyArguments(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	reg.Register(&ast.Descriptor{
		Name: "first",
		Invoke: func(d *ast.Descriptor, args []ast.Node, ctx []byte, eval ast.EvalFunc) value.Num {
			return eval(args[0])
		},
	})
	got := mustCompile(t, "first(5, y = 99)", e, reg)
	if got != 5 {
		t.Fatalf("got %v want 5", got)
	}
	if h, ok := e.Lookup("y"); ok && h.Value != 0 {
		t.Fatalf("second argument was evaluated despite the callee never calling eval on it: y = %v", h.Value)
	}
}
