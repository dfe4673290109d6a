package parser_test

import (
	"testing"

	"github.com/st9007a/MathEX/pkg/ast"
	"github.com/st9007a/MathEX/pkg/env"
	"github.com/st9007a/MathEX/pkg/eval"
	"github.com/st9007a/MathEX/pkg/funcs"
	"github.com/st9007a/MathEX/pkg/parser"
	"github.com/st9007a/MathEX/pkg/source"
	"github.com/st9007a/MathEX/pkg/value"
)

func parse(t *testing.T, src string) (ast.Node, *env.Environment, *funcs.Registry) {
	t.Helper()
	e := env.New()
	reg := funcs.NewRegistry()
	p := parser.New(source.FromEval(src), e, reg)
	tree, errs := p.Parse()
	if len(errs) > 0 {
		t.Fatalf("compile(%q) failed: %v", src, errs[0])
	}
	return tree, e, reg
}

func TestPrecedenceGrouping(t *testing.T) {
	tree, _, _ := parse(t, "2 + 3 * 4")
	if tree.Op != ast.OpPlus {
		t.Fatalf("root should be '+', got %v", tree.Op)
	}
	if tree.Children[1].Op != ast.OpMultiply {
		t.Fatalf("'*' should bind tighter and sit under '+': %+v", tree)
	}
}

func TestExplicitGroupingOverridesPrecedence(t *testing.T) {
	tree, _, _ := parse(t, "(2 + 3) * 4")
	if tree.Op != ast.OpMultiply {
		t.Fatalf("root should be '*', got %v", tree.Op)
	}
	if tree.Children[0].Op != ast.OpPlus {
		t.Fatalf("parenthesized '+' should sit under '*': %+v", tree)
	}
}

func TestPowerIsRightAssociative(t *testing.T) {
	tree, _, _ := parse(t, "2 ** 3 ** 2")
	got := eval.Eval(tree)
	if got != 512 { // 2**(3**2) = 2**9 = 512, not (2**3)**2 = 64
		t.Fatalf("got %v want 512", got)
	}
}

func TestNewlineActsAsTopLevelComma(t *testing.T) {
	tree, _, _ := parse(t, "x = 1\nx + 1")
	got := eval.Eval(tree)
	if got != 2 {
		t.Fatalf("got %v want 2", got)
	}
}

func TestAssignRejectsNonVariableLHS(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	p := parser.New(source.FromEval("1 = 2"), e, reg)
	_, errs := p.Parse()
	if len(errs) == 0 {
		t.Fatalf("expected a structural error assigning into a non-variable")
	}
}

func TestUnbalancedParens(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	p := parser.New(source.FromEval("(1 + 2"), e, reg)
	_, errs := p.Parse()
	if len(errs) == 0 {
		t.Fatalf("expected an unbalanced-parentheses error")
	}
}

func TestUnknownFunctionCallIsRejected(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	p := parser.New(source.FromEval("notafunction(1)"), e, reg)
	_, errs := p.Parse()
	if len(errs) == 0 {
		t.Fatalf("expected an error calling an unregistered name")
	}
}

func TestFunctionCallDispatchesToRegistry(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	reg.Register(&ast.Descriptor{
		Name: "double",
		Invoke: func(d *ast.Descriptor, args []ast.Node, ctx []byte, ev ast.EvalFunc) value.Num {
			return ev(args[0]) * 2
		},
	})
	p := parser.New(source.FromEval("double(21)"), e, reg)
	tree, errs := p.Parse()
	if len(errs) > 0 {
		t.Fatalf("compile failed: %v", errs[0])
	}
	if got := eval.Eval(tree); got != 42 {
		t.Fatalf("got %v want 42", got)
	}
}

func TestMacroDefinitionYieldsZero(t *testing.T) {
	tree, _, _ := parse(t, "$(sq, $1 * $1)")
	got := eval.Eval(tree)
	if got != 0 {
		t.Fatalf("a macro definition's own value should be 0, got %v", got)
	}
}

func TestMacroCallSite(t *testing.T) {
	tree, _, _ := parse(t, "$(sq, $1 * $1), sq(9)")
	got := eval.Eval(tree)
	if got != 81 {
		t.Fatalf("got %v want 81", got)
	}
}

func TestMalformedMacroMissingVariable(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	p := parser.New(source.FromEval("$()"), e, reg)
	_, errs := p.Parse()
	if len(errs) == 0 {
		t.Fatalf("expected an error for $() missing its variable argument")
	}
}

func TestTooFewOperandsIsRejected(t *testing.T) {
	e := env.New()
	reg := funcs.NewRegistry()
	p := parser.New(source.FromEval("+ 1"), e, reg)
	_, errs := p.Parse()
	// '+' is not one of the accepted one-character unary forms (-, !, ^),
	// so this is rejected by the lexer as a missing operand, before the
	// parser ever sees a binding attempt.
	if len(errs) == 0 {
		t.Fatalf("expected a missing-operand error")
	}
}

func TestEmptyInputYieldsZero(t *testing.T) {
	tree, _, _ := parse(t, "")
	if tree.Op != ast.OpConst || tree.Const != 0 {
		t.Fatalf("empty input should compile to Const(0), got %+v", tree)
	}
}
