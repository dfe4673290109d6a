package batch_test

import (
	"context"
	"testing"

	"github.com/st9007a/MathEX/pkg/ast"
	"github.com/st9007a/MathEX/pkg/batch"
	"github.com/st9007a/MathEX/pkg/env"
	"github.com/st9007a/MathEX/pkg/errors"
	"github.com/st9007a/MathEX/pkg/funcs"
	"github.com/st9007a/MathEX/pkg/parser"
	"github.com/st9007a/MathEX/pkg/source"
)

func compile(t *testing.T, src string, e *env.Environment) ast.Node {
	t.Helper()
	p := parser.New(source.FromEval(src), e, funcs.NewRegistry())
	tree, errs := p.Parse()
	if len(errs) > 0 {
		t.Fatalf("compile(%q): %s", src, errors.Display(errs))
	}
	return tree
}

func TestRunEvaluatesEachCloneIndependently(t *testing.T) {
	e := env.New()
	tree := compile(t, "x * x", e)

	results, err := batch.Run(context.Background(), tree, e, 5, func(i int, clone *env.Environment) {
		h, _ := clone.LookupOrCreate("x")
		h.Value = float32(i)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []float32{0, 1, 4, 9, 16}
	for i, w := range want {
		if float32(results[i]) != w {
			t.Fatalf("results[%d] = %v, want %v", i, results[i], w)
		}
	}
}

func TestCloneDoesNotShareHandlesWithOriginal(t *testing.T) {
	e := env.New()
	h, _ := e.LookupOrCreate("x")
	h.Value = 10
	tree := compile(t, "x", e)

	clonedTree, clonedEnv := batch.Clone(tree, e)
	ch, _ := clonedEnv.LookupOrCreate("x")
	ch.Value = 99

	if h.Value != 10 {
		t.Fatalf("mutating the clone's environment leaked back into the original: x = %v", h.Value)
	}
	if clonedTree.Var == tree.Var {
		t.Fatalf("clone's Var node shares a handle with the original tree")
	}
}

func TestRunCancelledContext(t *testing.T) {
	e := env.New()
	tree := compile(t, "x", e)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := batch.Run(ctx, tree, e, 3, nil)
	if err == nil {
		t.Fatalf("expected an error from a pre-cancelled context")
	}
}
