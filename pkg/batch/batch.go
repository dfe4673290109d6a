// Package batch runs a compiled tree against many independent variable
// environments concurrently. Per spec's exclusive-unit rule, one compiled
// tree plus one environment must never be evaluated by more than one
// goroutine at a time — this package clones both n times and evaluates each
// clone single-threaded, so the parallelism is across clones, not within one.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/st9007a/MathEX/pkg/ast"
	"github.com/st9007a/MathEX/pkg/env"
	"github.com/st9007a/MathEX/pkg/eval"
	"github.com/st9007a/MathEX/pkg/value"
)

// Clone deep-copies root and builds a fresh environment holding the same
// variable names and values, in the same creation order, as e. Handles in
// the cloned tree are re-resolved against the new environment rather than
// copied, since a *env.Variable is only a stable handle within the
// environment that created it.
func Clone(root ast.Node, e *env.Environment) (ast.Node, *env.Environment) {
	ne := env.New()
	e.Iterate(func(h env.Handle) bool {
		nh, _ := ne.LookupOrCreate(h.Name)
		nh.Value = h.Value
		return true
	})
	out := root.Clone()
	remapHandles(&out, e, ne)
	return out, ne
}

func remapHandles(n *ast.Node, oldEnv, newEnv *env.Environment) {
	if n.Op == ast.OpVar {
		if h, ok := n.Var.(env.Handle); ok && h != nil {
			if name, found := oldEnv.NameOf(h); found {
				nh, _ := newEnv.LookupOrCreate(name)
				n.Var = nh
			}
		}
	}
	for i := range n.Children {
		remapHandles(&n.Children[i], oldEnv, newEnv)
	}
	if n.Op == ast.OpFunc {
		for i := range n.Args {
			remapHandles(&n.Args[i], oldEnv, newEnv)
		}
	}
}

// Run clones root and e n times, lets assign seed each clone's variables,
// then evaluates every clone concurrently. Results come back in input
// order; if any clone's context is cancelled, Run returns the first error
// and no results. Every clone (tree and environment) is released before Run
// returns, successfully or not — callers never see the intermediate clones
// and so cannot be responsible for freeing them.
func Run(ctx context.Context, root ast.Node, e *env.Environment, n int, assign func(i int, env *env.Environment)) ([]value.Num, error) {
	if n <= 0 {
		return nil, nil
	}

	trees := make([]ast.Node, n)
	envs := make([]*env.Environment, n)
	for i := 0; i < n; i++ {
		trees[i], envs[i] = Clone(root, e)
		if assign != nil {
			assign(i, envs[i])
		}
	}
	defer func() {
		for i := 0; i < n; i++ {
			ast.Destroy(trees[i])
			envs[i].DestroyAll()
		}
	}()

	results := make([]value.Num, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = eval.Eval(trees[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
