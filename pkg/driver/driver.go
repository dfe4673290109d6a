// Package driver provides the persistent-session facade embedders actually
// use: compile once, evaluate repeatedly, mutate variables in between, and
// release everything together at the end.
package driver

import (
	"os"

	"github.com/st9007a/MathEX/pkg/ast"
	"github.com/st9007a/MathEX/pkg/env"
	"github.com/st9007a/MathEX/pkg/errors"
	"github.com/st9007a/MathEX/pkg/eval"
	"github.com/st9007a/MathEX/pkg/funcs"
	"github.com/st9007a/MathEX/pkg/parser"
	"github.com/st9007a/MathEX/pkg/source"
	"github.com/st9007a/MathEX/pkg/value"
)

// Session bundles one environment and one function registry across several
// compilations, so variables assigned by one compiled tree are visible to
// the next, and every tree the session has ever compiled can be released
// together.
type Session struct {
	env   *env.Environment
	reg   *funcs.Registry
	trees []ast.Node
}

// NewSession creates a Session with a fresh environment and reg as its
// function table. reg is supplied once; the session never mutates it.
func NewSession(reg *funcs.Registry) *Session {
	return &Session{
		env: env.New(),
		reg: reg,
	}
}

// Compile parses src against the session's environment and registry,
// recording the resulting tree so Close can release it later.
func (s *Session) Compile(src string) (ast.Node, []errors.MathExError) {
	unit := source.FromEval(src)
	p := parser.New(unit, s.env, s.reg)
	tree, errs := p.Parse()
	if len(errs) > 0 {
		return ast.Node{}, errs
	}
	s.trees = append(s.trees, tree)
	return tree, nil
}

// Eval evaluates tree against the session's environment.
func (s *Session) Eval(tree ast.Node) value.Num {
	return eval.Eval(tree)
}

// Lookup resolves name against the session's environment without creating
// a variable, so a host can seed values before the first Eval.
func (s *Session) Lookup(name string) (env.Handle, bool) {
	return s.env.Lookup(name)
}

// Env exposes the session's environment directly, e.g. for pkg/batch.
func (s *Session) Env() *env.Environment {
	return s.env
}

// Close destroys every tree the session ever compiled (running each Func
// node's cleanup) and then the environment. Safe to call once; calling it
// again is a no-op since the tree list and the environment are already nil.
func (s *Session) Close() {
	for _, t := range s.trees {
		ast.Destroy(t)
	}
	s.trees = nil
	if s.env != nil {
		s.env.DestroyAll()
		s.env = nil
	}
}

// CompileString is the one-shot, non-persistent entry point: it builds a
// throwaway environment, compiles src against reg, and hands both the tree
// and the environment to the caller (who is then responsible for releasing
// them, typically via ast.Destroy and env.DestroyAll).
func CompileString(src string, reg *funcs.Registry) (ast.Node, *env.Environment, []errors.MathExError) {
	e := env.New()
	unit := source.FromEval(src)
	p := parser.New(unit, e, reg)
	tree, errs := p.Parse()
	if len(errs) > 0 {
		return ast.Node{}, nil, errs
	}
	return tree, e, nil
}

// CompileFile reads path and compiles it exactly as CompileString does,
// wrapping a read failure as a single ResourceError.
func CompileFile(path string, reg *funcs.Registry) (ast.Node, *env.Environment, []errors.MathExError) {
	content, err := os.ReadFile(path)
	if err != nil {
		return ast.Node{}, nil, []errors.MathExError{&errors.ResourceError{Msg: "reading " + path + ": " + err.Error()}}
	}
	e := env.New()
	unit := source.FromFile(path, string(content))
	p := parser.New(unit, e, reg)
	tree, errs := p.Parse()
	if len(errs) > 0 {
		return ast.Node{}, nil, errs
	}
	return tree, e, nil
}
