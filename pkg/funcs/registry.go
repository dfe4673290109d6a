// Package funcs implements MathEX's function registry: a read-only-during-
// compile lookup of host-provided callables, keyed by name.
package funcs

import "github.com/st9007a/MathEX/pkg/ast"

// Descriptor, InvokeFunc, CleanupFunc and EvalFunc are defined in pkg/ast
// (a Func tree node must embed a *Descriptor directly, and ast cannot import
// funcs without a cycle). Registry is the lookup half of the contract.
type Descriptor = ast.Descriptor
type InvokeFunc = ast.InvokeFunc
type CleanupFunc = ast.CleanupFunc
type EvalFunc = ast.EvalFunc

// Registry is a name -> *Descriptor table. Hosts populate it before
// compiling; the parser only ever reads it.
type Registry struct {
	byName map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Descriptor)}
}

// Register adds d, keyed by d.Name, replacing any earlier descriptor of the
// same name.
func (r *Registry) Register(d *Descriptor) {
	r.byName[d.Name] = d
}

// Find looks up a descriptor by name.
func (r *Registry) Find(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}
