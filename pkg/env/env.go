// Package env implements MathEX's variable environment: a named, append-only
// store of mutable values that expression trees reference by a stable
// handle.
package env

import "github.com/st9007a/MathEX/pkg/value"

// Variable is a single named cell in an Environment. Its address is its
// handle: once allocated it is never moved, copied into a new backing array,
// or reused, so a *Variable captured by a compiled tree stays valid for the
// environment's entire lifetime.
type Variable struct {
	Name  string
	Value value.Num
}

// Handle is a stable reference to a Variable cell. It is exactly a
// *Variable; the indirection exists so callers spell the concept the spec
// names rather than reaching into env internals directly.
type Handle = *Variable

// Environment owns every Variable created against it. Expression trees hold
// non-owning Handles into it and must not outlive it.
type Environment struct {
	vars []*Variable
	byName map[string]*Variable
}

// New creates an empty environment.
func New() *Environment {
	return &Environment{
		byName: make(map[string]*Variable),
	}
}

// isFirstVarChar matches the lexer's identifier-start class: bytes >= '@'
// except the two operator bytes '^' and '|', plus '$' for macro parameters.
func isFirstVarChar(c byte) bool {
	if c == '$' {
		return true
	}
	return c >= '@' && c != '^' && c != '|'
}

// LookupOrCreate returns the handle for name, allocating a zero-valued
// variable on first use. It returns ok=false without allocating anything if
// name does not start with a legal first-var-char, mirroring expr_var's
// refusal to create a variable for a malformed name.
func (e *Environment) LookupOrCreate(name string) (Handle, bool) {
	if v, found := e.byName[name]; found {
		return v, true
	}
	if len(name) == 0 || !isFirstVarChar(name[0]) {
		return nil, false
	}
	v := &Variable{Name: name}
	e.vars = append(e.vars, v)
	e.byName[name] = v
	return v, true
}

// Lookup returns the handle for an existing variable without creating one.
func (e *Environment) Lookup(name string) (Handle, bool) {
	v, found := e.byName[name]
	return v, found
}

// NameOf resolves a handle back to the name it was created with. Used by the
// macro facility, which only has a *Variable and must recover its name to
// register a macro definition under it.
func (e *Environment) NameOf(h Handle) (string, bool) {
	for _, v := range e.vars {
		if v == h {
			return v.Name, true
		}
	}
	return "", false
}

// Iterate calls fn for every variable in creation order. Iteration stops
// early if fn returns false.
func (e *Environment) Iterate(fn func(Handle) bool) {
	for _, v := range e.vars {
		if !fn(v) {
			return
		}
	}
}

// Len reports how many variables have been created.
func (e *Environment) Len() int {
	return len(e.vars)
}

// DestroyAll releases the environment's bookkeeping. Variables hold no
// external resources of their own, so this only drops references; it exists
// as the explicit release point §5 requires hosts to call once they no
// longer need the variables.
func (e *Environment) DestroyAll() {
	e.vars = nil
	e.byName = nil
}
