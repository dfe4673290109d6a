// Package ast defines MathEX's expression tree: a tagged-variant node type,
// its ownership shape, and its destruction discipline.
package ast

import "github.com/st9007a/MathEX/pkg/value"

// Op tags the node variants. Leaves (Const, Var) carry no children; unary
// ops own exactly one child; binary ops own exactly two, in a fixed
// [lhs, rhs] order; Func owns an ordered argument list plus an optional
// context block.
type Op int

const (
	OpConst Op = iota
	OpVar

	OpUnaryMinus
	OpLogicalNot
	OpBitwiseNot

	OpPower
	OpMultiply
	OpDivide
	OpRemainder
	OpPlus
	OpMinus
	OpShl
	OpShr
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpBitAnd
	OpBitOr
	OpBitXor
	OpLogicalAnd
	OpLogicalOr
	OpAssign
	OpComma

	OpFunc
)

// IsUnary reports whether op owns exactly one child.
func (op Op) IsUnary() bool {
	switch op {
	case OpUnaryMinus, OpLogicalNot, OpBitwiseNot:
		return true
	}
	return false
}

// IsBinary reports whether op owns exactly two children in [lhs, rhs] order.
func (op Op) IsBinary() bool {
	switch op {
	case OpPower, OpMultiply, OpDivide, OpRemainder, OpPlus, OpMinus,
		OpShl, OpShr, OpLt, OpLe, OpGt, OpGe, OpEq, OpNe,
		OpBitAnd, OpBitOr, OpBitXor, OpLogicalAnd, OpLogicalOr,
		OpAssign, OpComma:
		return true
	}
	return false
}

// Handle is a non-owning reference to a variable cell. ast does not depend
// on pkg/env to avoid a cycle (env variables are created by the parser, not
// by the tree); a Handle is any comparable value stable for the lifetime of
// the environment that created it. pkg/env's *Variable satisfies this.
type Handle interface{}

// EvalFunc evaluates a single subtree; handed to a Func node's Invoke so a
// host function can choose which arguments to evaluate, lazily or not.
type EvalFunc func(Node) value.Num

// InvokeFunc is a host-registered callable bound into a Func node.
type InvokeFunc func(d *Descriptor, args []Node, ctx []byte, eval EvalFunc) value.Num

// CleanupFunc tears down a Func node's context block before it is released.
type CleanupFunc func(d *Descriptor, ctx []byte)

// Descriptor is a registered function: name, callable, desired per-call-site
// context size, and an optional cleanup hook. A compiled Func node holds a
// pointer to the Descriptor it was bound to at parse time.
type Descriptor struct {
	Name    string
	Invoke  InvokeFunc
	CtxSize int
	Cleanup CleanupFunc
}

// Node is one expression tree node. Only the fields relevant to Op are
// populated; this is Go's answer to a tagged union/discriminated variant —
// children live inline in an ordered slice owned by the parent rather than
// as a scattered pointer graph.
type Node struct {
	Op    Op
	Const value.Num // valid when Op == OpConst
	Var   Handle    // valid when Op == OpVar

	Children []Node // 1 for unary, 2 for binary (fixed [lhs, rhs] order)

	Func *Descriptor // valid when Op == OpFunc
	Args []Node      // valid when Op == OpFunc, ordered, owned
	Ctx  []byte       // valid when Op == OpFunc, owned, len == Func.CtxSize
}

// ConstNode builds a constant leaf.
func ConstNode(n value.Num) Node {
	return Node{Op: OpConst, Const: n}
}

// VarNode builds a variable leaf referencing h.
func VarNode(h Handle) Node {
	return Node{Op: OpVar, Var: h}
}

// Unary builds a unary node owning child.
func Unary(op Op, child Node) Node {
	return Node{Op: op, Children: []Node{child}}
}

// Binary builds a binary node owning lhs and rhs in that order.
func Binary(op Op, lhs, rhs Node) Node {
	return Node{Op: op, Children: []Node{lhs, rhs}}
}

// Call builds a Func node bound to d with the given argument subtrees and a
// freshly zeroed context block sized per d.CtxSize (nil when CtxSize == 0).
func Call(d *Descriptor, args []Node) Node {
	var ctx []byte
	if d.CtxSize > 0 {
		ctx = make([]byte, d.CtxSize)
	}
	return Node{Op: OpFunc, Func: d, Args: args, Ctx: ctx}
}

// Clone deep-copies n, including Func context blocks (freshly zeroed, not
// copied byte-for-byte — a clone starts a new call site, not a continuation
// of the original's accumulated state). Used by macro expansion to splice an
// independent copy of a macro body into the tree under construction, and by
// pkg/batch to produce independently-evaluable clones for parallel eval.
func (n Node) Clone() Node {
	out := Node{Op: n.Op, Const: n.Const, Var: n.Var, Func: n.Func}
	if n.Children != nil {
		out.Children = make([]Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	if n.Op == OpFunc {
		out.Args = make([]Node, len(n.Args))
		for i, a := range n.Args {
			out.Args[i] = a.Clone()
		}
		if n.Func != nil && n.Func.CtxSize > 0 {
			out.Ctx = make([]byte, n.Func.CtxSize)
		}
	}
	return out
}

// precedence follows spec's table: level 1 binds tightest. Unary ops and
// Power/Assign/Comma are right-to-left; everything else is left-to-right.
var precedence = map[Op]int{
	OpUnaryMinus: 1, OpLogicalNot: 1, OpBitwiseNot: 1,
	OpPower: 2, OpMultiply: 2, OpDivide: 2, OpRemainder: 2,
	OpPlus: 3, OpMinus: 3,
	OpShl: 4, OpShr: 4,
	OpLt: 5, OpLe: 5, OpGt: 5, OpGe: 5, OpEq: 5, OpNe: 5,
	OpBitAnd: 6,
	OpBitOr:  7,
	OpBitXor: 8,
	OpLogicalAnd: 9,
	OpLogicalOr:  10,
	OpAssign:     11,
	OpComma:      12,
}

// Precedence returns op's binding level (lower binds tighter).
func Precedence(op Op) int { return precedence[op] }

// isLeftAssocBinary reports whether op reduces left-to-right when chained:
// true for every binary op except Power, Assign and Comma, false for unary
// ops (they have no chaining direction of their own).
func isLeftAssocBinary(op Op) bool {
	return op.IsBinary() && op != OpAssign && op != OpPower && op != OpComma
}

// ShouldReduce reports whether the operator on top of the parser's operator
// stack should be bound into a tree node before newOp is pushed. Mirrors the
// reference shunting-yard's expr_prec: a left-associative newOp pops any
// stack top of equal-or-tighter precedence; a right-associative or unary
// newOp (Power, Assign, Comma, or any unary op) pops only a strictly
// tighter-binding top, which is what makes "2**3**2" and chained "a=b=c"
// group to the right.
func ShouldReduce(newOp, top Op) bool {
	if isLeftAssocBinary(newOp) && precedence[newOp] >= precedence[top] {
		return true
	}
	return precedence[newOp] > precedence[top]
}

// Destroy releases n post-order, running each Func node's descriptor
// cleanup (if any) on its context block before dropping it. Var nodes
// release nothing — the environment owns the variable, not the tree.
func Destroy(n Node) {
	for _, c := range n.Children {
		Destroy(c)
	}
	if n.Op == OpFunc {
		for _, a := range n.Args {
			Destroy(a)
		}
		if n.Ctx != nil && n.Func != nil && n.Func.Cleanup != nil {
			n.Func.Cleanup(n.Func, n.Ctx)
		}
	}
}
