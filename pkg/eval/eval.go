// Package eval walks a compiled ast.Node tree and produces a value.Num,
// mutating the environment as assignments are encountered. It implements
// only the recursive evaluation semantics; MathEX has no iterative or
// bytecode evaluator.
package eval

import (
	"math"

	"github.com/st9007a/MathEX/pkg/ast"
	"github.com/st9007a/MathEX/pkg/env"
	"github.com/st9007a/MathEX/pkg/value"
)

// Eval walks n and returns its value, following the left-to-right,
// in-order-side-effect semantics of spec §4.G.
func Eval(n ast.Node) value.Num {
	switch n.Op {
	case ast.OpConst:
		return n.Const

	case ast.OpVar:
		h, ok := n.Var.(env.Handle)
		if !ok || h == nil {
			return value.Zero
		}
		return h.Value

	case ast.OpUnaryMinus:
		return -Eval(n.Children[0])

	case ast.OpLogicalNot:
		return value.Bool(!Eval(n.Children[0]).Truthy())

	case ast.OpBitwiseNot:
		return value.FromInt(^Eval(n.Children[0]).ToInt())

	case ast.OpPower:
		return value.Pow(Eval(n.Children[0]), Eval(n.Children[1]))

	case ast.OpMultiply:
		return Eval(n.Children[0]) * Eval(n.Children[1])

	case ast.OpDivide:
		return Eval(n.Children[0]) / Eval(n.Children[1])

	case ast.OpRemainder:
		return value.Mod(Eval(n.Children[0]), Eval(n.Children[1]))

	case ast.OpPlus:
		return Eval(n.Children[0]) + Eval(n.Children[1])

	case ast.OpMinus:
		return Eval(n.Children[0]) - Eval(n.Children[1])

	case ast.OpShl:
		return value.FromInt(Eval(n.Children[0]).ToInt() << uint(Eval(n.Children[1]).ToInt()))

	case ast.OpShr:
		return value.FromInt(Eval(n.Children[0]).ToInt() >> uint(Eval(n.Children[1]).ToInt()))

	case ast.OpLt:
		return value.Bool(Eval(n.Children[0]) < Eval(n.Children[1]))

	case ast.OpLe:
		return value.Bool(Eval(n.Children[0]) <= Eval(n.Children[1]))

	case ast.OpGt:
		return value.Bool(Eval(n.Children[0]) > Eval(n.Children[1]))

	case ast.OpGe:
		return value.Bool(Eval(n.Children[0]) >= Eval(n.Children[1]))

	case ast.OpEq:
		return value.Bool(Eval(n.Children[0]) == Eval(n.Children[1]))

	case ast.OpNe:
		return value.Bool(Eval(n.Children[0]) != Eval(n.Children[1]))

	case ast.OpBitAnd:
		return value.FromInt(Eval(n.Children[0]).ToInt() & Eval(n.Children[1]).ToInt())

	case ast.OpBitOr:
		return value.FromInt(Eval(n.Children[0]).ToInt() | Eval(n.Children[1]).ToInt())

	case ast.OpBitXor:
		return value.FromInt(Eval(n.Children[0]).ToInt() ^ Eval(n.Children[1]).ToInt())

	case ast.OpLogicalAnd:
		a := Eval(n.Children[0])
		if !a.Truthy() {
			return value.Zero
		}
		b := Eval(n.Children[1])
		if b.Truthy() {
			return b
		}
		return value.Zero

	case ast.OpLogicalOr:
		a := Eval(n.Children[0])
		if a.Truthy() && !math.IsNaN(float64(a)) {
			return a
		}
		b := Eval(n.Children[1])
		if b.Truthy() {
			return b
		}
		return value.Zero

	case ast.OpAssign:
		v := Eval(n.Children[1])
		if h, ok := n.Children[0].Var.(env.Handle); ok && h != nil {
			h.Value = v
		}
		return v

	case ast.OpComma:
		Eval(n.Children[0])
		return Eval(n.Children[1])

	case ast.OpFunc:
		return n.Func.Invoke(n.Func, n.Args, n.Ctx, Eval)

	default:
		return value.Num(math.NaN())
	}
}
