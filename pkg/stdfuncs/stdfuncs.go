// Package stdfuncs is an example host function set: a handful of stateless
// math functions plus one stateful accumulator exercising ctx_size and
// cleanup end to end. Neither pkg/funcs nor pkg/eval import this package —
// embedders register whatever function table fits their host.
package stdfuncs

import (
	"math"

	"github.com/st9007a/MathEX/pkg/ast"
	"github.com/st9007a/MathEX/pkg/funcs"
	"github.com/st9007a/MathEX/pkg/value"
)

func sqrtInvoke(d *ast.Descriptor, args []ast.Node, ctx []byte, eval ast.EvalFunc) value.Num {
	if len(args) < 1 {
		return value.Num(math.NaN())
	}
	return value.Num(math.Sqrt(float64(eval(args[0]))))
}

func absInvoke(d *ast.Descriptor, args []ast.Node, ctx []byte, eval ast.EvalFunc) value.Num {
	if len(args) < 1 {
		return value.Zero
	}
	n := eval(args[0])
	if n < 0 {
		return -n
	}
	return n
}

func minInvoke(d *ast.Descriptor, args []ast.Node, ctx []byte, eval ast.EvalFunc) value.Num {
	if len(args) < 2 {
		return value.Zero
	}
	a, b := eval(args[0]), eval(args[1])
	if a < b {
		return a
	}
	return b
}

func maxInvoke(d *ast.Descriptor, args []ast.Node, ctx []byte, eval ast.EvalFunc) value.Num {
	if len(args) < 2 {
		return value.Zero
	}
	a, b := eval(args[0]), eval(args[1])
	if a > b {
		return a
	}
	return b
}

// sumCtxSize is one Num packed into its 4-byte IEEE 754 binary32 encoding —
// the context block a Func node's Ctx field physically carries.
const sumCtxSize = 4

func loadSum(ctx []byte) value.Num {
	bits := uint32(ctx[0]) | uint32(ctx[1])<<8 | uint32(ctx[2])<<16 | uint32(ctx[3])<<24
	return value.Num(math.Float32frombits(bits))
}

func storeSum(ctx []byte, n value.Num) {
	bits := math.Float32bits(float32(n))
	ctx[0] = byte(bits)
	ctx[1] = byte(bits >> 8)
	ctx[2] = byte(bits >> 16)
	ctx[3] = byte(bits >> 24)
}

// sumInvoke accumulates its argument into ctx across repeated evaluations of
// the Func node it is bound to, and returns the running total.
func sumInvoke(d *ast.Descriptor, args []ast.Node, ctx []byte, eval ast.EvalFunc) value.Num {
	if len(args) < 1 {
		return loadSum(ctx)
	}
	total := loadSum(ctx) + eval(args[0])
	storeSum(ctx, total)
	return total
}

// sumCleanup zeroes ctx so a destroyed sum() node's context block is inert
// before its memory is released.
func sumCleanup(d *ast.Descriptor, ctx []byte) {
	for i := range ctx {
		ctx[i] = 0
	}
}

// Register adds sqrt, abs, min, max and sum to reg.
func Register(reg *funcs.Registry) {
	reg.Register(&funcs.Descriptor{Name: "sqrt", Invoke: sqrtInvoke})
	reg.Register(&funcs.Descriptor{Name: "abs", Invoke: absInvoke})
	reg.Register(&funcs.Descriptor{Name: "min", Invoke: minInvoke})
	reg.Register(&funcs.Descriptor{Name: "max", Invoke: maxInvoke})
	reg.Register(&funcs.Descriptor{
		Name:    "sum",
		Invoke:  sumInvoke,
		CtxSize: sumCtxSize,
		Cleanup: sumCleanup,
	})
}
