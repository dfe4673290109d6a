// Package value defines MathEX's single numeric value type and its
// integer view used by the bitwise and shift operators.
package value

import "math"

// Num is the one value type expressions produce and variables hold. It
// mirrors IEEE 754 binary32 semantics, matching the host float math the
// original evaluator relies on for +/-Inf and NaN propagation.
type Num float32

// Zero is the value every newly-created variable starts at and the value
// produced by an empty expression.
const Zero Num = 0

// Bool converts a Go boolean into the canonical truthy/falsey Num used by
// comparison operators.
func Bool(b bool) Num {
	if b {
		return 1
	}
	return 0
}

// Truthy reports whether n should be treated as "true" by short-circuit
// operators: anything other than exactly zero.
func (n Num) Truthy() bool {
	return n != 0
}

// ToInt converts n to its Int32 view for bitwise/shift operators. NaN maps
// to 0, +Inf to math.MaxInt32, -Inf to math.MinInt32, and finite values are
// truncated toward zero.
func (n Num) ToInt() int32 {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return 0
	case math.IsInf(f, 1):
		return math.MaxInt32
	case math.IsInf(f, -1):
		return math.MinInt32
	default:
		return int32(f)
	}
}

// FromInt re-widens an Int32 bitwise/shift result back into Num.
func FromInt(i int32) Num {
	return Num(i)
}

// Pow implements the `**` operator via the host's float power function.
func Pow(a, b Num) Num {
	return Num(math.Pow(float64(a), float64(b)))
}

// Mod implements the `%` operator via the host's float modulo function.
func Mod(a, b Num) Num {
	return Num(math.Mod(float64(a), float64(b)))
}
