// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package value

import "math"

// ValueAlgebra evaluates Expr nodes against the Bool < UInt < Int < Real
// promotion lattice (§4.B.2). Every binary/unary entry point here mirrors one
// operator overload of the language this compiler is ported from: when both
// operands are atomic the op is evaluated eagerly to a concrete atomic
// Value; when either operand is non-atomic (VariableRef not yet resolved,
// Dim, Node, ...) the op is deferred by building a symbolic Expr instead.

// Resolve evaluates v to its most concrete form: a VariableRef leaf is
// replaced by its referenced variable's (itself resolved) value, and an
// Expr node is evaluated bottom-up through BinaryOp/UnaryOp once its
// operands are resolved. Every other variant is returned unchanged. This
// is what a repeat-count or axis expression goes through once variable
// resolution (VariableGraph.Build) has already substituted every
// reference - there is nothing left to do but fold the arithmetic.
func Resolve(v *Value) (*Value, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Kind {
	case KindVariableRef:
		if v.Ref == nil {
			return v, nil
		}
		return Resolve(v.Ref.RefValue())
	case KindExpr:
		lhs, err := Resolve(v.ExprLHS)
		if err != nil {
			return nil, err
		}
		if v.ExprRHS == nil {
			return UnaryOp(v.ExprOp, lhs), nil
		}
		rhs, err := Resolve(v.ExprRHS)
		if err != nil {
			return nil, err
		}
		return BinaryOp(v.ExprOp, lhs, rhs), nil
	default:
		return v, nil
	}
}

// BinaryOp evaluates lhs <op> rhs for a binary operator. Both operands
// should already be built (no unresolved VariableRef); a caller that still
// holds one builds a symbolic Expr by construction, matching the promotion
// table's fallback arm.
func BinaryOp(op Op, lhs, rhs *Value) *Value {
	if op.IsUnary() {
		panic("value: BinaryOp called with a unary operator")
	}
	if !lhs.Kind.IsAtomic() || !rhs.Kind.IsAtomic() {
		return NewExpr(op, lhs, rhs)
	}
	switch op {
	case OpAdd:
		return arith(lhs, rhs, op, func(a, b float64) float64 { return a + b },
			func(a, b int64) int64 { return a + b }, func(a, b uint64) uint64 { return a + b })
	case OpSub:
		return arith(lhs, rhs, op, func(a, b float64) float64 { return a - b },
			func(a, b int64) int64 { return a - b }, func(a, b uint64) uint64 { return a - b })
	case OpMul:
		return arith(lhs, rhs, op, func(a, b float64) float64 { return a * b },
			func(a, b int64) int64 { return a * b }, func(a, b uint64) uint64 { return a * b })
	case OpDiv:
		return arith(lhs, rhs, op, func(a, b float64) float64 { return a / b },
			func(a, b int64) int64 { return a / b }, func(a, b uint64) uint64 { return a / b })
	case OpMod:
		return arith(lhs, rhs, op, math.Mod,
			func(a, b int64) int64 { return a % b }, func(a, b uint64) uint64 { return a % b })
	case OpMulInt:
		return mulInt(lhs, rhs)
	case OpPow:
		return powOp(lhs, rhs)
	case OpAnd:
		return logical(lhs, rhs, op, func(a, b bool) bool { return a && b },
			func(a, b int64) int64 { return a & b }, func(a, b uint64) uint64 { return a & b })
	case OpOr:
		return logical(lhs, rhs, op, func(a, b bool) bool { return a || b },
			func(a, b int64) int64 { return a | b }, func(a, b uint64) uint64 { return a | b })
	case OpXor:
		return logical(lhs, rhs, op, func(a, b bool) bool { return a != b },
			func(a, b int64) int64 { return a ^ b }, func(a, b uint64) uint64 { return a ^ b })
	default:
		return NewExpr(op, lhs, rhs)
	}
}

// UnaryOp evaluates <op> operand for a unary operator (Pos, Neg).
func UnaryOp(op Op, operand *Value) *Value {
	if !op.IsUnary() {
		panic("value: UnaryOp called with a binary operator")
	}
	if op == OpPos {
		return operand
	}
	if !operand.Kind.IsAtomic() {
		return NewExpr(op, operand, nil)
	}
	switch operand.Kind {
	case KindBool:
		b := int64(0)
		if operand.Bool {
			b = 1
		}
		return NewInt(-b)
	case KindUInt:
		return NewInt(-int64(operand.UInt))
	case KindInt:
		return NewInt(-operand.Int)
	case KindReal:
		return NewReal(-operand.Real)
	default:
		return NewExpr(op, operand, nil)
	}
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// arith evaluates a +,-,*,/,% style operator across the promotion lattice:
// Bool+Bool stays integral (Int, since the lattice has no native Bool
// result for arithmetic), same-kind pairs stay in that kind, and any
// mismatched pair promotes to the wider of the two (UInt < Int < Real).
func arith(lhs, rhs *Value, op Op, onReal func(a, b float64) float64, onInt func(a, b int64) int64, onUInt func(a, b uint64) uint64) *Value {
	switch {
	case lhs.Kind == KindBool && rhs.Kind == KindBool:
		return NewInt(onInt(b2i(lhs.Bool), b2i(rhs.Bool)))
	case lhs.Kind == KindBool && rhs.Kind == KindUInt:
		return NewUInt(onUInt(b2u(lhs.Bool), rhs.UInt))
	case lhs.Kind == KindBool && rhs.Kind == KindInt:
		return NewInt(onInt(b2i(lhs.Bool), rhs.Int))
	case lhs.Kind == KindBool && rhs.Kind == KindReal:
		return NewReal(onReal(b2f(lhs.Bool), rhs.Real))
	case lhs.Kind == KindUInt && rhs.Kind == KindBool:
		return NewUInt(onUInt(lhs.UInt, b2u(rhs.Bool)))
	case lhs.Kind == KindUInt && rhs.Kind == KindUInt:
		return NewUInt(onUInt(lhs.UInt, rhs.UInt))
	case lhs.Kind == KindUInt && rhs.Kind == KindInt:
		return NewInt(onInt(int64(lhs.UInt), rhs.Int))
	case lhs.Kind == KindUInt && rhs.Kind == KindReal:
		return NewReal(onReal(float64(lhs.UInt), rhs.Real))
	case lhs.Kind == KindInt && rhs.Kind == KindBool:
		return NewInt(onInt(lhs.Int, b2i(rhs.Bool)))
	case lhs.Kind == KindInt && rhs.Kind == KindUInt:
		return NewInt(onInt(lhs.Int, int64(rhs.UInt)))
	case lhs.Kind == KindInt && rhs.Kind == KindInt:
		return NewInt(onInt(lhs.Int, rhs.Int))
	case lhs.Kind == KindInt && rhs.Kind == KindReal:
		return NewReal(onReal(float64(lhs.Int), rhs.Real))
	case lhs.Kind == KindReal && rhs.Kind == KindBool:
		return NewReal(onReal(lhs.Real, b2f(rhs.Bool)))
	case lhs.Kind == KindReal && rhs.Kind == KindUInt:
		return NewReal(onReal(lhs.Real, float64(rhs.UInt)))
	case lhs.Kind == KindReal && rhs.Kind == KindInt:
		return NewReal(onReal(lhs.Real, float64(rhs.Int)))
	case lhs.Kind == KindReal && rhs.Kind == KindReal:
		return NewReal(onReal(lhs.Real, rhs.Real))
	default:
		return NewExpr(op, lhs, rhs)
	}
}

// logical evaluates &,|,^. Bool op Bool stays Bool; UInt op UInt and any
// Bool/UInt pairing stay UInt; every other atomic pair promotes to Int
// (Real operands truncate toward zero first).
func logical(lhs, rhs *Value, op Op, onBool func(a, b bool) bool, onInt func(a, b int64) int64, onUInt func(a, b uint64) uint64) *Value {
	toInt := func(v *Value) int64 {
		switch v.Kind {
		case KindBool:
			return b2i(v.Bool)
		case KindUInt:
			return int64(v.UInt)
		case KindInt:
			return v.Int
		case KindReal:
			return int64(v.Real)
		default:
			return 0
		}
	}
	switch {
	case lhs.Kind == KindBool && rhs.Kind == KindBool:
		return NewBool(onBool(lhs.Bool, rhs.Bool))
	case lhs.Kind == KindUInt && rhs.Kind == KindUInt:
		return NewUInt(onUInt(lhs.UInt, rhs.UInt))
	case lhs.Kind == KindBool && rhs.Kind == KindUInt:
		return NewUInt(onUInt(b2u(lhs.Bool), rhs.UInt))
	case lhs.Kind == KindUInt && rhs.Kind == KindBool:
		return NewUInt(onUInt(lhs.UInt, b2u(rhs.Bool)))
	case lhs.Kind.IsAtomic() && rhs.Kind.IsAtomic():
		return NewInt(onInt(toInt(lhs), toInt(rhs)))
	default:
		return NewExpr(op, lhs, rhs)
	}
}

// mulInt always forces both operands into UInt before multiplying (§4.B.2):
// it is used where the language demands an integral repeat count or axis
// size regardless of the operands' declared types.
func mulInt(lhs, rhs *Value) *Value {
	u, ok1 := toUInt(lhs)
	v, ok2 := toUInt(rhs)
	if !ok1 || !ok2 {
		return NewExpr(OpMulInt, lhs, rhs)
	}
	return NewUInt(u * v)
}

func toUInt(v *Value) (uint64, bool) {
	switch v.Kind {
	case KindBool:
		return b2u(v.Bool), true
	case KindUInt:
		return v.UInt, true
	case KindInt:
		return uint64(v.Int), true
	case KindReal:
		return uint64(v.Real), true
	default:
		return 0, false
	}
}

// powOp evaluates lhs ** rhs. Two atomics drawn from {Bool, UInt} produce an
// exact UInt result; every other atomic/atomic pairing promotes to Real,
// since integer exponentiation with a negative or non-integral operand
// cannot stay exact.
func powOp(lhs, rhs *Value) *Value {
	if !lhs.Kind.IsAtomic() || !rhs.Kind.IsAtomic() {
		return NewExpr(OpPow, lhs, rhs)
	}
	isUIntLike := func(v *Value) (uint64, bool) {
		switch v.Kind {
		case KindBool:
			return b2u(v.Bool), true
		case KindUInt:
			return v.UInt, true
		default:
			return 0, false
		}
	}
	if lu, ok1 := isUIntLike(lhs); ok1 {
		if ru, ok2 := isUIntLike(rhs); ok2 {
			return NewUInt(uintPow(lu, ru))
		}
	}
	toReal := func(v *Value) float64 {
		switch v.Kind {
		case KindBool:
			return b2f(v.Bool)
		case KindUInt:
			return float64(v.UInt)
		case KindInt:
			return float64(v.Int)
		case KindReal:
			return v.Real
		default:
			return 0
		}
	}
	return NewReal(math.Pow(toReal(lhs), toReal(rhs)))
}

func uintPow(base, exp uint64) uint64 {
	result := uint64(1)
	for ; exp > 0; exp-- {
		result *= base
	}
	return result
}

// Equal implements the N3 value equality used by shape/axis comparisons.
// Atomic pairs compare numerically across kinds (Bool/UInt/Int/Real cross-
// compare by widening, matching BinaryOp's promotion); String/Node/List/Map
// compare structurally, and two Dims compare by (out, axis). Any other
// pairing of a "hinted" value (Dim, VariableRef, Expr) with a hinted or
// numeric value falls back to a conservative true: the algebra cannot yet
// prove such values unequal, and treating them as unequal would reject
// valid graphs (§9 Open Question).
func Equal(lhs, rhs *Value) bool {
	if lhs == nil || rhs == nil {
		return lhs == rhs
	}
	switch {
	case lhs.Kind.IsAtomic() && rhs.Kind.IsAtomic() && lhs.Kind != KindString && rhs.Kind != KindString:
		return equalNumeric(lhs, rhs)
	case lhs.Kind == KindString && rhs.Kind == KindString:
		return lhs.String == rhs.String
	case lhs.Kind == KindNode && rhs.Kind == KindNode:
		return lhs.NodeName == rhs.NodeName
	case lhs.Kind == KindList && rhs.Kind == KindList:
		return equalList(lhs.List, rhs.List)
	case lhs.Kind == KindMap && rhs.Kind == KindMap:
		return equalMap(lhs.Map, rhs.Map)
	case lhs.Kind == KindDim && rhs.Kind == KindDim:
		return lhs.DimOut == rhs.DimOut && lhs.DimAxis == rhs.DimAxis
	default:
		if isNumericLike(lhs) && isNumericLike(rhs) {
			return true
		}
		return false
	}
}

func isNumericLike(v *Value) bool {
	switch v.Kind {
	case KindDim, KindVariableRef, KindExpr:
		return true
	default:
		return v.Kind.IsAtomic() && v.Kind != KindString
	}
}

func equalNumeric(lhs, rhs *Value) bool {
	toReal := func(v *Value) float64 {
		switch v.Kind {
		case KindBool:
			return b2f(v.Bool)
		case KindUInt:
			return float64(v.UInt)
		case KindInt:
			return float64(v.Int)
		case KindReal:
			return v.Real
		default:
			return 0
		}
	}
	return toReal(lhs) == toReal(rhs)
}

func equalList(lhs, rhs []*Value) bool {
	if len(lhs) != len(rhs) {
		return false
	}
	for i := range lhs {
		if !Equal(lhs[i], rhs[i]) {
			return false
		}
	}
	return true
}

func equalMap(lhs, rhs map[string]*Value) bool {
	if len(lhs) != len(rhs) {
		return false
	}
	for k, v := range lhs {
		other, ok := rhs[k]
		if !ok {
			return false
		}
		if v == nil || other == nil {
			if v != other {
				return false
			}
			continue
		}
		if !Equal(v, other) {
			return false
		}
	}
	return true
}
