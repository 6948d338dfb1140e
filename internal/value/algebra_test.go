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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryOpPromotion(t *testing.T) {
	cases := []struct {
		name string
		op   Op
		lhs  *Value
		rhs  *Value
		want *Value
	}{
		{"bool+bool", OpAdd, NewBool(true), NewBool(true), NewInt(2)},
		{"bool+uint", OpAdd, NewBool(true), NewUInt(3), NewUInt(4)},
		{"uint+uint", OpAdd, NewUInt(2), NewUInt(3), NewUInt(5)},
		{"uint+int", OpAdd, NewUInt(2), NewInt(-3), NewInt(-1)},
		{"int+real", OpAdd, NewInt(2), NewReal(0.5), NewReal(2.5)},
		{"real+real", OpMul, NewReal(2), NewReal(3), NewReal(6)},
		{"uint-uint", OpSub, NewUInt(5), NewUInt(2), NewUInt(3)},
		{"int_div_int", OpDiv, NewInt(7), NewInt(2), NewInt(3)},
		{"real_div_real", OpDiv, NewReal(7), NewReal(2), NewReal(3.5)},
		{"int_mod_int", OpMod, NewInt(7), NewInt(2), NewInt(1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BinaryOp(tc.op, tc.lhs, tc.rhs)
			require.Equal(t, tc.want.Kind, got.Kind)
			assert.True(t, Equal(tc.want, got), "want %s got %s", tc.want, got)
		})
	}
}

func TestMulIntForcesUInt(t *testing.T) {
	got := BinaryOp(OpMulInt, NewInt(4), NewReal(2.9))
	require.Equal(t, KindUInt, got.Kind)
	assert.Equal(t, uint64(8), got.UInt)
}

func TestPowPromotion(t *testing.T) {
	t.Run("uint_uint_stays_uint", func(t *testing.T) {
		got := BinaryOp(OpPow, NewUInt(2), NewUInt(10))
		require.Equal(t, KindUInt, got.Kind)
		assert.Equal(t, uint64(1024), got.UInt)
	})
	t.Run("bool_bool_stays_uint", func(t *testing.T) {
		got := BinaryOp(OpPow, NewBool(true), NewBool(true))
		require.Equal(t, KindUInt, got.Kind)
		assert.Equal(t, uint64(1), got.UInt)
	})
	t.Run("int_operand_promotes_to_real", func(t *testing.T) {
		got := BinaryOp(OpPow, NewInt(2), NewInt(3))
		require.Equal(t, KindReal, got.Kind)
		assert.InDelta(t, 8.0, got.Real, 1e-9)
	})
}

func TestUnaryOp(t *testing.T) {
	assert.Equal(t, NewInt(-1), UnaryOp(OpNeg, NewBool(true)))
	assert.Equal(t, NewInt(5), UnaryOp(OpPos, NewInt(5)))
	assert.Equal(t, NewReal(-2.5), UnaryOp(OpNeg, NewReal(2.5)))
}

func TestBinaryOpFallsBackToExprForNonAtomic(t *testing.T) {
	node := NewNode("conv2d")
	got := BinaryOp(OpAdd, node, NewInt(1))
	require.Equal(t, KindExpr, got.Kind)
	assert.Equal(t, OpAdd, got.ExprOp)
	assert.Same(t, node, got.ExprLHS)
}

func TestEqualNumericCrossKind(t *testing.T) {
	assert.True(t, Equal(NewUInt(3), NewInt(3)))
	assert.True(t, Equal(NewBool(true), NewUInt(1)))
	assert.True(t, Equal(NewReal(2), NewInt(2)))
	assert.False(t, Equal(NewUInt(3), NewInt(4)))
}

func TestEqualStringsAndContainers(t *testing.T) {
	assert.True(t, Equal(NewString("a"), NewString("a")))
	assert.False(t, Equal(NewString("a"), NewString("b")))

	l1 := NewList([]*Value{NewInt(1), NewUInt(2)})
	l2 := NewList([]*Value{NewBool(true), NewInt(2)})
	assert.True(t, Equal(l1, l2))

	m1 := NewMap(map[string]*Value{"a": NewInt(1)})
	m2 := NewMap(map[string]*Value{"a": NewUInt(1)})
	assert.True(t, Equal(m1, m2))
}

func TestEqualHintedValuesConservativelyTrue(t *testing.T) {
	lhs := NewVariableRef(nil)
	rhs := NewExpr(OpAdd, NewInt(1), NewInt(2))
	assert.True(t, Equal(lhs, rhs))
}

func TestValueCloneIsDeep(t *testing.T) {
	original := NewList([]*Value{NewInt(1), NewExpr(OpNeg, NewInt(2), nil)})
	clone := original.Clone()
	require.NotSame(t, original, clone)
	require.NotSame(t, original.List[0], clone.List[0])
	assert.True(t, Equal(original, clone))

	clone.List[0].Int = 99
	assert.Equal(t, int64(1), original.List[0].Int)
}
