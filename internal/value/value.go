// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package value implements N3's Value sum type and the arithmetic/logical
// evaluation (ValueAlgebra) that operates on it.
//
// Value is a closed sum of eleven variants (§3): five atomics (Bool, UInt,
// Int, Real, String), three structural-but-symbolic forms (Node, Dim,
// VariableRef), one deferred form (Expr), and two containers (List, Map).
// It is represented as a single tagged struct rather than an interface
// hierarchy: every consumer (the codec, the algebra, shape linking) needs
// to switch on every variant anyway, and a closed Kind enum makes that
// switch exhaustive-checkable at a glance.
package value

import "fmt"

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindBool Kind = iota
	KindUInt
	KindInt
	KindReal
	KindString
	KindNode
	KindDim
	KindVariableRef
	KindExpr
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "Bool"
	case KindUInt:
		return "UInt"
	case KindInt:
		return "Int"
	case KindReal:
		return "Real"
	case KindString:
		return "String"
	case KindNode:
		return "Node"
	case KindDim:
		return "Dim"
	case KindVariableRef:
		return "VariableRef"
	case KindExpr:
		return "Expr"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	default:
		return "Unknown"
	}
}

// IsAtomic reports whether k is one of Bool, UInt, Int, Real, String - the
// variants the promotion lattice (§4.B.2) applies to.
func (k Kind) IsAtomic() bool {
	return k <= KindString
}

// Out identifies a tensor-graph position by (id, name): a prior node's
// output, or (when id is nil) an unbound name awaiting linking.
type Out struct {
	ID   *uint64
	Name string
}

func (o Out) String() string {
	if o.ID == nil {
		return o.Name
	}
	return fmt.Sprintf("%d.%s", *o.ID, o.Name)
}

// VarRef is the narrow interface Value.VariableRef holds onto, implemented
// by *variable.Variable. Keeping it an interface here (rather than
// importing package variable directly) avoids a value<->variable import
// cycle, since a Variable's own Value may itself be a VariableRef.
type VarRef interface {
	RefName() string
	RefValue() *Value
	SetRefValue(*Value)
}

// Op is a ValueAlgebra operator.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpMulInt
	OpDiv
	OpMod
	OpPow
	OpAnd
	OpOr
	OpXor
	OpPos
	OpNeg
)

func (op Op) String() string {
	names := [...]string{"Add", "Sub", "Mul", "MulInt", "Div", "Mod", "Pow", "And", "Or", "Xor", "Pos", "Neg"}
	if int(op) < len(names) {
		return names[op]
	}
	return "Unknown"
}

// IsUnary reports whether op takes a single operand (Pos, Neg).
func (op Op) IsUnary() bool {
	return op == OpPos || op == OpNeg
}

// Value is the N3 Value sum type (§3).
type Value struct {
	Kind Kind

	Bool   bool
	UInt   uint64
	Int    int64
	Real   float64
	String string

	NodeName string

	DimOut  Out
	DimAxis int

	Ref VarRef

	ExprOp  Op
	ExprLHS *Value
	ExprRHS *Value // nil for unary ops

	List []*Value
	Map  map[string]*Value
}

// Bool, UInt, Int, Real, and String are small atomic constructors.
func NewBool(b bool) *Value     { return &Value{Kind: KindBool, Bool: b} }
func NewUInt(u uint64) *Value   { return &Value{Kind: KindUInt, UInt: u} }
func NewInt(i int64) *Value     { return &Value{Kind: KindInt, Int: i} }
func NewReal(r float64) *Value  { return &Value{Kind: KindReal, Real: r} }
func NewString(s string) *Value { return &Value{Kind: KindString, String: s} }

// NewNode constructs a Node(name) value.
func NewNode(name string) *Value { return &Value{Kind: KindNode, NodeName: name} }

// NewDim constructs a Dim(out, axis) value.
func NewDim(out Out, axis int) *Value { return &Value{Kind: KindDim, DimOut: out, DimAxis: axis} }

// NewVariableRef constructs a VariableRef(v) value.
func NewVariableRef(v VarRef) *Value { return &Value{Kind: KindVariableRef, Ref: v} }

// NewExpr constructs a symbolic Expr(op, lhs, rhs?) node. rhs is nil for
// unary operators.
func NewExpr(op Op, lhs, rhs *Value) *Value {
	return &Value{Kind: KindExpr, ExprOp: op, ExprLHS: lhs, ExprRHS: rhs}
}

// NewList constructs a List(values) value.
func NewList(values []*Value) *Value { return &Value{Kind: KindList, List: values} }

// NewMap constructs a Map(entries) value. Entries may hold nil (the
// optional-value slots of LetType's Map(inner)).
func NewMap(entries map[string]*Value) *Value { return &Value{Kind: KindMap, Map: entries} }

// Clone returns a deep, value-identical copy. VariableRef leaves are NOT
// rewritten here - that is clone_safe's job (package variable) - they are
// copied as-is, pointing at the same Ref.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	out := *v
	switch v.Kind {
	case KindExpr:
		out.ExprLHS = v.ExprLHS.Clone()
		out.ExprRHS = v.ExprRHS.Clone()
	case KindList:
		out.List = make([]*Value, len(v.List))
		for i, e := range v.List {
			out.List[i] = e.Clone()
		}
	case KindMap:
		out.Map = make(map[string]*Value, len(v.Map))
		for k, e := range v.Map {
			out.Map[k] = e.Clone()
		}
	}
	return &out
}

// Render formats the value for debugging and log messages. (Named Render,
// not String, because Value already has a String field for KindString.)
func (v *Value) Render() string {
	if v == nil {
		return "<nil>"
	}
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindUInt:
		return fmt.Sprintf("%d", v.UInt)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindReal:
		return fmt.Sprintf("%g", v.Real)
	case KindString:
		return fmt.Sprintf("%q", v.String)
	case KindNode:
		return fmt.Sprintf("Node(%s)", v.NodeName)
	case KindDim:
		return fmt.Sprintf("Dim(%s, %d)", v.DimOut, v.DimAxis)
	case KindVariableRef:
		if v.Ref == nil {
			return "VariableRef(<nil>)"
		}
		return fmt.Sprintf("VariableRef(%s)", v.Ref.RefName())
	case KindExpr:
		if v.ExprRHS == nil {
			return fmt.Sprintf("%s(%s)", v.ExprOp, v.ExprLHS)
		}
		return fmt.Sprintf("%s(%s, %s)", v.ExprOp, v.ExprLHS, v.ExprRHS)
	case KindList:
		return fmt.Sprintf("%v", v.List)
	case KindMap:
		return fmt.Sprintf("%v", v.Map)
	default:
		return "<invalid>"
	}
}
