// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package variable implements Variable and VariableGraph (§4.B): the typed,
// name-addressable table a node's body is compiled against, with reference
// resolution, expression evaluation, dim hinting, and identity-rewriting
// safe clone.
package variable

import (
	"github.com/google/uuid"

	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/value"
)

// Variable is one named slot in a VariableGraph: an optional declared Type
// and an optional Value (nil means "not yet assigned").
//
// ID/IDOld identify which graph generation this Variable belongs to: ID is
// the graph that currently owns it; IDOld is the id it had before its most
// recent safe-clone (or simply its owning graph's id, if it was never
// cloned). Safe-clone rewriting keys off the pair (Name, IDOld).
type Variable struct {
	ID    *seed.ID
	IDOld *seed.ID

	Name     string
	Shortcut string

	Type  *value.LetType
	Value *value.Value

	// CloneToken is stamped fresh on every detach, for log/debug
	// correlation across safe-clones; it plays no role in the identity
	// algebra (Name/ID/IDOld do).
	CloneToken uuid.UUID

	// resolving marks this Variable as being actively descended into by
	// Build. Re-entrant descent while this is true is a cycle,
	// mirroring a borrow-conflict on a RefCell-backed variable.
	resolving bool
}

// New creates an unvalued, untyped Variable. It is not yet attached to any
// graph (ID/IDOld are nil) until VariableGraph.Add stamps them.
func New(name string) *Variable {
	return &Variable{Name: name}
}

// NewWithValue creates a Variable carrying an initial Value.
func NewWithValue(name string, v *value.Value) *Variable {
	return &Variable{Name: name, Value: v}
}

// IsHint reports whether this variable's declared type is Dim, or its
// current value recursively contains a hint (Dim value or a VariableRef to
// a hint).
func (v *Variable) IsHint() bool {
	if v.Type != nil && v.Type.Kind == value.TypeDim {
		return true
	}
	return isHintValue(v.Value)
}

func isHintValue(v *value.Value) bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case value.KindDim:
		return true
	case value.KindVariableRef:
		if ref, ok := v.Ref.(*Variable); ok {
			return ref.IsHint()
		}
		return false
	case value.KindExpr:
		return isHintValue(v.ExprLHS) || isHintValue(v.ExprRHS)
	default:
		return false
	}
}

// IsNode reports whether this variable's declared type is Node(_).
func (v *Variable) IsNode() bool {
	return v.Type != nil && v.Type.Kind == value.TypeNode
}

// IsEstimable reports whether this variable's value (if any) has no free
// references - see value.Value's Expr/VariableRef recursion.
func (v *Variable) IsEstimable() bool {
	return isEstimableValue(v.Value)
}

func isEstimableValue(v *value.Value) bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case value.KindVariableRef:
		if ref, ok := v.Ref.(*Variable); ok {
			return ref.IsEstimable()
		}
		return false
	case value.KindExpr:
		if v.ExprRHS == nil {
			return isEstimableValue(v.ExprLHS)
		}
		return isEstimableValue(v.ExprLHS) && isEstimableValue(v.ExprRHS)
	default:
		return true
	}
}

// RefName, RefValue, and SetRefValue implement value.VarRef.
func (v *Variable) RefName() string          { return v.Name }
func (v *Variable) RefValue() *value.Value   { return v.Value }
func (v *Variable) SetRefValue(nv *value.Value) { v.Value = nv }

// detach returns a fresh Variable carrying this one's name/shortcut/type
// and a deep-cloned value, stamped into graph id. IDOld becomes this
// variable's own (pre-detach) ID - the anchor safe-clone rewriting keys
// off.
func (v *Variable) detach(id seed.ID) *Variable {
	return &Variable{
		ID:         &id,
		IDOld:      v.ID,
		Name:       v.Name,
		Shortcut:   v.Shortcut,
		Type:       v.Type,
		Value:      v.Value.Clone(),
		CloneToken: uuid.New(),
	}
}
