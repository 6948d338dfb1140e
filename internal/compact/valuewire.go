// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compact

import (
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

// compactOut copies an Out verbatim: its id is a tensor-graph node
// position, not a graph id, so the renumbering never applies to it.
func compactOut(o value.Out) WireOut {
	w := WireOut{Name: o.Name}
	if o.ID != nil {
		id := *o.ID
		w.ID = &id
	}
	return w
}

func decompactOut(w WireOut) value.Out {
	if w.ID == nil {
		return value.Out{Name: w.Name}
	}
	id := *w.ID
	return value.Out{ID: &id, Name: w.Name}
}

func compactValue(v *value.Value, remap map[seed.ID]uint64) *WireValue {
	if v == nil {
		return nil
	}
	w := &WireValue{
		Kind:     v.Kind,
		Bool:     v.Bool,
		UInt:     v.UInt,
		Int:      v.Int,
		Real:     v.Real,
		String:   v.String,
		NodeName: v.NodeName,
		DimOut:   compactOut(v.DimOut),
		DimAxis:  v.DimAxis,
		ExprOp:   v.ExprOp,
	}
	switch v.Kind {
	case value.KindVariableRef:
		if ref, ok := v.Ref.(*variable.Variable); ok && ref.ID != nil {
			w.RefGraph = remap[*ref.ID]
			w.RefName = ref.Name
		}
	case value.KindExpr:
		w.ExprLHS = compactValue(v.ExprLHS, remap)
		if v.ExprRHS != nil {
			w.ExprRHS = compactValue(v.ExprRHS, remap)
		}
	case value.KindList:
		w.List = make([]*WireValue, len(v.List))
		for i, e := range v.List {
			w.List[i] = compactValue(e, remap)
		}
	case value.KindMap:
		w.Map = make(map[string]*WireValue, len(v.Map))
		for k, e := range v.Map {
			w.Map[k] = compactValue(e, remap)
		}
	}
	return w
}

func decompactValue(w *WireValue, ctx *decompactContext) *value.Value {
	if w == nil {
		return nil
	}
	v := &value.Value{
		Kind:     w.Kind,
		Bool:     w.Bool,
		UInt:     w.UInt,
		Int:      w.Int,
		Real:     w.Real,
		String:   w.String,
		NodeName: w.NodeName,
		DimOut:   decompactOut(w.DimOut),
		DimAxis:  w.DimAxis,
		ExprOp:   w.ExprOp,
	}
	switch w.Kind {
	case value.KindVariableRef:
		v.Ref = ctx.variable(w.RefGraph, w.RefName)
	case value.KindExpr:
		v.ExprLHS = decompactValue(w.ExprLHS, ctx)
		v.ExprRHS = decompactValue(w.ExprRHS, ctx)
	case value.KindList:
		v.List = make([]*value.Value, len(w.List))
		for i, e := range w.List {
			v.List[i] = decompactValue(e, ctx)
		}
	case value.KindMap:
		v.Map = make(map[string]*value.Value, len(w.Map))
		for k, e := range w.Map {
			v.Map[k] = decompactValue(e, ctx)
		}
	}
	return v
}

func compactLetType(t *value.LetType) *WireLetType {
	if t == nil {
		return nil
	}
	return &WireLetType{Kind: t.Kind, NodeKind: t.NodeKind, Inner: compactLetType(t.Inner)}
}

func decompactLetType(w *WireLetType) *value.LetType {
	if w == nil {
		return nil
	}
	return &value.LetType{Kind: w.Kind, NodeKind: w.NodeKind, Inner: decompactLetType(w.Inner)}
}
