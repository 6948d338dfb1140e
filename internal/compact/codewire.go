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
	"github.com/HoKim98/n3/internal/code"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

func compactTable(t *variable.Table, remap map[seed.ID]uint64) WireTable {
	vars := make(map[string]*WireVariable, len(t.Variables))
	for name, v := range t.Variables {
		vars[name] = &WireVariable{
			Name:     v.Name,
			Shortcut: v.Shortcut,
			Type:     compactLetType(v.Type),
			Value:    compactValue(v.Value, remap),
		}
	}
	return WireTable{ID: remap[t.ID], Variables: vars}
}

func collectCodeTables(c code.Code, ctx *compactContext) {
	ctx.insert(c.Data().Graph)
	if c.Kind == code.KindNode {
		for _, child := range c.Node.TensorGraph {
			collectCodeTables(child, ctx)
		}
	}
}

func compactOuts(m map[string]value.Out) map[string]WireOut {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]WireOut, len(m))
	for k, o := range m {
		out[k] = compactOut(o)
	}
	return out
}

func decompactOuts(m map[string]WireOut) map[string]value.Out {
	out := make(map[string]value.Out, len(m))
	for k, w := range m {
		out[k] = decompactOut(w)
	}
	return out
}

func compactCodeData(d *code.CodeData, remap map[seed.ID]uint64) WireCodeData {
	return WireCodeData{
		Name:    d.Name,
		GraphID: remap[d.Graph.ID],
		Input:   compactOuts(d.Input),
		Output:  compactOuts(d.Output),
	}
}

func decompactCodeData(w WireCodeData, tables map[uint64]*variable.Table) code.CodeData {
	return code.CodeData{
		Name:   w.Name,
		Graph:  tables[w.GraphID],
		Input:  decompactOuts(w.Input),
		Output: decompactOuts(w.Output),
	}
}

func compactCode(c code.Code, remap map[seed.ID]uint64) WireCode {
	w := WireCode{Kind: c.Kind, Data: compactCodeData(c.Data(), remap)}
	switch c.Kind {
	case code.KindExtern:
		w.SubKind = c.Extern.SubKind
	case code.KindNode:
		w.TensorGraph = make([]WireCode, len(c.Node.TensorGraph))
		for i, child := range c.Node.TensorGraph {
			w.TensorGraph[i] = compactCode(child, remap)
		}
	}
	return w
}

func decompactCode(w WireCode, tables map[uint64]*variable.Table) code.Code {
	switch w.Kind {
	case code.KindExtern:
		return code.NewExtern(code.ExternCode{SubKind: w.SubKind, Data: decompactCodeData(w.Data, tables)})
	default:
		children := make([]code.Code, len(w.TensorGraph))
		for i, child := range w.TensorGraph {
			children[i] = decompactCode(child, tables)
		}
		return code.NewNode(code.NodeCode{Data: decompactCodeData(w.Data, tables), TensorGraph: children})
	}
}
