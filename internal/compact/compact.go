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
	"sort"

	"github.com/HoKim98/n3/internal/code"
	"github.com/HoKim98/n3/internal/program"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/variable"
)

// Compact lowers p into its canonical wire form (§4.H).
func Compact(p program.Program) WireProgram {
	ctx := newCompactContext()
	ctx.insert(p.Graph)
	for _, name := range sortedCodeNames(p.Nodes) {
		collectCodeTables(p.Nodes[name], ctx)
	}
	remap := ctx.arrangeIDs()

	tables := make([]WireTable, len(remap))
	for origID, dense := range remap {
		tables[dense] = compactTable(ctx.tables[origID], remap)
	}

	nodes := make(map[string]WireCode, len(p.Nodes))
	for name, c := range p.Nodes {
		nodes[name] = compactCode(c, remap)
	}

	scripts := make(map[string]string, len(p.Scripts))
	for name, s := range p.Scripts {
		scripts[name] = s.Source
	}

	graphID := uint64(0)
	if p.Graph != nil {
		graphID = remap[p.Graph.ID]
	}

	return WireProgram{
		GraphID: graphID,
		Graphs:  tables,
		Nodes:   nodes,
		Scripts: scripts,
	}
}

// Decompact reconstructs a Program from its wire form (§4.H). Every
// variable is created once up front (so VariableRef targets can be
// resolved by pointer identity no matter which table declares them) and
// filled in on a second pass, mirroring CloneSafe's own detach-then-fill
// two-phase reconstruction.
func Decompact(w WireProgram) program.Program {
	ctx := newDecompactContext()
	for _, wt := range w.Graphs {
		vars := make(map[string]*variable.Variable, len(wt.Variables))
		for name, wv := range wt.Variables {
			id := seed.ID(wt.ID)
			vars[name] = &variable.Variable{
				ID:       &id,
				IDOld:    &id,
				Name:     wv.Name,
				Shortcut: wv.Shortcut,
				Type:     decompactLetType(wv.Type),
			}
		}
		ctx.vars[wt.ID] = vars
	}

	tables := make(map[uint64]*variable.Table, len(w.Graphs))
	for _, wt := range w.Graphs {
		for name, wv := range wt.Variables {
			ctx.vars[wt.ID][name].Value = decompactValue(wv.Value, ctx)
		}
		tables[wt.ID] = &variable.Table{ID: seed.ID(wt.ID), Variables: ctx.vars[wt.ID]}
	}

	nodes := make(map[string]code.Code, len(w.Nodes))
	for name, wc := range w.Nodes {
		nodes[name] = decompactCode(wc, tables)
	}

	scripts := make(code.Scripts, len(w.Scripts))
	for name, source := range w.Scripts {
		scripts[name] = code.Script{Name: name, Source: source}
	}

	return program.Program{
		Graph:   tables[w.GraphID],
		Nodes:   nodes,
		Scripts: scripts,
	}
}

func sortedCodeNames(m map[string]code.Code) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
