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

	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/variable"
)

// compactContext collects every distinct variable.Table a Program
// references, by original seed.ID, the first time it is seen - mirroring
// CompactContext's own insert_graph/contains_graph pair - then hands out a
// dense 0..n-1 id for each once collection is done (arrangeIDs).
type compactContext struct {
	tables map[seed.ID]*variable.Table
	order  []seed.ID
}

func newCompactContext() *compactContext {
	return &compactContext{tables: make(map[seed.ID]*variable.Table)}
}

func (c *compactContext) insert(t *variable.Table) {
	if t == nil {
		return
	}
	if _, ok := c.tables[t.ID]; ok {
		return
	}
	c.tables[t.ID] = t
	c.order = append(c.order, t.ID)
}

// arrangeIDs assigns every collected table a dense id in ascending order
// of its original seed.ID, independent of allocation order, so the wire
// output is stable across builds that allocated ids differently but
// produced an equal Program.
func (c *compactContext) arrangeIDs() map[seed.ID]uint64 {
	sorted := append([]seed.ID{}, c.order...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	remap := make(map[seed.ID]uint64, len(sorted))
	for i, id := range sorted {
		remap[id] = uint64(i)
	}
	return remap
}

// decompactContext is the inverse registry Decompact builds while
// reconstructing tables, so a WireValue's RefGraph/RefName can be resolved
// to the concrete *variable.Variable instance decompaction already
// created for it - preserving reference identity, matching every other
// VariableRef reconstruction in this codebase (CloneSafe does the same).
type decompactContext struct {
	vars map[uint64]map[string]*variable.Variable
}

func newDecompactContext() *decompactContext {
	return &decompactContext{vars: make(map[uint64]map[string]*variable.Variable)}
}

func (c *decompactContext) variable(graphID uint64, name string) *variable.Variable {
	return c.vars[graphID][name]
}
