// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package variable

import "github.com/HoKim98/n3/internal/seed"

// Table is the owned, no-longer-shared form of a VariableGraph: once a
// NodeIR lowers into Code there is nothing left to mutate or alias, so the
// graph collapses from a shared, interior-mutable VariableGraph into a
// plain snapshot keyed by variable name.
type Table struct {
	ID        seed.ID
	Variables map[string]*Variable
}

// IntoTable collapses g into its owned Table form (§4.F: "the shared graph
// is collapsed to an owned Table of variables"). g must not be used after
// this call in a context that still expects a live VariableGraph; the
// Variables it hands out are the same pointers, not copies.
func (g *VariableGraph) IntoTable() *Table {
	return &Table{ID: g.id, Variables: g.variables}
}
