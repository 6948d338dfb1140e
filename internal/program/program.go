// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package program holds the final compiled artifact (§4.G/§4.H): a built
// exec chain's surviving variable table, its built node Code, and every
// extern script it references. It is what Compact serializes to disk and
// Decompact reconstructs.
package program

import (
	"github.com/HoKim98/n3/internal/code"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

// MainEntry is the conventional name a root exec chain is looked up under.
const MainEntry = "__main__"

// Program is a fully lowered, runnable compilation unit.
type Program struct {
	// Env holds ambient values attached after build (e.g. the resolved
	// root directory) - set by the orchestrator, not by execlower.Lower,
	// and excluded from Equal since it never round-trips through Compact.
	Env map[string]*value.Value

	Graph   *variable.Table
	Nodes   map[string]code.Code
	Scripts code.Scripts
}

// Equal reports whether p and other describe the same compiled program,
// ignoring Env (mirroring the original's own PartialEq, which does the
// same for the same reason: Env is ambient context, not compiled output).
func (p Program) Equal(other Program) bool {
	return tableEqual(p.Graph, other.Graph) &&
		nodesEqual(p.Nodes, other.Nodes) &&
		scriptsEqual(p.Scripts, other.Scripts)
}

// tableEqual mirrors the original Table::eq, which compares only
// variables - never id - so two builds (or a build and its decompacted
// round-trip) that allocated/renumbered graph ids differently still
// compare equal when their variable contents match.
func tableEqual(a, b *variable.Table) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Variables) != len(b.Variables) {
		return false
	}
	for name, va := range a.Variables {
		vb, ok := b.Variables[name]
		if !ok || !variableEqual(va, vb) {
			return false
		}
	}
	return true
}

func variableEqual(a, b *variable.Variable) bool {
	if a.Name != b.Name || a.Shortcut != b.Shortcut {
		return false
	}
	switch {
	case a.Value == nil && b.Value == nil:
		return true
	case a.Value == nil || b.Value == nil:
		return false
	default:
		return value.Equal(a.Value, b.Value)
	}
}

func nodesEqual(a, b map[string]code.Code) bool {
	if len(a) != len(b) {
		return false
	}
	for name, ca := range a {
		cb, ok := b[name]
		if !ok || !codeEqual(ca, cb) {
			return false
		}
	}
	return true
}

func codeEqual(a, b code.Code) bool {
	if a.Kind != b.Kind {
		return false
	}
	da, db := a.Data(), b.Data()
	if da.Name != db.Name || len(da.Input) != len(db.Input) || len(da.Output) != len(db.Output) {
		return false
	}
	if !tableEqual(da.Graph, db.Graph) {
		return false
	}
	if a.Kind == code.KindNode {
		if len(a.Node.TensorGraph) != len(b.Node.TensorGraph) {
			return false
		}
		for i := range a.Node.TensorGraph {
			if !codeEqual(a.Node.TensorGraph[i], b.Node.TensorGraph[i]) {
				return false
			}
		}
	}
	return true
}

func scriptsEqual(a, b code.Scripts) bool {
	if len(a) != len(b) {
		return false
	}
	for name, sa := range a {
		sb, ok := b[name]
		if !ok || sa != sb {
			return false
		}
	}
	return true
}
