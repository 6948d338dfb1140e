// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package compact implements Program's canonicalizing binary codec (§4.H):
// every distinct variable table a compiled Program references (its own
// retained graph, plus each built node's owned graph) is written exactly
// once, keyed by a dense id assigned in sorted order rather than whatever
// id the seed allocator happened to hand out during that particular
// build - so two builds of equivalent source produce the same table
// numbering regardless of unrelated allocator state. Map-typed fields
// (variables, nodes, scripts, inputs/outputs) are handed to msgpack as Go
// maps without key sorting, so their entries are written in map iteration
// order and the encoded bytes of two equal Programs can differ.
package compact

import (
	"github.com/HoKim98/n3/internal/ast"
	"github.com/HoKim98/n3/internal/code"
	"github.com/HoKim98/n3/internal/value"
)

// WireOut mirrors value.Out for wire encoding.
type WireOut struct {
	ID   *uint64 `msgpack:"id,omitempty"`
	Name string  `msgpack:"name"`
}

// WireValue mirrors value.Value, with its VariableRef payload rewritten as
// a (graph, name) pointer into the wire program's own Graphs table rather
// than an in-memory pointer.
type WireValue struct {
	Kind value.Kind `msgpack:"kind"`

	Bool   bool    `msgpack:"bool,omitempty"`
	UInt   uint64  `msgpack:"uint,omitempty"`
	Int    int64   `msgpack:"int,omitempty"`
	Real   float64 `msgpack:"real,omitempty"`
	String string  `msgpack:"string,omitempty"`

	NodeName string `msgpack:"node,omitempty"`

	DimOut  WireOut `msgpack:"dimOut,omitempty"`
	DimAxis int     `msgpack:"dimAxis,omitempty"`

	RefGraph uint64 `msgpack:"refGraph,omitempty"`
	RefName  string `msgpack:"refName,omitempty"`

	ExprOp  value.Op   `msgpack:"exprOp,omitempty"`
	ExprLHS *WireValue `msgpack:"exprLhs,omitempty"`
	ExprRHS *WireValue `msgpack:"exprRhs,omitempty"`

	List []*WireValue          `msgpack:"list,omitempty"`
	Map  map[string]*WireValue `msgpack:"map,omitempty"`
}

// WireLetType mirrors value.LetType.
type WireLetType struct {
	Kind     value.TypeKind `msgpack:"kind"`
	NodeKind string         `msgpack:"nodeKind,omitempty"`
	Inner    *WireLetType   `msgpack:"inner,omitempty"`
}

// WireVariable mirrors variable.Variable, dropping the fields (ID/IDOld,
// CloneToken) that exist only to support in-memory safe-cloning.
type WireVariable struct {
	Name     string       `msgpack:"name"`
	Shortcut string       `msgpack:"shortcut,omitempty"`
	Type     *WireLetType `msgpack:"type,omitempty"`
	Value    *WireValue   `msgpack:"value,omitempty"`
}

// WireTable mirrors variable.Table, keyed by its dense compacted id (not
// its original seed.ID) so a table's position in Program.Graphs is the
// stable cross-reference every WireCodeData.GraphID and WireValue.RefGraph
// points into.
type WireTable struct {
	ID        uint64                   `msgpack:"id"`
	Variables map[string]*WireVariable `msgpack:"variables"`
}

// WireCodeData mirrors code.CodeData, with Graph replaced by a dense
// table id.
type WireCodeData struct {
	Name    string             `msgpack:"name"`
	GraphID uint64             `msgpack:"graphId"`
	Input   map[string]WireOut `msgpack:"input,omitempty"`
	Output  map[string]WireOut `msgpack:"output,omitempty"`
}

// WireCode mirrors code.Code: a Default node (with nested TensorGraph) or
// an Extern leaf (with a SubKind).
type WireCode struct {
	Kind        code.Kind         `msgpack:"kind"`
	Data        WireCodeData      `msgpack:"data"`
	SubKind     ast.ExternSubKind `msgpack:"subKind,omitempty"`
	TensorGraph []WireCode        `msgpack:"tensorGraph,omitempty"`
}

// WireProgram is the on-disk form of program.Program.
type WireProgram struct {
	GraphID uint64              `msgpack:"graphId"`
	Graphs  []WireTable         `msgpack:"graphs"`
	Nodes   map[string]WireCode `msgpack:"nodes"`
	Scripts map[string]string   `msgpack:"scripts,omitempty"`
}
