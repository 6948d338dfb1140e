// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast declares the parser's output contract (§6): the shape this
// compiler consumes as input. Parsing source text into these types is out
// of scope - this package only fixes the data they arrive in. Unlike the
// parser's own in-process representation (which shares mutable RefVariable
// cells), a consumed File is read-only input: the tensor graph builder
// copies what it needs into VariableGraph/Variable, which are the mutable
// types from here on.
package ast

import "github.com/HoKim98/n3/internal/value"

// NodeKind discriminates the five node kinds a declaration can carry.
type NodeKind int

const (
	NodeDefault NodeKind = iota
	NodeExtern
	NodeData
	NodeOptim
	NodeExec
)

// String names a NodeKind the way a Node(kind) declaration spells it.
func (k NodeKind) String() string {
	switch k {
	case NodeDefault:
		return "Default"
	case NodeExtern:
		return "Extern"
	case NodeData:
		return "Data"
	case NodeOptim:
		return "Optim"
	case NodeExec:
		return "Exec"
	default:
		return "Unknown"
	}
}

// ExternSubKind discriminates an Extern node's body kind.
type ExternSubKind int

const (
	ExternSubDefault ExternSubKind = iota
	ExternSubData
	ExternSubOptim
)

// File is one parsed source unit: its imports and the single node it
// declares.
type File struct {
	Uses map[string]Use
	Node Node
}

// Use is an import of another node by path, optionally aliased.
type Use struct {
	Path  string
	Alias string
}

// With is a named sub-graph override block attached to a node
// declaration (`with <name>: ...`).
type With struct {
	Name  string
	Graph map[string]*value.Value
}

// NodeLet is one `let name[: shortcut] = value` declaration inside a
// node's graph block.
type NodeLet struct {
	Name     string
	Shortcut string
	Type     value.LetType
	Value    *value.Value
}

// Node is a single parsed node declaration.
type Node struct {
	Name string
	Kind NodeKind

	Graph    map[string]NodeLet
	Withs    map[string]With
	Children map[string]Node

	// TensorGraph is keyed by GraphNode.ID.
	TensorGraph map[uint64]GraphNode
}

// GraphNode is one numbered entry in a node's tensor graph.
type GraphNode struct {
	ID     uint64
	Calls  []Call
	Shapes map[string][]*value.Value // nil map means "no shapes annotation"
}

// InputsKind discriminates how a Call's inputs were written at the call
// site.
type InputsKind int

const (
	InputsUseLast InputsKind = iota // inputs omitted: reuse the prior node's outputs
	InputsDict
	InputsList
)

// Inputs is a call site's input binding, one of use-last (Kind ==
// InputsUseLast, Dict/List both empty), a named dict, or a positional
// list.
type Inputs struct {
	Kind InputsKind
	Dict map[string]value.Out
	List []value.Out
}

// Call is one callee invocation inside a GraphNode.
type Call struct {
	Name    string
	Inputs  *Inputs // nil means unspecified (treated as use-last)
	Args    map[string]*value.Value
	Repeat  *value.Value
}
