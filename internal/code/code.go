// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package code holds the built artifact (§4.F): what NodeIR/ExternIR lower
// into once a graph is fully linked. Unlike the IR side, a Code's graph is
// an owned Table rather than a shared VariableGraph - there is nothing left
// to mutate or alias once a node is built.
package code

import (
	"github.com/HoKim98/n3/internal/ast"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

// Kind discriminates the two Code variants.
type Kind int

const (
	KindNode Kind = iota
	KindExtern
)

// CodeData is the data every Code variant carries: its name, its owned
// variable table, and its input/output Out bindings.
type CodeData struct {
	Name   string
	Graph  *variable.Table
	Input  map[string]value.Out
	Output map[string]value.Out
}

// NodeCode is a built Default node: its data plus the built tensor graph of
// its children, in call order.
type NodeCode struct {
	Data        CodeData
	TensorGraph []Code
}

// ExternCode is a built Extern/Transform/ToLinear/Concat leaf: just its
// sub-kind and data: there is no further graph to recurse into.
type ExternCode struct {
	SubKind ast.ExternSubKind
	Data    CodeData
}

// Code is the Node/Extern sum produced by lowering (§4.F).
type Code struct {
	Kind   Kind
	Node   *NodeCode
	Extern *ExternCode
}

// NewNode wraps a NodeCode as a Code.
func NewNode(c NodeCode) Code { return Code{Kind: KindNode, Node: &c} }

// NewExtern wraps an ExternCode as a Code.
func NewExtern(c ExternCode) Code { return Code{Kind: KindExtern, Extern: &c} }

// Data returns the CodeData common to either variant.
func (c Code) Data() *CodeData {
	switch c.Kind {
	case KindNode:
		return &c.Node.Data
	case KindExtern:
		return &c.Extern.Data
	default:
		return nil
	}
}

// Script is one external (e.g. Python) source file a build references by
// name.
type Script struct {
	Name   string
	Source string
}

// Scripts collects referenced scripts keyed by name, deduplicated.
type Scripts map[string]Script

// ScriptSource resolves an extern node's name to its script source. It is a
// narrow interface (rather than a direct NodeRoot import) so this package
// never has to depend on the node-cache/resolver layer.
type ScriptSource interface {
	GetExternSource(name string) (string, error)
}

// CollectScripts walks c (and, for a NodeCode, its whole tensor graph)
// gathering every extern script it references, loading each referenced
// name from src exactly once (§4.G step 4).
func (c Code) CollectScripts(src ScriptSource, scripts Scripts) error {
	switch c.Kind {
	case KindExtern:
		name := c.Extern.Data.Name
		if _, ok := scripts[name]; ok {
			return nil
		}
		source, err := src.GetExternSource(name)
		if err != nil {
			return err
		}
		scripts[name] = Script{Name: name, Source: source}
		return nil
	case KindNode:
		for _, child := range c.Node.TensorGraph {
			if err := child.CollectScripts(src, scripts); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
