// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package execlower lowers a built ExecIR plus a set of user-supplied Vars
// into a Program (§4.G): the final step that turns a ready-to-run exec
// node's abstract chain of child names into concrete, built, shape-linked
// Code.
package execlower

import (
	"sort"

	"github.com/HoKim98/n3/internal/code"
	"github.com/HoKim98/n3/internal/execvars"
	"github.com/HoKim98/n3/internal/ir"
	"github.com/HoKim98/n3/internal/n3err"
	"github.com/HoKim98/n3/internal/program"
	"github.com/HoKim98/n3/internal/shape"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

// Root is the capability Lower needs to turn a bound node name into its
// built IR: a seed for any further cloning, and a by-name lookup into the
// same node cache/resolver layer BuildNode itself resolves calls through.
type Root interface {
	ir.Root
	code.ScriptSource
	ResolveNode(name string) (ir.TensorNode, error)
}

// Lower builds x into a Program against root, using args to resolve the
// Node(_)-typed variables x's graph declares (directly, or by name through
// args) and to override any other declared variable's value (§4.G):
//  1. prune the graph: every Node-typed variable is resolved to a node and
//     moved into a side table (by name, for the link step below) rather
//     than kept in the graph; every other variable is checked against args
//     for an override and otherwise left as declared.
//  2. shape-link each recorded chain of node names in call order.
//  3. build every retained node to Code.
//  4. collect every extern script transitively referenced.
func Lower(root Root, x *ir.ExecIR, args *execvars.Vars) (program.Program, error) {
	nodes := make(map[string]ir.TensorNode)
	retained := make(map[string]*variable.Variable)

	for _, name := range sortedVarNames(x.Data.Graph.Variables()) {
		v := x.Data.Graph.Variables()[name]
		ty := v.Type
		if ty != nil && ty.Kind == value.TypeNode {
			nodeName, err := resolveNodeVarName(v, args)
			if err != nil {
				return program.Program{}, err
			}
			built, err := root.ResolveNode(nodeName)
			if err != nil {
				return program.Program{}, err
			}
			if err := checkNodeType(built, *ty); err != nil {
				return program.Program{}, err
			}
			nodes[name] = built
			continue
		}

		declaredType := value.String()
		if ty != nil {
			declaredType = *ty
		}
		override, err := args.TryGetChecked(name, declaredType)
		if err != nil {
			return program.Program{}, err
		}
		if override != nil {
			v.Value = override
		}
		retained[name] = v
	}

	for _, chain := range x.Links {
		if len(chain) == 0 {
			continue
		}
		last, ok := nodes[chain[0]]
		if !ok {
			return program.Program{}, &n3err.TensorNodeError{Kind: n3err.ErrNoSuchNode, Name: chain[0]}
		}
		for _, name := range chain[1:] {
			next, ok := nodes[name]
			if !ok {
				return program.Program{}, &n3err.TensorNodeError{Kind: n3err.ErrNoSuchNode, Name: name}
			}
			lastOut, nextIn := last.OutputShapes(), next.InputShapes()
			if lastOut != nil && nextIn != nil {
				if err := shape.Link(*lastOut, *nextIn); err != nil {
					return program.Program{}, err
				}
			}
			last = next
		}
	}

	built := make(map[string]code.Code, len(nodes))
	for _, name := range sortedNodeNames(nodes) {
		c, err := nodes[name].Build(root)
		if err != nil {
			return program.Program{}, err
		}
		built[name] = c
	}

	scripts := code.Scripts{}
	for _, name := range sortedCodeNames(built) {
		if err := built[name].CollectScripts(root, scripts); err != nil {
			return program.Program{}, err
		}
	}

	return program.Program{
		Graph:   &variable.Table{ID: x.Data.Graph.ID(), Variables: retained},
		Nodes:   built,
		Scripts: scripts,
	}, nil
}

// resolveNodeVarName returns the node name a Node(_)-typed variable binds
// to: its own declared value if set directly in source, else the matching
// entry from args.
func resolveNodeVarName(v *variable.Variable, args *execvars.Vars) (string, error) {
	if v.Value != nil && v.Value.Kind == value.KindNode {
		return v.Value.NodeName, nil
	}
	return args.GetNodeName(v.Name)
}

// checkNodeType enforces a bound node's resolved kind against the
// variable's declared Node(kind) restriction, with the one exception the
// original builder also grants: a Default-kind Extern node may be bound
// wherever a plain Default node is expected (both are callable the same
// way once built).
func checkNodeType(built ir.TensorNode, ty value.LetType) error {
	if ty.NodeKind == "" {
		return nil
	}
	given := built.NodeKindName()
	if given == ty.NodeKind {
		return nil
	}
	if ty.NodeKind == "Default" && given == "Extern" {
		return nil
	}
	return &n3err.VariableError{Kind: n3err.ErrMismatchedType, Name: built.Name(), Expected: ty.NodeKind, Given: given}
}

func sortedVarNames(m map[string]*variable.Variable) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedNodeNames(m map[string]ir.TensorNode) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedCodeNames(m map[string]code.Code) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
