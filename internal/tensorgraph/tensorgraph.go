// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tensorgraph builds a single ast.Node into its ir.TensorNode
// (§4.E): the ASTBuild step between a parsed node and a built, linkable
// tensor graph. Raw text parsing stays out of scope - this package begins
// at ast.Node and ends at ir.TensorNode, delegating callee resolution to
// resolver.Context and raw source lookup/build coalescing to nodecache.
package tensorgraph

import (
	"sort"

	"github.com/HoKim98/n3/internal/ast"
	"github.com/HoKim98/n3/internal/ir"
	"github.com/HoKim98/n3/internal/n3err"
	"github.com/HoKim98/n3/internal/nodecache"
	"github.com/HoKim98/n3/internal/resolver"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

// BuildFile is the top-level ASTBuild entry point (File::build): it
// resolves file's own `use` imports into ctx before building its node, so
// they're visible to ctx.Get from anywhere in that node's own body.
// Nested children never see a parent's uses - each is built through a
// plain BuildNode call, the same way add_child wraps a child in a fresh
// File with an empty use set.
func BuildFile(sd *seed.Seed, ctx *resolver.Context, path resolver.NodeName, file ast.File, build nodecache.Builder) (ir.TensorNode, error) {
	for _, name := range sortedUseNames(file.Uses) {
		use := file.Uses[name]
		built, err := ctx.Get(path, use.Path, build)
		if err != nil {
			return ir.TensorNode{}, err
		}
		alias := use.Alias
		if alias == "" {
			alias = name
		}
		ctx.AddUse(alias, built)
	}
	return BuildNode(sd, ctx, path, file.Node, build)
}

// BuildNode dispatches on node.Kind (the Default/Extern/Data/Optim/Exec
// ASTBuild entry points of the original builder, collapsed into one
// function since every variant shares this single recursive algorithm).
func BuildNode(sd *seed.Seed, ctx *resolver.Context, path resolver.NodeName, node ast.Node, build nodecache.Builder) (ir.TensorNode, error) {
	switch node.Kind {
	case ast.NodeExtern:
		return buildExtern(sd, node, ast.ExternSubDefault)
	case ast.NodeData:
		return buildExtern(sd, node, ast.ExternSubData)
	case ast.NodeOptim:
		return buildExtern(sd, node, ast.ExternSubOptim)
	case ast.NodeExec:
		return buildExec(sd, ctx, path, node)
	default:
		return buildDefault(sd, ctx, path, node, build)
	}
}

// buildGraph compiles node.Graph's `let` declarations into a VariableGraph
// (the first step of every node kind's build: "allocate a graph id, build
// the graph"). allowNode controls whether a Node(_)-typed variable is
// permitted: Default/Extern graphs reject it (ErrUnexpectedNodeVariable -
// a node reference can only be bound once a caller supplies it), while an
// Exec's graph allows it, since those slots are bound later by a Program's
// user args (package execlower), not while this node's own body builds.
func buildGraph(sd *seed.Seed, lets map[string]ast.NodeLet, allowNode bool) (*variable.VariableGraph, error) {
	g := variable.NewGraph(sd.Generate())
	for _, name := range sortedLetNames(lets) {
		decl := lets[name]
		v := variable.New(decl.Name)
		v.Shortcut = decl.Shortcut
		letType := decl.Type
		v.Type = &letType
		v.Value = decl.Value
		if !allowNode && letType.Kind == value.TypeNode {
			return nil, &n3err.VariableError{Kind: n3err.ErrUnexpectedNodeVariable, Name: decl.Name}
		}
		if err := g.Add(v); err != nil {
			return nil, err
		}
	}
	if err := g.Build(); err != nil {
		return nil, err
	}
	return g, nil
}

// buildDefault builds a Default-kind node (§4.E's main recursive case):
// make the graph, register uses, hint every declared shape up front,
// apply with-overrides, recursively build children, then build the
// tensor graph entries in id order.
func buildDefault(sd *seed.Seed, ctx *resolver.Context, path resolver.NodeName, node ast.Node, build nodecache.Builder) (ir.TensorNode, error) {
	graph, err := buildGraph(sd, node.Graph, false)
	if err != nil {
		return ir.TensorNode{}, err
	}
	ctx.SetParentGraph(path, graph)

	if err := hintVariables(graph, node.TensorGraph); err != nil {
		return ir.TensorNode{}, err
	}

	for _, name := range sortedWithNames(node.Withs) {
		if err := processWith(ctx, path, node.Withs[name], build); err != nil {
			return ir.TensorNode{}, err
		}
	}

	for _, name := range sortedChildNames(node.Children) {
		built, err := BuildNode(sd, ctx, path.Child(name), node.Children[name], build)
		if err != nil {
			return ir.TensorNode{}, err
		}
		ctx.AddChild(path, name, built)
	}

	ids := sortedGraphNodeIDs(node.TensorGraph)
	tensorGraph := make([]ir.TensorNode, 0, len(ids))
	for i, id := range ids {
		if id != uint64(i) {
			return ir.TensorNode{}, &n3err.GraphNodeError{Kind: n3err.ErrMismatchedID, ExpectedID: uint64(i), GivenID: id}
		}
		if err := buildGraphNodeEntry(sd, ctx, path, &tensorGraph, node.TensorGraph[id], build); err != nil {
			return ir.TensorNode{}, err
		}
	}

	return ir.NewNode(&ir.NodeIR{
		Data:        ir.WithNoShapes(node.Name, graph),
		TensorGraph: tensorGraph,
	}), nil
}

// processWith applies a `with <name>: { overrides }` block (§3): the
// named callee is resolved once (through the same child/use/cache search
// every call site uses), its overrides are evaluated through the caller's
// own graph (so an override may itself reference the caller's
// variables), applied directly (canonical names only - a with-block does
// not go through the call-site shortcut table), and the result is
// registered as a child under that name for later tensor-graph entries to
// call by name.
func processWith(ctx *resolver.Context, path resolver.NodeName, w ast.With, build nodecache.Builder) error {
	callee, err := ctx.Get(path, w.Name, build)
	if err != nil {
		return err
	}
	callerGraph, _ := ctx.ParentGraph(path)
	args := make(map[string]*value.Value, len(w.Graph))
	for k, v := range w.Graph {
		rv := v
		if callerGraph != nil {
			rv, err = callerGraph.ReplaceTo(v)
			if err != nil {
				return err
			}
		}
		args[k] = rv
	}
	if err := callee.ApplyVariables(args, false); err != nil {
		return err
	}
	ctx.AddChild(path, w.Name, callee)
	return nil
}

// hintVariables materialises every declared shapes annotation across the
// whole tensor graph up front (§4.B.3), before any child or tensor-graph
// entry is built, so a dim variable referenced by name anywhere in the
// node's body already carries its Dim(out, axis) hint by the time it is
// read.
func hintVariables(graph *variable.VariableGraph, tensorGraph map[uint64]ast.GraphNode) error {
	for _, id := range sortedGraphNodeIDs(tensorGraph) {
		gn := tensorGraph[id]
		if gn.Shapes == nil {
			continue
		}
		outID := id + 1
		for _, key := range sortedShapeKeys(gn.Shapes) {
			hinted, err := graph.Hint(value.Out{ID: &outID, Name: key}, gn.Shapes[key])
			if err != nil {
				return err
			}
			gn.Shapes[key] = hinted
		}
	}
	return nil
}

// buildExtern builds an Extern/Data/Optim-kind node (§4.E): a fresh graph
// with no inherited parent scope, a tensor graph validated to the exact
// shape each subkind requires, collapsed into a single ExternIR wrapped
// by a NodeIR so every node kind shares NodeIR.Build's unwrap-on-build
// path.
func buildExtern(sd *seed.Seed, node ast.Node, subKind ast.ExternSubKind) (ir.TensorNode, error) {
	if len(node.Withs) != 0 {
		return ir.TensorNode{}, &n3err.ExecBuildError{Kind: n3err.ErrUnexpectedWiths}
	}
	if len(node.Children) != 0 {
		return ir.TensorNode{}, &n3err.ExecBuildError{Kind: n3err.ErrUnexpectedChildren}
	}

	graph, err := buildGraph(sd, node.Graph, false)
	if err != nil {
		return ir.TensorNode{}, err
	}

	extern, err := buildExternTensorGraph(node, graph, subKind)
	if err != nil {
		return ir.TensorNode{}, err
	}

	return ir.NewNode(&ir.NodeIR{
		Data:        ir.WithShapes(node.Name, extern.Data.Graph, extern.Shapes.Input, extern.Shapes.Output),
		Type:        ir.NodeIRType{IsExtern: true, ExternSub: subKind},
		TensorGraph: []ir.TensorNode{ir.NewExtern(extern)},
	}), nil
}

// buildExec builds an Exec-kind node (§4.E "get_links"): no withs or
// children are permitted, its tensor graph is non-empty and 1-indexed
// contiguous, and every entry is a bare, unshaped, unrepeated, no-arg,
// no-input list of callee names - the ordered chain ExecIR.Links records
// for execlower to shape-link and lower.
func buildExec(sd *seed.Seed, ctx *resolver.Context, path resolver.NodeName, node ast.Node) (ir.TensorNode, error) {
	if len(node.Withs) != 0 {
		return ir.TensorNode{}, &n3err.ExecBuildError{Kind: n3err.ErrUnexpectedWiths}
	}
	if len(node.Children) != 0 {
		return ir.TensorNode{}, &n3err.ExecBuildError{Kind: n3err.ErrUnexpectedChildren}
	}
	if len(node.TensorGraph) == 0 {
		return ir.TensorNode{}, &n3err.ExecBuildError{Kind: n3err.ErrEmptyGraph}
	}

	graph, err := buildGraph(sd, node.Graph, true)
	if err != nil {
		return ir.TensorNode{}, err
	}
	ctx.SetParentGraph(path, graph)

	ids := sortedGraphNodeIDs(node.TensorGraph)
	links := make([][]string, 0, len(ids))
	for i, id := range ids {
		if id != uint64(i)+1 {
			return ir.TensorNode{}, &n3err.GraphNodeError{Kind: n3err.ErrMismatchedID, ExpectedID: uint64(i) + 1, GivenID: id}
		}
		gn := node.TensorGraph[id]
		if gn.Shapes != nil {
			return ir.TensorNode{}, &n3err.GraphNodeError{Kind: n3err.ErrUnexpectedShapes}
		}
		if len(gn.Calls) == 0 {
			return ir.TensorNode{}, &n3err.GraphNodeError{Kind: n3err.ErrEmptyCalls}
		}
		names := make([]string, len(gn.Calls))
		for i2, call := range gn.Calls {
			if call.Inputs != nil {
				return ir.TensorNode{}, &n3err.GraphCallError{Kind: n3err.ErrUnexpectedInputs, Name: call.Name}
			}
			if len(call.Args) != 0 {
				return ir.TensorNode{}, &n3err.GraphCallError{Kind: n3err.ErrUnexpectedArgs, Name: call.Name}
			}
			if call.Repeat != nil {
				return ir.TensorNode{}, &n3err.GraphCallError{Kind: n3err.ErrUnexpectedRepeat, Name: call.Name}
			}
			names[i2] = call.Name
		}
		links = append(links, names)
	}

	return ir.NewExec(&ir.ExecIR{
		Data:  ir.WithNoShapes(node.Name, graph),
		Links: links,
	}), nil
}

func sortedLetNames(lets map[string]ast.NodeLet) []string {
	out := make([]string, 0, len(lets))
	for name := range lets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func sortedUseNames(uses map[string]ast.Use) []string {
	out := make([]string, 0, len(uses))
	for name := range uses {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func sortedWithNames(withs map[string]ast.With) []string {
	out := make([]string, 0, len(withs))
	for name := range withs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func sortedChildNames(children map[string]ast.Node) []string {
	out := make([]string, 0, len(children))
	for name := range children {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func sortedShapeKeys(shapes map[string][]*value.Value) []string {
	out := make([]string, 0, len(shapes))
	for k := range shapes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedGraphNodeIDs(tensorGraph map[uint64]ast.GraphNode) []uint64 {
	out := make([]uint64, 0, len(tensorGraph))
	for id := range tensorGraph {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
