// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HoKim98/n3/internal/ast"
	"github.com/HoKim98/n3/internal/code"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/shape"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

type fakeRoot struct{ sd *seed.Seed }

func (r *fakeRoot) Seed() *seed.Seed { return r.sd }

func newRoot() *fakeRoot { return &fakeRoot{sd: seed.New()} }

func TestNodeIRBuildRepeatOneIsNoOp(t *testing.T) {
	root := newRoot()
	graph := variable.NewGraph(root.Seed().Generate())
	node := &NodeIR{
		Data:   WithNoShapes("Block", graph),
		Repeat: value.NewUInt(1),
	}
	c, err := node.Build(root)
	require.NoError(t, err)
	require.Equal(t, code.KindNode, c.Kind)
}

func TestNodeIRBuildRepeatZeroClearsGraph(t *testing.T) {
	root := newRoot()
	graph := variable.NewGraph(root.Seed().Generate())
	childGraph := variable.NewGraph(root.Seed().Generate())

	shapes := shape.Shapes{"x": {value.NewUInt(3)}}
	extern := NewExternIR(ast.ExternSubDefault, "Dense", childGraph, &shapes, &shapes)

	node := &NodeIR{
		Data:        WithNoShapes("Block", graph),
		TensorGraph: []TensorNode{NewExtern(extern)},
		Repeat:      value.NewUInt(0),
	}
	c, err := node.Build(root)
	require.NoError(t, err)
	require.Equal(t, code.KindNode, c.Kind)
	require.Empty(t, c.Node.TensorGraph)
}

func TestNodeIRBuildUnwrapsSingleExtern(t *testing.T) {
	root := newRoot()
	graph := variable.NewGraph(root.Seed().Generate())
	extern := NewExternIR(ast.ExternSubDefault, "Dense", graph, nil, nil)

	idc := uint64(1)
	node := &NodeIR{
		Data:        IRData{Name: "Dense", Graph: graph, Input: map[string]value.Out{"x": {ID: &idc, Name: "x"}}, Output: map[string]value.Out{"x": {ID: &idc, Name: "x"}}},
		Type:        NodeIRType{IsExtern: true},
		TensorGraph: []TensorNode{NewExtern(extern)},
	}
	c, err := node.Build(root)
	require.NoError(t, err)
	require.Equal(t, code.KindExtern, c.Kind)
	require.Equal(t, node.Data.Input, c.Extern.Data.Input)
}

func TestExternIRBuild(t *testing.T) {
	root := newRoot()
	graph := variable.NewGraph(root.Seed().Generate())
	graph.Add(variable.New("w"))
	extern := NewExternIR(ast.ExternSubOptim, "SGD", graph, nil, nil)
	c := extern.Build()
	require.Equal(t, ast.ExternSubOptim, c.SubKind)
	require.Contains(t, c.Data.Graph.Variables, "w")
}

func TestTensorNodeBuildPanicsOnExec(t *testing.T) {
	root := newRoot()
	exec := &ExecIR{Data: WithNoShapes("main", variable.NewGraph(root.Seed().Generate()))}
	tn := NewExec(exec)
	require.Panics(t, func() { _, _ = tn.Build(root) })
}

func TestNodeIRCloneSafeAllocatesFreshGraphID(t *testing.T) {
	root := newRoot()
	graph := variable.NewGraph(root.Seed().Generate())
	graph.Add(variable.NewWithValue("scale", value.NewUInt(2)))
	require.NoError(t, graph.Build())

	node := &NodeIR{Data: WithNoShapes("Block", graph)}
	var visited []*variable.Variable
	clone := node.CloneSafe(root.Seed(), &visited)
	require.NotEqual(t, node.Data.Graph.ID(), clone.Data.Graph.ID())
	require.Contains(t, clone.Data.Graph.Variables(), "scale")
}
