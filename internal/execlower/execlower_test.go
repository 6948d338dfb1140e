// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package execlower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HoKim98/n3/internal/ir"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"

	"github.com/HoKim98/n3/internal/execvars"
)

type fakeRoot struct {
	sd    *seed.Seed
	nodes map[string]ir.TensorNode
}

func (r *fakeRoot) Seed() *seed.Seed { return r.sd }

func (r *fakeRoot) GetExternSource(name string) (string, error) {
	return "", nil
}

func (r *fakeRoot) ResolveNode(name string) (ir.TensorNode, error) {
	n, ok := r.nodes[name]
	if !ok {
		panic("unexpected ResolveNode call: " + name)
	}
	return n, nil
}

func leafNode(sd *seed.Seed, name string) ir.TensorNode {
	g := variable.NewGraph(sd.Generate())
	return ir.NewNode(&ir.NodeIR{Data: ir.WithNoShapes(name, g), TensorGraph: []ir.TensorNode{}})
}

// newExec builds an ExecIR whose graph declares two Node(Default)-typed
// variables bound directly to node names, plus one plain UInt variable
// left for args to override.
func newExec(sd *seed.Seed) *ir.ExecIR {
	g := variable.NewGraph(sd.Generate())

	backbone := variable.New("backbone")
	backboneTy := value.Node("Default")
	backbone.Type = &backboneTy
	backbone.Value = value.NewNode("Backbone")
	_ = g.Add(backbone)

	head := variable.New("head")
	headTy := value.Node("Default")
	head.Type = &headTy
	head.Value = value.NewNode("Head")
	_ = g.Add(head)

	scale := variable.New("scale")
	scaleTy := value.UInt()
	scale.Type = &scaleTy
	scale.Value = value.NewUInt(2)
	_ = g.Add(scale)

	return &ir.ExecIR{
		Data:  ir.WithNoShapes("MyExec", g),
		Links: [][]string{{"backbone", "head"}},
	}
}

func TestLowerPrunesNodeVariablesAndRetainsOthers(t *testing.T) {
	sd := seed.New()
	root := &fakeRoot{sd: sd, nodes: map[string]ir.TensorNode{
		"Backbone": leafNode(sd, "Backbone"),
		"Head":     leafNode(sd, "Head"),
	}}

	args := execvars.FromVariables(map[string]*variable.Variable{})
	prog, err := Lower(root, newExec(sd), args)
	require.NoError(t, err)

	require.Contains(t, prog.Nodes, "backbone")
	require.Contains(t, prog.Nodes, "head")
	require.NotContains(t, prog.Nodes, "scale")

	require.Contains(t, prog.Graph.Variables, "scale")
	require.NotContains(t, prog.Graph.Variables, "backbone")
	require.NotContains(t, prog.Graph.Variables, "head")

	scaleVal := prog.Graph.Variables["scale"].Value
	require.True(t, value.Equal(value.NewUInt(2), scaleVal))
}

func TestLowerAppliesArgOverride(t *testing.T) {
	sd := seed.New()
	root := &fakeRoot{sd: sd, nodes: map[string]ir.TensorNode{
		"Backbone": leafNode(sd, "Backbone"),
		"Head":     leafNode(sd, "Head"),
	}}

	override := variable.New("scale")
	overrideTy := value.UInt()
	override.Type = &overrideTy
	override.Value = value.NewUInt(9)
	args := execvars.FromVariables(map[string]*variable.Variable{"scale": override})

	prog, err := Lower(root, newExec(sd), args)
	require.NoError(t, err)

	scaleVal := prog.Graph.Variables["scale"].Value
	require.True(t, value.Equal(value.NewUInt(9), scaleVal))
}

func TestLowerRejectsMismatchedNodeKind(t *testing.T) {
	sd := seed.New()
	root := &fakeRoot{sd: sd, nodes: map[string]ir.TensorNode{
		"Backbone": leafNode(sd, "Backbone"), // resolves as plain "Default"
	}}

	g := variable.NewGraph(sd.Generate())
	backbone := variable.New("backbone")
	// Declared as Node("Data"): a plain Default node does not satisfy
	// this (the Default<-Extern exception only runs the other way).
	backboneTy := value.Node("Data")
	backbone.Type = &backboneTy
	backbone.Value = value.NewNode("Backbone")
	_ = g.Add(backbone)
	x := &ir.ExecIR{Data: ir.WithNoShapes("MyExec", g), Links: [][]string{{"backbone"}}}

	args := execvars.FromVariables(map[string]*variable.Variable{})
	_, err := Lower(root, x, args)
	require.Error(t, err)
}

func TestLowerResolvesNodeNameFromArgsWhenUnset(t *testing.T) {
	sd := seed.New()
	root := &fakeRoot{sd: sd, nodes: map[string]ir.TensorNode{
		"Backbone": leafNode(sd, "Backbone"),
		"Custom":   leafNode(sd, "Custom"),
	}}

	g := variable.NewGraph(sd.Generate())
	backbone := variable.New("backbone")
	backboneTy := value.Node("Default")
	backbone.Type = &backboneTy
	_ = g.Add(backbone)
	x := &ir.ExecIR{Data: ir.WithNoShapes("MyExec", g), Links: [][]string{{"backbone"}}}

	backboneArg := variable.New("backbone")
	backboneArg.Value = value.NewNode("Custom")
	args := execvars.FromVariables(map[string]*variable.Variable{"backbone": backboneArg})

	prog, err := Lower(root, x, args)
	require.NoError(t, err)
	require.Contains(t, prog.Nodes, "backbone")
	require.Equal(t, "Custom", prog.Nodes["backbone"].Data().Name)
}
