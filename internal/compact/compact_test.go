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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HoKim98/n3/internal/code"
	"github.com/HoKim98/n3/internal/program"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

// buildSharedProgram constructs a small Program where the exec's retained
// graph is the very same *variable.Table as the root Default node's graph,
// and the leaf Extern node's own graph holds a variable whose value is a
// VariableRef into that shared table - the two sharing shapes §8's "graph
// sharing is preserved" invariant exercises.
func buildSharedProgram(t *testing.T) program.Program {
	t.Helper()

	childGraph := &variable.Table{
		ID: 7,
		Variables: map[string]*variable.Variable{
			"width": {Name: "width", Value: value.NewUInt(64)},
		},
	}
	childID := childGraph.Variables["width"].ID
	_ = childID

	sharedGraph := &variable.Table{
		ID: 3,
		Variables: map[string]*variable.Variable{
			"x": {Name: "x", Value: value.NewUInt(32)},
		},
	}
	id3 := seed.ID(3)
	sharedGraph.Variables["x"].ID = &id3

	id7 := seed.ID(7)
	childGraph.Variables["width"].ID = &id7
	childGraph.Variables["width"].Value = value.NewVariableRef(sharedGraph.Variables["x"])

	leaf := code.NewExtern(code.ExternCode{
		Data: code.CodeData{
			Name:  "Linear",
			Graph: childGraph,
			Input: map[string]value.Out{"x": {Name: "x"}},
		},
	})

	root := code.NewNode(code.NodeCode{
		Data: code.CodeData{
			Name:  "MyNode",
			Graph: sharedGraph,
			Input: map[string]value.Out{"x": {Name: "x"}},
		},
		TensorGraph: []code.Code{leaf},
	})

	return program.Program{
		Graph: sharedGraph,
		Nodes: map[string]code.Code{
			program.MainEntry: root,
		},
		Scripts: code.Scripts{},
	}
}

func TestCompactDecompactRoundTrip(t *testing.T) {
	p := buildSharedProgram(t)

	wire := Compact(p)
	got := Decompact(wire)

	require.True(t, p.Equal(got), "decompacted program must equal the original")
}

func TestCompactDecompactPreservesGraphSharing(t *testing.T) {
	p := buildSharedProgram(t)

	wire := Compact(p)
	got := Decompact(wire)

	root := got.Nodes[program.MainEntry]
	require.Equal(t, code.KindNode, root.Kind)
	leaf := root.Node.TensorGraph[0]

	ref := leaf.Data().Graph.Variables["width"].Value
	require.Equal(t, value.KindVariableRef, ref.Kind)

	refVar, ok := ref.Ref.(*variable.Variable)
	require.True(t, ok)
	require.Same(t, got.Graph.Variables["x"], refVar, "VariableRef must resolve to the same pointer as the program's retained graph")
}

func TestCompactDenseIDsAreOrderIndependent(t *testing.T) {
	p := buildSharedProgram(t)
	wireA := Compact(p)

	// Re-run compaction twice: table ordering is driven by sorted original
	// ids, not map iteration order, so repeated compaction of the same
	// Program must assign the same root id and the same dense table ids.
	wireB := Compact(p)

	require.Equal(t, wireA.GraphID, wireB.GraphID)
	require.Equal(t, len(wireA.Graphs), len(wireB.Graphs))
	for i := range wireA.Graphs {
		require.Equal(t, wireA.Graphs[i].ID, wireB.Graphs[i].ID)
	}
}

func TestCompactRoundTripStaysEqualAfterMatchingMutation(t *testing.T) {
	p := buildSharedProgram(t)
	wire := Compact(p)
	got := Decompact(wire)

	require.True(t, p.Equal(got))

	// Mutate both sides' shared dim variable identically - §8 scenario 6:
	// after an arbitrary but matching mutation, equality must still hold.
	p.Graph.Variables["x"].Value = value.NewUInt(99)
	got.Graph.Variables["x"].Value = value.NewUInt(99)

	require.True(t, p.Equal(got))
}
