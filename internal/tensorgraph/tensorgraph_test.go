// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tensorgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HoKim98/n3/internal/ast"
	"github.com/HoKim98/n3/internal/code"
	"github.com/HoKim98/n3/internal/nodecache"
	"github.com/HoKim98/n3/internal/resolver"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/value"
)

type fakeRoot struct{ sd *seed.Seed }

func (r *fakeRoot) Seed() *seed.Seed { return r.sd }

func dims(values ...uint64) []*value.Value {
	out := make([]*value.Value, len(values))
	for i, v := range values {
		out[i] = value.NewUInt(v)
	}
	return out
}

// TestBuildDefaultNodeInputToLinearTransform exercises §8 scenario 4's
// shape-propagating chain without needing a callee resolver: a reserved
// Input entry declaring {32}, flattened by ToLinear (a no-op here since it
// is already rank 1), then reshaped by Transform into the equal-product
// {8, 4}.
func TestBuildDefaultNodeInputToLinearTransform(t *testing.T) {
	node := ast.Node{
		Name: "MyNode",
		Kind: ast.NodeDefault,
		TensorGraph: map[uint64]ast.GraphNode{
			0: {ID: 0, Calls: []ast.Call{{Name: "Input"}}, Shapes: map[string][]*value.Value{"x": dims(32)}},
			1: {ID: 1, Calls: []ast.Call{{Name: "ToLinear"}}},
			2: {ID: 2, Calls: []ast.Call{{Name: "Transform"}}, Shapes: map[string][]*value.Value{"x": dims(8, 4)}},
		},
	}

	cache, err := nodecache.New()
	require.NoError(t, err)
	defer cache.Close()
	sd := seed.New()
	ctx := resolver.New(cache, sd)

	built, err := BuildNode(sd, ctx, resolver.NodeName{}, node, nil)
	require.NoError(t, err)
	require.Equal(t, "MyNode", built.Name())
	require.Len(t, built.Node.TensorGraph, 3)

	root := &fakeRoot{sd: sd}
	c, err := built.Build(root)
	require.NoError(t, err)
	require.Equal(t, code.KindNode, c.Kind)
	require.Len(t, c.Node.TensorGraph, 3)

	last := c.Node.TensorGraph[2]
	outShape := last.Data().Output
	require.Contains(t, outShape, "x")
}

// TestBuildTransformRejectsMismatchedProduct checks Transform's declared
// output must have the same total element count as its input (§4.E).
func TestBuildTransformRejectsMismatchedProduct(t *testing.T) {
	node := ast.Node{
		Name: "BadNode",
		Kind: ast.NodeDefault,
		TensorGraph: map[uint64]ast.GraphNode{
			0: {ID: 0, Calls: []ast.Call{{Name: "Input"}}, Shapes: map[string][]*value.Value{"x": dims(32)}},
			1: {ID: 1, Calls: []ast.Call{{Name: "Transform"}}, Shapes: map[string][]*value.Value{"x": dims(8, 5)}},
		},
	}

	cache, err := nodecache.New()
	require.NoError(t, err)
	defer cache.Close()
	sd := seed.New()
	ctx := resolver.New(cache, sd)

	_, err = BuildNode(sd, ctx, resolver.NodeName{}, node, nil)
	require.Error(t, err)
}

// TestBuildConcatAlongAxis exercises the Concat built-in (§4.E): two
// same-rank inputs differing only along the concat axis produce an output
// whose axis dim is their sum.
func TestBuildConcatAlongAxis(t *testing.T) {
	node := ast.Node{
		Name: "ConcatNode",
		Kind: ast.NodeDefault,
		TensorGraph: map[uint64]ast.GraphNode{
			0: {ID: 0, Calls: []ast.Call{{Name: "Input"}}, Shapes: map[string][]*value.Value{
				"a": dims(4, 8),
				"b": dims(4, 8),
			}},
			1: {
				ID: 1,
				Calls: []ast.Call{{
					Name:   "Concat",
					Inputs: &ast.Inputs{Kind: ast.InputsList, List: []value.Out{{Name: "a"}, {Name: "b"}}},
					Args:   map[string]*value.Value{"axis": value.NewInt(1)},
				}},
			},
		},
	}

	cache, err := nodecache.New()
	require.NoError(t, err)
	defer cache.Close()
	sd := seed.New()
	ctx := resolver.New(cache, sd)

	built, err := BuildNode(sd, ctx, resolver.NodeName{}, node, nil)
	require.NoError(t, err)
	require.Len(t, built.Node.TensorGraph, 2)

	concatEntry := built.Node.TensorGraph[1]
	outShapes := concatEntry.OutputShapes()
	require.NotNil(t, outShapes)
	outDims := (*outShapes)["x"]
	require.Len(t, outDims, 2)

	resolved, err := value.Resolve(outDims[1])
	require.NoError(t, err)
	require.Equal(t, uint64(16), resolved.UInt)
}

// TestBuildConcatRejectsAxisOutOfRange checks the axis bound error (§4.E,
// MismatchedAxis).
func TestBuildConcatRejectsAxisOutOfRange(t *testing.T) {
	node := ast.Node{
		Name: "ConcatNode",
		Kind: ast.NodeDefault,
		TensorGraph: map[uint64]ast.GraphNode{
			0: {ID: 0, Calls: []ast.Call{{Name: "Input"}}, Shapes: map[string][]*value.Value{
				"a": dims(4, 8),
				"b": dims(4, 8),
			}},
			1: {
				ID: 1,
				Calls: []ast.Call{{
					Name:   "Concat",
					Inputs: &ast.Inputs{Kind: ast.InputsList, List: []value.Out{{Name: "a"}, {Name: "b"}}},
					Args:   map[string]*value.Value{"axis": value.NewInt(5)},
				}},
			},
		},
	}

	cache, err := nodecache.New()
	require.NoError(t, err)
	defer cache.Close()
	sd := seed.New()
	ctx := resolver.New(cache, sd)

	_, err = BuildNode(sd, ctx, resolver.NodeName{}, node, nil)
	require.Error(t, err)
}

// TestBuildDefaultRejectsNonContiguousGraphNodeIDs checks §4.E's id
// contiguity precondition.
func TestBuildDefaultRejectsNonContiguousGraphNodeIDs(t *testing.T) {
	node := ast.Node{
		Name: "Gappy",
		Kind: ast.NodeDefault,
		TensorGraph: map[uint64]ast.GraphNode{
			0: {ID: 0, Calls: []ast.Call{{Name: "Input"}}, Shapes: map[string][]*value.Value{"x": dims(32)}},
			2: {ID: 2, Calls: []ast.Call{{Name: "ToLinear"}}},
		},
	}

	cache, err := nodecache.New()
	require.NoError(t, err)
	defer cache.Close()
	sd := seed.New()
	ctx := resolver.New(cache, sd)

	_, err = BuildNode(sd, ctx, resolver.NodeName{}, node, nil)
	require.Error(t, err)
}
