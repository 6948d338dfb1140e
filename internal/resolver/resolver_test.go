// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HoKim98/n3/internal/ir"
	"github.com/HoKim98/n3/internal/nodecache"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/variable"
)

func nodeNamed(sd *seed.Seed, name string) ir.TensorNode {
	graph := variable.NewGraph(sd.Generate())
	return ir.NewNode(&ir.NodeIR{Data: ir.WithNoShapes(name, graph)})
}

func TestContextGetPrefersNestedChildOverUse(t *testing.T) {
	cache, err := nodecache.New()
	require.NoError(t, err)
	defer cache.Close()

	sd := seed.New()
	ctx := New(cache, sd)

	path := NodeName{"Outer"}
	ctx.AddChild(path, "Block", nodeNamed(sd, "child-version"))
	ctx.AddUse("Block", nodeNamed(sd, "use-version"))

	got, err := ctx.Get(path, "Block", nil)
	require.NoError(t, err)
	require.Equal(t, "child-version", got.Name())
}

func TestContextGetFallsBackToUseThenCache(t *testing.T) {
	cache, err := nodecache.New()
	require.NoError(t, err)
	defer cache.Close()

	sd := seed.New()
	ctx := New(cache, sd)

	ctx.AddUse("Shared", nodeNamed(sd, "use-version"))

	got, err := ctx.Get(NodeName{"Outer", "Inner"}, "Shared", nil)
	require.NoError(t, err)
	require.Equal(t, "use-version", got.Name())

	require.NoError(t, cache.AddSource("Cached", "src"))
	built := nodeNamed(sd, "cache-version")
	got, err = ctx.Get(NodeName{"Outer"}, "Cached", func(name, source string) (ir.TensorNode, error) {
		return built, nil
	})
	require.NoError(t, err)
	require.Equal(t, "cache-version", got.Name())
}

func TestContextGetSearchesAncestorsOutward(t *testing.T) {
	cache, err := nodecache.New()
	require.NoError(t, err)
	defer cache.Close()

	sd := seed.New()
	ctx := New(cache, sd)

	// Register "Shared" as a child of the outermost scope only; a request
	// from a deeply nested path must still find it by walking outward.
	ctx.AddChild(NodeName{"Outer"}, "Shared", nodeNamed(sd, "outer-child"))

	got, err := ctx.Get(NodeName{"Outer", "Middle", "Inner"}, "Shared", nil)
	require.NoError(t, err)
	require.Equal(t, "outer-child", got.Name())
}

func TestContextGetReturnsIndependentClones(t *testing.T) {
	cache, err := nodecache.New()
	require.NoError(t, err)
	defer cache.Close()

	sd := seed.New()
	ctx := New(cache, sd)

	path := NodeName{"Outer"}
	ctx.AddChild(path, "Block", nodeNamed(sd, "child-version"))

	got1, err := ctx.Get(path, "Block", nil)
	require.NoError(t, err)
	got2, err := ctx.Get(path, "Block", nil)
	require.NoError(t, err)

	require.NotSame(t, got1.Graph(), got2.Graph())
}
