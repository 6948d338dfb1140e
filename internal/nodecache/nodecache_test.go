// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package nodecache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HoKim98/n3/internal/ir"
	"github.com/HoKim98/n3/internal/n3err"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/variable"
)

func newTensorNode(sd *seed.Seed, name string) ir.TensorNode {
	graph := variable.NewGraph(sd.Generate())
	return ir.NewNode(&ir.NodeIR{Data: ir.WithNoShapes(name, graph)})
}

func TestNodeCacheGetBuildsOnceThenCaches(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.AddSource("MyNode", "source text"))

	sd := seed.New()
	builds := 0
	build := func(name, source string) (ir.TensorNode, error) {
		builds++
		require.Equal(t, "MyNode", name)
		require.Equal(t, "source text", source)
		return newTensorNode(sd, name), nil
	}

	node1, err := c.Get("MyNode", sd, build)
	require.NoError(t, err)
	require.Equal(t, "MyNode", node1.Name())

	node2, err := c.Get("MyNode", sd, build)
	require.NoError(t, err)
	require.Equal(t, "MyNode", node2.Name())

	require.Equal(t, 1, builds, "a name must be built at most once per NodeCache lifetime")
}

func TestNodeCacheGetReturnsIndependentClones(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.AddSource("MyNode", "source"))
	sd := seed.New()
	build := func(name, source string) (ir.TensorNode, error) {
		return newTensorNode(sd, name), nil
	}

	node1, err := c.Get("MyNode", sd, build)
	require.NoError(t, err)
	node2, err := c.Get("MyNode", sd, build)
	require.NoError(t, err)

	require.NotSame(t, node1.Graph(), node2.Graph(), "re-entrant Get calls must hand out independently owned graphs")
	require.NotEqual(t, node1.Graph().ID(), node2.Graph().ID(), "each clone must be stamped with a fresh graph id")
}

func TestNodeCacheAddPathReadsAndDrainsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my_node.n3")
	require.NoError(t, os.WriteFile(path, []byte("node body"), 0o644))

	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.AddPath("MyNode", path))

	sd := seed.New()
	var seenSource string
	build := func(name, source string) (ir.TensorNode, error) {
		seenSource = source
		return newTensorNode(sd, name), nil
	}

	_, err = c.Get("MyNode", sd, build)
	require.NoError(t, err)
	require.Equal(t, "node body", seenSource)

	// A second Get must hit the builds cache, not re-read the path.
	require.NoError(t, os.Remove(path))
	_, err = c.Get("MyNode", sd, build)
	require.NoError(t, err)
}

func TestNodeCacheGetNoSuchNode(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	sd := seed.New()
	_, err = c.Get("Missing", sd, func(name, source string) (ir.TensorNode, error) {
		t.Fatal("build must not be called for an unregistered name")
		return ir.TensorNode{}, nil
	})
	require.Error(t, err)
	var tnErr *n3err.TensorNodeError
	require.ErrorAs(t, err, &tnErr)
	require.Equal(t, n3err.ErrNoSuchNode, tnErr.Kind)
	require.Equal(t, "Missing", tnErr.Name)
}

func TestNodeCachePathTakesPrecedenceOverSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my_node.n3")
	require.NoError(t, os.WriteFile(path, []byte("from path"), 0o644))

	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.AddSource("MyNode", "from source"))
	require.NoError(t, c.AddPath("MyNode", path))

	sd := seed.New()
	var seenSource string
	_, err = c.Get("MyNode", sd, func(name, source string) (ir.TensorNode, error) {
		seenSource = source
		return newTensorNode(sd, name), nil
	})
	require.NoError(t, err)
	require.Equal(t, "from path", seenSource)
}

func TestNodeCacheGetExternSourceDrainsOnRead(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.AddExternSource("Dense", "def forward(): ..."))

	src, err := c.GetExternSource("Dense")
	require.NoError(t, err)
	require.Equal(t, "def forward(): ...", src)

	_, err = c.GetExternSource("Dense")
	require.Error(t, err)
}

func TestNodeCacheGetDetectsNodeCycle(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.AddSource("A", "uses B"))
	require.NoError(t, c.AddSource("B", "uses A"))

	sd := seed.New()
	var build Builder
	build = func(name, source string) (ir.TensorNode, error) {
		// A's build resolves B, whose build resolves A again.
		other := "B"
		if name == "B" {
			other = "A"
		}
		if _, err := c.Get(other, sd, build); err != nil {
			return ir.TensorNode{}, err
		}
		return newTensorNode(sd, name), nil
	}

	_, err = c.Get("A", sd, build)
	require.Error(t, err)
	var tnErr *n3err.TensorNodeError
	require.ErrorAs(t, err, &tnErr)
	require.Equal(t, n3err.ErrCycledNode, tnErr.Kind)
	require.Equal(t, "A", tnErr.Name)
}

func TestNodeCacheBuildErrorIsNotCached(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.AddSource("Bad", "broken"))

	sd := seed.New()
	attempts := 0
	build := func(name, source string) (ir.TensorNode, error) {
		attempts++
		return ir.TensorNode{}, &n3err.TensorNodeError{Kind: n3err.ErrNoSuchNode, Name: "Bad"}
	}

	_, err = c.Get("Bad", sd, build)
	require.Error(t, err)

	// The source was drained on the first (failed) attempt; a retry must
	// fail NoSuchNode rather than invoke build a second time.
	_, err = c.Get("Bad", sd, build)
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}
