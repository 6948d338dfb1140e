// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolver implements the scope stack a build walks while
// resolving a callee name to its IR (§4.D): nested children take priority
// over outward uses, which take priority over the NodeCache.
package resolver

import (
	"strings"

	"github.com/HoKim98/n3/internal/ir"
	"github.com/HoKim98/n3/internal/nodecache"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/variable"
)

// NodeName is the stack of enclosing node identifiers, outermost first
// (e.g. ["MyModel", "Encoder"] while building Encoder's own body).
type NodeName []string

func (n NodeName) key() string { return strings.Join(n, ".") }

// Child appends name to the path, returning the path a nested child node
// builds under.
func (n NodeName) Child(name string) NodeName {
	out := make(NodeName, len(n)+1)
	copy(out, n)
	out[len(n)] = name
	return out
}

// Context is the resolver scope stack (§4.D): parent graphs, each parent's
// directly nested children, and the names imported via `use` at the
// current file's top level.
type Context struct {
	cache *nodecache.NodeCache
	seed  *seed.Seed

	parents  map[string]*variable.VariableGraph
	children map[string]map[string]ir.TensorNode
	uses     map[string]ir.TensorNode
}

// New creates an empty Context over cache, allocating ids through sd.
func New(cache *nodecache.NodeCache, sd *seed.Seed) *Context {
	return &Context{
		cache:    cache,
		seed:     sd,
		parents:  make(map[string]*variable.VariableGraph),
		children: make(map[string]map[string]ir.TensorNode),
		uses:     make(map[string]ir.TensorNode),
	}
}

// Seed exposes the allocator, satisfying ir.Root for callers that build
// through a Context.
func (c *Context) Seed() *seed.Seed { return c.seed }

// SetParentGraph records path's own VariableGraph, so a nested child can
// later resolve siblings/ancestors' `with` overrides against it.
func (c *Context) SetParentGraph(path NodeName, g *variable.VariableGraph) {
	c.parents[path.key()] = g
}

// ParentGraph returns path's own VariableGraph, if recorded.
func (c *Context) ParentGraph(path NodeName) (*variable.VariableGraph, bool) {
	g, ok := c.parents[path.key()]
	return g, ok
}

// AddChild registers name as a child IR directly nested under path.
func (c *Context) AddChild(path NodeName, name string, built ir.TensorNode) {
	key := path.key()
	m, ok := c.children[key]
	if !ok {
		m = make(map[string]ir.TensorNode)
		c.children[key] = m
	}
	m[name] = built
}

// AddUse registers name as imported via a top-level `use` declaration.
func (c *Context) AddUse(name string, built ir.TensorNode) {
	c.uses[name] = built
}

// Get resolves name as seen from path (§4.D): walk path from innermost
// scope toward the root looking through each ancestor's directly nested
// children, then fall back to uses, then to the NodeCache. Every IR
// returned is safe-cloned, so no two call sites ever alias the same
// variable identities.
func (c *Context) Get(path NodeName, name string, build nodecache.Builder) (ir.TensorNode, error) {
	for i := len(path); i >= 0; i-- {
		key := path[:i].key()
		if m, ok := c.children[key]; ok {
			if built, ok := m[name]; ok {
				var visited []*variable.Variable
				return built.CloneSafe(c.seed, &visited), nil
			}
		}
	}
	if built, ok := c.uses[name]; ok {
		var visited []*variable.Variable
		return built.CloneSafe(c.seed, &visited), nil
	}
	return c.cache.Get(name, c.seed, build)
}
