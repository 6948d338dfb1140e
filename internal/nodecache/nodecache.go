// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package nodecache implements NodeCache (§4.C): the lazy name->IR store
// backed by in-memory source text and filesystem paths, with at-most-one
// build per name for the lifetime of a NodeRoot.
//
// The source/path maps live in an in-memory badger.DB rather than a bare Go
// map - a real embedded KV engine, never touching disk (WithInMemory),
// which is what lets NodeCache satisfy the "no persistence across process
// runs" Non-goal while still drawing on the teacher's storage stack
// (services/trace/storage/badger). Build coalescing uses singleflight,
// grounded on services/trace/cache/graph_cache.go's GraphCache.
package nodecache

import (
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/singleflight"

	"github.com/HoKim98/n3/internal/ir"
	"github.com/HoKim98/n3/internal/metrics"
	"github.com/HoKim98/n3/internal/n3err"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/variable"
)

const (
	keySourcePrefix = "src:"
	keyPathPrefix   = "path:"
	keyExternPrefix = "extern:"
)

// SourceLoader is the standard-library loader contract (§6, consumed): it
// maps node names to source text, derived from file paths by pascal-casing
// the stem. Implementations live outside this module.
type SourceLoader interface {
	GetSources(root string) (map[string]string, error)
	GetExterns(root string) (map[string]string, error)
}

// Builder parses and ASTBuilds a single named node's source into its IR.
// NodeCache never implements this itself - it is supplied by whoever
// wires the parser and tensorgraph builder together (package n3root), so
// that NodeCache does not need to import either.
type Builder func(name, source string) (ir.TensorNode, error)

// NodeCache is the lazy name->IR store of §4.C. The zero value is not
// usable; construct with New.
type NodeCache struct {
	mu       sync.Mutex
	db       *badger.DB
	builds   map[string]ir.TensorNode
	building map[string]bool
	flight   singleflight.Group
	metrics  *metrics.Compiler
}

// Option configures a NodeCache.
type Option func(*NodeCache)

// WithMetrics attaches a metrics.Compiler; nil (the default) disables
// metric recording.
func WithMetrics(m *metrics.Compiler) Option {
	return func(c *NodeCache) { c.metrics = m }
}

// New opens an in-memory NodeCache.
func New(opts ...Option) (*NodeCache, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, &n3err.ExternalError{Kind: n3err.ErrIO, Op: "nodecache.New", Err: err}
	}
	c := &NodeCache{db: db, builds: make(map[string]ir.TensorNode), building: make(map[string]bool)}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases the backing in-memory store.
func (c *NodeCache) Close() error { return c.db.Close() }

// AddSource registers name's node source text directly (an already
// in-memory .n3 source, as opposed to one that must be read from disk).
func (c *NodeCache) AddSource(name, source string) error {
	return c.put(keySourcePrefix+name, source)
}

// AddPath registers a filesystem path to be read lazily the first time
// name is requested.
func (c *NodeCache) AddPath(name, path string) error {
	return c.put(keyPathPrefix+name, path)
}

// AddExternSource registers name's external (host-language) script body,
// consulted by GetExternSource.
func (c *NodeCache) AddExternSource(name, source string) error {
	return c.put(keyExternPrefix+name, source)
}

// LoadFrom seeds sources/externs from a SourceLoader rooted at root (§6).
func (c *NodeCache) LoadFrom(loader SourceLoader, root string) error {
	sources, err := loader.GetSources(root)
	if err != nil {
		return &n3err.ExternalError{Kind: n3err.ErrIO, Op: "nodecache.LoadFrom.GetSources", Err: err}
	}
	for name, src := range sources {
		if err := c.AddSource(name, src); err != nil {
			return err
		}
	}
	externs, err := loader.GetExterns(root)
	if err != nil {
		return &n3err.ExternalError{Kind: n3err.ErrIO, Op: "nodecache.LoadFrom.GetExterns", Err: err}
	}
	for name, src := range externs {
		if err := c.AddExternSource(name, src); err != nil {
			return err
		}
	}
	return nil
}

func (c *NodeCache) put(key, val string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(val))
	})
	if err != nil {
		return &n3err.ExternalError{Kind: n3err.ErrIO, Op: "nodecache.put", Err: err}
	}
	return nil
}

// take reads key and deletes it in the same transaction (the "drained on
// first read" guarantee), returning (value, true) if present.
func (c *NodeCache) take(key string) (string, bool, error) {
	var val string
	found := false
	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(v []byte) error {
			val = string(v)
			return nil
		})
	})
	if err != nil {
		return "", false, &n3err.ExternalError{Kind: n3err.ErrIO, Op: "nodecache.take", Err: err}
	}
	if !found {
		return "", false, nil
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return "", false, &n3err.ExternalError{Kind: n3err.ErrIO, Op: "nodecache.take.delete", Err: err}
	}
	return val, true, nil
}

// Get implements the §4.C protocol: an already-built name returns a safe
// clone with no work; a registered path is read (and the entry drained)
// then built; a registered in-memory source is drained then built;
// otherwise NoSuchNode. Concurrent Get calls for the same unbuilt name are
// coalesced onto a single build via singleflight - §5 says the core is
// single-threaded, but the coalescing still documents and enforces the
// "at-most-one build per name" guarantee if a future caller parallelizes
// independent execs sharing one NodeRoot.
func (c *NodeCache) Get(name string, sd *seed.Seed, build Builder) (ir.TensorNode, error) {
	c.mu.Lock()
	if built, ok := c.builds[name]; ok {
		c.mu.Unlock()
		c.metrics.ObserveNodeCacheHit()
		return cloneBuilt(built, sd), nil
	}
	// A name re-requested while its own build is still running can only be
	// a node cycle (A uses B, B uses A); letting it reach flight.Do would
	// self-deadlock on the in-flight call instead of failing.
	if c.building[name] {
		c.mu.Unlock()
		return ir.TensorNode{}, &n3err.TensorNodeError{Kind: n3err.ErrCycledNode, Name: name}
	}
	c.mu.Unlock()

	result, err, _ := c.flight.Do(name, func() (interface{}, error) {
		return c.buildOnce(name, build)
	})
	if err != nil {
		return ir.TensorNode{}, err
	}
	built := result.(ir.TensorNode)
	return cloneBuilt(built, sd), nil
}

func (c *NodeCache) buildOnce(name string, build Builder) (ir.TensorNode, error) {
	c.mu.Lock()
	if built, ok := c.builds[name]; ok {
		c.mu.Unlock()
		return built, nil
	}
	c.mu.Unlock()

	source, err := c.resolveSource(name)
	if err != nil {
		c.metrics.ObserveNodeCacheBuild(err)
		return ir.TensorNode{}, err
	}

	c.mu.Lock()
	c.building[name] = true
	c.mu.Unlock()
	built, err := build(name, source)
	c.mu.Lock()
	delete(c.building, name)
	c.mu.Unlock()
	c.metrics.ObserveNodeCacheBuild(err)
	if err != nil {
		return ir.TensorNode{}, err
	}

	c.mu.Lock()
	c.builds[name] = built
	c.mu.Unlock()
	return built, nil
}

func (c *NodeCache) resolveSource(name string) (string, error) {
	if path, ok, err := c.take(keyPathPrefix + name); err != nil {
		return "", err
	} else if ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", &n3err.ExternalError{Kind: n3err.ErrIO, Op: fmt.Sprintf("nodecache.resolveSource(%s)", name), Err: err}
		}
		return string(data), nil
	}
	if src, ok, err := c.take(keySourcePrefix + name); err != nil {
		return "", err
	} else if ok {
		return src, nil
	}
	return "", &n3err.TensorNodeError{Kind: n3err.ErrNoSuchNode, Name: name}
}

// GetExternSource implements code.ScriptSource by resolving name's
// registered external script body, draining it on first read like node
// sources.
func (c *NodeCache) GetExternSource(name string) (string, error) {
	if src, ok, err := c.take(keyExternPrefix + name); err != nil {
		return "", err
	} else if ok {
		return src, nil
	}
	return "", &n3err.TensorNodeError{Kind: n3err.ErrNoSuchNode, Name: name}
}

func cloneBuilt(built ir.TensorNode, sd *seed.Seed) ir.TensorNode {
	var visited []*variable.Variable
	return built.CloneSafe(sd, &visited)
}
