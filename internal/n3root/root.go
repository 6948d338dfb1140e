// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package n3root wires every compiler layer built in this module into one
// entry point: a node cache backed by a root directory's sources, the
// resolver scope stack, the ASTBuild/tensorgraph step, and exec lowering -
// the Go counterpart of ExecRoot.
package n3root

import (
	"path/filepath"

	"github.com/HoKim98/n3/internal/ast"
	"github.com/HoKim98/n3/internal/execlower"
	"github.com/HoKim98/n3/internal/execvars"
	"github.com/HoKim98/n3/internal/ir"
	"github.com/HoKim98/n3/internal/metrics"
	"github.com/HoKim98/n3/internal/n3err"
	"github.com/HoKim98/n3/internal/nodecache"
	"github.com/HoKim98/n3/internal/program"
	"github.com/HoKim98/n3/internal/resolver"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/tensorgraph"
	"go.opentelemetry.io/otel/trace"
)

// Parser is the surface-syntax parser's fixed contract: source text in,
// a File{uses, node} AST out. The parser itself lives outside this module;
// Root only ever consumes it through this interface.
type Parser interface {
	Parse(name, source string) (ast.File, error)
}

// Root is the top-level compiler handle: one Seed, one NodeCache, one
// resolver.Context shared across every name it resolves for the lifetime
// of a single compile session.
type Root struct {
	sd     *seed.Seed
	cache  *nodecache.NodeCache
	ctx    *resolver.Context
	parser Parser
	tracer trace.Tracer
}

// Option configures a Root at construction time.
type Option func(*options)

type options struct {
	metrics *metrics.Compiler
	tracer  trace.Tracer
}

// WithMetrics attaches a metrics.Compiler to the underlying NodeCache.
func WithMetrics(m *metrics.Compiler) Option {
	return func(o *options) { o.metrics = m }
}

// New creates a Root over parser, with an empty node cache ready to be
// populated via AddSource/AddPath/LoadFrom.
func New(parser Parser, opts ...Option) (*Root, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var cacheOpts []nodecache.Option
	if o.metrics != nil {
		cacheOpts = append(cacheOpts, nodecache.WithMetrics(o.metrics))
	}
	cache, err := nodecache.New(cacheOpts...)
	if err != nil {
		return nil, err
	}

	sd := seed.New()
	r := &Root{
		sd:     sd,
		cache:  cache,
		parser: parser,
		tracer: o.tracerOrDefault(),
	}
	r.ctx = resolver.New(cache, sd)
	return r, nil
}

// NewFromRootDir is the Go counterpart of ExecRoot::try_new: it ensures
// rootDir exists (creating the standard subdirectory layout if not), then
// loads every local node under rootDir/nodes through loader - the
// standard-library source loader is an external collaborator; this
// module only fixes its SourceLoader interface, not its implementation.
func NewFromRootDir(parser Parser, rootDir string, loader nodecache.SourceLoader, opts ...Option) (*Root, error) {
	if err := EnsureRootDir(rootDir); err != nil {
		return nil, err
	}
	r, err := New(parser, opts...)
	if err != nil {
		return nil, err
	}
	nodesDir := filepath.Join(rootDir, NodesDir)
	if err := r.LoadFrom(loader, nodesDir); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the underlying node cache's storage.
func (r *Root) Close() error { return r.cache.Close() }

// AddSource registers name's in-memory node source text.
func (r *Root) AddSource(name, source string) error { return r.cache.AddSource(name, source) }

// AddPath registers a filesystem path to be parsed lazily on first use.
func (r *Root) AddPath(name, path string) error { return r.cache.AddPath(name, path) }

// AddExternSource registers name's external (host-language) script body.
func (r *Root) AddExternSource(name, source string) error {
	return r.cache.AddExternSource(name, source)
}

// LoadFrom seeds sources/externs from a SourceLoader rooted at root.
func (r *Root) LoadFrom(loader nodecache.SourceLoader, root string) error {
	return r.cache.LoadFrom(loader, root)
}

// Seed exposes the allocator, satisfying ir.Root.
func (r *Root) Seed() *seed.Seed { return r.sd }

// GetExternSource implements code.ScriptSource by delegating to the
// underlying node cache.
func (r *Root) GetExternSource(name string) (string, error) { return r.cache.GetExternSource(name) }

// ResolveNode builds (or fetches the cached build of) name as a plain
// TensorNode, for execlower's Node(_)-typed variable resolution.
func (r *Root) ResolveNode(name string) (ir.TensorNode, error) {
	return r.cache.Get(name, r.sd, r.build)
}

// Get builds name as an Exec node and lowers it against args into a
// runnable Program - the Go counterpart of ExecRoot::get.
func (r *Root) Get(name string, args *execvars.Vars) (program.Program, error) {
	built, err := r.cache.Get(name, r.sd, r.build)
	if err != nil {
		return program.Program{}, err
	}
	if built.Kind != ir.KindExecNode {
		return program.Program{}, &n3err.ExecBuildError{Kind: n3err.ErrMismatchedNodeType, Expected: "Exec", Given: built.NodeKindName()}
	}
	return execlower.Lower(r, built.Exec, args)
}

// build is the nodecache.Builder this Root supplies: parse name's source
// into an AST file, then ASTBuild it into a TensorNode. It is shared by
// every NodeCache miss and every resolver.Context.Get fallback, so a
// single Root only ever parses a given name's source once.
func (r *Root) build(name, source string) (ir.TensorNode, error) {
	file, err := r.parser.Parse(name, source)
	if err != nil {
		return ir.TensorNode{}, err
	}
	return tensorgraph.BuildFile(r.sd, r.ctx, resolver.NodeName{name}, file, r.build)
}
