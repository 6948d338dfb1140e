// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"

	"github.com/HoKim98/n3/internal/n3root"
	"github.com/HoKim98/n3/internal/nodecache"
)

// The surface-syntax parser and the standard-library source loader are
// both external collaborators this binary only fixes the interface of
// (n3root.Parser, nodecache.SourceLoader). A real deployment links one in
// by calling RegisterParser/RegisterSourceLoader from an init() in its own
// main package, the same way database/sql drivers register themselves -
// this binary never fabricates a stand-in implementation of either.
var (
	parserFactory       func() n3root.Parser
	sourceLoaderFactory func() nodecache.SourceLoader
)

// RegisterParser installs the surface-syntax parser this binary compiles
// against. Must be called (typically from an init() in a side package
// imported for its side effect) before any command that parses sources.
func RegisterParser(f func() n3root.Parser) { parserFactory = f }

// RegisterSourceLoader installs the standard-library source loader used
// to discover node sources under a root directory's nodes tree.
func RegisterSourceLoader(f func() nodecache.SourceLoader) { sourceLoaderFactory = f }

var errNoParser = errors.New("no parser registered: link a parser implementation and call RegisterParser in its init()")

var errNoSourceLoader = errors.New("no source loader registered: link a loader implementation and call RegisterSourceLoader in its init()")
