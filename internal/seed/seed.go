// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package seed allocates GraphId and NodeId values for one compile session.
package seed

// ID is a monotonically allocated identity: a GraphId when handed out by
// Seed.Generate/Alloc, or (separately, starting fresh at each tensor graph)
// a NodeId.
type ID uint64

// Seed is a single mutable counter. It is not safe for concurrent use: a
// NodeRoot owns exactly one Seed and the core is single-threaded by
// contract (spec §5).
type Seed struct {
	next ID
}

// New creates a Seed whose first allocation is 1.
func New() *Seed {
	return &Seed{next: 1}
}

// Generate allocates and returns the next id. Equivalent to Alloc(1).
func (s *Seed) Generate() ID {
	return s.Alloc(1)
}

// Alloc reserves n consecutive ids and returns the first one. The ids
// [first, first+n) are allocated; none of them will be handed out again.
func (s *Seed) Alloc(n uint64) ID {
	first := s.next
	s.next += ID(n)
	return first
}
