// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package shape implements the shape-linking algorithm shared by the
// TensorGraphBuilder's DefaultNode/Transform/ToLinear/Concat dispatch and
// by NodeIR.build's repeat expansion (§4.E.L).
package shape

import (
	"fmt"
	"sort"

	"github.com/HoKim98/n3/internal/n3err"
	"github.com/HoKim98/n3/internal/value"
)

// Shapes maps an input/output key to its per-axis dimension values. A
// missing key means "unbound": nothing is yet known about that shape.
type Shapes map[string][]*value.Value

// Clone returns a shallow-per-key, deep-per-value copy.
func (s Shapes) Clone() Shapes {
	out := make(Shapes, len(s))
	for k, dims := range s {
		cloned := make([]*value.Value, len(dims))
		for i, d := range dims {
			cloned[i] = d.Clone()
		}
		out[k] = cloned
	}
	return out
}

func isConcreteDim(v *value.Value) bool {
	return v != nil && v.Kind != value.KindVariableRef
}

func isHintDim(v *value.Value) bool {
	return v != nil && v.Kind == value.KindVariableRef
}

// Link merges produced into expected in place (§4.E.L): for each key
// present in produced, if expected has no entry yet, the produced shape is
// adopted outright. Otherwise the two shapes must have equal rank
// (MismatchedShape on mismatch) and are reconciled axis by axis:
//   - produced concrete, expected a dim-hint: the hint's variable is
//     written with the produced value.
//   - both concrete: they must already be numerically equal (MismatchedDim).
//   - produced a dim-hint, expected a dim-hint: the expected hint is
//     aliased to resolve through the produced one.
//   - produced a dim-hint, expected concrete: nothing to do; the hint
//     stays free (will resolve to the concrete value when read).
func Link(produced, expected Shapes) error {
	for key, pdims := range produced {
		edims, ok := expected[key]
		if !ok {
			expected[key] = pdims
			continue
		}
		if len(pdims) != len(edims) {
			return &n3err.LinkError{
				Kind:     n3err.ErrMismatchedShape,
				Expected: fmt.Sprintf("rank %d", len(edims)),
				Given:    fmt.Sprintf("rank %d", len(pdims)),
			}
		}
		for axis := range pdims {
			pd, ed := pdims[axis], edims[axis]
			switch {
			case isConcreteDim(pd) && isHintDim(ed):
				if ed.Ref != nil {
					ed.Ref.SetRefValue(pd.Clone())
				}
			case isConcreteDim(pd) && isConcreteDim(ed):
				if !value.Equal(pd, ed) {
					return &n3err.LinkError{
						Kind:     n3err.ErrMismatchedDim,
						Expected: ed.Render(),
						Given:    pd.Render(),
					}
				}
			case isHintDim(pd) && isHintDim(ed):
				if ed.Ref != nil && pd.Ref != nil {
					ed.Ref.SetRefValue(value.NewVariableRef(pd.Ref))
				}
			}
		}
	}
	return nil
}

// Rank returns the number of axes shape has for key, or -1 if unbound.
func (s Shapes) Rank(key string) int {
	dims, ok := s[key]
	if !ok {
		return -1
	}
	return len(dims)
}

// Keys returns the sorted set of keys s defines.
func (s Shapes) Keys() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
