// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package program

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HoKim98/n3/internal/code"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

func tableWith(id seed.ID, name string, v uint64) *variable.Table {
	return &variable.Table{
		ID: id,
		Variables: map[string]*variable.Variable{
			name: {Name: name, Value: value.NewUInt(v)},
		},
	}
}

// TestProgramEqualIgnoresGraphID locks in tableEqual's contract: a
// Compact/Decompact round-trip (or simply two independent builds)
// renumbers table ids, so Equal must never consider them.
func TestProgramEqualIgnoresGraphID(t *testing.T) {
	a := Program{Graph: tableWith(3, "x", 32), Nodes: map[string]code.Code{}, Scripts: code.Scripts{}}
	b := Program{Graph: tableWith(99, "x", 32), Nodes: map[string]code.Code{}, Scripts: code.Scripts{}}

	require.True(t, a.Equal(b))
}

func TestProgramEqualDetectsDifferingValues(t *testing.T) {
	a := Program{Graph: tableWith(3, "x", 32), Nodes: map[string]code.Code{}, Scripts: code.Scripts{}}
	b := Program{Graph: tableWith(3, "x", 33), Nodes: map[string]code.Code{}, Scripts: code.Scripts{}}

	require.False(t, a.Equal(b))
}

func TestProgramEqualDetectsDifferingVariableCount(t *testing.T) {
	a := Program{Graph: tableWith(3, "x", 32), Nodes: map[string]code.Code{}, Scripts: code.Scripts{}}
	b := &variable.Table{ID: 3, Variables: map[string]*variable.Variable{
		"x": {Name: "x", Value: value.NewUInt(32)},
		"y": {Name: "y", Value: value.NewUInt(1)},
	}}

	require.False(t, a.Equal(Program{Graph: b, Nodes: map[string]code.Code{}, Scripts: code.Scripts{}}))
}

func TestProgramEqualIgnoresEnv(t *testing.T) {
	a := Program{Graph: tableWith(3, "x", 32), Nodes: map[string]code.Code{}, Scripts: code.Scripts{}, Env: map[string]*value.Value{"root": value.NewString("/a")}}
	b := Program{Graph: tableWith(3, "x", 32), Nodes: map[string]code.Code{}, Scripts: code.Scripts{}, Env: map[string]*value.Value{"root": value.NewString("/b")}}

	require.True(t, a.Equal(b))
}

func TestProgramEqualComparesNodeStructure(t *testing.T) {
	leafA := code.NewExtern(code.ExternCode{Data: code.CodeData{Name: "Linear", Graph: &variable.Table{ID: 1, Variables: map[string]*variable.Variable{}}}})
	leafB := code.NewExtern(code.ExternCode{Data: code.CodeData{Name: "Dense", Graph: &variable.Table{ID: 1, Variables: map[string]*variable.Variable{}}}})

	rootA := code.NewNode(code.NodeCode{Data: code.CodeData{Name: "MyNode", Graph: tableWith(3, "x", 32)}, TensorGraph: []code.Code{leafA}})
	rootB := code.NewNode(code.NodeCode{Data: code.CodeData{Name: "MyNode", Graph: tableWith(99, "x", 32)}, TensorGraph: []code.Code{leafB}})

	a := Program{Graph: tableWith(3, "x", 32), Nodes: map[string]code.Code{MainEntry: rootA}, Scripts: code.Scripts{}}
	b := Program{Graph: tableWith(99, "x", 32), Nodes: map[string]code.Code{MainEntry: rootB}, Scripts: code.Scripts{}}

	require.False(t, a.Equal(b), "differing leaf node names must not compare equal")
}
