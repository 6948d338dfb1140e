// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package shape

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

func TestLinkAdoptsUnboundKeyOutright(t *testing.T) {
	produced := Shapes{"x": {value.NewUInt(4), value.NewUInt(8)}}
	expected := Shapes{}

	require.NoError(t, Link(produced, expected))
	require.Equal(t, produced["x"], expected["x"])
}

func TestLinkRejectsMismatchedRank(t *testing.T) {
	produced := Shapes{"x": {value.NewUInt(4)}}
	expected := Shapes{"x": {value.NewUInt(4), value.NewUInt(8)}}

	err := Link(produced, expected)
	require.Error(t, err)
}

func TestLinkRejectsMismatchedConcreteDims(t *testing.T) {
	produced := Shapes{"x": {value.NewUInt(4)}}
	expected := Shapes{"x": {value.NewUInt(5)}}

	err := Link(produced, expected)
	require.Error(t, err)
}

func TestLinkAcceptsMatchingConcreteDims(t *testing.T) {
	produced := Shapes{"x": {value.NewUInt(4)}}
	expected := Shapes{"x": {value.NewUInt(4)}}

	require.NoError(t, Link(produced, expected))
}

func TestLinkWritesHintWhenProducedIsConcrete(t *testing.T) {
	hintVar := variable.New("n")
	expected := Shapes{"x": {value.NewVariableRef(hintVar)}}
	produced := Shapes{"x": {value.NewUInt(16)}}

	require.NoError(t, Link(produced, expected))
	require.NotNil(t, hintVar.Value)
	require.True(t, value.Equal(value.NewUInt(16), hintVar.Value))
}

func TestLinkAliasesHintToHint(t *testing.T) {
	producedVar := variable.New("m")
	expectedVar := variable.New("n")
	produced := Shapes{"x": {value.NewVariableRef(producedVar)}}
	expected := Shapes{"x": {value.NewVariableRef(expectedVar)}}

	require.NoError(t, Link(produced, expected))
	require.NotNil(t, expectedVar.Value)
	require.Equal(t, value.KindVariableRef, expectedVar.Value.Kind)
	require.Same(t, producedVar, expectedVar.Value.Ref)
}

func TestLinkLeavesHintFreeWhenExpectedIsConcrete(t *testing.T) {
	producedVar := variable.New("m")
	produced := Shapes{"x": {value.NewVariableRef(producedVar)}}
	expected := Shapes{"x": {value.NewUInt(4)}}

	require.NoError(t, Link(produced, expected))
	require.Equal(t, value.NewUInt(4), expected["x"][0])
}

func TestShapesRankAndKeys(t *testing.T) {
	s := Shapes{"x": {value.NewUInt(1), value.NewUInt(2)}, "y": {value.NewUInt(3)}}

	require.Equal(t, 2, s.Rank("x"))
	require.Equal(t, 1, s.Rank("y"))
	require.Equal(t, -1, s.Rank("missing"))
	require.ElementsMatch(t, []string{"x", "y"}, s.Keys())
}
