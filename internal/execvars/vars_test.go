// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package execvars

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HoKim98/n3/internal/n3err"
	"github.com/HoKim98/n3/internal/value"
)

func strp(s string) *string { return &s }

func TestLoadConvertsByDeclaredType(t *testing.T) {
	vars, err := Load([]Query{
		{Name: "training", Type: value.Bool(), Value: strp("yes")},
		{Name: "batch", Type: value.UInt(), Value: strp("32")},
		{Name: "lr", Type: value.Real(), Value: strp("0.001")},
		{Name: "offset", Type: value.Int(), Value: strp("-4")},
		{Name: "tag", Type: value.String(), Value: strp("v1")},
		{Name: "backbone", Type: value.Node(""), Value: strp("ResNet")},
	})
	require.NoError(t, err)

	training, err := vars.Get("training")
	require.NoError(t, err)
	assert.True(t, value.Equal(value.NewBool(true), training.Value))

	batch, err := vars.Get("batch")
	require.NoError(t, err)
	assert.True(t, value.Equal(value.NewUInt(32), batch.Value))

	name, err := vars.GetNodeName("backbone")
	require.NoError(t, err)
	assert.Equal(t, "ResNet", name)

	tag, err := vars.GetString("tag")
	require.NoError(t, err)
	assert.Equal(t, "v1", tag)
}

func TestLoadRejectsUnparsableString(t *testing.T) {
	_, err := Load([]Query{
		{Name: "batch", Type: value.UInt(), Value: strp("not-a-number")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, n3err.ErrUnparsableString))
}

func TestLoadUsesDefaultWhenValueAbsent(t *testing.T) {
	vars, err := Load([]Query{
		{Name: "tag", Type: value.String(), Default: func() *string { return strp("fallback") }},
	})
	require.NoError(t, err)
	tag, err := vars.GetString("tag")
	require.NoError(t, err)
	assert.Equal(t, "fallback", tag)
}

func TestEnvVarsPrefersExplicitOverEnvironment(t *testing.T) {
	t.Setenv("N3_TAG", "from-env")
	vars, err := LoadEnv([]Query{
		{Name: "tag", Type: value.String(), Value: strp("explicit")},
	})
	require.NoError(t, err)
	tag, err := vars.GetString("tag")
	require.NoError(t, err)
	assert.Equal(t, "explicit", tag)
}

func TestEnvVarsFallsBackToEnvironment(t *testing.T) {
	t.Setenv("N3_BATCH_SIZE", "16")
	vars, err := LoadEnv([]Query{
		{Name: "batchSize", Type: value.UInt()},
	})
	require.NoError(t, err)
	v, err := vars.Get("batchSize")
	require.NoError(t, err)
	assert.True(t, value.Equal(value.NewUInt(16), v.Value))
}

func TestGlobalVarsDefaultsRoot(t *testing.T) {
	g, err := NewGlobalVars()
	require.NoError(t, err)
	root, err := g.RootDir()
	require.NoError(t, err)
	assert.NotEmpty(t, root)
}
