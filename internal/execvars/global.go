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
	"os"

	"github.com/HoKim98/n3/internal/value"
)

// GlobalVars is an EnvVars preloaded with the compiler's own ambient
// defaults - currently just "root", the home directory used to resolve
// relative node-library paths - completing the
// CoreArgs -> EnvArgs -> GlobalDefaults layering.
type GlobalVars struct {
	*EnvVars
}

// NewGlobalVars builds the default GlobalVars, consulting N3_ROOT and
// falling back to the user's home directory.
func NewGlobalVars() (*GlobalVars, error) {
	inner, err := LoadEnv([]Query{
		{Name: "root", Type: value.String(), Default: defaultHomeDir},
	})
	if err != nil {
		return nil, err
	}
	return &GlobalVars{EnvVars: inner}, nil
}

// RootDir returns the resolved root directory.
func (g *GlobalVars) RootDir() (string, error) {
	return g.GetString("root")
}

func defaultHomeDir() *string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return &home
}
