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
	"strings"
	"unicode"
)

// EnvVars is a Vars whose queries fall back to an OS environment variable
// (N3_<SCREAMING_SNAKE_NAME>) before their own Default, layering
// CoreArgs -> EnvArgs.
type EnvVars struct {
	*Vars
}

// LoadEnv fills in any query missing an explicit Value from the
// environment, then delegates to Load.
func LoadEnv(queries []Query) (*EnvVars, error) {
	filled := make([]Query, len(queries))
	copy(filled, queries)
	for i := range filled {
		if filled[i].Value == nil {
			if v, ok := os.LookupEnv(envKey(filled[i].Name)); ok {
				val := v
				filled[i].Value = &val
			}
		}
	}
	inner, err := Load(filled)
	if err != nil {
		return nil, err
	}
	return &EnvVars{Vars: inner}, nil
}

func envKey(name string) string {
	return "N3_" + screamingSnakeCase(name)
}

func screamingSnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
