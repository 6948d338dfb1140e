// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package execvars implements the typed, layered Vars lookup an Exec build
// resolves user-supplied arguments through (§4.G): a declared Query list is
// loaded with string coercion per LetType, and callers read back typed
// values (string, node name) or assign new ones.
//
// Vars itself knows nothing about layering; EnvVars and GlobalVars wrap it
// to add an OS-environment fallback and a fixed set of ambient defaults
// (the root directory), mirroring CoreArgs -> EnvArgs -> GlobalDefaults.
package execvars

import (
	"strconv"
	"strings"

	"github.com/HoKim98/n3/internal/n3err"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

// Query declares one Vars entry: its name, declared type, an optional
// explicit value (highest priority), and an optional default-value
// generator consulted only if Value is nil.
type Query struct {
	Name    string
	Type    value.LetType
	Value   *string
	Default func() *string
}

// Vars is a flat table of typed variables, all carrying graph id 0 (a
// Vars table never participates in safe-clone identity rewriting).
type Vars struct {
	inner map[string]*variable.Variable
}

// Load converts each Query's resolved string (Value, else Default()) to a
// typed Value per its declared LetType and stores it under Name. A query
// with no resolved string and no default is stored valueless.
func Load(queries []Query) (*Vars, error) {
	inner := make(map[string]*variable.Variable, len(queries))
	zero := seed.ID(0)
	for _, q := range queries {
		raw := q.Value
		if raw == nil && q.Default != nil {
			raw = q.Default()
		}
		v := variable.New(q.Name)
		ty := q.Type
		v.Type = &ty
		v.ID = &zero
		v.IDOld = &zero
		if raw != nil {
			converted, err := convert(q.Name, *raw, ty)
			if err != nil {
				return nil, err
			}
			v.Value = converted
		}
		inner[q.Name] = v
	}
	return &Vars{inner: inner}, nil
}

// FromVariables wraps an already-built variable table (e.g. an Exec
// graph's user-facing args) as a Vars, for callers that already have
// typed Variables rather than raw strings to convert.
func FromVariables(inner map[string]*variable.Variable) *Vars {
	return &Vars{inner: inner}
}

func (v *Vars) get(name string) (*variable.Variable, error) {
	if entry, ok := v.inner[name]; ok {
		return entry, nil
	}
	names := make([]string, 0, len(v.inner))
	for n := range v.inner {
		names = append(names, n)
	}
	return nil, &n3err.VariableError{Kind: n3err.ErrNoSuchVariable, Name: name, Candidates: names}
}

// Get returns the named variable, NoSuchVariable if absent.
func (v *Vars) Get(name string) (*variable.Variable, error) {
	return v.get(name)
}

// GetString returns a String-typed variable's value, MismatchedType
// otherwise and EmptyValue if it has no value yet.
func (v *Vars) GetString(name string) (string, error) {
	entry, err := v.get(name)
	if err != nil {
		return "", err
	}
	if entry.Value == nil {
		return "", &n3err.VariableError{Kind: n3err.ErrEmptyValue, Name: name, Expected: value.String().String()}
	}
	if entry.Value.Kind != value.KindString {
		return "", &n3err.VariableError{Kind: n3err.ErrMismatchedType, Name: name, Expected: value.String().String(), Given: entry.Value.Kind.String()}
	}
	return entry.Value.String, nil
}

// GetNodeName returns a Node(_)-typed variable's referenced node name.
func (v *Vars) GetNodeName(name string) (string, error) {
	entry, err := v.get(name)
	if err != nil {
		return "", err
	}
	if entry.Value == nil {
		return "", &n3err.VariableError{Kind: n3err.ErrEmptyValue, Name: name, Expected: "Node"}
	}
	if entry.Value.Kind != value.KindNode {
		return "", &n3err.VariableError{Kind: n3err.ErrMismatchedType, Name: name, Expected: "Node", Given: entry.Value.Kind.String()}
	}
	return entry.Value.NodeName, nil
}

// TryGetChecked returns name's value if v declares it with exactly ty,
// nil with no error if v does not declare name at all, and
// MismatchedType if it declares name with a different type - the layered
// override lookup an Exec's non-node variables resolve through (§4.G).
func (v *Vars) TryGetChecked(name string, ty value.LetType) (*value.Value, error) {
	entry, ok := v.inner[name]
	if !ok {
		return nil, nil
	}
	if entry.Type != nil && entry.Type.KindOf() != ty.KindOf() {
		return nil, &n3err.VariableError{Kind: n3err.ErrMismatchedType, Name: name, Expected: ty.String(), Given: entry.Type.String()}
	}
	return entry.Value, nil
}

// Set parses value per the variable's declared type and assigns it.
func (v *Vars) Set(name, raw string) error {
	entry, err := v.get(name)
	if err != nil {
		return err
	}
	ty := value.String()
	if entry.Type != nil {
		ty = *entry.Type
	}
	converted, err := convert(name, raw, ty)
	if err != nil {
		return err
	}
	entry.Value = converted
	return nil
}

// SetValue assigns a pre-built Value directly, checking it matches the
// variable's declared type.
func (v *Vars) SetValue(name string, val *value.Value) error {
	entry, err := v.get(name)
	if err != nil {
		return err
	}
	if entry.Type != nil && entry.Type.KindOf() != val.Kind {
		return &n3err.VariableError{Kind: n3err.ErrMismatchedType, Name: name, Expected: entry.Type.String(), Given: val.Kind.String()}
	}
	entry.Value = val
	return nil
}

func convert(name, raw string, ty value.LetType) (*value.Value, error) {
	switch ty.Kind {
	case value.TypeBool:
		switch strings.ToLower(raw) {
		case "yes", "true", "1":
			return value.NewBool(true), nil
		case "no", "false", "0":
			return value.NewBool(false), nil
		default:
			return nil, unparsable(name, raw, ty)
		}
	case value.TypeUInt:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, unparsable(name, raw, ty)
		}
		return value.NewUInt(n), nil
	case value.TypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, unparsable(name, raw, ty)
		}
		return value.NewInt(n), nil
	case value.TypeReal:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, unparsable(name, raw, ty)
		}
		return value.NewReal(n), nil
	case value.TypeString:
		return value.NewString(raw), nil
	case value.TypeNode:
		return value.NewNode(raw), nil
	default:
		return nil, unparsable(name, raw, ty)
	}
}

func unparsable(name, raw string, ty value.LetType) error {
	return &n3err.VariableError{Kind: n3err.ErrUnparsableString, Name: name, Value: raw, Expected: ty.String()}
}
