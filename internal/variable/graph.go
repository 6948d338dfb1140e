// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package variable

import (
	"sort"

	"github.com/HoKim98/n3/internal/n3err"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/value"
)

// VariableGraph is a typed, name-addressable table of Variables sharing one
// graph id (§4.B). Its zero value is not usable; construct with NewGraph.
type VariableGraph struct {
	id seed.ID

	// variables is keyed by each Variable's canonical Name.
	variables map[string]*Variable

	// shortcuts is keyed by each Variable's shortcut if it has one, else
	// its own Name - so a call site that uses a variable's alias finds it
	// here; a variable that has a shortcut is not reachable in this map by
	// its canonical Name. Rebuilt by Build and by the safe-clone constructor.
	shortcuts map[string]*Variable
}

// NewGraph creates an empty VariableGraph with the given graph id.
func NewGraph(id seed.ID) *VariableGraph {
	return &VariableGraph{
		id:        id,
		variables: make(map[string]*Variable),
		shortcuts: make(map[string]*Variable),
	}
}

// ID returns the graph id every variable added to this graph is stamped
// with.
func (g *VariableGraph) ID() seed.ID { return g.id }

func (g *VariableGraph) sortedNames() []string {
	names := make([]string, 0, len(g.variables))
	for name := range g.variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Add inserts v, stamping its ID and IDOld to this graph's id. Fails
// DuplicatedVariable if the name is already present.
func (g *VariableGraph) Add(v *Variable) error {
	if _, exists := g.variables[v.Name]; exists {
		return &n3err.VariableError{Kind: n3err.ErrDuplicatedVariable, Name: v.Name}
	}
	id := g.id
	v.ID = &id
	v.IDOld = &id
	g.variables[v.Name] = v
	return nil
}

// Get looks up a variable by its canonical name. Fails NoSuchVariable
// (with candidate names for diagnostics) if absent.
func (g *VariableGraph) Get(name string) (*Variable, error) {
	if v, ok := g.variables[name]; ok {
		return v, nil
	}
	return nil, &n3err.VariableError{Kind: n3err.ErrNoSuchVariable, Name: name, Candidates: g.sortedNames()}
}

func toShortcuts(variables map[string]*Variable) map[string]*Variable {
	out := make(map[string]*Variable, len(variables))
	for _, v := range variables {
		key := v.Shortcut
		if key == "" {
			key = v.Name
		}
		out[key] = v
	}
	return out
}

// Build resolves every variable's value in place (§4.B.1): shortcut
// aliases retarget to their canonical variable, VariableRef leaves resolve
// through the table, and a "currently resolving" marker on each Variable
// rejects re-entrant descent as CycledVariables.
func (g *VariableGraph) Build() error {
	shortcutsMap := make(map[string]string, len(g.variables))
	for name, v := range g.variables {
		if v.Shortcut != "" {
			shortcutsMap[v.Shortcut] = name
		}
	}

	for _, name := range g.sortedNames() {
		v := g.variables[name]
		var stack []string
		if _, err := g.replaceVarTo(v, &stack, shortcutsMap); err != nil {
			return err
		}
	}

	g.shortcuts = toShortcuts(g.variables)
	return nil
}

// replaceVarTo resolves self through the shortcut/table chain, then
// descends into its value. It returns the variable the reference now
// points at (self, unless a shortcut/table lookup retargeted it).
func (g *VariableGraph) replaceVarTo(self *Variable, stack *[]string, shortcuts map[string]string) (*Variable, error) {
	target := self
	name := target.Name
	if canon, ok := shortcuts[name]; ok {
		name = canon
	}
	if v2, ok := g.variables[name]; ok {
		target = v2
	}

	if target.resolving {
		return nil, cycleErr(*stack, target.Name)
	}
	target.resolving = true
	*stack = append(*stack, target.Name)
	newValue, err := g.replaceValue(target.Value, stack, shortcuts)
	*stack = (*stack)[:len(*stack)-1]
	target.resolving = false
	if err != nil {
		return nil, err
	}
	target.Value = newValue
	return target, nil
}

func cycleErr(stack []string, closing string) error {
	names := make([]string, len(stack), len(stack)+1)
	copy(names, stack)
	for _, n := range names {
		if n == closing {
			return &n3err.CycledVariablesError{Names: names}
		}
	}
	names = append(names, closing)
	return &n3err.CycledVariablesError{Names: names}
}

// replaceValue descends into v, substituting VariableRef leaves through
// replaceVarTo and rebuilding Expr nodes from their resolved operands.
// Every other variant (atomics, Node, Dim, List, Map) is returned as-is:
// the original build's reference table never recurses inside a container.
func (g *VariableGraph) replaceValue(v *value.Value, stack *[]string, shortcuts map[string]string) (*value.Value, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Kind {
	case value.KindVariableRef:
		ref, ok := v.Ref.(*Variable)
		if !ok {
			return v, nil
		}
		resolved, err := g.replaceVarTo(ref, stack, shortcuts)
		if err != nil {
			return nil, err
		}
		return value.NewVariableRef(resolved), nil
	case value.KindExpr:
		lhs, err := g.replaceValue(v.ExprLHS, stack, shortcuts)
		if err != nil {
			return nil, err
		}
		var rhs *value.Value
		if v.ExprRHS != nil {
			rhs, err = g.replaceValue(v.ExprRHS, stack, shortcuts)
			if err != nil {
				return nil, err
			}
		}
		return value.NewExpr(v.ExprOp, lhs, rhs), nil
	default:
		return v, nil
	}
}

// Apply assigns values onto existing variables by name. When useShortcut is
// true, names are looked up in the shortcut table (so call-site aliases
// resolve); otherwise names must be canonical. Fails NoSuchVariable on any
// unknown key.
func (g *VariableGraph) Apply(values map[string]*value.Value, useShortcut bool) error {
	table := g.variables
	if useShortcut {
		table = variablesFromShortcuts(g.shortcuts)
	}
	for name, v := range values {
		target, ok := table[name]
		if !ok {
			return &n3err.VariableError{Kind: n3err.ErrNoSuchVariable, Name: name, Candidates: sortedTableNames(table)}
		}
		target.Value = v
	}
	return nil
}

func variablesFromShortcuts(shortcuts map[string]*Variable) map[string]*Variable {
	return shortcuts
}

func sortedTableNames(table map[string]*Variable) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hint materialises symbolic dimensions in shape (§4.B.3): for each dim
// variable reachable through the shortcut table, if it is declared Dim and
// is_root holds, its value is overwritten in place with Dim(out, axis).
// Returns the rewritten shape.
func (g *VariableGraph) Hint(out value.Out, shape []*value.Value) ([]*value.Value, error) {
	dims := make([]*value.Value, len(shape))
	for axis, v := range shape {
		hinted, err := g.hintValue(v, out, axis, true)
		if err != nil {
			return nil, err
		}
		dims[axis] = hinted
	}
	return dims, nil
}

func (g *VariableGraph) hintValue(v *value.Value, out value.Out, axis int, isRoot bool) (*value.Value, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Kind {
	case value.KindVariableRef:
		ref, ok := v.Ref.(*Variable)
		if !ok {
			return v, nil
		}
		target, ok := g.shortcuts[ref.Name]
		if !ok {
			return nil, &n3err.VariableError{Kind: n3err.ErrNoSuchVariable, Name: ref.Name, Candidates: sortedTableNames(g.shortcuts)}
		}
		if target.Type != nil && target.Type.Kind == value.TypeDim && isRoot {
			target.Value = value.NewDim(out, axis)
		}
		return value.NewVariableRef(target), nil
	case value.KindExpr:
		lhs, err := g.hintValue(v.ExprLHS, out, axis, isRoot)
		if err != nil {
			return nil, err
		}
		var rhs *value.Value
		if v.ExprRHS != nil {
			rhs, err = g.hintValue(v.ExprRHS, out, axis, isRoot)
			if err != nil {
				return nil, err
			}
		}
		return value.NewExpr(v.ExprOp, lhs, rhs), nil
	default:
		return v, nil
	}
}

// ReplaceTo substitutes a call-site value through the shortcut table
// (§4.B, "variable/expression substitution using the shortcut table"):
// a VariableRef leaf is retargeted to the variable its name (shortcut or
// canonical) resolves to; Expr nodes recurse; everything else passes
// through unchanged. Unlike Build, this performs no cycle-tracking descent
// into the resolved variable's own value - it only rewrites the reference.
func (g *VariableGraph) ReplaceTo(v *value.Value) (*value.Value, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Kind {
	case value.KindVariableRef:
		ref, ok := v.Ref.(*Variable)
		if !ok {
			return v, nil
		}
		if target, ok := g.shortcuts[ref.Name]; ok {
			return value.NewVariableRef(target), nil
		}
		return v, nil
	case value.KindExpr:
		lhs, err := g.ReplaceTo(v.ExprLHS)
		if err != nil {
			return nil, err
		}
		var rhs *value.Value
		if v.ExprRHS != nil {
			rhs, err = g.ReplaceTo(v.ExprRHS)
			if err != nil {
				return nil, err
			}
		}
		return value.NewExpr(v.ExprOp, lhs, rhs), nil
	default:
		return v, nil
	}
}

// IsEstimable reports whether every variable's value is fully known (no
// free references).
func (g *VariableGraph) IsEstimable() bool {
	for _, v := range g.variables {
		if !v.IsEstimable() {
			return false
		}
	}
	return true
}

// UnloadDims strips the value off every Dim-typed variable and returns the
// stripped values keyed by name, leaving those variables valueless.
func (g *VariableGraph) UnloadDims() map[string]*value.Value {
	out := make(map[string]*value.Value)
	for name, v := range g.variables {
		if v.Type != nil && v.Type.Kind == value.TypeDim {
			out[name] = v.Value
			v.Value = nil
		}
	}
	return out
}

// LoadDimsWeakly re-injects previously unloaded dim values, but only into
// variables that are still valueless - an existing binding (e.g. one set
// by shape linking in the interim) is never overwritten.
func (g *VariableGraph) LoadDimsWeakly(values map[string]*value.Value) {
	for name, v := range values {
		target, ok := g.variables[name]
		if !ok {
			continue
		}
		if target.Value == nil {
			target.Value = v
		}
	}
}

// Variables exposes the underlying table for callers (e.g. ir.Build) that
// need to walk every variable, such as collapsing a graph into a Table.
func (g *VariableGraph) Variables() map[string]*Variable { return g.variables }

// CloneSafe returns an independent, identity-rewritten copy of g (§4.B.4):
// a freshly allocated graph id, detached variable copies, and every
// VariableRef rewritten to point inside the copy rather than the
// original. visited accumulates every detached variable across the whole
// clone_safe call tree (including nested graphs cloned by a caller before
// or after this one), since a reference may cross graph boundaries.
func (g *VariableGraph) CloneSafe(sd *seed.Seed, visited *[]*Variable) *VariableGraph {
	id := sd.Generate()

	selfVariables := make(map[string]*Variable, len(g.variables))
	for _, name := range g.sortedNames() {
		selfVariables[name] = g.variables[name].detach(id)
	}
	selfShortcuts := toShortcuts(selfVariables)

	names := make([]string, 0, len(selfVariables))
	for name := range selfVariables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		*visited = append(*visited, selfVariables[name])
	}
	for _, name := range names {
		v := selfVariables[name]
		v.Value = cloneValueIdentity(v.Value, *visited)
	}

	return &VariableGraph{id: id, variables: selfVariables, shortcuts: selfShortcuts}
}

// cloneValueIdentity mirrors value.Value.Clone but additionally rewrites
// any VariableRef leaf whose target X satisfies (X.Name, X.ID) ==
// (candidate.Name, candidate.IDOld) for some candidate in visited -
// retargeting it at the freshly detached copy instead of the original.
func cloneValueIdentity(v *value.Value, visited []*Variable) *value.Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case value.KindVariableRef:
		ref, ok := v.Ref.(*Variable)
		if !ok {
			return v
		}
		return value.NewVariableRef(resolveAgainstVisited(ref, visited))
	case value.KindExpr:
		lhs := cloneValueIdentity(v.ExprLHS, visited)
		var rhs *value.Value
		if v.ExprRHS != nil {
			rhs = cloneValueIdentity(v.ExprRHS, visited)
		}
		return value.NewExpr(v.ExprOp, lhs, rhs)
	case value.KindList:
		out := make([]*value.Value, len(v.List))
		for i, e := range v.List {
			out[i] = cloneValueIdentity(e, visited)
		}
		return value.NewList(out)
	case value.KindMap:
		out := make(map[string]*value.Value, len(v.Map))
		for k, e := range v.Map {
			out[k] = cloneValueIdentity(e, visited)
		}
		return value.NewMap(out)
	default:
		return v.Clone()
	}
}

// CloneValue exposes cloneValueIdentity to other packages (ir, tensorgraph)
// that need to clone a standalone Value - a repeat count, an axis
// argument, a shapes annotation - against the same visited-variable
// accumulator a graph clone_safe call is using, so any VariableRef inside
// it retargets consistently with the rest of the clone.
func CloneValue(v *value.Value, visited []*Variable) *value.Value {
	return cloneValueIdentity(v, visited)
}

func resolveAgainstVisited(ref *Variable, visited []*Variable) *Variable {
	for _, candidate := range visited {
		if candidate.Name == ref.Name && candidate.IDOld != nil && ref.ID != nil && *candidate.IDOld == *ref.ID {
			return candidate
		}
	}
	return ref
}
