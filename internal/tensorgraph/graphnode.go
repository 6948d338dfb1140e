// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tensorgraph

import (
	"sort"

	"github.com/HoKim98/n3/internal/ast"
	"github.com/HoKim98/n3/internal/ir"
	"github.com/HoKim98/n3/internal/n3err"
	"github.com/HoKim98/n3/internal/nodecache"
	"github.com/HoKim98/n3/internal/resolver"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/shape"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

// buildGraphNodeEntry builds one numbered tensor-graph entry (§4.E,
// GraphNodeEntry.build): id 0 is always the reserved input assertion;
// any other entry dispatches on its first call's name to a built-in
// (Transform/ToLinear/Concat) or falls through to the default multi-call
// resolve/apply/link path.
func buildGraphNodeEntry(sd *seed.Seed, ctx *resolver.Context, path resolver.NodeName, tensorGraph *[]ir.TensorNode, gn ast.GraphNode, build nodecache.Builder) error {
	if gn.ID == 0 {
		return buildInputNode(sd, tensorGraph, gn)
	}
	if len(gn.Calls) == 0 {
		return &n3err.GraphNodeError{Kind: n3err.ErrEmptyCalls}
	}
	switch gn.Calls[0].Name {
	case builtinTransform:
		return buildTransform(sd, tensorGraph, gn, false)
	case builtinToLinear:
		return buildTransform(sd, tensorGraph, gn, true)
	case builtinConcat:
		return buildConcat(sd, ctx, path, tensorGraph, gn)
	default:
		return buildDefaultCalls(ctx, path, tensorGraph, gn, build)
	}
}

// buildInputNode builds the id-0 entry: a declaration-only leaf
// ("AssertShape") whose declared shapes become the tensor graph's
// first produced output.
func buildInputNode(sd *seed.Seed, tensorGraph *[]ir.TensorNode, gn ast.GraphNode) error {
	isSized, notRepeatable := true, false
	cond := condition{
		name:       ir.InputBuiltinName,
		tyInputs:   inputsKindPtr(ast.InputsUseLast),
		args:       []string{},
		isSized:    &isSized,
		repeatable: &notRepeatable,
		isIDZero:   true,
	}
	if err := cond.test(gn); err != nil {
		return err
	}

	g := variable.NewGraph(sd.Generate())
	if err := g.Build(); err != nil {
		return err
	}

	out := shape.Shapes(gn.Shapes)
	*tensorGraph = append(*tensorGraph, ir.NewExtern(ir.NewExternIR(ast.ExternSubDefault, assertShapeName, g, nil, &out)))
	return nil
}

// buildDefaultCalls resolves, applies, I/O-wires, and shape-links each
// call listed under a non-built-in tensor-graph entry (§4.E, DefaultNode
// arm of GraphNodeEntry.build). A single entry may list more than one
// call, each pushed as its own tensor-graph position sharing the entry's
// id.
func buildDefaultCalls(ctx *resolver.Context, path resolver.NodeName, tensorGraph *[]ir.TensorNode, gn ast.GraphNode, build nodecache.Builder) error {
	parentGraph, _ := ctx.ParentGraph(path)

	for _, call := range gn.Calls {
		callee, err := ctx.Get(path, call.Name, build)
		if err != nil {
			return err
		}
		callee.SetID(gn.ID)

		repeat := call.Repeat
		if repeat != nil && parentGraph != nil {
			repeat, err = parentGraph.ReplaceTo(repeat)
			if err != nil {
				return err
			}
		}
		if err := setRepeat(callee, repeat); err != nil {
			return err
		}

		if len(call.Args) != 0 {
			args := make(map[string]*value.Value, len(call.Args))
			for k, v := range call.Args {
				rv := v
				if parentGraph != nil {
					rv, err = parentGraph.ReplaceTo(v)
					if err != nil {
						return err
					}
				}
				args[k] = rv
			}
			if err := callee.ApplyVariables(args, true); err != nil {
				return err
			}
		}

		data := callee.Data()
		expectedKeys := sortedOutKeys(data.Input)
		givenInputs, err := unwrapDict(call.Inputs)
		if err != nil {
			return err
		}
		newInput := make(map[string]value.Out, len(expectedKeys))
		for _, k := range expectedKeys {
			if given, ok := givenInputs[k]; ok {
				newInput[k] = given
			} else {
				newInput[k] = value.Out{Name: k}
			}
		}
		data.Input = newInput

		// Outputs reuse the same key set as the expected inputs, matching
		// the common case (a single "x" key flowing straight through) -
		// mirrors the original builder's own expected_outputs binding.
		id1 := gn.ID + 1
		newOutput := make(map[string]value.Out, len(expectedKeys))
		for _, k := range expectedKeys {
			idc := id1
			newOutput[k] = value.Out{ID: &idc, Name: k}
		}
		data.Output = newOutput

		if len(*tensorGraph) > 0 {
			lastOutputs := shape.Shapes{}
			for k, out := range data.Input {
				outCopy := out
				dims, err := fetchShape(*tensorGraph, &outCopy)
				if err != nil {
					return err
				}
				lastOutputs[k] = dims
				data.Input[k] = outCopy
			}
			if newInputShapes := callee.InputShapes(); newInputShapes != nil {
				if err := shape.Link(lastOutputs, *newInputShapes); err != nil {
					return err
				}
				if newOutputShapes := callee.OutputShapes(); newOutputShapes != nil {
					for name, dims := range *newOutputShapes {
						if dims == nil {
							(*newOutputShapes)[name] = (*newInputShapes)[name]
						}
					}
				}
			}
		} else {
			for k, out := range data.Input {
				idc := uint64(1)
				out.ID = &idc
				data.Input[k] = out
			}
		}

		*tensorGraph = append(*tensorGraph, callee)
	}

	if gn.Shapes != nil {
		if last := lastOutputShapes(*tensorGraph); last != nil {
			if err := shape.Link(shape.Shapes(gn.Shapes), *last); err != nil {
				return err
			}
		}
	}
	return nil
}

func setRepeat(t ir.TensorNode, repeat *value.Value) error {
	if t.Kind != ir.KindDefaultNode {
		if repeat != nil {
			return &n3err.GraphCallError{Kind: n3err.ErrUnexpectedRepeat, Name: t.Name()}
		}
		return nil
	}
	t.Node.Repeat = repeat
	return nil
}

func unwrapDict(in *ast.Inputs) (map[string]value.Out, error) {
	if in == nil {
		return map[string]value.Out{}, nil
	}
	if in.Kind != ast.InputsDict {
		return nil, &n3err.GraphCallError{Kind: n3err.ErrMismatchedInputsType, Expected: "Dict", Given: inputsKindString(in.Kind)}
	}
	return in.Dict, nil
}

func sortedOutKeys(m map[string]value.Out) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// fetchShape resolves out against tensorGraph: if out.ID is unset, it
// finds the most recent entry (scanning backward) whose output defines
// out.Name and stamps out.ID with that entry's id; otherwise it reads
// the shape directly off the entry at out.ID. Mirrors NodeIR's own
// findProducingID helper, which performs the identical backward scan for
// repeat-expansion.
func fetchShape(tensorGraph []ir.TensorNode, out *value.Out) ([]*value.Value, error) {
	if out.ID == nil {
		for i := len(tensorGraph) - 1; i >= 0; i-- {
			if s := tensorGraph[i].OutputShapes(); s != nil {
				if dims, ok := (*s)[out.Name]; ok {
					id := tensorGraph[i].ID()
					out.ID = &id
					return dims, nil
				}
			}
		}
		return nil, &n3err.GraphCallError{Kind: n3err.ErrGenericShape, Name: out.Name}
	}
	for i := range tensorGraph {
		if tensorGraph[i].ID() != *out.ID {
			continue
		}
		s := tensorGraph[i].OutputShapes()
		if s == nil {
			return nil, nil
		}
		return (*s)[out.Name], nil
	}
	return nil, &n3err.GraphCallError{Kind: n3err.ErrGenericShape, Name: out.Name}
}

// lastOutputShapes returns the most recently defined output shapes among
// tensorGraph's entries, walking backward - the "last_outputs"/
// get_output_shapes() the Transform/ToLinear/Concat built-ins link
// against.
func lastOutputShapes(tensorGraph []ir.TensorNode) *shape.Shapes {
	for i := len(tensorGraph) - 1; i >= 0; i-- {
		if s := tensorGraph[i].OutputShapes(); s != nil {
			return s
		}
	}
	return nil
}
