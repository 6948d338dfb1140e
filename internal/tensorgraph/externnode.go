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
	"github.com/HoKim98/n3/internal/ast"
	"github.com/HoKim98/n3/internal/ir"
	"github.com/HoKim98/n3/internal/n3err"
	"github.com/HoKim98/n3/internal/shape"
	"github.com/HoKim98/n3/internal/variable"
)

// buildExternTensorGraph validates and lowers an Extern/Data/Optim node's
// tensor graph into a single ExternIR (§4.E): a Default extern declares
// exactly an "Input" entry at id 0 and an "Output" entry at id 1, a Data
// extern declares exactly an "Output" entry at id 0, and an Optim extern
// declares no entries at all (its graph alone is its whole contract -
// optimizers have no tensor shape to assert).
func buildExternTensorGraph(node ast.Node, graph *variable.VariableGraph, subKind ast.ExternSubKind) (*ir.ExternIR, error) {
	switch subKind {
	case ast.ExternSubDefault:
		if err := validateExternEntryCount(node, 2); err != nil {
			return nil, err
		}
		if err := validateExternEntry(node, 0, "Input", true); err != nil {
			return nil, err
		}
		if err := validateExternEntry(node, 1, "Output", false); err != nil {
			return nil, err
		}
		input := shape.Shapes(node.TensorGraph[0].Shapes)
		output := shape.Shapes(node.TensorGraph[1].Shapes)
		return ir.NewExternIR(subKind, node.Name, graph, &input, &output), nil

	case ast.ExternSubData:
		if err := validateExternEntryCount(node, 1); err != nil {
			return nil, err
		}
		if err := validateExternEntry(node, 0, "Output", true); err != nil {
			return nil, err
		}
		output := shape.Shapes(node.TensorGraph[0].Shapes)
		return ir.NewExternIR(subKind, node.Name, graph, nil, &output), nil

	default: // ast.ExternSubOptim
		if err := validateExternEntryCount(node, 0); err != nil {
			return nil, err
		}
		return ir.NewExternIR(subKind, node.Name, graph, nil, nil), nil
	}
}

func validateExternEntryCount(node ast.Node, expected int) error {
	if len(node.TensorGraph) != expected {
		return &n3err.GraphNodeError{
			Kind:       n3err.ErrMismatchedSize,
			GivenCount: len(node.TensorGraph),
		}
	}
	return nil
}

func validateExternEntry(node ast.Node, id uint64, name string, isIDZero bool) error {
	gn, ok := node.TensorGraph[id]
	if !ok {
		return &n3err.GraphNodeError{Kind: n3err.ErrMismatchedID, ExpectedID: id}
	}
	isSized, notRepeatable := true, false
	cond := condition{
		name:       name,
		tyInputs:   inputsKindPtr(ast.InputsUseLast),
		args:       []string{},
		isSized:    &isSized,
		repeatable: &notRepeatable,
		isIDZero:   isIDZero,
	}
	return cond.test(gn)
}
