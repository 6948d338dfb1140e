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
	"fmt"
	"sort"

	"github.com/HoKim98/n3/internal/ast"
	"github.com/HoKim98/n3/internal/ir"
	"github.com/HoKim98/n3/internal/n3err"
	"github.com/HoKim98/n3/internal/resolver"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/shape"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

const (
	builtinTransform = "Transform"
	builtinToLinear  = "ToLinear"
	builtinConcat    = "Concat"

	// assertShapeName is the runtime primitive every built-in shape
	// assertion/transform lowers to - the original's INPUT_NAME.
	assertShapeName = "AssertShape"
)

// condition is the per-entry validator every built-in call site runs
// (§4.E's ExternTensorGraphCondition): a nil field means "don't check".
type condition struct {
	name       string
	tyInputs   *ast.InputsKind
	args       []string // non-nil (possibly empty) requires an exact key-set match
	isSized    *bool
	repeatable *bool
	isIDZero   bool
}

func (c condition) test(gn ast.GraphNode) error {
	if c.isIDZero && gn.ID != 0 {
		return &n3err.GraphNodeError{Kind: n3err.ErrMismatchedID, ExpectedID: 0, GivenID: gn.ID}
	}
	if len(gn.Calls) != 1 {
		return &n3err.GraphNodeError{Kind: n3err.ErrMismatchedSize, ExpectedNames: []string{c.name}, GivenCount: len(gn.Calls)}
	}
	call := gn.Calls[0]
	if call.Name != c.name {
		return &n3err.GraphCallError{Kind: n3err.ErrMismatchedName, Name: call.Name, Expected: c.name}
	}
	if c.tyInputs != nil {
		given := inputsKind(call.Inputs)
		if given != *c.tyInputs {
			return &n3err.GraphCallError{Kind: n3err.ErrMismatchedInputsType, Expected: inputsKindString(*c.tyInputs), Given: inputsKindString(given)}
		}
	}
	if c.args != nil {
		if err := checkArgsExact(call.Name, call.Args, c.args); err != nil {
			return err
		}
	}
	if c.isSized != nil {
		present := gn.Shapes != nil
		if present != *c.isSized {
			return &n3err.GraphNodeError{Kind: n3err.ErrMismatchedShapesExistence, Expected: *c.isSized, Given: present}
		}
	}
	if c.repeatable != nil {
		present := call.Repeat != nil
		if present != *c.repeatable {
			return &n3err.GraphCallError{Kind: n3err.ErrUnexpectedRepeat, Name: call.Name}
		}
	}
	return nil
}

func inputsKind(in *ast.Inputs) ast.InputsKind {
	if in == nil {
		return ast.InputsUseLast
	}
	return in.Kind
}

func inputsKindPtr(k ast.InputsKind) *ast.InputsKind { return &k }

func inputsKindString(k ast.InputsKind) string {
	switch k {
	case ast.InputsUseLast:
		return "UseLast"
	case ast.InputsDict:
		return "Dict"
	case ast.InputsList:
		return "List"
	default:
		return "Unknown"
	}
}

func checkArgsExact(name string, given map[string]*value.Value, expected []string) error {
	if len(given) != len(expected) {
		return &n3err.GraphCallError{Kind: n3err.ErrMismatchedArgs, Name: name}
	}
	for _, k := range expected {
		if _, ok := given[k]; !ok {
			return &n3err.GraphCallError{Kind: n3err.ErrMismatchedArgs, Name: name}
		}
	}
	return nil
}

// buildTransform builds a Transform (linear=false) or ToLinear
// (linear=true) entry (§4.E): Transform requires a declared output shape
// whose product matches the input's; ToLinear always flattens to a
// single product axis.
func buildTransform(sd *seed.Seed, tensorGraph *[]ir.TensorNode, gn ast.GraphNode, linear bool) error {
	name := builtinTransform
	if linear {
		name = builtinToLinear
	}
	isSized := !linear
	notRepeatable := false
	cond := condition{
		name:       name,
		tyInputs:   inputsKindPtr(ast.InputsUseLast),
		args:       []string{},
		isSized:    &isSized,
		repeatable: &notRepeatable,
	}
	if err := cond.test(gn); err != nil {
		return err
	}

	inputs := lastOutputShapes(*tensorGraph)
	if inputs == nil {
		return &n3err.GraphCallError{Kind: n3err.ErrGenericShapes, Name: name}
	}

	var outputs shape.Shapes
	if linear {
		outputs = make(shape.Shapes, len(*inputs))
		for k, dims := range *inputs {
			outputs[k] = []*value.Value{foldValues(value.OpMul, dims)}
		}
	} else {
		outputs = shape.Shapes(gn.Shapes)

		if len(*inputs) != len(outputs) {
			return mismatchedShapeKeys(*inputs, outputs)
		}
		for k := range *inputs {
			if _, ok := outputs[k]; !ok {
				return mismatchedShapeKeys(*inputs, outputs)
			}
		}
		for key, inDims := range *inputs {
			inProd, err := resolvedProduct(inDims)
			if err != nil {
				return err
			}
			outProd, err := resolvedProduct(outputs[key])
			if err != nil {
				return err
			}
			if !value.Equal(inProd, outProd) {
				return &n3err.LinkError{Kind: n3err.ErrMismatchedDim, Expected: outProd.Render(), Given: inProd.Render()}
			}
		}
	}

	g := variable.NewGraph(sd.Generate())
	outMap := make(map[string]*value.Value, len(outputs))
	for k, dims := range outputs {
		listed := make([]*value.Value, len(dims))
		copy(listed, dims)
		outMap[k] = value.NewList(listed)
	}
	v := variable.New("output shapes")
	v.Value = value.NewMap(outMap)
	if err := g.Add(v); err != nil {
		return err
	}
	if err := g.Build(); err != nil {
		return err
	}

	ioNames := sortedShapeKeysOf(*inputs)
	input, err := outsFetched(*tensorGraph, ioNames)
	if err != nil {
		return err
	}
	output := outsAt(ioNames, gn.ID+1)

	extern := &ir.ExternIR{
		SubKind: ast.ExternSubDefault,
		Data: ir.IRData{
			ID:     gn.ID,
			Name:   assertShapeName,
			Graph:  g,
			Input:  input,
			Output: output,
		},
		Shapes: ir.ExternShapes{Input: inputs, Output: &outputs},
	}
	*tensorGraph = append(*tensorGraph, ir.NewExtern(extern))
	return nil
}

// buildConcat builds a Concat entry (§4.E): its single "axis" arg
// selects the axis every listed input is concatenated along; every
// other axis must already agree across inputs.
func buildConcat(sd *seed.Seed, ctx *resolver.Context, path resolver.NodeName, tensorGraph *[]ir.TensorNode, gn ast.GraphNode) error {
	isSized := false
	notRepeatable := false
	cond := condition{
		name:       builtinConcat,
		tyInputs:   inputsKindPtr(ast.InputsList),
		args:       []string{"axis"},
		isSized:    &isSized,
		repeatable: &notRepeatable,
	}
	if err := cond.test(gn); err != nil {
		return err
	}

	call := gn.Calls[0]
	parentGraph, _ := ctx.ParentGraph(path)

	axisVal := call.Args["axis"]
	var err error
	if parentGraph != nil {
		axisVal, err = parentGraph.ReplaceTo(axisVal)
		if err != nil {
			return err
		}
	}
	resolvedAxis, err := value.Resolve(axisVal)
	if err != nil {
		return err
	}
	var axis int64
	switch {
	case resolvedAxis != nil && resolvedAxis.Kind == value.KindInt:
		axis = resolvedAxis.Int
	case resolvedAxis != nil && resolvedAxis.Kind == value.KindUInt:
		axis = int64(resolvedAxis.UInt)
	default:
		given := "nil"
		if resolvedAxis != nil {
			given = resolvedAxis.Kind.String()
		}
		return &n3err.GraphCallError{Kind: n3err.ErrMismatchedArgType, Expected: "UInt", Given: given}
	}

	ioInputs := append([]value.Out{}, call.Inputs.List...)
	if len(ioInputs) == 0 {
		return &n3err.GraphCallError{Kind: n3err.ErrEmptyInputs, Name: builtinConcat}
	}

	inputs := make([][]*value.Value, len(ioInputs))
	for i := range ioInputs {
		o := ioInputs[i]
		dims, err := fetchShape(*tensorGraph, &o)
		if err != nil {
			return err
		}
		ioInputs[i] = o
		inputs[i] = dims
	}
	if inputs[0] == nil {
		return &n3err.GraphCallError{Kind: n3err.ErrGenericShapes, Name: builtinConcat}
	}

	tensorDims := int64(len(inputs[0]))
	if axis < 0 {
		axis = -axis - tensorDims
	}
	if axis < 0 || axis >= tensorDims {
		return &n3err.GraphCallError{Kind: n3err.ErrMismatchedAxis, Min: 0, Max: int(tensorDims - 1), AxisGiven: int(axis)}
	}
	axisIdx := int(axis)

	tensorBase := make([]*value.Value, len(inputs[0]))
	copy(tensorBase, inputs[0])
	targetDims := []*value.Value{tensorBase[axisIdx]}
	tensorBase[axisIdx] = nil

	for i := 1; i < len(inputs); i++ {
		shapeDims := inputs[i]
		if shapeDims == nil {
			return &n3err.GraphCallError{Kind: n3err.ErrGenericListInputShape, Index: i}
		}
		if len(shapeDims) != len(tensorBase) {
			return &n3err.GraphCallError{Kind: n3err.ErrMismatchedShapes, Expected: fmt.Sprintf("%d", len(tensorBase)), Given: fmt.Sprintf("%d", len(shapeDims))}
		}
		for d := range tensorBase {
			if tensorBase[d] != nil {
				if !value.Equal(tensorBase[d], shapeDims[d]) {
					return &n3err.LinkError{Kind: n3err.ErrMismatchedDim, Expected: tensorBase[d].Render(), Given: shapeDims[d].Render()}
				}
			} else {
				targetDims = append(targetDims, shapeDims[d])
			}
		}
	}

	tensorBase[axisIdx] = foldValues(value.OpAdd, targetDims)
	outputDims := make([]*value.Value, len(tensorBase))
	copy(outputDims, tensorBase)

	g := variable.NewGraph(sd.Generate())
	axisVar := variable.New("axis")
	axisVar.Value = value.NewInt(int64(axisIdx))
	if err := g.Add(axisVar); err != nil {
		return err
	}
	if err := g.Build(); err != nil {
		return err
	}

	inputsShapes := make(shape.Shapes, len(inputs))
	for i, dims := range inputs {
		inputsShapes[fmt.Sprintf("%d", i)] = dims
	}
	outputsShapes := shape.Shapes{"x": outputDims}

	inIO := make(map[string]value.Out, len(ioInputs))
	for _, o := range ioInputs {
		inIO[o.Name] = o
	}
	outID := gn.ID + 1
	outIO := map[string]value.Out{"x": {ID: &outID, Name: "x"}}

	extern := &ir.ExternIR{
		SubKind: ast.ExternSubDefault,
		Data: ir.IRData{
			ID:     gn.ID,
			Name:   call.Name,
			Graph:  g,
			Input:  inIO,
			Output: outIO,
		},
		Shapes: ir.ExternShapes{Input: &inputsShapes, Output: &outputsShapes},
	}
	*tensorGraph = append(*tensorGraph, ir.NewExtern(extern))
	return nil
}

// foldValues folds dims left-to-right through op (Add for a concat axis
// sum, Mul for a flatten product), eagerly evaluating when every operand
// is atomic and deferring to a symbolic Expr otherwise - the same
// promotion BinaryOp already implements.
func foldValues(op value.Op, dims []*value.Value) *value.Value {
	switch len(dims) {
	case 0:
		return value.NewUInt(0)
	case 1:
		return dims[0]
	}
	acc := dims[0]
	for _, d := range dims[1:] {
		acc = value.BinaryOp(op, acc, d)
	}
	return acc
}

// resolvedProduct folds dims through Mul after fully resolving each one
// - used where the original explicitly "builds" both sides before an
// equality check (Transform's rank/size validation), as opposed to
// foldValues's symbolic fold used when constructing a shape that may
// still legitimately carry free references.
func resolvedProduct(dims []*value.Value) (*value.Value, error) {
	if len(dims) == 0 {
		return value.NewUInt(1), nil
	}
	acc, err := value.Resolve(dims[0])
	if err != nil {
		return nil, err
	}
	for _, d := range dims[1:] {
		r, err := value.Resolve(d)
		if err != nil {
			return nil, err
		}
		acc = value.BinaryOp(value.OpMul, acc, r)
	}
	return acc, nil
}

func sortedShapeKeysOf(s shape.Shapes) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func outsFetched(tensorGraph []ir.TensorNode, names []string) (map[string]value.Out, error) {
	out := make(map[string]value.Out, len(names))
	for _, n := range names {
		o := value.Out{Name: n}
		if _, err := fetchShape(tensorGraph, &o); err != nil {
			return nil, err
		}
		out[n] = o
	}
	return out, nil
}

func outsAt(names []string, id uint64) map[string]value.Out {
	out := make(map[string]value.Out, len(names))
	for _, n := range names {
		idc := id
		out[n] = value.Out{ID: &idc, Name: n}
	}
	return out
}

func mismatchedShapeKeys(inputs, outputs shape.Shapes) error {
	return &n3err.GraphCallError{
		Kind:     n3err.ErrMismatchedShapeKeys,
		Expected: fmt.Sprintf("%v", sortedShapeKeysOf(inputs)),
		Given:    fmt.Sprintf("%v", sortedShapeKeysOf(outputs)),
	}
}
