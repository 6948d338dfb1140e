// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ir implements the three IR variants a TensorGraphBuilder produces
// - NodeIR, ExternIR, ExecIR - and their lowering into code.Code (§4.F).
// NodeIR and ExternIR lower through Build here; ExecIR's lowering needs a
// Vars argument and user-node binding, so it is implemented one layer up,
// in package execlower (§4.G), against the ExecIR type defined here.
package ir

import (
	"fmt"

	"github.com/HoKim98/n3/internal/ast"
	"github.com/HoKim98/n3/internal/code"
	"github.com/HoKim98/n3/internal/n3err"
	"github.com/HoKim98/n3/internal/seed"
	"github.com/HoKim98/n3/internal/shape"
	"github.com/HoKim98/n3/internal/value"
	"github.com/HoKim98/n3/internal/variable"
)

// InputBuiltinName is the reserved call name the TensorGraphBuilder's id-0
// input node must use (§4.E).
const InputBuiltinName = "Input"

// IRData is the data every tensor-graph entry carries: its position within
// the enclosing tensor graph, its name, its (still shared) variable graph,
// and its input/output Out bindings.
type IRData struct {
	ID     uint64
	Name   string
	Graph  *variable.VariableGraph
	Input  map[string]value.Out
	Output map[string]value.Out
}

// WithShapes builds an IRData whose Input/Output are derived from the given
// shapes annotations (or, if nil, default to a single unbound "x" key) -
// mirroring the Rust constructor of the same name.
func WithShapes(name string, graph *variable.VariableGraph, input, output *shape.Shapes) IRData {
	return IRData{
		Name:   name,
		Graph:  graph,
		Input:  shapesToOuts(1, input),
		Output: shapesToOuts(1, output),
	}
}

// WithNoShapes builds an IRData with empty input/output bindings.
func WithNoShapes(name string, graph *variable.VariableGraph) IRData {
	return IRData{Name: name, Graph: graph, Input: map[string]value.Out{}, Output: map[string]value.Out{}}
}

func shapesToOuts(id uint64, shapes *shape.Shapes) map[string]value.Out {
	out := make(map[string]value.Out)
	if shapes == nil {
		idc := id
		out["x"] = value.Out{ID: &idc, Name: "x"}
		return out
	}
	for _, key := range shapes.Keys() {
		idc := id
		out[key] = value.Out{ID: &idc, Name: key}
	}
	return out
}

func cloneOuts(m map[string]value.Out) map[string]value.Out {
	out := make(map[string]value.Out, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CloneSafe returns an identity-rewritten copy of d (§4.B.4 applied to IR
// data): a fresh VariableGraph and Out bindings unchanged (they carry only
// node ids, never variable identity).
func (d IRData) CloneSafe(sd *seed.Seed, visited *[]*variable.Variable) IRData {
	return IRData{
		ID:     d.ID,
		Name:   d.Name,
		Graph:  d.Graph.CloneSafe(sd, visited),
		Input:  cloneOuts(d.Input),
		Output: cloneOuts(d.Output),
	}
}

// NodeIRType discriminates a NodeIR's kind: a Default node (its
// tensor_graph is built recursively) or an Extern wrapper (its
// tensor_graph is exactly one ExternIR to be unwrapped on build).
type NodeIRType struct {
	IsExtern  bool
	ExternSub ast.ExternSubKind
}

// NodeIR is one built (but not yet lowered) Default-kind tensor-graph
// entry: its own data, its kind, its built children, and an optional
// repeat-count expression (§3).
type NodeIR struct {
	Data        IRData
	Type        NodeIRType
	TensorGraph []TensorNode
	Repeat      *value.Value
}

// InputShapes returns the shapes the enclosing tensor graph expects as
// input: the first child's own output shapes if it is the reserved Input
// node, else its input shapes.
func (n *NodeIR) InputShapes() *shape.Shapes { return tensorGraphInputShapes(n.TensorGraph) }

// OutputShapes returns the last defined output shapes among n's children,
// walking backward.
func (n *NodeIR) OutputShapes() *shape.Shapes { return tensorGraphOutputShapes(n.TensorGraph) }

func tensorGraphInputShapes(nodes []TensorNode) *shape.Shapes {
	if len(nodes) == 0 {
		return nil
	}
	first := nodes[0]
	if first.IsInput() {
		return first.OutputShapes()
	}
	return first.InputShapes()
}

func tensorGraphOutputShapes(nodes []TensorNode) *shape.Shapes {
	for i := len(nodes) - 1; i >= 0; i-- {
		if s := nodes[i].OutputShapes(); s != nil {
			return s
		}
	}
	return nil
}

// Root is the narrow capability NodeIR.Build needs from its NodeRoot: a
// seed for allocating fresh graph ids during repeat-expansion cloning.
type Root interface {
	Seed() *seed.Seed
}

// Build lowers n into a code.Code (§4.F "NodeIR.build"):
//  1. if Repeat is set, evaluate it and apply 0/1/n>=2 handling.
//  2. if n wraps a single ExternIR, unwrap it, forwarding n's own I/O Outs.
//  3. else recursively build every child and wrap the result in a NodeCode.
func (n *NodeIR) Build(root Root) (code.Code, error) {
	if n.Repeat != nil {
		repeat, err := evalRepeatCount(n.Repeat)
		if err != nil {
			return code.Code{}, err
		}
		switch {
		case repeat == 1:
			// no-op
		case repeat == 0:
			in, out := n.InputShapes(), n.OutputShapes()
			if in != nil && out != nil {
				if err := shape.Link(*in, *out); err != nil {
					return code.Code{}, err
				}
			}
			n.TensorGraph = nil
		default:
			if err := n.repeatExpand(root, repeat); err != nil {
				return code.Code{}, err
			}
		}
	}

	if n.Type.IsExtern {
		if len(n.TensorGraph) == 1 && n.TensorGraph[0].Kind == KindExternNode {
			inner := n.TensorGraph[0].Extern
			inner.Data.Input = n.Data.Input
			inner.Data.Output = n.Data.Output
			return code.NewExtern(inner.Build()), nil
		}
		// The wrapper's graph aliases its (no longer single) child's; emit
		// a fresh empty graph rather than duplicating the child's table.
		n.Data.Graph = variable.NewGraph(root.Seed().Generate())
	}

	children := make([]code.Code, 0, len(n.TensorGraph))
	for i := range n.TensorGraph {
		c, err := n.TensorGraph[i].Build(root)
		if err != nil {
			return code.Code{}, err
		}
		children = append(children, c)
	}

	return code.NewNode(code.NodeCode{
		Data: code.CodeData{
			Name:   n.Data.Name,
			Graph:  n.Data.Graph.IntoTable(),
			Input:  n.Data.Input,
			Output: n.Data.Output,
		},
		TensorGraph: children,
	}), nil
}

func evalRepeatCount(v *value.Value) (uint64, error) {
	resolved, err := value.Resolve(v)
	if err != nil {
		return 0, err
	}
	if resolved == nil || resolved.Kind != value.KindUInt {
		given := "nil"
		if resolved != nil {
			given = resolved.Kind.String()
		}
		return 0, &n3err.GraphCallError{Kind: n3err.ErrMismatchedArgType, Expected: value.UInt().String(), Given: given}
	}
	return resolved.UInt, nil
}

// repeatExpand clones n's tensor graph repeat-1 additional times (§4.F
// step 1, n>=2 branch): each cloned child has its dim values unloaded,
// linked against the most-recently accumulated output shapes, its Out ids
// rewritten to the node that now produces each name, then its dim values
// reloaded weakly so any binding shape-linking made in the interim survives.
func (n *NodeIR) repeatExpand(root Root, repeat uint64) error {
	var cloned []TensorNode

	for i := uint64(0); i < repeat-1; i++ {
		for _, node := range n.TensorGraph {
			// Each clone resolves its references against its own detached
			// variables only; sharing one accumulator across clones would
			// retarget a later copy's references into an earlier copy.
			var visited []*variable.Variable
			copyNode := node.CloneSafe(root.Seed(), &visited)

			dims := copyNode.Graph().UnloadDims()

			lastOutputs := tensorGraphOutputShapes(cloned)
			if lastOutputs == nil {
				lastOutputs = n.OutputShapes()
			}
			newInputs := copyNode.InputShapes()
			if lastOutputs != nil && newInputs != nil {
				if err := shape.Link(*lastOutputs, *newInputs); err != nil {
					return err
				}
			}

			combined := append(append([]TensorNode{}, n.TensorGraph...), cloned...)
			rewriteOutIDs(copyNode.Data().Input, combined)
			rewriteOutIDs(copyNode.Data().Output, combined)

			copyNode.Graph().LoadDimsWeakly(dims)
			cloned = append(cloned, copyNode)
		}
	}
	n.TensorGraph = append(n.TensorGraph, cloned...)
	return nil
}

func rewriteOutIDs(outs map[string]value.Out, all []TensorNode) {
	for key, out := range outs {
		if id, ok := findProducingID(all, key); ok {
			idc := id
			out.ID = &idc
			outs[key] = out
		}
	}
}

func findProducingID(all []TensorNode, name string) (uint64, bool) {
	for i := len(all) - 1; i >= 0; i-- {
		if s := all[i].OutputShapes(); s != nil {
			if _, ok := (*s)[name]; ok {
				return all[i].ID(), true
			}
		}
	}
	return 0, false
}

// CloneSafe returns an identity-rewritten copy of n. Extern-wrapper and
// Default nodes clone in different field order, matching the original's
// own ordering requirement: an extern wrapper's graph is not its own - it
// is shared with (aliased to) the single child ExternIR's graph, so the
// wrapper's data.Graph must be taken from the already-cloned child rather
// than cloned independently.
func (n *NodeIR) CloneSafe(sd *seed.Seed, visited *[]*variable.Variable) *NodeIR {
	if n.Type.IsExtern {
		tg := cloneTensorGraphSafe(n.TensorGraph, sd, visited)
		var sharedGraph *variable.VariableGraph
		if len(tg) == 1 && tg[0].Kind == KindExternNode {
			sharedGraph = tg[0].Extern.Data.Graph
		}
		data := IRData{ID: n.Data.ID, Name: n.Data.Name, Graph: sharedGraph, Input: cloneOuts(n.Data.Input), Output: cloneOuts(n.Data.Output)}
		return &NodeIR{Data: data, Type: n.Type, TensorGraph: tg, Repeat: variable.CloneValue(n.Repeat, *visited)}
	}
	data := n.Data.CloneSafe(sd, visited)
	tg := cloneTensorGraphSafe(n.TensorGraph, sd, visited)
	return &NodeIR{Data: data, Type: n.Type, TensorGraph: tg, Repeat: variable.CloneValue(n.Repeat, *visited)}
}

// ExternShapes is an ExternIR's declared input/output shapes annotation,
// either of which may be absent (a leaf with no declared shapes at all -
// e.g. Concat, whose output shape is computed, not declared).
type ExternShapes struct {
	Input  *shape.Shapes
	Output *shape.Shapes
}

// ExternIR is a built leaf: a Transform/ToLinear/Concat/Extern-declaration
// node with no further children (§3).
type ExternIR struct {
	Data    IRData
	SubKind ast.ExternSubKind
	Shapes  ExternShapes
}

// NewExternIR constructs an ExternIR whose IRData is derived from the
// declared shapes (the "new_first" constructor: the first IRData built for
// a node, before any linking has happened).
func NewExternIR(subKind ast.ExternSubKind, name string, graph *variable.VariableGraph, input, output *shape.Shapes) *ExternIR {
	return &ExternIR{
		SubKind: subKind,
		Data:    WithShapes(name, graph, input, output),
		Shapes:  ExternShapes{Input: input, Output: output},
	}
}

func (e *ExternIR) InputShapes() *shape.Shapes  { return e.Shapes.Input }
func (e *ExternIR) OutputShapes() *shape.Shapes { return e.Shapes.Output }

// Build lowers e into an ExternCode (§4.F "ExternIR.build").
func (e *ExternIR) Build() code.ExternCode {
	return code.ExternCode{
		SubKind: e.SubKind,
		Data: code.CodeData{
			Name:   e.Data.Name,
			Graph:  e.Data.Graph.IntoTable(),
			Input:  e.Data.Input,
			Output: e.Data.Output,
		},
	}
}

// CloneSafe returns an identity-rewritten copy of e (data, then shapes -
// matching the original's ordering note).
func (e *ExternIR) CloneSafe(sd *seed.Seed, visited *[]*variable.Variable) *ExternIR {
	data := e.Data.CloneSafe(sd, visited)
	return &ExternIR{
		SubKind: e.SubKind,
		Data:    data,
		Shapes: ExternShapes{
			Input:  cloneShapesValue(e.Shapes.Input, *visited),
			Output: cloneShapesValue(e.Shapes.Output, *visited),
		},
	}
}

func cloneShapesValue(s *shape.Shapes, visited []*variable.Variable) *shape.Shapes {
	if s == nil {
		return nil
	}
	out := make(shape.Shapes, len(*s))
	for k, dims := range *s {
		cloned := make([]*value.Value, len(dims))
		for i, d := range dims {
			cloned[i] = variable.CloneValue(d, visited)
		}
		out[k] = cloned
	}
	return &out
}

// ExecIR is a built Exec-kind leaf (§4.F): its own data plus, for each
// group of sibling calls that must be shape-linked in sequence, the chain
// of child node names to link pairwise. Its lowering to Code needs a Vars
// argument (user-supplied overrides) so it lives in package execlower,
// against this type, rather than as a Build method here.
type ExecIR struct {
	Data  IRData
	Links [][]string
}

// CloneSafe returns an identity-rewritten copy of x.
func (x *ExecIR) CloneSafe(sd *seed.Seed, visited *[]*variable.Variable) *ExecIR {
	links := make([][]string, len(x.Links))
	for i, chain := range x.Links {
		links[i] = append([]string{}, chain...)
	}
	return &ExecIR{Data: x.Data.CloneSafe(sd, visited), Links: links}
}

// Kind discriminates the three TensorNode variants a tensor graph holds.
type Kind int

const (
	KindDefaultNode Kind = iota
	KindExternNode
	KindExecNode
)

// TensorNode is one entry of a tensor graph being built (§4.E): a Default
// node, an Extern leaf, or an Exec leaf.
type TensorNode struct {
	Kind   Kind
	Node   *NodeIR
	Extern *ExternIR
	Exec   *ExecIR
}

// NewNode wraps a NodeIR as a TensorNode.
func NewNode(n *NodeIR) TensorNode { return TensorNode{Kind: KindDefaultNode, Node: n} }

// NewExtern wraps an ExternIR as a TensorNode.
func NewExtern(e *ExternIR) TensorNode { return TensorNode{Kind: KindExternNode, Extern: e} }

// NewExec wraps an ExecIR as a TensorNode.
func NewExec(x *ExecIR) TensorNode { return TensorNode{Kind: KindExecNode, Exec: x} }

// Data returns the IRData common to every variant.
func (t TensorNode) Data() *IRData {
	switch t.Kind {
	case KindDefaultNode:
		return &t.Node.Data
	case KindExternNode:
		return &t.Extern.Data
	case KindExecNode:
		return &t.Exec.Data
	default:
		return nil
	}
}

// Graph returns the variable graph common to every variant.
func (t TensorNode) Graph() *variable.VariableGraph { return t.Data().Graph }

// ID returns t's position within its enclosing tensor graph.
func (t TensorNode) ID() uint64 { return t.Data().ID }

// SetID overwrites t's position.
func (t TensorNode) SetID(id uint64) { t.Data().ID = id }

// Name returns t's callee name.
func (t TensorNode) Name() string { return t.Data().Name }

// IsInput reports whether t is the reserved builtin input node.
func (t TensorNode) IsInput() bool { return t.Name() == InputBuiltinName }

// NodeKindName names the top-level node kind t was resolved from - one of
// "Default", "Extern", "Data", "Optim", "Exec" - for checking a resolved
// node against a Node(kind) variable's declared kind (§4.G).
func (t TensorNode) NodeKindName() string {
	switch t.Kind {
	case KindExecNode:
		return "Exec"
	case KindDefaultNode:
		if !t.Node.Type.IsExtern {
			return "Default"
		}
		switch t.Node.Type.ExternSub {
		case ast.ExternSubData:
			return "Data"
		case ast.ExternSubOptim:
			return "Optim"
		default:
			return "Extern"
		}
	default:
		return ""
	}
}

// InputShapes returns t's declared/derived input shapes, or nil.
func (t TensorNode) InputShapes() *shape.Shapes {
	switch t.Kind {
	case KindDefaultNode:
		return t.Node.InputShapes()
	case KindExternNode:
		return t.Extern.InputShapes()
	default:
		return nil
	}
}

// OutputShapes returns t's declared/derived output shapes, or nil.
func (t TensorNode) OutputShapes() *shape.Shapes {
	switch t.Kind {
	case KindDefaultNode:
		return t.Node.OutputShapes()
	case KindExternNode:
		return t.Extern.OutputShapes()
	default:
		return nil
	}
}

// Build lowers t to Code. An Exec-kind node is a contract violation here:
// it must be lowered through execlower.Lower, which has the Vars argument
// ExecIR.build needs.
func (t TensorNode) Build(root Root) (code.Code, error) {
	switch t.Kind {
	case KindDefaultNode:
		return t.Node.Build(root)
	case KindExternNode:
		return code.NewExtern(t.Extern.Build()), nil
	default:
		panic(fmt.Sprintf("tensor node %q: ExecIR must be built via execlower.Lower, not TensorNode.Build", t.Name()))
	}
}

// ApplyVariables assigns values onto t's underlying graph (used when a call
// site binds args onto its callee).
func (t TensorNode) ApplyVariables(values map[string]*value.Value, useShortcut bool) error {
	return t.Graph().Apply(values, useShortcut)
}

// CloneSafe returns an identity-rewritten copy of t.
func (t TensorNode) CloneSafe(sd *seed.Seed, visited *[]*variable.Variable) TensorNode {
	switch t.Kind {
	case KindDefaultNode:
		return NewNode(t.Node.CloneSafe(sd, visited))
	case KindExternNode:
		return NewExtern(t.Extern.CloneSafe(sd, visited))
	default:
		return NewExec(t.Exec.CloneSafe(sd, visited))
	}
}

func cloneTensorGraphSafe(nodes []TensorNode, sd *seed.Seed, visited *[]*variable.Variable) []TensorNode {
	out := make([]TensorNode, len(nodes))
	for i, n := range nodes {
		out[i] = n.CloneSafe(sd, visited)
	}
	return out
}
