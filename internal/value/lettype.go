// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package value

import "fmt"

// TypeKind discriminates the variant held by a LetType.
type TypeKind int

const (
	TypeBool TypeKind = iota
	TypeUInt
	TypeInt
	TypeReal
	TypeString
	TypeDim
	TypeNode
	TypeList
	TypeMap
)

func (k TypeKind) String() string {
	names := [...]string{"Bool", "UInt", "Int", "Real", "String", "Dim", "Node", "List", "Map"}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// LetType is N3's declared-type sum (§3): the five atomics, Dim, Node(kind?
// restricting to a node kind such as "Default" or "Extern"), and the two
// parameterized containers List(inner)/Map(inner).
type LetType struct {
	Kind TypeKind

	// NodeKind restricts a Node(kind) type; empty means "any kind".
	NodeKind string

	// Inner is the element type for List/Map.
	Inner *LetType
}

func Bool() LetType   { return LetType{Kind: TypeBool} }
func UInt() LetType   { return LetType{Kind: TypeUInt} }
func Int() LetType    { return LetType{Kind: TypeInt} }
func Real() LetType   { return LetType{Kind: TypeReal} }
func String() LetType { return LetType{Kind: TypeString} }
func Dim() LetType    { return LetType{Kind: TypeDim} }

// Node returns a Node(kind) type; kind == "" matches any node kind.
func Node(kind string) LetType { return LetType{Kind: TypeNode, NodeKind: kind} }

// List returns a List(inner) type.
func List(inner LetType) LetType { return LetType{Kind: TypeList, Inner: &inner} }

// Map returns a Map(inner) type.
func Map(inner LetType) LetType { return LetType{Kind: TypeMap, Inner: &inner} }

func (t LetType) String() string {
	switch t.Kind {
	case TypeNode:
		if t.NodeKind == "" {
			return "Node"
		}
		return fmt.Sprintf("Node(%s)", t.NodeKind)
	case TypeList:
		return fmt.Sprintf("List(%s)", t.Inner)
	case TypeMap:
		return fmt.Sprintf("Map(%s)", t.Inner)
	default:
		return t.Kind.String()
	}
}

// KindOf reports the Value Kind that structurally matches this LetType, for
// the atomics/Dim/Node/List/Map cases where the mapping is 1:1 (Expr and
// VariableRef are never a declared LetType - they only ever appear as a
// variable's transient, not-yet-resolved Value).
func (t LetType) KindOf() Kind {
	switch t.Kind {
	case TypeBool:
		return KindBool
	case TypeUInt:
		return KindUInt
	case TypeInt:
		return KindInt
	case TypeReal:
		return KindReal
	case TypeString:
		return KindString
	case TypeDim:
		return KindDim
	case TypeNode:
		return KindNode
	case TypeList:
		return KindList
	case TypeMap:
		return KindMap
	default:
		return KindBool
	}
}
