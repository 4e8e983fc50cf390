// Package ast holds the immutable node arena the resolver passes operate on.
// Nodes are addressed by NodeID; derived data (depth, globals, aliases) is kept
// by the passes in side tables keyed by NodeID, never on the nodes themselves.
package ast

import "fmt"

type Kind int

const (
	KindModule Kind = iota
	KindClassDef
	KindFunctionDef
	KindImport
	KindImportFrom
	KindName
	KindAttribute
	KindAssign
	KindGlobal
	KindCall
	KindArguments
	KindLoad
	KindStore
	KindLiteral
	KindOther
)

var kindNames = [...]string{
	KindModule:      "Module",
	KindClassDef:    "ClassDef",
	KindFunctionDef: "FunctionDef",
	KindImport:      "Import",
	KindImportFrom:  "ImportFrom",
	KindName:        "Name",
	KindAttribute:   "Attribute",
	KindAssign:      "Assign",
	KindGlobal:      "Global",
	KindCall:        "Call",
	KindArguments:   "Arguments",
	KindLoad:        "Load",
	KindStore:       "Store",
	KindLiteral:     "Literal",
	KindOther:       "Other",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsScope reports whether nodes of this kind open a lexical scope.
func (k Kind) IsScope() bool {
	return k == KindModule || k == KindClassDef || k == KindFunctionDef
}

// NodeID is an index into Tree's node arena.
type NodeID int32

// NoNode marks an absent optional reference.
const NoNode NodeID = -1

func (id NodeID) Valid() bool { return id >= 0 }

type Position struct {
	Line    int // 1-based
	EndLine int // inclusive, 0 when unknown
}

func (p Position) String() string {
	if p.EndLine > p.Line {
		return fmt.Sprintf("%d-%d", p.Line, p.EndLine)
	}
	return fmt.Sprintf("%d", p.Line)
}

// ImportName is one entry of an import list: `name as asname`.
type ImportName struct {
	Name   string
	AsName string
}

// Bound returns the identifier the import introduces into the scope.
func (n ImportName) Bound() string {
	if n.AsName != "" {
		return n.AsName
	}
	return n.Name
}

// Wildcard is the Name of the single ImportName in `from m import *`.
const Wildcard = "*"

type Node struct {
	Kind Kind
	Pos  Position

	// Name holds the identifier for Name, ClassDef, FunctionDef and Module
	// nodes and the member label for Attribute nodes.
	Name string

	// Import / ImportFrom.
	Module string
	Level  int // leading dots of a relative ImportFrom
	Names  []ImportName

	// Global.
	Globals []string

	// Arguments.
	Params []string
	Vararg string
	Kwarg  string

	// Assign.
	Targets []NodeID
	Value   NodeID

	// Attribute: the object whose member is accessed.
	Object NodeID

	// Call.
	Func NodeID
	Args []NodeID

	// Ctx is the Load/Store child of Name and Attribute nodes.
	Ctx NodeID

	Children []NodeID
}

// IsWildcard reports whether an ImportFrom node is `from m import *`.
func (n *Node) IsWildcard() bool {
	return n.Kind == KindImportFrom && len(n.Names) == 1 && n.Names[0].Name == Wildcard
}

// QualifiedModule returns the ImportFrom module text with its relative-level dots.
func (n *Node) QualifiedModule() string {
	if n.Level <= 0 {
		return n.Module
	}
	dots := make([]byte, n.Level)
	for i := range dots {
		dots[i] = '.'
	}
	return string(dots) + n.Module
}
