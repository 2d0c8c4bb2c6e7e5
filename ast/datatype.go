// Package ast defines the data model shared by the parser, type checker,
// and bytecode emitter: datatypes, declarations, expression nodes, and
// statement nodes. It is a direct translation of original_source/src/parse.h
// into Go tagged structs (spec.md 9's "tagged sum" recommendation), kept as
// plain pointer graphs rather than an arena+handle scheme since the
// programs this toolchain compiles are small and the pointer form matches
// the original shape closely enough to stay easy to audit against it.
package ast

// DatatypeKind is the sum tag for Datatype.
type DatatypeKind int

const (
	DTPrimitive DatatypeKind = iota
	DTStruct
	DTFunction
)

// Primitive byte sizes, exactly as spec.md's Data Model states (not
// typecheck.c's hardcoded 8-for-everything).
const (
	SizeInt   = 8
	SizeFloat = 8
	SizeChar  = 1
	SizeBool  = 8
)

// Datatype is the sum type over primitive/struct/function data types.
type Datatype struct {
	TypeName string // nullable for anonymous function types
	ArrDim   uint   // count of trailing []
	PtrDim   uint   // reserved
	PrimSize uint   // meaningful only when Kind == DTPrimitive
	IsConst  bool
	Kind     DatatypeKind

	Struct *StructDescriptor // Kind == DTStruct
	Func   *FunctionDescriptor // Kind == DTFunction
}

// StrictEqual implements spec.md 4.D's "strictly equal" rule: identical
// {kind, pointer dim, array dim, const flag, type name}.
func (d *Datatype) StrictEqual(o *Datatype) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.Kind == o.Kind &&
		d.PtrDim == o.PtrDim &&
		d.ArrDim == o.ArrDim &&
		d.IsConst == o.IsConst &&
		d.TypeName == o.TypeName
}

// DeepCopy returns an independent copy, so later aliasing of a resolved
// type by the type checker never mutates the source declaration's type
// (spec.md 9, "expression tree mutation during type checking").
func (d *Datatype) DeepCopy() *Datatype {
	if d == nil {
		return nil
	}
	cp := *d
	// Struct/Func descriptors are shared by reference deliberately: they
	// are registries (member tables, argument lists) looked up by name,
	// not owned per-expression state, so copying them would be wasted
	// work and would desync member lookups from the canonical registry.
	return &cp
}

// Declaration is a name bound to a datatype: a local variable, a function
// argument, or a struct member.
type Declaration struct {
	Name string
	Type *Datatype
	Next *Declaration

	// LocalIndex is in slot units (8-byte words), meaningful for function
	// arguments and block-local variables.
	LocalIndex int
	// StructIndex is the member's position within its struct, meaningful
	// only when this declaration is a struct member.
	StructIndex int
}

// FunctionDescriptor is the callable signature carried by a DTFunction
// Datatype.
type FunctionDescriptor struct {
	Arguments  *Declaration // linked list, in declared order
	ReturnType *Datatype    // nil = void
	NArgs      int
}

// StructDescriptor is the member table carried by a DTStruct Datatype.
// Members is keyed by name for O(1) lookup in the type checker; Order
// preserves declaration order for struct-index assignment and for the
// emitter's db-section listing.
type StructDescriptor struct {
	Members map[string]*Declaration
	Order   []*Declaration
}

// NewStructDescriptor returns an empty member table.
func NewStructDescriptor() *StructDescriptor {
	return &StructDescriptor{Members: make(map[string]*Declaration)}
}

// AddMember appends a member, assigning the next struct_index in textual
// order. Returns false if the name is already taken (duplicate member).
func (s *StructDescriptor) AddMember(name string, dt *Datatype) (*Declaration, bool) {
	if _, exists := s.Members[name]; exists {
		return nil, false
	}
	decl := &Declaration{Name: name, Type: dt, StructIndex: len(s.Order)}
	s.Members[name] = decl
	s.Order = append(s.Order, decl)
	return decl, true
}
