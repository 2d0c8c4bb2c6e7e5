package ast

import "github.com/DavidWilson4242/spyre/lex"

// ExprKind is the sum tag for Expr.
type ExprKind int

const (
	ExprInteger ExprKind = iota
	ExprFloat
	ExprIdentifier
	ExprUnary
	ExprBinary
	ExprIndex
	ExprCall
	ExprNew
)

// LeafSide marks which side of an operator an expression sits on. The
// parser sets LeafRight on the member name of '.'; the emitter does not
// read it and picks address or value form from the expression's shape.
type LeafSide int

const (
	LeafNA LeafSide = iota
	LeafLeft
	LeafRight
)

// Op is an operator code, reusing the lexer's OpCode space so single-char
// operators (+, -, *, /, =, <, >, ., ,) and multi-char operators (==, &&,
// ...) share one representation end to end.
type Op = lex.OpCode

// Expr is the tagged union over expression node kinds, matching
// parse.h's NodeExpression_T. Only the fields relevant to Kind are
// meaningful.
type Expr struct {
	Kind ExprKind
	Line int

	// Resolved is filled in by the type checker. Left nil for comma nodes
	// and for the right-hand identifier of '.'.
	Resolved *Datatype

	Parent     *Expr
	Next       *Expr // chains the dimension expressions of an ExprNew (ArrSize)
	NodeParent *Node // set only on the root expression of a statement
	Leaf       LeafSide

	// ExprInteger / ExprFloat
	IVal int64
	FVal float64

	// ExprIdentifier
	Ident string
	// Decl is set by the type checker when Ident resolves to a local
	// variable or argument (nil when it resolves to a function/cfunc
	// name instead), so codegen can read local_index without redoing the
	// scope walk.
	Decl *Declaration

	// ExprUnary
	UnaryOp      Op
	UnaryOperand *Expr
	AsString     string

	// ExprBinary
	BinOp   Op
	Left    *Expr
	Right   *Expr

	// ExprIndex
	Array *Expr
	Index *Expr

	// ExprCall
	Callee *Expr
	Args   *Expr // right-leaning comma chain, nil if no arguments

	// ExprNew
	NewType *Datatype
	ArrDim  uint
	ArrSize *Expr // chain via Next for multiple [..][..] dimensions
}

// Integer, FloatLit, Identifier, Unary, Binary, Index, Call, New are
// constructors mirroring how the parser builds each node kind, keeping the
// field wiring for each tag in one obvious place.

func Integer(line int, v int64) *Expr {
	return &Expr{Kind: ExprInteger, Line: line, IVal: v}
}

func FloatLit(line int, v float64) *Expr {
	return &Expr{Kind: ExprFloat, Line: line, FVal: v}
}

func Identifier(line int, name string) *Expr {
	return &Expr{Kind: ExprIdentifier, Line: line, Ident: name}
}

func Unary(line int, op Op, operand *Expr) *Expr {
	e := &Expr{Kind: ExprUnary, Line: line, UnaryOp: op, UnaryOperand: operand}
	operand.Parent = e
	return e
}

func Binary(line int, op Op, left, right *Expr) *Expr {
	e := &Expr{Kind: ExprBinary, Line: line, BinOp: op, Left: left, Right: right}
	left.Parent = e
	right.Parent = e
	return e
}

func Index(line int, array, index *Expr) *Expr {
	e := &Expr{Kind: ExprIndex, Line: line, Array: array, Index: index}
	array.Parent = e
	index.Parent = e
	return e
}

func Call(line int, callee, args *Expr) *Expr {
	e := &Expr{Kind: ExprCall, Line: line, Callee: callee, Args: args}
	callee.Parent = e
	for a := args; a != nil; a = a.Next {
		a.Parent = e
	}
	return e
}

func New(line int, dt *Datatype, dims *Expr) *Expr {
	n := uint(0)
	for d := dims; d != nil; d = d.Next {
		n++
	}
	e := &Expr{Kind: ExprNew, Line: line, NewType: dt, ArrDim: n, ArrSize: dims}
	for d := dims; d != nil; d = d.Next {
		d.Parent = e
	}
	return e
}

// FlattenArgs converts the right-leaning comma chain an ExprCall's Args
// points at into a left-to-right ordered slice, used uniformly by the type
// checker and the emitter instead of duplicating the comma-walk in both
// places (spec.md 9's recommendation to pick one comma representation and
// be consistent).
func FlattenArgs(args *Expr) []*Expr {
	var out []*Expr
	cur := args
	for cur != nil {
		if cur.Kind == ExprBinary && cur.BinOp == ',' {
			out = append(out, cur.Left)
			cur = cur.Right
			continue
		}
		out = append(out, cur)
		break
	}
	return out
}
