package ast

// NodeKind is the sum tag for Node, matching parse.h's ASTNodeType_T plus
// the NodeBreak addition supplemented from original_source (see
// SPEC_FULL.md, "do/continue keywords are lexed").
type NodeKind int

const (
	NodeBlock NodeKind = iota
	NodeIf
	NodeWhile
	NodeFor
	NodeFunction
	NodeExprStmt
	NodeReturn
	NodeContinue
	NodeBreak
	NodeInclude
	NodeDeclaration
)

// Node is the tagged union over statement/top-level node kinds.
type Node struct {
	Kind           NodeKind
	Next, Prev     *Node
	Parent         *Node

	// NodeBlock: an ordered child list (Children..BackChild by Next) and
	// an ordered local-variable declaration list.
	Children  *Node
	BackChild *Node
	Vars      *Declaration
	BackVar   *Declaration

	// NodeIf / NodeWhile share Cond; NodeFor uses ForInit/ForCond/ForIncr.
	Cond *Expr

	ForInit *Expr
	ForCond *Expr
	ForIncr *Expr

	// Body is the single statement/block that follows If/While/For; the
	// parser accepts a block or any single statement there.
	Body *Node

	// NodeFunction
	FuncName   string
	Args       *Declaration
	SpecialRet *Expr // the `= expr;` short-return form; nil if a block body
	RetType    *Datatype
	StackSpace int // bytes, computed by the emitter's Pass 1

	// NodeExprStmt
	StmtExpr *Expr

	// NodeReturn
	RetVal *Expr

	// NodeDeclaration
	DeclName string
	DeclType *Datatype
}

// NewBlock returns an empty block node.
func NewBlock() *Node {
	return &Node{Kind: NodeBlock}
}

// AppendChild appends child to a block's child list in O(1) using the
// back-pointer, matching parse.h's NodeBlock_T bookkeeping. It does not
// touch the declaration list; declarations are added with AppendVar.
func (b *Node) AppendChild(child *Node) {
	child.Parent = b
	if b.Children == nil {
		b.Children = child
		b.BackChild = child
	} else {
		b.BackChild.Next = child
		child.Prev = b.BackChild
		b.BackChild = child
	}
}

// AppendVar appends a local declaration to a block's variable list.
func (b *Node) AppendVar(d *Declaration) {
	if b.Vars == nil {
		b.Vars = d
		b.BackVar = d
	} else {
		b.BackVar.Next = d
		b.BackVar = d
	}
}
