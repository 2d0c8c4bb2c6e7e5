// Package parse implements the Spyre parser: token stream to AST, using a
// two-phase shunting-yard algorithm for expressions (expr.go) and recursive
// top-level dispatch for statements, grounded on original_source/src/parse.c
// and parse.h.
package parse

import (
	"github.com/DavidWilson4242/spyre/ast"
	"github.com/DavidWilson4242/spyre/hash"
	"github.com/DavidWilson4242/spyre/internal/spyreerr"
	"github.com/DavidWilson4242/spyre/lex"
)

// Builtins holds the four primitive datatype singletons, shared by every
// declaration and literal of that primitive kind.
type Builtins struct {
	Int   *ast.Datatype
	Float *ast.Datatype
	Char  *ast.Datatype
	Bool  *ast.Datatype
}

func newBuiltins() *Builtins {
	return &Builtins{
		Int:   &ast.Datatype{TypeName: "int", Kind: ast.DTPrimitive, PrimSize: ast.SizeInt},
		Float: &ast.Datatype{TypeName: "float", Kind: ast.DTPrimitive, PrimSize: ast.SizeFloat},
		Char:  &ast.Datatype{TypeName: "char", Kind: ast.DTPrimitive, PrimSize: ast.SizeChar},
		Bool:  &ast.Datatype{TypeName: "bool", Kind: ast.DTPrimitive, PrimSize: ast.SizeBool},
	}
}

// Result is everything the type checker and emitter need: the AST root plus
// the symbol tables populated while parsing.
type Result struct {
	Root        *ast.Node
	Builtins    *Builtins
	UserTypes   *hash.Table // name -> *ast.Datatype (DTStruct)
	Functions   *hash.Table // name -> *ast.Datatype (DTFunction)
	CFunctions  *hash.Table // name -> *ast.Datatype (DTFunction)
}

type parser struct {
	file   string
	toks   []*lex.Token
	pos    int
	mark   int // unused; parseExpressionUntil bounds subexpressions by its stop token

	builtin    *Builtins
	usertypes  *hash.Table
	functions  *hash.Table
	cfunctions *hash.Table

	root  *ast.Node
	block *ast.Node
}

// File parses filename's source text into a Result.
func File(filename string) (*Result, error) {
	head, err := lex.File(filename)
	if err != nil {
		return nil, err
	}
	return fromTokens(filename, head)
}

// Source parses in-memory source text, attributing diagnostics to
// filename.
func Source(filename, src string) (*Result, error) {
	head, err := lex.Source(filename, src)
	if err != nil {
		return nil, err
	}
	return fromTokens(filename, head)
}

func fromTokens(filename string, head *lex.Token) (*Result, error) {
	p := &parser{
		file:       filename,
		toks:       lex.ToSlice(head),
		builtin:    newBuiltins(),
		usertypes:  hash.New(),
		functions:  hash.New(),
		cfunctions: hash.New(),
		root:       ast.NewBlock(),
	}
	p.block = p.root

	if err := p.parseProgram(); err != nil {
		return nil, err
	}

	return &Result{
		Root:       p.root,
		Builtins:   p.builtin,
		UserTypes:  p.usertypes,
		Functions:  p.functions,
		CFunctions: p.cfunctions,
	}, nil
}

func (p *parser) fail(format string, args ...interface{}) error {
	line := 0
	if p.cur() != nil {
		line = p.cur().Line
	}
	return spyreerr.New(spyreerr.Parse, p.file, line, format, args...)
}

func (p *parser) cur() *lex.Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return nil
}

func (p *parser) at(offset int) *lex.Token {
	idx := p.pos + offset
	if idx < len(p.toks) {
		return p.toks[idx]
	}
	return nil
}

func (p *parser) advance() *lex.Token {
	t := p.cur()
	if t != nil {
		p.pos++
	}
	return t
}

func (p *parser) isOp(code lex.OpCode) bool {
	t := p.cur()
	return t != nil && t.Kind == lex.Operator && t.OVal == code
}

func (p *parser) expectOp(code lex.OpCode) error {
	if !p.isOp(code) {
		return p.fail("expected operator %q", string(rune(code)))
	}
	p.advance()
	return nil
}

func (p *parser) expectIdentifier() (string, error) {
	t := p.cur()
	if t == nil || t.Kind != lex.Identifier {
		return "", p.fail("expected identifier")
	}
	p.advance()
	return t.SVal, nil
}

// parseProgram parses the top level: a sequence of struct declarations,
// function declarations, cfunc declarations, and any other statement,
// all living in the synthetic root block.
func (p *parser) parseProgram() error {
	for p.cur() != nil {
		node, err := p.parseTopLevel()
		if err != nil {
			return err
		}
		if node != nil {
			p.root.AppendChild(node)
		}
	}
	return nil
}

func (p *parser) parseTopLevel() (*ast.Node, error) {
	t := p.cur()
	switch {
	case t.Kind == lex.Identifier && p.at(1) != nil && p.at(1).Kind == lex.Operator && p.at(1).OVal == ':' &&
		p.at(2) != nil && p.at(2).Kind == lex.Identifier && p.at(2).SVal == "struct":
		return p.parseStructDecl()
	case t.Kind == lex.Identifier && t.SVal == "func":
		return p.parseFunctionDecl()
	case t.Kind == lex.Identifier && t.SVal == "cfunc":
		return p.parseCFuncDecl()
	default:
		return p.parseStatement()
	}
}

// parseType parses a type name (builtin or user struct) followed by zero
// or more [] suffixes.
func (p *parser) parseType() (*ast.Datatype, error) {
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}

	var base *ast.Datatype
	switch name {
	case "int":
		base = p.builtin.Int
	case "float":
		base = p.builtin.Float
	case "char":
		base = p.builtin.Char
	case "bool":
		base = p.builtin.Bool
	case "void":
		return nil, nil
	default:
		v, ok := p.usertypes.Get(name)
		if !ok {
			return nil, p.fail("undefined type %q", name)
		}
		base = v.(*ast.Datatype)
	}

	// Only an empty "[]" pair is a type suffix; "[" followed by anything
	// else is left for the caller (e.g. a `new T[e]` dimension).
	arrdim := uint(0)
	for p.isOp('[') && p.at(1) != nil && p.at(1).Kind == lex.Operator && p.at(1).OVal == ']' {
		p.advance()
		if err := p.expectOp(']'); err != nil {
			return nil, err
		}
		arrdim++
	}
	if arrdim == 0 {
		return base, nil
	}
	cp := *base
	cp.ArrDim = base.ArrDim + arrdim
	return &cp, nil
}

func (p *parser) parseStructDecl() (*ast.Node, error) {
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(':'); err != nil {
		return nil, err
	}
	if _, err := p.expectIdentifier(); err != nil { // "struct"
		return nil, err
	}
	if err := p.expectOp('{'); err != nil {
		return nil, err
	}

	desc := ast.NewStructDescriptor()
	dt := &ast.Datatype{TypeName: name, Kind: ast.DTStruct, Struct: desc}
	p.usertypes.Insert(name, dt)

	for !p.isOp('}') {
		memberName, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(':'); err != nil {
			return nil, err
		}
		memberType, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(';'); err != nil {
			return nil, err
		}
		if _, ok := desc.AddMember(memberName, memberType); !ok {
			return nil, p.fail("duplicate member %q in struct %q", memberName, name)
		}
	}
	if err := p.expectOp('}'); err != nil {
		return nil, err
	}

	// Struct declarations don't themselves become AST statement nodes;
	// they only populate the user-types registry.
	return nil, nil
}

func (p *parser) parseArgList() (*ast.Declaration, int, error) {
	if err := p.expectOp('('); err != nil {
		return nil, 0, err
	}
	var head, tail *ast.Declaration
	n := 0
	for !p.isOp(')') {
		if n > 0 {
			if err := p.expectOp(','); err != nil {
				return nil, 0, err
			}
		}
		name, err := p.expectIdentifier()
		if err != nil {
			return nil, 0, err
		}
		if err := p.expectOp(':'); err != nil {
			return nil, 0, err
		}
		dt, err := p.parseType()
		if err != nil {
			return nil, 0, err
		}
		decl := &ast.Declaration{Name: name, Type: dt, LocalIndex: n}
		if head == nil {
			head, tail = decl, decl
		} else {
			tail.Next = decl
			tail = decl
		}
		n++
	}
	if err := p.expectOp(')'); err != nil {
		return nil, 0, err
	}
	return head, n, nil
}

func (p *parser) parseFunctionDecl() (*ast.Node, error) {
	p.advance() // "func"
	if p.block != p.root {
		return nil, p.fail("functions may not be nested")
	}
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	args, nargs, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(lex.OpArrow); err != nil {
		return nil, err
	}
	rettype, err := p.parseType()
	if err != nil {
		return nil, err
	}

	fd := &ast.FunctionDescriptor{Arguments: args, ReturnType: rettype, NArgs: nargs}
	p.functions.Insert(name, &ast.Datatype{Kind: ast.DTFunction, Func: fd})

	fn := &ast.Node{Kind: ast.NodeFunction, FuncName: name, Args: args, RetType: rettype}

	if p.isOp('=') {
		p.advance()
		expr, err := p.parseExpressionUntil(';')
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(';'); err != nil {
			return nil, err
		}
		fn.SpecialRet = expr
		return fn, nil
	}

	body, err := p.parseBlock(args)
	if err != nil {
		return nil, err
	}
	fn.Children = body.Children
	fn.BackChild = body.BackChild
	fn.Vars = body.Vars
	fn.BackVar = body.BackVar
	return fn, nil
}

func (p *parser) parseCFuncDecl() (*ast.Node, error) {
	p.advance() // "cfunc"
	if p.block != p.root {
		return nil, p.fail("cfunc must be declared at global scope")
	}
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	args, nargs, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(lex.OpArrow); err != nil {
		return nil, err
	}
	rettype, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(';'); err != nil {
		return nil, err
	}

	fd := &ast.FunctionDescriptor{Arguments: args, ReturnType: rettype, NArgs: nargs}
	p.cfunctions.Insert(name, &ast.Datatype{Kind: ast.DTFunction, Func: fd})
	return nil, nil
}

// parseBlock parses a `{ ... }` block. preVars (e.g. a function's
// arguments) is not added to the block's local variable list; arguments
// stay on the function node's Args.
func (p *parser) parseBlock(preVars *ast.Declaration) (*ast.Node, error) {
	if err := p.expectOp('{'); err != nil {
		return nil, err
	}
	block := ast.NewBlock()
	for d := preVars; d != nil; d = d.Next {
		// Arguments are visible in the function body's scope lookup but
		// are not part of the block's own local-index assignment pass;
		// see codegen's Pass 1.
	}

	prevBlock := p.block
	p.block = block
	defer func() { p.block = prevBlock }()

	for !p.isOp('}') {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			block.AppendChild(stmt)
		}
	}
	if err := p.expectOp('}'); err != nil {
		return nil, err
	}
	return block, nil
}

// parseControlledStatement parses the single statement that follows
// if/while/for: either a block or any single statement (an expression
// statement, a return, a declaration, a nested if, ...).
func (p *parser) parseControlledStatement() (*ast.Node, error) {
	if p.isOp('{') {
		return p.parseBlock(nil)
	}
	return p.parseStatement()
}

func (p *parser) parseStatement() (*ast.Node, error) {
	t := p.cur()
	if t == nil {
		return nil, p.fail("unexpected end of input")
	}

	switch t.Kind {
	case lex.KeywordIf:
		return p.parseIf()
	case lex.KeywordWhile:
		return p.parseWhile()
	case lex.KeywordReturn:
		return p.parseReturn()
	case lex.KeywordContinue:
		p.advance()
		if err := p.expectOp(';'); err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.NodeContinue}, nil
	case lex.KeywordBreak:
		p.advance()
		if err := p.expectOp(';'); err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.NodeBreak}, nil
	case lex.KeywordDo:
		return nil, p.fail("`do` is lexed as a reserved word but has no statement form in this language")
	}

	if t.Kind == lex.Identifier && t.SVal == "for" {
		return p.parseFor()
	}

	if p.isOp('{') {
		return p.parseBlock(nil)
	}

	// Disambiguate `name: type;` declarations from expression statements:
	// both start with an identifier.
	if t.Kind == lex.Identifier && p.at(1) != nil && p.at(1).Kind == lex.Operator && p.at(1).OVal == ':' {
		return p.parseDeclaration()
	}

	return p.parseExprStatement()
}

func (p *parser) parseDeclaration() (*ast.Node, error) {
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(':'); err != nil {
		return nil, err
	}
	dt, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(';'); err != nil {
		return nil, err
	}

	decl := &ast.Declaration{Name: name, Type: dt}
	p.block.AppendVar(decl)

	return &ast.Node{Kind: ast.NodeDeclaration, DeclName: name, DeclType: dt}, nil
}

func (p *parser) parseExprStatement() (*ast.Node, error) {
	expr, err := p.parseExpressionUntil(';')
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(';'); err != nil {
		return nil, err
	}
	expr.NodeParent = nil // set below once the Node exists
	n := &ast.Node{Kind: ast.NodeExprStmt, StmtExpr: expr}
	expr.NodeParent = n
	return n, nil
}

func (p *parser) parseIf() (*ast.Node, error) {
	p.advance()
	if err := p.expectOp('('); err != nil {
		return nil, err
	}
	cond, err := p.parseExpressionUntil(')')
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(')'); err != nil {
		return nil, err
	}
	body, err := p.parseControlledStatement()
	if err != nil {
		return nil, err
	}
	n := &ast.Node{Kind: ast.NodeIf, Cond: cond, Body: body}
	cond.NodeParent = n
	return n, nil
}

func (p *parser) parseWhile() (*ast.Node, error) {
	p.advance()
	if err := p.expectOp('('); err != nil {
		return nil, err
	}
	cond, err := p.parseExpressionUntil(')')
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(')'); err != nil {
		return nil, err
	}
	body, err := p.parseControlledStatement()
	if err != nil {
		return nil, err
	}
	n := &ast.Node{Kind: ast.NodeWhile, Cond: cond, Body: body}
	cond.NodeParent = n
	return n, nil
}

func (p *parser) parseFor() (*ast.Node, error) {
	p.advance() // "for"
	if err := p.expectOp('('); err != nil {
		return nil, err
	}

	var init *ast.Expr
	if !p.isOp(';') {
		e, err := p.parseExpressionUntil(';')
		if err != nil {
			return nil, err
		}
		init = e
	}
	if err := p.expectOp(';'); err != nil {
		return nil, err
	}

	var cond *ast.Expr
	if !p.isOp(';') {
		e, err := p.parseExpressionUntil(';')
		if err != nil {
			return nil, err
		}
		cond = e
	}
	if err := p.expectOp(';'); err != nil {
		return nil, err
	}

	var incr *ast.Expr
	if !p.isOp(')') {
		e, err := p.parseExpressionUntil(')')
		if err != nil {
			return nil, err
		}
		incr = e
	}
	if err := p.expectOp(')'); err != nil {
		return nil, err
	}

	body, err := p.parseControlledStatement()
	if err != nil {
		return nil, err
	}
	n := &ast.Node{Kind: ast.NodeFor, ForInit: init, ForCond: cond, ForIncr: incr, Body: body}
	if cond != nil {
		cond.NodeParent = n
	}
	return n, nil
}

func (p *parser) parseReturn() (*ast.Node, error) {
	p.advance()
	if p.isOp(';') {
		p.advance()
		return &ast.Node{Kind: ast.NodeReturn}, nil
	}
	expr, err := p.parseExpressionUntil(';')
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(';'); err != nil {
		return nil, err
	}
	n := &ast.Node{Kind: ast.NodeReturn, RetVal: expr}
	expr.NodeParent = n
	return n, nil
}
