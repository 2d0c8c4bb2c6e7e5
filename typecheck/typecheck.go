// Package typecheck implements the Spyre type checker: a single AST walk
// that assigns a deep-copied resolved Datatype to every expression
// subtree and validates operator operands, calls, and conditions, grounded
// on original_source/src/typecheck.c.
package typecheck

import (
	"github.com/DavidWilson4242/spyre/ast"
	"github.com/DavidWilson4242/spyre/internal/spyreerr"
	"github.com/DavidWilson4242/spyre/lex"
	"github.com/DavidWilson4242/spyre/parse"
)

type scope struct {
	vars   map[string]*ast.Declaration
	parent *scope
}

func (s *scope) lookup(name string) (*ast.Declaration, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if d, ok := cur.vars[name]; ok {
			return d, true
		}
	}
	return nil, false
}

func scopeOf(decls *ast.Declaration, parent *scope) *scope {
	vars := make(map[string]*ast.Declaration)
	for d := decls; d != nil; d = d.Next {
		vars[d.Name] = d
	}
	return &scope{vars: vars, parent: parent}
}

// checker carries the symbol tables a declared identifier or call might
// resolve against, beyond local scope.
type checker struct {
	file       string
	functions  map[string]*ast.Datatype
	cfunctions map[string]*ast.Datatype
}

func tableToMap(t interface{ Foreach(func(string, interface{})) }) map[string]*ast.Datatype {
	m := make(map[string]*ast.Datatype)
	t.Foreach(func(k string, v interface{}) { m[k] = v.(*ast.Datatype) })
	return m
}

// Check type-checks every function in res, mutating the AST in place by
// filling Resolved fields.
func Check(file string, res *parse.Result) error {
	c := &checker{
		file:       file,
		functions:  tableToMap(res.Functions),
		cfunctions: tableToMap(res.CFunctions),
	}
	for fn := res.Root.Children; fn != nil; fn = fn.Next {
		if fn.Kind != ast.NodeFunction {
			continue
		}
		if err := c.checkFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) fail(line int, format string, args ...interface{}) error {
	return spyreerr.New(spyreerr.Type, c.file, line, format, args...)
}

func (c *checker) checkFunction(fn *ast.Node) error {
	argScope := scopeOf(fn.Args, nil)
	bodyScope := scopeOf(fn.Vars, argScope)

	if fn.SpecialRet != nil {
		if err := c.checkExpr(fn.SpecialRet, bodyScope); err != nil {
			return err
		}
		return c.checkReturnType(fn, fn.SpecialRet, fn.SpecialRet.Line)
	}

	return c.checkStatements(fn.Children, bodyScope, fn)
}

func (c *checker) checkReturnType(fn *ast.Node, val *ast.Expr, line int) error {
	if fn.RetType == nil {
		if val != nil {
			return c.fail(line, "returning a value from void function %q", fn.FuncName)
		}
		return nil
	}
	if val == nil {
		return c.fail(line, "function %q must return a value", fn.FuncName)
	}
	if !fn.RetType.StrictEqual(val.Resolved) {
		return c.fail(line, "return type mismatch in function %q", fn.FuncName)
	}
	return nil
}

func (c *checker) checkStatements(n *ast.Node, s *scope, fn *ast.Node) error {
	for node := n; node != nil; node = node.Next {
		if err := c.checkNode(node, s, fn); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) checkNode(n *ast.Node, s *scope, fn *ast.Node) error {
	switch n.Kind {
	case ast.NodeBlock:
		return c.checkStatements(n.Children, scopeOf(n.Vars, s), fn)
	case ast.NodeDeclaration:
		return nil
	case ast.NodeExprStmt:
		return c.checkExpr(n.StmtExpr, s)
	case ast.NodeReturn:
		line := 0
		if n.RetVal != nil {
			if err := c.checkExpr(n.RetVal, s); err != nil {
				return err
			}
			line = n.RetVal.Line
		}
		return c.checkReturnType(fn, n.RetVal, line)
	case ast.NodeContinue, ast.NodeBreak:
		return nil
	case ast.NodeIf:
		if err := c.checkExpr(n.Cond, s); err != nil {
			return err
		}
		if !isBool(n.Cond.Resolved) {
			return c.fail(n.Cond.Line, "if condition must be bool")
		}
		return c.checkBody(n.Body, s, fn)
	case ast.NodeWhile:
		if err := c.checkExpr(n.Cond, s); err != nil {
			return err
		}
		if !isBool(n.Cond.Resolved) {
			return c.fail(n.Cond.Line, "while condition must be bool")
		}
		return c.checkBody(n.Body, s, fn)
	case ast.NodeFor:
		if n.ForInit != nil {
			if err := c.checkExpr(n.ForInit, s); err != nil {
				return err
			}
		}
		if n.ForCond != nil {
			if err := c.checkExpr(n.ForCond, s); err != nil {
				return err
			}
			if !isBool(n.ForCond.Resolved) {
				return c.fail(n.ForCond.Line, "for condition must be bool")
			}
		}
		if n.ForIncr != nil {
			if err := c.checkExpr(n.ForIncr, s); err != nil {
				return err
			}
		}
		return c.checkBody(n.Body, s, fn)
	default:
		return nil
	}
}

func (c *checker) checkBody(body *ast.Node, s *scope, fn *ast.Node) error {
	if body == nil {
		return nil
	}
	return c.checkNode(body, s, fn)
}

func isBool(dt *ast.Datatype) bool {
	return dt != nil && dt.Kind == ast.DTPrimitive && dt.TypeName == "bool"
}

func isInt(dt *ast.Datatype) bool {
	return dt != nil && dt.Kind == ast.DTPrimitive && dt.TypeName == "int" && dt.ArrDim == 0
}

// checkExpr resolves expr's Resolved field (and recursively those of its
// subtree), per the per-kind rules of typecheck.c / spec.md 4.D.
func (c *checker) checkExpr(e *ast.Expr, s *scope) error {
	switch e.Kind {
	case ast.ExprInteger:
		e.Resolved = &ast.Datatype{TypeName: "int", Kind: ast.DTPrimitive, PrimSize: ast.SizeInt}
		return nil
	case ast.ExprFloat:
		e.Resolved = &ast.Datatype{TypeName: "float", Kind: ast.DTPrimitive, PrimSize: ast.SizeFloat}
		return nil
	case ast.ExprIdentifier:
		return c.checkIdentifier(e, s)
	case ast.ExprUnary:
		if err := c.checkExpr(e.UnaryOperand, s); err != nil {
			return err
		}
		e.Resolved = e.UnaryOperand.Resolved.DeepCopy()
		return nil
	case ast.ExprBinary:
		return c.checkBinary(e, s)
	case ast.ExprIndex:
		if err := c.checkExpr(e.Array, s); err != nil {
			return err
		}
		if err := c.checkExpr(e.Index, s); err != nil {
			return err
		}
		if !isInt(e.Index.Resolved) {
			return c.fail(e.Line, "index expression must be int")
		}
		if e.Array.Resolved == nil || e.Array.Resolved.ArrDim == 0 {
			return c.fail(e.Line, "cannot index a non-array type")
		}
		cp := e.Array.Resolved.DeepCopy()
		cp.ArrDim--
		e.Resolved = cp
		return nil
	case ast.ExprCall:
		return c.checkCall(e, s)
	case ast.ExprNew:
		for dim := e.ArrSize; dim != nil; dim = dim.Next {
			if err := c.checkExpr(dim, s); err != nil {
				return err
			}
			if !isInt(dim.Resolved) {
				return c.fail(dim.Line, "new[] dimension must be int")
			}
		}
		cp := e.NewType.DeepCopy()
		cp.ArrDim = e.ArrDim
		e.Resolved = cp
		return nil
	}
	return c.fail(e.Line, "unhandled expression kind")
}

func (c *checker) checkIdentifier(e *ast.Expr, s *scope) error {
	if decl, ok := s.lookup(e.Ident); ok {
		e.Resolved = decl.Type.DeepCopy()
		e.Decl = decl
		return nil
	}
	if dt, ok := c.functions[e.Ident]; ok {
		e.Resolved = dt.DeepCopy()
		return nil
	}
	if dt, ok := c.cfunctions[e.Ident]; ok {
		e.Resolved = dt.DeepCopy()
		return nil
	}
	return c.fail(e.Line, "undefined identifier %q", e.Ident)
}

func (c *checker) checkBinary(e *ast.Expr, s *scope) error {
	switch e.BinOp {
	case '.':
		if err := c.checkExpr(e.Left, s); err != nil {
			return err
		}
		if e.Left.Resolved == nil || e.Left.Resolved.Kind != ast.DTStruct {
			return c.fail(e.Line, "left of '.' must be a struct")
		}
		if e.Right.Kind != ast.ExprIdentifier {
			return c.fail(e.Line, "right of '.' must be an identifier")
		}
		member, ok := e.Left.Resolved.Struct.Members[e.Right.Ident]
		if !ok {
			return c.fail(e.Line, "no member %q on struct %q", e.Right.Ident, e.Left.Resolved.TypeName)
		}
		// spec.md 4.D: the right identifier's own Resolved is
		// deliberately left null; codegen must not query it.
		e.Resolved = member.Type.DeepCopy()
		return nil

	case '=':
		return c.checkAssignLike(e, s)

	case ',':
		if err := c.checkExpr(e.Left, s); err != nil {
			return err
		}
		if err := c.checkExpr(e.Right, s); err != nil {
			return err
		}
		e.Resolved = nil
		return nil
	}

	switch e.BinOp {
	case lex.OpEQ, lex.OpNEQ, lex.OpGE, lex.OpLE, '<', '>':
		if err := c.checkExpr(e.Left, s); err != nil {
			return err
		}
		if err := c.checkExpr(e.Right, s); err != nil {
			return err
		}
		if !e.Left.Resolved.StrictEqual(e.Right.Resolved) {
			return c.fail(e.Line, "comparison operands must have the same type")
		}
		e.Resolved = &ast.Datatype{TypeName: "bool", Kind: ast.DTPrimitive, PrimSize: ast.SizeBool}
		return nil
	case lex.OpLogAnd, lex.OpLogOr:
		if err := c.checkExpr(e.Left, s); err != nil {
			return err
		}
		if err := c.checkExpr(e.Right, s); err != nil {
			return err
		}
		if !isBool(e.Left.Resolved) || !isBool(e.Right.Resolved) {
			return c.fail(e.Line, "logical operator requires bool operands")
		}
		e.Resolved = &ast.Datatype{TypeName: "bool", Kind: ast.DTPrimitive, PrimSize: ast.SizeBool}
		return nil
	default:
		// Default arithmetic category (+ - * /) plus anything lexed but
		// unsupported by the VM (% ^ | & >> <<): type-check uniformly,
		// codegen rejects the unsupported opcodes.
		if err := c.checkExpr(e.Left, s); err != nil {
			return err
		}
		if err := c.checkExpr(e.Right, s); err != nil {
			return err
		}
		if !e.Left.Resolved.StrictEqual(e.Right.Resolved) {
			return c.fail(e.Line, "operand type mismatch")
		}
		e.Resolved = e.Left.Resolved.DeepCopy()
		return nil
	}
}

func (c *checker) checkAssignLike(e *ast.Expr, s *scope) error {
	if err := c.checkExpr(e.Left, s); err != nil {
		return err
	}
	if err := c.checkExpr(e.Right, s); err != nil {
		return err
	}
	if !e.Left.Resolved.StrictEqual(e.Right.Resolved) {
		return c.fail(e.Line, "assignment operand type mismatch")
	}
	e.Resolved = e.Left.Resolved.DeepCopy()
	return nil
}

func (c *checker) checkCall(e *ast.Expr, s *scope) error {
	if err := c.checkExpr(e.Callee, s); err != nil {
		return err
	}
	if e.Callee.Resolved == nil || e.Callee.Resolved.Kind != ast.DTFunction {
		return c.fail(e.Line, "call target is not a function")
	}
	fd := e.Callee.Resolved.Func

	args := ast.FlattenArgs(e.Args)
	if e.Args == nil {
		args = nil
	}
	if len(args) != fd.NArgs {
		return c.fail(e.Line, "wrong number of arguments: want %d got %d", fd.NArgs, len(args))
	}
	argDecl := fd.Arguments
	for _, a := range args {
		if err := c.checkExpr(a, s); err != nil {
			return err
		}
		if !a.Resolved.StrictEqual(argDecl.Type) {
			return c.fail(a.Line, "argument type mismatch for parameter %q", argDecl.Name)
		}
		argDecl = argDecl.Next
	}
	e.Resolved = fd.ReturnType.DeepCopy()
	return nil
}
