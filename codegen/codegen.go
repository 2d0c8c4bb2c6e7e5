// Package codegen implements the Spyre bytecode emitter: a two-pass
// AST-to-textual-assembly translation, grounded on original_source's
// codegen.c and spec.md 4.E.
package codegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/DavidWilson4242/spyre/ast"
	"github.com/DavidWilson4242/spyre/internal/spyreerr"
	"github.com/DavidWilson4242/spyre/lex"
	"github.com/DavidWilson4242/spyre/parse"
)

// emitter carries the running state of pass 2: the output buffer, the
// anonymous-label counter, and the db-section label tables for struct
// type names and cfunc names (used by ALLOC/CCALL operands).
type emitter struct {
	file string
	out  strings.Builder

	labelCounter int

	typeLabel  map[string]string
	cfuncLabel map[string]string

	// loopLabels tracks the (continue-target, break-target) pair of the
	// innermost enclosing while/for, consulted by NodeContinue/NodeBreak.
	loopLabels []loopFrame
}

type loopFrame struct {
	continueLabel string
	breakLabel    string
}

// Emit runs both passes over res and returns the generated textual
// assembly.
func Emit(file string, res *parse.Result) (string, error) {
	e := &emitter{
		file:       file,
		typeLabel:  make(map[string]string),
		cfuncLabel: make(map[string]string),
	}

	for fn := res.Root.Children; fn != nil; fn = fn.Next {
		if fn.Kind != ast.NodeFunction {
			continue
		}
		assignLocals(fn)
	}

	e.out.WriteString("JMP __ENTRY__\n")
	e.emitDataSection(res)

	for fn := res.Root.Children; fn != nil; fn = fn.Next {
		if fn.Kind != ast.NodeFunction {
			continue
		}
		if err := e.emitFunction(fn); err != nil {
			return "", err
		}
	}

	e.out.WriteString("__ENTRY__:\n")
	e.out.WriteString("CALL main 0\n")
	e.out.WriteString("HALT\n")

	return e.out.String(), nil
}

func (e *emitter) fail(line int, format string, args ...interface{}) error {
	return spyreerr.New(spyreerr.Assembly, e.file, line, format, args...)
}

// assignLocals is pass 1: arguments get slots 0..nargs-1 in order, then
// every declared local in the function's body gets the next free slot,
// walked in block/statement order including nested if/while/for bodies,
// matching spec.md 4.E's "recurse into the body block assigning further
// slots to declared local variables in block order".
func assignLocals(fn *ast.Node) {
	next := 0
	for d := fn.Args; d != nil; d = d.Next {
		d.LocalIndex = next
		next++
	}
	for d := fn.Vars; d != nil; d = d.Next {
		d.LocalIndex = next
		next++
	}
	for c := fn.Children; c != nil; c = c.Next {
		assignLocalsStmt(c, &next)
	}
	fn.StackSpace = next * 8
}

func assignLocalsStmt(n *ast.Node, next *int) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.NodeBlock:
		for d := n.Vars; d != nil; d = d.Next {
			d.LocalIndex = *next
			*next++
		}
		for c := n.Children; c != nil; c = c.Next {
			assignLocalsStmt(c, next)
		}
	case ast.NodeIf, ast.NodeWhile, ast.NodeFor:
		assignLocalsStmt(n.Body, next)
	}
}

// emitDataSection writes the null-terminated name of every user struct
// type and every cfunc as `db` directives, used by ALLOC/CCALL as operand
// strings. Names are sorted for deterministic output; hash.Table's
// iteration order is unspecified (spec.md 4.A). Struct entries carry a
// trailing member count so the VM's ALLOC can size a segment without a
// separate type registry (see asmgen's db-directive extension).
func (e *emitter) emitDataSection(res *parse.Result) {
	var typeNames []string
	res.UserTypes.Foreach(func(name string, _ interface{}) {
		typeNames = append(typeNames, name)
	})
	sort.Strings(typeNames)
	for _, name := range typeNames {
		label := "__type_" + name
		e.typeLabel[name] = label
		nmembers := 0
		if dt, ok := res.UserTypes.Get(name); ok {
			if d, ok := dt.(*ast.Datatype); ok && d.Struct != nil {
				nmembers = len(d.Struct.Order)
			}
		}
		fmt.Fprintf(&e.out, "%s: db %q %d\n", label, name, nmembers)
	}

	var cfuncNames []string
	res.CFunctions.Foreach(func(name string, _ interface{}) {
		cfuncNames = append(cfuncNames, name)
	})
	sort.Strings(cfuncNames)
	for _, name := range cfuncNames {
		label := "__cfunc_" + name
		e.cfuncLabel[name] = label
		fmt.Fprintf(&e.out, "%s: db %q 0\n", label, name)
	}
}

func (e *emitter) nextLabel() string {
	l := fmt.Sprintf("__L%d", e.labelCounter)
	e.labelCounter++
	return l
}

// emitFunction emits one function's prologue, body, and epilogue, per
// spec.md 4.E's function template.
func (e *emitter) emitFunction(fn *ast.Node) error {
	fmt.Fprintf(&e.out, "%s:\n", fn.FuncName)
	fmt.Fprintf(&e.out, "RESL %d\n", fn.StackSpace/8)

	i := 0
	for d := fn.Args; d != nil; d = d.Next {
		fmt.Fprintf(&e.out, "ARG %d\n", i)
		fmt.Fprintf(&e.out, "SVL %d\n", i)
		i++
	}

	retLabel := e.nextLabel()

	if fn.SpecialRet != nil {
		if err := e.emitExpr(fn.SpecialRet); err != nil {
			return err
		}
	} else {
		if err := e.emitStatements(fn.Children, retLabel); err != nil {
			return err
		}
	}

	fmt.Fprintf(&e.out, "%s:\n", retLabel)
	if fn.RetType != nil {
		e.out.WriteString("IRET\n")
	} else {
		e.out.WriteString("RET\n")
	}
	return nil
}

func (e *emitter) emitStatements(n *ast.Node, retLabel string) error {
	for node := n; node != nil; node = node.Next {
		if err := e.emitNode(node, retLabel); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) emitNode(n *ast.Node, retLabel string) error {
	switch n.Kind {
	case ast.NodeBlock:
		return e.emitStatements(n.Children, retLabel)

	case ast.NodeDeclaration:
		// Locals are reserved by RESL; nothing to emit at the declaration
		// site itself.
		return nil

	case ast.NodeExprStmt:
		if err := e.emitExpr(n.StmtExpr); err != nil {
			return err
		}
		// Expression-statements discard their value, except a call to a
		// void function/cfunc (leaves nothing on the stack to pop) or an
		// assignment (SVLS/SVMBR already consume both operands and leave
		// nothing; spec 4.E never states assignment yields a value).
		if n.StmtExpr.Kind == ast.ExprCall && n.StmtExpr.Resolved == nil {
			return nil
		}
		if n.StmtExpr.Kind == ast.ExprBinary && n.StmtExpr.BinOp == lex.OpCode('=') {
			return nil
		}
		e.out.WriteString("IPOP\n")
		return nil

	case ast.NodeReturn:
		if n.RetVal != nil {
			if err := e.emitExpr(n.RetVal); err != nil {
				return err
			}
		}
		fmt.Fprintf(&e.out, "JMP %s\n", retLabel)
		return nil

	case ast.NodeContinue:
		if len(e.loopLabels) == 0 {
			return e.fail(0, "continue outside of a loop")
		}
		fmt.Fprintf(&e.out, "JMP %s\n", e.loopLabels[len(e.loopLabels)-1].continueLabel)
		return nil

	case ast.NodeBreak:
		if len(e.loopLabels) == 0 {
			return e.fail(0, "break outside of a loop")
		}
		fmt.Fprintf(&e.out, "JMP %s\n", e.loopLabels[len(e.loopLabels)-1].breakLabel)
		return nil

	case ast.NodeIf:
		return e.emitIf(n, retLabel)

	case ast.NodeWhile:
		return e.emitWhile(n, retLabel)

	case ast.NodeFor:
		return e.emitFor(n, retLabel)

	default:
		return nil
	}
}

func (e *emitter) emitIf(n *ast.Node, retLabel string) error {
	negLabel := e.nextLabel()
	if err := e.emitExpr(n.Cond); err != nil {
		return err
	}
	e.out.WriteString("ITEST\n")
	fmt.Fprintf(&e.out, "JZ %s\n", negLabel)
	if err := e.emitNode(n.Body, retLabel); err != nil {
		return err
	}
	fmt.Fprintf(&e.out, "%s:\n", negLabel)
	return nil
}

func (e *emitter) emitWhile(n *ast.Node, retLabel string) error {
	top := e.nextLabel()
	bot := e.nextLabel()
	fmt.Fprintf(&e.out, "%s:\n", top)
	if err := e.emitExpr(n.Cond); err != nil {
		return err
	}
	e.out.WriteString("ITEST\n")
	fmt.Fprintf(&e.out, "JZ %s\n", bot)

	e.loopLabels = append(e.loopLabels, loopFrame{continueLabel: top, breakLabel: bot})
	err := e.emitNode(n.Body, retLabel)
	e.loopLabels = e.loopLabels[:len(e.loopLabels)-1]
	if err != nil {
		return err
	}

	fmt.Fprintf(&e.out, "JMP %s\n", top)
	fmt.Fprintf(&e.out, "%s:\n", bot)
	return nil
}

func (e *emitter) emitFor(n *ast.Node, retLabel string) error {
	if n.ForInit != nil {
		if err := e.emitExpr(n.ForInit); err != nil {
			return err
		}
		// An assignment (SVLS/SVMBR) leaves nothing to discard.
		if !(n.ForInit.Kind == ast.ExprBinary && n.ForInit.BinOp == lex.OpCode('=')) {
			e.out.WriteString("IPOP\n")
		}
	}

	top := e.nextLabel()
	bot := e.nextLabel()
	incrLabel := e.nextLabel()
	fmt.Fprintf(&e.out, "%s:\n", top)
	if n.ForCond != nil {
		if err := e.emitExpr(n.ForCond); err != nil {
			return err
		}
		e.out.WriteString("ITEST\n")
		fmt.Fprintf(&e.out, "JZ %s\n", bot)
	}

	// continue inside a `for` must still run the increment, so continue
	// jumps to incrLabel rather than straight back to top.
	e.loopLabels = append(e.loopLabels, loopFrame{continueLabel: incrLabel, breakLabel: bot})
	err := e.emitNode(n.Body, retLabel)
	e.loopLabels = e.loopLabels[:len(e.loopLabels)-1]
	if err != nil {
		return err
	}

	fmt.Fprintf(&e.out, "%s:\n", incrLabel)
	if n.ForIncr != nil {
		if err := e.emitExpr(n.ForIncr); err != nil {
			return err
		}
		if !(n.ForIncr.Kind == ast.ExprBinary && n.ForIncr.BinOp == lex.OpCode('=')) {
			e.out.WriteString("IPOP\n")
		}
	}
	fmt.Fprintf(&e.out, "JMP %s\n", top)
	fmt.Fprintf(&e.out, "%s:\n", bot)
	return nil
}

var arithOp = map[lex.OpCode]string{
	lex.OpCode('+'): "IADD",
	lex.OpCode('-'): "ISUB",
	lex.OpCode('*'): "IMUL",
	lex.OpCode('/'): "IDIV",
}

var unsupportedArith = map[lex.OpCode]string{
	lex.OpCode('%'):  "%",
	lex.OpCode('^'):  "^",
	lex.OpCode('|'):  "|",
	lex.OpCode('&'):  "&",
	lex.OpShr:        ">>",
	lex.OpShl:        "<<",
}

// emitExpr emits expr in value-producing (non-assignment-target) position,
// post-order, per spec.md 4.E's expression templates.
func (e *emitter) emitExpr(expr *ast.Expr) error {
	switch expr.Kind {
	case ast.ExprInteger:
		fmt.Fprintf(&e.out, "IPUSH %d\n", expr.IVal)
		return nil

	case ast.ExprFloat:
		fmt.Fprintf(&e.out, "IPUSH %s\n", formatFloatOperand(expr.FVal))
		return nil

	case ast.ExprIdentifier:
		if expr.Decl == nil {
			return e.fail(expr.Line, "identifier %q is not a loadable value", expr.Ident)
		}
		fmt.Fprintf(&e.out, "LDL %d\n", expr.Decl.LocalIndex)
		return nil

	case ast.ExprUnary:
		return e.emitUnary(expr)

	case ast.ExprBinary:
		return e.emitBinary(expr)

	case ast.ExprIndex:
		return e.fail(expr.Line, "array indexing has no corresponding VM opcode in this instruction set")

	case ast.ExprCall:
		return e.emitCall(expr)

	case ast.ExprNew:
		return e.emitNew(expr)
	}
	return e.fail(expr.Line, "unhandled expression kind in codegen")
}

func formatFloatOperand(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// emitUnary emits a unary expression. Neither negate nor logical-not has
// a dedicated VM opcode, so both desugar to an ISUB against an immediate,
// matching the "0 - x" / "1 - x" pattern already used for '!=' in
// emitBinary.
func (e *emitter) emitUnary(expr *ast.Expr) error {
	switch expr.UnaryOp {
	case lex.OpCode('-'):
		e.out.WriteString("IPUSH 0\n")
		if err := e.emitExpr(expr.UnaryOperand); err != nil {
			return err
		}
		e.out.WriteString("ISUB\n")
		return nil
	case lex.OpCode('!'):
		e.out.WriteString("IPUSH 1\n")
		if err := e.emitExpr(expr.UnaryOperand); err != nil {
			return err
		}
		e.out.WriteString("ISUB\n")
		return nil
	}
	return e.fail(expr.Line, "unsupported unary operator")
}

var compareFlagOp = map[lex.OpCode]string{
	lex.OpEQ: "FEQ",
	lex.OpLE: "FLE",
	lex.OpGE: "FGE",
	lex.OpCode('<'): "FLT",
	lex.OpCode('>'): "FGT",
}

// emitBinary dispatches a binary expression by operator category, per
// spec.md 4.E's expression-emission rules.
func (e *emitter) emitBinary(expr *ast.Expr) error {
	switch expr.BinOp {
	case lex.OpCode('='):
		return e.emitAssign(expr)

	case lex.OpCode('.'):
		if err := e.emitExpr(expr.Left); err != nil {
			return err
		}
		fmt.Fprintf(&e.out, "LDMBR %d\n", memberIndex(expr))
		return nil

	case lex.OpCode(','):
		if err := e.emitExpr(expr.Left); err != nil {
			return err
		}
		e.out.WriteString("IPOP\n")
		return e.emitExpr(expr.Right)

	case lex.OpNEQ:
		if err := e.emitExpr(expr.Left); err != nil {
			return err
		}
		if err := e.emitExpr(expr.Right); err != nil {
			return err
		}
		e.out.WriteString("ICMP\n")
		e.out.WriteString("IPUSH 1\n")
		e.out.WriteString("FEQ\n")
		e.out.WriteString("ISUB\n")
		return nil

	case lex.OpEQ, lex.OpLE, lex.OpGE, lex.OpCode('<'), lex.OpCode('>'):
		if err := e.emitExpr(expr.Left); err != nil {
			return err
		}
		if err := e.emitExpr(expr.Right); err != nil {
			return err
		}
		e.out.WriteString("ICMP\n")
		e.out.WriteString(compareFlagOp[expr.BinOp] + "\n")
		return nil

	case lex.OpLogAnd:
		// Both operands are already bool-typed (0/1): logical and is
		// multiplication in that domain.
		if err := e.emitExpr(expr.Left); err != nil {
			return err
		}
		if err := e.emitExpr(expr.Right); err != nil {
			return err
		}
		e.out.WriteString("IMUL\n")
		return nil

	case lex.OpLogOr:
		// a || b == (a + b) != 0; reuse the '!=' pattern against zero.
		if err := e.emitExpr(expr.Left); err != nil {
			return err
		}
		if err := e.emitExpr(expr.Right); err != nil {
			return err
		}
		e.out.WriteString("IADD\n")
		e.out.WriteString("IPUSH 0\n")
		e.out.WriteString("ICMP\n")
		e.out.WriteString("IPUSH 1\n")
		e.out.WriteString("FEQ\n")
		e.out.WriteString("ISUB\n")
		return nil

	default:
		if name, ok := unsupportedArith[expr.BinOp]; ok {
			return e.fail(expr.Line, "operator %q has no corresponding VM opcode", name)
		}
		mnem, ok := arithOp[expr.BinOp]
		if !ok {
			return e.fail(expr.Line, "unsupported binary operator in codegen")
		}
		if err := e.emitExpr(expr.Left); err != nil {
			return err
		}
		if err := e.emitExpr(expr.Right); err != nil {
			return err
		}
		e.out.WriteString(mnem + "\n")
		return nil
	}
}

// memberIndex looks up the struct-index of a '.' expression's right-hand
// member name against the left operand's resolved struct descriptor.
func memberIndex(expr *ast.Expr) int {
	decl := expr.Left.Resolved.Struct.Members[expr.Right.Ident]
	return decl.StructIndex
}

// emitAssign emits `lhs = rhs`, handling the two address-producing LHS
// forms (bare identifier, struct member) per spec.md 4.E.
func (e *emitter) emitAssign(expr *ast.Expr) error {
	lhs := expr.Left
	switch {
	case lhs.Kind == ast.ExprIdentifier:
		if lhs.Decl == nil {
			return e.fail(lhs.Line, "identifier %q is not assignable", lhs.Ident)
		}
		fmt.Fprintf(&e.out, "IPUSH %d\n", lhs.Decl.LocalIndex)
		if err := e.emitExpr(expr.Right); err != nil {
			return err
		}
		e.out.WriteString("SVLS\n")
		return nil

	case lhs.Kind == ast.ExprBinary && lhs.BinOp == lex.OpCode('.'):
		if err := e.emitExpr(lhs.Left); err != nil {
			return err
		}
		if err := e.emitExpr(expr.Right); err != nil {
			return err
		}
		fmt.Fprintf(&e.out, "SVMBR %d\n", memberIndex(lhs))
		return nil

	default:
		return e.fail(expr.Line, "left side of '=' is not assignable")
	}
}

// emitCall emits a call's arguments left-to-right, then CALL or CCALL
// depending on whether the callee resolved against the function or
// cfunction registry.
func (e *emitter) emitCall(expr *ast.Expr) error {
	if expr.Callee.Kind != ast.ExprIdentifier {
		return e.fail(expr.Line, "call target must be a plain function name")
	}
	name := expr.Callee.Ident
	args := ast.FlattenArgs(expr.Args)
	if expr.Args == nil {
		args = nil
	}
	for _, a := range args {
		if err := e.emitExpr(a); err != nil {
			return err
		}
	}
	if _, isCFunc := e.cfuncLabel[name]; isCFunc {
		fmt.Fprintf(&e.out, "CCALL %s %d\n", e.cfuncLabel[name], len(args))
		return nil
	}
	fmt.Fprintf(&e.out, "CALL %s %d\n", name, len(args))
	return nil
}

// emitNew emits `new T[e1]...[en]`: each dimension expression pushed in
// order, then ALLOC with the type's db label and the dimension count —
// the supplemented multi-dimensional-new feature from SPEC_FULL.md. The
// VM's ALLOC pops the dimensions and multiplies them into a flattened
// element count at run time.
func (e *emitter) emitNew(expr *ast.Expr) error {
	label, ok := e.typeLabel[expr.NewType.TypeName]
	if !ok {
		return e.fail(expr.Line, "unknown struct type %q in new expression", expr.NewType.TypeName)
	}
	ndims := 0
	for d := expr.ArrSize; d != nil; d = d.Next {
		if err := e.emitExpr(d); err != nil {
			return err
		}
		ndims++
	}
	fmt.Fprintf(&e.out, "ALLOC %s %d\n", label, ndims)
	return nil
}
