package parse

import (
	"github.com/DavidWilson4242/spyre/ast"
	"github.com/DavidWilson4242/spyre/lex"
)

// opFrame is an entry on the shunting-yard operator stack: either a real
// operator (with its table entry) or the '(' sentinel used to bound a
// parenthesized group, per spec.md 4.C.
type opFrame struct {
	op        lex.OpCode
	info      opInfo
	sentinel  bool
	line      int
}

// parseExpressionUntil parses an expression using the two-stack
// shunting-yard algorithm (an operand stack of partially-built ast.Expr
// trees, an operator stack of opFrames), stopping when it reaches `stop`
// at the top level (no pending '(' sentinel). This plays the role of
// spec.md 4.C's "mark token": the loop's own bracket-depth bookkeeping
// (the sentinel stack) finds the natural terminator instead of a separate
// token-stream prescan.
func (p *parser) parseExpressionUntil(stop lex.OpCode) (*ast.Expr, error) {
	var operands []*ast.Expr
	var operators []opFrame
	expectOperand := true

	combine := func() error {
		top := operators[len(operators)-1]
		operators = operators[:len(operators)-1]

		if top.info.arity == unary {
			if len(operands) < 1 {
				return p.fail("malformed unary expression")
			}
			operand := operands[len(operands)-1]
			operands = operands[:len(operands)-1]
			realOp := lex.OpCode('-')
			if top.op == specoNot {
				realOp = '!'
			}
			operands = append(operands, ast.Unary(top.line, realOp, operand))
			return nil
		}

		if len(operands) < 2 {
			return p.fail("malformed binary expression")
		}
		right := operands[len(operands)-1]
		left := operands[len(operands)-2]
		operands = operands[:len(operands)-2]

		if baseOp, ok := compoundAssignBase[top.op]; ok {
			// Desugar `x OP= y` into `x = x OP y`.
			operands = append(operands, ast.Binary(top.line, '=', left, ast.Binary(top.line, baseOp, cloneLeaf(left), right)))
			return nil
		}

		operands = append(operands, ast.Binary(top.line, top.op, left, right))
		return nil
	}

	for {
		t := p.cur()

		if expectOperand {
			if t == nil {
				return nil, p.fail("unexpected end of input in expression")
			}
			switch {
			case t.Kind == lex.Operator && t.OVal == '(':
				operators = append(operators, opFrame{op: '(', sentinel: true, line: t.Line})
				p.advance()
			case t.Kind == lex.Operator && t.OVal == '-':
				operators = append(operators, opFrame{op: specoNeg, info: opTable[specoNeg], line: t.Line})
				p.advance()
			case t.Kind == lex.Operator && t.OVal == '!':
				operators = append(operators, opFrame{op: specoNot, info: opTable[specoNot], line: t.Line})
				p.advance()
			case t.Kind == lex.Identifier && t.SVal == "new":
				expr, err := p.parseNewExpression()
				if err != nil {
					return nil, err
				}
				operands = append(operands, expr)
				expectOperand = false
			case t.Kind == lex.Integer:
				operands = append(operands, ast.Integer(t.Line, t.IVal))
				p.advance()
				expectOperand = false
			case t.Kind == lex.Character:
				operands = append(operands, ast.Integer(t.Line, t.IVal))
				p.advance()
				expectOperand = false
			case t.Kind == lex.Float:
				operands = append(operands, ast.FloatLit(t.Line, t.FVal))
				p.advance()
				expectOperand = false
			case t.Kind == lex.Identifier:
				operands = append(operands, ast.Identifier(t.Line, t.SVal))
				p.advance()
				expectOperand = false
			default:
				return nil, p.fail("expected expression, got %q", t.String())
			}
			continue
		}

		// expectOperand == false: looking for a postfix form, a binary
		// operator, a closing sentinel, or the stop terminator.
		atTopLevel := !hasSentinel(operators)
		if atTopLevel && t != nil && t.Kind == lex.Operator && t.OVal == stop {
			break
		}
		if t == nil {
			break
		}

		switch {
		case t.Kind == lex.Operator && t.OVal == '(':
			callee := operands[len(operands)-1]
			operands = operands[:len(operands)-1]
			p.advance()
			var args *ast.Expr
			if !p.isOp(')') {
				a, err := p.parseExpressionUntil(')')
				if err != nil {
					return nil, err
				}
				args = a
			}
			if err := p.expectOp(')'); err != nil {
				return nil, err
			}
			operands = append(operands, ast.Call(t.Line, callee, args))

		case t.Kind == lex.Operator && t.OVal == '[':
			array := operands[len(operands)-1]
			operands = operands[:len(operands)-1]
			p.advance()
			idx, err := p.parseExpressionUntil(']')
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(']'); err != nil {
				return nil, err
			}
			operands = append(operands, ast.Index(t.Line, array, idx))

		case t.Kind == lex.Operator && t.OVal == '.':
			left := operands[len(operands)-1]
			operands = operands[:len(operands)-1]
			p.advance()
			name, err := p.expectIdentifier()
			if err != nil {
				return nil, err
			}
			right := ast.Identifier(t.Line, name)
			right.Leaf = ast.LeafRight
			operands = append(operands, ast.Binary(t.Line, '.', left, right))

		case t.Kind == lex.Operator && t.OVal == ')':
			if !hasSentinel(operators) {
				return nil, p.fail("mismatched parentheses")
			}
			for !operators[len(operators)-1].sentinel {
				if err := combine(); err != nil {
					return nil, err
				}
			}
			operators = operators[:len(operators)-1] // discard sentinel
			p.advance()

		default:
			info, ok := opTable[t.OVal]
			if !ok || t.Kind != lex.Operator || info.arity != binary {
				return nil, p.fail("unexpected token %q in expression", t.String())
			}
			for len(operators) > 0 && !operators[len(operators)-1].sentinel {
				top := operators[len(operators)-1]
				if top.info.prec > info.prec || (top.info.prec == info.prec && !info.rightAssoc) {
					if err := combine(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
			operators = append(operators, opFrame{op: t.OVal, info: info, line: t.Line})
			p.advance()
			expectOperand = true
		}
	}

	for len(operators) > 0 {
		if operators[len(operators)-1].sentinel {
			return nil, p.fail("mismatched parentheses")
		}
		if err := combine(); err != nil {
			return nil, err
		}
	}

	if len(operands) != 1 {
		return nil, p.fail("malformed expression")
	}
	return operands[0], nil
}

func hasSentinel(operators []opFrame) bool {
	for _, f := range operators {
		if f.sentinel {
			return true
		}
	}
	return false
}

// cloneLeaf makes a shallow structural copy of an already-parsed operand
// so compound-assignment desugaring (`x += y` -> `x = x + y`) doesn't let
// the same *ast.Expr node appear twice in the tree with two different
// parents.
func cloneLeaf(e *ast.Expr) *ast.Expr {
	cp := *e
	return &cp
}

// parseNewExpression parses `new TYPE[e1][e2]...`.
func (p *parser) parseNewExpression() (*ast.Expr, error) {
	line := p.cur().Line
	p.advance() // "new"
	dt, err := p.parseType()
	if err != nil {
		return nil, err
	}

	var head, tail *ast.Expr
	for p.isOp('[') {
		p.advance()
		dim, err := p.parseExpressionUntil(']')
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(']'); err != nil {
			return nil, err
		}
		if head == nil {
			head, tail = dim, dim
		} else {
			tail.Next = dim
			tail = dim
		}
	}

	return ast.New(line, dt, head), nil
}
