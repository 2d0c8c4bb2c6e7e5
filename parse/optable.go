package parse

import "github.com/DavidWilson4242/spyre/lex"

// arity distinguishes unary/binary operators in the precedence table. The
// two pseudo-operators (call, index) are binary in tree-shape (callee+args,
// array+index) and have table entries under opcodes the lexer never
// produces, but the parser does not push them: a `(` or `[` following an
// operand is handled directly in parseExpressionUntil and binds to that
// operand at once.
type arity int

const (
	unary arity = iota
	binary
)

type opInfo struct {
	prec       int
	rightAssoc bool
	arity      arity
}

// Pseudo-operator codes, analogous to SPECO_CALL / SPECO_INDEX: never
// produced by the lexer. specoNeg/specoNot are pushed by the parser for a
// prefix '-'/'!'; specoCall/specoIndex are never pushed.
const (
	specoCall  lex.OpCode = 0x200 + iota
	specoIndex
	specoNeg // unary minus, disambiguated from binary '-' during parsing
	specoNot // unary '!'
)

// precedence table, low to high. Comma binds loosest so it can thread an
// entire argument list; postfix call/index/member bind tightest.
var opTable = map[lex.OpCode]opInfo{
	',': {prec: 1, rightAssoc: false, arity: binary},

	'=':          {prec: 2, rightAssoc: true, arity: binary},
	lex.OpIncBy:  {prec: 2, rightAssoc: true, arity: binary},
	lex.OpDecBy:  {prec: 2, rightAssoc: true, arity: binary},
	lex.OpMulBy:  {prec: 2, rightAssoc: true, arity: binary},
	lex.OpDivBy:  {prec: 2, rightAssoc: true, arity: binary},
	lex.OpModBy:  {prec: 2, rightAssoc: true, arity: binary},
	lex.OpXorBy:  {prec: 2, rightAssoc: true, arity: binary},
	lex.OpOrBy:   {prec: 2, rightAssoc: true, arity: binary},
	lex.OpAndBy:  {prec: 2, rightAssoc: true, arity: binary},
	lex.OpShrBy:  {prec: 2, rightAssoc: true, arity: binary},
	lex.OpShlBy:  {prec: 2, rightAssoc: true, arity: binary},

	lex.OpLogOr:  {prec: 3, rightAssoc: false, arity: binary},
	lex.OpLogAnd: {prec: 4, rightAssoc: false, arity: binary},

	lex.OpEQ:  {prec: 5, rightAssoc: false, arity: binary},
	lex.OpNEQ: {prec: 5, rightAssoc: false, arity: binary},

	'<':        {prec: 6, rightAssoc: false, arity: binary},
	'>':        {prec: 6, rightAssoc: false, arity: binary},
	lex.OpLE:   {prec: 6, rightAssoc: false, arity: binary},
	lex.OpGE:   {prec: 6, rightAssoc: false, arity: binary},

	'+': {prec: 7, rightAssoc: false, arity: binary},
	'-': {prec: 7, rightAssoc: false, arity: binary},

	'*': {prec: 8, rightAssoc: false, arity: binary},
	'/': {prec: 8, rightAssoc: false, arity: binary},
	'%': {prec: 8, rightAssoc: false, arity: binary},

	// Lexed and parsed for fidelity with lex.c's operator table, but
	// rejected by the emitter: the VM instruction set (spec.md 4.G) has no
	// bitwise/modulo/shift opcodes, only IADD/ISUB/IMUL/IDIV.
	'^':       {prec: 7, rightAssoc: false, arity: binary},
	'|':       {prec: 7, rightAssoc: false, arity: binary},
	'&':       {prec: 7, rightAssoc: false, arity: binary},
	lex.OpShr: {prec: 7, rightAssoc: false, arity: binary},
	lex.OpShl: {prec: 7, rightAssoc: false, arity: binary},

	specoNeg: {prec: 9, rightAssoc: true, arity: unary},
	specoNot: {prec: 9, rightAssoc: true, arity: unary},

	'.':        {prec: 10, rightAssoc: false, arity: binary},
	specoCall:  {prec: 10, rightAssoc: false, arity: binary},
	specoIndex: {prec: 10, rightAssoc: false, arity: binary},
}

// compoundAssignBase maps a compound-assignment opcode to the plain binary
// operator it desugars against, per SPEC_FULL.md's "compound assignment
// operators" supplement: `x OP= y` becomes `x = x OP y`.
var compoundAssignBase = map[lex.OpCode]lex.OpCode{
	lex.OpIncBy: '+',
	lex.OpDecBy: '-',
	lex.OpMulBy: '*',
	lex.OpDivBy: '/',
	lex.OpModBy: '%',
	lex.OpXorBy: '^',
	lex.OpOrBy:  '|',
	lex.OpAndBy: '&',
	lex.OpShrBy: lex.OpShr,
	lex.OpShlBy: lex.OpShl,
}
