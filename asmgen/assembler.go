package asmgen

import (
	"math"
	"strconv"
	"strings"

	"github.com/DavidWilson4242/spyre/internal/spyreerr"
	"github.com/DavidWilson4242/spyre/lex"
)

// growBuffer is a manually-managed geometrically-growing byte buffer
// (capacity -> 2*capacity+2), matching spec.md 4.F's stated growth policy
// instead of relying on Go's own slice-growth heuristics.
type growBuffer struct {
	buf []byte
	len int
}

func newGrowBuffer() *growBuffer {
	return &growBuffer{buf: make([]byte, 16)}
}

func (g *growBuffer) ensure(n int) {
	for g.len+n > len(g.buf) {
		next := make([]byte, len(g.buf)*2+2)
		copy(next, g.buf[:g.len])
		g.buf = next
	}
}

func (g *growBuffer) WriteByte(b byte) {
	g.ensure(1)
	g.buf[g.len] = b
	g.len++
}

func (g *growBuffer) Write(p []byte) {
	g.ensure(len(p))
	copy(g.buf[g.len:], p)
	g.len += len(p)
}

func (g *growBuffer) bytes() []byte {
	return g.buf[:g.len]
}

func putLE64(v uint64) [8]byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

type patch struct {
	offset int
	label  string
	line   int
}

type assembler struct {
	file string
	toks []*lex.Token
	pos  int

	out     *growBuffer
	labels  map[string]int
	patches []patch
}

// Assemble parses textual assembly (the output of codegen.Emit, or
// hand-written assembly) into a bytecode image.
func Assemble(file, src string) ([]byte, error) {
	head, err := lex.Source(file, src)
	if err != nil {
		return nil, err
	}
	a := &assembler{
		file:   file,
		toks:   lex.ToSlice(head),
		out:    newGrowBuffer(),
		labels: make(map[string]int),
	}
	if err := a.run(); err != nil {
		return nil, err
	}
	if err := a.backfill(); err != nil {
		return nil, err
	}
	return a.out.bytes(), nil
}

func (a *assembler) fail(line int, format string, args ...interface{}) error {
	return spyreerr.New(spyreerr.Assembly, a.file, line, format, args...)
}

func (a *assembler) cur() *lex.Token {
	if a.pos < len(a.toks) {
		return a.toks[a.pos]
	}
	return nil
}

func (a *assembler) advance() *lex.Token {
	t := a.cur()
	if t != nil {
		a.pos++
	}
	return t
}

func (a *assembler) run() error {
	for a.cur() != nil {
		t := a.cur()
		if t.Kind != lex.Identifier {
			return a.fail(t.Line, "expected mnemonic or label, got %q", t.String())
		}

		if next := a.peekColon(); next {
			if err := a.emitLabelOrData(t); err != nil {
				return err
			}
			continue
		}

		if err := a.emitInstruction(t); err != nil {
			return err
		}
	}
	return nil
}

// peekColon reports whether the current identifier token is immediately
// followed by ':', the label-definition form.
func (a *assembler) peekColon() bool {
	if a.pos+1 >= len(a.toks) {
		return false
	}
	nxt := a.toks[a.pos+1]
	return nxt.Kind == lex.Operator && nxt.OVal == ':'
}

// emitLabelOrData handles `NAME:` and `NAME: db "string" [count]`. The
// trailing integer is the referent's struct-member count, consulted by
// ALLOC when sizing a segment; it defaults to 0 for db entries that name a
// cfunc rather than a struct (CCALL never reads it). This keeps the
// name -> member-count table in the bytecode image itself rather than a
// side-channel file, at the cost of a fixed 8 bytes tacked onto every db
// entry.
func (a *assembler) emitLabelOrData(nameTok *lex.Token) error {
	name := nameTok.SVal
	if _, dup := a.labels[name]; dup {
		return a.fail(nameTok.Line, "duplicate label %q", name)
	}
	a.labels[name] = a.out.len
	a.advance() // name
	a.advance() // ':'

	if t := a.cur(); t != nil && t.Kind == lex.Identifier && t.SVal == "db" {
		a.advance() // "db"
		strTok := a.cur()
		if strTok == nil || strTok.Kind != lex.String {
			return a.fail(nameTok.Line, "db directive requires a string literal")
		}
		a.advance()
		a.out.Write([]byte(strTok.SVal))
		a.out.WriteByte(0)

		var nmembers int64
		if t := a.cur(); t != nil && t.Kind == lex.Integer {
			nmembers = t.IVal
			a.advance()
		}
		b := putLE64(uint64(nmembers))
		a.out.Write(b[:])
	}
	return nil
}

func (a *assembler) emitInstruction(mnemonic *lex.Token) error {
	def, ok := opcodes[mnemonic.SVal]
	if !ok {
		return a.fail(mnemonic.Line, "unknown instruction %q", mnemonic.SVal)
	}
	a.advance()
	a.out.WriteByte(byte(def.code))

	for _, kind := range def.operands {
		if err := a.emitOperand(mnemonic, kind); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembler) emitOperand(mnemonic *lex.Token, kind operandKind) error {
	t := a.cur()
	if t == nil {
		return a.fail(mnemonic.Line, "%s: missing operand", mnemonic.SVal)
	}

	switch kind {
	case operandInt:
		if t.Kind != lex.Integer {
			return a.fail(t.Line, "%s: expected integer operand, got %q", mnemonic.SVal, t.String())
		}
		a.advance()
		b := putLE64(uint64(t.IVal))
		a.out.Write(b[:])
		return nil

	case operandIntOrFloat:
		switch t.Kind {
		case lex.Integer:
			a.advance()
			b := putLE64(uint64(t.IVal))
			a.out.Write(b[:])
			return nil
		case lex.Float:
			a.advance()
			b := putLE64(math.Float64bits(t.FVal))
			a.out.Write(b[:])
			return nil
		default:
			return a.fail(t.Line, "%s: expected numeric operand, got %q", mnemonic.SVal, t.String())
		}

	case operandLabel:
		if t.Kind != lex.Identifier {
			return a.fail(t.Line, "%s: expected label operand, got %q", mnemonic.SVal, t.String())
		}
		a.advance()
		if off, ok := a.labels[t.SVal]; ok {
			b := putLE64(uint64(off))
			a.out.Write(b[:])
			return nil
		}
		a.patches = append(a.patches, patch{offset: a.out.len, label: t.SVal, line: t.Line})
		var zero [8]byte
		a.out.Write(zero[:])
		return nil
	}
	return nil
}

// backfill resolves every pending forward label reference after the full
// input has been consumed, per spec.md 4.F's single forward-patching
// pass.
func (a *assembler) backfill() error {
	buf := a.out.buf
	for _, p := range a.patches {
		off, ok := a.labels[p.label]
		if !ok {
			return a.fail(p.line, "unresolved label %q", p.label)
		}
		b := putLE64(uint64(off))
		copy(buf[p.offset:p.offset+8], b[:])
	}
	return nil
}

// Disassemble decodes a bytecode image back into a sequence of
// mnemonic-plus-operands lines, used by tests (the assembler round-trip
// property) and the VM's debug-mode tracer.
func Disassemble(code []byte) ([]string, error) {
	var lines []string
	ip := 0
	for ip < len(code) {
		op := Opcode(code[ip])
		name, ok := mnemonicByCode[op]
		if !ok {
			return nil, spyreerr.New(spyreerr.Assembly, "", 0, "unknown opcode 0x%02x at offset %d", op, ip)
		}
		ip++
		def := opcodes[name]
		var parts []string
		parts = append(parts, name)
		for range def.operands {
			if ip+8 > len(code) {
				return nil, spyreerr.New(spyreerr.Assembly, "", 0, "truncated operand for %s at offset %d", name, ip)
			}
			v := getLE64(code[ip : ip+8])
			parts = append(parts, strconv.FormatInt(int64(v), 10))
			ip += 8
		}
		lines = append(lines, strings.Join(parts, " "))
		if op == HALT {
			break
		}
	}
	return lines, nil
}

func getLE64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

