// Package asmgen implements the Spyre assembler: textual assembly to a
// compact bytecode image, and a decoder used by tests and the VM's debug
// mode, grounded on original_source/src/bytecode.c and spec.md 4.F/4.G.
package asmgen

// Opcode is the one-byte instruction tag, spec.md 4.G's instruction table.
type Opcode byte

const (
	HALT Opcode = 0x00

	IPUSH Opcode = 0x01
	IPOP  Opcode = 0x02
	IADD  Opcode = 0x03
	ISUB  Opcode = 0x04
	IMUL  Opcode = 0x05
	IDIV  Opcode = 0x06

	DUP Opcode = 0x20

	FEQ Opcode = 0x30
	FLE Opcode = 0x31
	FGE Opcode = 0x32
	FLT Opcode = 0x33
	FGT Opcode = 0x34

	LDL   Opcode = 0x80
	SVL   Opcode = 0x81
	RESL  Opcode = 0x83
	LDMBR Opcode = 0x84
	SVMBR Opcode = 0x85
	ARG   Opcode = 0x86
	SVLS  Opcode = 0x87

	IPRINT Opcode = 0x90
	FLAGS  Opcode = 0x93

	ALLOC Opcode = 0xA0
	FREE  Opcode = 0xA1

	TAGL    Opcode = 0xA2
	UNTAGL  Opcode = 0xA3
	UNTAGLS Opcode = 0xA4

	ITEST Opcode = 0xC0
	ICMP  Opcode = 0xC1

	JMP  Opcode = 0xC4
	JZ   Opcode = 0xC5
	JNZ  Opcode = 0xC6
	JGT  Opcode = 0xC7
	JGE  Opcode = 0xC8
	JLT  Opcode = 0xC9
	JLE  Opcode = 0xCA
	JEQ  Opcode = 0xCB
	JNEQ Opcode = 0xCC

	CALL  Opcode = 0xCD
	CCALL Opcode = 0xCE
	IRET  Opcode = 0xCF
	RET   Opcode = 0xD0
)

// operandKind distinguishes how an instruction's operand word is produced
// from its textual form, since IPUSH is the one mnemonic whose operand
// may be either an integer or a float literal.
type operandKind int

const (
	operandNone operandKind = iota
	operandInt
	operandIntOrFloat
	operandLabel
)

type opDef struct {
	code     Opcode
	operands []operandKind
}

// opcodes is the assembler's mnemonic table: name -> (byte opcode, operand
// shape). ALLOC takes two operands in this repo (a type-name label plus a
// dimension count) rather than spec.md 4.G's bare one-operand description,
// an extension documented in DESIGN.md to carry the supplemented
// multi-dimensional `new` feature's flattened dimension count.
var opcodes = map[string]opDef{
	"HALT": {HALT, nil},

	"IPUSH": {IPUSH, []operandKind{operandIntOrFloat}},
	"IPOP":  {IPOP, nil},
	"IADD":  {IADD, nil},
	"ISUB":  {ISUB, nil},
	"IMUL":  {IMUL, nil},
	"IDIV":  {IDIV, nil},

	"DUP": {DUP, nil},

	"FEQ": {FEQ, nil},
	"FLE": {FLE, nil},
	"FGE": {FGE, nil},
	"FLT": {FLT, nil},
	"FGT": {FGT, nil},

	"LDL":   {LDL, []operandKind{operandInt}},
	"SVL":   {SVL, []operandKind{operandInt}},
	"RESL":  {RESL, []operandKind{operandInt}},
	"LDMBR": {LDMBR, []operandKind{operandInt}},
	"SVMBR": {SVMBR, []operandKind{operandInt}},
	"ARG":   {ARG, []operandKind{operandInt}},
	"SVLS":  {SVLS, nil},

	"IPRINT": {IPRINT, nil},
	"FLAGS":  {FLAGS, nil},

	"ALLOC": {ALLOC, []operandKind{operandLabel, operandInt}},
	"FREE":  {FREE, nil},

	"TAGL":    {TAGL, []operandKind{operandInt}},
	"UNTAGL":  {UNTAGL, []operandKind{operandInt}},
	"UNTAGLS": {UNTAGLS, []operandKind{operandInt}},

	"ITEST": {ITEST, nil},
	"ICMP":  {ICMP, nil},

	"JMP":  {JMP, []operandKind{operandLabel}},
	"JZ":   {JZ, []operandKind{operandLabel}},
	"JNZ":  {JNZ, []operandKind{operandLabel}},
	"JGT":  {JGT, []operandKind{operandLabel}},
	"JGE":  {JGE, []operandKind{operandLabel}},
	"JLT":  {JLT, []operandKind{operandLabel}},
	"JLE":  {JLE, []operandKind{operandLabel}},
	"JEQ":  {JEQ, []operandKind{operandLabel}},
	"JNEQ": {JNEQ, []operandKind{operandLabel}},

	"CALL":  {CALL, []operandKind{operandLabel, operandInt}},
	"CCALL": {CCALL, []operandKind{operandLabel, operandInt}},
	"IRET":  {IRET, nil},
	"RET":   {RET, nil},
}

// mnemonicByCode is opcodes inverted, used by Disassemble.
var mnemonicByCode = func() map[Opcode]string {
	m := make(map[Opcode]string, len(opcodes))
	for name, def := range opcodes {
		m[def.code] = name
	}
	return m
}()
