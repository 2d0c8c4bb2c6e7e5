package asmgen_test

import (
	"testing"

	"github.com/DavidWilson4242/spyre/asmgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleSimpleArithmetic(t *testing.T) {
	src := "IPUSH 1\nIPUSH 2\nIADD\nHALT\n"
	code, err := asmgen.Assemble("t.asm", src)
	require.NoError(t, err)
	require.True(t, len(code) > 0)

	lines, err := asmgen.Disassemble(code)
	require.NoError(t, err)
	assert.Equal(t, []string{"IPUSH 1", "IPUSH 2", "IADD", "HALT"}, lines)
}

func TestAssembleForwardLabelReference(t *testing.T) {
	src := "JMP skip\nIPUSH 99\nskip:\nHALT\n"
	code, err := asmgen.Assemble("t.asm", src)
	require.NoError(t, err)

	// JMP's operand should equal the byte offset of "skip:", which is
	// right after JMP's own 9 bytes (1 opcode + 8 operand) plus IPUSH's
	// 9 bytes.
	lines, err := asmgen.Disassemble(code)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "JMP 18", lines[0])
	assert.Equal(t, "IPUSH 99", lines[1])
	assert.Equal(t, "HALT", lines[2])
}

func TestAssembleUnresolvedLabelFails(t *testing.T) {
	_, err := asmgen.Assemble("t.asm", "JMP nowhere\nHALT\n")
	assert.Error(t, err)
}

func TestAssembleUnknownInstructionFails(t *testing.T) {
	_, err := asmgen.Assemble("t.asm", "NOTANOPCODE\n")
	assert.Error(t, err)
}

func TestAssembleDataDirective(t *testing.T) {
	src := `JMP __ENTRY__
__type_Point: db "Point"
main:
RESL 0
IPUSH 0
IRET
__ENTRY__:
CALL main 0
HALT
`
	code, err := asmgen.Assemble("t.asm", src)
	require.NoError(t, err)
	// "Point" (5 bytes) + nul terminator must appear verbatim in the image.
	assert.Contains(t, string(code), "Point\x00")
}

func TestAssembleDuplicateLabelFails(t *testing.T) {
	_, err := asmgen.Assemble("t.asm", "a:\nHALT\na:\nHALT\n")
	assert.Error(t, err)
}

func TestAssembleNoForwardLabelsRoundTrip(t *testing.T) {
	src := "IPUSH 40\nIPUSH 2\nIADD\nHALT\n"
	code, err := asmgen.Assemble("t.asm", src)
	require.NoError(t, err)
	lines, err := asmgen.Disassemble(code)
	require.NoError(t, err)
	assert.Equal(t, []string{"IPUSH 40", "IPUSH 2", "IADD", "HALT"}, lines)
}
