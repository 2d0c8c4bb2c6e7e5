package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DavidWilson4242/spyre/asmgen"
)

// Universal property (spec.md 8): after any CALL followed by the matching
// RET/IRET, bp and ip are restored to their pre-call values and sp has been
// decreased by nargs*8 (plus a pushed return value for IRET).
func TestCallRetSymmetry(t *testing.T) {
	src := `
IPUSH 11
IPUSH 22
CALL callee 2
JMP after
callee:
RESL 0
ARG 0
ARG 1
IADD
IRET
after:
HALT
`
	code, err := asmgen.Assemble("t.asm", src)
	require.NoError(t, err)

	m := New("t.asm", code, nil, nil)
	preCallSP := 0 // before any args are pushed

	top, err := m.Run()
	require.NoError(t, err)
	assert.Equal(t, int64(33), top)
	// sp back to 0 args pushed (2 popped as the call's args) plus the one
	// pushed return value: preCallSP + 8.
	assert.Equal(t, preCallSP+wordSize, m.sp)
	assert.Equal(t, 0, m.bp)
}

func TestStackUnderflowIsFatal(t *testing.T) {
	code, err := asmgen.Assemble("t.asm", "IPOP\nHALT\n")
	require.NoError(t, err)
	_, err = New("t.asm", code, nil, nil).Run()
	assert.Error(t, err)
}

func TestUntaglUnderflowIsFatal(t *testing.T) {
	code, err := asmgen.Assemble("t.asm", "UNTAGLS 1\nHALT\n")
	require.NoError(t, err)
	_, err = New("t.asm", code, nil, nil).Run()
	assert.Error(t, err)
}

func TestUnknownCFuncBindingIsFatal(t *testing.T) {
	src := `JMP __ENTRY__
__cfunc_missing: db "missing" 0
__ENTRY__:
CCALL __cfunc_missing 0
HALT
`
	code, err := asmgen.Assemble("t.asm", src)
	require.NoError(t, err)
	_, err = New("t.asm", code, NewRegistry(), nil).Run()
	assert.Error(t, err)
}
