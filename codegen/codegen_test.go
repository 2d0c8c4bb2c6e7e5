package codegen_test

import (
	"testing"

	"github.com/DavidWilson4242/spyre/codegen"
	"github.com/DavidWilson4242/spyre/parse"
	"github.com/DavidWilson4242/spyre/typecheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emit(t *testing.T, src string) string {
	t.Helper()
	res, err := parse.Source("t.spy", src)
	require.NoError(t, err)
	require.NoError(t, typecheck.Check("t.spy", res))
	asm, err := codegen.Emit("t.spy", res)
	require.NoError(t, err)
	return asm
}

func TestEmitArithmeticSmokeTest(t *testing.T) {
	asm := emit(t, "func main() -> int { return 1 + 2 * 3; }")
	assert.Contains(t, asm, "IPUSH 1")
	assert.Contains(t, asm, "IPUSH 2")
	assert.Contains(t, asm, "IPUSH 3")
	assert.Contains(t, asm, "IMUL")
	assert.Contains(t, asm, "IADD")
	assert.Contains(t, asm, "CALL main 0")
	assert.Contains(t, asm, "HALT")
}

func TestEmitIfElseSelection(t *testing.T) {
	src := `func main() -> int {
		x: int;
		x = 10;
		if (x > 3) return 1;
		return 0;
	}`
	asm := emit(t, src)
	assert.Contains(t, asm, "ICMP")
	assert.Contains(t, asm, "FGT")
	assert.Contains(t, asm, "ITEST")
	assert.Contains(t, asm, "JZ ")
}

func TestEmitWhileSum(t *testing.T) {
	src := `func main() -> int {
		i: int;
		sum: int;
		i = 0;
		sum = 0;
		while (i < 10) {
			sum = sum + i;
			i = i + 1;
		}
		return sum;
	}`
	asm := emit(t, src)
	assert.Contains(t, asm, "JMP __L")
	assert.Contains(t, asm, "IADD")
	assert.Contains(t, asm, "ITEST")
}

func TestEmitStructAllocAndMemberAccess(t *testing.T) {
	src := `Point: struct { x: int; y: int; }
	func main() -> int {
		p: Point;
		p = new Point;
		p.x = 5;
		p.y = 7;
		return p.x + p.y;
	}`
	asm := emit(t, src)
	assert.Contains(t, asm, "__type_Point: db")
	assert.Contains(t, asm, "ALLOC __type_Point 0")
	assert.Contains(t, asm, "SVMBR 0")
	assert.Contains(t, asm, "SVMBR 1")
	assert.Contains(t, asm, "LDMBR 0")
	assert.Contains(t, asm, "LDMBR 1")
}

func TestEmitFunctionCallWithArguments(t *testing.T) {
	src := `func add(a: int, b: int) -> int = a + b;
	func main() -> int { return add(40, 2); }`
	asm := emit(t, src)
	assert.Contains(t, asm, "add:")
	assert.Contains(t, asm, "CALL add 2")
	assert.Contains(t, asm, "IPUSH 40")
	assert.Contains(t, asm, "IPUSH 2")
}

func TestEmitUnsupportedOperatorFails(t *testing.T) {
	res, err := parse.Source("t.spy", "func main() -> int { return 1 % 2; }")
	require.NoError(t, err)
	require.NoError(t, typecheck.Check("t.spy", res))
	_, err = codegen.Emit("t.spy", res)
	assert.Error(t, err)
}

func TestEmitBreakAndContinue(t *testing.T) {
	src := `func main() -> int {
		i: int;
		i = 0;
		while (i < 10) {
			i = i + 1;
			if (i == 5) continue;
			if (i == 9) break;
		}
		return i;
	}`
	asm := emit(t, src)
	assert.Contains(t, asm, "JMP __L")
}

func TestEmitVoidFunctionUsesRet(t *testing.T) {
	src := `cfunc print(x: int) -> void;
	func report(x: int) -> void {
		print(x);
	}
	func main() -> int {
		report(1);
		return 0;
	}`
	asm := emit(t, src)
	assert.Contains(t, asm, "report:")
	assert.Contains(t, asm, "RET")
	assert.Contains(t, asm, "__cfunc_print: db")
	assert.Contains(t, asm, "CCALL __cfunc_print 1")
}
