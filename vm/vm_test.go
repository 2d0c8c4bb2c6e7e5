package vm_test

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DavidWilson4242/spyre/asmgen"
	"github.com/DavidWilson4242/spyre/codegen"
	"github.com/DavidWilson4242/spyre/parse"
	"github.com/DavidWilson4242/spyre/typecheck"
	"github.com/DavidWilson4242/spyre/vm"
)

// compile runs the full front end (lex -> parse -> typecheck -> emit ->
// assemble) and returns the resulting bytecode image, exercising the same
// pipeline spec.md 8's end-to-end scenarios describe.
func compile(t *testing.T, src string) []byte {
	t.Helper()
	res, err := parse.Source("t.spy", src)
	require.NoError(t, err)
	require.NoError(t, typecheck.Check("t.spy", res))
	asm, err := codegen.Emit("t.spy", res)
	require.NoError(t, err)
	code, err := asmgen.Assemble("t.spy", asm)
	require.NoError(t, err)
	return code
}

// Scenario 1: arithmetic smoke test. Expected final-stack-top = 7.
func TestEndToEndArithmeticSmokeTest(t *testing.T) {
	code := compile(t, "func main() -> int { return 1 + 2 * 3; }")
	top, err := vm.New("t.spy", code, nil, nil).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(7), top)
}

// Scenario 2: while-loop sum 1..10, printed via a print_int cfunc binding.
// Expected stdout 55.
func TestEndToEndWhileLoopSum(t *testing.T) {
	src := `cfunc print_int(x: int) -> void;
	func main() -> int {
		i: int;
		sum: int;
		i = 1;
		sum = 0;
		while (i <= 10) {
			sum = sum + i;
			i = i + 1;
		}
		print_int(sum);
		return sum;
	}`
	code := compile(t, src)

	bindings := vm.NewRegistry()
	bindings.Register("print_int", func(m *vm.VM, nargs int) error {
		v, err := m.PopInt()
		if err != nil {
			return err
		}
		_, err = m.Stdout().Write([]byte(strconv.FormatInt(v, 10) + "\n"))
		return err
	})

	var out bytes.Buffer
	machine := vm.New("t.spy", code, bindings, nil)
	machine.SetStdout(&out)
	top, err := machine.Run()
	require.NoError(t, err)
	assert.Equal(t, int64(55), top)
	assert.Equal(t, "55\n", out.String())
}

// Scenario 3: if/else selection. Expected return value 1.
func TestEndToEndIfElseSelection(t *testing.T) {
	src := `func main() -> int {
		x: int;
		x = 10;
		if (x > 3) return 1;
		return 0;
	}`
	code := compile(t, src)
	top, err := vm.New("t.spy", code, nil, nil).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(1), top)
}

// Scenario 4: struct allocation and member access. Expected return 12;
// with no roots tagged, a subsequent GC run frees exactly one segment.
func TestEndToEndStructAllocAndMemberAccess(t *testing.T) {
	src := `Point: struct { x: int; y: int; }
	func main() -> int {
		p: Point;
		p = new Point;
		p.x = 5;
		p.y = 7;
		return p.x + p.y;
	}`
	code := compile(t, src)
	m := vm.New("t.spy", code, nil, nil)
	top, err := m.Run()
	require.NoError(t, err)
	assert.Equal(t, int64(12), top)

	// codegen emits no TAGL, so the root set is empty after main returns
	// and a GC run here exercises an all-unreachable heap: the one segment
	// `new Point` allocated must be freed.
	freed, err := m.GC()
	require.NoError(t, err)
	assert.Equal(t, 1, freed)
}

// Scenario 6: function call with arguments. Expected return 42.
func TestEndToEndFunctionCallWithArguments(t *testing.T) {
	src := `func add(a: int, b: int) -> int = a + b;
	func main() -> int { return add(40, 2); }`
	code := compile(t, src)
	top, err := vm.New("t.spy", code, nil, nil).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(42), top)
}

func TestDivisionByZeroTraps(t *testing.T) {
	code := compile(t, "func main() -> int { return 1 / 0; }")
	_, err := vm.New("t.spy", code, nil, nil).Run()
	assert.Error(t, err)
}
