package typecheck_test

import (
	"testing"

	"github.com/DavidWilson4242/spyre/parse"
	"github.com/DavidWilson4242/spyre/typecheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func check(t *testing.T, src string) error {
	t.Helper()
	res, err := parse.Source("t.spy", src)
	require.NoError(t, err)
	return typecheck.Check("t.spy", res)
}

func TestCheckLiteralsResolve(t *testing.T) {
	err := check(t, `func main() -> int { return 1 + 2; }`)
	assert.NoError(t, err)
}

func TestCheckIdentifierScopeResolution(t *testing.T) {
	err := check(t, `func main() -> int {
		x: int;
		x = 41;
		return x + 1;
	}`)
	assert.NoError(t, err)
}

func TestCheckUndefinedIdentifierFails(t *testing.T) {
	err := check(t, `func main() -> int { return y; }`)
	assert.Error(t, err)
}

func TestCheckIfConditionMustBeBool(t *testing.T) {
	err := check(t, `func main() -> int { if (1 + 1) return 0; return 1; }`)
	assert.Error(t, err)
}

func TestCheckIfConditionBoolOK(t *testing.T) {
	err := check(t, `func main() -> int {
		x: int;
		x = 3;
		if (x > 1) return 1;
		return 0;
	}`)
	assert.NoError(t, err)
}

func TestCheckWhileConditionMustBeBool(t *testing.T) {
	err := check(t, `func main() -> int {
		i: int;
		i = 0;
		while (i) { i = i + 1; }
		return i;
	}`)
	assert.Error(t, err)
}

func TestCheckBinaryOperandTypeMismatch(t *testing.T) {
	err := check(t, `func main() -> float {
		x: int;
		y: float;
		x = 1;
		y = 2.0;
		return x + y;
	}`)
	assert.Error(t, err)
}

func TestCheckComparisonProducesBool(t *testing.T) {
	err := check(t, `func main() -> int {
		x: int;
		y: int;
		x = 1;
		y = 2;
		if (x == y) return 1;
		return 0;
	}`)
	assert.NoError(t, err)
}

func TestCheckStructMemberAccess(t *testing.T) {
	err := check(t, `Point: struct { x: int; y: int; }
	func main() -> int {
		p: Point;
		p = new Point;
		p.x = 5;
		return p.x;
	}`)
	assert.NoError(t, err)
}

func TestCheckStructMemberAccessUnknownMember(t *testing.T) {
	err := check(t, `Point: struct { x: int; y: int; }
	func main() -> int {
		p: Point;
		p = new Point;
		return p.z;
	}`)
	assert.Error(t, err)
}

func TestCheckMemberAccessOnNonStructFails(t *testing.T) {
	err := check(t, `func main() -> int {
		x: int;
		x = 1;
		return x.y;
	}`)
	assert.Error(t, err)
}

func TestCheckCallArgumentCountMismatch(t *testing.T) {
	err := check(t, `func add(a: int, b: int) -> int = a + b;
	func main() -> int { return add(1); }`)
	assert.Error(t, err)
}

func TestCheckCallArgumentTypeMismatch(t *testing.T) {
	err := check(t, `func add(a: int, b: int) -> int = a + b;
	func main() -> int { return add(1, 2.0); }`)
	assert.Error(t, err)
}

func TestCheckCallArgumentsOK(t *testing.T) {
	err := check(t, `func add(a: int, b: int) -> int = a + b;
	func main() -> int { return add(40, 2); }`)
	assert.NoError(t, err)
}

func TestCheckReturnTypeMismatch(t *testing.T) {
	err := check(t, `func main() -> int { return 1.5; }`)
	assert.Error(t, err)
}

func TestCheckVoidFunctionReturningValueFails(t *testing.T) {
	err := check(t, `func noop() -> void {
		return 1;
	}
	func main() -> int { noop(); return 0; }`)
	assert.Error(t, err)
}

func TestCheckIndexRequiresArray(t *testing.T) {
	err := check(t, `func main() -> int {
		x: int;
		x = 1;
		return x[0];
	}`)
	assert.Error(t, err)
}

func TestCheckIndexRequiresIntIndex(t *testing.T) {
	err := check(t, `func main() -> int {
		a: int[];
		a = new int[4];
		return a[1.0];
	}`)
	assert.Error(t, err)
}

func TestCheckIndexArrayOK(t *testing.T) {
	err := check(t, `func main() -> int {
		a: int[];
		a = new int[4];
		return a[0];
	}`)
	assert.NoError(t, err)
}
