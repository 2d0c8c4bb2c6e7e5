package parse_test

import (
	"testing"

	"github.com/DavidWilson4242/spyre/ast"
	"github.com/DavidWilson4242/spyre/parse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArithmeticExpressionPrecedence(t *testing.T) {
	res, err := parse.Source("t.spy", "func main() -> int { return 1 + 2 * 3; }")
	require.NoError(t, err)

	fn := res.Root.Children
	require.Equal(t, ast.NodeFunction, fn.Kind)
	ret := fn.Children
	require.Equal(t, ast.NodeReturn, ret.Kind)

	expr := ret.RetVal
	require.Equal(t, ast.ExprBinary, expr.Kind)
	assert.EqualValues(t, '+', expr.BinOp)
	assert.Equal(t, ast.ExprInteger, expr.Left.Kind)
	assert.EqualValues(t, 1, expr.Left.IVal)

	right := expr.Right
	require.Equal(t, ast.ExprBinary, right.Kind)
	assert.EqualValues(t, '*', right.BinOp)
}

func TestParseIfElseShapeAndCondition(t *testing.T) {
	src := `func main() -> int {
		x: int;
		x = 10;
		if (x > 3) return 1;
		return 0;
	}`
	res, err := parse.Source("t.spy", src)
	require.NoError(t, err)

	fn := res.Root.Children
	// decl, assignment, if, return
	decl := fn.Children
	require.Equal(t, ast.NodeDeclaration, decl.Kind)
	assign := decl.Next
	require.Equal(t, ast.NodeExprStmt, assign.Kind)
	ifNode := assign.Next
	require.Equal(t, ast.NodeIf, ifNode.Kind)
	assert.EqualValues(t, '>', ifNode.Cond.BinOp)
}

func TestParseStructAndMemberAccess(t *testing.T) {
	src := `Point: struct { x: int; y: int; }
	func main() -> int {
		p: Point;
		p = new Point;
		p.x = 5;
		return p.x;
	}`
	res, err := parse.Source("t.spy", src)
	require.NoError(t, err)

	dt, ok := res.UserTypes.Get("Point")
	require.True(t, ok)
	sdt := dt.(*ast.Datatype)
	assert.Len(t, sdt.Struct.Order, 2)
}

func TestParseFunctionCallArguments(t *testing.T) {
	src := `func add(a: int, b: int) -> int = a + b;
	func main() -> int { return add(40, 2); }`
	res, err := parse.Source("t.spy", src)
	require.NoError(t, err)

	add := res.Root.Children
	require.Equal(t, ast.NodeFunction, add.Kind)
	require.NotNil(t, add.SpecialRet)

	main := add.Next
	ret := main.Children
	call := ret.RetVal
	require.Equal(t, ast.ExprCall, call.Kind)
	args := ast.FlattenArgs(call.Args)
	require.Len(t, args, 2)
	assert.EqualValues(t, 40, args[0].IVal)
	assert.EqualValues(t, 2, args[1].IVal)
}

func TestParseWhileLoop(t *testing.T) {
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
	_, err := parse.Source("t.spy", src)
	require.NoError(t, err)
}

func TestParseMismatchedParensIsError(t *testing.T) {
	_, err := parse.Source("t.spy", "func main() -> int { return (1 + 2; }")
	require.Error(t, err)
}

func TestParseCompoundAssignDesugars(t *testing.T) {
	src := `func main() -> int { x: int; x = 1; x += 2; return x; }`
	res, err := parse.Source("t.spy", src)
	require.NoError(t, err)

	fn := res.Root.Children
	// decl, assign, compound-assign, return
	compound := fn.Children.Next.Next
	require.Equal(t, ast.NodeExprStmt, compound.Kind)
	expr := compound.StmtExpr
	require.Equal(t, ast.ExprBinary, expr.Kind)
	assert.EqualValues(t, '=', expr.BinOp)
	inner := expr.Right
	require.Equal(t, ast.ExprBinary, inner.Kind)
	assert.EqualValues(t, '+', inner.BinOp)
}
