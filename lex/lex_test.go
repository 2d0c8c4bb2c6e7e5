package lex_test

import (
	"strings"
	"testing"

	"github.com/DavidWilson4242/spyre/lex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(head *lex.Token) []lex.Kind {
	var out []lex.Kind
	for t := head; t != nil; t = t.Next {
		out = append(out, t.Kind)
	}
	return out
}

func TestLexIntegerAndOperators(t *testing.T) {
	head, err := lex.Source("t.spy", "1 + 2 * 3")
	require.NoError(t, err)

	toks := lex.ToSlice(head)
	require.Len(t, toks, 5)
	assert.Equal(t, lex.Integer, toks[0].Kind)
	assert.Equal(t, int64(1), toks[0].IVal)
	assert.Equal(t, lex.Operator, toks[1].Kind)
	assert.Equal(t, lex.OpCode('+'), toks[1].OVal)
}

func TestLexFloat(t *testing.T) {
	head, err := lex.Source("t.spy", "3.14")
	require.NoError(t, err)
	assert.Equal(t, lex.Float, head.Kind)
	assert.InDelta(t, 3.14, head.FVal, 1e-9)
}

func TestLexKeywordsVsIdentifiers(t *testing.T) {
	head, err := lex.Source("t.spy", "if iffy while")
	require.NoError(t, err)
	toks := lex.ToSlice(head)
	require.Len(t, toks, 3)
	assert.Equal(t, lex.KeywordIf, toks[0].Kind)
	assert.Equal(t, lex.Identifier, toks[1].Kind)
	assert.Equal(t, "iffy", toks[1].SVal)
	assert.Equal(t, lex.KeywordWhile, toks[2].Kind)
}

func TestLexMultiCharOperators(t *testing.T) {
	head, err := lex.Source("t.spy", ">>= >= >> -> &&")
	require.NoError(t, err)
	toks := lex.ToSlice(head)
	require.Len(t, toks, 5)
	assert.Equal(t, lex.OpShrBy, toks[0].OVal)
	assert.Equal(t, lex.OpGE, toks[1].OVal)
	assert.Equal(t, lex.OpShr, toks[2].OVal)
	assert.Equal(t, lex.OpArrow, toks[3].OVal)
	assert.Equal(t, lex.OpLogAnd, toks[4].OVal)
}

func TestLexStringAndCharLiterals(t *testing.T) {
	head, err := lex.Source("t.spy", `"hello" 'a'`)
	require.NoError(t, err)
	toks := lex.ToSlice(head)
	require.Len(t, toks, 2)
	assert.Equal(t, lex.String, toks[0].Kind)
	assert.Equal(t, "hello", toks[0].SVal)
	assert.Equal(t, lex.Character, toks[1].Kind)
	assert.Equal(t, int64('a'), toks[1].IVal)
}

func TestLexUnterminatedStringIsFatal(t *testing.T) {
	_, err := lex.Source("t.spy", `"unterminated`)
	require.Error(t, err)
}

func TestLexOversizeIntegerIsFatal(t *testing.T) {
	_, err := lex.Source("t.spy", strings.Repeat("9", 100))
	require.Error(t, err)
}

func TestLexLineNumbersAdvance(t *testing.T) {
	head, err := lex.Source("t.spy", "1\n2\n3")
	require.NoError(t, err)
	toks := lex.ToSlice(head)
	require.Len(t, toks, 3)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line)
	assert.Equal(t, 3, toks[2].Line)
}

func TestStringRoundTrip(t *testing.T) {
	src := "x = 1 + 2 * foo(3, 4) ;"
	head, err := lex.Source("t.spy", src)
	require.NoError(t, err)

	var rendered []string
	for t := head; t != nil; t = t.Next {
		rendered = append(rendered, t.String())
	}
	rejoined := strings.Join(rendered, " ")

	head2, err := lex.Source("t.spy", rejoined)
	require.NoError(t, err)
	assert.Equal(t, kinds(head), kinds(head2))
}
