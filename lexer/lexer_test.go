package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(t *testing.T, src string) []TokenType {
	toks, err := New(src).Tokens()
	require.NoError(t, err)
	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	return types
}

func TestLexerPlainText(t *testing.T) {
	types := tokenTypes(t, "hello world")
	assert.Equal(t, []TokenType{TokenText, TokenEOF}, types)
}

func TestLexerVarTag(t *testing.T) {
	toks, err := New("{{ name }}").Tokens()
	require.NoError(t, err)
	require.Len(t, toks, 4)
	assert.Equal(t, TokenVarStart, toks[0].Type)
	assert.Equal(t, TokenIdent, toks[1].Type)
	assert.Equal(t, "name", toks[1].Value)
	assert.Equal(t, TokenVarEnd, toks[2].Type)
	assert.Equal(t, TokenEOF, toks[3].Type)
}

func TestLexerTrimMarkers(t *testing.T) {
	toks, err := New("{%- if x -%}").Tokens()
	require.NoError(t, err)
	require.True(t, toks[0].TrimLeft)
	blockEnd := toks[len(toks)-2]
	assert.Equal(t, TokenBlockEnd, blockEnd.Type)
	assert.True(t, blockEnd.TrimRight)
}

func TestLexerComment(t *testing.T) {
	toks, err := New("a{# note #}b").Tokens()
	require.NoError(t, err)
	require.Len(t, toks, 4)
	assert.Equal(t, TokenText, toks[0].Type)
	assert.Equal(t, TokenComment, toks[1].Type)
	assert.Equal(t, " note ", toks[1].Value)
	assert.Equal(t, TokenText, toks[2].Type)
}

func TestLexerUnterminatedComment(t *testing.T) {
	_, err := New("{# never closes").Tokens()
	assert.Error(t, err)
}

func TestLexerString(t *testing.T) {
	toks, err := New(`{{ "hi there" }}`).Tokens()
	require.NoError(t, err)
	assert.Equal(t, TokenString, toks[1].Type)
	assert.Equal(t, "hi there", toks[1].Value)
}

func TestLexerOperators(t *testing.T) {
	toks, err := New("{{ a == b and c|d }}").Tokens()
	require.NoError(t, err)
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Contains(t, types, TokenOpCmp)
	assert.Contains(t, types, TokenPipe)
}

func TestLexerUnknownByte(t *testing.T) {
	_, err := New("{{ a @ b }}").Tokens()
	assert.Error(t, err)
}
