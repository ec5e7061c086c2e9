package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zipreport/tmplc/lexer"
)

func parseSrc(t *testing.T, src string) []Node {
	toks, err := lexer.New(src).Tokens()
	require.NoError(t, err)
	nodes, err := New(src, toks).Parse()
	require.NoError(t, err)
	return nodes
}

func TestParseLiteralSplitting(t *testing.T) {
	nodes := parseSrc(t, "  hi  ")
	require.Len(t, nodes, 1)
	lit := nodes[0].(Lit)
	assert.Equal(t, "  ", lit.LWS)
	assert.Equal(t, "hi", lit.Body)
	assert.Equal(t, "  ", lit.RWS)
}

func TestParseVarExpr(t *testing.T) {
	nodes := parseSrc(t, "{{ user.name }}")
	require.Len(t, nodes, 1)
	e := nodes[0].(Expr)
	attr := e.Expr.(Attr)
	assert.Equal(t, "name", attr.Name)
	assert.Equal(t, Var{Name: "user"}, attr.Inner)
}

func TestParseFilterChain(t *testing.T) {
	nodes := parseSrc(t, `{{ name|upper|truncate(5) }}`)
	e := nodes[0].(Expr)
	outer := e.Expr.(Filter)
	assert.Equal(t, "truncate", outer.Name)
	require.Len(t, outer.Args, 2)
	inner := outer.Args[0].(Filter)
	assert.Equal(t, "upper", inner.Name)
	assert.Equal(t, Var{Name: "name"}, inner.Args[0])
}

func TestParsePipeBeforeIdentIsAlwaysAFilter(t *testing.T) {
	nodes := parseSrc(t, "{{ a | b }}")
	e := nodes[0].(Expr)
	// '| ident' is claimed by parseFilters one layer below parseBOr, so a
	// bare identifier on the right always lowers to Filter, never BinOp
	// (spec.md §9: filters bind tighter than bitwise-or).
	_, isFilter := e.Expr.(Filter)
	assert.True(t, isFilter)
}

func TestParseCondArms(t *testing.T) {
	nodes := parseSrc(t, "{% if a %}x{% elif b %}y{% else %}z{% endif %}")
	require.Len(t, nodes, 1)
	cond := nodes[0].(Cond)
	require.Len(t, cond.Arms, 3)
	assert.NotNil(t, cond.Arms[0].Expr)
	assert.NotNil(t, cond.Arms[1].Expr)
	assert.Nil(t, cond.Arms[2].Expr)
}

func TestParseLoop(t *testing.T) {
	nodes := parseSrc(t, "{% for item in items %}{{ item }}{% endfor %}")
	loop := nodes[0].(Loop)
	assert.Equal(t, NameTarget{Ident: "item"}, loop.Target)
	assert.Equal(t, Var{Name: "items"}, loop.Iter)
	require.Len(t, loop.Body, 1)
}

func TestParseLoopTupleTarget(t *testing.T) {
	nodes := parseSrc(t, "{% for (k, v) in items %}{% endfor %}")
	loop := nodes[0].(Loop)
	assert.Equal(t, NamesTarget{Idents: []string{"k", "v"}}, loop.Target)
}

func TestParseLetDeclAndAssign(t *testing.T) {
	nodes := parseSrc(t, "{% let x %}{% let y = 1 %}")
	require.Len(t, nodes, 2)
	_, ok := nodes[0].(LetDecl)
	assert.True(t, ok)
	let := nodes[1].(Let)
	assert.Equal(t, NameTarget{Ident: "y"}, let.Target)
}

func TestParseExtendsRequiresStringLiteral(t *testing.T) {
	toks, err := lexer.New("{% extends 1 %}").Tokens()
	require.NoError(t, err)
	_, err = New("", toks).Parse()
	assert.Error(t, err)
}

func TestParseBlockDef(t *testing.T) {
	nodes := parseSrc(t, "{% block content %}hi{% endblock content %}")
	bd := nodes[0].(BlockDef)
	assert.Equal(t, "content", bd.Name)
	require.Len(t, bd.Body, 1)
}

func TestParseInclude(t *testing.T) {
	nodes := parseSrc(t, `{% include "partial.html" %}`)
	inc := nodes[0].(Include)
	assert.Equal(t, "partial.html", inc.Path)
}

func TestParseMacroAndCall(t *testing.T) {
	nodes := parseSrc(t, "{% macro greet(name) %}hi {{ name }}{% endmacro %}{% call greet(\"a\") %}")
	require.Len(t, nodes, 2)
	m := nodes[0].(Macro)
	assert.Equal(t, "greet", m.Name)
	assert.Equal(t, []string{"name"}, m.Params)
	call := nodes[1].(Call)
	assert.Equal(t, "greet", call.MacroName)
	require.Len(t, call.Args, 1)
}

func TestParseWhitespaceTrimFlags(t *testing.T) {
	nodes := parseSrc(t, "a {%- if x -%} b {% endif %}")
	lit := nodes[0].(Lit)
	assert.Equal(t, "a", lit.Body)
	cond := nodes[1].(Cond)
	assert.True(t, cond.Arms[0].WS.Left)
	assert.True(t, cond.Arms[0].WS.Right)
}

func TestParseUnparsedTailIsFatal(t *testing.T) {
	toks, err := lexer.New("{% endif %}").Tokens()
	require.NoError(t, err)
	_, err = New("", toks).Parse()
	assert.Error(t, err)
}
