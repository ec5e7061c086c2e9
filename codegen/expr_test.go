package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zipreport/tmplc/input"
	"github.com/zipreport/tmplc/parser"
	"github.com/zipreport/tmplc/state"
)

func parserVar(name string) parser.Expression        { return parser.Var{Name: name} }
func parserAttr(inner parser.Expression, name string) parser.Expression {
	return parser.Attr{Inner: inner, Name: name}
}
func parserFilter(name string, value parser.Expression) parser.Expression {
	return parser.Filter{Name: name, Args: []parser.Expression{value}}
}

func newTestUnit(t *testing.T) *unit {
	t.Helper()
	st, err := state.Build(input.TemplateInput{CanonicalPath: "t.html"}, nil, nil)
	require.NoError(t, err)
	return newUnit(st, nil, nil)
}

func TestVisitVarUnboundResolvesToSelfField(t *testing.T) {
	u := newTestUnit(t)
	code, wrapped, err := u.visitExpr(parserVar("name"))
	require.NoError(t, err)
	assert.False(t, wrapped)
	assert.Equal(t, "self.Name", code)
}

func TestVisitVarBoundResolvesToBareIdent(t *testing.T) {
	u := newTestUnit(t)
	u.scope.declare("name")
	code, _, err := u.visitExpr(parserVar("name"))
	require.NoError(t, err)
	assert.Equal(t, "name", code)
}

func TestVisitLoopIndexRequiresActiveLoop(t *testing.T) {
	u := newTestUnit(t)
	_, _, err := u.visitExpr(parserAttr(parserVar("loop"), "index0"))
	assert.Error(t, err)

	u.pushLoop("__tmp1")
	code, _, err := u.visitExpr(parserAttr(parserVar("loop"), "index0"))
	require.NoError(t, err)
	assert.Equal(t, "__tmp1", code)

	code, _, err = u.visitExpr(parserAttr(parserVar("loop"), "index"))
	require.NoError(t, err)
	assert.Equal(t, "(__tmp1 + 1)", code)
}

func TestVisitSafeFilterIsWrapped(t *testing.T) {
	u := newTestUnit(t)
	code, wrapped, err := u.visitExpr(parserFilter("safe", parserVar("body")))
	require.NoError(t, err)
	assert.True(t, wrapped)
	assert.Contains(t, code, "tmplcrt.SafeFilter(self.Body)")
}

func TestVisitLowerFilterIsUnwrapped(t *testing.T) {
	u := newTestUnit(t)
	code, wrapped, err := u.visitExpr(parserFilter("lower", parserVar("name")))
	require.NoError(t, err)
	assert.False(t, wrapped)
	assert.Equal(t, "tmplcrt.Lower(self.Name)", code)
}

func TestVisitUserFilterLowersToTmplcfilters(t *testing.T) {
	u := newTestUnit(t)
	code, wrapped, err := u.visitExpr(parserFilter("truncate", parserVar("name")))
	require.NoError(t, err)
	assert.False(t, wrapped)
	assert.Equal(t, "tmplcfilters.Truncate(self.Name)", code)
}

func TestVisitJSONFilterRejectedWhenNested(t *testing.T) {
	u := newTestUnit(t)
	_, _, err := u.visitExpr(parserFilter("upper", parserFilter("json", parserVar("name"))))
	assert.Error(t, err)
}
