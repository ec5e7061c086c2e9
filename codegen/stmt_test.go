package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zipreport/tmplc/input"
	"github.com/zipreport/tmplc/lexer"
	"github.com/zipreport/tmplc/parser"
	"github.com/zipreport/tmplc/state"
)

func emitSrc(t *testing.T, src string, escapeHTML bool) string {
	t.Helper()
	toks, err := lexer.New(src).Tokens()
	require.NoError(t, err)
	nodes, err := parser.New(src, toks).Parse()
	require.NoError(t, err)

	ti := input.TemplateInput{CanonicalPath: "t.html", EscapeMode: input.EscapeNone}
	if escapeHTML {
		ti.EscapeMode = input.EscapeHTML
	}
	st, err := state.Build(ti, nodes, nil)
	require.NoError(t, err)

	u := newUnit(st, nil, nil)
	require.NoError(t, u.emitNodes(nodes))
	u.finishWS()
	return u.sb.String()
}

func TestEmitLiteralWritesThroughWriter(t *testing.T) {
	out := emitSrc(t, "hello", false)
	assert.Contains(t, out, `io.WriteString(w, "hello")`)
}

func TestEmitExprEscapesByDefaultWhenHTML(t *testing.T) {
	out := emitSrc(t, "{{ name }}", true)
	assert.Contains(t, out, "tmplcrt.Escape(tmplcrt.ToString(self.Name))")
}

func TestEmitExprNoEscapeWhenEscapeModeNone(t *testing.T) {
	out := emitSrc(t, "{{ name }}", false)
	assert.Contains(t, out, "tmplcrt.ToString(self.Name)")
	assert.NotContains(t, out, "tmplcrt.Escape")
}

func TestEmitCondProducesIfElse(t *testing.T) {
	out := emitSrc(t, "{% if a %}x{% else %}y{% endif %}", false)
	assert.Contains(t, out, "if self.A {")
	assert.Contains(t, out, "} else {")
}

func TestEmitLoopDeclaresCounterAndIncrements(t *testing.T) {
	out := emitSrc(t, "{% for item in items %}{{ item }}{% endfor %}", false)
	assert.Contains(t, out, ":= 0")
	assert.Contains(t, out, "for _, item := range self.Items {")
	assert.Contains(t, out, "++")
}

func TestEmitJSONFilterChecksError(t *testing.T) {
	out := emitSrc(t, "{{ data|json }}", false)
	assert.Contains(t, out, "tmplcrt.JSON(self.Data)")
	assert.Contains(t, out, "if err != nil {")
}

func TestEmitLetDeclares(t *testing.T) {
	out := emitSrc(t, "{% let x = 1 %}{{ x }}", false)
	assert.Contains(t, out, "x := 1")
	assert.Contains(t, out, `io.WriteString(w, tmplcrt.ToString(x))`)
}

func TestEmitCallUndefinedMacroIsFatal(t *testing.T) {
	toks, err := lexer.New(`{% call missing() %}`).Tokens()
	require.NoError(t, err)
	nodes, err := parser.New("", toks).Parse()
	require.NoError(t, err)
	st, err := state.Build(input.TemplateInput{CanonicalPath: "t.html"}, nodes, nil)
	require.NoError(t, err)
	u := newUnit(st, nil, nil)
	assert.Error(t, u.emitNodes(nodes))
}

func TestEmitCallInlinesMacroBody(t *testing.T) {
	src := `{% macro greet(name) %}hi {{ name }}{% endmacro %}{% call greet("a") %}`
	out := emitSrc(t, src, false)
	assert.Contains(t, out, `name := "a"`)
	assert.Contains(t, out, "tmplcrt.ToString(name)")
}

func TestEmitCallAppliesMacroDefinitionTrimMarkers(t *testing.T) {
	trimmed := emitSrc(t, `{% macro greet(name) -%}   hi{% endmacro %}{% call greet("a") %}`, false)
	assert.Contains(t, trimmed, `io.WriteString(w, "hi")`)
	assert.NotContains(t, trimmed, `"   hi"`)

	untrimmed := emitSrc(t, `{% macro greet(name) %}   hi{% endmacro %}{% call greet("a") %}`, false)
	assert.Contains(t, untrimmed, `"   hi"`)
}
