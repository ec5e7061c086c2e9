package codegen

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zipreport/tmplc/input"
	"github.com/zipreport/tmplc/resolver"
)

func TestCompilePlainTemplateInlinesBody(t *testing.T) {
	fs := memfs.New()
	resolve := resolver.New(fs)

	ti, err := input.Resolve(input.Config{Source: "hello {{ name }}"}, "Greeting.inline", []byte("hello {{ name }}"))
	require.NoError(t, err)
	ti.HostType = "Greeting"

	results, err := Compile(resolve, []Target{{Input: ti, HostType: "Greeting"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Source, "func (self *Greeting) RenderInto(w io.Writer) error {")
	assert.Contains(t, results[0].Source, "self.Name")
	assert.Contains(t, results[0].Source, "func (self *Greeting) Render() (string, error) {")
	assert.Contains(t, results[0].Source, "func (self *Greeting) String() string {")
}

func TestCompileDerivedTemplateSharesTraitName(t *testing.T) {
	fs := memfs.New()
	f, err := fs.Create("base.html")
	require.NoError(t, err)
	_, err = f.Write([]byte(`{% block content %}default{% endblock %}`))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	resolve := resolver.New(fs)

	baseSrc := `{% block content %}default{% endblock %}`
	baseTi, err := input.Resolve(input.Config{Path: "base.html"}, "base.html", []byte(baseSrc))
	require.NoError(t, err)
	baseTi.HostType = "Base"

	childSrc := `{% extends "base.html" %}{% block content %}child{% endblock %}`
	childTi, err := input.Resolve(input.Config{Source: childSrc}, "Child.inline", []byte(childSrc))
	require.NoError(t, err)
	childTi.HostType = "Child"

	results, err := Compile(resolve, []Target{
		{Input: baseTi, HostType: "Base"},
		{Input: childTi, HostType: "Child"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	var baseOut, childOut string
	for _, r := range results {
		if r.HostType == "Base" {
			baseOut = r.Source
		} else {
			childOut = r.Source
		}
	}
	assert.Contains(t, baseOut, "type Traitbase_2ehtml interface")
	assert.Contains(t, childOut, "parentBridge() Traitbase_2ehtml")
	assert.Contains(t, childOut, "child")
}
