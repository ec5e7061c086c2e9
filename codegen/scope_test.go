package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeDeclareAndHas(t *testing.T) {
	s := newScope(nil)
	assert.False(t, s.has("x"))
	s.declare("x")
	assert.True(t, s.has("x"))
}

func TestScopePushPopIsolatesFrame(t *testing.T) {
	s := newScope(nil)
	s.push()
	s.declare("y")
	assert.True(t, s.has("y"))
	s.pop()
	assert.False(t, s.has("y"))
}

func TestScopeOuterIsReadThroughOnly(t *testing.T) {
	outer := newScope(nil)
	outer.declare("shared")
	inner := newScope(outer)
	assert.True(t, inner.has("shared"))

	inner.declare("local")
	assert.True(t, inner.has("local"))
	assert.False(t, outer.has("local"))
}
