package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvDefineAndGet(t *testing.T) {
	e := NewEnv(nil)
	e.Define("x", Int(1, WI32), false)
	v, ok := e.Get("x")
	assert.True(t, ok)
	assert.Equal(t, int64(1), v.AsInt())
}

func TestEnvLooksUpParentChain(t *testing.T) {
	parent := NewEnv(nil)
	parent.Define("x", Int(7, WI32), false)
	child := NewEnv(parent)
	v, ok := child.Get("x")
	assert.True(t, ok)
	assert.Equal(t, int64(7), v.AsInt())
}

func TestEnvSetReassignsInOwningFrame(t *testing.T) {
	parent := NewEnv(nil)
	parent.Define("x", Int(1, WI32), false)
	child := NewEnv(parent)
	ok := child.Set("x", Int(2, WI32))
	assert.True(t, ok)
	v, _ := parent.Get("x")
	assert.Equal(t, int64(2), v.AsInt())
	_, ok = child.vars["x"]
	assert.False(t, ok)
}

func TestEnvSetImplicitlyDefinesWhenNotFound(t *testing.T) {
	e := NewEnv(nil)
	ok := e.Set("y", Int(5, WI32))
	assert.True(t, ok)
	v, found := e.Get("y")
	assert.True(t, found)
	assert.Equal(t, int64(5), v.AsInt())
}

func TestEnvSetRejectsConst(t *testing.T) {
	e := NewEnv(nil)
	e.Define("x", Int(1, WI32), true)
	ok := e.Set("x", Int(2, WI32))
	assert.False(t, ok)
}

func TestEnvIsConstChecksAncestors(t *testing.T) {
	parent := NewEnv(nil)
	parent.Define("x", Int(1, WI32), true)
	child := NewEnv(parent)
	assert.True(t, child.IsConst("x"))
	assert.False(t, child.IsConst("undefined_name"))
}
