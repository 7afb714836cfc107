package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetainReleaseString(t *testing.T) {
	v := NewString("hello")
	Retain(v)
	assert.False(t, v.str.isFreed())
	Release(v)
	assert.False(t, v.str.isFreed())
	Release(v)
	assert.True(t, v.str.isFreed())
}

func TestArrayRetainsElementsOnConstruction(t *testing.T) {
	s := NewString("x")
	arr := NewArray([]Value{s})
	assert.Equal(t, int64(2), s.str.refCount)
	Release(arr)
	assert.Equal(t, int64(1), s.str.refCount)
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, IsTruthy(Null()))
	assert.False(t, IsTruthy(Bool(false)))
	assert.False(t, IsTruthy(Int(0, WI32)))
	assert.False(t, IsTruthy(NewString("")))
	assert.True(t, IsTruthy(Bool(true)))
	assert.True(t, IsTruthy(Int(1, WI32)))
	assert.True(t, IsTruthy(NewString("x")))
}

func TestDisplayFormatsEachKind(t *testing.T) {
	assert.Equal(t, "null", Display(Null()))
	assert.Equal(t, "true", Display(Bool(true)))
	assert.Equal(t, "42", Display(Int(42, WI32)))
	assert.Equal(t, "s", Display(NewString("s")))
	arr := NewArray([]Value{Int(1, WI32), Int(2, WI32)})
	assert.Equal(t, "[1, 2]", Display(arr))
}

func TestNumericallyEqualAcrossKinds(t *testing.T) {
	assert.True(t, NumericallyEqual(Int(3, WI32), Float(3.0)))
	assert.False(t, NumericallyEqual(Int(3, WI32), Float(3.5)))
	assert.False(t, NumericallyEqual(Int(3, WI32), NewString("3")))
}

func TestObjectFieldOrderPreservesInsertion(t *testing.T) {
	obj := NewObject("", []string{"b", "a"}, []Value{Int(1, WI32), Int(2, WI32)})
	assert.Equal(t, []string{"b", "a"}, obj.obj.Order)
}

func TestObjectSetOverwritesWithoutDuplicatingOrder(t *testing.T) {
	obj := NewObject("", []string{"a"}, []Value{Int(1, WI32)})
	obj.obj.Set("a", Int(2, WI32))
	assert.Equal(t, []string{"a"}, obj.obj.Order)
	v, ok := obj.obj.Get("a")
	assert.True(t, ok)
	assert.Equal(t, int64(2), v.AsInt())
}
