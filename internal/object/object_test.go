package object_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebar/internal/environment"
	"rebar/internal/object"
	"rebar/internal/value"
)

func TestArithmeticOps(t *testing.T) {
	h := environment.New()

	sum, err := object.Add(h, value.MakeInt(2), value.MakeInt(3))
	require.NoError(t, err)
	assert.Equal(t, int64(5), sum.AsInt())

	diff, err := object.Sub(h, value.MakeInt(5), value.MakeInt(2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), diff.AsInt())

	div, err := object.Div(h, value.MakeInt(7), value.MakeInt(2))
	require.NoError(t, err)
	assert.Equal(t, 3.5, div.AsNumber())
}

func TestAddStringConcatCoercesRHS(t *testing.T) {
	h := environment.New()
	lhs := h.Intern([]byte("count: "))
	result, err := object.Add(h, lhs, value.MakeInt(4))
	require.NoError(t, err)
	assert.Equal(t, "count: 4", string(h.StringBytes(result)))
}

func TestAddArrayAppendsElement(t *testing.T) {
	h := environment.New()
	arr := h.NewArray([]value.Value{value.MakeInt(1), value.MakeInt(2)})
	result, err := object.Add(h, arr, value.MakeInt(3))
	require.NoError(t, err)
	assert.Equal(t, 3, h.ArrayLen(result))
}

func TestEqComparesTagAndPayload(t *testing.T) {
	h := environment.New()
	eq, err := object.Eq(h, value.MakeInt(3), value.MakeInt(3))
	require.NoError(t, err)
	assert.True(t, eq.Truthy())

	eq, err = object.Eq(h, value.MakeInt(3), value.MakeNumber(3))
	require.NoError(t, err)
	assert.False(t, eq.Truthy())
}

func TestIndexOnTableAndArray(t *testing.T) {
	h := environment.New()
	tbl := h.NewTable()
	key := h.Intern([]byte("k"))
	h.TableSet(tbl, key, value.MakeInt(9))

	cell, err := object.Index(h, tbl, key)
	require.NoError(t, err)
	v, ok := cell.Get(h)
	require.True(t, ok)
	assert.Equal(t, int64(9), v.AsInt())

	arr := h.NewArray([]value.Value{value.MakeInt(10), value.MakeInt(20)})
	cell, err = object.Index(h, arr, value.MakeInt(1))
	require.NoError(t, err)
	ok = cell.Set(h, value.MakeInt(99))
	require.True(t, ok)
	v, _ = h.ArrayGet(arr, 1)
	assert.Equal(t, int64(99), v.AsInt())
}

func TestRangedSelectOnString(t *testing.T) {
	h := environment.New()
	s := h.Intern([]byte("hello world"))
	result, err := object.RangedSelect(h, s, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(h.StringBytes(result)))
}

// TestRangedSelectOnStringWithReversedAndOutOfRangeBounds is a
// regression test: reversed bounds, or a negative lower bound past the
// start, used to reach heap.NormalizeRange's swap already clamped
// against the un-swapped values, producing a still out-of-range pair
// that panicked when sliced.
func TestRangedSelectOnStringWithReversedAndOutOfRangeBounds(t *testing.T) {
	h := environment.New()
	s := h.Intern([]byte("hello"))

	reversed, err := object.RangedSelect(h, s, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, "ell", string(h.StringBytes(reversed)))

	negative, err := object.RangedSelect(h, s, 0, -10)
	require.NoError(t, err)
	assert.Equal(t, "", string(h.StringBytes(negative)))
}

func TestSelectFallsBackToSharedMethodTable(t *testing.T) {
	h := environment.New()
	instanceVT := &object.VTable{Name: "Thing", Methods: map[string]value.Value{}}
	instanceVT.Methods["greet"] = h.Bind(func(ret *value.Value, env *environment.Environment) {
		*ret = env.Intern([]byte("hi"))
	}, "Thing.greet")

	obj := h.NewNativeObject(instanceVT, nil)
	fn, err := object.Select(h, obj, "greet")
	require.NoError(t, err)
	assert.Equal(t, value.Func, fn.Tag)

	result, err := object.Call(h, fn, []value.Value{obj})
	require.NoError(t, err)
	assert.Equal(t, "hi", string(h.StringBytes(result)))
}

func TestNewDispatchesToClassConstructSlot(t *testing.T) {
	h := environment.New()
	instanceVT := &object.VTable{Name: "Counter", Methods: map[string]value.Value{}}
	classVT := &object.VTable{
		Name: "CounterClass",
		Ops: object.OperatorSlots{
			New: func(host object.Host, self value.Value, args []value.Value) (value.Value, error) {
				return host.(*environment.Environment).NewNativeObject(instanceVT, 0), nil
			},
		},
	}
	class := h.NewNativeObject(classVT, nil)

	instance, err := object.New(h, class, nil)
	require.NoError(t, err)
	assert.Equal(t, value.NativeObject, instance.Tag)
	assert.Same(t, instanceVT, h.NativeObjectOf(instance).VT)
}

func TestUnsupportedOperationThrowsTypeError(t *testing.T) {
	h := environment.New()
	fn := h.Bind(func(ret *value.Value, env *environment.Environment) {
		_, _ = object.Add(env, env.Globals(), value.MakeInt(1))
	}, "boom")

	_, err := h.Call(fn, nil)
	require.Error(t, err)
	rerr, ok := err.(*environment.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, "TypeError", rerr.Type)
}
