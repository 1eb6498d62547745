package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebar/internal/object"
	"rebar/internal/value"
)

func TestInternDedupesEqualBytes(t *testing.T) {
	e := New()
	a := e.Intern([]byte("hello"))
	b := e.Intern([]byte("hello"))
	assert.Equal(t, a.AsHandle(), b.AsHandle())
	assert.Equal(t, "hello", string(e.StringBytes(a)))
}

func TestTableRoundTrip(t *testing.T) {
	e := New()
	tbl := e.NewTable()
	key := e.Intern([]byte("x"))
	e.TableSet(tbl, key, value.MakeInt(7))

	v, ok := e.TableGet(tbl, key)
	require.True(t, ok)
	assert.Equal(t, int64(7), v.AsInt())
	assert.Equal(t, 1, e.TableLen(tbl))

	e.TableDelete(tbl, key)
	assert.Equal(t, 0, e.TableLen(tbl))
}

func TestArrayAppendViewAndLen(t *testing.T) {
	e := New()
	arr := e.NewArray([]value.Value{value.MakeInt(1), value.MakeInt(2), value.MakeInt(3)})
	assert.Equal(t, 3, e.ArrayLen(arr))

	ok := e.ArrayAppend(arr, value.MakeInt(4))
	assert.True(t, ok)
	assert.Equal(t, 4, e.ArrayLen(arr))

	view := e.ArrayView(arr, 1, 3)
	assert.True(t, e.ArrayIsView(view))
	assert.Equal(t, 2, e.ArrayLen(view))
	v, ok := e.ArrayGet(view, 0)
	require.True(t, ok)
	assert.Equal(t, int64(2), v.AsInt())
}

func TestBindAndCallRoundTripsArgSlot(t *testing.T) {
	e := New()
	fn := e.Bind(func(ret *value.Value, env *Environment) {
		*ret = value.MakeInt(env.ArgSlot[0].AsInt() + env.ArgSlot[1].AsInt())
	}, "add")

	result, err := e.Call(fn, []value.Value{value.MakeInt(2), value.MakeInt(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.AsInt())
}

func TestNestedNativeCallSeesItsOwnArgSlot(t *testing.T) {
	// Regression test: a native function called from inside another native
	// function's body must see its own arguments, not whatever the outer
	// Call left in the shared slot.
	e := New()
	inner := e.Bind(func(ret *value.Value, env *Environment) {
		*ret = value.MakeInt(env.ArgSlot[0].AsInt() * 10)
	}, "inner")

	var outer value.Value
	outer = e.Bind(func(ret *value.Value, env *Environment) {
		innerResult, err := env.CallValue(inner, []value.Value{value.MakeInt(4)})
		require.NoError(t, err)
		// env.ArgSlot must still reflect THIS call's own arguments here.
		*ret = value.MakeInt(innerResult.AsInt() + env.ArgSlot[0].AsInt())
	}, "outer")

	result, err := e.Call(outer, []value.Value{value.MakeInt(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(41), result.AsInt())
}

func TestThrowIsRecoveredAtCallBoundary(t *testing.T) {
	e := New()
	fn := e.Bind(func(ret *value.Value, env *Environment) {
		env.Throw("ValueError", env.Intern([]byte("boom")))
	}, "boom")

	_, err := e.Call(fn, nil)
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Equal(t, "ValueError", rerr.Type)
}

func TestRegisterNativeClassLookup(t *testing.T) {
	e := New()
	want := &object.VTable{Name: "Thing", Methods: map[string]value.Value{}}
	vt := e.RegisterNativeClass("Thing", want)
	assert.Same(t, want, vt)
	got, ok := e.LookupNativeClass("Thing")
	assert.True(t, ok)
	assert.Same(t, want, got)

	_, ok = e.LookupNativeClass("Nope")
	assert.False(t, ok)
}
