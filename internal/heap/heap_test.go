package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebar/internal/value"
)

func TestTableSetGetDeletePreservesOrder(t *testing.T) {
	tbl := NewTable()
	k1, k2 := value.MakeInt(1), value.MakeInt(2)
	tbl.Set(k1, value.MakeInt(100))
	tbl.Set(k2, value.MakeInt(200))

	v, ok := tbl.Get(k1)
	require.True(t, ok)
	assert.Equal(t, int64(100), v.AsInt())

	assert.Equal(t, []value.Value{k1, k2}, tbl.Keys())
	assert.Equal(t, 2, tbl.Len())

	tbl.Delete(k1)
	assert.Equal(t, []value.Value{k2}, tbl.Keys())
	_, ok = tbl.Get(k1)
	assert.False(t, ok)
}

func TestArrayAppendAndAt(t *testing.T) {
	arr := NewArray(nil)
	arr.Append(value.MakeInt(1))
	arr.Append(value.MakeInt(2))
	require.Equal(t, 2, arr.Len())

	v, ok := arr.At(1)
	require.True(t, ok)
	assert.Equal(t, int64(2), v.AsInt())

	_, ok = arr.At(5)
	assert.False(t, ok)
}

func TestArrayViewReadsThroughBacking(t *testing.T) {
	backing := NewArray([]value.Value{value.MakeInt(10), value.MakeInt(20), value.MakeInt(30)})
	view := NewView(backing, 1, 2)
	require.Equal(t, 2, view.Len())

	v, ok := view.At(0)
	require.True(t, ok)
	assert.Equal(t, int64(20), v.AsInt())

	ok = view.SetAt(1, value.MakeInt(99))
	require.True(t, ok)
	v, _ = backing.At(2)
	assert.Equal(t, int64(99), v.AsInt())
}

func TestNormalizeRange(t *testing.T) {
	cases := []struct {
		length, i, j   int
		wantI, wantJ   int
	}{
		{10, 2, 5, 2, 5},
		{10, -3, 10, 7, 10},
		{10, 5, 2, 2, 5},
		{10, -100, 5, 0, 5},
		{10, 2, 100, 2, 10},
		// Regression cases: a reversed bound past the end, or a negative
		// bound past the start, used to clamp before the swap and could
		// still leave the normalized pair outside [0, length].
		{5, 5, 1, 1, 5},
		{5, 0, -5, 0, 0},
	}
	for _, c := range cases {
		gotI, gotJ := NormalizeRange(c.length, c.i, c.j)
		assert.Equal(t, c.wantI, gotI)
		assert.Equal(t, c.wantJ, gotJ)
		assert.GreaterOrEqual(t, gotI, 0)
		assert.LessOrEqual(t, gotJ, c.length)
	}
}
