package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeAndAsRoundTrip(t *testing.T) {
	assert.Equal(t, int64(42), MakeInt(42).AsInt())
	assert.Equal(t, int64(-7), MakeInt(-7).AsInt())
	assert.Equal(t, 3.5, MakeNumber(3.5).AsNumber())
	assert.True(t, MakeBool(true).AsBool())
	assert.False(t, MakeBool(false).AsBool())
	assert.Equal(t, uint32(9), MakeFunc(9).AsFuncID())
}

func TestNilIsNullTag(t *testing.T) {
	assert.Equal(t, Null, Nil.Tag)
}

func TestTagString(t *testing.T) {
	cases := map[Tag]string{
		Null:         "null",
		Bool:         "boolean",
		Int:          "integer",
		Number:       "number",
		Func:         "function",
		String:       "string",
		Table:        "table",
		Array:        "array",
		NativeObject: "native_object",
	}
	for tag, want := range cases {
		assert.Equal(t, want, tag.String())
	}
}

func TestMakeHandlePreservesTagAndData(t *testing.T) {
	v := MakeHandle(String, 123)
	assert.Equal(t, String, v.Tag)
	assert.Equal(t, uint64(123), v.AsHandle())
}
