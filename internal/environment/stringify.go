package environment

import (
	"fmt"
	"strconv"
	"strings"

	"rebar/internal/value"
)

// Stringify implements the `to_string` coercion §4.1 calls for string `+`
// concatenation, and is also what the CLI uses to print results.
func (e *Environment) Stringify(v value.Value) string {
	switch v.Tag {
	case value.Null:
		return "null"
	case value.Bool:
		return strconv.FormatBool(v.AsBool())
	case value.Int:
		return strconv.FormatInt(v.AsInt(), 10)
	case value.Number:
		return strconv.FormatFloat(v.AsNumber(), 'g', -1, 64)
	case value.Func:
		if fi, ok := e.FunctionInfo(v); ok {
			return fmt.Sprintf("<function %s>", fi.Name)
		}
		return "<function>"
	case value.String:
		return string(e.StringBytes(v))
	case value.Table:
		keys := e.TableKeys(v)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			val, _ := e.TableGet(v, k)
			parts = append(parts, e.Stringify(k)+"="+e.Stringify(val))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case value.Array:
		n := e.ArrayLen(v)
		parts := make([]string, n)
		for i := 0; i < n; i++ {
			el, _ := e.ArrayGet(v, i)
			parts[i] = e.Stringify(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case value.NativeObject:
		no := e.NativeObjectOf(v)
		if no != nil && no.VT != nil {
			return fmt.Sprintf("<native %s>", no.VT.Name)
		}
		return "<native>"
	}
	return "?"
}

// TypeOf implements the `typeof` operator (§S3): the tag's name.
func (e *Environment) TypeOf(v value.Value) string {
	return v.Tag.String()
}
