// Package value defines the tagged value cell shared by every part of the
// engine: the interpreter, the compiler/rtvm pair, and the object protocol.
//
// A Value is two machine words — a type Tag and a Data payload — exactly the
// "16-byte tagged cell" the runtime is built around. Simple types (Null,
// Bool, Int, Number, Func) carry their payload directly in Data; complex
// types (String, Table, Array, NativeObject) carry a heap handle in Data and
// must be reference-counted on copy/drop (see internal/heap).
package value

import "math"

// Tag identifies which variant of Value a cell holds.
type Tag uint8

const (
	Null Tag = iota
	Bool
	Int
	Number
	Func
	String
	Table
	Array
	NativeObject
)

func (t Tag) String() string {
	switch t {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Int:
		return "integer"
	case Number:
		return "number"
	case Func:
		return "function"
	case String:
		return "string"
	case Table:
		return "table"
	case Array:
		return "array"
	case NativeObject:
		return "native_object"
	default:
		return "unknown"
	}
}

// Simple reports whether values of this tag carry no heap obligation —
// copy and drop are bitwise for them.
func (t Tag) Simple() bool {
	return t <= Func
}

// Value is the tagged cell. Data holds:
//   - Bool:   0 or 1
//   - Int:    the signed integer, reinterpreted as uint64
//   - Number: the IEEE-754 bits of the float64, reinterpreted as uint64
//   - Func:   an opaque callable id (see environment.FunctionInfo)
//   - String/Table/Array/NativeObject: a heap handle id
type Value struct {
	Tag  Tag
	Data uint64
}

var Nil = Value{Tag: Null}

func MakeBool(b bool) Value {
	if b {
		return Value{Tag: Bool, Data: 1}
	}
	return Value{Tag: Bool, Data: 0}
}

func MakeInt(i int64) Value {
	return Value{Tag: Int, Data: uint64(i)}
}

func MakeNumber(f float64) Value {
	return Value{Tag: Number, Data: math.Float64bits(f)}
}

func MakeFunc(id uint32) Value {
	return Value{Tag: Func, Data: uint64(id)}
}

func MakeHandle(tag Tag, handle uint64) Value {
	return Value{Tag: tag, Data: handle}
}

func (v Value) AsBool() bool      { return v.Data != 0 }
func (v Value) AsInt() int64      { return int64(v.Data) }
func (v Value) AsNumber() float64 { return math.Float64frombits(v.Data) }
func (v Value) AsFuncID() uint32  { return uint32(v.Data) }
func (v Value) AsHandle() uint64  { return v.Data }

// Truthy implements §4.1's logical-operator rule: "payload non-zero and
// type non-null".
func (v Value) Truthy() bool {
	if v.Tag == Null {
		return false
	}
	return v.Data != 0
}

// IsNumeric reports whether v is an Int or a Number.
func (v Value) IsNumeric() bool { return v.Tag == Int || v.Tag == Number }

// AsFloat widens an Int or Number value to float64; it does not check the tag.
func (v Value) AsFloat() float64 {
	if v.Tag == Int {
		return float64(v.AsInt())
	}
	return v.AsNumber()
}
