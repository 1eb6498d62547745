// Package object implements the value protocol of spec.md §4.1 and the
// native-class / v-table machinery of §4.3. It sits between package heap
// (the raw refcounted containers) and package environment (the owner of
// every handle table); operator slots are called with a Host, a small
// interface environment.Environment satisfies structurally so that this
// package never needs to import environment.
package object

import "rebar/internal/value"

// Host is everything the object protocol needs from the owning
// environment: interning, heap access, exception raising, and dispatch
// back into whichever provider (interpreter or compiler) is current.
type Host interface {
	Intern(bytes []byte) value.Value
	StringBytes(v value.Value) []byte
	Retain(v value.Value)
	Release(v value.Value)

	NewTable() value.Value
	TableGet(t value.Value, key value.Value) (value.Value, bool)
	TableSet(t value.Value, key, val value.Value)
	TableDelete(t value.Value, key value.Value)
	TableLen(t value.Value) int
	TableKeys(t value.Value) []value.Value

	NewArray(elems []value.Value) value.Value
	ArrayGet(a value.Value, idx int) (value.Value, bool)
	ArraySet(a value.Value, idx int, val value.Value) bool
	ArrayAppend(a value.Value, val value.Value) bool
	ArrayLen(a value.Value) int
	ArrayView(a value.Value, lo, hi int) value.Value
	ArrayIsView(a value.Value) bool

	StringVTable() *VTable
	ArrayVTable() *VTable
	NativeObjectOf(v value.Value) *NativeObj
	NewNativeObject(class *VTable, payload interface{}) value.Value

	// CallValue invokes a Func value through the active execution
	// provider. Native-object call/new slots use this to re-enter the
	// object protocol (e.g. calling a method stored in a table).
	CallValue(fn value.Value, args []value.Value) (value.Value, error)

	// ToDisplayString implements the "coercing the other side via
	// to_string" rule for string `+`.
	ToDisplayString(v value.Value) string

	// Throw raises a runtime error; it never returns (it panics with a
	// value the nearest `call` boundary recovers, per §4.5.9/§9's
	// panic-unwind note).
	Throw(typeName string, payload value.Value)
}

// OperatorSlots holds one function pointer per overloadable operator named
// in spec.md §4.3. A nil slot means "use the default trap" (unsupported
// operation). Binary/compound slots share the signature (host, self, rhs);
// unary slots take just (host, self); index/select/call/new have their own
// shapes because they return different things.
type OperatorSlots struct {
	Add, Sub, Mul, Div, Mod, Pow               BinaryOp
	Eq, Ne, Lt, Le, Gt, Ge                     BinaryOp
	Or, And                                    BinaryOp
	Bor, Bxor, Band, Shl, Shr                  BinaryOp
	AddAssign, SubAssign, MulAssign, DivAssign BinaryOp
	ModAssign, PowAssign                       BinaryOp
	OrAssign, XorAssign, AndAssign             BinaryOp
	ShlAssign, ShrAssign                       BinaryOp
	Assign                                     BinaryOp

	Not, Bnot          UnaryOp
	Length             UnaryOp
	PreInc, PostInc    UnaryOp
	PreDec, PostDec    UnaryOp

	Index       func(h Host, self value.Value, key value.Value) (Cell, error)
	Select      func(h Host, self value.Value, name string) (value.Value, bool, error)
	RangedSelect func(h Host, self value.Value, lo, hi int) (value.Value, error)
	Call        func(h Host, self value.Value, args []value.Value) (value.Value, error)
	New         func(h Host, self value.Value, args []value.Value) (value.Value, error)
}

type BinaryOp func(h Host, self value.Value, rhs value.Value) (value.Value, error)
type UnaryOp func(h Host, self value.Value) (value.Value, error)

// VTable is a per-class record: a name table (methods/constants) plus the
// operator dispatch slots. Registered native classes and the two built-in
// per-type tables (string, array) are all VTables.
type VTable struct {
	Name    string
	Methods map[string]value.Value
	Ops     OperatorSlots
	// Destructor runs once, before the native object's block is freed,
	// only when the payload is not trivially destructible (§4.3).
	Destructor func(payload interface{})
}

// NativeObj is the heap block a NativeObject value points to: a refcount,
// its class's v-table, and the opaque payload (§3 "Native object").
type NativeObj struct {
	RefCount int
	VT       *VTable
	Payload  interface{}
}

// Cell is an assignable reference produced by Index (§4.1): a small handle
// naming where to read/write rather than a raw pointer, so resizing the
// backing table/array can never leave a cell dangling (§9 design note).
type Cell struct {
	kind cellKind
	// table cell
	table value.Value
	key   value.Value
	// array cell
	array value.Value
	index int
}

type cellKind int

const (
	cellTable cellKind = iota
	cellArray
)

func TableCell(table, key value.Value) Cell {
	return Cell{kind: cellTable, table: table, key: key}
}

func ArrayCell(array value.Value, index int) Cell {
	return Cell{kind: cellArray, array: array, index: index}
}

func (c Cell) Get(h Host) (value.Value, bool) {
	switch c.kind {
	case cellTable:
		return h.TableGet(c.table, c.key)
	case cellArray:
		return h.ArrayGet(c.array, c.index)
	}
	return value.Nil, false
}

func (c Cell) Set(h Host, v value.Value) bool {
	switch c.kind {
	case cellTable:
		h.TableSet(c.table, c.key, v)
		return true
	case cellArray:
		return h.ArraySet(c.array, c.index, v)
	}
	return false
}

// ClassRegistry maps a registered identifier to its v-table (§4.2 "native
// class registry").
type ClassRegistry struct {
	classes map[string]*VTable
}

func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{classes: make(map[string]*VTable)}
}

func (r *ClassRegistry) Register(id string, vt *VTable) *VTable {
	r.classes[id] = vt
	return vt
}

func (r *ClassRegistry) Lookup(id string) (*VTable, bool) {
	vt, ok := r.classes[id]
	return vt, ok
}
