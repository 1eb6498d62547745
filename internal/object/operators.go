package object

import (
	"fmt"
	"strconv"
	"strings"

	"rebar/internal/heap"
	"rebar/internal/value"
)

// unsupported raises the default "unsupported operation" runtime error
// that every v-table operator slot falls back to when it isn't overridden
// (§4.3: "Slots default to a trap that signals 'unsupported operation'").
func unsupported(h Host, op string, l, r value.Value) (value.Value, error) {
	msg := fmt.Sprintf("unsupported operation %q on %s and %s", op, l.Tag, r.Tag)
	h.Throw("TypeError", h.Intern([]byte(msg)))
	return value.Nil, fmt.Errorf("%s", msg) // unreachable: Throw panics
}

func nativeOps(h Host, v value.Value) *OperatorSlots {
	if v.Tag != value.NativeObject {
		return nil
	}
	no := h.NativeObjectOf(v)
	if no == nil || no.VT == nil {
		return nil
	}
	return &no.VT.Ops
}

// Add implements `+` per §4.1: numeric widening, string concat (coercing
// the rhs via to_string), array append, and native-object forwarding.
func Add(h Host, l, r value.Value) (value.Value, error) {
	if ops := nativeOps(h, l); ops != nil && ops.Add != nil {
		return ops.Add(h, l, r)
	}
	switch l.Tag {
	case value.Int:
		switch r.Tag {
		case value.Int:
			return value.MakeInt(l.AsInt() + r.AsInt()), nil
		case value.Number:
			return value.MakeNumber(l.AsFloat() + r.AsFloat()), nil
		}
	case value.Number:
		if r.IsNumeric() {
			return value.MakeNumber(l.AsFloat() + r.AsFloat()), nil
		}
	case value.String:
		lhs := string(h.StringBytes(l))
		return h.Intern([]byte(lhs + h.ToDisplayString(r))), nil
	case value.Array:
		out := append(append([]value.Value{}, arrayElems(h, l)...), r)
		return h.NewArray(out), nil
	}
	return unsupported(h, "+", l, r)
}

func arrayElems(h Host, a value.Value) []value.Value {
	n := h.ArrayLen(a)
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		out[i], _ = h.ArrayGet(a, i)
	}
	return out
}

// AddAssign implements array `+=` mutating in place, and otherwise falls
// back to Add followed by a caller-side store (handled by the providers).
func AddAssign(h Host, self, rhs value.Value) (value.Value, error) {
	if ops := nativeOps(h, self); ops != nil && ops.AddAssign != nil {
		return ops.AddAssign(h, self, rhs)
	}
	if self.Tag == value.Array {
		if !h.ArrayAppend(self, rhs) {
			h.Throw("TypeError", h.Intern([]byte("+= on an array view is forbidden")))
		}
		return self, nil
	}
	return Add(h, self, rhs)
}

func numericBinOp(name string, intOp func(a, b int64) (value.Value, error), fltOp func(a, b float64) value.Value) BinaryOp {
	return func(h Host, l, r value.Value) (value.Value, error) {
		if l.Tag == value.Int && r.Tag == value.Int {
			return intOp(l.AsInt(), r.AsInt())
		}
		if l.IsNumeric() && r.IsNumeric() {
			return fltOp(l.AsFloat(), r.AsFloat()), nil
		}
		return unsupported(h, name, l, r)
	}
}

var Sub = wrapArith("-", func(a, b int64) (value.Value, error) { return value.MakeInt(a - b), nil },
	func(a, b float64) value.Value { return value.MakeNumber(a - b) })
var Mul = wrapArith("*", func(a, b int64) (value.Value, error) { return value.MakeInt(a * b), nil },
	func(a, b float64) value.Value { return value.MakeNumber(a * b) })
var Mod = wrapArith("%", func(a, b int64) (value.Value, error) {
	if b == 0 {
		return value.Nil, fmt.Errorf("division by zero")
	}
	return value.MakeInt(a % b), nil
}, func(a, b float64) value.Value { return value.MakeNumber(float64(int64(a) % int64(b))) })

func wrapArith(name string, intOp func(a, b int64) (value.Value, error), fltOp func(a, b float64) value.Value) BinaryOp {
	base := numericBinOp(name, intOp, fltOp)
	return func(h Host, l, r value.Value) (value.Value, error) {
		if ops := nativeOps(h, l); ops != nil {
			switch name {
			case "-":
				if ops.Sub != nil {
					return ops.Sub(h, l, r)
				}
			case "*":
				if ops.Mul != nil {
					return ops.Mul(h, l, r)
				}
			case "%":
				if ops.Mod != nil {
					return ops.Mod(h, l, r)
				}
			}
		}
		if l.Tag == value.String && name == "*" && r.Tag == value.Int {
			return h.Intern([]byte(strings.Repeat(string(h.StringBytes(l)), int(r.AsInt())))), nil
		}
		v, err := base(h, l, r)
		if err != nil {
			h.Throw("TypeError", h.Intern([]byte(err.Error())))
		}
		return v, nil
	}
}

// Div always yields a Number, per §4.1 ("division, which always yields
// number").
func Div(h Host, l, r value.Value) (value.Value, error) {
	if ops := nativeOps(h, l); ops != nil && ops.Div != nil {
		return ops.Div(h, l, r)
	}
	if l.IsNumeric() && r.IsNumeric() {
		return value.MakeNumber(l.AsFloat() / r.AsFloat()), nil
	}
	return unsupported(h, "/", l, r)
}

func Pow(h Host, l, r value.Value) (value.Value, error) {
	if ops := nativeOps(h, l); ops != nil && ops.Pow != nil {
		return ops.Pow(h, l, r)
	}
	if l.IsNumeric() && r.IsNumeric() {
		return value.MakeNumber(ipow(l.AsFloat(), r.AsFloat())), nil
	}
	return unsupported(h, "**", l, r)
}

func ipow(base, exp float64) float64 {
	result := 1.0
	n := int(exp)
	neg := n < 0
	if neg {
		n = -n
	}
	for i := 0; i < n; i++ {
		result *= base
	}
	if neg {
		return 1 / result
	}
	return result
}

// Eq/Ne implement §4.1 comparison: type tags must match; simple types
// compare payloads; complex types without an overload compare by handle
// identity (which Go's struct equality on value.Value already gives us).
func Eq(h Host, l, r value.Value) (value.Value, error) {
	if ops := nativeOps(h, l); ops != nil && ops.Eq != nil {
		return ops.Eq(h, l, r)
	}
	if l.Tag != r.Tag {
		return value.MakeBool(false), nil
	}
	return value.MakeBool(l == r), nil
}

func Ne(h Host, l, r value.Value) (value.Value, error) {
	eq, err := Eq(h, l, r)
	if err != nil {
		return eq, err
	}
	return value.MakeBool(!eq.Truthy()), nil
}

func ordered(name string, cmp func(a, b float64) bool) BinaryOp {
	return func(h Host, l, r value.Value) (value.Value, error) {
		if ops := nativeOps(h, l); ops != nil {
			var slot BinaryOp
			switch name {
			case "<":
				slot = ops.Lt
			case "<=":
				slot = ops.Le
			case ">":
				slot = ops.Gt
			case ">=":
				slot = ops.Ge
			}
			if slot != nil {
				return slot(h, l, r)
			}
		}
		if l.IsNumeric() && r.IsNumeric() {
			return value.MakeBool(cmp(l.AsFloat(), r.AsFloat())), nil
		}
		if l.Tag == value.String && r.Tag == value.Int {
			return value.MakeBool(cmp(float64(len(h.StringBytes(l))), r.AsFloat())), nil
		}
		return unsupported(h, name, l, r)
	}
}

var Lt = ordered("<", func(a, b float64) bool { return a < b })
var Le = ordered("<=", func(a, b float64) bool { return a <= b })
var Gt = ordered(">", func(a, b float64) bool { return a > b })
var Ge = ordered(">=", func(a, b float64) bool { return a >= b })

// Or/And implement §4.1 logical short-circuit semantics; the providers
// are expected to avoid evaluating the right operand unless needed, so
// these helpers take both values already evaluated only when short
// circuiting doesn't apply at the call site. Left here for completeness
// and for native-object forwarding.
func Or(h Host, l, r value.Value) (value.Value, error) {
	if l.Truthy() {
		return l, nil
	}
	return r, nil
}

func And(h Host, l, r value.Value) (value.Value, error) {
	if !l.Truthy() {
		return value.MakeBool(false), nil
	}
	return r, nil
}

func Not(h Host, v value.Value) (value.Value, error) {
	return value.MakeBool(!v.Truthy()), nil
}

func bitwiseBinOp(name string, op func(a, b int64) int64) BinaryOp {
	return func(h Host, l, r value.Value) (value.Value, error) {
		if !l.IsNumeric() || !r.IsNumeric() {
			return unsupported(h, name, l, r)
		}
		return value.MakeInt(op(int64(l.AsFloat()), int64(r.AsFloat()))), nil
	}
}

var Bor = bitwiseBinOp("|", func(a, b int64) int64 { return a | b })
var Bxor = bitwiseBinOp("^", func(a, b int64) int64 { return a ^ b })
var Band = bitwiseBinOp("&", func(a, b int64) int64 { return a & b })
var Shl = bitwiseBinOp("<<", func(a, b int64) int64 { return a << uint(b) })
var Shr = bitwiseBinOp(">>", func(a, b int64) int64 { return a >> uint(b) })

func Bnot(h Host, v value.Value) (value.Value, error) {
	if !v.IsNumeric() {
		return unsupported(h, "~", v, v)
	}
	return value.MakeInt(^int64(v.AsFloat())), nil
}

// Length implements `#`: strings/arrays return their length, native
// objects forward, everything else returns itself (§4.1).
func Length(h Host, v value.Value) (value.Value, error) {
	switch v.Tag {
	case value.String:
		return value.MakeInt(int64(len(h.StringBytes(v)))), nil
	case value.Array:
		return value.MakeInt(int64(h.ArrayLen(v))), nil
	case value.NativeObject:
		if ops := nativeOps(h, v); ops != nil && ops.Length != nil {
			return ops.Length(h, v)
		}
	}
	return v, nil
}

// Index implements `a[k]`, returning an assignable Cell.
func Index(h Host, self, key value.Value) (Cell, error) {
	switch self.Tag {
	case value.Table:
		return TableCell(self, key), nil
	case value.Array:
		if key.Tag != value.Int {
			h.Throw("TypeError", h.Intern([]byte("array index must be an integer")))
		}
		idx := int(key.AsInt())
		if idx < 0 || idx >= h.ArrayLen(self) {
			h.Throw("RangeError", h.Intern([]byte("array index out of bounds")))
		}
		return ArrayCell(self, idx), nil
	case value.NativeObject:
		if ops := nativeOps(h, self); ops != nil && ops.Index != nil {
			return ops.Index(h, self, key)
		}
	}
	h.Throw("TypeError", h.Intern([]byte(fmt.Sprintf("%s is not indexable", self.Tag))))
	return Cell{}, nil
}

// Select implements `a.k` / `a::k` / `a->k`: read-only selection. For
// strings/arrays, an integer-valued name first tries positional access,
// else falls through to the per-type v-table; for tables it reads the
// entry (null if absent); for native objects it tries the v-table select
// slot, then the method table.
func Select(h Host, self value.Value, name string) (value.Value, error) {
	switch self.Tag {
	case value.Table:
		v, ok := h.TableGet(self, h.Intern([]byte(name)))
		if !ok {
			return value.Nil, nil
		}
		return v, nil
	case value.String:
		if idx, err := strconv.Atoi(name); err == nil {
			if b := h.StringBytes(self); idx >= 0 && idx < len(b) {
				return h.Intern(b[idx : idx+1]), nil
			}
		}
		if m, ok := h.StringVTable().Methods[name]; ok {
			return m, nil
		}
		return value.Nil, nil
	case value.Array:
		if idx, err := strconv.Atoi(name); err == nil {
			if v, ok := h.ArrayGet(self, idx); ok {
				return v, nil
			}
		}
		if m, ok := h.ArrayVTable().Methods[name]; ok {
			return m, nil
		}
		return value.Nil, nil
	case value.NativeObject:
		no := h.NativeObjectOf(self)
		if no == nil {
			return value.Nil, nil
		}
		if no.VT.Ops.Select != nil {
			v, handled, err := no.VT.Ops.Select(h, self, name)
			if handled || err != nil {
				return v, err
			}
		}
		if m, ok := no.VT.Methods[name]; ok {
			return m, nil
		}
		return value.Nil, nil
	}
	h.Throw("TypeError", h.Intern([]byte(fmt.Sprintf("cannot select %q on %s", name, self.Tag))))
	return value.Nil, nil
}

// RangedSelect implements `a[i:j]`: substrings or array views, with
// negative-index and reversed-bound normalization (§8 invariant 8).
func RangedSelect(h Host, self value.Value, i, j int) (value.Value, error) {
	switch self.Tag {
	case value.String:
		b := h.StringBytes(self)
		lo, hi := normalize(len(b), i, j)
		return h.Intern(b[lo:hi]), nil
	case value.Array:
		lo, hi := normalize(h.ArrayLen(self), i, j)
		return h.ArrayView(self, lo, hi), nil
	case value.NativeObject:
		if ops := nativeOps(h, self); ops != nil && ops.RangedSelect != nil {
			return ops.RangedSelect(h, self, i, j)
		}
	}
	return unsupported(h, "[:]", self, self)
}

func normalize(length, i, j int) (int, int) {
	return heap.NormalizeRange(length, i, j)
}

// Call implements `f(args)`: on Func values it's the providers'
// responsibility (they own the callable table); on a native object it
// invokes the v-table call slot.
func Call(h Host, self value.Value, args []value.Value) (value.Value, error) {
	if self.Tag == value.Func {
		return h.CallValue(self, args)
	}
	if self.Tag == value.NativeObject {
		if ops := nativeOps(h, self); ops != nil && ops.Call != nil {
			return ops.Call(h, self, args)
		}
	}
	return unsupported(h, "()", self, self)
}

// New implements `new T(args)`: forwarded to the v-table's construct slot
// on a native object; otherwise fails.
func New(h Host, self value.Value, args []value.Value) (value.Value, error) {
	if self.Tag == value.NativeObject {
		if ops := nativeOps(h, self); ops != nil && ops.New != nil {
			return ops.New(h, self, args)
		}
	}
	return unsupported(h, "new", self, self)
}

// Increment/decrement helpers used by both providers for `++`/`--`.
func PreIncrement(h Host, v value.Value) (value.Value, error) { return Add(h, v, value.MakeInt(1)) }
func PreDecrement(h Host, v value.Value) (value.Value, error) { return Sub(h, v, value.MakeInt(1)) }
