// Package environment implements spec.md §4.2: the process-wide runtime
// state shared by both execution providers — interned strings, the
// native-class registry, the global table, the function registry, I/O
// streams, the current-exception slot, the stack trace, and the
// argument-passing slot.
//
// Environment implements object.Host structurally (see internal/object);
// it does not import that package's Host type, it simply has the matching
// methods, which is what lets object sit below environment in the import
// graph while still calling back into it.
package environment

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"rebar/internal/heap"
	"rebar/internal/jit"
	"rebar/internal/object"
	"rebar/internal/value"
)

// Provider is the interface the two execution back ends (interpreter and
// compiler) both implement, per spec.md §2 "two interchangeable
// implementations of the same interface".
type Provider interface {
	Name() string
	// CompileFunction turns a parsed function body (an opaque AST handle
	// the provider knows how to interpret) into a callable Func value.
	CompileFunction(env *Environment, body interface{}, params []string, info *FunctionInfo) (value.Value, error)
	// Invoke calls a Func value this provider produced.
	Invoke(env *Environment, fn value.Value, args []value.Value) (value.Value, error)
}

// OriginKind is a callable's origin, used for stack traces and
// reflection (§3 "Function info").
type OriginKind uint8

const (
	OriginFile OriginKind = iota
	OriginImmediate
	OriginLibrary
	OriginBound
	OriginInternal
)

// FunctionInfo is the per-callable record the environment keeps for every
// compiled/bound function (§3).
type FunctionInfo struct {
	ID     uint32
	Name   string
	Origin OriginKind
	File   string
	// Body is the provider-specific representation: for script functions,
	// whatever the compiling provider stores for its own Invoke (the
	// interpreter's *funcBody or top-level *parser.Program, the compiler's
	// *rtvm.FuncBody); for bound natives, unused (see NativeFunc).
	Body   interface{}
	Params []string
	// NativeFunc is set when Origin is OriginBound/OriginInternal: the ABI
	// is `fn(ret *value.Value, env *Environment)` per spec.md §6.
	NativeFunc func(ret *value.Value, env *Environment)
	Provider   Provider
}

// StackFrame is one entry of the active call stack (§7 "stack trace
// object").
type StackFrame struct {
	Function string
	Origin   string
	Line     int
}

// Environment is the root runtime state of spec.md §4.2.
type Environment struct {
	// Heap tables, keyed by handle id.
	strings     map[uint64]*heap.StringObj
	internIndex map[string]uint64
	tables      map[uint64]*heap.TableObj
	arrays      map[uint64]*heap.ArrayObj
	natives     map[uint64]*object.NativeObj
	nextHandle  uint64

	classes *object.ClassRegistry

	globalsHandle value.Value
	stringVT      *object.VTable
	arrayVT       *object.VTable

	funcs      map[uint32]*FunctionInfo
	nextFuncID uint32

	Stdin  io.Reader
	Stdout io.Writer
	Stdlog io.Writer
	Stderr io.Writer

	// Current-exception slot (§4.2): valid only while unwinding.
	ExceptionType    value.Value
	ExceptionPayload value.Value

	StackTrace []StackFrame

	// Argument-passing slot (§4.2, §4.1 "Call"): shared, not per-call
	// allocated, so it is thread-hostile by design (§5).
	ArgSlot []value.Value

	// PendingCallLine is the source line of the call expression about to
	// invoke CallValue, set by the caller immediately before it and read
	// by the provider's Invoke when it pushes the callee's frame — the
	// same shared-slot convention as ArgSlot, since a call site and the
	// frame it produces are a 1:1 handoff, not state that survives past
	// it.
	PendingCallLine int

	ActiveProvider Provider
	Interp         Provider
	Compiler       Provider

	// Profiler records per-function call counts for diagnostics (e.g. the
	// CLI's --profile report); nil unless a host opts in.
	Profiler *jit.Profiler
}

// rtPanic is what Throw panics with; Call recovers it at the outermost
// host invocation (§7 "Recoverable only at a call boundary"). StackTrace
// is snapshotted at throw time: PopFrame runs during unwind as every
// intervening Invoke's deferred call fires, so by the time Call's
// recover observes e.StackTrace every frame has already been popped off
// it.
type rtPanic struct {
	Type       value.Value
	Payload    value.Value
	StackTrace []StackFrame
}

func New() *Environment {
	e := &Environment{
		strings:     make(map[uint64]*heap.StringObj),
		internIndex: make(map[string]uint64),
		tables:      make(map[uint64]*heap.TableObj),
		arrays:      make(map[uint64]*heap.ArrayObj),
		natives:     make(map[uint64]*object.NativeObj),
		classes:     object.NewClassRegistry(),
		funcs:       make(map[uint32]*FunctionInfo),
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stdlog:      os.Stdout,
		Stderr:      os.Stderr,
	}
	e.stringVT = &object.VTable{Name: "string", Methods: map[string]value.Value{}}
	e.arrayVT = &object.VTable{Name: "array", Methods: map[string]value.Value{}}
	e.globalsHandle = e.NewTable()
	e.ExceptionType = e.Intern([]byte("None"))
	e.ExceptionPayload = value.Nil
	return e
}

func (e *Environment) alloc() uint64 {
	e.nextHandle++
	return e.nextHandle
}

// ---- object.Host implementation ----

func (e *Environment) Intern(bytes []byte) value.Value {
	key := string(bytes)
	if h, ok := e.internIndex[key]; ok {
		e.strings[h].RefCount++
		return value.MakeHandle(value.String, h)
	}
	h := e.alloc()
	buf := make([]byte, len(bytes))
	copy(buf, bytes)
	e.strings[h] = &heap.StringObj{RefCount: 1, Bytes: buf}
	e.internIndex[key] = h
	return value.MakeHandle(value.String, h)
}

func (e *Environment) StringBytes(v value.Value) []byte {
	s, ok := e.strings[v.AsHandle()]
	if !ok {
		return nil
	}
	return s.Bytes
}

// Retain/Release implement the copy/drop refcount discipline of §3.
func (e *Environment) Retain(v value.Value) {
	switch v.Tag {
	case value.String:
		if s, ok := e.strings[v.AsHandle()]; ok {
			s.RefCount++
		}
	case value.Table:
		if t, ok := e.tables[v.AsHandle()]; ok {
			t.RefCount++
		}
	case value.Array:
		if a, ok := e.arrays[v.AsHandle()]; ok {
			a.RefCount++
		}
	case value.NativeObject:
		if n, ok := e.natives[v.AsHandle()]; ok {
			n.RefCount++
		}
	}
}

func (e *Environment) Release(v value.Value) {
	switch v.Tag {
	case value.String:
		h := v.AsHandle()
		if s, ok := e.strings[h]; ok {
			s.RefCount--
			if s.RefCount <= 0 {
				delete(e.strings, h)
				delete(e.internIndex, string(s.Bytes))
			}
		}
	case value.Table:
		h := v.AsHandle()
		if t, ok := e.tables[h]; ok {
			t.RefCount--
			if t.RefCount <= 0 {
				for _, k := range t.Keys() {
					val, _ := t.Get(k)
					e.Release(k)
					e.Release(val)
				}
				delete(e.tables, h)
			}
		}
	case value.Array:
		h := v.AsHandle()
		if a, ok := e.arrays[h]; ok {
			a.RefCount--
			if a.RefCount <= 0 {
				if a.IsView {
					e.Release(value.MakeHandle(value.Array, e.handleOf(a.Backing)))
				} else {
					for _, el := range a.Elems {
						e.Release(el)
					}
				}
				delete(e.arrays, h)
			}
		}
	case value.NativeObject:
		h := v.AsHandle()
		if n, ok := e.natives[h]; ok {
			n.RefCount--
			if n.RefCount <= 0 {
				if n.VT != nil && n.VT.Destructor != nil {
					n.VT.Destructor(n.Payload)
				}
				delete(e.natives, h)
			}
		}
	}
}

// handleOf finds the handle id for an already-known *heap.ArrayObj. Views
// hold a direct pointer to their backing array rather than a handle, so
// this indexes back into the owning table on release.
func (e *Environment) handleOf(a *heap.ArrayObj) uint64 {
	for h, v := range e.arrays {
		if v == a {
			return h
		}
	}
	return 0
}

func (e *Environment) NewTable() value.Value {
	h := e.alloc()
	e.tables[h] = heap.NewTable()
	return value.MakeHandle(value.Table, h)
}

func (e *Environment) TableGet(t value.Value, key value.Value) (value.Value, bool) {
	tbl, ok := e.tables[t.AsHandle()]
	if !ok {
		return value.Nil, false
	}
	return tbl.Get(key)
}

func (e *Environment) TableSet(t value.Value, key, val value.Value) {
	tbl, ok := e.tables[t.AsHandle()]
	if !ok {
		return
	}
	if old, existed := tbl.Get(key); existed {
		e.Release(old)
	} else {
		e.Retain(key)
	}
	e.Retain(val)
	tbl.Set(key, val)
}

func (e *Environment) TableDelete(t value.Value, key value.Value) {
	tbl, ok := e.tables[t.AsHandle()]
	if !ok {
		return
	}
	if old, existed := tbl.Get(key); existed {
		e.Release(old)
		e.Release(key)
		tbl.Delete(key)
	}
}

func (e *Environment) TableLen(t value.Value) int {
	tbl, ok := e.tables[t.AsHandle()]
	if !ok {
		return 0
	}
	return tbl.Len()
}

func (e *Environment) TableKeys(t value.Value) []value.Value {
	tbl, ok := e.tables[t.AsHandle()]
	if !ok {
		return nil
	}
	return tbl.Keys()
}

func (e *Environment) NewArray(elems []value.Value) value.Value {
	h := e.alloc()
	for _, el := range elems {
		e.Retain(el)
	}
	e.arrays[h] = heap.NewArray(append([]value.Value{}, elems...))
	return value.MakeHandle(value.Array, h)
}

func (e *Environment) ArrayGet(a value.Value, idx int) (value.Value, bool) {
	arr, ok := e.arrays[a.AsHandle()]
	if !ok {
		return value.Nil, false
	}
	return arr.At(idx)
}

func (e *Environment) ArraySet(a value.Value, idx int, v value.Value) bool {
	arr, ok := e.arrays[a.AsHandle()]
	if !ok {
		return false
	}
	if old, exists := arr.At(idx); exists {
		e.Release(old)
	}
	e.Retain(v)
	return arr.SetAt(idx, v)
}

func (e *Environment) ArrayAppend(a value.Value, v value.Value) bool {
	arr, ok := e.arrays[a.AsHandle()]
	if !ok || arr.IsView {
		return false
	}
	e.Retain(v)
	arr.Append(v)
	return true
}

func (e *Environment) ArrayLen(a value.Value) int {
	arr, ok := e.arrays[a.AsHandle()]
	if !ok {
		return 0
	}
	return arr.Len()
}

func (e *Environment) ArrayIsView(a value.Value) bool {
	arr, ok := e.arrays[a.AsHandle()]
	return ok && arr.IsView
}

func (e *Environment) ArrayView(a value.Value, lo, hi int) value.Value {
	backing, ok := e.arrays[a.AsHandle()]
	if !ok {
		return value.Nil
	}
	root := backing
	offset := lo
	if backing.IsView {
		root = backing.Backing
		offset = backing.Offset + lo
	}
	h := e.alloc()
	e.arrays[h] = heap.NewView(root, offset, hi-lo)
	return value.MakeHandle(value.Array, h)
}

func (e *Environment) StringVTable() *object.VTable { return e.stringVT }
func (e *Environment) ArrayVTable() *object.VTable  { return e.arrayVT }

func (e *Environment) NativeObjectOf(v value.Value) *object.NativeObj {
	if v.Tag != value.NativeObject {
		return nil
	}
	return e.natives[v.AsHandle()]
}

func (e *Environment) NewNativeObject(class *object.VTable, payload interface{}) value.Value {
	h := e.alloc()
	e.natives[h] = &object.NativeObj{RefCount: 1, VT: class, Payload: payload}
	return value.MakeHandle(value.NativeObject, h)
}

func (e *Environment) CallValue(fn value.Value, args []value.Value) (value.Value, error) {
	if fn.Tag != value.Func {
		return value.Nil, errors.Errorf("value of type %s is not callable", fn.Tag)
	}
	info, ok := e.funcs[fn.AsFuncID()]
	if !ok {
		return value.Nil, errors.Errorf("unknown function id %d", fn.AsFuncID())
	}
	if info.NativeFunc != nil {
		saved := e.ArgSlot
		e.ArgSlot = args
		var ret value.Value
		info.NativeFunc(&ret, e)
		e.ArgSlot = saved
		return ret, nil
	}
	if e.Profiler != nil {
		e.Profiler.RecordCall(info.ID, info.Name)
	}
	return info.Provider.Invoke(e, fn, args)
}

func (e *Environment) ToDisplayString(v value.Value) string {
	return e.Stringify(v)
}

// Throw implements §4.2 `throw(type_name, payload)`: it writes the
// exception slot and panics; it never returns.
func (e *Environment) Throw(typeName string, payload value.Value) {
	t := e.Intern([]byte(typeName))
	e.ExceptionType = t
	e.ExceptionPayload = payload
	trace := append([]StackFrame{}, e.StackTrace...)
	panic(rtPanic{Type: t, Payload: payload, StackTrace: trace})
}

// RegisterNativeClass implements the public API "register native class"
// operation (§6).
func (e *Environment) RegisterNativeClass(id string, vt *object.VTable) *object.VTable {
	return e.classes.Register(id, vt)
}

func (e *Environment) LookupNativeClass(id string) (*object.VTable, bool) {
	return e.classes.Lookup(id)
}

func (e *Environment) Globals() value.Value { return e.globalsHandle }

func (e *Environment) SetGlobal(name string, v value.Value) {
	e.TableSet(e.globalsHandle, e.Intern([]byte(name)), v)
}

func (e *Environment) GetGlobal(name string) (value.Value, bool) {
	return e.TableGet(e.globalsHandle, e.Intern([]byte(name)))
}
