package environment

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"

	"rebar/internal/lexer"
	"rebar/internal/parser"
	"rebar/internal/value"
)

// RuntimeError is what the public Call operation returns when a script
// throws and nothing inside caught it (§7 "the host sees a single
// runtime-error value").
type RuntimeError struct {
	Type       string
	Payload    value.Value
	StackTrace []StackFrame
	Cause      error
}

func (r *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %v", r.Type, r.Payload)
}

// CompileInfo is the key-value info bag threaded through compile/bind
// (§6): display name plus optional metadata such as a minimum engine
// version gate (§S2 domain-stack wiring of golang.org/x/mod/semver).
type CompileInfo struct {
	Name       string
	MinVersion string // e.g. "v1.0.0"; empty disables the check.
}

const engineVersion = "v1.0.0"

// RegisterFunction assigns the next numeric function id and stores its
// FunctionInfo (§3). Providers call this from CompileFunction.
func (e *Environment) RegisterFunction(info *FunctionInfo) value.Value {
	e.nextFuncID++
	info.ID = e.nextFuncID
	e.funcs[info.ID] = info
	return value.MakeFunc(info.ID)
}

func (e *Environment) FunctionInfo(fn value.Value) (*FunctionInfo, bool) {
	if fn.Tag != value.Func {
		return nil, false
	}
	info, ok := e.funcs[fn.AsFuncID()]
	return info, ok
}

// CompileSource parses bytes with the shared lexer/parser and hands the
// resulting top-level function body to the active provider.
func (e *Environment) CompileSource(src []byte, info CompileInfo) (value.Value, error) {
	if info.MinVersion != "" && semver.Compare(engineVersion, info.MinVersion) < 0 {
		return value.Nil, errors.Errorf("source %q requires engine >= %s, have %s", info.Name, info.MinVersion, engineVersion)
	}
	toks, err := lexer.Scan(string(src), info.Name)
	if err != nil {
		return value.Nil, err
	}
	p := parser.New(toks, info.Name)
	prog, err := p.ParseProgram()
	if err != nil {
		return value.Nil, err
	}
	fi := &FunctionInfo{
		Name:     info.Name,
		Origin:   OriginFile,
		File:     info.Name,
		Provider: e.ActiveProvider,
	}
	// CompileFunction registers fi itself (assigning fi.ID) and returns the
	// matching Func value; this is the single place a top-level unit's id
	// is minted.
	return e.ActiveProvider.CompileFunction(e, prog, nil, fi)
}

// CompileFile reads path and compiles it, setting FunctionInfo.File
// (§6 "sets FILE info").
func (e *Environment) CompileFile(path string, info CompileInfo) (value.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return value.Nil, errors.Wrapf(err, "reading %s", path)
	}
	if info.Name == "" {
		info.Name = path
	}
	fn, err := e.CompileSource(src, info)
	if err != nil {
		return value.Nil, err
	}
	if fi, ok := e.funcs[fn.AsFuncID()]; ok {
		fi.File = path
	}
	return fn, nil
}

// Bind implements the public "bind native" operation: wraps a Go function
// matching the native ABI `fn(ret *value.Value, env *Environment)` as a
// callable (§6).
func (e *Environment) Bind(native func(ret *value.Value, env *Environment), name string) value.Value {
	fi := &FunctionInfo{
		Name:       name,
		Origin:     OriginBound,
		NativeFunc: native,
	}
	return e.RegisterFunction(fi)
}

// Call is the public API's outermost host invocation (§6, §7): it is the
// only place a runtime error is recoverable.
func (e *Environment) Call(fn value.Value, args []value.Value) (result value.Value, rerr error) {
	defer func() {
		if r := recover(); r != nil {
			p, ok := r.(rtPanic)
			if !ok {
				panic(r)
			}
			result = value.Nil
			rerr = &RuntimeError{
				Type:       string(e.StringBytes(p.Type)),
				Payload:    p.Payload,
				StackTrace: p.StackTrace,
			}
		}
	}()
	saved := e.ArgSlot
	e.ArgSlot = args
	defer func() { e.ArgSlot = saved }()
	v, err := e.CallValue(fn, args)
	if err != nil {
		return value.Nil, err
	}
	return v, nil
}

// MaxCallDepth is the exception-handler stack's bounded capacity (§4.5.9,
// §8 invariant 9): every nested `call` pushes one logical frame, and the
// 33rd nested call is itself a runtime error rather than a host crash.
// Both providers route every call through PushFrame, so this is enforced
// once, centrally, independent of which one is active.
const MaxCallDepth = 32

// PushFrame/PopFrame maintain the logical stack trace (§4.2, §4.5.9).
func (e *Environment) PushFrame(f StackFrame) {
	if len(e.StackTrace) >= MaxCallDepth {
		e.Throw("RangeError", e.Intern([]byte("exception handler stack exhausted (call depth exceeds 32)")))
	}
	e.StackTrace = append(e.StackTrace, f)
}

func (e *Environment) PopFrame() {
	if len(e.StackTrace) > 0 {
		e.StackTrace = e.StackTrace[:len(e.StackTrace)-1]
	}
}

// RenderError implements §7's user-visible failure rendering: a header
// line with type and payload, then one stack-trace line per active frame,
// innermost first.
func RenderError(re *RuntimeError, stringify func(value.Value) string) string {
	s := fmt.Sprintf("%s: %s\n", re.Type, stringify(re.Payload))
	for i := len(re.StackTrace) - 1; i >= 0; i-- {
		f := re.StackTrace[i]
		s += fmt.Sprintf("  at %s (%s:%d)\n", f.Function, f.Origin, f.Line)
	}
	return s
}
