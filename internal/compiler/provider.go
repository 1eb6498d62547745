// Package compiler implements spec.md §4.5: the native-code execution
// provider. Per §9's equivalence clause it targets internal/rtvm's
// register bytecode machine instead of emitting x86-64 through an
// external assembler, while preserving the frame layout, unwind
// protocol, and reference/dereference emission rules those sections
// describe (see internal/rtvm's package doc and DESIGN.md).
package compiler

import (
	"fmt"

	"rebar/internal/environment"
	"rebar/internal/parser"
	"rebar/internal/rtvm"
	"rebar/internal/value"
)

// Provider is the compiler execution provider (environment.Provider).
type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Name() string { return "compiler" }

// CompileFunction compiles body (a *parser.Program for the top-level
// unit, a *parser.Block for a bound function) into a rtvm.Template and
// registers it.
func (p *Provider) CompileFunction(env *environment.Environment, body interface{}, params []string, info *environment.FunctionInfo) (value.Value, error) {
	c := newFuncCompiler(params)
	switch b := body.(type) {
	case *parser.Program:
		c.compileStmts(b.Stmts)
	case *parser.Block:
		c.compileStmts(b.Stmts)
	default:
		return value.Nil, fmt.Errorf("compiler: unsupported compile unit %T", body)
	}
	c.emit(rtvm.Instr{Op: rtvm.OpReturn, A: rtvm.NoReg})
	tmpl := c.finish(info.Name)

	info.Params = params
	info.Provider = p
	info.Body = &rtvm.FuncBody{Template: tmpl}
	return env.RegisterFunction(info), nil
}

// Invoke runs a compiled Func value to completion.
func (p *Provider) Invoke(env *environment.Environment, fn value.Value, args []value.Value) (value.Value, error) {
	info, ok := env.FunctionInfo(fn)
	if !ok {
		return value.Nil, fmt.Errorf("compiler: unknown function id")
	}
	fb, ok := info.Body.(*rtvm.FuncBody)
	if !ok {
		return value.Nil, fmt.Errorf("compiler: unsupported function body %T", info.Body)
	}
	env.PushFrame(environment.StackFrame{Function: info.Name, Origin: p.Name(), Line: env.PendingCallLine})
	defer env.PopFrame()
	return rtvm.Run(env, fb.Template, fb.Upvals, args, p)
}
