// Package interp implements spec.md §4.4: the tree-walking execution
// provider. It walks the parser's AST directly via the visitor pattern
// (ast.go's Accept/VisitXxx), the same structure the teacher's
// internal/parser/ast.go was built around, rather than compiling to any
// intermediate form — that is the compiler provider's job
// (internal/compiler + internal/rtvm).
package interp

import (
	"fmt"

	"rebar/internal/environment"
	"rebar/internal/parser"
	"rebar/internal/value"
)

// funcBody is what this provider stores in FunctionInfo.Body for every
// callable except the top-level compiled unit (which keeps the raw
// *parser.Program so CompileSource's result needs no extra wrapping).
type funcBody struct {
	Stmts    []parser.Stmt
	Params   []string
	Captured *scope
}

// Provider is the interp execution provider (environment.Provider).
type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Name() string { return "interp" }

// CompileFunction registers info and stores body in the shape Invoke
// expects. It is only called for the top-level unit CompileSource
// produces; function declarations and literals encountered while walking
// the tree register themselves directly (see VisitFunctionDecl,
// VisitFunctionLit) since the interpreter already has everything
// CompileFunction would otherwise need.
func (p *Provider) CompileFunction(env *environment.Environment, body interface{}, params []string, info *environment.FunctionInfo) (value.Value, error) {
	switch b := body.(type) {
	case *parser.Program:
		info.Body = b
	case *parser.Block:
		info.Body = &funcBody{Stmts: b.Stmts, Params: params, Captured: nil}
	default:
		return value.Nil, fmt.Errorf("interp: unsupported compile unit %T", body)
	}
	info.Params = params
	info.Provider = p
	return env.RegisterFunction(info), nil
}

// Invoke runs a Func value's body to completion, returning its return
// value (null if control fell off the end) with ownership transferred to
// the caller (§4.2's "outermost host invocation" owns the result).
func (p *Provider) Invoke(env *environment.Environment, fn value.Value, args []value.Value) (value.Value, error) {
	info, ok := env.FunctionInfo(fn)
	if !ok {
		return value.Nil, fmt.Errorf("interp: unknown function id")
	}

	var stmts []parser.Stmt
	var sc *scope

	switch b := info.Body.(type) {
	case *parser.Program:
		stmts = b.Stmts
		sc = newScope(nil)
	case *funcBody:
		stmts = b.Stmts
		sc = newScope(b.Captured)
		for i, name := range b.Params {
			var av value.Value = value.Nil
			if i < len(args) {
				av = args[i]
			}
			env.Retain(av)
			sc.define(name, av, false)
		}
	default:
		return value.Nil, fmt.Errorf("interp: unsupported function body %T", info.Body)
	}

	env.PushFrame(environment.StackFrame{Function: info.Name, Origin: p.Name(), Line: env.PendingCallLine})
	defer env.PopFrame()

	it := &interpreter{env: env, scope: sc, provider: p}
	sig := it.execStmts(stmts)

	result := value.Nil
	if sig.kind == sigReturn {
		result = sig.value
		env.Retain(result)
	}
	sc.release(env)
	return result, nil
}
