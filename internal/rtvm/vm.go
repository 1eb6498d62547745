package rtvm

import (
	"fmt"

	"rebar/internal/environment"
	"rebar/internal/object"
	"rebar/internal/value"
)

// vm executes one Template invocation. A fresh vm is created per call,
// mirroring §4.5.1's per-call locals stack: registers are this call's
// locals/temporaries, zero-initialized to null on entry.
type vm struct {
	env      *environment.Environment
	regs     []value.Value
	upvals   []*value.Value
	tmpl     *Template
	provider environment.Provider
}

// Run executes tmpl to completion and returns its return value (null if
// control falls off the end), with ownership transferred to the caller —
// the same convention interp.Provider.Invoke uses.
//
// Registers are released once, when the frame exits, not at the end of
// each nested block; the release on normal return and on exception
// unwind (§4.5.9's "locals-dereference must run for every frame
// crossed") both fall out of a single `defer`: whether Run
// returns normally or a Throw-panic is propagating through it, the
// deferred release always executes exactly once before the frame
// disappears from the Go call stack — the panic-unwind realization of
// the setjmp/longjmp protocol that §9 explicitly allows.
func Run(env *environment.Environment, tmpl *Template, upvals []*value.Value, args []value.Value, provider environment.Provider) (result value.Value, err error) {
	m := &vm{env: env, regs: make([]value.Value, tmpl.NumRegs), upvals: upvals, tmpl: tmpl, provider: provider}
	for i := 0; i < tmpl.NumParams; i++ {
		if i < len(args) {
			env.Retain(args[i])
			m.regs[i] = args[i]
		}
	}
	defer func() {
		for _, r := range m.regs {
			env.Release(r)
		}
	}()
	return m.exec()
}

func (m *vm) exec() (value.Value, error) {
	pc := 0
	code := m.tmpl.Code
	for pc < len(code) {
		in := code[pc]
		switch in.Op {
		case OpLoadK:
			m.set(in.A, in.Const)
		case OpLoadNil:
			m.set(in.A, value.Nil)
		case OpLoadBool:
			m.set(in.A, value.MakeBool(in.B != 0))
		case OpLoadStr:
			m.set(in.A, m.env.Intern([]byte(in.Name)))
		case OpMove:
			m.set(in.A, m.regs[in.B])

		case OpGetGlobal:
			v, _ := m.env.GetGlobal(in.Name)
			m.set(in.A, v)
		case OpSetGlobal:
			m.env.SetGlobal(in.Name, m.regs[in.A])

		case OpGetUpval:
			if in.B < len(m.upvals) && m.upvals[in.B] != nil {
				m.set(in.A, *m.upvals[in.B])
			}
		case OpSetUpval:
			if in.B < len(m.upvals) && m.upvals[in.B] != nil {
				*m.upvals[in.B] = m.regs[in.A]
			}

		case OpNewTable:
			m.set(in.A, m.env.NewTable())
		case OpNewArray:
			elems := make([]value.Value, in.D)
			for i := 0; i < in.D; i++ {
				elems[i] = m.regs[in.B+i]
			}
			m.set(in.A, m.env.NewArray(elems))

		case OpIndexGet:
			cell, err := object.Index(m.env, m.regs[in.B], m.regs[in.C])
			if err != nil {
				m.env.Throw("TypeError", m.env.Intern([]byte(err.Error())))
			}
			v, _ := cell.Get(m.env)
			m.set(in.A, v)
		case OpIndexSet:
			cell, err := object.Index(m.env, m.regs[in.B], m.regs[in.C])
			if err != nil {
				m.env.Throw("TypeError", m.env.Intern([]byte(err.Error())))
			}
			cell.Set(m.env, m.regs[in.A])
		case OpSelectGet:
			v, err := object.Select(m.env, m.regs[in.B], in.Name)
			if err != nil {
				m.env.Throw("TypeError", m.env.Intern([]byte(err.Error())))
			}
			m.set(in.A, v)
		case OpRangedSelect:
			obj := m.regs[in.B]
			lo, hi := 0, rangedLen(m.env, obj)
			if in.C != NoReg {
				lo = int(m.regs[in.C].AsInt())
			}
			if in.D != NoReg {
				hi = int(m.regs[in.D].AsInt())
			}
			v, err := object.RangedSelect(m.env, obj, lo, hi)
			if err != nil {
				m.env.Throw("TypeError", m.env.Intern([]byte(err.Error())))
			}
			m.set(in.A, v)

		case OpAdd:
			m.binop(in, object.Add)
		case OpAddAssign:
			// Array `+=` mutates self in place (object.AddAssign); every
			// other operand type falls back to Add's allocating path.
			m.binop(in, object.AddAssign)
		case OpSub:
			m.binop(in, object.Sub)
		case OpMul:
			m.binop(in, object.Mul)
		case OpDiv:
			m.binop(in, object.Div)
		case OpMod:
			m.binop(in, object.Mod)
		case OpPow:
			m.binop(in, object.Pow)
		case OpEq:
			m.binop(in, object.Eq)
		case OpNe:
			m.binop(in, object.Ne)
		case OpLt:
			m.binop(in, object.Lt)
		case OpLe:
			m.binop(in, object.Le)
		case OpGt:
			m.binop(in, object.Gt)
		case OpGe:
			m.binop(in, object.Ge)
		case OpBor:
			m.binop(in, object.Bor)
		case OpBxor:
			m.binop(in, object.Bxor)
		case OpBand:
			m.binop(in, object.Band)
		case OpShl:
			m.binop(in, object.Shl)
		case OpShr:
			m.binop(in, object.Shr)
		case OpAnd:
			l := m.regs[in.B]
			if !l.Truthy() {
				m.set(in.A, value.MakeBool(false))
			} else {
				m.set(in.A, m.regs[in.C])
			}
		case OpOr:
			l := m.regs[in.B]
			if l.Truthy() {
				m.set(in.A, l)
			} else {
				m.set(in.A, m.regs[in.C])
			}

		case OpNot:
			v, _ := object.Not(m.env, m.regs[in.B])
			m.set(in.A, v)
		case OpBnot:
			v, err := object.Bnot(m.env, m.regs[in.B])
			if err != nil {
				m.env.Throw("TypeError", m.env.Intern([]byte(err.Error())))
			}
			m.set(in.A, v)
		case OpNeg:
			m.set(in.A, negate(m.env, m.regs[in.B]))
		case OpLen:
			v, err := object.Length(m.env, m.regs[in.B])
			if err != nil {
				m.env.Throw("TypeError", m.env.Intern([]byte(err.Error())))
			}
			m.set(in.A, v)
		case OpInc:
			v, err := object.PreIncrement(m.env, m.regs[in.B])
			if err != nil {
				m.env.Throw("TypeError", m.env.Intern([]byte(err.Error())))
			}
			m.set(in.A, v)
		case OpDec:
			v, err := object.PreDecrement(m.env, m.regs[in.B])
			if err != nil {
				m.env.Throw("TypeError", m.env.Intern([]byte(err.Error())))
			}
			m.set(in.A, v)
		case OpTypeof:
			m.set(in.A, m.env.Intern([]byte(m.env.TypeOf(m.regs[in.B]))))

		case OpJump:
			pc = in.Target
			continue
		case OpJumpIfFalse:
			if !m.regs[in.A].Truthy() {
				pc = in.Target
				continue
			}
		case OpJumpIfTrue:
			if m.regs[in.A].Truthy() {
				pc = in.Target
				continue
			}

		case OpCall:
			fn := m.regs[in.B]
			args := make([]value.Value, in.D)
			for i := 0; i < in.D; i++ {
				args[i] = m.regs[in.C+i]
			}
			m.env.PendingCallLine = in.Line
			v, err := object.Call(m.env, fn, args)
			if err != nil {
				m.env.Throw("TypeError", m.env.Intern([]byte(err.Error())))
			}
			m.set(in.A, v)
		case OpMethodCall:
			recv := m.regs[in.B]
			fn, err := object.Select(m.env, recv, in.Name)
			if err != nil {
				m.env.Throw("TypeError", m.env.Intern([]byte(err.Error())))
			}
			args := make([]value.Value, in.D+1)
			args[0] = recv
			for i := 0; i < in.D; i++ {
				args[i+1] = m.regs[in.C+i]
			}
			m.env.PendingCallLine = in.Line
			v, err := object.Call(m.env, fn, args)
			if err != nil {
				m.env.Throw("TypeError", m.env.Intern([]byte(err.Error())))
			}
			m.set(in.A, v)
		case OpNewObj:
			class := m.regs[in.B]
			args := make([]value.Value, in.D)
			for i := 0; i < in.D; i++ {
				args[i] = m.regs[in.C+i]
			}
			v, err := object.New(m.env, class, args)
			if err != nil {
				m.env.Throw("TypeError", m.env.Intern([]byte(err.Error())))
			}
			m.set(in.A, v)
		case OpMakeClosure:
			m.set(in.A, m.makeClosure(in.D))

		case OpReturn:
			if in.A == NoReg {
				return value.Nil, nil
			}
			r := m.regs[in.A]
			m.env.Retain(r)
			return r, nil

		default:
			return value.Nil, fmt.Errorf("rtvm: unimplemented opcode %d", in.Op)
		}
		pc++
	}
	return value.Nil, nil
}

func (m *vm) set(reg int, v value.Value) {
	if reg == NoReg {
		return
	}
	old := m.regs[reg]
	m.env.Retain(v)
	m.env.Release(old)
	m.regs[reg] = v
}

func (m *vm) binop(in Instr, op object.BinaryOp) {
	v, err := op(m.env, m.regs[in.B], m.regs[in.C])
	if err != nil {
		m.env.Throw("TypeError", m.env.Intern([]byte(err.Error())))
	}
	m.set(in.A, v)
}

func rangedLen(h object.Host, v value.Value) int {
	switch v.Tag {
	case value.String:
		return len(h.StringBytes(v))
	case value.Array:
		return h.ArrayLen(v)
	}
	return 0
}

func negate(h object.Host, v value.Value) value.Value {
	switch v.Tag {
	case value.Int:
		return value.MakeInt(-v.AsInt())
	case value.Number:
		return value.MakeNumber(-v.AsNumber())
	}
	h.Throw("TypeError", h.Intern([]byte("unary - on "+v.Tag.String())))
	return value.Nil
}

// makeClosure instantiates child template index idx. Child templates
// never capture the parent's locals: the compiler gives each nested
// function literal a fresh scope, so any name that is not one of its own
// parameters or locals resolves as a global.
func (m *vm) makeClosure(idx int) value.Value {
	child := m.tmpl.Children[idx]
	fi := &environment.FunctionInfo{
		Name:     child.Name,
		Origin:   environment.OriginImmediate,
		Provider: m.provider,
		Body:     &FuncBody{Template: child},
	}
	return m.env.RegisterFunction(fi)
}

// FuncBody is what the compiler provider stores in FunctionInfo.Body:
// the compiled template plus any upvalues captured at closure-creation
// time (always empty under the current compiler — see makeClosure).
type FuncBody struct {
	Template *Template
	Upvals   []*value.Value
}
