package interp

import (
	"strings"

	"rebar/internal/environment"
	"rebar/internal/object"
	"rebar/internal/parser"
	"rebar/internal/value"
)

type signalKind int

const (
	sigNone signalKind = iota
	sigReturn
	sigBreak
	sigContinue
)

type signal struct {
	kind  signalKind
	value value.Value
}

// interpreter walks one call's AST; its scope field is mutated as blocks
// are entered and left, so a fresh interpreter is created per Invoke.
type interpreter struct {
	env      *environment.Environment
	scope    *scope
	provider *Provider
}

func (it *interpreter) eval(e parser.Expr) value.Value {
	return e.Accept(it).(value.Value)
}

func (it *interpreter) evalAll(exprs []parser.Expr) []value.Value {
	out := make([]value.Value, len(exprs))
	for i, e := range exprs {
		out[i] = it.eval(e)
	}
	return out
}

func (it *interpreter) exec(s parser.Stmt) signal {
	return s.Accept(it).(signal)
}

func (it *interpreter) execStmts(stmts []parser.Stmt) signal {
	for _, s := range stmts {
		if sig := it.exec(s); sig.kind != sigNone {
			return sig
		}
	}
	return signal{}
}

// ---- lvalues (Assign targets and ++/-- operands) ----

type lvalue struct {
	get func() value.Value
	set func(value.Value)
}

func (it *interpreter) lvalueOf(e parser.Expr) lvalue {
	switch t := e.(type) {
	case *parser.Identifier:
		sl, ok := it.scope.resolve(t.Name)
		if !ok {
			it.env.Throw("ReferenceError", it.env.Intern([]byte("undefined variable "+t.Name)))
		}
		return lvalue{
			get: func() value.Value { return sl.val },
			set: func(v value.Value) {
				if sl.constant {
					it.env.Throw("TypeError", it.env.Intern([]byte("assignment to const variable "+t.Name)))
				}
				it.env.Retain(v)
				it.env.Release(sl.val)
				sl.val = v
			},
		}
	case *parser.Index:
		obj := it.eval(t.Object)
		key := it.eval(t.Key)
		cell, err := object.Index(it.env, obj, key)
		if err != nil {
			it.env.Throw("TypeError", it.env.Intern([]byte(err.Error())))
		}
		return lvalue{
			get: func() value.Value { v, _ := cell.Get(it.env); return v },
			set: func(v value.Value) { cell.Set(it.env, v) },
		}
	case *parser.Select:
		obj := it.eval(t.Object)
		if obj.Tag != value.Table {
			it.env.Throw("TypeError", it.env.Intern([]byte("invalid assignment target")))
		}
		cell, err := object.Index(it.env, obj, it.env.Intern([]byte(t.Name)))
		if err != nil {
			it.env.Throw("TypeError", it.env.Intern([]byte(err.Error())))
		}
		return lvalue{
			get: func() value.Value { v, _ := cell.Get(it.env); return v },
			set: func(v value.Value) { cell.Set(it.env, v) },
		}
	default:
		it.env.Throw("TypeError", it.env.Intern([]byte("invalid assignment target")))
		return lvalue{}
	}
}

func (it *interpreter) applyCompoundOp(op string, old, rhs value.Value) value.Value {
	var v value.Value
	var err error
	switch op {
	case "+=":
		v, err = object.AddAssign(it.env, old, rhs)
	case "-=":
		v, err = object.Sub(it.env, old, rhs)
	case "*=":
		v, err = object.Mul(it.env, old, rhs)
	case "/=":
		v, err = object.Div(it.env, old, rhs)
	case "%=":
		v, err = object.Mod(it.env, old, rhs)
	case "**=":
		v, err = object.Pow(it.env, old, rhs)
	case "|=":
		v, err = object.Bor(it.env, old, rhs)
	case "^=":
		v, err = object.Bxor(it.env, old, rhs)
	case "&=":
		v, err = object.Band(it.env, old, rhs)
	case "<<=":
		v, err = object.Shl(it.env, old, rhs)
	case ">>=":
		v, err = object.Shr(it.env, old, rhs)
	default:
		it.env.Throw("TypeError", it.env.Intern([]byte("unknown assignment operator "+op)))
	}
	if err != nil {
		it.env.Throw("TypeError", it.env.Intern([]byte(err.Error())))
	}
	return v
}

func lengthOf(h object.Host, v value.Value) int {
	switch v.Tag {
	case value.String:
		return len(h.StringBytes(v))
	case value.Array:
		return h.ArrayLen(v)
	}
	return 0
}

func negate(it *interpreter, v value.Value) value.Value {
	switch v.Tag {
	case value.Int:
		return value.MakeInt(-v.AsInt())
	case value.Number:
		return value.MakeNumber(-v.AsNumber())
	}
	it.env.Throw("TypeError", it.env.Intern([]byte("unary - on "+v.Tag.String())))
	return value.Nil
}

// ---- expressions ----

func (it *interpreter) VisitIntLit(n *parser.IntLit) interface{}    { return value.MakeInt(n.Value) }
func (it *interpreter) VisitNumberLit(n *parser.NumberLit) interface{} {
	return value.MakeNumber(n.Value)
}
func (it *interpreter) VisitStringLit(n *parser.StringLit) interface{} {
	return it.env.Intern([]byte(n.Value))
}
func (it *interpreter) VisitBoolLit(n *parser.BoolLit) interface{} { return value.MakeBool(n.Value) }
func (it *interpreter) VisitNullLit(n *parser.NullLit) interface{} { return value.Nil }

func (it *interpreter) VisitIdentifier(n *parser.Identifier) interface{} {
	if sl, ok := it.scope.resolve(n.Name); ok {
		return sl.val
	}
	if gv, ok := it.env.GetGlobal(n.Name); ok {
		return gv
	}
	it.env.Throw("ReferenceError", it.env.Intern([]byte("undefined variable "+n.Name)))
	return value.Nil
}

func (it *interpreter) VisitUnary(n *parser.Unary) interface{} {
	if n.Op == "++" || n.Op == "--" {
		lv := it.lvalueOf(n.Operand)
		old := lv.get()
		var nv value.Value
		var err error
		if n.Op == "++" {
			nv, err = object.PreIncrement(it.env, old)
		} else {
			nv, err = object.PreDecrement(it.env, old)
		}
		if err != nil {
			it.env.Throw("TypeError", it.env.Intern([]byte(err.Error())))
		}
		lv.set(nv)
		if n.Postfix {
			return old
		}
		return nv
	}

	operand := it.eval(n.Operand)
	switch n.Op {
	case "!":
		v, _ := object.Not(it.env, operand)
		return v
	case "-":
		return negate(it, operand)
	case "~":
		v, err := object.Bnot(it.env, operand)
		if err != nil {
			it.env.Throw("TypeError", it.env.Intern([]byte(err.Error())))
		}
		return v
	}
	it.env.Throw("TypeError", it.env.Intern([]byte("unknown unary operator "+n.Op)))
	return value.Nil
}

func (it *interpreter) VisitBinary(n *parser.Binary) interface{} {
	l := it.eval(n.Left)
	r := it.eval(n.Right)
	var v value.Value
	var err error
	switch n.Op {
	case "+":
		v, err = object.Add(it.env, l, r)
	case "-":
		v, err = object.Sub(it.env, l, r)
	case "*":
		v, err = object.Mul(it.env, l, r)
	case "/":
		v, err = object.Div(it.env, l, r)
	case "%":
		v, err = object.Mod(it.env, l, r)
	case "**":
		v, err = object.Pow(it.env, l, r)
	case "==":
		v, err = object.Eq(it.env, l, r)
	case "!=":
		v, err = object.Ne(it.env, l, r)
	case "<":
		v, err = object.Lt(it.env, l, r)
	case "<=":
		v, err = object.Le(it.env, l, r)
	case ">":
		v, err = object.Gt(it.env, l, r)
	case ">=":
		v, err = object.Ge(it.env, l, r)
	case "|":
		v, err = object.Bor(it.env, l, r)
	case "^":
		v, err = object.Bxor(it.env, l, r)
	case "&":
		v, err = object.Band(it.env, l, r)
	case "<<":
		v, err = object.Shl(it.env, l, r)
	case ">>":
		v, err = object.Shr(it.env, l, r)
	default:
		it.env.Throw("TypeError", it.env.Intern([]byte("unknown binary operator "+n.Op)))
	}
	if err != nil {
		it.env.Throw("TypeError", it.env.Intern([]byte(err.Error())))
	}
	return v
}

func (it *interpreter) VisitLogical(n *parser.Logical) interface{} {
	l := it.eval(n.Left)
	switch n.Op {
	case "&&":
		if !l.Truthy() {
			return value.MakeBool(false)
		}
		return it.eval(n.Right)
	case "||":
		if l.Truthy() {
			return l
		}
		return it.eval(n.Right)
	}
	return value.MakeBool(false)
}

func (it *interpreter) VisitTernary(n *parser.Ternary) interface{} {
	if it.eval(n.Cond).Truthy() {
		return it.eval(n.Then)
	}
	return it.eval(n.Else)
}

func (it *interpreter) VisitAssign(n *parser.Assign) interface{} {
	lv := it.lvalueOf(n.Target)
	var nv value.Value
	if n.Op == "=" {
		nv = it.eval(n.Value)
	} else {
		old := lv.get()
		rhs := it.eval(n.Value)
		nv = it.applyCompoundOp(n.Op, old, rhs)
	}
	lv.set(nv)
	return nv
}

func (it *interpreter) VisitCall(n *parser.Call) interface{} {
	if n.IsMethod {
		recv := it.eval(n.Callee)
		fnVal, err := object.Select(it.env, recv, n.Method)
		if err != nil {
			it.env.Throw("TypeError", it.env.Intern([]byte(err.Error())))
		}
		args := make([]value.Value, 0, len(n.Args)+1)
		args = append(args, recv)
		args = append(args, it.evalAll(n.Args)...)
		it.env.PendingCallLine = n.Pos().Line
		res, err := object.Call(it.env, fnVal, args)
		if err != nil {
			it.env.Throw("TypeError", it.env.Intern([]byte(err.Error())))
		}
		return res
	}
	fnVal := it.eval(n.Callee)
	args := it.evalAll(n.Args)
	it.env.PendingCallLine = n.Pos().Line
	res, err := object.Call(it.env, fnVal, args)
	if err != nil {
		it.env.Throw("TypeError", it.env.Intern([]byte(err.Error())))
	}
	return res
}

func (it *interpreter) VisitIndex(n *parser.Index) interface{} {
	obj := it.eval(n.Object)
	key := it.eval(n.Key)
	cell, err := object.Index(it.env, obj, key)
	if err != nil {
		it.env.Throw("TypeError", it.env.Intern([]byte(err.Error())))
	}
	v, _ := cell.Get(it.env)
	return v
}

func (it *interpreter) VisitSelect(n *parser.Select) interface{} {
	obj := it.eval(n.Object)
	v, err := object.Select(it.env, obj, n.Name)
	if err != nil {
		it.env.Throw("TypeError", it.env.Intern([]byte(err.Error())))
	}
	return v
}

func (it *interpreter) VisitRangedSelect(n *parser.RangedSelect) interface{} {
	obj := it.eval(n.Object)
	lo, hi := 0, lengthOf(it.env, obj)
	if n.Lo != nil {
		lo = int(it.eval(n.Lo).AsInt())
	}
	if n.Hi != nil {
		hi = int(it.eval(n.Hi).AsInt())
	}
	v, err := object.RangedSelect(it.env, obj, lo, hi)
	if err != nil {
		it.env.Throw("TypeError", it.env.Intern([]byte(err.Error())))
	}
	return v
}

func (it *interpreter) VisitNew(n *parser.NewExpr) interface{} {
	class := it.eval(n.Class)
	args := it.evalAll(n.Args)
	v, err := object.New(it.env, class, args)
	if err != nil {
		it.env.Throw("TypeError", it.env.Intern([]byte(err.Error())))
	}
	return v
}

func (it *interpreter) VisitTableLit(n *parser.TableLit) interface{} {
	tbl := it.env.NewTable()
	for i, keyExpr := range n.Keys {
		k := it.eval(keyExpr)
		v := it.eval(n.Values[i])
		it.env.TableSet(tbl, k, v)
	}
	return tbl
}

func (it *interpreter) VisitArrayLit(n *parser.ArrayLit) interface{} {
	return it.env.NewArray(it.evalAll(n.Elements))
}

func (it *interpreter) VisitFunctionLit(n *parser.FunctionLit) interface{} {
	fi := &environment.FunctionInfo{
		Name:     "<anonymous>",
		Origin:   environment.OriginImmediate,
		Params:   n.Params,
		Provider: it.provider,
		Body:     &funcBody{Stmts: n.Body.Stmts, Params: n.Params, Captured: it.scope},
	}
	return it.env.RegisterFunction(fi)
}

func (it *interpreter) VisitTypeof(n *parser.TypeofExpr) interface{} {
	operand := it.eval(n.Operand)
	return it.env.Intern([]byte(it.env.TypeOf(operand)))
}

// ---- statements ----

func (it *interpreter) VisitExprStmt(n *parser.ExprStmt) interface{} {
	it.eval(n.Expr)
	return signal{}
}

func (it *interpreter) VisitLocalDecl(n *parser.LocalDecl) interface{} {
	v := value.Nil
	if n.Value != nil {
		v = it.eval(n.Value)
	}
	it.env.Retain(v)
	it.scope.define(n.Name, v, n.Const)
	return signal{}
}

func (it *interpreter) VisitIf(n *parser.IfStmt) interface{} {
	if it.eval(n.Cond).Truthy() {
		return it.exec(n.Then)
	}
	if n.Else != nil {
		return it.exec(n.Else)
	}
	return signal{}
}

func (it *interpreter) VisitFor(n *parser.ForStmt) interface{} {
	parent := it.scope
	it.scope = newScope(parent)
	defer func() {
		it.scope.release(it.env)
		it.scope = parent
	}()

	if n.Init != nil {
		it.exec(n.Init)
	}
	for {
		if n.Cond != nil && !it.eval(n.Cond).Truthy() {
			break
		}
		sig := it.exec(n.Body)
		if sig.kind == sigBreak {
			break
		}
		if sig.kind == sigReturn {
			return sig
		}
		if n.Post != nil {
			it.exec(n.Post)
		}
	}
	return signal{}
}

func (it *interpreter) VisitWhile(n *parser.WhileStmt) interface{} {
	for it.eval(n.Cond).Truthy() {
		sig := it.exec(n.Body)
		if sig.kind == sigBreak {
			break
		}
		if sig.kind == sigReturn {
			return sig
		}
	}
	return signal{}
}

func (it *interpreter) VisitDoWhile(n *parser.DoWhileStmt) interface{} {
	for {
		sig := it.exec(n.Body)
		if sig.kind == sigBreak {
			break
		}
		if sig.kind == sigReturn {
			return sig
		}
		if !it.eval(n.Cond).Truthy() {
			break
		}
	}
	return signal{}
}

func (it *interpreter) VisitReturn(n *parser.ReturnStmt) interface{} {
	v := value.Nil
	if n.Value != nil {
		v = it.eval(n.Value)
	}
	return signal{kind: sigReturn, value: v}
}

func (it *interpreter) VisitBreak(n *parser.BreakStmt) interface{} {
	return signal{kind: sigBreak}
}

func (it *interpreter) VisitContinue(n *parser.ContinueStmt) interface{} {
	return signal{kind: sigContinue}
}

func (it *interpreter) VisitBlock(n *parser.Block) interface{} {
	parent := it.scope
	it.scope = newScope(parent)
	sig := it.execStmts(n.Stmts)
	it.scope.release(it.env)
	it.scope = parent
	return sig
}

func (it *interpreter) VisitFunctionDecl(n *parser.FunctionDecl) interface{} {
	fi := &environment.FunctionInfo{
		Name:     strings.Join(n.Path, "."),
		Origin:   environment.OriginFile,
		Params:   n.Params,
		Provider: it.provider,
		Body:     &funcBody{Stmts: n.Body.Stmts, Params: n.Params, Captured: it.scope},
	}
	fnVal := it.env.RegisterFunction(fi)
	if len(n.Path) == 1 {
		if n.Local {
			it.env.Retain(fnVal)
			it.scope.define(n.Path[0], fnVal, n.Const)
		} else {
			it.env.SetGlobal(n.Path[0], fnVal)
		}
		return signal{}
	}
	it.defineDotted(n.Path, fnVal)
	return signal{}
}

// defineDotted implements the dotted function-declaration path
// supplemented feature (§S3): `function Math.sq(x) {...}` creates (or
// reuses) a global table per path segment except the last.
func (it *interpreter) defineDotted(path []string, fnVal value.Value) {
	root, ok := it.env.GetGlobal(path[0])
	if !ok || root.Tag != value.Table {
		root = it.env.NewTable()
		it.env.SetGlobal(path[0], root)
	}
	cur := root
	for i := 1; i < len(path)-1; i++ {
		key := it.env.Intern([]byte(path[i]))
		next, ok := it.env.TableGet(cur, key)
		if !ok || next.Tag != value.Table {
			next = it.env.NewTable()
			it.env.TableSet(cur, key, next)
		}
		cur = next
	}
	it.env.TableSet(cur, it.env.Intern([]byte(path[len(path)-1])), fnVal)
}

func (it *interpreter) VisitSwitch(n *parser.SwitchStmt) interface{} {
	subject := it.eval(n.Subject)
	for _, c := range n.Cases {
		val := it.eval(c.Value)
		eq, _ := object.Eq(it.env, subject, val)
		if eq.Truthy() {
			return it.execStmts(c.Body)
		}
	}
	if n.Default != nil {
		return it.execStmts(n.Default)
	}
	return signal{}
}

// VisitClass is a no-op: class-declaration execution is optional and
// unimplemented by either provider (ast.go's ClassDecl doc comment).
func (it *interpreter) VisitClass(n *parser.ClassDecl) interface{} {
	return signal{}
}

func (it *interpreter) VisitProgram(n *parser.Program) interface{} {
	return it.execStmts(n.Stmts)
}
