package compiler

import (
	"fmt"

	"rebar/internal/parser"
	"rebar/internal/rtvm"
	"rebar/internal/value"
)

// compileExpr lowers e into bytecode and returns the register holding
// its result. Identifiers resolving to a local return that local's own
// register directly (no copy); every other expression allocates a
// fresh register.
func (c *funcCompiler) compileExpr(e parser.Expr) int {
	switch n := e.(type) {
	case *parser.IntLit:
		return c.loadConst(value.MakeInt(n.Value))
	case *parser.NumberLit:
		return c.loadConst(value.MakeNumber(n.Value))
	case *parser.BoolLit:
		r := c.allocReg()
		b := 0
		if n.Value {
			b = 1
		}
		c.emit(rtvm.Instr{Op: rtvm.OpLoadBool, A: r, B: b})
		return r
	case *parser.NullLit:
		r := c.allocReg()
		c.emit(rtvm.Instr{Op: rtvm.OpLoadNil, A: r})
		return r
	case *parser.StringLit:
		r := c.allocReg()
		c.emit(rtvm.Instr{Op: rtvm.OpLoadStr, A: r, Name: n.Value})
		return r
	case *parser.Identifier:
		if sl, ok := c.scope.resolve(n.Name); ok {
			return sl.reg
		}
		r := c.allocReg()
		c.emit(rtvm.Instr{Op: rtvm.OpGetGlobal, A: r, Name: n.Name})
		return r
	case *parser.Unary:
		return c.compileUnary(n)
	case *parser.Binary:
		return c.compileBinary(n)
	case *parser.Logical:
		return c.compileLogical(n)
	case *parser.Ternary:
		return c.compileTernary(n)
	case *parser.Assign:
		return c.compileAssign(n)
	case *parser.Call:
		return c.compileCall(n)
	case *parser.Index:
		obj := c.compileExpr(n.Object)
		key := c.compileExpr(n.Key)
		r := c.allocReg()
		c.emit(rtvm.Instr{Op: rtvm.OpIndexGet, A: r, B: obj, C: key})
		return r
	case *parser.Select:
		obj := c.compileExpr(n.Object)
		r := c.allocReg()
		c.emit(rtvm.Instr{Op: rtvm.OpSelectGet, A: r, B: obj, Name: n.Name})
		return r
	case *parser.RangedSelect:
		return c.compileRangedSelect(n)
	case *parser.NewExpr:
		class := c.compileExpr(n.Class)
		base, count := c.compileArgList(n.Args)
		r := c.allocReg()
		c.emit(rtvm.Instr{Op: rtvm.OpNewObj, A: r, B: class, C: base, D: count})
		return r
	case *parser.TableLit:
		return c.compileTableLit(n)
	case *parser.ArrayLit:
		base, count := c.compileArgList(n.Elements)
		r := c.allocReg()
		c.emit(rtvm.Instr{Op: rtvm.OpNewArray, A: r, B: base, D: count})
		return r
	case *parser.FunctionLit:
		child := c.compileChild("", n.Params, n.Body.Stmts)
		idx := len(c.children)
		c.children = append(c.children, child)
		r := c.allocReg()
		c.emit(rtvm.Instr{Op: rtvm.OpMakeClosure, A: r, D: idx})
		return r
	case *parser.TypeofExpr:
		operand := c.compileExpr(n.Operand)
		r := c.allocReg()
		c.emit(rtvm.Instr{Op: rtvm.OpTypeof, A: r, B: operand})
		return r
	default:
		panic(fmt.Sprintf("compiler: unhandled expression %T", e))
	}
}

func (c *funcCompiler) loadConst(v value.Value) int {
	r := c.allocReg()
	c.emit(rtvm.Instr{Op: rtvm.OpLoadK, A: r, Const: v})
	return r
}

// compileArgList evaluates each expr, then copies the results into a
// fresh contiguous register run (required by OpCall/OpMethodCall/
// OpNewObj/OpNewArray's "args start at register B, C of them" layout).
func (c *funcCompiler) compileArgList(exprs []parser.Expr) (base, count int) {
	srcs := make([]int, len(exprs))
	for i, a := range exprs {
		srcs[i] = c.compileExpr(a)
	}
	base = c.nextReg
	for _, s := range srcs {
		dst := c.allocReg()
		c.emit(rtvm.Instr{Op: rtvm.OpMove, A: dst, B: s})
	}
	return base, len(exprs)
}

var unaryOps = map[string]rtvm.OpCode{
	"!": rtvm.OpNot, "not": rtvm.OpNot,
	"~": rtvm.OpBnot,
	"-": rtvm.OpNeg,
}

func (c *funcCompiler) compileUnary(n *parser.Unary) int {
	switch n.Op {
	case "++", "--":
		return c.compileIncDec(n)
	}
	op, ok := unaryOps[n.Op]
	if !ok {
		panic(fmt.Sprintf("compiler: unknown unary operator %q", n.Op))
	}
	src := c.compileExpr(n.Operand)
	r := c.allocReg()
	c.emit(rtvm.Instr{Op: op, A: r, B: src})
	return r
}

// compileIncDec implements prefix/postfix ++/-- on an assignable
// operand: load, apply OpInc/OpDec, store back, and (for postfix)
// return the pre-update value.
func (c *funcCompiler) compileIncDec(n *parser.Unary) int {
	op := rtvm.OpInc
	if n.Op == "--" {
		op = rtvm.OpDec
	}
	lv := c.lvalueOf(n.Operand)
	old := lv.load(c)
	saved := old
	if n.Postfix {
		saved = c.allocReg()
		c.emit(rtvm.Instr{Op: rtvm.OpMove, A: saved, B: old})
	}
	updated := c.allocReg()
	c.emit(rtvm.Instr{Op: op, A: updated, B: old})
	lv.store(c, updated)
	if n.Postfix {
		return saved
	}
	return updated
}

var binaryOps = map[string]rtvm.OpCode{
	"+": rtvm.OpAdd, "-": rtvm.OpSub, "*": rtvm.OpMul, "/": rtvm.OpDiv,
	"%": rtvm.OpMod, "**": rtvm.OpPow,
	"==": rtvm.OpEq, "!=": rtvm.OpNe,
	"<": rtvm.OpLt, "<=": rtvm.OpLe, ">": rtvm.OpGt, ">=": rtvm.OpGe,
	"|": rtvm.OpBor, "^": rtvm.OpBxor, "&": rtvm.OpBand,
	"<<": rtvm.OpShl, ">>": rtvm.OpShr,
}

func (c *funcCompiler) compileBinary(n *parser.Binary) int {
	op, ok := binaryOps[n.Op]
	if !ok {
		panic(fmt.Sprintf("compiler: unknown binary operator %q", n.Op))
	}
	l := c.compileExpr(n.Left)
	r := c.compileExpr(n.Right)
	dst := c.allocReg()
	c.emit(rtvm.Instr{Op: op, A: dst, B: l, C: r})
	return dst
}

// compileLogical implements short-circuit &&/|| (§4.1): the right side
// must not even be evaluated when the left side already decides the
// result, so this emits a real branch rather than using OpAnd/OpOr
// (which assume both operands are already computed).
func (c *funcCompiler) compileLogical(n *parser.Logical) int {
	dst := c.allocReg()
	l := c.compileExpr(n.Left)
	c.emit(rtvm.Instr{Op: rtvm.OpMove, A: dst, B: l})
	var skip int
	switch n.Op {
	case "&&", "and":
		skip = c.emit(rtvm.Instr{Op: rtvm.OpJumpIfFalse, A: dst})
		r := c.compileExpr(n.Right)
		c.emit(rtvm.Instr{Op: rtvm.OpMove, A: dst, B: r})
		jend := c.emit(rtvm.Instr{Op: rtvm.OpJump})
		c.patch(skip)
		c.emit(rtvm.Instr{Op: rtvm.OpLoadBool, A: dst, B: 0})
		c.patch(jend)
		return dst
	case "||", "or":
		skip = c.emit(rtvm.Instr{Op: rtvm.OpJumpIfTrue, A: dst})
	default:
		panic(fmt.Sprintf("compiler: unknown logical operator %q", n.Op))
	}
	r := c.compileExpr(n.Right)
	c.emit(rtvm.Instr{Op: rtvm.OpMove, A: dst, B: r})
	c.patch(skip)
	return dst
}

func (c *funcCompiler) compileTernary(n *parser.Ternary) int {
	dst := c.allocReg()
	cond := c.compileExpr(n.Cond)
	jf := c.emit(rtvm.Instr{Op: rtvm.OpJumpIfFalse, A: cond})
	then := c.compileExpr(n.Then)
	c.emit(rtvm.Instr{Op: rtvm.OpMove, A: dst, B: then})
	jend := c.emit(rtvm.Instr{Op: rtvm.OpJump})
	c.patch(jf)
	els := c.compileExpr(n.Else)
	c.emit(rtvm.Instr{Op: rtvm.OpMove, A: dst, B: els})
	c.patch(jend)
	return dst
}

func (c *funcCompiler) compileRangedSelect(n *parser.RangedSelect) int {
	obj := c.compileExpr(n.Object)
	lo, hi := rtvm.NoReg, rtvm.NoReg
	if n.Lo != nil {
		lo = c.compileExpr(n.Lo)
	}
	if n.Hi != nil {
		hi = c.compileExpr(n.Hi)
	}
	r := c.allocReg()
	c.emit(rtvm.Instr{Op: rtvm.OpRangedSelect, A: r, B: obj, C: lo, D: hi})
	return r
}

func (c *funcCompiler) compileTableLit(n *parser.TableLit) int {
	t := c.allocReg()
	c.emit(rtvm.Instr{Op: rtvm.OpNewTable, A: t})
	for i, k := range n.Keys {
		key := c.compileExpr(k)
		val := c.compileExpr(n.Values[i])
		c.emit(rtvm.Instr{Op: rtvm.OpIndexSet, A: val, B: t, C: key})
	}
	return t
}

func (c *funcCompiler) compileCall(n *parser.Call) int {
	if n.IsMethod {
		recv := c.compileExpr(n.Callee)
		base, count := c.compileArgList(n.Args)
		r := c.allocReg()
		c.emit(rtvm.Instr{Op: rtvm.OpMethodCall, A: r, B: recv, C: base, D: count, Name: n.Method, Line: n.Pos().Line})
		return r
	}
	fn := c.compileExpr(n.Callee)
	base, count := c.compileArgList(n.Args)
	r := c.allocReg()
	c.emit(rtvm.Instr{Op: rtvm.OpCall, A: r, B: fn, C: base, D: count, Line: n.Pos().Line})
	return r
}

// lvalue is the compile-time counterpart of interp's lvalue: an
// assignable expression reduces to a load/store pair of bytecode
// emitters. Identifier, Index and Select targets are assignable, matching
// the interpreter.
type lvalue struct {
	load  func(c *funcCompiler) int
	store func(c *funcCompiler, src int)
}

func (c *funcCompiler) lvalueOf(e parser.Expr) lvalue {
	switch n := e.(type) {
	case *parser.Identifier:
		if sl, ok := c.scope.resolve(n.Name); ok {
			reg := sl.reg
			return lvalue{
				load: func(c *funcCompiler) int { return reg },
				store: func(c *funcCompiler, src int) {
					c.emit(rtvm.Instr{Op: rtvm.OpMove, A: reg, B: src})
				},
			}
		}
		name := n.Name
		return lvalue{
			load: func(c *funcCompiler) int {
				r := c.allocReg()
				c.emit(rtvm.Instr{Op: rtvm.OpGetGlobal, A: r, Name: name})
				return r
			},
			store: func(c *funcCompiler, src int) {
				c.emit(rtvm.Instr{Op: rtvm.OpSetGlobal, A: src, Name: name})
			},
		}
	case *parser.Index:
		obj := c.compileExpr(n.Object)
		key := c.compileExpr(n.Key)
		return lvalue{
			load: func(c *funcCompiler) int {
				r := c.allocReg()
				c.emit(rtvm.Instr{Op: rtvm.OpIndexGet, A: r, B: obj, C: key})
				return r
			},
			store: func(c *funcCompiler, src int) {
				c.emit(rtvm.Instr{Op: rtvm.OpIndexSet, A: src, B: obj, C: key})
			},
		}
	case *parser.Select:
		obj := c.compileExpr(n.Object)
		key := c.allocReg()
		c.emit(rtvm.Instr{Op: rtvm.OpLoadStr, A: key, Name: n.Name})
		return lvalue{
			load: func(c *funcCompiler) int {
				r := c.allocReg()
				c.emit(rtvm.Instr{Op: rtvm.OpIndexGet, A: r, B: obj, C: key})
				return r
			},
			store: func(c *funcCompiler, src int) {
				c.emit(rtvm.Instr{Op: rtvm.OpIndexSet, A: src, B: obj, C: key})
			},
		}
	default:
		panic(fmt.Sprintf("compiler: %T is not assignable", e))
	}
}

func (c *funcCompiler) compileAssign(n *parser.Assign) int {
	lv := c.lvalueOf(n.Target)
	if n.Op == "=" {
		v := c.compileExpr(n.Value)
		lv.store(c, v)
		return v
	}
	// "+=" gets its own opcode so an array receiver mutates in place
	// (object.AddAssign) the way interp.applyCompoundOp does, instead of
	// allocating a new array the way a plain Add would.
	var op rtvm.OpCode
	if n.Op == "+=" {
		op = rtvm.OpAddAssign
	} else {
		var ok bool
		op, ok = binaryOps[compoundBase(n.Op)]
		if !ok {
			panic(fmt.Sprintf("compiler: unknown compound assignment operator %q", n.Op))
		}
	}
	cur := lv.load(c)
	rhs := c.compileExpr(n.Value)
	dst := c.allocReg()
	c.emit(rtvm.Instr{Op: op, A: dst, B: cur, C: rhs})
	lv.store(c, dst)
	return dst
}

// compoundBase strips the trailing "=" from a compound-assignment
// operator ("+=" -> "+"), matching interp.applyCompoundOp's mapping.
func compoundBase(op string) string {
	if len(op) > 1 && op[len(op)-1] == '=' {
		return op[:len(op)-1]
	}
	return op
}
