// Package parser turns a lexer.Token stream into the typed AST both
// execution providers walk (the tree-walking interpreter directly; the
// compiler as the input to its preliminary scan and codegen passes).
// Structure follows the teacher's visitor-based internal/parser/ast.go.
package parser

// Expr is any expression node.
type Expr interface {
	Accept(v ExprVisitor) interface{}
	Pos() Pos
}

// Stmt is any statement node.
type Stmt interface {
	Accept(v StmtVisitor) interface{}
	Pos() Pos
}

// Pos locates a node in its source unit for stack traces and syntax
// errors (§7).
type Pos struct {
	Line int
	Col  int
}

// position is embedded by every node to satisfy Expr/Stmt's Pos() method.
type position struct{ P Pos }

func (n position) Pos() Pos { return n.P }

// ---- Expressions ----

type IntLit struct {
	position
	Value int64
}

type NumberLit struct {
	position
	Value float64
}

type StringLit struct {
	position
	Value string
}

type BoolLit struct {
	position
	Value bool
}

type NullLit struct{ position }

type Identifier struct {
	position
	Name string
}

// Unary covers prefix `! ~ - ++ --` (the `not` keyword is stored as `!`),
// plus postfix `++`/`--` (Postfix=true). `typeof` has its own node,
// TypeofExpr.
type Unary struct {
	position
	Op      string
	Operand Expr
	Postfix bool
}

type Binary struct {
	position
	Left  Expr
	Op    string
	Right Expr
}

// Logical is split from Binary because `&&`/`||`/`and`/`or` must
// short-circuit (§4.1).
type Logical struct {
	position
	Left  Expr
	Op    string
	Right Expr
}

type Ternary struct {
	position
	Cond, Then, Else Expr
}

// Assign covers `=` and every compound-assignment operator (§4.1, §4.5.5);
// Target must be an assignable expression (Identifier, Index, Select).
type Assign struct {
	position
	Target Expr
	Op     string
	Value  Expr
}

// Call covers both plain calls `f(args)` and dot-calls `obj.method(args)`
// (Method != "" and IsMethod true means Callee is the receiver, which is
// evaluated once and passed as the implicit first argument, per §4.5.7).
type Call struct {
	position
	Callee   Expr
	Args     []Expr
	IsMethod bool
	Method   string
}

type Index struct {
	position
	Object Expr
	Key    Expr
}

// Select covers `.`, `::`, and `->` selection (§4.1). As an Assign target
// it writes only when the selected object is a table.
type Select struct {
	position
	Object Expr
	Name   string
}

// RangedSelect covers `a[i:j]`; Lo/Hi are nil when omitted (`a[:]`,
// `a[i:]`, `a[:j]`), defaulting to 0/length (§S3).
type RangedSelect struct {
	position
	Object Expr
	Lo, Hi Expr
}

type NewExpr struct {
	position
	Class Expr
	Args  []Expr
}

type TableLit struct {
	position
	Keys   []Expr
	Values []Expr
}

type ArrayLit struct {
	position
	Elements []Expr
}

type FunctionLit struct {
	position
	Params []string
	Body   *Block
}

type TypeofExpr struct {
	position
	Operand Expr
}

func (n *IntLit) Accept(v ExprVisitor) interface{}       { return v.VisitIntLit(n) }
func (n *NumberLit) Accept(v ExprVisitor) interface{}    { return v.VisitNumberLit(n) }
func (n *StringLit) Accept(v ExprVisitor) interface{}    { return v.VisitStringLit(n) }
func (n *BoolLit) Accept(v ExprVisitor) interface{}      { return v.VisitBoolLit(n) }
func (n *NullLit) Accept(v ExprVisitor) interface{}      { return v.VisitNullLit(n) }
func (n *Identifier) Accept(v ExprVisitor) interface{}   { return v.VisitIdentifier(n) }
func (n *Unary) Accept(v ExprVisitor) interface{}        { return v.VisitUnary(n) }
func (n *Binary) Accept(v ExprVisitor) interface{}       { return v.VisitBinary(n) }
func (n *Logical) Accept(v ExprVisitor) interface{}      { return v.VisitLogical(n) }
func (n *Ternary) Accept(v ExprVisitor) interface{}      { return v.VisitTernary(n) }
func (n *Assign) Accept(v ExprVisitor) interface{}       { return v.VisitAssign(n) }
func (n *Call) Accept(v ExprVisitor) interface{}         { return v.VisitCall(n) }
func (n *Index) Accept(v ExprVisitor) interface{}        { return v.VisitIndex(n) }
func (n *Select) Accept(v ExprVisitor) interface{}       { return v.VisitSelect(n) }
func (n *RangedSelect) Accept(v ExprVisitor) interface{} { return v.VisitRangedSelect(n) }
func (n *NewExpr) Accept(v ExprVisitor) interface{}      { return v.VisitNew(n) }
func (n *TableLit) Accept(v ExprVisitor) interface{}     { return v.VisitTableLit(n) }
func (n *ArrayLit) Accept(v ExprVisitor) interface{}     { return v.VisitArrayLit(n) }
func (n *FunctionLit) Accept(v ExprVisitor) interface{}  { return v.VisitFunctionLit(n) }
func (n *TypeofExpr) Accept(v ExprVisitor) interface{}   { return v.VisitTypeof(n) }

type ExprVisitor interface {
	VisitIntLit(*IntLit) interface{}
	VisitNumberLit(*NumberLit) interface{}
	VisitStringLit(*StringLit) interface{}
	VisitBoolLit(*BoolLit) interface{}
	VisitNullLit(*NullLit) interface{}
	VisitIdentifier(*Identifier) interface{}
	VisitUnary(*Unary) interface{}
	VisitBinary(*Binary) interface{}
	VisitLogical(*Logical) interface{}
	VisitTernary(*Ternary) interface{}
	VisitAssign(*Assign) interface{}
	VisitCall(*Call) interface{}
	VisitIndex(*Index) interface{}
	VisitSelect(*Select) interface{}
	VisitRangedSelect(*RangedSelect) interface{}
	VisitNew(*NewExpr) interface{}
	VisitTableLit(*TableLit) interface{}
	VisitArrayLit(*ArrayLit) interface{}
	VisitFunctionLit(*FunctionLit) interface{}
	VisitTypeof(*TypeofExpr) interface{}
}

// ---- Statements ----

type ExprStmt struct {
	position
	Expr Expr
}

type LocalDecl struct {
	position
	Name  string
	Const bool
	Value Expr
}

// IfStmt's Else, when present, is either another *IfStmt (an `else if`
// arm) or a *Block (the final `else`) — see §4.5.6.
type IfStmt struct {
	position
	Cond Expr
	Then Stmt
	Else Stmt
}

type ForStmt struct {
	position
	Init Stmt
	Cond Expr
	Post Stmt
	Body Stmt
}

type WhileStmt struct {
	position
	Cond Expr
	Body Stmt
}

type DoWhileStmt struct {
	position
	Body Stmt
	Cond Expr
}

type ReturnStmt struct {
	position
	Value Expr
}

type BreakStmt struct{ position }
type ContinueStmt struct{ position }

type Block struct {
	position
	Stmts []Stmt
}

// FunctionDecl covers `function name.path(...)`: Path has length 1 for a
// plain name, >1 for a dotted declaration (§S3). Local means `local
// function`, Const means `local const function`; a declaration without
// `local` is never const.
type FunctionDecl struct {
	position
	Path   []string
	Local  bool
	Const  bool
	Params []string
	Body   *Block
}

type SwitchCase struct {
	Value Expr
	Body  []Stmt
}

type SwitchStmt struct {
	position
	Subject Expr
	Cases   []SwitchCase
	Default []Stmt
}

// ClassDecl is parsed but, per spec.md §9's open question, execution is
// optional; neither provider here executes it.
type ClassDecl struct {
	position
	Name string
	Body []Stmt
}

type Program struct {
	position
	Stmts []Stmt
}

func (n *ExprStmt) Accept(v StmtVisitor) interface{}     { return v.VisitExprStmt(n) }
func (n *LocalDecl) Accept(v StmtVisitor) interface{}    { return v.VisitLocalDecl(n) }
func (n *IfStmt) Accept(v StmtVisitor) interface{}       { return v.VisitIf(n) }
func (n *ForStmt) Accept(v StmtVisitor) interface{}      { return v.VisitFor(n) }
func (n *WhileStmt) Accept(v StmtVisitor) interface{}    { return v.VisitWhile(n) }
func (n *DoWhileStmt) Accept(v StmtVisitor) interface{}  { return v.VisitDoWhile(n) }
func (n *ReturnStmt) Accept(v StmtVisitor) interface{}   { return v.VisitReturn(n) }
func (n *BreakStmt) Accept(v StmtVisitor) interface{}    { return v.VisitBreak(n) }
func (n *ContinueStmt) Accept(v StmtVisitor) interface{} { return v.VisitContinue(n) }
func (n *Block) Accept(v StmtVisitor) interface{}        { return v.VisitBlock(n) }
func (n *FunctionDecl) Accept(v StmtVisitor) interface{} { return v.VisitFunctionDecl(n) }
func (n *SwitchStmt) Accept(v StmtVisitor) interface{}   { return v.VisitSwitch(n) }
func (n *ClassDecl) Accept(v StmtVisitor) interface{}    { return v.VisitClass(n) }
func (n *Program) Accept(v StmtVisitor) interface{}      { return v.VisitProgram(n) }

type StmtVisitor interface {
	VisitExprStmt(*ExprStmt) interface{}
	VisitLocalDecl(*LocalDecl) interface{}
	VisitIf(*IfStmt) interface{}
	VisitFor(*ForStmt) interface{}
	VisitWhile(*WhileStmt) interface{}
	VisitDoWhile(*DoWhileStmt) interface{}
	VisitReturn(*ReturnStmt) interface{}
	VisitBreak(*BreakStmt) interface{}
	VisitContinue(*ContinueStmt) interface{}
	VisitBlock(*Block) interface{}
	VisitFunctionDecl(*FunctionDecl) interface{}
	VisitSwitch(*SwitchStmt) interface{}
	VisitClass(*ClassDecl) interface{}
	VisitProgram(*Program) interface{}
}
