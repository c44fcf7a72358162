// Package ast implements the AST and annotated-AST node shapes shared by
// the parser (C3), semantic annotator (C4), and code generator (C5), per
// spec.md §3.
//
// Grounded on lang/yparse/ast.go's Decl/Stmt/Expr interface set and
// baseExpr embedding pattern, generalized from YAPL's declaration/
// statement/expression grammar to the C fragment spec.md §4.3 describes,
// and from intrusive first-child/next-sibling node links to tagged Go
// interfaces plus concrete structs — the idiomatic replacement spec.md §9's
// design note itself suggests in place of the original's node list.
package ast

import (
	"github.com/gmofishsauce/kcc/internal/ctype"
	"github.com/gmofishsauce/kcc/internal/symtab"
	"github.com/gmofishsauce/kcc/internal/token"
)

// Meta carries the GrammarName/ProductionAlt traceability tag plus source
// location that every node in spec.md §3's AST carries, regardless of
// which interface (Decl/Stmt/Expr) the node implements.
type Meta struct {
	Loc     token.Loc
	Grammar string // grammar nonterminal this node instantiates
	Alt     string // which production alternative produced it
}

func (m Meta) GetLoc() token.Loc    { return m.Loc }
func (m Meta) GetGrammar() string   { return m.Grammar }
func (m Meta) GetAlt() string       { return m.Alt }

// Node is the common ancestor of every AST node.
type Node interface {
	GetLoc() token.Loc
	GetGrammar() string
	GetAlt() string
}

// Decl is any top-level (file-scope) declaration.
type Decl interface {
	Node
	declNode()
}

// Stmt is any statement appearing inside a function body.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is any expression; annotated fields (scope/type/symbol/constant)
// are populated by the semantic annotator (C4) and read by the code
// generator (C5) — spec.md §3's "annotated AST" is the same node value
// with these fields filled in, not a separate wrapper type, matching the
// teacher's baseExpr embedding.
type Expr interface {
	Node
	exprNode()

	// GetType returns the synthesized type, nil before annotation.
	GetType() *ctype.Type
	SetType(*ctype.Type)

	// GetScope returns the scope this expression was resolved in, nil
	// before annotation.
	GetScope() *symtab.Scope
	SetScope(*symtab.Scope)

	// GetSymbol returns the bound symbol-table entry for identifier-rooted
	// expressions (IdentExpr, and the callee of a CallExpr); nil
	// otherwise and before annotation.
	GetSymbol() *symtab.Entry
	SetSymbol(*symtab.Entry)

	// IsConstExpr/ConstValue expose constant-evaluation results: the
	// annotator sets IsConstExpr true and ConstValue to the folded value
	// for any expression it can fully evaluate at compile time
	// (spec.md §4.4).
	IsConstExpr() bool
	ConstValue() any
	SetConstValue(any)
}

// baseExpr is embedded by every concrete expression node, providing the
// five annotation fields inline on the node itself.
type baseExpr struct {
	Meta
	Type_    *ctype.Type
	Scope_   *symtab.Scope
	Symbol_  *symtab.Entry
	IsConst_ bool
	Const_   any
}

func (b *baseExpr) exprNode() {}

func (b *baseExpr) GetType() *ctype.Type   { return b.Type_ }
func (b *baseExpr) SetType(t *ctype.Type)  { b.Type_ = t }
func (b *baseExpr) GetScope() *symtab.Scope  { return b.Scope_ }
func (b *baseExpr) SetScope(s *symtab.Scope) { b.Scope_ = s }
func (b *baseExpr) GetSymbol() *symtab.Entry   { return b.Symbol_ }
func (b *baseExpr) SetSymbol(e *symtab.Entry)  { b.Symbol_ = e }
func (b *baseExpr) IsConstExpr() bool { return b.IsConst_ }
func (b *baseExpr) ConstValue() any   { return b.Const_ }
func (b *baseExpr) SetConstValue(v any) {
	b.IsConst_ = true
	b.Const_ = v
}

type baseStmt struct{ Meta }

func (b *baseStmt) stmtNode() {}

type baseDecl struct{ Meta }

func (b *baseDecl) declNode() {}

// NewExprBase constructs the embeddable annotation-bearing base for a
// concrete expression node. Builder packages (parser) call this rather
// than naming baseExpr directly, since it is unexported: Go allows an
// exported function to return an unexported type, and the result can be
// used as a composite-literal field value without ever naming the type.
func NewExprBase(loc token.Loc, grammar, alt string) baseExpr {
	return baseExpr{Meta: Meta{Loc: loc, Grammar: grammar, Alt: alt}}
}

// NewStmtBase constructs the embeddable base for a concrete statement node.
func NewStmtBase(loc token.Loc, grammar, alt string) baseStmt {
	return baseStmt{Meta{Loc: loc, Grammar: grammar, Alt: alt}}
}

// NewDeclBase constructs the embeddable base for a concrete declaration node.
func NewDeclBase(loc token.Loc, grammar, alt string) baseDecl {
	return baseDecl{Meta{Loc: loc, Grammar: grammar, Alt: alt}}
}

// --- Program ---

// Program is the root node: the translation unit's ordered declaration
// list, matching spec.md §3's top-level AST shape.
type Program struct {
	Decls []Decl
}

// --- Declarations ---

// VarDecl is a file-scope or block-scope object declaration, with an
// optional initializer.
type VarDecl struct {
	baseDecl
	Name    string
	Type    *ctype.Type
	Storage symtab.StorageClass
	Init    Expr // nil if uninitialized
}

// FuncDecl is both a function prototype (Body == nil) and a function
// definition (Body != nil); spec.md's external-declaration backtracking
// site distinguishes these only after seeing `;` vs `{`.
type FuncDecl struct {
	baseDecl
	Name       string
	Type       *ctype.Type // Function type: params + return + variadic
	ParamNames []string    // parallel to Type.Params, empty names allowed
	Storage    symtab.StorageClass
	Body       *BlockStmt // nil for a prototype-only declaration

	// Scope is the function's own FunctionScope, pushed when the body is
	// parsed and walked by the annotator to compute FrameSize.
	Scope *symtab.Scope
}

// TypedefDecl introduces a typedef name bound to Type.
type TypedefDecl struct {
	baseDecl
	Name string
	Type *ctype.Type
}

// RecordDecl declares or defines a struct/union tag. Members is empty for
// a forward reference (`struct foo;`).
type RecordDecl struct {
	baseDecl
	Tag     string
	IsUnion bool
	Members []FieldDecl
}

// FieldDecl is one member of a struct/union, with an optional bit-field
// width (spec.md §4.3 supplement).
type FieldDecl struct {
	Loc        token.Loc
	Name       string
	Type       *ctype.Type
	BitWidth   Expr // nil if not a bit-field
	BitOffset  int  // not computed by the parser or the annotator; stays 0
}

// EnumDecl declares or defines an enum tag with its enumerator list.
type EnumDecl struct {
	baseDecl
	Tag         string
	Enumerators []Enumerator
}

// Enumerator is one `name` or `name = expr` entry in an enum specifier.
type Enumerator struct {
	Loc   token.Loc
	Name  string
	Value Expr // nil if implicitly (previous + 1)
}

// --- Statements ---

// BlockStmt is a compound statement `{ ... }`; each BlockStmt owns its own
// BlockScope, pushed by the parser and recorded here for the annotator.
type BlockStmt struct {
	baseStmt
	Stmts []Stmt
	Scope *symtab.Scope
}

// DeclStmt wraps a block-scope declaration (VarDecl or TypedefDecl)
// appearing among statements.
type DeclStmt struct {
	baseStmt
	Decl Decl
}

// ExprStmt is an expression evaluated for its side effects, or an empty
// statement when Expr is nil.
type ExprStmt struct {
	baseStmt
	Expr Expr
}

// IfStmt is `if (Cond) Then [else Else]`.
type IfStmt struct {
	baseStmt
	Cond Expr
	Then Stmt
	Else Stmt // nil if no else clause
}

// WhileStmt is `while (Cond) Body`.
type WhileStmt struct {
	baseStmt
	Cond Expr
	Body Stmt
}

// DoWhileStmt is `do Body while (Cond);` (spec.md §4.3 supplement).
type DoWhileStmt struct {
	baseStmt
	Body Stmt
	Cond Expr
}

// ForStmt is `for (Init; Cond; Post) Body`; any of Init/Cond/Post may be nil.
type ForStmt struct {
	baseStmt
	Init Stmt // an ExprStmt or DeclStmt, per C's for-init-statement grammar
	Cond Expr
	Post Expr
	Body Stmt
}

// SwitchStmt is `switch (Tag) Body` (spec.md §4.3 supplement); Body is
// almost always a BlockStmt containing CaseStmt/DefaultStmt markers.
type SwitchStmt struct {
	baseStmt
	Tag  Expr
	Body Stmt
}

// CaseStmt is a `case Value:` label; Value must be a constant expression.
type CaseStmt struct {
	baseStmt
	Value Expr
}

// DefaultStmt is a `default:` label.
type DefaultStmt struct {
	baseStmt
}

// ReturnStmt is `return [Value];`.
type ReturnStmt struct {
	baseStmt
	Value Expr // nil for a bare `return;`
}

// BreakStmt is `break;`.
type BreakStmt struct{ baseStmt }

// ContinueStmt is `continue;`.
type ContinueStmt struct{ baseStmt }

// GotoStmt is `goto Label;`.
type GotoStmt struct {
	baseStmt
	Label string
}

// LabelStmt is `Label: Stmt`.
type LabelStmt struct {
	baseStmt
	Label string
	Stmt  Stmt
}

// --- Expressions ---

// BinaryOp enumerates C's binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpLogAnd
	OpLogOr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpComma
)

func (o BinaryOp) String() string {
	names := map[BinaryOp]string{
		OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
		OpBitAnd: "&", OpBitOr: "|", OpBitXor: "^", OpShl: "<<", OpShr: ">>",
		OpLogAnd: "&&", OpLogOr: "||", OpEq: "==", OpNe: "!=",
		OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=", OpComma: ",",
	}
	if s, ok := names[o]; ok {
		return s
	}
	return "?"
}

// UnaryOp enumerates C's prefix unary operators plus postfix ++/--.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpPos
	OpNot
	OpBitNot
	OpAddr
	OpDeref
	OpPreInc
	OpPreDec
	OpPostInc
	OpPostDec
)

func (o UnaryOp) String() string {
	names := map[UnaryOp]string{
		OpNeg: "-", OpPos: "+", OpNot: "!", OpBitNot: "~",
		OpAddr: "&", OpDeref: "*",
		OpPreInc: "++", OpPreDec: "--", OpPostInc: "++", OpPostDec: "--",
	}
	if s, ok := names[o]; ok {
		return s
	}
	return "?"
}

// BinaryExpr is `Left Op Right`.
type BinaryExpr struct {
	baseExpr
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// AssignExpr is `Target CompoundOp= Value`; CompoundOp is OpAdd etc. for
// `+=` and the like, and has no meaning (ignored) for plain `=`.
type AssignExpr struct {
	baseExpr
	Target     Expr
	CompoundOp *BinaryOp // nil for plain `=`
	Value      Expr
}

// CondExpr is the ternary `Cond ? Then : Else` (spec.md §4.3 supplement).
type CondExpr struct {
	baseExpr
	Cond Expr
	Then Expr
	Else Expr
}

// UnaryExpr covers every unary/prefix and postfix inc/dec operator.
type UnaryExpr struct {
	baseExpr
	Op      UnaryOp
	Operand Expr
}

// CastExpr is `(TargetType) Operand`.
type CastExpr struct {
	baseExpr
	TargetType *ctype.Type
	Operand    Expr
}

// CallExpr is `Callee(Args...)`.
type CallExpr struct {
	baseExpr
	Callee Expr
	Args   []Expr
}

// IndexExpr is `Array[Index]`.
type IndexExpr struct {
	baseExpr
	Array Expr
	Index Expr
}

// FieldExpr is `Base.Field` (Arrow == false) or `Base->Field` (Arrow == true).
type FieldExpr struct {
	baseExpr
	Base  Expr
	Field string
	Arrow bool
}

// IdentExpr is a bare identifier reference, resolved by the annotator via
// symtab.Scope.Lookup and recorded in baseExpr.Symbol_.
type IdentExpr struct {
	baseExpr
	Name string
}

// LitKind distinguishes the literal forms produced by the lexer.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitChar
	LitString
)

// LiteralExpr is any constant literal; Value's dynamic type matches
// token.Token.ConstValue's convention (int64/float64/int64/string).
type LiteralExpr struct {
	baseExpr
	Kind  LitKind
	Value any
}

// SizeofExpr is `sizeof(Type)` (OperandType != nil) or `sizeof Operand`
// (OperandType == nil).
type SizeofExpr struct {
	baseExpr
	OperandType *ctype.Type
	Operand     Expr
}

