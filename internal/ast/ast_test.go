package ast

import (
	"testing"

	"github.com/gmofishsauce/kcc/internal/ctype"
	"github.com/gmofishsauce/kcc/internal/token"
)

func TestNewExprBaseFieldsAndAnnotation(t *testing.T) {
	loc := token.Loc{File: "t.c", Line: 4}
	id := &IdentExpr{baseExpr: NewExprBase(loc, "primary-expression", "identifier"), Name: "x"}

	if id.GetLoc() != loc {
		t.Errorf("GetLoc() = %v, want %v", id.GetLoc(), loc)
	}
	if id.GetGrammar() != "primary-expression" {
		t.Errorf("GetGrammar() = %q", id.GetGrammar())
	}
	if id.GetType() != nil {
		t.Errorf("a fresh node must have a nil type before annotation")
	}
	ty := ctype.NewBasic(ctype.Int)
	id.SetType(ty)
	if id.GetType() != ty {
		t.Errorf("SetType/GetType round-trip failed")
	}
	if id.IsConstExpr() {
		t.Errorf("a fresh node must not report IsConstExpr before annotation")
	}
	id.SetConstValue(int64(5))
	if !id.IsConstExpr() || id.ConstValue().(int64) != 5 {
		t.Errorf("SetConstValue must also flip IsConstExpr true")
	}
}

func TestNewStmtAndDeclBase(t *testing.T) {
	loc := token.Loc{File: "t.c", Line: 1}
	brk := &BreakStmt{baseStmt: NewStmtBase(loc, "jump-statement", "break")}
	if brk.GetGrammar() != "jump-statement" {
		t.Errorf("BreakStmt grammar tag not preserved")
	}

	vd := &VarDecl{
		baseDecl: NewDeclBase(loc, "declaration", "var"),
		Name:     "x",
		Type:     ctype.NewBasic(ctype.Int),
	}
	if vd.GetAlt() != "var" {
		t.Errorf("VarDecl alt tag not preserved")
	}
	var _ Decl = vd
	var _ Stmt = brk
}

func TestConcreteNodesSatisfyInterfaces(t *testing.T) {
	var _ Expr = &BinaryExpr{}
	var _ Expr = &AssignExpr{}
	var _ Expr = &CondExpr{}
	var _ Expr = &UnaryExpr{}
	var _ Expr = &CastExpr{}
	var _ Expr = &CallExpr{}
	var _ Expr = &IndexExpr{}
	var _ Expr = &FieldExpr{}
	var _ Expr = &IdentExpr{}
	var _ Expr = &LiteralExpr{}
	var _ Expr = &SizeofExpr{}

	var _ Stmt = &BlockStmt{}
	var _ Stmt = &DeclStmt{}
	var _ Stmt = &ExprStmt{}
	var _ Stmt = &IfStmt{}
	var _ Stmt = &WhileStmt{}
	var _ Stmt = &DoWhileStmt{}
	var _ Stmt = &ForStmt{}
	var _ Stmt = &SwitchStmt{}
	var _ Stmt = &CaseStmt{}
	var _ Stmt = &DefaultStmt{}
	var _ Stmt = &ReturnStmt{}
	var _ Stmt = &BreakStmt{}
	var _ Stmt = &ContinueStmt{}
	var _ Stmt = &GotoStmt{}
	var _ Stmt = &LabelStmt{}

	var _ Decl = &VarDecl{}
	var _ Decl = &FuncDecl{}
	var _ Decl = &TypedefDecl{}
	var _ Decl = &RecordDecl{}
	var _ Decl = &EnumDecl{}
}

func TestWalkVisitsNestedExpressions(t *testing.T) {
	loc := token.Loc{}
	one := &LiteralExpr{baseExpr: NewExprBase(loc, "", ""), Kind: LitInt, Value: int64(1)}
	two := &LiteralExpr{baseExpr: NewExprBase(loc, "", ""), Kind: LitInt, Value: int64(2)}
	sum := &BinaryExpr{baseExpr: NewExprBase(loc, "", ""), Op: OpAdd, Left: one, Right: two}
	ret := &ReturnStmt{baseStmt: NewStmtBase(loc, "", ""), Value: sum}

	var seen []Expr
	Walk(ret, func(e Expr) { seen = append(seen, e) })

	if len(seen) != 3 {
		t.Fatalf("Walk visited %d expressions, want 3 (sum, one, two)", len(seen))
	}
	if seen[0] != Expr(sum) {
		t.Errorf("Walk should visit the top-level expression first")
	}
}

func TestWalkDescendsIntoNestedStatements(t *testing.T) {
	loc := token.Loc{}
	lit := &LiteralExpr{baseExpr: NewExprBase(loc, "", ""), Kind: LitInt, Value: int64(7)}
	inner := &ExprStmt{baseStmt: NewStmtBase(loc, "", ""), Expr: lit}
	block := &BlockStmt{baseStmt: NewStmtBase(loc, "", ""), Stmts: []Stmt{inner}}
	outer := &WhileStmt{baseStmt: NewStmtBase(loc, "", ""), Cond: &IdentExpr{baseExpr: NewExprBase(loc, "", ""), Name: "c"}, Body: block}

	var seen []Expr
	Walk(outer, func(e Expr) { seen = append(seen, e) })
	if len(seen) != 2 {
		t.Fatalf("Walk visited %d expressions, want 2 (cond, literal in block)", len(seen))
	}
}

func TestWalkHandlesNilStmt(t *testing.T) {
	Walk(nil, func(e Expr) { t.Fatalf("must not call visit on a nil statement tree") })
}
