package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/kcc/internal/ast"
	"github.com/gmofishsauce/kcc/internal/ctype"
	"github.com/gmofishsauce/kcc/internal/diag"
	"github.com/gmofishsauce/kcc/internal/lexer"
	"github.com/gmofishsauce/kcc/internal/symtab"
	"github.com/gmofishsauce/kcc/internal/token"
)

func parse(t *testing.T, src string) (*ast.Program, *diag.Sink) {
	t.Helper()
	toks, err := lexer.TokenizeAll(strings.NewReader(src), "t.c")
	if err != nil {
		t.Fatalf("TokenizeAll: %v", err)
	}
	syms := symtab.NewTable()
	diags := diag.NewSink()
	p := New(token.NewSliceStream(toks), syms, diags)
	return p.Parse(), diags
}

func TestParseSimpleFunctionDefinition(t *testing.T) {
	prog, diags := parse(t, "int add(int a, int b) { return a + b; }")
	if diags.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", diags.Entries())
	}
	if len(prog.Decls) != 1 {
		t.Fatalf("got %d decls, want 1", len(prog.Decls))
	}
	fd, ok := prog.Decls[0].(*ast.FuncDecl)
	if !ok {
		t.Fatalf("decl 0 is %T, want *ast.FuncDecl", prog.Decls[0])
	}
	if fd.Name != "add" || fd.Body == nil {
		t.Fatalf("FuncDecl = %+v, want a defined function named add", fd)
	}
	if len(fd.Body.Stmts) != 1 {
		t.Fatalf("body has %d statements, want 1", len(fd.Body.Stmts))
	}
	ret, ok := fd.Body.Stmts[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("stmt 0 is %T, want *ast.ReturnStmt", fd.Body.Stmts[0])
	}
	bin, ok := ret.Value.(*ast.BinaryExpr)
	if !ok || bin.Op != ast.OpAdd {
		t.Fatalf("return value = %+v, want a + binary expression", ret.Value)
	}
}

func TestParseFunctionPrototypeVsDefinition(t *testing.T) {
	prog, diags := parse(t, "int f(void); int f(void) { return 0; }")
	if diags.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", diags.Entries())
	}
	if len(prog.Decls) != 2 {
		t.Fatalf("got %d decls, want 2", len(prog.Decls))
	}
	proto := prog.Decls[0].(*ast.FuncDecl)
	if proto.Body != nil {
		t.Errorf("first declaration should be a prototype with nil Body")
	}
	def := prog.Decls[1].(*ast.FuncDecl)
	if def.Body == nil {
		t.Errorf("second declaration should be a definition with non-nil Body")
	}
}

func TestParseGlobalVarDecl(t *testing.T) {
	prog, diags := parse(t, "int counter = 5;")
	if diags.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", diags.Entries())
	}
	vd := prog.Decls[0].(*ast.VarDecl)
	if vd.Name != "counter" {
		t.Fatalf("VarDecl.Name = %q, want counter", vd.Name)
	}
	lit, ok := vd.Init.(*ast.LiteralExpr)
	if !ok || lit.Value.(int64) != 5 {
		t.Fatalf("VarDecl.Init = %+v, want literal 5", vd.Init)
	}
}

func TestTypedefDisambiguatesDeclarationFromCall(t *testing.T) {
	src := `
		typedef int myint;
		int f(void) {
			myint x;
			x = 3;
			return x;
		}
	`
	prog, diags := parse(t, src)
	if diags.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", diags.Entries())
	}
	fd := prog.Decls[1].(*ast.FuncDecl)
	declStmt, ok := fd.Body.Stmts[0].(*ast.DeclStmt)
	if !ok {
		t.Fatalf("first statement is %T, want *ast.DeclStmt (myint must parse as a declaration)", fd.Body.Stmts[0])
	}
	vd := declStmt.Decl.(*ast.VarDecl)
	if vd.Name != "x" {
		t.Errorf("declared variable name = %q, want x", vd.Name)
	}
}

func TestParseLabelVsExpressionStatement(t *testing.T) {
	src := `
		int f(void) {
			goto done;
			done: return 1;
		}
	`
	prog, diags := parse(t, src)
	if diags.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", diags.Entries())
	}
	fd := prog.Decls[0].(*ast.FuncDecl)
	label, ok := fd.Body.Stmts[1].(*ast.LabelStmt)
	if !ok {
		t.Fatalf("second statement is %T, want *ast.LabelStmt", fd.Body.Stmts[1])
	}
	if label.Label != "done" {
		t.Errorf("label name = %q, want done", label.Label)
	}
	if _, ok := label.Stmt.(*ast.ReturnStmt); !ok {
		t.Errorf("labeled statement should wrap the return statement")
	}
}

func TestParseAssignmentVsConditionalBacktracking(t *testing.T) {
	prog, diags := parse(t, "int f(void) { int x; x = x ? 1 : 2; return x; }")
	if diags.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", diags.Entries())
	}
	fd := prog.Decls[0].(*ast.FuncDecl)
	exprStmt := fd.Body.Stmts[1].(*ast.ExprStmt)
	assign, ok := exprStmt.Expr.(*ast.AssignExpr)
	if !ok {
		t.Fatalf("got %T, want *ast.AssignExpr", exprStmt.Expr)
	}
	if _, ok := assign.Value.(*ast.CondExpr); !ok {
		t.Errorf("assignment RHS = %T, want *ast.CondExpr", assign.Value)
	}
}

func TestParseCastVsParenthesizedExpr(t *testing.T) {
	src := `
		int f(void) {
			int x;
			double y;
			x = (int) y;
			return x;
		}
	`
	prog, diags := parse(t, src)
	if diags.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", diags.Entries())
	}
	fd := prog.Decls[0].(*ast.FuncDecl)
	exprStmt := fd.Body.Stmts[2].(*ast.ExprStmt)
	assign := exprStmt.Expr.(*ast.AssignExpr)
	cast, ok := assign.Value.(*ast.CastExpr)
	if !ok {
		t.Fatalf("assignment RHS = %T, want *ast.CastExpr", assign.Value)
	}
	if cast.TargetType.Kind != ctype.Int {
		t.Errorf("cast target type = %v, want Int", cast.TargetType.Kind)
	}
}

func TestParseStructDeclaration(t *testing.T) {
	src := `
		struct point { int x; int y; };
		struct point origin;
	`
	prog, diags := parse(t, src)
	if diags.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", diags.Entries())
	}
	if len(prog.Decls) != 2 {
		t.Fatalf("got %d decls, want 2", len(prog.Decls))
	}
	vd := prog.Decls[1].(*ast.VarDecl)
	require.Equal(t, ctype.Aggregate, vd.Type.Kind)
	require.Equal(t, "point", vd.Type.Tag)
	require.False(t, vd.Type.IsUnion)
	// A tag referenced after its definition must resolve to the real
	// layout, not a freshly minted incomplete aggregate.
	require.Len(t, vd.Type.Members, 2)
	require.Equal(t, "x", vd.Type.Members[0].Name)
	require.Equal(t, "y", vd.Type.Members[1].Name)
	size, err := vd.Type.Sizeof()
	require.NoError(t, err)
	require.Equal(t, 8, size)
}

func TestParseStructTagDefinitionIsCapturedInRecordDecl(t *testing.T) {
	src := `
		struct point { int x; int y; };
		struct point origin;
	`
	prog, diags := parse(t, src)
	if diags.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", diags.Entries())
	}
	def := prog.Decls[0].(*ast.RecordDecl)
	require.Equal(t, "point", def.Tag)
	require.Len(t, def.Members, 2)
}

func TestParseSyntaxErrorRecoversAndReportsDiagnostic(t *testing.T) {
	prog, diags := parse(t, "int f(void) { return 1 2; } int g(void) { return 3; }")
	if !diags.HasErrors() {
		t.Fatalf("expected a diagnostic for the malformed statement")
	}
	// Recovery must still let the second, well-formed function parse.
	var names []string
	for _, d := range prog.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok {
			names = append(names, fd.Name)
		}
	}
	found := false
	for _, n := range names {
		if n == "g" {
			found = true
		}
	}
	if !found {
		t.Errorf("parser should recover and still parse function g, got decls %v", names)
	}
}
