// Package sema implements the semantic annotator (component C4): scope
// installation, type synthesis, and constant evaluation over the parser's
// AST, producing the annotated AST the code generator (C5) consumes.
//
// Grounded on lang/ysem/analyzer.go's two-phase Analyze (buildSymbolTables
// then typeCheck) and its typeCheckExpr type-synthesis switch, generalized
// from YAPL's single flat symbol table to the nested scope chain
// internal/symtab exposes, and from YAPL's six base types to the C basic
// types, with binary arithmetic typed as its left operand's type (see
// usualArithmeticConversion).
package sema

import (
	"github.com/gmofishsauce/kcc/internal/ast"
	"github.com/gmofishsauce/kcc/internal/ctype"
	"github.com/gmofishsauce/kcc/internal/diag"
	"github.com/gmofishsauce/kcc/internal/symtab"
	"github.com/gmofishsauce/kcc/internal/token"
)

// Annotator walks a parsed Program and fills in every Expr's annotation
// fields (scope, type, symbol, constant-evaluation flag, constant value),
// plus FuncDecl.Scope.FrameSize and BlockStmt.Scope's member offsets.
type Annotator struct {
	syms  *symtab.Table
	diags *diag.Sink

	currentFunc *ast.FuncDecl
	loopDepth   int
	switchDepth int
}

// New creates an Annotator over a fresh symbol table, reporting into diags.
func New(diags *diag.Sink) *Annotator {
	return &Annotator{syms: symtab.NewTable(), diags: diags}
}

// Table returns the symbol table built while annotating, for callers (the
// code generator) that need to resolve frame sizes and global layout.
func (a *Annotator) Table() *symtab.Table { return a.syms }

func (a *Annotator) errorAt(loc token.Loc, format string, args ...any) {
	a.diags.Report(diag.Error, diag.CodeSemantic, loc, format, args...)
}

// Annotate performs both analysis phases over prog: first registering
// every file-scope name (so mutually referencing declarations resolve
// regardless of textual order within a phase), then walking each function
// body to synthesize types and fold constants. It reports diagnostics but
// never stops at the first error, per spec.md §7.
func (a *Annotator) Annotate(prog *ast.Program) {
	for _, d := range prog.Decls {
		a.registerGlobal(d)
	}
	for _, d := range prog.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok && fd.Body != nil {
			a.annotateFunction(fd)
		}
	}
}

func (a *Annotator) registerGlobal(d ast.Decl) {
	switch n := d.(type) {
	case *ast.VarDecl:
		if _, ok := a.syms.File.LookupLocal(symtab.OrdinaryNS, n.Name); !ok {
			a.syms.File.Declare(&symtab.Entry{Name: n.Name, Namespace: symtab.OrdinaryNS, Type: n.Type, Storage: n.Storage})
		}
	case *ast.FuncDecl:
		if e, ok := a.syms.File.LookupLocal(symtab.OrdinaryNS, n.Name); ok {
			if n.Body != nil {
				e.IsDefined = true
			}
			return
		}
		a.syms.File.Declare(&symtab.Entry{Name: n.Name, Namespace: symtab.OrdinaryNS, Type: n.Type, Storage: n.Storage, IsDefined: n.Body != nil})
	case *ast.TypedefDecl:
		a.syms.File.Declare(&symtab.Entry{Name: n.Name, Namespace: symtab.OrdinaryNS, Type: n.Type, Storage: symtab.StorageTypedef})
	case *ast.RecordDecl:
		members := make([]ctype.Member, len(n.Members))
		offset, size := 0, 0
		for i, f := range n.Members {
			members[i] = ctype.Member{Name: f.Name, Type: f.Type, Offset: offset}
			s, _ := f.Type.Sizeof()
			if n.IsUnion {
				if s > size {
					size = s
				}
			} else {
				offset += s
				size += s
			}
		}
		a.syms.File.Declare(&symtab.Entry{Name: n.Tag, Namespace: symtab.TagNS, Type: ctype.NewAggregate(n.Tag, members, size, n.IsUnion)})
	case *ast.EnumDecl:
		enumerators := make([]ctype.Enumerator, len(n.Enumerators))
		for i, e := range n.Enumerators {
			var val int64
			if e.Value != nil && e.Value.IsConstExpr() {
				if iv, ok := e.Value.ConstValue().(int64); ok {
					val = iv
				}
			}
			enumerators[i] = ctype.Enumerator{Name: e.Name, Value: val}
		}
		a.syms.File.Declare(&symtab.Entry{Name: n.Tag, Namespace: symtab.TagNS, Type: ctype.NewEnum(n.Tag, enumerators)})
	}
}

// annotateFunction pushes the function's scope (reusing the one the parser
// already built, since parameter bindings were installed there), gives each
// named parameter a frame offset, walks the body statement-by-statement
// (each local adds to the same fd.Scope.FrameSize), and then restores the
// scope that was current on entry.
func (a *Annotator) annotateFunction(fd *ast.FuncDecl) {
	prevFunc := a.currentFunc
	prevScope := a.syms.Current()
	a.currentFunc = fd
	a.syms.PushScope(fd.Scope)
	for _, pn := range fd.ParamNames {
		if e, ok := fd.Scope.LookupLocal(symtab.OrdinaryNS, pn); ok && pn != "" {
			if size, err := e.Type.Sizeof(); err == nil {
				fd.Scope.FrameSize += align(size, 8)
				e.FrameOffset = -fd.Scope.FrameSize
			}
		}
	}
	a.annotateStmt(fd.Body)
	a.syms.PopTo(prevScope)
	a.currentFunc = prevFunc
}

func (a *Annotator) annotateStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.BlockStmt:
		a.syms.PushScope(n.Scope)
		for _, inner := range n.Stmts {
			a.annotateStmt(inner)
		}
		a.syms.PopTo(n.Scope.Parent)
	case *ast.DeclStmt:
		a.annotateLocalDecl(n.Decl)
	case *ast.ExprStmt:
		if n.Expr != nil {
			a.annotateExpr(n.Expr)
		}
	case *ast.IfStmt:
		a.annotateExpr(n.Cond)
		a.annotateStmt(n.Then)
		if n.Else != nil {
			a.annotateStmt(n.Else)
		}
	case *ast.WhileStmt:
		a.annotateExpr(n.Cond)
		a.loopDepth++
		a.annotateStmt(n.Body)
		a.loopDepth--
	case *ast.DoWhileStmt:
		a.loopDepth++
		a.annotateStmt(n.Body)
		a.loopDepth--
		a.annotateExpr(n.Cond)
	case *ast.ForStmt:
		if n.Init != nil {
			a.annotateStmt(n.Init)
		}
		if n.Cond != nil {
			a.annotateExpr(n.Cond)
		}
		if n.Post != nil {
			a.annotateExpr(n.Post)
		}
		a.loopDepth++
		a.annotateStmt(n.Body)
		a.loopDepth--
	case *ast.SwitchStmt:
		a.annotateExpr(n.Tag)
		a.switchDepth++
		a.annotateStmt(n.Body)
		a.switchDepth--
	case *ast.CaseStmt:
		if a.switchDepth == 0 {
			a.errorAt(n.GetLoc(), "'case' statement not in switch")
		}
		a.annotateExpr(n.Value)
	case *ast.DefaultStmt:
		if a.switchDepth == 0 {
			a.errorAt(n.GetLoc(), "'default' statement not in switch")
		}
	case *ast.ReturnStmt:
		if n.Value != nil {
			a.annotateExpr(n.Value)
		}
	case *ast.BreakStmt:
		if a.loopDepth == 0 && a.switchDepth == 0 {
			a.errorAt(n.GetLoc(), "'break' statement not in loop or switch")
		}
	case *ast.ContinueStmt:
		if a.loopDepth == 0 {
			a.errorAt(n.GetLoc(), "'continue' statement not in loop")
		}
	case *ast.GotoStmt:
		// codegen emits a jump to the label's name; the label is not checked here.
	case *ast.LabelStmt:
		a.annotateStmt(n.Stmt)
	}
}

func (a *Annotator) annotateLocalDecl(d ast.Decl) {
	switch n := d.(type) {
	case *ast.VarDecl:
		if n.Init != nil {
			a.annotateExpr(n.Init)
		}
		if e, ok := a.syms.Current().LookupLocal(symtab.OrdinaryNS, n.Name); ok {
			size, err := n.Type.Sizeof()
			if err == nil {
				fs := a.currentFunc.Scope
				fs.FrameSize += align(size, 8)
				e.FrameOffset = -fs.FrameSize
			}
		}
	case *ast.TypedefDecl:
		// already bound by the parser's live typedef query; nothing to do.
	}
}

func align(n, to int) int {
	if n <= 0 {
		return to
	}
	return (n + to - 1) / to * to
}

// annotateExpr synthesizes a type for e (spec.md §4.4's per-expression-form
// table), resolves identifiers against the live scope, and constant-folds
// where every operand is itself constant.
func (a *Annotator) annotateExpr(e ast.Expr) *ctype.Type {
	if e == nil {
		return nil
	}
	e.SetScope(a.syms.Current())

	switch n := e.(type) {
	case *ast.LiteralExpr:
		return a.annotateLiteral(n)
	case *ast.IdentExpr:
		return a.annotateIdent(n)
	case *ast.BinaryExpr:
		return a.annotateBinary(n)
	case *ast.AssignExpr:
		return a.annotateAssign(n)
	case *ast.CondExpr:
		a.annotateExpr(n.Cond)
		tt := a.annotateExpr(n.Then)
		a.annotateExpr(n.Else)
		n.SetType(tt)
		return tt
	case *ast.UnaryExpr:
		return a.annotateUnary(n)
	case *ast.CastExpr:
		a.annotateExpr(n.Operand)
		n.SetType(n.TargetType)
		if n.Operand.IsConstExpr() {
			n.SetConstValue(n.Operand.ConstValue())
		}
		return n.TargetType
	case *ast.CallExpr:
		return a.annotateCall(n)
	case *ast.IndexExpr:
		return a.annotateIndex(n)
	case *ast.FieldExpr:
		return a.annotateField(n)
	case *ast.SizeofExpr:
		return a.annotateSizeof(n)
	default:
		return nil
	}
}

func (a *Annotator) annotateLiteral(n *ast.LiteralExpr) *ctype.Type {
	var t *ctype.Type
	switch n.Kind {
	case ast.LitInt:
		t = ctype.NewBasic(ctype.Int)
		n.SetConstValue(n.Value)
	case ast.LitFloat:
		t = ctype.NewBasic(ctype.Float)
		n.SetConstValue(n.Value)
	case ast.LitChar:
		t = ctype.NewBasic(ctype.Char)
		n.SetConstValue(n.Value)
	case ast.LitString:
		t = ctype.NewArray(ctype.NewBasic(ctype.Char), len(n.Value.(string))+1)
		n.SetConstValue(n.Value)
	}
	n.SetType(t)
	return t
}

func (a *Annotator) annotateIdent(n *ast.IdentExpr) *ctype.Type {
	e, ok := a.syms.Current().Lookup(symtab.OrdinaryNS, n.Name)
	if !ok {
		a.errorAt(n.GetLoc(), "use of undeclared identifier '%s'", n.Name)
		t := ctype.NewBasic(ctype.Int)
		n.SetType(t)
		return t
	}
	n.SetSymbol(e)
	n.SetType(e.Type)
	if e.Storage == symtab.StorageAuto && e.Type.Kind == ctype.Enum && e.ConstValue != nil {
		n.SetConstValue(e.ConstValue)
	}
	return e.Type
}

func (a *Annotator) annotateBinary(n *ast.BinaryExpr) *ctype.Type {
	lt := a.annotateExpr(n.Left)
	rt := a.annotateExpr(n.Right)
	var result *ctype.Type
	switch n.Op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe, ast.OpLogAnd, ast.OpLogOr:
		result = ctype.NewBasic(ctype.Int)
	case ast.OpComma:
		result = rt
	default:
		result = usualArithmeticConversion(lt, rt)
	}
	n.SetType(result)
	if n.Left.IsConstExpr() && n.Right.IsConstExpr() && n.Op != ast.OpComma {
		if v, ok := foldBinary(n.Op, n.Left.ConstValue(), n.Right.ConstValue()); ok {
			n.SetConstValue(v)
		}
	}
	return result
}

// usualArithmeticConversion types a binary arithmetic expression E1 op E2
// as E1's type: spec.md §4.4 mandates the usual arithmetic conversions
// simplified to the left operand's type in this implementation, rather
// than C's full rank/size promotion ladder.
func usualArithmeticConversion(a_, b *ctype.Type) *ctype.Type {
	if a_ == nil {
		return b
	}
	return a_
}

func foldBinary(op ast.BinaryOp, lv, rv any) (any, bool) {
	li, lok := toInt64(lv)
	ri, rok := toInt64(rv)
	if !lok || !rok {
		return nil, false
	}
	switch op {
	case ast.OpAdd:
		return li + ri, true
	case ast.OpSub:
		return li - ri, true
	case ast.OpMul:
		return li * ri, true
	case ast.OpDiv:
		if ri == 0 {
			return nil, false
		}
		return li / ri, true
	case ast.OpMod:
		if ri == 0 {
			return nil, false
		}
		return li % ri, true
	case ast.OpBitAnd:
		return li & ri, true
	case ast.OpBitOr:
		return li | ri, true
	case ast.OpBitXor:
		return li ^ ri, true
	case ast.OpShl:
		return li << uint(ri), true
	case ast.OpShr:
		return li >> uint(ri), true
	default:
		return nil, false
	}
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func (a *Annotator) annotateAssign(n *ast.AssignExpr) *ctype.Type {
	a.annotateExpr(n.Target)
	a.annotateExpr(n.Value)
	t := n.Target.GetType()
	if t != nil && !t.IsModifiableLValueType() {
		a.errorAt(n.GetLoc(), "expression is not assignable")
	}
	n.SetType(t)
	return t
}

func (a *Annotator) annotateUnary(n *ast.UnaryExpr) *ctype.Type {
	ot := a.annotateExpr(n.Operand)
	var t *ctype.Type
	switch n.Op {
	case ast.OpAddr:
		t = ctype.NewPointer(ot)
	case ast.OpDeref:
		if ot != nil && ot.IsPointer() {
			t, _ = ot.Deref()
		} else {
			t = ctype.NewBasic(ctype.Int)
		}
	case ast.OpNot:
		t = ctype.NewBasic(ctype.Int)
	default:
		t = ot
	}
	n.SetType(t)
	if n.Operand.IsConstExpr() && (n.Op == ast.OpNeg || n.Op == ast.OpBitNot || n.Op == ast.OpNot || n.Op == ast.OpPos) {
		if iv, ok := toInt64(n.Operand.ConstValue()); ok {
			switch n.Op {
			case ast.OpNeg:
				n.SetConstValue(-iv)
			case ast.OpBitNot:
				n.SetConstValue(^iv)
			case ast.OpNot:
				if iv == 0 {
					n.SetConstValue(int64(1))
				} else {
					n.SetConstValue(int64(0))
				}
			case ast.OpPos:
				n.SetConstValue(iv)
			}
		}
	}
	return t
}

func (a *Annotator) annotateCall(n *ast.CallExpr) *ctype.Type {
	ct := a.annotateExpr(n.Callee)
	for _, arg := range n.Args {
		a.annotateExpr(arg)
	}
	if ct != nil && ct.IsFunction() {
		n.SetType(ct.Return)
		return ct.Return
	}
	if ct != nil && ct.IsPointer() && ct.Pointee != nil && ct.Pointee.IsFunction() {
		n.SetType(ct.Pointee.Return)
		return ct.Pointee.Return
	}
	a.errorAt(n.GetLoc(), "called object is not a function")
	return ctype.NewBasic(ctype.Int)
}

func (a *Annotator) annotateIndex(n *ast.IndexExpr) *ctype.Type {
	at := a.annotateExpr(n.Array)
	a.annotateExpr(n.Index)
	var t *ctype.Type
	switch {
	case at != nil && at.IsArray():
		t, _ = at.ElemType()
	case at != nil && at.IsPointer():
		t, _ = at.Deref()
	default:
		t = ctype.NewBasic(ctype.Int)
	}
	n.SetType(t)
	return t
}

func (a *Annotator) annotateField(n *ast.FieldExpr) *ctype.Type {
	bt := a.annotateExpr(n.Base)
	agg := bt
	if n.Arrow && bt != nil && bt.IsPointer() {
		agg = bt.Pointee
	}
	if agg == nil || agg.Kind != ctype.Aggregate {
		a.errorAt(n.GetLoc(), "member reference base is not a struct or union")
		return ctype.NewBasic(ctype.Int)
	}
	for _, m := range agg.Members {
		if m.Name == n.Field {
			n.SetType(m.Type)
			return m.Type
		}
	}
	a.errorAt(n.GetLoc(), "no member named '%s' in '%s'", n.Field, agg.Tag)
	return ctype.NewBasic(ctype.Int)
}

func (a *Annotator) annotateSizeof(n *ast.SizeofExpr) *ctype.Type {
	t := ctype.NewBasic(ctype.Int)
	n.SetType(t)
	var target *ctype.Type
	if n.OperandType != nil {
		target = n.OperandType
	} else if n.Operand != nil {
		target = a.annotateExpr(n.Operand)
	}
	if size, err := target.Sizeof(); err == nil {
		n.SetConstValue(int64(size))
	}
	return t
}
