// Package parser implements the recursive-descent parser (component C3):
// FIRST-set-driven production dispatch, one-token lookahead, typedef
// disambiguation via live symbol-table queries, and the two documented
// local-backtracking sites (assignment-expression LHS-prefix ambiguity;
// external-declaration function-definition-vs-declaration ambiguity).
//
// Grounded on lang/parse/parser.go: the same accumulate-and-continue error
// style (p.error/p.errorAt), the same synchronize-on-statement-boundary
// panic-mode recovery, and the same "parse one operand at the next
// precedence level, then loop while the current token matches an operator
// at this level" technique for the expression grammar, generalized from
// YAPL's grammar to the C fragment spec.md §4.3 describes.
package parser

import (
	"github.com/gmofishsauce/kcc/internal/ast"
	"github.com/gmofishsauce/kcc/internal/ctype"
	"github.com/gmofishsauce/kcc/internal/diag"
	"github.com/gmofishsauce/kcc/internal/symtab"
	"github.com/gmofishsauce/kcc/internal/token"
)

// Parser holds the token stream, the symbol table it declares names into
// while parsing (read for typedef-name disambiguation; the function and
// block scopes built in it are kept on FuncDecl.Scope/BlockStmt.Scope for
// the annotator to re-enter), and accumulated diagnostics.
type Parser struct {
	toks  token.Stream
	syms  *symtab.Table
	diags *diag.Sink

	panicMode bool
}

// New creates a Parser reading from toks, reporting into diags. syms is a
// fresh symbol table the parser declares typedefs, objects, functions,
// parameters, tags and enumerators into as it goes (spec.md §4.3). The
// annotator (C4) registers file-scope names in a table of its own but
// re-enters the function and block scopes built here, so names used inside
// function bodies resolve through this table's scope chain.
func New(toks token.Stream, syms *symtab.Table, diags *diag.Sink) *Parser {
	return &Parser{toks: toks, syms: syms, diags: diags}
}

// Parse consumes the entire token stream and returns the translation
// unit's AST. It never stops at the first error: each external declaration
// that fails to parse is skipped via synchronize and parsing continues,
// per spec.md §7's "no retries, no termination from inside the core".
func (p *Parser) Parse() *ast.Program {
	prog := &ast.Program{}
	for p.peek().Kind != token.EOF {
		d := p.parseExternalDecl()
		if d != nil {
			prog.Decls = append(prog.Decls, d)
		}
	}
	return prog
}

// --- token helpers ---

func (p *Parser) peek() token.Token { return p.toks.Peek() }

func (p *Parser) next() token.Token { return p.toks.Next() }

func (p *Parser) at(kind token.Kind, lexeme string) bool {
	t := p.peek()
	return t.Kind == kind && t.Lexeme == lexeme
}

func (p *Parser) atPunct(s string) bool   { return p.at(token.Punct, s) }
func (p *Parser) atKeyword(s string) bool { return p.at(token.Keyword, s) }

func (p *Parser) expectPunct(s string) bool {
	if p.atPunct(s) {
		p.next()
		return true
	}
	p.errorAt(p.peek().Loc, "expected %q, got %q", s, p.peek().Lexeme)
	return false
}

func (p *Parser) expectKeyword(s string) bool {
	if p.atKeyword(s) {
		p.next()
		return true
	}
	p.errorAt(p.peek().Loc, "expected keyword %q, got %q", s, p.peek().Lexeme)
	return false
}

func (p *Parser) expectIdent() (string, token.Loc, bool) {
	t := p.peek()
	if t.Kind == token.Ident {
		p.next()
		return t.Lexeme, t.Loc, true
	}
	p.errorAt(t.Loc, "expected identifier, got %q", t.Lexeme)
	return "", t.Loc, false
}

// mark/rewind save the cursor, try a parse, and rewind if it turns out to
// be the wrong alternative. They serve the label-vs-expression-statement
// lookahead, the cast-vs-parenthesized-expression test, and
// sizeof(type)-vs-sizeof-expression; parseAssignment and parseExternalDecl
// never rewind, deciding from the token after the shared prefix instead.
type checkpoint int

func (p *Parser) mark() checkpoint     { return checkpoint(p.toks.Mark()) }
func (p *Parser) rewind(c checkpoint)  { p.toks.Reset(int(c)) }

// --- error handling (accumulate-and-continue, panic-mode recovery) ---

func (p *Parser) error(format string, args ...any) {
	p.errorAt(p.peek().Loc, format, args...)
}

func (p *Parser) errorAt(loc token.Loc, format string, args ...any) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.diags.Report(diag.Error, diag.CodeParse, loc, format, args...)
}

// synchronize discards tokens up to the next statement/declaration
// boundary (`;`, `}`, or a keyword that starts a new one), matching the
// teacher's synchronize/synchronizeStmt recovery points.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.peek().Kind != token.EOF {
		t := p.peek()
		if t.Kind == token.Punct && (t.Lexeme == ";" || t.Lexeme == "}") {
			p.next()
			return
		}
		if t.Kind == token.Keyword && isDeclStart(t.Lexeme) {
			return
		}
		p.next()
	}
}

func isDeclStart(kw string) bool {
	switch kw {
	case "void", "char", "short", "int", "long", "float", "double",
		"signed", "unsigned", "struct", "union", "enum", "typedef",
		"const", "volatile", "static", "extern", "auto", "register",
		"if", "while", "for", "do", "return", "break", "continue",
		"goto", "switch", "case", "default":
		return true
	default:
		return false
	}
}

// isTypeName reports whether name denotes a typedef in the current scope,
// the live symbol-table query the parser makes to disambiguate a
// declaration from an expression statement, and a cast from a
// parenthesized expression (spec.md §4.3).
func (p *Parser) isTypeName(name string) bool {
	return p.syms.Current().IsTypedefName(name)
}

func (p *Parser) isTypeStartKeyword() bool {
	t := p.peek()
	if t.Kind != token.Keyword {
		return false
	}
	switch t.Lexeme {
	case "void", "char", "short", "int", "long", "float", "double",
		"signed", "unsigned", "_Bool", "struct", "union", "enum",
		"const", "volatile":
		return true
	default:
		return false
	}
}

// startsDeclaration is the FIRST-set test distinguishing a declaration
// from an expression/other statement at block scope.
func (p *Parser) startsDeclaration() bool {
	if p.isTypeStartKeyword() {
		return true
	}
	t := p.peek()
	if t.Kind == token.Keyword && (t.Lexeme == "typedef" || t.Lexeme == "static" ||
		t.Lexeme == "extern" || t.Lexeme == "auto" || t.Lexeme == "register") {
		return true
	}
	if t.Kind == token.Ident && p.isTypeName(t.Lexeme) {
		return true
	}
	return false
}

// --- external declarations ---

// parseExternalDecl implements the function-definition-vs-declaration
// backtracking site: declaration specifiers and the first declarator are
// shared, unambiguous grammar; only after the declarator is complete does
// the next token (`{` vs `;`/`,`/`=`) decide which alternative this is.
func (p *Parser) parseExternalDecl() ast.Decl {
	loc := p.peek().Loc
	if p.atKeyword("typedef") {
		return p.parseTypedefDecl(loc)
	}

	specs, storage := p.parseDeclSpecs()
	if p.atPunct(";") {
		p.next()
		return p.tagOnlyDecl(specs, loc)
	}

	name, declType, paramNames, isFunc := p.parseDeclarator(specs)
	if name == "" {
		p.synchronize()
		return nil
	}

	if isFunc && p.atPunct("{") {
		fd := &ast.FuncDecl{
			ast.NewDeclBase(loc, "function-definition", "def"),
			name, declType, paramNames, storage, nil, nil,
		}
		p.syms.Current().Declare(&symtab.Entry{Name: name, Type: declType, Storage: storage, IsDefined: true})
		fscope := p.syms.Push(symtab.FunctionScope)
		for i, pn := range paramNames {
			if pn != "" {
				fscope.Declare(&symtab.Entry{Name: pn, Type: declType.Params[i].Type, Storage: symtab.StorageAuto})
			}
		}
		fd.Scope = fscope
		fd.Body = p.parseBlock()
		p.syms.Pop()
		return fd
	}

	if isFunc {
		p.syms.Current().Declare(&symtab.Entry{Name: name, Type: declType, Storage: storage})
		p.expectPunct(";")
		return &ast.FuncDecl{ast.NewDeclBase(loc, "function-declaration", "proto"), name, declType, paramNames, storage, nil, nil}
	}

	vd := &ast.VarDecl{ast.NewDeclBase(loc, "declaration", "var"), name, declType, storage, nil}
	if p.atPunct("=") {
		p.next()
		vd.Init = p.parseAssignment()
	}
	p.syms.Current().Declare(&symtab.Entry{Name: name, Type: declType, Storage: storage})
	for p.atPunct(",") {
		p.next()
		n2, t2, _, _ := p.parseDeclarator(specs)
		p.syms.Current().Declare(&symtab.Entry{Name: n2, Type: t2, Storage: storage})
		_ = n2
		_ = t2
	}
	p.expectPunct(";")
	return vd
}

// tagOnlyDecl builds the declaration node for a bare `struct Foo;` /
// `struct Foo { ... };` / `enum Bar { ... };` appearing with no declarator
// of its own. It carries whatever members/enumerators specs already
// resolved (a real body just parsed, or a prior definition resolved by
// tag lookup) rather than discarding them — only a genuine forward
// reference to a tag with no definition anywhere yet is labeled "forward".
func (p *Parser) tagOnlyDecl(specs *ctype.Type, loc token.Loc) ast.Decl {
	switch specs.Kind {
	case ctype.Aggregate:
		kind := "forward"
		if len(specs.Members) > 0 {
			kind = "definition"
		}
		return &ast.RecordDecl{ast.NewDeclBase(loc, "struct-or-union-specifier", kind), specs.Tag, specs.IsUnion, fieldDecls(specs.Members)}
	case ctype.Enum:
		kind := "forward"
		if len(specs.Enumerators) > 0 {
			kind = "definition"
		}
		return &ast.EnumDecl{ast.NewDeclBase(loc, "enum-specifier", kind), specs.Tag, enumeratorDecls(specs.Enumerators)}
	}
	return nil
}

func fieldDecls(members []ctype.Member) []ast.FieldDecl {
	if len(members) == 0 {
		return nil
	}
	fields := make([]ast.FieldDecl, len(members))
	for i, m := range members {
		fields[i] = ast.FieldDecl{Name: m.Name, Type: m.Type}
	}
	return fields
}

func enumeratorDecls(enumerators []ctype.Enumerator) []ast.Enumerator {
	if len(enumerators) == 0 {
		return nil
	}
	decls := make([]ast.Enumerator, len(enumerators))
	for i, e := range enumerators {
		lit := &ast.LiteralExpr{ast.NewExprBase(token.Loc{}, "primary-expression", "int-literal"), ast.LitInt, e.Value}
		lit.SetConstValue(e.Value)
		decls[i] = ast.Enumerator{Name: e.Name, Value: lit}
	}
	return decls
}

func (p *Parser) parseTypedefDecl(loc token.Loc) ast.Decl {
	p.next() // 'typedef'
	specs, _ := p.parseDeclSpecs()
	name, declType, _, _ := p.parseDeclarator(specs)
	p.expectPunct(";")
	if name != "" {
		p.syms.Current().Declare(&symtab.Entry{Name: name, Type: declType, Storage: symtab.StorageTypedef})
	}
	return &ast.TypedefDecl{ast.NewDeclBase(loc, "typedef-declaration", "typedef"), name, declType}
}

// --- declaration specifiers and declarators ---

var basicKeywordKind = map[string]ctype.Kind{
	"void": ctype.Void, "char": ctype.Char, "short": ctype.Short, "int": ctype.Int,
	"long": ctype.Long, "float": ctype.Float, "double": ctype.Double, "_Bool": ctype.Bool,
}

// parseDeclSpecs parses storage-class specifiers, type qualifiers, and a
// type specifier (basic, struct/union/enum, or a typedef name), returning
// the named type and storage class.
func (p *Parser) parseDeclSpecs() (*ctype.Type, symtab.StorageClass) {
	storage := symtab.StorageAuto
	var quals ctype.Qualifiers
	var base *ctype.Type
	unsignedSeen, longCount := false, 0

	for {
		t := p.peek()
		if t.Kind != token.Keyword && t.Kind != token.Ident {
			break
		}
		switch t.Lexeme {
		case "typedef":
			storage = symtab.StorageTypedef
			p.next()
			continue
		case "static":
			storage = symtab.StorageStatic
			p.next()
			continue
		case "extern":
			storage = symtab.StorageExtern
			p.next()
			continue
		case "auto":
			p.next()
			continue
		case "register":
			storage = symtab.StorageRegister
			p.next()
			continue
		case "const":
			quals |= ctype.QualConst
			p.next()
			continue
		case "volatile":
			quals |= ctype.QualVolatile
			p.next()
			continue
		case "restrict":
			quals |= ctype.QualRestrict
			p.next()
			continue
		case "unsigned":
			unsignedSeen = true
			p.next()
			continue
		case "signed":
			p.next()
			continue
		case "long":
			longCount++
			p.next()
			continue
		case "struct", "union":
			base = p.parseStructOrUnionSpec()
			continue
		case "enum":
			base = p.parseEnumSpec()
			continue
		}
		if k, ok := basicKeywordKind[t.Lexeme]; ok && base == nil {
			base = ctype.NewBasic(k)
			p.next()
			continue
		}
		if t.Kind == token.Ident && base == nil && p.isTypeName(t.Lexeme) {
			base = ctype.NewTypedefRef(t.Lexeme)
			if e, ok := p.syms.Current().Lookup(symtab.OrdinaryNS, t.Lexeme); ok && e.Type != nil {
				base = e.Type.Dup()
			}
			p.next()
			continue
		}
		break
	}

	if base == nil {
		base = ctype.NewBasic(ctype.Int)
	}
	if longCount > 0 && base.Kind == ctype.Int {
		if longCount >= 2 {
			base = ctype.NewBasic(ctype.LLong)
		} else {
			base = ctype.NewBasic(ctype.Long)
		}
	}
	if longCount > 0 && base.Kind == ctype.Double {
		base = ctype.NewBasic(ctype.LDouble)
	}
	if unsignedSeen {
		base = unsignedVariant(base)
	}
	return base.Qualify(quals), storage
}

func unsignedVariant(t *ctype.Type) *ctype.Type {
	switch t.Kind {
	case ctype.Char:
		return ctype.NewBasic(ctype.UChar)
	case ctype.Short:
		return ctype.NewBasic(ctype.UShort)
	case ctype.Int:
		return ctype.NewBasic(ctype.UInt)
	case ctype.Long:
		return ctype.NewBasic(ctype.ULong)
	case ctype.LLong:
		return ctype.NewBasic(ctype.ULLong)
	default:
		return t
	}
}

// parseStructOrUnionSpec parses a struct-or-union-specifier. A tag with no
// body either forward-declares an incomplete type or, per spec.md §4.3's
// "define once, reference by tag elsewhere" idiom, refers back to a tag
// already defined earlier in the same (or an enclosing) scope — resolved
// by looking the tag up in the tag namespace rather than always minting a
// fresh, memberless aggregate.
func (p *Parser) parseStructOrUnionSpec() *ctype.Type {
	isUnion := p.peek().Lexeme == "union"
	p.next() // 'struct' or 'union'
	tag := ""
	if p.peek().Kind == token.Ident {
		tag = p.next().Lexeme
	}
	if !p.atPunct("{") {
		if tag != "" {
			if e, ok := p.syms.Current().Lookup(symtab.TagNS, tag); ok {
				return e.Type
			}
		}
		return ctype.NewAggregate(tag, nil, 0, isUnion)
	}
	p.next() // '{'
	var members []ctype.Member
	offset := 0
	for !p.atPunct("}") && p.peek().Kind != token.EOF {
		fspecs, _ := p.parseDeclSpecs()
		for {
			name, ftype, _, _ := p.parseDeclarator(fspecs)
			size, _ := ftype.Sizeof()
			members = append(members, ctype.Member{Name: name, Type: ftype, Offset: offset})
			if !isUnion {
				offset += size
			}
			if p.atPunct(",") {
				p.next()
				continue
			}
			break
		}
		p.expectPunct(";")
	}
	p.expectPunct("}")
	size := 0
	for _, m := range members {
		s, _ := m.Type.Sizeof()
		if isUnion {
			if s > size {
				size = s
			}
		} else {
			size += s
		}
	}
	agg := ctype.NewAggregate(tag, members, size, isUnion)
	if tag != "" {
		p.syms.Current().Replace(&symtab.Entry{Name: tag, Namespace: symtab.TagNS, Type: agg})
	}
	return agg
}

func (p *Parser) parseEnumSpec() *ctype.Type {
	p.next() // 'enum'
	tag := ""
	if p.peek().Kind == token.Ident {
		tag = p.next().Lexeme
	}
	if !p.atPunct("{") {
		if tag != "" {
			if e, ok := p.syms.Current().Lookup(symtab.TagNS, tag); ok {
				return e.Type
			}
		}
		return ctype.NewEnum(tag, nil)
	}
	p.next() // '{'
	var enumerators []ctype.Enumerator
	next := int64(0)
	for !p.atPunct("}") && p.peek().Kind != token.EOF {
		name, _, ok := p.expectIdent()
		if !ok {
			break
		}
		val := next
		if p.atPunct("=") {
			p.next()
			e := p.parseConditional()
			if e.IsConstExpr() {
				if iv, ok := e.ConstValue().(int64); ok {
					val = iv
				}
			}
		}
		enumerators = append(enumerators, ctype.Enumerator{Name: name, Value: val})
		p.syms.Current().Declare(&symtab.Entry{Name: name, Type: ctype.NewEnum(tag, nil), Storage: symtab.StorageAuto, ConstValue: val})
		next = val + 1
		if p.atPunct(",") {
			p.next()
			continue
		}
		break
	}
	p.expectPunct("}")
	en := ctype.NewEnum(tag, enumerators)
	if tag != "" {
		p.syms.Current().Replace(&symtab.Entry{Name: tag, Namespace: symtab.TagNS, Type: en})
	}
	return en
}

// parseDeclarator parses a (possibly abstract) declarator: pointer
// prefixes, a name, then array/function suffixes, wrapping base
// accordingly. Returns "" for name when no declarator is present at all.
func (p *Parser) parseDeclarator(base *ctype.Type) (name string, declType *ctype.Type, paramNames []string, isFunc bool) {
	t := base
	for p.atPunct("*") {
		p.next()
		var q ctype.Qualifiers
		for p.atKeyword("const") || p.atKeyword("volatile") || p.atKeyword("restrict") {
			if p.peek().Lexeme == "const" {
				q |= ctype.QualConst
			} else if p.peek().Lexeme == "volatile" {
				q |= ctype.QualVolatile
			} else {
				q |= ctype.QualRestrict
			}
			p.next()
		}
		t = ctype.NewPointer(t).Qualify(q)
	}
	if p.peek().Kind == token.Ident {
		name = p.next().Lexeme
	}

	if p.atPunct("(") {
		p.next()
		var params []ctype.Param
		variadic := false
		if !p.atPunct(")") {
			for {
				if p.atPunct("...") {
					p.next()
					variadic = true
					break
				}
				pspecs, _ := p.parseDeclSpecs()
				pname, ptype, _, _ := p.parseDeclarator(pspecs)
				params = append(params, ctype.Param{Name: pname, Type: ptype})
				paramNames = append(paramNames, pname)
				if p.atPunct(",") {
					p.next()
					continue
				}
				break
			}
		}
		p.expectPunct(")")
		t = ctype.NewFunction(t, params, variadic)
		isFunc = true
	} else {
		for p.atPunct("[") {
			p.next()
			if p.atPunct("]") {
				p.next()
				t = ctype.NewIncompleteArray(t)
				continue
			}
			sizeExpr := p.parseConditional()
			p.expectPunct("]")
			n := 0
			if sizeExpr != nil && sizeExpr.IsConstExpr() {
				if iv, ok := sizeExpr.ConstValue().(int64); ok {
					n = int(iv)
				}
			}
			t = ctype.NewArray(t, n)
		}
	}
	return name, t, paramNames, isFunc
}

// --- statements ---

func (p *Parser) parseStatement() ast.Stmt {
	t := p.peek()
	switch {
	case p.atPunct("{"):
		return p.parseBlock()
	case t.Kind == token.Keyword:
		switch t.Lexeme {
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "do":
			return p.parseDoWhile()
		case "for":
			return p.parseFor()
		case "return":
			return p.parseReturn()
		case "break":
			loc := p.next().Loc
			p.expectPunct(";")
			return &ast.BreakStmt{ast.NewStmtBase(loc, "jump-statement", "break")}
		case "continue":
			loc := p.next().Loc
			p.expectPunct(";")
			return &ast.ContinueStmt{ast.NewStmtBase(loc, "jump-statement", "continue")}
		case "goto":
			loc := p.next().Loc
			label, _, _ := p.expectIdent()
			p.expectPunct(";")
			return &ast.GotoStmt{ast.NewStmtBase(loc, "jump-statement", "goto"), label}
		case "switch":
			return p.parseSwitch()
		case "case":
			loc := p.next().Loc
			v := p.parseConditional()
			p.expectPunct(":")
			return &ast.CaseStmt{ast.NewStmtBase(loc, "labeled-statement", "case"), v}
		case "default":
			loc := p.next().Loc
			p.expectPunct(":")
			return &ast.DefaultStmt{ast.NewStmtBase(loc, "labeled-statement", "default")}
		}
	}

	if p.startsDeclaration() {
		return p.parseDeclStmt()
	}

	// label-vs-expression-statement lookahead: a bare identifier stream can
	// only be known to be a label after seeing the following `:`, so the
	// parser checkpoints, consumes the identifier, and checks for `:`
	// before committing (spec.md §4.3's token-reader has no multi-token
	// pushback, matching lang/parse/parser.go's approach).
	if t.Kind == token.Ident {
		mk := p.mark()
		name := p.next().Lexeme
		if p.atPunct(":") {
			p.next()
			stmt := p.parseStatement()
			return &ast.LabelStmt{ast.NewStmtBase(t.Loc, "labeled-statement", "label"), name, stmt}
		}
		p.rewind(mk)
	}

	return p.parseExprStmt()
}

func (p *Parser) parseDeclStmt() ast.Stmt {
	loc := p.peek().Loc
	if p.atKeyword("typedef") {
		d := p.parseTypedefDecl(loc)
		return &ast.DeclStmt{ast.NewStmtBase(loc, "declaration", "local-typedef"), d}
	}
	specs, storage := p.parseDeclSpecs()
	name, declType, _, _ := p.parseDeclarator(specs)
	vd := &ast.VarDecl{ast.NewDeclBase(loc, "declaration", "local-var"), name, declType, storage, nil}
	if p.atPunct("=") {
		p.next()
		vd.Init = p.parseAssignment()
	}
	p.syms.Current().Declare(&symtab.Entry{Name: name, Type: declType, Storage: storage})
	for p.atPunct(",") {
		p.next()
		p.parseDeclarator(specs)
	}
	p.expectPunct(";")
	return &ast.DeclStmt{ast.NewStmtBase(loc, "declaration", "local-var"), vd}
}

func (p *Parser) parseBlock() *ast.BlockStmt {
	loc := p.peek().Loc
	p.expectPunct("{")
	scope := p.syms.Push(symtab.BlockScope)
	blk := &ast.BlockStmt{ast.NewStmtBase(loc, "compound-statement", "block"), nil, scope}
	for !p.atPunct("}") && p.peek().Kind != token.EOF {
		s := p.parseStatement()
		if p.panicMode {
			p.synchronize()
		}
		if s != nil {
			blk.Stmts = append(blk.Stmts, s)
		}
	}
	p.expectPunct("}")
	p.syms.Pop()
	return blk
}

func (p *Parser) parseIf() ast.Stmt {
	loc := p.next().Loc
	p.expectPunct("(")
	cond := p.parseExpression()
	p.expectPunct(")")
	then := p.parseStatement()
	var els ast.Stmt
	if p.atKeyword("else") {
		p.next()
		els = p.parseStatement()
	}
	return &ast.IfStmt{ast.NewStmtBase(loc, "selection-statement", "if"), cond, then, els}
}

func (p *Parser) parseWhile() ast.Stmt {
	loc := p.next().Loc
	p.expectPunct("(")
	cond := p.parseExpression()
	p.expectPunct(")")
	body := p.parseStatement()
	return &ast.WhileStmt{ast.NewStmtBase(loc, "iteration-statement", "while"), cond, body}
}

func (p *Parser) parseDoWhile() ast.Stmt {
	loc := p.next().Loc
	body := p.parseStatement()
	p.expectKeyword("while")
	p.expectPunct("(")
	cond := p.parseExpression()
	p.expectPunct(")")
	p.expectPunct(";")
	return &ast.DoWhileStmt{ast.NewStmtBase(loc, "iteration-statement", "do-while"), body, cond}
}

func (p *Parser) parseFor() ast.Stmt {
	loc := p.next().Loc
	p.expectPunct("(")
	var init ast.Stmt
	if !p.atPunct(";") {
		if p.startsDeclaration() {
			init = p.parseDeclStmt()
		} else {
			init = p.parseExprStmt()
		}
	} else {
		p.next()
	}
	var cond ast.Expr
	if !p.atPunct(";") {
		cond = p.parseExpression()
	}
	p.expectPunct(";")
	var post ast.Expr
	if !p.atPunct(")") {
		post = p.parseExpression()
	}
	p.expectPunct(")")
	body := p.parseStatement()
	return &ast.ForStmt{ast.NewStmtBase(loc, "iteration-statement", "for"), init, cond, post, body}
}

func (p *Parser) parseSwitch() ast.Stmt {
	loc := p.next().Loc
	p.expectPunct("(")
	tag := p.parseExpression()
	p.expectPunct(")")
	body := p.parseStatement()
	return &ast.SwitchStmt{ast.NewStmtBase(loc, "selection-statement", "switch"), tag, body}
}

func (p *Parser) parseReturn() ast.Stmt {
	loc := p.next().Loc
	var v ast.Expr
	if !p.atPunct(";") {
		v = p.parseExpression()
	}
	p.expectPunct(";")
	return &ast.ReturnStmt{ast.NewStmtBase(loc, "jump-statement", "return"), v}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	loc := p.peek().Loc
	if p.atPunct(";") {
		p.next()
		return &ast.ExprStmt{ast.NewStmtBase(loc, "expression-statement", "empty"), nil}
	}
	e := p.parseExpression()
	p.expectPunct(";")
	return &ast.ExprStmt{ast.NewStmtBase(loc, "expression-statement", "expr"), e}
}

// --- expressions ---
//
// Precedence chain, each level "parse one operand at the next level, then
// loop while the current token matches an operator at this level":
// comma -> assignment -> conditional -> logical-or -> logical-and ->
// bit-or -> bit-xor -> bit-and -> equality -> relational -> shift ->
// additive -> multiplicative -> cast -> unary -> postfix -> primary.

func (p *Parser) parseExpression() ast.Expr {
	e := p.parseAssignment()
	for p.atPunct(",") {
		loc := p.next().Loc
		rhs := p.parseAssignment()
		e = &ast.BinaryExpr{ast.NewExprBase(loc, "expression", "comma"), ast.OpComma, e, rhs}
	}
	return e
}

var compoundAssignOps = map[string]ast.BinaryOp{
	"+=": ast.OpAdd, "-=": ast.OpSub, "*=": ast.OpMul, "/=": ast.OpDiv, "%=": ast.OpMod,
	"&=": ast.OpBitAnd, "|=": ast.OpBitOr, "^=": ast.OpBitXor, "<<=": ast.OpShl, ">>=": ast.OpShr,
}

// parseAssignment implements the assignment-expression LHS-prefix
// backtracking site: a conditional-expression and the LHS of an
// assignment share the same prefix grammar (both start with a
// unary/postfix/primary chain), so the parser parses one
// conditional-expression and only afterward decides, from the next
// token, whether to reinterpret what it parsed as an assignment target.
func (p *Parser) parseAssignment() ast.Expr {
	lhs := p.parseConditional()
	t := p.peek()
	if t.Kind == token.Punct && t.Lexeme == "=" {
		p.next()
		rhs := p.parseAssignment()
		return &ast.AssignExpr{ast.NewExprBase(t.Loc, "assignment-expression", "simple"), lhs, nil, rhs}
	}
	if op, ok := compoundAssignOps[t.Lexeme]; ok && t.Kind == token.Punct {
		p.next()
		rhs := p.parseAssignment()
		opCopy := op
		return &ast.AssignExpr{ast.NewExprBase(t.Loc, "assignment-expression", "compound"), lhs, &opCopy, rhs}
	}
	return lhs
}

func (p *Parser) parseConditional() ast.Expr {
	cond := p.parseLogicalOr()
	if p.atPunct("?") {
		loc := p.next().Loc
		then := p.parseExpression()
		p.expectPunct(":")
		els := p.parseConditional()
		return &ast.CondExpr{ast.NewExprBase(loc, "conditional-expression", "ternary"), cond, then, els}
	}
	return cond
}

func (p *Parser) binaryLevel(next func() ast.Expr, ops map[string]ast.BinaryOp, grammar string) ast.Expr {
	e := next()
	for {
		t := p.peek()
		op, ok := ops[t.Lexeme]
		if !ok || t.Kind != token.Punct {
			return e
		}
		p.next()
		rhs := next()
		e = &ast.BinaryExpr{ast.NewExprBase(t.Loc, grammar, t.Lexeme), op, e, rhs}
	}
}

func (p *Parser) parseLogicalOr() ast.Expr {
	return p.binaryLevel(p.parseLogicalAnd, map[string]ast.BinaryOp{"||": ast.OpLogOr}, "logical-or-expression")
}
func (p *Parser) parseLogicalAnd() ast.Expr {
	return p.binaryLevel(p.parseBitOr, map[string]ast.BinaryOp{"&&": ast.OpLogAnd}, "logical-and-expression")
}
func (p *Parser) parseBitOr() ast.Expr {
	return p.binaryLevel(p.parseBitXor, map[string]ast.BinaryOp{"|": ast.OpBitOr}, "inclusive-or-expression")
}
func (p *Parser) parseBitXor() ast.Expr {
	return p.binaryLevel(p.parseBitAnd, map[string]ast.BinaryOp{"^": ast.OpBitXor}, "exclusive-or-expression")
}
func (p *Parser) parseBitAnd() ast.Expr {
	return p.binaryLevel(p.parseEquality, map[string]ast.BinaryOp{"&": ast.OpBitAnd}, "and-expression")
}
func (p *Parser) parseEquality() ast.Expr {
	return p.binaryLevel(p.parseRelational, map[string]ast.BinaryOp{"==": ast.OpEq, "!=": ast.OpNe}, "equality-expression")
}
func (p *Parser) parseRelational() ast.Expr {
	return p.binaryLevel(p.parseShift, map[string]ast.BinaryOp{
		"<": ast.OpLt, "<=": ast.OpLe, ">": ast.OpGt, ">=": ast.OpGe,
	}, "relational-expression")
}
func (p *Parser) parseShift() ast.Expr {
	return p.binaryLevel(p.parseAdditive, map[string]ast.BinaryOp{"<<": ast.OpShl, ">>": ast.OpShr}, "shift-expression")
}
func (p *Parser) parseAdditive() ast.Expr {
	return p.binaryLevel(p.parseMultiplicative, map[string]ast.BinaryOp{"+": ast.OpAdd, "-": ast.OpSub}, "additive-expression")
}
func (p *Parser) parseMultiplicative() ast.Expr {
	return p.binaryLevel(p.parseCast, map[string]ast.BinaryOp{"*": ast.OpMul, "/": ast.OpDiv, "%": ast.OpMod}, "multiplicative-expression")
}

// parseCast handles `(Type) Operand`; disambiguated from a parenthesized
// expression by the same typedef/keyword FIRST-set test parseDeclSpecs
// relies on elsewhere, applied just past the `(`.
func (p *Parser) parseCast() ast.Expr {
	if p.atPunct("(") {
		mk := p.mark()
		loc := p.next().Loc
		if p.isTypeStartKeyword() || (p.peek().Kind == token.Ident && p.isTypeName(p.peek().Lexeme)) {
			specs, _ := p.parseDeclSpecs()
			_, t, _, _ := p.parseDeclarator(specs)
			if p.atPunct(")") {
				p.next()
				operand := p.parseCast()
				return &ast.CastExpr{ast.NewExprBase(loc, "cast-expression", "cast"), t, operand}
			}
		}
		p.rewind(mk)
	}
	return p.parseUnary()
}

var unaryPrefixOps = map[string]ast.UnaryOp{
	"-": ast.OpNeg, "+": ast.OpPos, "!": ast.OpNot, "~": ast.OpBitNot,
	"&": ast.OpAddr, "*": ast.OpDeref,
}

func (p *Parser) parseUnary() ast.Expr {
	t := p.peek()
	if t.Kind == token.Punct {
		if op, ok := unaryPrefixOps[t.Lexeme]; ok {
			p.next()
			operand := p.parseCast()
			return &ast.UnaryExpr{ast.NewExprBase(t.Loc, "unary-expression", t.Lexeme), op, operand}
		}
		if t.Lexeme == "++" || t.Lexeme == "--" {
			p.next()
			op := ast.OpPreInc
			if t.Lexeme == "--" {
				op = ast.OpPreDec
			}
			operand := p.parseUnary()
			return &ast.UnaryExpr{ast.NewExprBase(t.Loc, "unary-expression", "prefix-incdec"), op, operand}
		}
	}
	if t.Kind == token.Keyword && t.Lexeme == "sizeof" {
		loc := p.next().Loc
		if p.atPunct("(") {
			mk := p.mark()
			p.next()
			if p.isTypeStartKeyword() || (p.peek().Kind == token.Ident && p.isTypeName(p.peek().Lexeme)) {
				specs, _ := p.parseDeclSpecs()
				_, ty, _, _ := p.parseDeclarator(specs)
				p.expectPunct(")")
				return &ast.SizeofExpr{ast.NewExprBase(loc, "unary-expression", "sizeof-type"), ty, nil}
			}
			p.rewind(mk)
		}
		operand := p.parseUnary()
		return &ast.SizeofExpr{ast.NewExprBase(loc, "unary-expression", "sizeof-expr"), nil, operand}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	e := p.parsePrimary()
	for {
		t := p.peek()
		switch {
		case t.Kind == token.Punct && t.Lexeme == "(":
			p.next()
			var args []ast.Expr
			if !p.atPunct(")") {
				args = append(args, p.parseAssignment())
				for p.atPunct(",") {
					p.next()
					args = append(args, p.parseAssignment())
				}
			}
			p.expectPunct(")")
			e = &ast.CallExpr{ast.NewExprBase(t.Loc, "postfix-expression", "call"), e, args}
		case t.Kind == token.Punct && t.Lexeme == "[":
			p.next()
			idx := p.parseExpression()
			p.expectPunct("]")
			e = &ast.IndexExpr{ast.NewExprBase(t.Loc, "postfix-expression", "index"), e, idx}
		case t.Kind == token.Punct && t.Lexeme == ".":
			p.next()
			name, _, _ := p.expectIdent()
			e = &ast.FieldExpr{ast.NewExprBase(t.Loc, "postfix-expression", "member"), e, name, false}
		case t.Kind == token.Punct && t.Lexeme == "->":
			p.next()
			name, _, _ := p.expectIdent()
			e = &ast.FieldExpr{ast.NewExprBase(t.Loc, "postfix-expression", "arrow"), e, name, true}
		case t.Kind == token.Punct && (t.Lexeme == "++" || t.Lexeme == "--"):
			p.next()
			op := ast.OpPostInc
			if t.Lexeme == "--" {
				op = ast.OpPostDec
			}
			e = &ast.UnaryExpr{ast.NewExprBase(t.Loc, "postfix-expression", "postfix-incdec"), op, e}
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.peek()
	switch t.Kind {
	case token.Ident:
		p.next()
		return &ast.IdentExpr{ast.NewExprBase(t.Loc, "primary-expression", "ident"), t.Lexeme}
	case token.IntConst:
		p.next()
		lit := &ast.LiteralExpr{ast.NewExprBase(t.Loc, "primary-expression", "int-literal"), ast.LitInt, t.ConstValue}
		lit.SetConstValue(t.ConstValue)
		return lit
	case token.FloatConst:
		p.next()
		return &ast.LiteralExpr{ast.NewExprBase(t.Loc, "primary-expression", "float-literal"), ast.LitFloat, t.ConstValue}
	case token.CharConst:
		p.next()
		return &ast.LiteralExpr{ast.NewExprBase(t.Loc, "primary-expression", "char-literal"), ast.LitChar, t.ConstValue}
	case token.StringConst:
		p.next()
		return &ast.LiteralExpr{ast.NewExprBase(t.Loc, "primary-expression", "string-literal"), ast.LitString, t.ConstValue}
	case token.Punct:
		if t.Lexeme == "(" {
			p.next()
			e := p.parseExpression()
			p.expectPunct(")")
			return e
		}
	}
	p.error("expected expression, got %q", t.Lexeme)
	p.next()
	return &ast.LiteralExpr{ast.NewExprBase(t.Loc, "primary-expression", "error"), ast.LitInt, int64(0)}
}
