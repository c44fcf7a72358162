// Compiler walks the annotated AST and emits x86-64 instructions, one
// function at a time, using RegAllocator for value placement and
// LiteralPool for non-integer constants.
//
// Grounded on lang/ygen/emit.go's per-statement/per-expression emission
// style (a named helper method per construct, labels minted as needed)
// and lang/ysem/ir.go's IRGen loop-label-stack pattern for break/continue
// target tracking, retargeted from YAPL's virtual-register IR to direct
// x86-64 register emission since spec.md §4.5 specifies the register
// allocator and instruction selection directly, with no separate IR step.
package codegen

import (
	"fmt"

	"github.com/gmofishsauce/kcc/internal/ast"
	"github.com/gmofishsauce/kcc/internal/ctype"
	"github.com/gmofishsauce/kcc/internal/diag"
	"github.com/gmofishsauce/kcc/internal/symtab"
)

// Compiler holds the cross-function state: the instruction stream, the
// literal pool, and diagnostics. Per-function state (register allocator,
// loop label stack, current function) is reset at each FuncDecl.
type Compiler struct {
	out   *Stream
	pool  *LiteralPool
	diags *diag.Sink

	regs      *RegAllocator
	curFunc   *ast.FuncDecl
	loopStack []loopLabels
}

type loopLabels struct {
	continueLabel string
	breakLabel    string
}

// New creates a Compiler writing into a fresh instruction stream.
func New(diags *diag.Sink) *Compiler {
	return &Compiler{out: NewStream(), pool: NewLiteralPool(), diags: diags}
}

// Compile emits code for every function definition in prog, in
// declaration order, preceded by the literal pool (spec.md §4.5: the
// pool is assigned during a file-scope pass before codegen proper).
func (c *Compiler) Compile(prog *ast.Program, syms *symtab.Table) *Stream {
	bodies := make([]*ast.FuncDecl, 0, len(prog.Decls))
	for _, d := range prog.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok && fd.Body != nil {
			bodies = append(bodies, fd)
			c.collectLiterals(fd.Body)
		}
	}
	c.pool.Emit(c.out)
	c.out.Directive(".text")
	for _, fd := range bodies {
		c.compileFunc(fd)
	}
	return c.out
}

func (c *Compiler) compileFunc(fd *ast.FuncDecl) {
	c.curFunc = fd
	c.regs = NewRegAllocator()
	c.out.Directive(".globl " + fd.Name)
	c.out.Label(fd.Name)
	c.out.Push("rbp")
	c.out.Mov("rbp", "rsp")
	frameSize := align16(fd.Scope.FrameSize)
	if frameSize > 0 {
		c.out.Sub("rsp", fmt.Sprintf("%d", frameSize))
	}
	c.bindParams(fd)
	c.compileStmt(fd.Body)
	c.emitEpilogue()
	c.curFunc = nil
}

func align16(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + 15) / 16 * 16
}

// argIntRegs is the System V AMD64 argument-passing order for integer
// parameters, used only to move incoming arguments into the frame; this
// is a calling-convention fact, not part of the allocator's own
// fixed-priority policy.
var argIntRegs = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

func (c *Compiler) bindParams(fd *ast.FuncDecl) {
	for i, name := range fd.ParamNames {
		if name == "" || i >= len(argIntRegs) {
			continue
		}
		e, ok := fd.Scope.LookupLocal(symtab.OrdinaryNS, name)
		if !ok {
			continue
		}
		c.out.Mov(memOperand(e.FrameOffset), argIntRegs[i])
	}
}

func (c *Compiler) emitEpilogue() {
	c.out.Mov("rsp", "rbp")
	c.out.Pop("rbp")
	c.out.Ret()
}

func memOperand(offset int) string {
	if offset < 0 {
		return fmt.Sprintf("%d(%%rbp)", offset)
	}
	return fmt.Sprintf("%d(%%rbp)", offset)
}

// collectLiterals pre-scans a function body for float/string literals so
// the literal pool is fully populated before any code is emitted,
// matching spec.md §4.5's file-scope pool-assignment pass.
func (c *Compiler) collectLiterals(s ast.Stmt) {
	ast.Walk(s, func(e ast.Expr) {
		if lit, ok := e.(*ast.LiteralExpr); ok {
			switch lit.Kind {
			case ast.LitFloat:
				c.pool.AddFloat(lit.Value.(float64))
			case ast.LitString:
				c.pool.AddString(lit.Value.(string))
			}
		}
	})
}

// --- statements ---

func (c *Compiler) compileStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.BlockStmt:
		for _, inner := range n.Stmts {
			c.compileStmt(inner)
		}
	case *ast.DeclStmt:
		c.compileDeclStmt(n)
	case *ast.ExprStmt:
		if n.Expr != nil {
			c.compileExpr(n.Expr)
		}
	case *ast.IfStmt:
		c.compileIf(n)
	case *ast.WhileStmt:
		c.compileWhile(n)
	case *ast.DoWhileStmt:
		c.compileDoWhile(n)
	case *ast.ForStmt:
		c.compileFor(n)
	case *ast.SwitchStmt:
		c.compileSwitch(n)
	case *ast.CaseStmt, *ast.DefaultStmt:
		// labels only; the enclosing switch already emitted the dispatch.
	case *ast.ReturnStmt:
		c.compileReturn(n)
	case *ast.BreakStmt:
		if len(c.loopStack) > 0 {
			c.out.Jmp(c.loopStack[len(c.loopStack)-1].breakLabel)
		}
	case *ast.ContinueStmt:
		if len(c.loopStack) > 0 {
			c.out.Jmp(c.loopStack[len(c.loopStack)-1].continueLabel)
		}
	case *ast.GotoStmt:
		c.out.Jmp(n.Label)
	case *ast.LabelStmt:
		c.out.Label(n.Label)
		c.compileStmt(n.Stmt)
	}
}

func (c *Compiler) compileDeclStmt(n *ast.DeclStmt) {
	vd, ok := n.Decl.(*ast.VarDecl)
	if !ok || vd.Init == nil {
		return
	}
	reg := c.compileExpr(vd.Init)
	e, found := c.curFunc.Scope.Lookup(symtab.OrdinaryNS, vd.Name)
	if found {
		c.storeToFrame(e, reg)
	}
}

func (c *Compiler) compileIf(n *ast.IfStmt) {
	elseLabel := c.out.NewLabel("else")
	endLabel := c.out.NewLabel("endif")
	c.compileCondJump(n.Cond, elseLabel, false)
	c.compileStmt(n.Then)
	if n.Else != nil {
		c.out.Jmp(endLabel)
		c.out.Label(elseLabel)
		c.compileStmt(n.Else)
		c.out.Label(endLabel)
	} else {
		c.out.Label(elseLabel)
	}
}

func (c *Compiler) compileWhile(n *ast.WhileStmt) {
	top := c.out.NewLabel("while")
	end := c.out.NewLabel("endwhile")
	c.loopStack = append(c.loopStack, loopLabels{continueLabel: top, breakLabel: end})
	c.out.Label(top)
	c.compileCondJump(n.Cond, end, false)
	c.compileStmt(n.Body)
	c.out.Jmp(top)
	c.out.Label(end)
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
}

func (c *Compiler) compileDoWhile(n *ast.DoWhileStmt) {
	top := c.out.NewLabel("do")
	cont := c.out.NewLabel("docont")
	end := c.out.NewLabel("enddo")
	c.loopStack = append(c.loopStack, loopLabels{continueLabel: cont, breakLabel: end})
	c.out.Label(top)
	c.compileStmt(n.Body)
	c.out.Label(cont)
	c.compileCondJump(n.Cond, end, true)
	c.out.Jmp(top)
	c.out.Label(end)
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
}

func (c *Compiler) compileFor(n *ast.ForStmt) {
	if n.Init != nil {
		c.compileStmt(n.Init)
	}
	top := c.out.NewLabel("for")
	cont := c.out.NewLabel("forcont")
	end := c.out.NewLabel("endfor")
	c.loopStack = append(c.loopStack, loopLabels{continueLabel: cont, breakLabel: end})
	c.out.Label(top)
	if n.Cond != nil {
		c.compileCondJump(n.Cond, end, false)
	}
	c.compileStmt(n.Body)
	c.out.Label(cont)
	if n.Post != nil {
		c.compileExpr(n.Post)
	}
	c.out.Jmp(top)
	c.out.Label(end)
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
}

func (c *Compiler) compileSwitch(n *ast.SwitchStmt) {
	end := c.out.NewLabel("endswitch")
	c.loopStack = append(c.loopStack, loopLabels{breakLabel: end, continueLabel: end})
	tagReg := c.compileExpr(n.Tag)
	blk, _ := n.Body.(*ast.BlockStmt)
	if blk == nil {
		c.out.Label(end)
		c.loopStack = c.loopStack[:len(c.loopStack)-1]
		return
	}
	caseLabels := make(map[*ast.CaseStmt]string)
	var defaultLabel string
	for _, st := range blk.Stmts {
		switch cs := st.(type) {
		case *ast.CaseStmt:
			lbl := c.out.NewLabel("case")
			caseLabels[cs] = lbl
			if cs.Value.IsConstExpr() {
				if iv, ok := cs.Value.ConstValue().(int64); ok {
					c.out.Cmp(tagReg, fmt.Sprintf("$%d", iv))
					c.out.Jcc(OpJe, lbl)
				}
			}
		case *ast.DefaultStmt:
			defaultLabel = c.out.NewLabel("default")
		}
	}
	if defaultLabel != "" {
		c.out.Jmp(defaultLabel)
	} else {
		c.out.Jmp(end)
	}
	for _, st := range blk.Stmts {
		switch cs := st.(type) {
		case *ast.CaseStmt:
			c.out.Label(caseLabels[cs])
		case *ast.DefaultStmt:
			c.out.Label(defaultLabel)
		default:
			c.compileStmt(st)
		}
	}
	c.out.Label(end)
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
}

// compileReturn preserves the documented quirk from spec.md §4.5/§9: the
// result is always moved into XMM0 before returning, regardless of the
// function's declared return type — almost certainly wrong against the
// AMD64 ABI (integer results belong in RAX), but specified as the
// behavior under test, so it is kept and flagged here rather than fixed.
func (c *Compiler) compileReturn(n *ast.ReturnStmt) {
	if n.Value != nil {
		reg := c.compileExpr(n.Value)
		c.out.Movss("xmm0", reg) // preserved quirk: see doc comment above
	}
	c.emitEpilogue()
}

func (c *Compiler) compileCondJump(cond ast.Expr, target string, jumpIfTrue bool) {
	reg := c.compileExpr(cond)
	c.out.Cmp(reg, "$0")
	if jumpIfTrue {
		c.out.Jcc(OpJne, target)
	} else {
		c.out.Jcc(OpJe, target)
	}
}

// --- expressions ---

// compileExpr emits code to compute e and returns the register (or
// memory-operand string, after the operand-form conversion matrix has
// moved it into a register) holding the result. Every intermediate value
// is widened to the 64-bit register alias regardless of its C type's
// declared width — the second documented quirk of spec.md §9. The only
// narrower alias emitted is al, as the set<cc> destination, which Movzx
// immediately widens back into a 64-bit register.
func (c *Compiler) compileExpr(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.LiteralExpr:
		return c.compileLiteral(n)
	case *ast.IdentExpr:
		return c.compileIdent(n)
	case *ast.BinaryExpr:
		return c.compileBinary(n)
	case *ast.AssignExpr:
		return c.compileAssign(n)
	case *ast.UnaryExpr:
		return c.compileUnary(n)
	case *ast.CastExpr:
		return c.compileExpr(n.Operand)
	case *ast.CondExpr:
		return c.compileCond(n)
	case *ast.CallExpr:
		return c.compileCall(n)
	case *ast.IndexExpr:
		return c.compileIndex(n)
	case *ast.FieldExpr:
		return c.compileField(n)
	case *ast.SizeofExpr:
		reg := c.allocFor(ctype.NewBasic(ctype.Int))
		c.out.Mov(reg, fmt.Sprintf("$%v", n.ConstValue()))
		return reg
	default:
		return "rax"
	}
}

func (c *Compiler) allocFor(t *ctype.Type) string {
	if t != nil && t.IsRealFloating() {
		if r := c.regs.AllocFloat(); r != "" {
			return r
		}
		c.diags.Report(diag.Error, diag.CodeCodeGen, c.curFunc.GetLoc(), "out of floating-point registers in '%s'", c.curFunc.Name)
		return "xmm0"
	}
	if r := c.regs.AllocInt(); r != "" {
		return r
	}
	c.diags.Report(diag.Error, diag.CodeCodeGen, c.curFunc.GetLoc(), "out of integer registers in '%s'", c.curFunc.Name)
	return "rax"
}

func (c *Compiler) compileLiteral(n *ast.LiteralExpr) string {
	switch n.Kind {
	case ast.LitFloat:
		label := c.pool.AddFloat(n.Value.(float64))
		reg := c.allocFor(ctype.NewBasic(ctype.Float))
		c.out.Movss(reg, label+"(%rip)")
		return reg
	case ast.LitString:
		label := c.pool.AddString(n.Value.(string))
		reg := c.allocFor(ctype.NewBasic(ctype.Int))
		c.out.Lea(reg, label+"(%rip)")
		return reg
	default:
		reg := c.allocFor(ctype.NewBasic(ctype.Int))
		c.out.Mov(reg, fmt.Sprintf("$%v", n.Value))
		return reg
	}
}

func (c *Compiler) compileIdent(n *ast.IdentExpr) string {
	e := n.GetSymbol()
	reg := c.allocFor(n.GetType())
	if e != nil && e.Storage != symtab.StorageStatic && e.Storage != symtab.StorageExtern {
		c.out.Mov(reg, memOperand(e.FrameOffset))
	} else if e != nil {
		c.out.Mov(reg, n.Name+"(%rip)")
	}
	return reg
}

func (c *Compiler) storeToFrame(e *symtab.Entry, valueReg string) {
	c.out.Mov(memOperand(e.FrameOffset), valueReg)
}

var binaryOpMnemonic = map[ast.BinaryOp]Op{
	ast.OpAdd: OpAdd, ast.OpSub: OpSub, ast.OpMul: OpImul,
	ast.OpBitAnd: OpAnd, ast.OpBitOr: OpOr, ast.OpBitXor: OpXor,
	ast.OpShl: OpShl, ast.OpShr: OpSar,
}

var compareSetcc = map[ast.BinaryOp]Op{
	ast.OpEq: OpSete, ast.OpNe: OpSetne,
	ast.OpLt: OpSetl, ast.OpLe: OpSetle,
	ast.OpGt: OpSetg, ast.OpGe: OpSetge,
}

func (c *Compiler) compileBinary(n *ast.BinaryExpr) string {
	if n.Op == ast.OpComma {
		c.compileExpr(n.Left)
		return c.compileExpr(n.Right)
	}
	if n.Op == ast.OpLogAnd || n.Op == ast.OpLogOr {
		return c.compileShortCircuit(n)
	}

	lreg := c.compileExpr(n.Left)
	rreg := c.compileExpr(n.Right)
	isFloat := n.GetType() != nil && n.GetType().IsRealFloating()

	if setcc, ok := compareSetcc[n.Op]; ok {
		if isFloat {
			c.out.Ucomiss(lreg, rreg)
		} else {
			c.out.Cmp(lreg, rreg)
		}
		c.out.SetCC(setcc, "al")
		c.out.Movzx(lreg, "al")
		return lreg
	}

	if n.Op == ast.OpDiv || n.Op == ast.OpMod {
		if isFloat {
			c.out.Divss(lreg, rreg)
			return lreg
		}
		c.out.Mov("rax", lreg)
		c.out.Cqo()
		c.out.Idiv(rreg)
		if n.Op == ast.OpMod {
			return "rdx"
		}
		return "rax"
	}

	mnemonic := binaryOpMnemonic[n.Op]
	if isFloat {
		switch n.Op {
		case ast.OpAdd:
			c.out.Addss(lreg, rreg)
		case ast.OpSub:
			c.out.Subss(lreg, rreg)
		case ast.OpMul:
			c.out.Mulss(lreg, rreg)
		}
		return lreg
	}
	c.out.emit(mnemonic, lreg, rreg)
	return lreg
}

// compileShortCircuit implements && and || with the standard
// compute-left/branch-then-compute-right shape.
func (c *Compiler) compileShortCircuit(n *ast.BinaryExpr) string {
	shortLabel := c.out.NewLabel("sc")
	end := c.out.NewLabel("scend")
	lreg := c.compileExpr(n.Left)
	c.out.Cmp(lreg, "$0")
	if n.Op == ast.OpLogAnd {
		c.out.Jcc(OpJe, shortLabel)
	} else {
		c.out.Jcc(OpJne, shortLabel)
	}
	rreg := c.compileExpr(n.Right)
	c.out.Cmp(rreg, "$0")
	c.out.SetCC(OpSetne, "al")
	c.out.Movzx(lreg, "al")
	c.out.Jmp(end)
	c.out.Label(shortLabel)
	if n.Op == ast.OpLogAnd {
		c.out.Mov(lreg, "$0")
	} else {
		c.out.Mov(lreg, "$1")
	}
	c.out.Label(end)
	return lreg
}

func (c *Compiler) compileAssign(n *ast.AssignExpr) string {
	valReg := c.compileExpr(n.Value)
	if n.CompoundOp != nil {
		cur := c.compileExpr(n.Target)
		switch *n.CompoundOp {
		case ast.OpDiv, ast.OpMod:
			c.out.Mov("rax", cur)
			c.out.Cqo()
			c.out.Idiv(valReg)
			if *n.CompoundOp == ast.OpMod {
				cur = "rdx"
			} else {
				cur = "rax"
			}
		default:
			c.out.emit(binaryOpMnemonic[*n.CompoundOp], cur, valReg)
		}
		valReg = cur
	}
	c.store(n.Target, valReg)
	return valReg
}

// store emits the write half of an lvalue: a frame slot or rip-relative
// global for a plain identifier, and a recomputed address for every other
// assignable target (array element, pointer dereference, struct/union
// member) — compileIndex/compileField compute the same address to read
// through it, but an assignment must store through it instead.
func (c *Compiler) store(target ast.Expr, valReg string) {
	switch t := target.(type) {
	case *ast.IdentExpr:
		if e := t.GetSymbol(); e == nil {
			return
		} else if e.Storage == symtab.StorageStatic || e.Storage == symtab.StorageExtern {
			c.out.Mov(t.Name+"(%rip)", valReg)
		} else {
			c.storeToFrame(e, valReg)
		}
	case *ast.IndexExpr:
		addr := c.compileIndexAddr(t)
		c.out.Mov("(%"+addr+")", valReg)
	case *ast.UnaryExpr:
		if t.Op == ast.OpDeref {
			addr := c.compileExpr(t.Operand)
			c.out.Mov("(%"+addr+")", valReg)
		}
	case *ast.FieldExpr:
		addr, offset := c.compileFieldAddr(t)
		c.out.Mov(fmt.Sprintf("%d(%%%s)", offset, addr), valReg)
	}
}

func (c *Compiler) compileUnary(n *ast.UnaryExpr) string {
	switch n.Op {
	case ast.OpNeg:
		reg := c.compileExpr(n.Operand)
		c.out.Neg(reg)
		return reg
	case ast.OpBitNot:
		reg := c.compileExpr(n.Operand)
		c.out.Not(reg)
		return reg
	case ast.OpNot:
		reg := c.compileExpr(n.Operand)
		c.out.Cmp(reg, "$0")
		c.out.SetCC(OpSete, "al")
		c.out.Movzx(reg, "al")
		return reg
	case ast.OpAddr:
		if ident, ok := n.Operand.(*ast.IdentExpr); ok {
			reg := c.allocFor(n.GetType())
			if e := ident.GetSymbol(); e != nil {
				c.out.Lea(reg, memOperand(e.FrameOffset))
			}
			return reg
		}
		return c.compileExpr(n.Operand)
	case ast.OpDeref:
		reg := c.compileExpr(n.Operand)
		c.out.Mov(reg, "(%"+reg+")")
		return reg
	case ast.OpPreInc, ast.OpPostInc:
		return c.compileIncDec(n, "1")
	case ast.OpPreDec, ast.OpPostDec:
		return c.compileIncDec(n, "-1")
	default:
		return c.compileExpr(n.Operand)
	}
}

func (c *Compiler) compileIncDec(n *ast.UnaryExpr, delta string) string {
	reg := c.compileExpr(n.Operand)
	c.out.Add(reg, "$"+delta)
	if ident, ok := n.Operand.(*ast.IdentExpr); ok {
		if e := ident.GetSymbol(); e != nil {
			c.storeToFrame(e, reg)
		}
	}
	return reg
}

func (c *Compiler) compileCond(n *ast.CondExpr) string {
	elseLabel := c.out.NewLabel("cond")
	end := c.out.NewLabel("condend")
	reg := c.allocFor(n.GetType())
	c.compileCondJump(n.Cond, elseLabel, false)
	thenReg := c.compileExpr(n.Then)
	c.out.Mov(reg, thenReg)
	c.out.Jmp(end)
	c.out.Label(elseLabel)
	elseReg := c.compileExpr(n.Else)
	c.out.Mov(reg, elseReg)
	c.out.Label(end)
	return reg
}

var callArgRegs = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

func (c *Compiler) compileCall(n *ast.CallExpr) string {
	for i, arg := range n.Args {
		if i >= len(callArgRegs) {
			break
		}
		reg := c.compileExpr(arg)
		c.out.Mov(callArgRegs[i], reg)
	}
	if ident, ok := n.Callee.(*ast.IdentExpr); ok {
		c.out.Call(ident.Name)
	}
	reg := c.allocFor(n.GetType())
	c.out.Mov(reg, "rax")
	return reg
}

// compileIndexAddr computes the address of n.Array[n.Index] into a
// register via pointer arithmetic (index scaled by element size), without
// loading through it — shared by compileIndex (a read) and store (a
// write) so both agree on how the address is formed.
func (c *Compiler) compileIndexAddr(n *ast.IndexExpr) string {
	base := c.compileExpr(n.Array)
	idx := c.compileExpr(n.Index)
	elemSize := 8
	if t := n.GetType(); t != nil {
		if sz, err := t.Sizeof(); err == nil && sz > 0 {
			elemSize = sz
		}
	}
	c.out.Imul(idx, fmt.Sprintf("$%d", elemSize))
	c.out.Add(base, idx)
	return base
}

func (c *Compiler) compileIndex(n *ast.IndexExpr) string {
	addr := c.compileIndexAddr(n)
	c.out.Mov(addr, "(%"+addr+")")
	return addr
}

// compileFieldAddr computes the base register and byte offset of
// n.Base.n.Field, shared by compileField (a read) and store (a write).
func (c *Compiler) compileFieldAddr(n *ast.FieldExpr) (string, int) {
	base := c.compileExpr(n.Base)
	offset := 0
	bt := n.Base.GetType()
	agg := bt
	if n.Arrow && bt != nil && bt.IsPointer() {
		agg = bt.Pointee
	}
	if agg != nil {
		for _, m := range agg.Members {
			if m.Name == n.Field {
				offset = m.Offset
				break
			}
		}
	}
	return base, offset
}

func (c *Compiler) compileField(n *ast.FieldExpr) string {
	base, offset := c.compileFieldAddr(n)
	c.out.Mov(base, fmt.Sprintf("%d(%%%s)", offset, base))
	return base
}
