// Package codegen implements the x86-64 code generator (component C5):
// operand-form conversion, type-directed instruction selection, a fixed-
// priority bitmap register allocator, a literal pool, and a growable
// ordered instruction stream.
//
// Grounded on lang/ygen/emit.go's bufio.Writer-backed emitter shape
// (named per-mnemonic helper methods, Label/NewLabel, Directive/Raw
// primitives) and lang/gen/regalloc.go's bitmap RegAllocator, target-ISA-
// translated from the WUT-4 register machine to x86-64 and, per spec.md
// §9, changed from reuse-and-spill to a fixed priority order that never
// frees a register once allocated within a function.
package codegen

import (
	"fmt"
	"strings"
)

// Op is an x86-64 mnemonic kcc emits. Only the subset the code generator's
// instruction-selection table (spec.md §4.5) actually needs is named.
type Op string

const (
	OpMov   Op = "mov"
	OpMovsd Op = "movsd"
	OpMovss Op = "movss"
	OpLea   Op = "lea"
	OpAdd   Op = "add"
	OpAddsd Op = "addsd"
	OpAddss Op = "addss"
	OpSub   Op = "sub"
	OpSubsd Op = "subsd"
	OpSubss Op = "subss"
	OpImul  Op = "imul"
	OpMulsd Op = "mulsd"
	OpMulss Op = "mulss"
	OpIdiv  Op = "idiv"
	OpDiv   Op = "div"
	OpDivsd Op = "divsd"
	OpDivss Op = "divss"
	OpCqo   Op = "cqo"
	OpAnd   Op = "and"
	OpOr    Op = "or"
	OpXor   Op = "xor"
	OpNot   Op = "not"
	OpNeg   Op = "neg"
	OpShl   Op = "shl"
	OpShr   Op = "shr"
	OpSar   Op = "sar"
	OpCmp   Op = "cmp"
	OpUcomisd Op = "ucomisd"
	OpUcomiss Op = "ucomiss"
	OpSete  Op = "sete"
	OpSetne Op = "setne"
	OpSetl  Op = "setl"
	OpSetle Op = "setle"
	OpSetg  Op = "setg"
	OpSetge Op = "setge"
	OpMovzx Op = "movzx"
	OpJmp   Op = "jmp"
	OpJe    Op = "je"
	OpJne   Op = "jne"
	OpJl    Op = "jl"
	OpJle   Op = "jle"
	OpJg    Op = "jg"
	OpJge   Op = "jge"
	OpJz    Op = "jz"
	OpJnz   Op = "jnz"
	OpCall  Op = "call"
	OpRet   Op = "ret"
	OpPush  Op = "push"
	OpPop   Op = "pop"
	OpLabel Op = "label"      // pseudo-op: emits "name:"
	OpDirective Op = "directive" // pseudo-op: raw assembler directive
	OpComment   Op = "comment"   // pseudo-op: a standalone comment line
)

// Instruction is one entry in the growable instruction stream: an
// operation plus its rendered operand list, matching the textual form
// spec.md §6 names as the core's output.
type Instruction struct {
	Op       Op
	Operands []string
	Comment  string
}

func (ins Instruction) String() string {
	switch ins.Op {
	case OpLabel:
		return ins.Operands[0] + ":"
	case OpDirective:
		return "\t" + ins.Operands[0]
	case OpComment:
		return "\t# " + ins.Operands[0]
	}
	line := "\t" + string(ins.Op)
	if len(ins.Operands) > 0 {
		line += "\t" + strings.Join(ins.Operands, ", ")
	}
	if ins.Comment != "" {
		line += "\t# " + ins.Comment
	}
	return line
}

// Stream is the ordered, growable instruction sequence the code generator
// appends to. Spec.md §9 mandates growth over the source's fixed buffer;
// a Go slice with append already has that property, so Stream is a thin
// named wrapper giving the emitter named helper methods in the teacher's
// style rather than bare slice manipulation at every call site.
type Stream struct {
	instrs     []Instruction
	labelCount int
}

// NewStream returns an empty instruction stream.
func NewStream() *Stream { return &Stream{} }

// NewLabel returns a fresh, file-unique label with the given prefix,
// matching lang/ygen/emit.go's NewLabel counter-suffix convention.
func (s *Stream) NewLabel(prefix string) string {
	s.labelCount++
	return fmt.Sprintf(".L%s%d", prefix, s.labelCount)
}

func (s *Stream) emit(op Op, operands ...string) {
	s.instrs = append(s.instrs, Instruction{Op: op, Operands: operands})
}

func (s *Stream) Label(name string)          { s.emit(OpLabel, name) }
func (s *Stream) Directive(text string)      { s.emit(OpDirective, text) }
func (s *Stream) Comment(text string)        { s.emit(OpComment, text) }
func (s *Stream) Mov(dst, src string)        { s.emit(OpMov, dst, src) }
func (s *Stream) Movsd(dst, src string)      { s.emit(OpMovsd, dst, src) }
func (s *Stream) Movss(dst, src string)      { s.emit(OpMovss, dst, src) }
func (s *Stream) Lea(dst, src string)        { s.emit(OpLea, dst, src) }
func (s *Stream) Add(dst, src string)        { s.emit(OpAdd, dst, src) }
func (s *Stream) Addsd(dst, src string)      { s.emit(OpAddsd, dst, src) }
func (s *Stream) Addss(dst, src string)      { s.emit(OpAddss, dst, src) }
func (s *Stream) Sub(dst, src string)        { s.emit(OpSub, dst, src) }
func (s *Stream) Subsd(dst, src string)      { s.emit(OpSubsd, dst, src) }
func (s *Stream) Subss(dst, src string)      { s.emit(OpSubss, dst, src) }
func (s *Stream) Imul(dst, src string)       { s.emit(OpImul, dst, src) }
func (s *Stream) Mulsd(dst, src string)      { s.emit(OpMulsd, dst, src) }
func (s *Stream) Mulss(dst, src string)      { s.emit(OpMulss, dst, src) }
func (s *Stream) Idiv(src string)            { s.emit(OpIdiv, src) }
func (s *Stream) Divsd(dst, src string)      { s.emit(OpDivsd, dst, src) }
func (s *Stream) Divss(dst, src string)      { s.emit(OpDivss, dst, src) }
func (s *Stream) Cqo()                       { s.emit(OpCqo) }
func (s *Stream) And(dst, src string)        { s.emit(OpAnd, dst, src) }
func (s *Stream) Or(dst, src string)         { s.emit(OpOr, dst, src) }
func (s *Stream) Xor(dst, src string)        { s.emit(OpXor, dst, src) }
func (s *Stream) Not(dst string)             { s.emit(OpNot, dst) }
func (s *Stream) Neg(dst string)             { s.emit(OpNeg, dst) }
func (s *Stream) Shl(dst, src string)        { s.emit(OpShl, dst, src) }
func (s *Stream) Shr(dst, src string)        { s.emit(OpShr, dst, src) }
func (s *Stream) Sar(dst, src string)        { s.emit(OpSar, dst, src) }
func (s *Stream) Cmp(a, b string)            { s.emit(OpCmp, a, b) }
func (s *Stream) Ucomisd(a, b string)        { s.emit(OpUcomisd, a, b) }
func (s *Stream) Ucomiss(a, b string)        { s.emit(OpUcomiss, a, b) }
func (s *Stream) SetCC(op Op, dst string)    { s.emit(op, dst) }
func (s *Stream) Movzx(dst, src string)      { s.emit(OpMovzx, dst, src) }
func (s *Stream) Jmp(label string)           { s.emit(OpJmp, label) }
func (s *Stream) Jcc(op Op, label string)    { s.emit(op, label) }
func (s *Stream) Call(target string)         { s.emit(OpCall, target) }
func (s *Stream) Ret()                       { s.emit(OpRet) }
func (s *Stream) Push(src string)            { s.emit(OpPush, src) }
func (s *Stream) Pop(dst string)             { s.emit(OpPop, dst) }

// Instructions returns the accumulated stream in emission order.
func (s *Stream) Instructions() []Instruction { return s.instrs }

// String renders the whole stream as Intel-syntax-ish assembly text, one
// instruction per line, matching spec.md §6's textual output contract.
func (s *Stream) String() string {
	var b strings.Builder
	for _, ins := range s.instrs {
		b.WriteString(ins.String())
		b.WriteByte('\n')
	}
	return b.String()
}
