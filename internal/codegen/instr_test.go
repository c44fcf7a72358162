package codegen

import "testing"

func TestInstructionStringFormsMnemonicLine(t *testing.T) {
	ins := Instruction{Op: OpMov, Operands: []string{"rax", "$1"}}
	if got, want := ins.String(), "\tmov\trax, $1"; got != want {
		t.Errorf("Instruction.String() = %q, want %q", got, want)
	}
}

func TestInstructionStringLabel(t *testing.T) {
	ins := Instruction{Op: OpLabel, Operands: []string{"foo"}}
	if got, want := ins.String(), "foo:"; got != want {
		t.Errorf("label String() = %q, want %q", got, want)
	}
}

func TestInstructionStringDirective(t *testing.T) {
	ins := Instruction{Op: OpDirective, Operands: []string{".text"}}
	if got, want := ins.String(), "\t.text"; got != want {
		t.Errorf("directive String() = %q, want %q", got, want)
	}
}

func TestNewLabelGeneratesUniqueNames(t *testing.T) {
	s := NewStream()
	a := s.NewLabel("loop")
	b := s.NewLabel("loop")
	if a == b {
		t.Fatalf("NewLabel must generate unique labels, got %q twice", a)
	}
}

func TestStreamHelpersAppendInOrder(t *testing.T) {
	s := NewStream()
	s.Mov("rax", "$1")
	s.Add("rax", "rbx")
	s.Ret()
	instrs := s.Instructions()
	if len(instrs) != 3 {
		t.Fatalf("got %d instructions, want 3", len(instrs))
	}
	if instrs[0].Op != OpMov || instrs[1].Op != OpAdd || instrs[2].Op != OpRet {
		t.Errorf("instructions out of order: %+v", instrs)
	}
}

func TestStreamStringRendersAllLines(t *testing.T) {
	s := NewStream()
	s.Label("start")
	s.Mov("rax", "$0")
	s.Ret()
	out := s.String()
	want := "start:\n\tmov\trax, $0\n\tret\n"
	if out != want {
		t.Errorf("Stream.String() = %q, want %q", out, want)
	}
}
