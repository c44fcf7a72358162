package ctype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBasicSizes(t *testing.T) {
	cases := []struct {
		kind Kind
		size int
	}{
		{Char, 1},
		{Short, 2},
		{Int, 4},
		{Long, 8},
		{Float, 4},
		{Double, 8},
	}
	for _, c := range cases {
		ty := NewBasic(c.kind)
		got, err := ty.Sizeof()
		if err != nil {
			t.Fatalf("Sizeof(%v): %v", c.kind, err)
		}
		if got != c.size {
			t.Errorf("Sizeof(%v) = %d, want %d", c.kind, got, c.size)
		}
	}
}

func TestNewBasicPanicsOnDerivedKind(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewBasic(Pointer): want panic, got none")
		}
	}()
	NewBasic(Pointer)
}

func TestEqualPointerStructural(t *testing.T) {
	a := NewPointer(NewBasic(Int))
	b := NewPointer(NewBasic(Int))
	if !a.Equal(b) {
		t.Errorf("pointer-to-int types should be structurally equal")
	}
	c := NewPointer(NewBasic(Char))
	if a.Equal(c) {
		t.Errorf("pointer-to-int should not equal pointer-to-char")
	}
}

func TestEqualQualifiersMatter(t *testing.T) {
	a := NewBasic(Int)
	b := a.Qualify(QualConst)
	if a.Equal(b) {
		t.Errorf("int and const int must not be Equal")
	}
}

func TestEqualArrayCountAndIncomplete(t *testing.T) {
	complete := NewArray(NewBasic(Int), 4)
	sameSize := NewArray(NewBasic(Int), 4)
	diffSize := NewArray(NewBasic(Int), 8)
	incomplete := NewIncompleteArray(NewBasic(Int))

	if !complete.Equal(sameSize) {
		t.Errorf("int[4] should equal int[4]")
	}
	if complete.Equal(diffSize) {
		t.Errorf("int[4] should not equal int[8]")
	}
	if complete.Equal(incomplete) {
		t.Errorf("int[4] should not equal int[]")
	}
}

func TestDupDeepCopiesPointerChain(t *testing.T) {
	orig := NewPointer(NewPointer(NewBasic(Int)))
	dup := orig.Dup()

	if !orig.Equal(dup) {
		t.Fatalf("dup should be structurally equal to original")
	}
	if orig.Pointee == dup.Pointee {
		t.Errorf("Dup must allocate a fresh Pointee, not alias the original")
	}
	// Mutating the dup's nested pointee must not affect the original.
	dup.Pointee.Pointee.Qual |= QualConst
	if orig.Pointee.Pointee.Qual.Has(QualConst) {
		t.Errorf("mutating dup must not affect orig: ownership not fresh")
	}
}

func TestDupDeepCopiesFunctionParams(t *testing.T) {
	fn := NewFunction(NewBasic(Int), []Param{{Name: "x", Type: NewBasic(Int)}}, false)
	dup := fn.Dup()
	require.True(t, fn.Equal(dup), "dup should be structurally equal to the original")
	dup.Params[0].Type.Qual |= QualConst
	require.False(t, fn.Params[0].Type.Qual.Has(QualConst), "Dup must deep-copy parameter types")
	require.Len(t, dup.Params, len(fn.Params))
}

func TestSizeofArrayMultipliesElementSize(t *testing.T) {
	arr := NewArray(NewBasic(Int), 10)
	got, err := arr.Sizeof()
	if err != nil {
		t.Fatal(err)
	}
	if got != 40 {
		t.Errorf("Sizeof(int[10]) = %d, want 40", got)
	}
}

func TestSizeofIncompleteArrayErrors(t *testing.T) {
	arr := NewIncompleteArray(NewBasic(Int))
	if _, err := arr.Sizeof(); err == nil {
		t.Errorf("Sizeof on incomplete array type must error")
	}
}

func TestSizeofPointerIsWordSized(t *testing.T) {
	p := NewPointer(NewBasic(Char))
	got, err := p.Sizeof()
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("Sizeof(pointer) = %d, want 8", got)
	}
}

func TestClassificationPredicates(t *testing.T) {
	if !NewBasic(Int).IsInteger() {
		t.Errorf("int should be IsInteger")
	}
	if !NewBasic(UInt).IsUnsignedInteger() {
		t.Errorf("unsigned int should be IsUnsignedInteger")
	}
	if NewBasic(Int).IsUnsignedInteger() {
		t.Errorf("int should not be IsUnsignedInteger")
	}
	if !NewBasic(Double).IsRealFloating() {
		t.Errorf("double should be IsRealFloating")
	}
	if !NewPointer(NewBasic(Int)).IsScalar() {
		t.Errorf("pointer should be IsScalar")
	}
	if NewBasic(Void).IsScalar() {
		t.Errorf("void should not be IsScalar")
	}
	if !NewBasic(Void).IsIncomplete() {
		t.Errorf("void should be IsIncomplete")
	}
}

func TestIsModifiableLValueType(t *testing.T) {
	if !NewBasic(Int).IsModifiableLValueType() {
		t.Errorf("plain int should be a modifiable lvalue type")
	}
	constInt := NewBasic(Int).Qualify(QualConst)
	if constInt.IsModifiableLValueType() {
		t.Errorf("const int must not be a modifiable lvalue type")
	}
	arr := NewArray(NewBasic(Int), 3)
	if arr.IsModifiableLValueType() {
		t.Errorf("array type must not be a modifiable lvalue type")
	}
	fn := NewFunction(NewBasic(Void), nil, false)
	if fn.IsModifiableLValueType() {
		t.Errorf("function type must not be a modifiable lvalue type")
	}
}

func TestIsModifiableLValueTypeAggregateWithConstMember(t *testing.T) {
	agg := NewAggregate("point", []Member{
		{Name: "x", Type: NewBasic(Int).Qualify(QualConst), Offset: 0},
		{Name: "y", Type: NewBasic(Int), Offset: 4},
	}, 8, false)
	if agg.IsModifiableLValueType() {
		t.Errorf("aggregate with a const member must not be a modifiable lvalue type")
	}
}

func TestStringRendersDerivedTypes(t *testing.T) {
	p := NewPointer(NewBasic(Int))
	if got, want := p.String(), "int *"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	arr := NewArray(NewBasic(Char), 5)
	if got, want := arr.String(), "char[5]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestAggregateUnionDistinction(t *testing.T) {
	s := NewAggregate("u", nil, 0, false)
	u := NewAggregate("u", nil, 0, true)
	if s.Equal(u) {
		t.Errorf("struct u and union u with the same tag must not be Equal")
	}
}
