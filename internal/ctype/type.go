// Package ctype implements the C type model (component C1): basic,
// qualified, and derived types, their equivalence, duplication, and sizeof.
//
// Grounded on lang/yparse/types.go (the teacher's Type/BaseType variant
// set and Size/Alignment/Equal methods), generalized from YAPL's six base
// types to the C basic-type ladder and from a three-variant derived set to
// pointer/array/function/aggregate/enum/typedef-reference.
package ctype

import (
	"fmt"
	"strings"
)

// Kind identifies which type variant a Type value holds.
type Kind int

const (
	Invalid Kind = iota
	Void
	Bool
	Char
	SChar
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LLong
	ULLong
	Float
	Double
	LDouble
	ComplexFloat
	Pointer
	Array
	Function
	Aggregate // struct or union, see Type.IsUnion
	Enum
	TypedefRef
)

// Qualifiers is a bitset over {const, volatile, restrict}; the closed set
// of combinations is 8, per spec.md §3.
type Qualifiers uint8

const (
	QualNone     Qualifiers = 0
	QualConst    Qualifiers = 1 << 0
	QualVolatile Qualifiers = 1 << 1
	QualRestrict Qualifiers = 1 << 2
)

func (q Qualifiers) Has(bit Qualifiers) bool { return q&bit != 0 }

func (q Qualifiers) String() string {
	var parts []string
	if q.Has(QualConst) {
		parts = append(parts, "const")
	}
	if q.Has(QualVolatile) {
		parts = append(parts, "volatile")
	}
	if q.Has(QualRestrict) {
		parts = append(parts, "restrict")
	}
	return strings.Join(parts, " ")
}

// Param is one (name, type) pair in a function type's parameter list.
type Param struct {
	Name string
	Type *Type
}

// Member is one (name, type, offset) triple in an aggregate's member list.
type Member struct {
	Name   string
	Type   *Type
	Offset int
}

// Enumerator is one name/value pair of an enum type.
type Enumerator struct {
	Name  string
	Value int64
}

// Type is a C type: exactly one of the variants named by Kind is populated.
//
// Pointer types own their pointee; function types own their parameter list
// (spec.md §3 invariant). Every Type produced by the annotator is freshly
// owned by the node it annotates — see Dup.
type Type struct {
	Kind Kind
	Qual Qualifiers

	// Basic
	byteSize int
	signed   bool

	// Pointer
	Pointee *Type

	// Array
	Elem     *Type
	Count    int
	HasCount bool // false for incomplete array types: T a[]

	// Function
	Return   *Type
	Params   []Param
	Variadic bool

	// Aggregate (struct/union) and Enum share the tag field
	Tag     string
	Members []Member // Aggregate only
	IsUnion bool     // Aggregate only: struct vs union
	aggSize int      // Aggregate only, cached total size

	Enumerators []Enumerator // Enum only

	// TypedefRef
	TypedefName string
}

// --- Constructors ---

func basic(k Kind, size int, signed bool) *Type {
	return &Type{Kind: k, byteSize: size, signed: signed}
}

// NewBasic constructs one of the built-in arithmetic/void/_Bool types.
// Sizes match the reference target named in spec.md §8 (4-byte int).
func NewBasic(k Kind) *Type {
	switch k {
	case Void:
		return basic(Void, 0, false)
	case Bool:
		return basic(Bool, 1, false)
	case Char:
		return basic(Char, 1, true)
	case SChar:
		return basic(SChar, 1, true)
	case UChar:
		return basic(UChar, 1, false)
	case Short:
		return basic(Short, 2, true)
	case UShort:
		return basic(UShort, 2, false)
	case Int:
		return basic(Int, 4, true)
	case UInt:
		return basic(UInt, 4, false)
	case Long:
		return basic(Long, 8, true)
	case ULong:
		return basic(ULong, 8, false)
	case LLong:
		return basic(LLong, 8, true)
	case ULLong:
		return basic(ULLong, 8, false)
	case Float:
		return basic(Float, 4, true)
	case Double:
		return basic(Double, 8, true)
	case LDouble:
		return basic(LDouble, 16, true)
	case ComplexFloat:
		return basic(ComplexFloat, 8, true)
	default:
		panic(fmt.Sprintf("ctype: NewBasic: not a basic kind: %v", k))
	}
}

// NewPointer constructs a pointer-to-pointee type. Takes ownership of pointee.
func NewPointer(pointee *Type) *Type {
	return &Type{Kind: Pointer, Pointee: pointee}
}

// NewArray constructs an array-of-elem type with a known element count.
func NewArray(elem *Type, count int) *Type {
	return &Type{Kind: Array, Elem: elem, Count: count, HasCount: true}
}

// NewIncompleteArray constructs an array-of-elem type with an unknown count
// (T a[]), e.g. an extern declaration or an unsubscripted parameter decay.
func NewIncompleteArray(elem *Type) *Type {
	return &Type{Kind: Array, Elem: elem, HasCount: false}
}

// NewFunction constructs a function type. Takes ownership of ret and params.
func NewFunction(ret *Type, params []Param, variadic bool) *Type {
	return &Type{Kind: Function, Return: ret, Params: params, Variadic: variadic}
}

// NewAggregate constructs a struct or union type from a size and member
// offsets the caller has already computed (the parser's struct/union
// specifier and the annotator's tag registration lay them out); the type
// model only records them.
func NewAggregate(tag string, members []Member, size int, isUnion bool) *Type {
	return &Type{Kind: Aggregate, Tag: tag, Members: members, aggSize: size, IsUnion: isUnion}
}

// NewEnum constructs an enum type; the underlying representation is int.
func NewEnum(tag string, enumerators []Enumerator) *Type {
	return &Type{Kind: Enum, Tag: tag, Enumerators: enumerators}
}

// NewTypedefRef constructs an unresolved reference to a typedef name. The
// parser resolves a typedef name to its bound type at the point of use
// (symtab.Scope.Lookup) and keeps a TypedefRef only when no binding is found.
func NewTypedefRef(name string) *Type {
	return &Type{Kind: TypedefRef, TypedefName: name}
}

// Qualify returns a copy of t with q qualifiers added (it does not mutate t).
func (t *Type) Qualify(q Qualifiers) *Type {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Qual |= q
	return &cp
}

// Dup performs a deep copy of t, preserving qualifiers, per the
// duplicate-on-assign ownership policy (spec.md §3, §9).
func (t *Type) Dup() *Type {
	if t == nil {
		return nil
	}
	cp := *t
	switch t.Kind {
	case Pointer:
		cp.Pointee = t.Pointee.Dup()
	case Array:
		cp.Elem = t.Elem.Dup()
	case Function:
		cp.Return = t.Return.Dup()
		cp.Params = make([]Param, len(t.Params))
		for i, p := range t.Params {
			cp.Params[i] = Param{Name: p.Name, Type: p.Type.Dup()}
		}
	case Aggregate:
		cp.Members = make([]Member, len(t.Members))
		for i, m := range t.Members {
			cp.Members[i] = Member{Name: m.Name, Type: m.Type.Dup(), Offset: m.Offset}
		}
	case Enum:
		cp.Enumerators = append([]Enumerator(nil), t.Enumerators...)
	}
	return &cp
}

// --- Structural accessors (fail when the precondition does not hold) ---

// Deref returns the pointee of a pointer type.
func (t *Type) Deref() (*Type, error) {
	if t == nil || t.Kind != Pointer {
		return nil, fmt.Errorf("ctype: Deref: not a pointer type: %s", t.String())
	}
	return t.Pointee, nil
}

// ElemType returns the element type of an array type.
func (t *Type) ElemType() (*Type, error) {
	if t == nil || t.Kind != Array {
		return nil, fmt.Errorf("ctype: ElemType: not an array type: %s", t.String())
	}
	return t.Elem, nil
}

// ReturnType returns the return type of a function type.
func (t *Type) ReturnType() (*Type, error) {
	if t == nil || t.Kind != Function {
		return nil, fmt.Errorf("ctype: ReturnType: not a function type: %s", t.String())
	}
	return t.Return, nil
}

// ParamList returns the parameter list of a function type.
func (t *Type) ParamList() ([]Param, error) {
	if t == nil || t.Kind != Function {
		return nil, fmt.Errorf("ctype: ParamList: not a function type: %s", t.String())
	}
	return t.Params, nil
}

// Equal reports whether two types are equivalent: same variant, same
// qualifiers, and recursively equal components (spec.md §3 invariant).
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind || t.Qual != o.Qual {
		return false
	}
	switch t.Kind {
	case Pointer:
		return t.Pointee.Equal(o.Pointee)
	case Array:
		if t.HasCount != o.HasCount {
			return false
		}
		if t.HasCount && t.Count != o.Count {
			return false
		}
		return t.Elem.Equal(o.Elem)
	case Function:
		if t.Variadic != o.Variadic || len(t.Params) != len(o.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Type.Equal(o.Params[i].Type) {
				return false
			}
		}
		return t.Return.Equal(o.Return)
	case Aggregate:
		return t.Tag == o.Tag && t.IsUnion == o.IsUnion
	case Enum:
		return t.Tag == o.Tag
	case TypedefRef:
		return t.TypedefName == o.TypedefName
	default:
		return t.byteSize == o.byteSize && t.signed == o.signed
	}
}

// Sizeof computes the byte size of t: pointers are target-word-sized (8 on
// the reference x86-64 target), arrays are element_size × count, aggregates
// report the size given to NewAggregate (the parser and annotator sum member
// sizes for a struct and take the largest for a union, with no padding).
func (t *Type) Sizeof() (int, error) {
	if t == nil {
		return 0, fmt.Errorf("ctype: Sizeof: nil type")
	}
	switch t.Kind {
	case Pointer:
		return 8, nil
	case Array:
		if !t.HasCount {
			return 0, fmt.Errorf("ctype: Sizeof: incomplete array type")
		}
		elemSize, err := t.Elem.Sizeof()
		if err != nil {
			return 0, err
		}
		return elemSize * t.Count, nil
	case Function:
		return 0, fmt.Errorf("ctype: Sizeof: function type has no size")
	case Aggregate:
		if t.aggSize == 0 && len(t.Members) == 0 {
			return 0, fmt.Errorf("ctype: Sizeof: incomplete aggregate %q", t.Tag)
		}
		return t.aggSize, nil
	case Enum:
		return 4, nil // underlying int
	case TypedefRef:
		return 0, fmt.Errorf("ctype: Sizeof: unresolved typedef reference %q", t.TypedefName)
	default:
		return t.byteSize, nil
	}
}

// --- Classification predicates (total: false when inapplicable) ---

func (t *Type) IsInteger() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case Bool, Char, SChar, UChar, Short, UShort, Int, UInt, Long, ULong, LLong, ULLong, Enum:
		return true
	default:
		return false
	}
}

func (t *Type) IsSignedInteger() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case Char, SChar, Short, Int, Long, LLong:
		return true
	case Enum:
		return true
	default:
		return false
	}
}

func (t *Type) IsUnsignedInteger() bool {
	return t.IsInteger() && !t.IsSignedInteger()
}

func (t *Type) IsRealFloating() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case Float, Double, LDouble:
		return true
	default:
		return false
	}
}

func (t *Type) IsArithmetic() bool {
	return t.IsInteger() || t.IsRealFloating() || (t != nil && t.Kind == ComplexFloat)
}

func (t *Type) IsScalar() bool {
	return t.IsArithmetic() || t.IsPointer()
}

func (t *Type) IsObject() bool {
	return t != nil && t.Kind != Function && t.Kind != Invalid
}

func (t *Type) IsFunction() bool { return t != nil && t.Kind == Function }
func (t *Type) IsArray() bool    { return t != nil && t.Kind == Array }
func (t *Type) IsPointer() bool  { return t != nil && t.Kind == Pointer }
func (t *Type) IsVoid() bool     { return t != nil && t.Kind == Void }

func (t *Type) IsIncomplete() bool {
	if t == nil {
		return true
	}
	switch t.Kind {
	case Void:
		return true
	case Array:
		return !t.HasCount
	case Aggregate:
		return len(t.Members) == 0 && t.aggSize == 0
	default:
		return false
	}
}

// IsModifiableLValueType is the type-side half of "is a modifiable lvalue":
// not const-qualified, not an array, not a function, not incomplete. It
// looks at the type alone; whether an expression designates an object is
// not checked here, and internal/sema applies only this type-side test to
// an assignment target.
func (t *Type) IsModifiableLValueType() bool {
	if t == nil {
		return false
	}
	if t.Qual.Has(QualConst) {
		return false
	}
	if t.Kind == Aggregate {
		return memberAnyConst(t) == false && !t.IsIncomplete()
	}
	return !t.IsFunction() && !t.IsArray() && !t.IsIncomplete()
}

func memberAnyConst(t *Type) bool {
	for _, m := range t.Members {
		if m.Type.Qual.Has(QualConst) {
			return true
		}
	}
	return false
}

// String renders a type for diagnostics, following the teacher's
// recursive String() shape (lang/yparse/types.go).
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	q := ""
	if s := t.Qual.String(); s != "" {
		q = s + " "
	}
	switch t.Kind {
	case Pointer:
		return q + t.Pointee.String() + " *"
	case Array:
		if t.HasCount {
			return fmt.Sprintf("%s%s[%d]", q, t.Elem.String(), t.Count)
		}
		return fmt.Sprintf("%s%s[]", q, t.Elem.String())
	case Function:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.Type.String()
		}
		if t.Variadic {
			parts = append(parts, "...")
		}
		return fmt.Sprintf("%s (%s) -> %s", q, strings.Join(parts, ", "), t.Return.String())
	case Aggregate:
		kw := "struct"
		if t.IsUnion {
			kw = "union"
		}
		return fmt.Sprintf("%s%s %s", q, kw, t.Tag)
	case Enum:
		return fmt.Sprintf("%senum %s", q, t.Tag)
	case TypedefRef:
		return q + t.TypedefName
	default:
		return q + basicName(t.Kind)
	}
}

func basicName(k Kind) string {
	switch k {
	case Void:
		return "void"
	case Bool:
		return "_Bool"
	case Char:
		return "char"
	case SChar:
		return "signed char"
	case UChar:
		return "unsigned char"
	case Short:
		return "short"
	case UShort:
		return "unsigned short"
	case Int:
		return "int"
	case UInt:
		return "unsigned int"
	case Long:
		return "long"
	case ULong:
		return "unsigned long"
	case LLong:
		return "long long"
	case ULLong:
		return "unsigned long long"
	case Float:
		return "float"
	case Double:
		return "double"
	case LDouble:
		return "long double"
	case ComplexFloat:
		return "_Complex"
	default:
		return "<invalid>"
	}
}
