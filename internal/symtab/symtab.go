// Package symtab implements the lexically scoped symbol table (component
// C2): a chained hash table of scopes nested file/function/block/prototype,
// supporting the "search this scope, then its parent, out to the file
// scope" lookup spec.md §4.2/§6 names lookup_from.
//
// Grounded on lang/yparse/symtab.go's SymbolTable/FuncScope, generalized
// from the teacher's flat global-plus-one-function-scope model to the
// spec's arbitrary nesting: every block and every function prototype gets
// its own chained Scope, not just "global" and "current function".
package symtab

import "github.com/gmofishsauce/kcc/internal/ctype"

// ScopeKind names the four nesting levels spec.md §4.2 distinguishes.
type ScopeKind int

const (
	FileScope ScopeKind = iota
	FunctionScope
	BlockScope
	PrototypeScope
)

func (k ScopeKind) String() string {
	switch k {
	case FileScope:
		return "file"
	case FunctionScope:
		return "function"
	case BlockScope:
		return "block"
	case PrototypeScope:
		return "prototype"
	default:
		return "unknown"
	}
}

// Linkage classifies an identifier's linkage, needed to decide whether a
// redeclaration refers to the same entity (spec.md §3/§4.4).
type Linkage int

const (
	NoLinkage Linkage = iota
	InternalLinkage
	ExternalLinkage
)

// StorageClass is the declared storage class of a declaration.
type StorageClass int

const (
	StorageAuto StorageClass = iota
	StorageStatic
	StorageExtern
	StorageRegister
	StorageTypedef
)

// NamespaceKind separates C's parallel namespaces (ordinary identifiers,
// tags, labels) so e.g. `struct foo` and a variable `foo` don't collide.
type NamespaceKind int

const (
	OrdinaryNS NamespaceKind = iota
	TagNS
	LabelNS
)

// Entry is one symbol-table binding: spec.md §3's name/kind/type/storage/
// linkage/offset/location tuple.
type Entry struct {
	Name      string
	Namespace NamespaceKind
	Type      *ctype.Type
	Storage   StorageClass
	Linkage   Linkage
	IsDefined bool // for functions/tentative-vs-defined globals

	// FrameOffset is the byte offset from the frame base for locals and
	// parameters; meaningless (0) for file-scope entries and tags.
	FrameOffset int

	// ConstValue holds the constant value for enumerators and symbols the
	// annotator folded to a compile-time constant (spec.md §4.4).
	ConstValue any

	// Function entries carry their ctype.Function type in Type; check
	// Type.Kind == ctype.Function to recognize one.
}

// Scope is one node in the chained hash table: a single nesting level
// with a link to its enclosing scope (nil at file scope).
type Scope struct {
	Kind    ScopeKind
	Parent  *Scope
	ordinary map[string]*Entry
	tags     map[string]*Entry
	labels   map[string]*Entry

	// FrameSize accumulates parameter and local-variable storage for
	// FunctionScope; filled in by the annotator as parameters and locals
	// (including those of nested blocks) are given offsets (spec.md §4.4).
	FrameSize int
}

// NewScope creates a scope nested under parent (nil for file scope).
func NewScope(kind ScopeKind, parent *Scope) *Scope {
	return &Scope{
		Kind:     kind,
		Parent:   parent,
		ordinary: make(map[string]*Entry),
		tags:     make(map[string]*Entry),
		labels:   make(map[string]*Entry),
	}
}

func (s *Scope) bucket(ns NamespaceKind) map[string]*Entry {
	switch ns {
	case TagNS:
		return s.tags
	case LabelNS:
		return s.labels
	default:
		return s.ordinary
	}
}

// Declare binds name in this scope's namespace and returns (e, true); if
// name is already bound in this exact scope it returns the existing entry
// and false, leaving the binding unchanged (not an enclosing one — shadowing
// across scopes is legal, redeclaration within one scope is not, except
// where spec.md's edge cases allow it, which the annotator checks before
// calling Declare a second time).
func (s *Scope) Declare(e *Entry) (*Entry, bool) {
	b := s.bucket(e.Namespace)
	if existing, ok := b[e.Name]; ok {
		return existing, false
	}
	b[e.Name] = e
	return e, true
}

// Replace forcibly rebinds name in this scope; the parser uses it to bind a
// struct, union or enum tag to the type its specifier just defined.
func (s *Scope) Replace(e *Entry) {
	s.bucket(e.Namespace)[e.Name] = e
}

// LookupLocal searches only this scope, not its parents.
func (s *Scope) LookupLocal(ns NamespaceKind, name string) (*Entry, bool) {
	e, ok := s.bucket(ns)[name]
	return e, ok
}

// Lookup implements lookup_from (spec.md §6): search this scope, then
// walk outward through Parent links until found or file scope is
// exhausted.
func (s *Scope) Lookup(ns NamespaceKind, name string) (*Entry, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if e, ok := sc.bucket(ns)[name]; ok {
			return e, true
		}
	}
	return nil, false
}

// IsTypedefName reports whether name is bound to a typedef in scope s or
// an enclosing scope — the exact query the parser makes to disambiguate
// a declaration-vs-expression-statement and a cast-vs-parenthesized-expr
// (spec.md §4.3's typedef-disambiguation rule).
func (s *Scope) IsTypedefName(name string) bool {
	e, ok := s.Lookup(OrdinaryNS, name)
	return ok && e.Storage == StorageTypedef
}

// Table owns the root (file) scope and tracks the current scope during a
// single pass over the program, mirroring how the parser and annotator
// both push/pop scopes as they descend into blocks and function bodies.
type Table struct {
	File    *Scope
	current *Scope
}

// NewTable creates a table with an empty file scope as the current scope.
func NewTable() *Table {
	file := NewScope(FileScope, nil)
	return &Table{File: file, current: file}
}

// Current returns the innermost active scope.
func (t *Table) Current() *Scope { return t.current }

// Push opens a new nested scope of kind, making it current, and returns it.
func (t *Table) Push(kind ScopeKind) *Scope {
	t.current = NewScope(kind, t.current)
	return t.current
}

// Pop closes the current scope, restoring its parent as current. Popping
// the file scope is a programming error (caller bug, not a user error).
func (t *Table) Pop() {
	if t.current.Parent == nil {
		panic("symtab: Pop called at file scope")
	}
	t.current = t.current.Parent
}

// PushScope makes an already-constructed scope (e.g. one the parser built
// while installing parameter bindings) the current scope, for a second
// pass (the annotator) that walks the same nesting the parser already
// established rather than rebuilding it.
func (t *Table) PushScope(s *Scope) {
	t.current = s
}

// PopTo restores parent as the current scope directly, the counterpart to
// PushScope for a pass that walks pre-built scopes instead of creating
// them with Push.
func (t *Table) PopTo(parent *Scope) {
	t.current = parent
}
