package codegen

import (
	"fmt"
	"math"
)

// LiteralPool collects non-integer literal constants (floats and strings)
// encountered during code generation and assigns each a `.LCP_N` label and
// data directive (`.quad` for a float, `.asciz` for a string), emitted in a single
// file-scope pass that runs before the function bodies' instructions —
// spec.md §4.5's literal-pool requirement, grounded on the constant-
// pooling shape of lang/ygen/emit.go's DataSection/DataCode helpers.
type LiteralPool struct {
	entries []poolEntry
	seen    map[string]string
}

type poolEntry struct {
	label     string
	directive string
	value     string
}

// NewLiteralPool returns an empty pool.
func NewLiteralPool() *LiteralPool {
	return &LiteralPool{seen: make(map[string]string)}
}

// AddFloat interns a floating-point constant, returning its `.LCP_N` label.
// Equal values share a label (spec.md doesn't require this, but it's the
// natural reading of "a literal pool", and lang/ygen/emit.go's DataCode
// helper already dedupes identical constant entries this way).
func (lp *LiteralPool) AddFloat(v float64) string {
	key := fmt.Sprintf("f:%v", v)
	if label, ok := lp.seen[key]; ok {
		return label
	}
	label := fmt.Sprintf(".LCP_%d", len(lp.entries))
	lp.entries = append(lp.entries, poolEntry{label: label, directive: ".quad", value: fmt.Sprintf("%#016x", math.Float64bits(v))})
	lp.seen[key] = label
	return label
}

// AddString interns a string constant, returning its `.LCP_N` label.
func (lp *LiteralPool) AddString(s string) string {
	key := "s:" + s
	if label, ok := lp.seen[key]; ok {
		return label
	}
	label := fmt.Sprintf(".LCP_%d", len(lp.entries))
	lp.entries = append(lp.entries, poolEntry{label: label, directive: ".asciz", value: fmt.Sprintf("%q", s)})
	lp.seen[key] = label
	return label
}

// Emit appends the pool's directives into s, one label/data pair per
// entry, in assignment order — called once per translation unit before
// any function body is emitted (spec.md §4.5).
func (lp *LiteralPool) Emit(s *Stream) {
	if len(lp.entries) == 0 {
		return
	}
	s.Directive(".section .rodata")
	for _, e := range lp.entries {
		s.Label(e.label)
		s.Directive(fmt.Sprintf("%s %s", e.directive, e.value))
	}
}
