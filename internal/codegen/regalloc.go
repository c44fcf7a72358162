package codegen

// intRegPriority is the fixed allocation order for integer/pointer values,
// per spec.md §4.5/§9: RAX first, then RCX, RDX, RBX, RSP, RBP, RSI, RDI —
// preserved exactly as specified even though RSP/RBP are reserved by every
// real x86-64 calling convention, because spec.md §8's testable end-to-end
// scenarios assert on this exact sequence.
var intRegPriority = []string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi"}

// floatRegPriority is the fixed allocation order for floating-point
// values: XMM0 through XMM7, per spec.md §4.5.
var floatRegPriority = []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"}

// RegAllocator is a bitmap allocator with a fixed priority order that
// never frees a register once allocated within one function — spec.md §9
// preserves this as a deliberate, tested limitation rather than the
// reuse/spill scheme lang/gen/regalloc.go implements for its target.
type RegAllocator struct {
	intInUse   [8]bool
	floatInUse [8]bool
}

// NewRegAllocator returns an allocator with every register free, for the
// start of a new function (spec.md §5: each function's code generation is
// an independent pass; nothing carries over register state between them).
func NewRegAllocator() *RegAllocator {
	return &RegAllocator{}
}

// AllocInt returns the next free integer/pointer register in priority
// order, or "" if all eight are in use (the code generator reports a
// code-gen-failure diagnostic in that case; spec.md deliberately has no
// spill path).
func (r *RegAllocator) AllocInt() string {
	for i, inUse := range r.intInUse {
		if !inUse {
			r.intInUse[i] = true
			return intRegPriority[i]
		}
	}
	return ""
}

// AllocFloat returns the next free XMM register in priority order, or ""
// if all eight are in use.
func (r *RegAllocator) AllocFloat() string {
	for i, inUse := range r.floatInUse {
		if !inUse {
			r.floatInUse[i] = true
			return floatRegPriority[i]
		}
	}
	return ""
}

// InUseInt/InUseFloat report occupancy for diagnostics and tests that
// assert on the exact allocation sequence (spec.md §8).
func (r *RegAllocator) InUseInt() [8]bool   { return r.intInUse }
func (r *RegAllocator) InUseFloat() [8]bool { return r.floatInUse }
