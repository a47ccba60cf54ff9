package ir

// ReplaceAllUsesWith retargets every operand slot that currently points at
// old so that it points at new instead, and merges old's use-list into
// new's. This is the teacher's replaceAll (ssa/lift.go), generalized from
// "registers being lifted out of existence" to this core's broader use:
// ObjectMutator uses it whenever a retyped object's old declaration must
// vanish from the program; AddressMaterializer uses it when a global is
// rebuilt under a new initializer type.
//
// Precondition: old.Referrers() must be non-nil, i.e. old must be a value
// that is tracked by a use-list (not a Const/Undef/ConstExpr). Callers
// that might pass an untracked value should check first.
func ReplaceAllUsesWith(old, new Value) {
	oldRefs := old.Referrers()
	if oldRefs == nil {
		panic("ir: ReplaceAllUsesWith: old has no use-list (is a constant)")
	}
	newRefs := new.Referrers()

	var rands []*Value
	for _, instr := range *oldRefs {
		rands = instr.Operands(rands[:0])
		for _, r := range rands {
			if *r == old {
				*r = new
			}
		}
		if newRefs != nil {
			*newRefs = append(*newRefs, instr)
		}
	}
	*oldRefs = nil
}

// replaceOperand rewrites the single operand slot of instr that currently
// points at old, if any, to point at new instead, without touching either
// value's use-list. Used by ObjectMutator's per-user retyping, which needs
// to patch exactly one operand (not every use at once) and separately
// manages use-lists via AddUse/RemoveUse below.
func replaceOperand(instr Instruction, old, new Value) {
	var rands []*Value
	rands = instr.Operands(rands[:0])
	for _, r := range rands {
		if *r == old {
			*r = new
		}
	}
}

// ReplaceOperand rewrites the single operand slot of instr that currently
// points at old to new, updating both values' use-lists. Unlike
// ReplaceAllUsesWith, which retargets every user of old at once, this
// patches exactly one user — the shape ObjectMutator needs when retyping
// each user of a changed object individually, often through a freshly
// converted value rather than the same replacement every time (spec.md
// §4.2 step 4).
func ReplaceOperand(instr Instruction, old, new Value) {
	replaceOperand(instr, old, new)
	RemoveUse(old, instr)
	AddUse(new, instr)
}

// AddUse appends instr to v's use-list, if v tracks one. Call this after
// wiring instr's operand to v by hand (e.g. via a constructor) rather than
// through ReplaceAllUsesWith.
func AddUse(v Value, instr Instruction) {
	refs := v.Referrers()
	if refs == nil {
		return
	}
	*refs = append(*refs, instr)
}

// RemoveUse removes the first occurrence of instr from v's use-list, if
// v tracks one. Used when an instruction that referenced v is erased.
func RemoveUse(v Value, instr Instruction) {
	refs := v.Referrers()
	if refs == nil {
		return
	}
	for i, r := range *refs {
		if r == instr {
			*refs = append((*refs)[:i], (*refs)[i+1:]...)
			return
		}
	}
}

// Users returns a defensive copy of v's use-list. ObjectMutator's step 3
// ("Snapshot users") uses exactly this: "take a local copy of v's user
// list before mutation" (spec.md §4.2), because mutating a use-list while
// ranging over it has been observed to silently drop users mid-iteration.
func Users(v Value) []Instruction {
	refs := v.Referrers()
	if refs == nil {
		return nil
	}
	out := make([]Instruction, len(*refs))
	copy(out, *refs)
	return out
}
