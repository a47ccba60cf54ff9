package ir

// AttachUses registers instr as a user of each of its current operands.
// Call this once, right after an instruction referencing live values has
// been constructed and placed in a block — constructors in this package
// only wire the operand fields themselves; they do not register the
// use-list side, so that code paths building detached const-expr-only
// values (which have no use-list to join) don't pay for bookkeeping they
// don't need.
func AttachUses(instr Instruction) {
	var rands []*Value
	rands = instr.Operands(rands[:0])
	for _, r := range rands {
		if *r != nil {
			AddUse(*r, instr)
		}
	}
}

// DetachUses removes instr from the use-list of each of its current
// operands. Call this before discarding an instruction outright (as
// opposed to Erase, which removes it from its block but leaves its
// operand use-lists alone until the caller is done inspecting them).
func DetachUses(instr Instruction) {
	var rands []*Value
	rands = instr.Operands(rands[:0])
	for _, r := range rands {
		if *r != nil {
			RemoveUse(*r, instr)
		}
	}
}
