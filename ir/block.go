package ir

// BasicBlock is a straight-line sequence of Instructions ending in exactly
// one terminator (Branch, CondBranch, or Return). Preds/Succs form the
// function's control-flow graph.
type BasicBlock struct {
	Index  int
	Func   *Function
	Instrs []Instruction
	Preds  []*BasicBlock
	Succs  []*BasicBlock

	// gaps counts nil holes left in Instrs by Erase, compacted lazily by
	// Function.Compact. Mirrors the teacher's ssa.BasicBlock.gaps field
	// (ssa/lift.go), which exists for exactly the same reason: erasing by
	// nil-ing out a slot is O(1) and safe mid-iteration, where a slice
	// delete is not.
	gaps int
}

// terminator returns the block's terminator instruction, or nil if the
// block has none yet (under construction).
func (b *BasicBlock) terminator() Instruction {
	for i := len(b.Instrs) - 1; i >= 0; i-- {
		if b.Instrs[i] != nil {
			return b.Instrs[i]
		}
	}
	return nil
}

// firstNonAlloca returns the index of the first non-Alloca, non-nil
// instruction in the block, or len(b.Instrs) if the block is all allocas.
// This is the canonical insertion point for new stack locals (spec.md §3:
// "The first instruction of the entry block is the canonical insertion
// point for stack locals"; invariant 6: "every alloca ... before any
// non-alloca instruction").
func (b *BasicBlock) firstNonAlloca() int {
	for i, instr := range b.Instrs {
		if instr == nil {
			continue
		}
		if _, ok := instr.(*Alloca); !ok {
			return i
		}
	}
	return len(b.Instrs)
}

// AppendInst appends instr to the end of the block and attaches it.
func (b *BasicBlock) AppendInst(instr Instruction) {
	instr.setBlock(b)
	b.Instrs = append(b.Instrs, instr)
}

// PrependAlloca inserts an Alloca at the canonical stack-local insertion
// point of the entry block: after any existing allocas, before the first
// non-alloca instruction. Callers (StackSlotAllocator, ObjectMutator,
// Localize) must only call this on a function's entry block; it panics
// otherwise, since placing an alloca anywhere else would silently violate
// invariant 6.
func (b *BasicBlock) PrependAlloca(a *Alloca) {
	if b.Func != nil && len(b.Func.Blocks) > 0 && b.Func.Blocks[0] != b {
		panic("ir: PrependAlloca called on a non-entry block")
	}
	at := b.firstNonAlloca()
	a.setBlock(b)
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[at+1:], b.Instrs[at:])
	b.Instrs[at] = a
}

// InsertBefore inserts instr immediately before anchor in anchor's block.
// Preserves SSA dominance only insofar as the caller respects scoping
// (spec.md §3: "Insert-before and insert-after preserve SSA dominance
// assuming the caller respects scoping" — this core does not itself
// verify dominance of the insertion point).
func InsertBefore(anchor Instruction, instr Instruction) {
	b := anchor.Block()
	instr.setBlock(b)
	for i, in := range b.Instrs {
		if in == anchor {
			b.Instrs = append(b.Instrs, nil)
			copy(b.Instrs[i+1:], b.Instrs[i:])
			b.Instrs[i] = instr
			return
		}
	}
	panic("ir: InsertBefore: anchor not found in its own block")
}

// InsertAfter inserts instr immediately after anchor in anchor's block.
func InsertAfter(anchor Instruction, instr Instruction) {
	b := anchor.Block()
	instr.setBlock(b)
	for i, in := range b.Instrs {
		if in == anchor {
			b.Instrs = append(b.Instrs, nil)
			copy(b.Instrs[i+2:], b.Instrs[i+1:])
			b.Instrs[i+1] = instr
			return
		}
	}
	panic("ir: InsertAfter: anchor not found in its own block")
}

// EraseQueue is the deferred-erasure handle of spec.md §4.2 step 5 and
// §9's "Caller-controlled deferred erasure" redesign note: a client
// traversing the users of some object cannot have those instructions
// deleted out from under its traversal, so deletion may be deferred onto
// an explicit queue it controls and flushes when it is safe to do so.
// A nil *EraseQueue means eager erase (spec.md §9: "absence of the handle
// means eager erase").
type EraseQueue struct {
	pending []Instruction
}

// NewEraseQueue returns an empty deferred-erasure queue.
func NewEraseQueue() *EraseQueue { return &EraseQueue{} }

// Erase removes instr from its basic block, or — if q is non-nil — queues
// it for later removal via q.Flush. instr's operands are not touched;
// callers must have already redirected any remaining users away from
// instr's result before erasing it (ReplaceAllUsesWith does this).
func Erase(instr Instruction, q *EraseQueue) {
	if q != nil {
		q.pending = append(q.pending, instr)
		return
	}
	eraseNow(instr)
}

func eraseNow(instr Instruction) {
	b := instr.Block()
	if b == nil {
		return
	}
	for i, in := range b.Instrs {
		if in == instr {
			b.Instrs[i] = nil
			b.gaps++
			return
		}
	}
}

// Flush erases every instruction queued via Erase(instr, q) and empties
// the queue.
func (q *EraseQueue) Flush() {
	for _, instr := range q.pending {
		eraseNow(instr)
	}
	q.pending = q.pending[:0]
}

// Compact removes nil holes left by Erase from every block of fn, reusing
// each block's backing array when there is room (mirrors the teacher's
// compaction step at the end of ssa's lift pass, ssa/lift.go).
func (fn *Function) Compact() {
	for _, b := range fn.Blocks {
		if b.gaps == 0 {
			continue
		}
		dst := b.Instrs[:0]
		for _, instr := range b.Instrs {
			if instr != nil {
				dst = append(dst, instr)
			}
		}
		b.Instrs = dst
		b.gaps = 0
	}
}
