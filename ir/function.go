package ir

// Function is an ordered list of basic blocks; Blocks[0] is the entry
// block (spec.md §3: "first block is the entry block"). Locals tracks the
// Allocas that represent this function's stack variables, so
// StackSlotAllocator and Localize can find/extend them without scanning
// every block.
type Function struct {
	valueBase
	Name_   string
	Addr    *Address
	Sig     *FuncType
	Params  []*Argument
	Blocks  []*BasicBlock
	Locals  []*Alloca
	CallConv string
}

func (f *Function) Type() Type { return NewPointer(f.Sig) }

// NewFunction constructs a Function with the given signature and a single,
// empty entry block. Parameters are created as Arguments positioned per
// sig.Params.
func NewFunction(name string, sig *FuncType) *Function {
	f := &Function{Name_: name, Sig: sig}
	f.name = name
	for i, pt := range sig.Params {
		f.Params = append(f.Params, NewArgument("", pt, i, f))
	}
	f.NewBlock()
	return f
}

// Entry returns the function's entry block.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewBlock appends a fresh, empty basic block to f and returns it.
func (f *Function) NewBlock() *BasicBlock {
	b := &BasicBlock{Index: len(f.Blocks), Func: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// AddEdge records a CFG edge from -> to in both directions.
func AddEdge(from, to *BasicBlock) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

// RebuildSignature replaces f's signature with sig, rebuilding f.Params so
// that every argument keeps its identity and use-list except the one at
// index position, which is replaced by a fresh Argument of the new type.
// This is ObjectMutator's FunctionArgument retyping collaborator (spec.md
// §4.2 step 2: "rebuild the function signature with the argument at the
// same position retyped (implemented via a signature-rewrite
// collaborator)"). Returns the new Argument at position.
func (f *Function) RebuildSignature(position int, newType Type) *Argument {
	if position < 0 || position >= len(f.Params) {
		panic("ir: RebuildSignature: position out of range")
	}
	old := f.Params[position]
	newParams := make([]Type, len(f.Sig.Params))
	copy(newParams, f.Sig.Params)
	newParams[position] = newType
	f.Sig = NewFunc(f.Sig.Ret, newParams, f.Sig.Vararg)

	replacement := NewArgument(old.name, newType, position, f)
	*replacement.Referrers() = *old.Referrers()
	f.Params[position] = replacement
	return replacement
}
