package ir

import "fmt"

// Verify walks m and returns every violation of the invariants of spec.md
// §3 that this package alone can check (invariant 2, the ConfigStore
// mirroring requirement, is checked by core.Verify, which has access to
// both m and the config.Store). It never panics and never mutates m: it
// accumulates diagnostics into a slice the way the teacher's go/types
// checker accumulates errors while walking an AST (go/types/check.go),
// rather than failing fast on the first problem, so a caller can see every
// violation in one pass.
func Verify(m *Module) []string {
	var problems []string

	// Invariant 3: no two globals share a (name, address) pair.
	seen := make(map[string]bool)
	for _, g := range m.Globals {
		if g.Addr == nil {
			continue
		}
		key := fmt.Sprintf("%s@%x", g.name, *g.Addr)
		if seen[key] {
			problems = append(problems, fmt.Sprintf("duplicate global (name=%s, addr=%x)", g.name, *g.Addr))
		}
		seen[key] = true
	}

	// Invariant 5: no global initializer references itself transitively.
	for _, g := range m.Globals {
		if g.Initializer != nil && initializerReferences(g.Initializer, g, make(map[Value]bool)) {
			problems = append(problems, fmt.Sprintf("global %s has a self-referential initializer", g.name))
		}
	}

	// Invariant 6: every alloca in a function lives in that function's
	// entry block, before any non-alloca instruction.
	for _, fn := range m.Functions {
		entry := fn.Entry()
		if entry == nil {
			continue
		}
		firstNonAlloca := entry.firstNonAlloca()
		for i, instr := range entry.Instrs {
			if _, ok := instr.(*Alloca); ok && i > firstNonAlloca {
				problems = append(problems, fmt.Sprintf("func %s: alloca found after non-alloca instruction in entry block", fn.Name_))
			}
		}
		for _, b := range fn.Blocks[1:] {
			for _, instr := range b.Instrs {
				if _, ok := instr.(*Alloca); ok {
					problems = append(problems, fmt.Sprintf("func %s: alloca found outside entry block", fn.Name_))
				}
			}
		}
	}

	// Every block in a function must be reachable from the entry block via
	// the CFG edges AddEdge records; a block disconnected from entry is
	// left-over scaffolding, usually from a mutation that erased a branch
	// without also dropping the block it used to reach.
	for _, fn := range m.Functions {
		reached := reachableBlocks(fn)
		for _, b := range fn.Blocks {
			if !reached.Has(b) {
				problems = append(problems, fmt.Sprintf("func %s: block %d is unreachable from entry", fn.Name_, b.Index))
			}
		}
	}

	return problems
}

// reachableBlocks returns the set of blocks reachable from fn's entry
// block by walking Succs, using the same BlockSet bitset the teacher's
// ssa package uses for CFG scratch sets (ir/liftset.go) both for the
// visited set and, via Take, for the worklist of indices left to explore.
func reachableBlocks(fn *Function) *BlockSet {
	reached := &BlockSet{}
	entry := fn.Entry()
	if entry == nil {
		return reached
	}
	frontier := &BlockSet{}
	frontier.Add(entry)
	for {
		i := frontier.Take()
		if i < 0 {
			break
		}
		b := fn.Blocks[i]
		if !reached.Add(b) {
			continue
		}
		for _, succ := range b.Succs {
			if !reached.Has(succ) {
				frontier.Add(succ)
			}
		}
	}
	return reached
}

// initializerReferences reports whether the constant expression tree v
// transitively references target, walking ConstExpr/ConstAggregate nodes.
// visited guards against runaway recursion on malformed trees; it is not
// itself cycle detection (a correctly-built IR graph cannot contain a
// cycle among Consts, since they're plain trees) but a defensive bound.
func initializerReferences(v Value, target *GlobalObject, visited map[Value]bool) bool {
	if v == nil || visited[v] {
		return false
	}
	visited[v] = true
	if g, ok := v.(*GlobalObject); ok {
		return g == target
	}
	switch v := v.(type) {
	case *ConstAggregate:
		for _, f := range v.Fields {
			if initializerReferences(f, target, visited) {
				return true
			}
		}
	case *ConstExpr:
		return initializerReferences(v.X, target, visited)
	}
	return false
}
