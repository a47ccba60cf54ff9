package core

import (
	"fmt"

	"github.com/binlift/irmod/ir"
)

// Verify checks invariants 2, 3, 5 and 6 of spec.md §3, returning every
// violation found; invariants 1, 4 and 7 are not checked. ir.Verify covers invariants 3, 5, 6 (globals/stack/self-reference,
// all purely internal to the IR graph); Verify here adds invariant 2,
// which needs both Module and Config: "Every GlobalObject present in
// IrGraph with a binary address has a matching ConfigObject, and vice
// versa."
//
// Safe to call after any exported operation in typeconv/mutate/materialize/
// localize; used directly by this module's own tests to check the
// invariant-properties of spec.md §8.
func Verify(ctx *Context) []string {
	problems := ir.Verify(ctx.Module)

	for _, g := range ctx.Module.Globals {
		if g.Addr == nil {
			continue
		}
		if _, ok := ctx.Config.GetByAddr(*g.Addr); !ok {
			problems = append(problems, fmt.Sprintf("global %s at %#x has no ConfigStore entry", g.Name(), *g.Addr))
		}
	}
	for _, g := range ctx.Module.Globals {
		if g.Addr == nil {
			continue
		}
		handle, ok := ctx.Config.HandleOf(g)
		if !ok {
			problems = append(problems, fmt.Sprintf("global %s at %#x is not bound to any ConfigStore handle", g.Name(), *g.Addr))
			continue
		}
		obj, _ := ctx.Config.Get(handle)
		if obj.Storage.Addr != *g.Addr {
			problems = append(problems, fmt.Sprintf("global %s: ConfigStore address %#x disagrees with IR address %#x", g.Name(), obj.Storage.Addr, *g.Addr))
		}
	}

	return problems
}
