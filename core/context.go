// Package core threads the IrGraph, ConfigStore and ImageView together as
// the single explicit context object every operation in this module
// takes, per spec.md §5 ("The IrGraph, ConfigStore, and ImageView
// collectively form a unit of mutation that must be owned by one actor")
// and §9's redesign note ("Module-level state ... is carried as an
// explicit context object threaded through every operation; there is no
// process-global state").
package core

import (
	"github.com/binlift/irmod/config"
	"github.com/binlift/irmod/image"
	"github.com/binlift/irmod/ir"
)

// Context bundles the three collaborators that must stay in sync across
// every mutation this core performs.
type Context struct {
	Module *ir.Module
	Config *config.Store
	Image  image.View
}

// New creates the IrGraph and ConfigStore together, as spec.md §3's
// Lifecycle section requires ("IrGraph and ConfigStore are created
// together at the start of lifting and live for the whole decompilation
// run"), bound to img for the run's one read-only I/O surface.
func New(moduleName string, pointerBits uint32, img image.View) *Context {
	return &Context{
		Module: ir.NewModule(moduleName, pointerBits),
		Config: config.NewStore(),
		Image:  img,
	}
}

// Pass is a single analysis/rewrite pass, as invoked by the downstream
// pipeline of spec.md §6. This core does not implement any pass itself —
// stack analysis, type propagation, idiom recognition, constants loading,
// parameter/return analysis are all named in spec.md §6 as clients, not
// part of this core — but Pass/Pipeline give that client relationship a
// concrete, testable shape.
type Pass func(ctx *Context) error

// Pipeline runs a fixed, externally-scheduled sequence of passes in order,
// stopping at the first error (spec.md §6: "passes are applied
// sequentially by the surrounding pipeline"; §7: unrecoverable conditions
// terminate the run).
type Pipeline struct {
	Passes []Pass
}

// Run executes every pass in order against ctx.
func (p *Pipeline) Run(ctx *Context) error {
	for _, pass := range p.Passes {
		if err := pass(ctx); err != nil {
			return err
		}
	}
	return nil
}
