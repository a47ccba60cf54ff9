// Package localize implements the Localize and RenameFunction helpers of
// spec.md §4.5: turning a store-defined pseudo-global into a true
// function-local, and renaming a function with canonical normalization.
package localize

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/binlift/irmod/config"
	"github.com/binlift/irmod/core"
	"github.com/binlift/irmod/ir"
)

// ErrNotAPseudoGlobalStore is returned when storeDef's pointer operand is
// not a GlobalObject — Localize only knows how to convert a
// pseudo-global's store-site into an alloca.
var ErrNotAPseudoGlobalStore = errors.New("localize: store's pointer operand is not a global")

// Localize converts the pseudo-global that storeDef writes through into a
// true function-local: a fresh alloca of the pointee type is inserted at
// the entry block, a store of the original stored value is emitted at the
// original store's position, the original store is erased, and every
// value in uses is patched to point at the new alloca instead of the old
// global (spec.md §4.5).
func Localize(fn *ir.Function, storeDef *ir.Store, uses []ir.Value) (*ir.Alloca, error) {
	global, ok := storeDef.Addr.(*ir.GlobalObject)
	if !ok {
		return nil, errors.Wrapf(ErrNotAPseudoGlobalStore, "got %T", storeDef.Addr)
	}

	elemType := ir.Elem(global.Type())
	local := ir.NewAlloca(global.Name(), elemType)
	fn.Entry().PrependAlloca(local)

	newStore := ir.NewStore(local, storeDef.Val)
	ir.InsertBefore(storeDef, newStore)
	ir.AttachUses(newStore)

	ir.DetachUses(storeDef)
	ir.Erase(storeDef, nil)

	for _, u := range uses {
		patchUse(u, global, local)
	}

	return local, nil
}

// patchUse retargets every operand slot across u's instruction graph that
// points at old, to point at local instead. uses is typically each
// Load/GEP/cast that read the pseudo-global's address directly; those are
// themselves Instructions, so the natural unit to patch is "the
// instruction that produced u", found via u's own use-list being empty of
// help — Localize's caller passes the *using* instructions' result values
// directly, so the patch walks u as a Value and asks its own referrers
// for the operand to fix, mirroring ObjectMutator's ReplaceOperand usage.
func patchUse(u ir.Value, old *ir.GlobalObject, local *ir.Alloca) {
	if instr, ok := u.(ir.Instruction); ok {
		replaceOperandIfPresent(instr, old, local)
	}
	refs := u.Referrers()
	if refs == nil {
		return
	}
	for _, instr := range *refs {
		replaceOperandIfPresent(instr, old, local)
	}
}

func replaceOperandIfPresent(instr ir.Instruction, old *ir.GlobalObject, local *ir.Alloca) {
	var rands []*ir.Value
	rands = instr.Operands(rands[:0])
	for _, r := range rands {
		if *r == ir.Value(old) {
			ir.ReplaceOperand(instr, old, local)
		}
	}
}

// canonicalPrefixes are function-name prefixes this core normalizes away
// (spec.md §4.5: "apply a canonical name-prefix normalization"); lifters
// commonly salt generated names with a marker prefix that should not
// survive into a renamed, user-facing function name.
var canonicalPrefixes = []string{"sub_", "fcn_", "loc_"}

// normalize strips any recognized lifter-generated prefix from name.
func normalize(name string) string {
	for _, p := range canonicalPrefixes {
		if strings.HasPrefix(name, p) {
			return strings.TrimPrefix(name, p)
		}
	}
	return name
}

// RenameFunction applies canonical name-prefix normalization to newName
// and, if the result differs from fn's current name, renames fn and
// updates (or inserts) its ConfigStore entry. A no-op rename (the
// normalized name equals fn's current name) returns fn and its existing
// ConfigStore entry unchanged (spec.md §8's "Rename to same name"
// scenario).
func RenameFunction(ctx *core.Context, fn *ir.Function, newName string) (*ir.Function, *config.FunctionEntry) {
	canonical := normalize(newName)

	if canonical == fn.Name_ {
		entry, _ := ctx.Config.GetFunction(fn.Name_)
		return fn, entry
	}

	oldName := fn.Name_
	fn.Name_ = canonical

	entry, ok := ctx.Config.GetFunction(canonical)
	switch {
	case ok:
		entry.Name = canonical
		entry.Addr = fn.Addr
	default:
		if old, hadOld := ctx.Config.GetFunction(oldName); hadOld {
			entry = old
			entry.Name = canonical
			entry.Addr = fn.Addr
		} else {
			entry = &config.FunctionEntry{Addr: fn.Addr, Name: canonical, CallConv: fn.CallConv}
		}
	}
	ctx.Config.PutFunction(entry)
	if oldName != canonical {
		ctx.Config.DeleteFunction(oldName)
	}
	return fn, entry
}
