package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/binlift/irmod/core"
	"github.com/binlift/irmod/image"
	"github.com/binlift/irmod/ir"
	"github.com/binlift/irmod/localize"
	"github.com/binlift/irmod/mutate"
)

// newSelftestCmd builds a small synthetic function and runs it through
// ObjectMutator and RenameFunction, the way a throwaway smoke test would — it
// exists to give a human a one-shot way to see the core's public API
// produce a verifiably-consistent module without writing Go.
func newSelftestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "exercise ObjectMutator and RenameFunction against a synthetic function and report invariant checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			pointerBits, err := cmd.Flags().GetUint32("pointer-bits")
			if err != nil {
				return err
			}
			return runSelftest(cmd, pointerBits)
		},
	}
	return cmd
}

func runSelftest(cmd *cobra.Command, pointerBits uint32) error {
	out := cmd.OutOrStdout()
	ctx := core.New("selftest", pointerBits, image.NewMemView())

	fn := ir.NewFunction("sub_401000", ir.NewFunc(ir.Void, nil, false))
	ctx.Module.AddFunction(fn)
	entry := fn.Entry()

	slot := ir.NewAlloca("v", ir.I32)
	entry.PrependAlloca(slot)

	ret := ir.NewReturn(nil)
	entry.AppendInst(ret)

	store := ir.NewStore(slot, ir.NewConstInt(ir.I32, 7))
	ir.InsertBefore(ret, store)
	ir.AttachUses(store)

	load := ir.NewLoad("v.loaded", slot)
	ir.InsertBefore(ret, load)
	ir.AttachUses(load)

	m := mutate.New(ctx)
	eraseQ := ir.NewEraseQueue()
	wider, err := m.ChangeObjectType(slot, ir.NewPointer(ir.I64), nil, eraseQ, false)
	if err != nil {
		return err
	}
	eraseQ.Flush()
	fmt.Fprintf(out, "retyped %s -> %s\n", slot.Name(), wider.Type())

	oldName := fn.Name_
	renamed, entryCfg := localize.RenameFunction(ctx, fn, "main")
	fmt.Fprintf(out, "renamed %s -> %s (configstore name=%s)\n", oldName, renamed.Name_, entryCfg.Name)

	problems := core.Verify(ctx)
	if len(problems) == 0 {
		fmt.Fprintln(out, "verify: ok")
		return nil
	}
	for _, p := range problems {
		fmt.Fprintln(out, "verify:", p)
	}
	return nil
}
