package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/binlift/irmod/config"
	"github.com/binlift/irmod/core"
	"github.com/binlift/irmod/image"
	"github.com/binlift/irmod/ir"
	"github.com/binlift/irmod/materialize"
)

func newMaterializeGlobalCmd() *cobra.Command {
	var (
		imagePath string
		base      uint64
		addr      uint64
		nameHint  string
		strict    bool
		configOut string
	)
	cmd := &cobra.Command{
		Use:   "materialize-global",
		Short: "materialize a global variable at an address out of a flat raw image",
		RunE: func(cmd *cobra.Command, args []string) error {
			pointerBits, err := cmd.Flags().GetUint32("pointer-bits")
			if err != nil {
				return err
			}
			return runMaterializeGlobal(cmd, imagePath, ir.Address(base), ir.Address(addr), nameHint, strict, configOut, pointerBits)
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "path to a flat raw binary (required)")
	cmd.Flags().Uint64Var(&base, "base", 0, "virtual address of the image's first byte")
	cmd.Flags().Uint64Var(&addr, "addr", 0, "virtual address to materialize a global at (required)")
	cmd.Flags().StringVar(&nameHint, "name", "g", "name hint for the materialized global")
	cmd.Flags().BoolVar(&strict, "strict", false, "disable the ARM/Thumb and PIC32 can-be-created relaxation")
	cmd.Flags().StringVar(&configOut, "config-out", "", "write the resulting ConfigStore document here")
	cmd.MarkFlagRequired("image")
	cmd.MarkFlagRequired("addr")
	return cmd
}

func runMaterializeGlobal(cmd *cobra.Command, imagePath string, base, addr ir.Address, nameHint string, strict bool, configOut string, pointerBits uint32) error {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return errors.Wrap(err, "irmodtool: reading image")
	}

	view := image.NewMemView()
	view.AddRegion(base, raw, image.SegData)

	ctx := core.New("irmodtool", pointerBits, view)
	mz := materialize.New(ctx, materialize.ArchGeneric)

	g, err := mz.GetGlobalVariable(addr, strict, nameHint)
	if err != nil {
		return errors.Wrap(err, "irmodtool: materializing global")
	}

	out := cmd.OutOrStdout()
	if g == nil {
		fmt.Fprintf(out, "address %#x: not materializable (relaxed=%d cycles=%d unreadable=%d)\n",
			uint64(addr), mz.Stats.RelaxedAcceptances, mz.Stats.InitializerCycles, mz.Stats.InitializerUnreadable)
		return nil
	}
	fmt.Fprintf(out, "global %s: type=%s addr=%#x\n", g.Name(), g.Type(), uint64(*g.Addr))

	if configOut == "" {
		return nil
	}
	cf, err := os.Create(configOut)
	if err != nil {
		return errors.Wrap(err, "irmodtool: creating config-out")
	}
	defer cf.Close()
	return saveConfig(ctx.Config, cf)
}

func saveConfig(store *config.Store, w *os.File) error {
	return errors.Wrap(store.Save(w), "irmodtool: writing config document")
}
