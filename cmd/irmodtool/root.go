package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "irmodtool",
		Short:         "exercise the IR-modification core from the shell",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().Uint32("pointer-bits", 64, "target ABI pointer width")

	root.AddCommand(newDumpCmd())
	root.AddCommand(newMaterializeGlobalCmd())
	root.AddCommand(newSelftestCmd())
	return root
}
