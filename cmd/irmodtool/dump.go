package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/binlift/irmod/config"
)

func newDumpCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "print every object and function tracked by a ConfigStore document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, path)
		},
	}
	cmd.Flags().StringVar(&path, "config", "", "path to a ConfigStore YAML document (required)")
	cmd.MarkFlagRequired("config")
	return cmd
}

func runDump(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "irmodtool: opening config document")
	}
	defer f.Close()

	store, err := config.Load(f)
	if err != nil {
		return errors.Wrap(err, "irmodtool: loading config document")
	}

	out := cmd.OutOrStdout()
	for _, obj := range store.Objects() {
		fmt.Fprintf(out, "object %d: %s storage=%s type=%s\n", obj.Handle, obj.Name, obj.Storage.Kind, obj.TypeSource)
	}
	for _, fn := range store.FunctionEntries() {
		fmt.Fprintf(out, "function: %s callconv=%s\n", fn.Name, fn.CallConv)
	}
	return nil
}
