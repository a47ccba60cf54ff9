// Command irmodtool is a thin driver over this module's core packages: it
// is not a decompiler frontend (there is no lifter or binary loader here),
// just a smoke-test surface for exercising ir/core/config/typeconv/
// mutate/materialize/localize end to end from the shell, the way a
// project this size would ship a throwaway CLI alongside its library code.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
