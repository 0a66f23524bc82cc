// Package main is the entry point for immcadctl, the IMMCAD operational CLI.
package main

import (
	"fmt"
	"os"

	"immcad-api/cmd/immcadctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
