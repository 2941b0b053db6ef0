package main

import (
	"fmt"
	"os"

	"keyword-enricher/internal/cli"
)

func main() {
	// Last-resort recovery so a panic still exits non-zero with a readable message
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "CRITICAL ERROR: application panic recovered: %v\n", r)
			os.Exit(1)
		}
	}()

	cli.Execute()
}
