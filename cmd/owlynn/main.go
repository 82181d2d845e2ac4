// Package main provides the entry point for the owlynn operator CLI.
package main

import (
	"fmt"
	"os"

	"owlynn-be/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
