// Package main is the entry point for the esm CLI tool.
package main

import (
	"os"

	"github.com/aidanlsb/esm/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
