// Package main provides the entry point for the barberly search CLI.
package main

import (
	"os"

	"github.com/barberly/search/cmd/barberly/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
