// Package main provides the entry point for the edmindex CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/edmindex/cmd/edmindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
