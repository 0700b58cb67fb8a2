// Package main provides the entry point for the deckstore CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/deckstore/cmd/deckstore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
