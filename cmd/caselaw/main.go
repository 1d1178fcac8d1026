// Package main provides the entry point for the caselaw CLI.
package main

import (
	"os"

	"github.com/swiss-caselaw/caselawmcp/cmd/caselaw/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
