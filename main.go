package main

import (
	"os"

	"github.com/bimmerbailey/ppmerge/cmd"
	"github.com/bimmerbailey/ppmerge/internal/output"
)

func main() {
	if err := cmd.Execute(); err != nil {
		_ = output.WriteDiagnostic(os.Stderr, err, output.ColorAuto)
		os.Exit(1)
	}
}
