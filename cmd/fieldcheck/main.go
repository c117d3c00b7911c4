package main

import (
	"fmt"
	"os"

	"github.com/solatis/fieldcheck/cmd/fieldcheck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, "error:", msg)
		}
		os.Exit(cmd.ExitCode(err))
	}
}
