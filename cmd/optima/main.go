package main

import (
	"fmt"
	"os"
)

// Populated via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
