package main

import (
	"fmt"
	"os"

	"github.com/marmos91/metacache/cmd/metacache/commands"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/metacache/pkg/metrics/prometheus"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
