package main

import (
	"os"

	"github.com/runnerr0/yoda/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// The parser already reports errors on stderr.
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
