// Command nexravision is the recording daemon: it watches for the game
// process, captures gameplay, and ships finished recordings to the
// analysis service.
package main

import (
	"fmt"
	"os"
)

// version and commit are set at build time via -ldflags (e.g. Makefile).
var (
	version = "1.0.0-dev"
	commit  = "unknown"
)

func main() {
	if err := newCLIApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "nexravision: %v\n", err)
		os.Exit(1)
	}
}
