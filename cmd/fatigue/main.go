// The fatigue command is a demo front end over the fatigue-go library: find
// a running process, inspect its memory maps, and locate or patch bytes
// inside it. It is a thin wrapper — all the actual inspection/patching work
// lives in the library packages; this package only handles argument
// parsing, terminal-width-aware output, and wiring flags through to them.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
