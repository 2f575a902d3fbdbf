// Command quorum runs weighted multi-analyst consensus analyses from the
// command line. It wires the built-in analysts to a market data provider,
// builds the engine from a YAML configuration and prints the consolidated
// decision for a symbol.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "quorum: %v\n", err)

		// Untagged errors come from flag parsing and argument validation,
		// which are configuration mistakes.
		code := 2
		var exit *exitError
		if errors.As(err, &exit) {
			code = exit.code
		}
		os.Exit(code)
	}
}
