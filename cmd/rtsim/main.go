// Command rtsim runs kernel scenarios on the simulated port and reports how
// the threads were scheduled.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
