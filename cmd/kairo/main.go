// Command kairo generates course schedules from the terminal, over the same
// program data the API server uses.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
