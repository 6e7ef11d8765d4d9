// Command agronix is the AgroNix command line: chat with the assistant,
// list calendar events and inspect the crop report.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
