// Command miditui is a terminal-resident digital audio workstation.
package main

import (
	"fmt"
	"os"

	"github.com/minimaxir/miditui/pkg/app"
)

func main() {
	if err := app.New().Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
