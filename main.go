package main

import (
	"fmt"
	"os"

	"github.com/kilianp07/crunch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "crunch:", err)
		os.Exit(1)
	}
}
