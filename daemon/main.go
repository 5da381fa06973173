package main

import (
	"os"

	"github.com/livos-io/livos/daemon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
