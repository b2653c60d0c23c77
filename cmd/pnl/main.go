package main

import (
	"os"

	"github.com/tmarchal/marginpnl/cmd/pnl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
