package main

import (
	"os"

	"github.com/gnolang/pgrename/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
