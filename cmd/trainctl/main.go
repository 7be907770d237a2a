package main

import (
	"os"

	"github.com/okian/trainboard/cmd/trainctl/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
