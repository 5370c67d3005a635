package main

import (
	"os"

	"skep/cmd/skep/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
