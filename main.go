package main

import (
	"os"

	"github.com/ozolins/panotour/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
