package main

import (
	"os"

	"github.com/candigo/candigo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
