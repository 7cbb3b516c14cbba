package main

import (
	"os"

	"github.com/bianoble/contentpack/cmd/contentpack/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
