package main

import (
	"os"

	"github.com/seferino-fernandez/scripts/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
