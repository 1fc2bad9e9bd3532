package main

import (
	"fmt"
	"os"

	"github.com/m3rciful/kilobot/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kilobot:", err)
		os.Exit(1)
	}
}
