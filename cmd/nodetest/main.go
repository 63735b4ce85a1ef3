// Package main is the entry point for the nodetest CLI.
package main

import (
	"os"

	"github.com/AndreyAkinshin/nodetest/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
