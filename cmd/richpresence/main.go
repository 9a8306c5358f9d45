package main

import (
	"os"

	"github.com/lydakis/richpresence/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
