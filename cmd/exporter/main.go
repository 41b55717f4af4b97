package main

import (
	"os"

	"github.com/scielo-forge/exporter/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
