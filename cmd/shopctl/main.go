// Package main is the entry point for the shopctl CLI.
package main

import "github.com/sellhub/shopctl/internal/cli"

func main() {
	cli.Execute()
}
