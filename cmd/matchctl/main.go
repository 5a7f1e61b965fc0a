package main

import "github.com/mcoot/chessmatch/internal/cli"

func main() {
	cli.Execute()
}
