package main

import "github.com/forPelevin/cuesync/internal/cli"

func main() {
	cli.Main()
}
