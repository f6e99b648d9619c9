package main

import "github.com/stealsift/stealsift/cmd/cli"

func main() {
	cli.Main()
}
