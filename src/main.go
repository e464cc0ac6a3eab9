package main

import "github.com/n0computer/iroh-release/src/cmd"

func main() {
	cmd.Execute()
}
