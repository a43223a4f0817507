package main

import "github.com/pamarcar/stays/cmd/stays/cmd"

func main() {
	cmd.Execute()
}
