package main

import "github.com/tfsdf/go-wiidisc/cmd"

func main() {
	cmd.Execute()
}
