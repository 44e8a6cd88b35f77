package main

import "github.com/kiesman99/spritesheet/cmd"

func main() {
	cmd.Execute()
}
