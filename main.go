package main

import "gistfinder/cmd"

func main() {
	cmd.Execute()
}
