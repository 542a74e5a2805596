package main

import "github.com/watchbuyer/watchbuyer/cmd"

func main() {
	cmd.Execute()
}
