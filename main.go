package main

import "github.com/kamal-hamza/stasher/cmd"

func main() {
	cmd.Execute()
}
