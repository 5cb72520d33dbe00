package main

import "sendertally/internal/cli"

func main() {
	cli.Execute()
}
