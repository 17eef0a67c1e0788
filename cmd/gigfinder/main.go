package main

import "github.com/gigfinder/gigfinder/internal/cli"

func main() {
	cli.Execute()
}
