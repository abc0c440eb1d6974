package main

import "github.com/felixgeelhaar/termax/cmd/termax/cli"

func main() {
	cli.Execute()
}
