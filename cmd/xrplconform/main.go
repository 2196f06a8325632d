package main

import "github.com/LeJamon/xrplconform/internal/cli"

func main() {
	cli.Execute()
}
