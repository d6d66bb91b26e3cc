package main

import "github.com/javajack/xltransform/internal/cli"

func main() {
	cli.Execute()
}
