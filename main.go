package main

import "github.com/nchapman/tfjsconv/cmd"

func main() {
	cmd.Execute()
}
