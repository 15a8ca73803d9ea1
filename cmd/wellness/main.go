package main

import "github.com/layer-3/wellness/cmd/wellness/cmd"

func main() {
	cmd.Execute()
}
