package main

import "github.com/edgeline/edgeline/cmd"

func main() {
	cmd.Execute()
}
