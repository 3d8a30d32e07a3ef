package main

import "github.com/invgeo/tomograd/cmd"

func main() {
	cmd.Execute()
}
