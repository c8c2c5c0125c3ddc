package main

import "github.com/kozaktomas/faceratio/cmd"

func main() {
	cmd.Execute()
}
