package main

import (
	"os"

	mythoscmder "github.com/mythos-rpg/mythos/cmd/mythos"
)

func main() {
	cmd := mythoscmder.NewMythosCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
