package main

import (
	"os"

	flowsweepcmd "github.com/flowsweep/flowsweep/pkg/flowsweep/cmd"
)

func main() {
	root := flowsweepcmd.NewRootCommand(flowsweepcmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
