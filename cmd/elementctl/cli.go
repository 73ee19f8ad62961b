package main

import "fmt"

// RunCLI handles subcommand execution, checked before flag.Parse the same
// way the teacher's server binary dispatches subcommands ahead of its own
// flag set. Returns true if a subcommand was handled.
func RunCLI(args []string) bool {
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "version":
		fmt.Printf("elementctl %s\n", Version)
		return true
	default:
		return false
	}
}
