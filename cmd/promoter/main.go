package main

import (
	"os"
)

// Exit statuses, so the invoking pipeline can gate subsequent stages:
// 0 means at least one environment was promoted, 3 means every
// environment was already up to date, anything else is a failure.
const (
	exitPromoted = 0
	exitFailed   = 1
	exitNoOp     = 3
)

func main() {
	root := newRoot()
	rootCmd := root.Command()

	if cmd, err := rootCmd.ExecuteC(); err != nil {
		switch err.(type) {
		case *usageError:
			cmd.Println("")
			cmd.Println(cmd.UsageString())
		}
		os.Exit(exitFailed)
	}
	os.Exit(root.exitCode)
}
