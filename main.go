package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"regoth/internal/cli"
	"regoth/internal/log"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("GLOBAL PANIC recovered", "error", r, "stack", string(debug.Stack()))
			fmt.Fprintf(os.Stderr, "regoth crashed: %v\n", r)
			os.Exit(1)
		}
	}()

	cli.Execute()
}
