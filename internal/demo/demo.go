// Package demo is a small village written against the script machine: a
// smith, a farmer and the hero, with daily routines, a conversation and a
// routine change. It stands in for a compiled script file wherever one is
// not at hand, in tests and in the simulate command.
package demo

import (
	_ "embed"
	"fmt"

	"regoth/internal/daedalus/vm"
)

// Scene is the YAML scene the village lives in.
//
//go:embed scene.yaml
var Scene []byte

// NewMachine returns a machine over a fresh demo symbol table.
func NewMachine() (*vm.Machine, error) {
	table, err := Symbols()
	if err != nil {
		return nil, fmt.Errorf("failed to build demo symbols: %w", err)
	}
	return vm.New(table, Scripts())
}
