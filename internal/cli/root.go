// Package cli is the regoth command line: simulate the demo village, inspect
// compiled script files, render waynets and manage saves.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"regoth/internal/config"
	"regoth/internal/log"
)

type app struct {
	configPath string
	logLevel   string
	cfg        config.Config
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "regoth",
		Short:         "Scripted NPC simulation for Daedalus-driven worlds",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.Log.Level = a.logLevel
			}
			if err := log.Configure(log.Options{Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
				return fmt.Errorf("failed to configure logging: %w", err)
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "regoth.yaml", "path to the YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newSimulateCommand(a),
		newSymbolsCommand(a),
		newWaynetCommand(a),
		newSavesCommand(a),
	)
	return root
}

// Execute runs the command line and exits with status 1 on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
