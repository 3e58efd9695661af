// Package cli implements the cobra-based CLI commands for calcforge.
//
// Each subcommand (eval, export, sheets) is defined in its own file.
// This file defines the root command, the global flags, and the shared
// helpers for loading a workbook and building a calculator from the
// optional YAML config.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chad-ld/calcforge"
)

// Global flag variables bound to cobra persistent flags on the root
// command, available to every subcommand.
var (
	configPath string
	verbose    bool
)

// Version and Commit are set at build time via ldflags.
var (
	Version = "dev"
	Commit  = "none"
)

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "calcforge",
		Short: "Worksheet formula calculator",
		Long: `calcforge evaluates per-line formulas across named worksheets:
arithmetic with cross-line and cross-sheet references, timecode math,
date and business-day arithmetic, unit and currency conversion, and
statistics over line ranges.`,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print diagnostics to stderr")

	rootCmd.AddCommand(newEvalCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newSheetsCommand())
	return rootCmd
}

// loadCalculator loads the workbook file and builds a calculator,
// applying the config file when one was given.
func loadCalculator(workbookPath string) (*calcforge.Calculator, error) {
	book, err := calcforge.LoadWorkbookFile(workbookPath)
	if err != nil {
		return nil, err
	}

	var opts []calcforge.Option
	if configPath != "" {
		cfg, err := calcforge.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		opts = cfg.Options()
		debugf("loaded config from %s", configPath)
	}
	debugf("loaded workbook %s with %d sheet(s)", workbookPath, book.Len())
	return calcforge.New(book, opts...), nil
}

// debugf prints to stderr when --verbose is set.
func debugf(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
