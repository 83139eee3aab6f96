// Package cmd is the tangle command-line interface: an interactive viewer
// plus export, stats and snapshot-normalization commands over the diagram
// engine.
package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tangle/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "tangle",
	Short: "Interactive node-diagram engine",
	Long: `tangle is a node-diagram engine with a terminal viewer.

Diagrams are JSON snapshot files: nodes with ports, connections with
optional control points, annotations and a viewport. The view command edits
them interactively; export renders them to PNG.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.tanglerc.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
