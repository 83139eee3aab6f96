package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tangle/engine"
	"tangle/plugin"
)

var statsCmd = &cobra.Command{
	Use:   "stats <snapshot.json>",
	Short: "Print entity counts and bounds for a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		snap, err := readSnapshotFile(args[0])
		if err != nil {
			return err
		}
		eng := engine.New(cfg, engine.WithLogger(newLogger()))
		defer eng.Close()

		collector := plugin.NewStats(newLogger())
		if err := collector.Attach(eng); err != nil {
			return err
		}
		defer collector.Detach()

		if err := eng.LoadGraph(snap); err != nil {
			return err
		}

		header := color.New(color.FgCyan, color.Bold)
		header.Println(args[0])
		fmt.Printf("  nodes        %d\n", collector.Nodes())
		fmt.Printf("  connections  %d\n", collector.Connections())
		fmt.Printf("  annotations  %d\n", len(eng.Graph().Annotations()))
		if bounds, ok := eng.Graph().ContentBounds(); ok {
			fmt.Printf("  bounds       (%.0f, %.0f) to (%.0f, %.0f)\n",
				bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
		}
		fmt.Printf("  zoom         %.2f\n", eng.Viewport().Zoom())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
