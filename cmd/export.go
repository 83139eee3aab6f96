package cmd

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"tangle/engine"
	"tangle/graph"
	"tangle/render"
)

var (
	exportFormat string
	exportOut    string
	exportScale  float64
)

var exportCmd = &cobra.Command{
	Use:   "export <snapshot.json>",
	Short: "Render a snapshot to PNG, or re-emit it as normalized JSON",
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
		if err := eng.LoadGraph(snap); err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = strings.TrimSuffix(args[0], ".json") + "." + exportFormat
		}
		f, err := os.Create(out)
		if err != nil {
			return errors.Wrapf(err, "creating %s", out)
		}
		defer f.Close()

		switch exportFormat {
		case "png":
			return render.PNG(eng, f, render.Options{Scale: exportScale})
		case "json":
			return eng.ExportGraph().WriteJSON(f)
		default:
			return errors.Errorf("unknown format %q (want png or json)", exportFormat)
		}
	},
}

func readSnapshotFile(path string) (graph.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return graph.Snapshot{}, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return graph.ReadSnapshot(f)
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "png", "output format: png or json")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default: input with new extension)")
	exportCmd.Flags().Float64Var(&exportScale, "scale", 1, "pixels per graph unit for PNG output")
	rootCmd.AddCommand(exportCmd)
}
