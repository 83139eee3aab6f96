package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"tangle/engine"
)

// fmt round-trips a snapshot through the engine, which validates it and
// normalizes field order and indentation in place.
var fmtCmd = &cobra.Command{
	Use:   "fmt <snapshot.json>",
	Short: "Validate and normalize a snapshot file in place",
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

		tmp := args[0] + ".tmp"
		f, err := os.Create(tmp)
		if err != nil {
			return errors.Wrapf(err, "creating %s", tmp)
		}
		if err := eng.ExportGraph().WriteJSON(f); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
		if err := f.Close(); err != nil {
			os.Remove(tmp)
			return err
		}
		return errors.Wrapf(os.Rename(tmp, args[0]), "replacing %s", args[0])
	},
}

func init() {
	rootCmd.AddCommand(fmtCmd)
}
