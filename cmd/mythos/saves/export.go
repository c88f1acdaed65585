package savescmder

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mythos-rpg/mythos/pkg/cliui"
	"github.com/mythos-rpg/mythos/pkg/session"
	"github.com/mythos-rpg/mythos/pkg/storage"
)

const exportLongDesc string = `Export a save file to JSON.

Writes the full save, including turn history and world state, to a file
named mythos_save_<world>_<unix>.json unless --out is given.

Examples:
  mythos saves export manual-1718000000000
  mythos saves export manual-1718000000000 --out backup.json`

const exportShortDesc string = "Export a save file to JSON"

func newExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: exportShortDesc,
		Long:  exportLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file path")

	return cmd
}

func runExport(cmd *cobra.Command, id, out string) error {
	driver, err := openDriver(cmd)
	if err != nil {
		return err
	}
	defer driver.Close()

	value, err := driver.Get(cmd.Context(), storage.CollectionSaves, id)
	if err != nil {
		var notFound storage.NotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("save %q not found", id)
		}
		return fmt.Errorf("reading save: %w", err)
	}

	var save session.SaveFile
	if err := json.Unmarshal(value, &save); err != nil {
		return fmt.Errorf("decoding save: %w", err)
	}

	if out == "" {
		out = exportFilename(save.Data.World.Name, time.Now().Unix())
	}

	data, err := json.MarshalIndent(save, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding save: %w", err)
	}

	if err := os.WriteFile(out, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("writing export: %w", err)
	}

	fmt.Printf("\n  %s Exported %s to %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(save.Name),
		cliui.DimStyle.Render(out),
	)
	return nil
}
