// Package savescmder provides the saves command group for managing mythos
// save files: list, export, import, delete.
package savescmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mythos-rpg/mythos/cmd/mythos/dbpath"
	"github.com/mythos-rpg/mythos/pkg/storage"
	"github.com/mythos-rpg/mythos/pkg/storage/sqlite"
)

const savesLongDesc string = `Manage mythos save files.

Saves live in the shared SQLite database. Use subcommands to inspect and
move them:
  mythos saves list               List all saves
  mythos saves export <id>        Export a save to a JSON file
  mythos saves import <file>      Import a save or world setup file
  mythos saves delete <id>        Delete a save

Examples:
  mythos saves list
  mythos saves export manual-1718000000000
  mythos saves import mythos_save_aetheria_1718000000.json`

const savesShortDesc string = "Manage mythos save files"

func NewSavesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saves",
		Short: savesShortDesc,
		Long:  savesLongDesc,
	}

	cmd.PersistentFlags().StringP("sqlite", "s", "", "Path to SQLite database")

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

// openDriver opens the shared SQLite database for a saves subcommand.
func openDriver(cmd *cobra.Command) (storage.Driver, error) {
	override, _ := cmd.Flags().GetString("sqlite")

	path, ok := dbpath.Resolve(override)
	if !ok {
		return nil, fmt.Errorf("could not find mythos SQLite database; pass --sqlite")
	}

	driver, err := sqlite.NewDriver(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	return driver, nil
}

// saveName renders the canonical save display name.
func saveName(world string, turnCount int) string {
	return fmt.Sprintf("%s - Turn %d", world, turnCount)
}

// exportFilename renders the canonical export file name for a world.
func exportFilename(world string, unix int64) string {
	slug := strings.ToLower(world)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, slug)

	return fmt.Sprintf("mythos_save_%s_%d.json", slug, unix)
}
