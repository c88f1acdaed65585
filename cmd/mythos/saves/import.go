package savescmder

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mythos-rpg/mythos/pkg/cliui"
	"github.com/mythos-rpg/mythos/pkg/session"
	"github.com/mythos-rpg/mythos/pkg/storage"
)

const importLongDesc string = `Import a save file.

Accepts a mythos export (mythos saves export), a raw session export in the
canonical or legacy flattened shape, and stores it under a fresh save id.

Examples:
  mythos saves import mythos_save_aetheria_1718000000.json`

const importShortDesc string = "Import a save file"

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: importShortDesc,
		Long:  importLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0])
		},
	}

	return cmd
}

func runImport(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}

	world, err := parseImportPayload(data)
	if err != nil {
		return err
	}

	driver, err := openDriver(cmd)
	if err != nil {
		return err
	}
	defer driver.Close()

	now := time.Now().UnixMilli()
	save := session.SaveFile{
		ID:        fmt.Sprintf("manual-%d", now),
		Name:      saveName(world.World.Name, world.SavedState.TurnCount),
		CreatedAt: now,
		UpdatedAt: now,
		Data:      *world,
	}

	value, err := json.Marshal(save)
	if err != nil {
		return fmt.Errorf("encoding save: %w", err)
	}

	if err := driver.Put(cmd.Context(), storage.CollectionSaves, save.ID, value); err != nil {
		return fmt.Errorf("writing save: %w", err)
	}

	fmt.Printf("\n  %s Imported %s as %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(save.Name),
		cliui.DimStyle.Render(save.ID),
	)
	return nil
}

// parseImportPayload accepts either a full SaveFile export or a bare session
// export in one of the shapes session.ParseImport understands.
func parseImportPayload(data []byte) (*session.World, error) {
	var probe struct {
		Data *json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.Data != nil {
		var save session.SaveFile
		if err := json.Unmarshal(data, &save); err != nil {
			return nil, fmt.Errorf("decoding save export: %w", err)
		}
		if save.Data.SavedState == nil {
			save.Data.SavedState = &session.SavedState{}
		}
		return &save.Data, nil
	}

	return session.ParseImport(data)
}
