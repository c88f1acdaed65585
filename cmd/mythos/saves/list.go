package savescmder

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/mythos-rpg/mythos/pkg/cliui"
	"github.com/mythos-rpg/mythos/pkg/session"
	"github.com/mythos-rpg/mythos/pkg/storage"
)

const listLongDesc string = `List all save files, most recently updated first.

Examples:
  mythos saves list
  mythos saves list --sqlite ./mythos.db`

const listShortDesc string = "List all save files"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command) error {
	driver, err := openDriver(cmd)
	if err != nil {
		return err
	}
	defer driver.Close()

	records, err := driver.List(cmd.Context(), storage.CollectionSaves)
	if err != nil {
		return fmt.Errorf("listing saves: %w", err)
	}

	saves := make([]session.SaveFile, 0, len(records))
	for _, rec := range records {
		var save session.SaveFile
		if err := json.Unmarshal(rec.Value, &save); err != nil {
			continue
		}
		saves = append(saves, save)
	}

	if len(saves) == 0 {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No saves found."))
		return nil
	}

	sort.SliceStable(saves, func(i, j int) bool {
		return saves[i].UpdatedAt > saves[j].UpdatedAt
	})

	fmt.Println()
	for _, save := range saves {
		updated := time.UnixMilli(save.UpdatedAt).Format("2006-01-02 15:04")
		fmt.Printf("  %s  %s %s\n",
			cliui.NameStyle.Render(save.Name),
			cliui.DimStyle.Render(save.ID),
			cliui.DimStyle.Render("("+updated+")"),
		)
	}
	fmt.Println()

	return nil
}
