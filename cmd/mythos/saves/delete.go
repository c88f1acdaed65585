package savescmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mythos-rpg/mythos/pkg/cliui"
	"github.com/mythos-rpg/mythos/pkg/dotdir"
	"github.com/mythos-rpg/mythos/pkg/storage"
)

const deleteLongDesc string = `Delete a save file.

Removes the save from the database. If the resume state points at the
deleted save, it is cleared so the next "mythos play" starts fresh.

Examples:
  mythos saves delete manual-1718000000000`

const deleteShortDesc string = "Delete a save file"

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: deleteShortDesc,
		Long:  deleteLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0])
		},
	}

	return cmd
}

func runDelete(cmd *cobra.Command, id string) error {
	driver, err := openDriver(cmd)
	if err != nil {
		return err
	}
	defer driver.Close()

	if err := driver.Delete(cmd.Context(), storage.CollectionSaves, id); err != nil {
		return fmt.Errorf("deleting save: %w", err)
	}

	// A resume pointer at the deleted save would send the next play session
	// to a missing record.
	configDir, _ := cmd.Flags().GetString("config-dir")
	ddm := dotdir.NewManager()
	if resume, err := ddm.LoadResumeState(configDir); err == nil && resume != nil && resume.SaveID == id {
		if err := ddm.ClearResume(configDir); err != nil {
			return fmt.Errorf("clearing resume state: %w", err)
		}
	}

	fmt.Printf("\n  %s Deleted %s\n\n", cliui.SuccessMark, cliui.DimStyle.Render(id))
	return nil
}
