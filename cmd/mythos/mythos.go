// Package mythoscmder
package mythoscmder

import (
	"github.com/spf13/cobra"

	backfillcmder "github.com/mythos-rpg/mythos/cmd/mythos/backfill"
	configcmder "github.com/mythos-rpg/mythos/cmd/mythos/config"
	initcmder "github.com/mythos-rpg/mythos/cmd/mythos/init"
	playcmder "github.com/mythos-rpg/mythos/cmd/mythos/play"
	savescmder "github.com/mythos-rpg/mythos/cmd/mythos/saves"
	servecmder "github.com/mythos-rpg/mythos/cmd/mythos/serve"
	versioncmder "github.com/mythos-rpg/mythos/cmd/version"
)

const mythosLongDesc string = `Mythos is an interactive narrative engine.

Play a story in the terminal:
  mythos play             Start or resume an interactive story
  mythos saves            Manage save files (list, export, import, delete)
  mythos serve            Run the save/search API server
  mythos backfill         Vectorize an existing save's history`

const mythosShortDesc string = "Mythos - Interactive Narrative Engine"

func NewMythosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mythos",
		Short: mythosShortDesc,
		Long:  mythosLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .mythos/ config directory")

	// Add subcommands
	cmd.AddCommand(playcmder.NewPlayCmd())
	cmd.AddCommand(savescmder.NewSavesCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(backfillcmder.NewBackfillCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
