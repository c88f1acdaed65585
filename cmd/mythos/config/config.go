// Package configcmder provides the config command for managing persistent
// mythos configuration stored in the .mythos/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent mythos configuration.

Configuration is stored as config.toml in the .mythos/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.sqlite_path,
  generation.provider, generation.target, generation.model,
  generation.temperature, generation.top_p, generation.top_k,
  generation.max_tokens, generation.streaming,
  api.listen, client.api_target,
  vector_store.provider, vector_store.target,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  memory.enabled, memory.limit,
  events.enabled, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  mythos config set <key> <value>    Set a configuration value
  mythos config get <key>            Get a configuration value
  mythos config list                 List all configuration values

Examples:
  mythos config set generation.provider gemini
  mythos config set embedding.model nomic-embed-text
  mythos config get generation.model
  mythos config list`

const configShortDesc string = "Manage persistent mythos configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
