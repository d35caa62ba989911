// Package configcmder provides the config command for managing persistent
// memstated configuration stored in the .memstate/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent memstated configuration.

Configuration is stored as config.toml in the .memstate/ directory and
provides default values for the serve command's flags. CLI flags always
take precedence over environment variables (MEMSTATE_*), which take
precedence over config file values, which take precedence over built-in
defaults.

Keys use dotted notation matching the TOML section structure:
  server.listen, server.default_project_id, storage.postgres_dsn,
  ai.mode, ai.use_retrieval_expand, ai.retrieval_model,
  primary_llm.provider, primary_llm.base_url, primary_llm.api_key, primary_llm.model,
  secondary_llm.provider, secondary_llm.base_url, secondary_llm.api_key, secondary_llm.model,
  embedding.provider, embedding.base_url, embedding.model, embedding.dimensions

Use subcommands to get, set, or list configuration values:
  memstated config set <key> <value>    Set a configuration value
  memstated config get <key>            Get a configuration value
  memstated config list                 List all configuration values

Examples:
  memstated config set ai.mode primary_llm
  memstated config set embedding.provider ollama
  memstated config get ai.mode
  memstated config list`

const configShortDesc string = "Manage persistent memstated configuration"

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
