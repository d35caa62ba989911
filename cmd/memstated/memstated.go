// Package memstatedcmder
package memstatedcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/loomware/memstate/cmd/memstated/config"
	servecmder "github.com/loomware/memstate/cmd/memstated/serve"
	versioncmder "github.com/loomware/memstate/cmd/version"
)

const memstatedLongDesc string = `memstated serves the memory and claim substrate: durable memories,
derived claims with slot-based truth-state, retrieval, and a live event feed.

Run it with:
  memstated serve                Run the API server
  memstated config set|get|list  Manage persistent configuration`

const memstatedShortDesc string = "memstated - memory and claim substrate service"

func NewMemstatedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memstated",
		Short: memstatedShortDesc,
		Long:  memstatedLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .memstate/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
