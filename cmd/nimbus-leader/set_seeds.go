package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonical/go-nimbus/client"
)

// Return a command that replaces the seed hosts in the configuration file.
func newSetSeeds(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-seeds <host>...",
		Short: "replace the seed hosts in the configuration file.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.config == "" {
				return fmt.Errorf("the --config flag is required")
			}
			return client.SaveSeeds(flags.config, args)
		},
	}

	return cmd
}
