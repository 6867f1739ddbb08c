package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonical/go-nimbus/client"
)

// Return a command printing the address of the current leader.
func newLeader(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leader",
		Short: "print the address of the current leader.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := flags.clusterConfig(cmd)
			if err != nil {
				return err
			}
			options, err := flags.options()
			if err != nil {
				return err
			}

			return client.WithLeader(context.Background(), config, flags.as, func(session client.Session) error {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", client.LeaderInfo{Host: session.Host(), Port: session.Port()})
				return nil
			}, options...)
		},
	}

	return cmd
}
