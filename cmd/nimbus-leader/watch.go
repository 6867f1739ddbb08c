package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/canonical/go-nimbus/client"
)

// Return a command that periodically locates the leader and prints it every
// time it changes, until interrupted.
func newWatch(flags *globalFlags) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "print the leader address every time it changes.",
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
			if _, err := client.ResolveSeeds(config); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			ch := make(chan os.Signal, 32)
			signal.Notify(ch, unix.SIGINT)
			signal.Notify(ch, unix.SIGQUIT)
			signal.Notify(ch, unix.SIGTERM)
			defer signal.Stop(ch)

			go func() {
				select {
				case <-ch:
					cancel()
				case <-ctx.Done():
				}
			}()

			locator := client.NewLocator(options...)
			return watch(ctx, locator, config, flags.as, interval, cmd)
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 5*time.Second, "time between two lookups")

	return cmd
}

func watch(ctx context.Context, locator *client.Locator, config client.ClusterConfig, as string, interval time.Duration, cmd *cobra.Command) error {
	last := ""
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		current := ""
		err := locator.WithLeader(ctx, config, as, func(session client.Session) error {
			current = client.LeaderInfo{Host: session.Host(), Port: session.Port()}.String()
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", time.Now().Format(time.RFC3339), err)
		} else if current != last {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: leader is %s\n", time.Now().Format(time.RFC3339), current)
			last = current
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
