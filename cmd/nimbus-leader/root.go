package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/canonical/go-nimbus/client"
)

// Flags shared by every command.
type globalFlags struct {
	config   string
	seeds    []string
	port     int
	as       string
	timeout  time.Duration
	retries  uint
	crt      string
	key      string
	logLevel string
}

// Return a new root command.
func newRoot() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "nimbus-leader",
		Short: "Locate the leader of a nimbus cluster",
		Long: `Ask the configured seed hosts who the nimbus leader is and connect to it.

Seeds and port are read from the configuration file (storm.yaml format) and
can be overridden with flags.`,
		SilenceUsage: true,
	}

	persistent := cmd.PersistentFlags()
	persistent.StringVarP(&flags.config, "config", "c", "", "path of the YAML configuration file")
	persistent.StringSliceVarP(&flags.seeds, "seeds", "s", nil, "comma-separated list of seed hosts")
	persistent.IntVarP(&flags.port, "port", "p", 0, "port of the nimbus nodes")
	persistent.StringVar(&flags.as, "as", "", "identity to act as")
	persistent.DurationVarP(&flags.timeout, "timeout", "t", 0, "timeout of each connection attempt")
	persistent.UintVar(&flags.retries, "retries", 0, "additional discovery rounds when no leader is found")
	persistent.StringVar(&flags.crt, "cert", "", "public TLS cert")
	persistent.StringVar(&flags.key, "key", "", "private TLS key")
	persistent.StringVarP(&flags.logLevel, "log-level", "l", "warn", "log level (debug, info, warn, error, none)")

	cmd.AddCommand(newLeader(flags))
	cmd.AddCommand(newWatch(flags))
	cmd.AddCommand(newSetSeeds(flags))

	return cmd
}

// Build the cluster configuration from the configuration file and the flags.
func (f *globalFlags) clusterConfig(cmd *cobra.Command) (client.ClusterConfig, error) {
	config := client.ClusterConfig{}

	if f.config != "" {
		var err error
		config, err = client.LoadClusterConfig(f.config)
		if err != nil {
			return config, errors.Wrapf(err, "load %s", f.config)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("seeds") {
		config.Seeds = f.seeds
		config.LegacyHost = ""
	}
	if flags.Changed("port") {
		config.Port = f.port
	}
	if flags.Changed("timeout") {
		config.Timeout = f.timeout
	}

	return config, nil
}

// Build the client options from the flags.
func (f *globalFlags) options() ([]client.Option, error) {
	level, err := client.NewLogLevel(f.logLevel)
	if err != nil {
		return nil, err
	}

	options := []client.Option{
		client.WithLogFunc(client.NewLogFunc(level, "", client.NewLoggingWriter())),
		client.WithRetryLimit(f.retries),
	}

	if (f.crt != "" && f.key == "") || (f.key != "" && f.crt == "") {
		return nil, fmt.Errorf("both TLS certificate and key must be given")
	}

	if f.crt != "" {
		cert, err := tls.LoadX509KeyPair(f.crt, f.key)
		if err != nil {
			return nil, err
		}

		data, err := ioutil.ReadFile(f.crt)
		if err != nil {
			return nil, err
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("bad certificate")
		}

		config := client.SimpleDialTLSConfig(cert, pool)
		options = append(options, client.WithDialFunc(client.DialFuncWithTLS(client.DefaultDialFunc, config)))
	}

	return options, nil
}
