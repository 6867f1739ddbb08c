package client

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrConfiguration is the cause of every *ConfigError.
var ErrConfiguration = errors.New("invalid cluster configuration")

// ConfigError is returned when the configuration does not allow any leader
// lookup, for example because no seed host or no port is set. It is never
// retried.
type ConfigError struct {
	msg string
}

func configErrorf(format string, a ...interface{}) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, a...)}
}

func (e *ConfigError) Error() string {
	return ErrConfiguration.Error() + ": " + e.msg
}

// Unwrap returns ErrConfiguration.
func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// LeaderConnectError is returned when a seed named a leader but connecting to
// that leader failed. The remaining seeds are not tried.
type LeaderConnectError struct {
	Host string
	Port int
	Err  error
}

func (e *LeaderConnectError) Error() string {
	return fmt.Sprintf("failed to connect to leader %s:%d: %v", e.Host, e.Port, e.Err)
}

// Unwrap returns the transport error.
func (e *LeaderConnectError) Unwrap() error {
	return e.Err
}

// LeaderNotFoundError is returned when none of the seeds led to a leader.
type LeaderNotFoundError struct {
	Seeds  []string // Every seed that was tried, in order.
	Errors []error  // Why each seed failed, in the same order.
}

func (e *LeaderNotFoundError) Error() string {
	msg := fmt.Sprintf(
		"could not find leader from seed hosts [%s], check %s and try again later",
		strings.Join(e.Seeds, ", "), KeySeeds)
	if len(e.Errors) == 0 {
		return msg
	}
	causes := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		if err != nil {
			causes[i] = err.Error()
		}
	}
	return msg + ": " + strings.Join(causes, "; ")
}

// The failure of a single seed. It is logged and absorbed by the discovery
// loop, and collected in LeaderNotFoundError.
type seedError struct {
	host string
	err  error
}

func (e seedError) Error() string {
	return fmt.Sprintf("seed %s: %v", e.host, e.err)
}

func (e seedError) Unwrap() error {
	return e.err
}

var errNoLeaderKnown = errors.New("no known leader")
