package client

import (
	"time"

	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/prometheus/client_golang/prometheus"
)

// Option that can be used to tweak client parameters.
type Option func(*options)

type options struct {
	Transport     Transport
	DialFunc      DialFunc
	LogFunc       LogFunc
	Timeout       time.Duration
	RetryLimit    uint
	BackoffFactor time.Duration
	BackoffCap    time.Duration
	Registerer    prometheus.Registerer
}

// WithDialFunc sets a custom dial function for the default transport.
func WithDialFunc(dial DialFunc) Option {
	return func(options *options) {
		options.DialFunc = dial
	}
}

// WithTransport sets the transport used to open sessions. It takes
// precedence over WithDialFunc.
func WithTransport(transport Transport) Option {
	return func(options *options) {
		options.Transport = transport
	}
}

// WithLogFunc sets a custom log function.
func WithLogFunc(log LogFunc) Option {
	return func(options *options) {
		options.LogFunc = log
	}
}

// WithTimeout sets the timeout applied to every single connection attempt and
// request, overriding the one found in the cluster configuration.
func WithTimeout(timeout time.Duration) Option {
	return func(options *options) {
		options.Timeout = timeout
	}
}

// WithRetryLimit sets how many additional discovery rounds are made when a
// round ends without finding a leader. The default is zero, meaning that the
// seeds are tried exactly once.
//
// Rounds are separated by a capped exponential backoff, see WithBackoff.
func WithRetryLimit(limit uint) Option {
	return func(options *options) {
		options.RetryLimit = limit
	}
}

// WithBackoff sets the exponential backoff factor and cap used between
// discovery rounds.
func WithBackoff(factor, cap time.Duration) Option {
	return func(options *options) {
		options.BackoffFactor = factor
		options.BackoffCap = cap
	}
}

// WithRegisterer registers discovery metrics with the given registerer.
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(options *options) {
		options.Registerer = registerer
	}
}

// Create a client options object with sane defaults.
func defaultOptions() *options {
	return &options{
		DialFunc:      DefaultDialFunc,
		LogFunc:       DefaultLogFunc,
		BackoffFactor: 100 * time.Millisecond,
		BackoffCap:    time.Second,
	}
}

// Return the retry strategies for discovery rounds. The rounds counter is
// maintained by the caller and holds the number of completed rounds.
func (o *options) retryStrategies(rounds *uint) []strategy.Strategy {
	factor, cap := o.BackoffFactor, o.BackoffCap
	backoffFunc := backoff.BinaryExponential(factor)
	return []strategy.Strategy{
		func(uint) bool {
			if *rounds > 0 {
				duration := backoffFunc(*rounds - 1)
				// Duration might be negative in case of integer overflow.
				if !(0 < duration && duration <= cap) {
					duration = cap
				}
				time.Sleep(duration)
			}
			return true
		},
	}
}
