package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rican7/retry"
	"github.com/pkg/errors"

	"github.com/canonical/go-nimbus/logging"
	"github.com/canonical/go-nimbus/tracing"
)

// Locator finds the current coordinator leader and connects to it.
//
// A Locator keeps no state between lookups and can be used concurrently.
type Locator struct {
	transport Transport
	log       LogFunc
	options   *options
	metrics   *metrics
}

// NewLocator returns a Locator configured with the given options.
func NewLocator(options ...Option) *Locator {
	o := defaultOptions()

	for _, option := range options {
		option(o)
	}

	transport := o.Transport
	if transport == nil {
		transport = NewNetTransport(o.DialFunc)
	}

	log := o.LogFunc
	if log == nil {
		log = logging.Discard
	}

	return &Locator{
		transport: transport,
		log:       log,
		options:   o,
		metrics:   newMetrics(o.Registerer),
	}
}

// GetClient returns an anonymous session connected to the current leader.
func GetClient(ctx context.Context, config ClusterConfig, options ...Option) (Session, error) {
	return NewLocator(options...).Resolve(ctx, config, "")
}

// GetClientAs returns a session connected to the current leader, acting as
// the given identity unless the configuration overrides it.
func GetClientAs(ctx context.Context, config ClusterConfig, identity string, options ...Option) (Session, error) {
	return NewLocator(options...).Resolve(ctx, config, identity)
}

// WithLeader connects to the current leader, passes the session to f and
// closes the session once f returns. The error returned by f is returned
// as is.
func WithLeader(ctx context.Context, config ClusterConfig, identity string, f func(Session) error, options ...Option) error {
	return NewLocator(options...).WithLeader(ctx, config, identity, f)
}

// WithLeader connects to the current leader, passes the session to f and
// closes the session once f returns, even if f panics.
func (l *Locator) WithLeader(ctx context.Context, config ClusterConfig, identity string, f func(Session) error) error {
	session, err := l.Resolve(ctx, config, identity)
	if err != nil {
		return err
	}
	defer session.Close()

	return f(session)
}

// Resolve returns a session connected to the current leader.
//
// The seeds are asked in order who the leader is. A seed that can't be
// reached or doesn't know the leader is skipped. When a seed reports itself
// as the leader its session is returned. When a seed reports another node,
// its session is closed and a new one is opened to that node: if this fails
// a *LeaderConnectError is returned right away without trying other seeds.
//
// If no seed leads to the leader, a *LeaderNotFoundError is returned. A
// configuration that names no seed or no port yields a *ConfigError.
//
// At most one session is open at any time during the lookup, and every
// session except the returned one is closed before Resolve returns.
func (l *Locator) Resolve(ctx context.Context, config ClusterConfig, identity string) (Session, error) {
	if err := validatePort(config.Port); err != nil {
		l.metrics.resolutions.WithLabelValues(resultConfigError).Inc()
		return nil, err
	}

	seeds, err := ResolveSeeds(config)
	if err != nil {
		l.metrics.resolutions.WithLabelValues(resultConfigError).Inc()
		return nil, err
	}

	if strings.TrimSpace(config.LegacyHost) != "" {
		l.log(logging.Warn,
			"using deprecated config %s for backward compatibility, please update your configuration so it only has config %s",
			KeyHost, KeySeeds)
	}

	ctx, span := tracing.Start(ctx, "nimbus.resolve", strings.Join(seeds, ","))
	defer span.End()

	given := identity
	identity, overridden := resolveIdentity(config, identity)
	if overridden {
		l.log(logging.Warn, "identity %q given as parameter is overridden by %s %q from the configuration",
			given, KeyDoAsUser, identity)
	}

	timeout := config.Timeout
	if l.options.Timeout > 0 {
		timeout = l.options.Timeout
	}

	var session Session
	var rounds uint
	retry.Retry(func(uint) error {
		log := l.log
		if l.options.RetryLimit > 0 {
			round := rounds + 1
			log = func(level logging.Level, format string, a ...interface{}) {
				format = fmt.Sprintf("attempt %d: ", round) + format
				l.log(level, format, a...)
			}
		}

		session, err = l.discover(ctx, seeds, config.Port, identity, timeout, log)
		rounds++
		if err == nil {
			return nil
		}

		var notFound *LeaderNotFoundError
		if errors.As(err, &notFound) && rounds <= l.options.RetryLimit && ctx.Err() == nil {
			return err
		}

		// Stop retrying
		return nil
	}, l.options.retryStrategies(&rounds)...)

	if err != nil {
		var notFound *LeaderNotFoundError
		var connect *LeaderConnectError
		switch {
		case errors.As(err, &notFound):
			l.metrics.resolutions.WithLabelValues(resultNotFound).Inc()
		case errors.As(err, &connect):
			l.metrics.resolutions.WithLabelValues(resultConnectError).Inc()
		default:
			l.metrics.resolutions.WithLabelValues(resultCanceled).Inc()
		}
		return nil, err
	}

	return session, nil
}

// Run one discovery round over the given seeds.
func (l *Locator) discover(
	ctx context.Context,
	seeds []string,
	port int,
	identity string,
	timeout time.Duration,
	log logging.Func,
) (Session, error) {
	errs := make([]error, 0, len(seeds))

	for _, host := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "leader lookup interrupted")
		}

		a := l.attemptSeed(ctx, host, port, identity, timeout, log)
		switch a.kind {
		case attemptConnected:
			return a.session, nil
		case attemptFatal:
			return nil, a.err
		}

		l.metrics.seedFailures.Inc()
		log(logging.Warn, "%v, will retry with a different seed host", a.err)
		errs = append(errs, a.err)
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "leader lookup interrupted")
	}

	return nil, &LeaderNotFoundError{Seeds: seeds, Errors: errs}
}

type attemptKind int

// Possible outcomes of asking a single seed.
const (
	attemptRetryable attemptKind = iota // Try the next seed.
	attemptConnected                    // Session is connected to the leader.
	attemptFatal                        // Stop the lookup with err.
)

type attempt struct {
	kind    attemptKind
	session Session
	err     error
}

// Ask the given seed who the leader is and connect to it.
func (l *Locator) attemptSeed(
	ctx context.Context,
	host string,
	port int,
	identity string,
	timeout time.Duration,
	log logging.Func,
) attempt {
	ctx, span := tracing.Start(ctx, "nimbus.seed", host)
	defer span.End()

	session, err := l.open(ctx, host, port, identity, timeout)
	if err != nil {
		return attempt{kind: attemptRetryable, err: seedError{host: host, err: err}}
	}

	// Guarantee the seed session is released on every path where it is
	// not handed over to the caller.
	owned := true
	defer func() {
		if owned {
			l.discard(session, log)
		}
	}()

	leader, err := l.queryLeader(ctx, session, timeout)
	if err != nil {
		return attempt{kind: attemptRetryable, err: seedError{host: host, err: err}}
	}
	if leader == nil {
		return attempt{kind: attemptRetryable, err: seedError{host: host, err: errNoLeaderKnown}}
	}

	log(logging.Info, "seed %s: found leader %s", host, leader)

	if leader.Host == host && leader.Port == port {
		owned = false
		l.metrics.resolutions.WithLabelValues(resultSelf).Inc()
		return attempt{kind: attemptConnected, session: session}
	}

	// Close the seed session before dialing the leader.
	owned = false
	l.discard(session, log)

	log(logging.Debug, "seed %s: connect to reported leader %s", host, leader)
	leaderCtx, leaderSpan := tracing.Start(ctx, "nimbus.leader", leader.String())
	session, err = l.open(leaderCtx, leader.Host, leader.Port, identity, timeout)
	leaderSpan.End()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt{kind: attemptFatal, err: errors.Wrap(ctxErr, "leader lookup interrupted")}
		}
		return attempt{kind: attemptFatal, err: &LeaderConnectError{Host: leader.Host, Port: leader.Port, Err: err}}
	}

	l.metrics.resolutions.WithLabelValues(resultRedirect).Inc()
	return attempt{kind: attemptConnected, session: session}
}

// Open a session, bounding the attempt by timeout if not zero.
func (l *Locator) open(ctx context.Context, host string, port int, identity string, timeout time.Duration) (Session, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	session, err := l.transport.Open(ctx, host, port, identity)
	if err != nil {
		return nil, err
	}
	l.metrics.sessionsOpen.Inc()

	return session, nil
}

func (l *Locator) queryLeader(ctx context.Context, session Session, timeout time.Duration) (*LeaderInfo, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return session.Leader(ctx)
}

func (l *Locator) discard(session Session, log logging.Func) {
	l.metrics.sessionsClose.Inc()
	if err := session.Close(); err != nil {
		log(logging.Debug, "seed %s: close session: %v", session.Host(), err)
	}
}
