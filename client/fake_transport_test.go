package client_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/canonical/go-nimbus/client"
)

// In-memory cluster recording every transport operation.
type fakeCluster struct {
	mu         sync.Mutex
	nodes      map[string]*fakeNode
	events     []string
	identities []string
	open       int
}

type fakeNode struct {
	openErr     error              // Returned by Open.
	failures    int                // Number of Open calls failing before success.
	block       bool               // Open blocks until the context is done.
	blockLeader bool               // Leader blocks until the context is done.
	leader      *client.LeaderInfo // Returned by Leader.
	leaderErr   error              // Returned by Leader.
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{nodes: map[string]*fakeNode{}}
}

// Add a node reporting the given leader, or no leader if leader is empty.
func (c *fakeCluster) add(host string, port int, leader string, leaderPort int) *fakeNode {
	node := &fakeNode{}
	if leader != "" {
		node.leader = &client.LeaderInfo{Host: leader, Port: leaderPort}
	}
	c.nodes[fmt.Sprintf("%s:%d", host, port)] = node
	return node
}

func (c *fakeCluster) record(format string, a ...interface{}) {
	c.events = append(c.events, fmt.Sprintf(format, a...))
}

// Open implements client.Transport.
func (c *fakeCluster) Open(ctx context.Context, host string, port int, identity string) (client.Session, error) {
	c.mu.Lock()
	c.record("open %s:%d", host, port)
	c.identities = append(c.identities, identity)
	node, ok := c.nodes[fmt.Sprintf("%s:%d", host, port)]
	failing := ok && node.failures > 0
	if failing {
		node.failures--
	}
	c.mu.Unlock()

	if !ok {
		return nil, errors.Errorf("dial %s:%d: connection refused", host, port)
	}
	if failing {
		return nil, errors.New("transient failure")
	}
	if node.block {
		<-ctx.Done()
		return nil, errors.Wrap(ctx.Err(), "dial")
	}
	if node.openErr != nil {
		return nil, node.openErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open != 0 {
		panic(fmt.Sprintf("opening %s:%d with %d sessions already open", host, port, c.open))
	}
	c.open++

	return &fakeSession{cluster: c, node: node, host: host, port: port}, nil
}

// Events returns the recorded operations.
func (c *fakeCluster) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

// OpenSessions returns the number of sessions not yet closed.
func (c *fakeCluster) OpenSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

type fakeSession struct {
	cluster *fakeCluster
	node    *fakeNode
	host    string
	port    int
	closed  bool
}

func (s *fakeSession) Host() string { return s.host }
func (s *fakeSession) Port() int { return s.port }

func (s *fakeSession) Leader(ctx context.Context) (*client.LeaderInfo, error) {
	s.cluster.mu.Lock()
	s.cluster.record("leader %s:%d", s.host, s.port)
	s.cluster.mu.Unlock()

	if s.node.blockLeader {
		<-ctx.Done()
		return nil, errors.Wrap(ctx.Err(), "leader")
	}
	if s.node.leaderErr != nil {
		return nil, s.node.leaderErr
	}
	return s.node.leader, nil
}

func (s *fakeSession) Close() error {
	s.cluster.mu.Lock()
	defer s.cluster.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.cluster.open--
	s.cluster.record("close %s:%d", s.host, s.port)
	return nil
}
