// Package nimbustest provides an in-process coordinator node that answers
// hello and leader requests, for use in tests.
package nimbustest

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/canonical/go-nimbus/internal/protocol"
	"github.com/canonical/go-nimbus/logging"
)

// Node is a fake coordinator node.
type Node struct {
	listener net.Listener
	log      logging.Func

	mu         sync.Mutex
	leaderHost string // Empty when no leader is known.
	leaderPort int
	forbidden  map[string]bool
	identities []string
	accepted   int
	conns      map[net.Conn]struct{}

	wg sync.WaitGroup
}

// New starts a node listening on the given address, which is either a TCP
// address like "127.0.0.1:0" or an abstract unix socket like "@nimbus-1".
// The node is stopped when the test ends.
func New(t testing.TB, address string) *Node {
	t.Helper()

	family := "tcp"
	if strings.HasPrefix(address, "@") {
		family = "unix"
	}

	listener, err := net.Listen(family, address)
	if err != nil {
		t.Fatalf("listen on %s: %v", address, err)
	}

	n := &Node{
		listener:  listener,
		log:       logging.Test(t),
		forbidden: map[string]bool{},
		conns:     map[net.Conn]struct{}{},
	}

	n.wg.Add(1)
	go n.serve()

	t.Cleanup(n.Close)

	return n
}

// Host returns the host part of the node address, suitable as a seed.
func (n *Node) Host() string {
	addr := n.listener.Addr().String()
	if n.listener.Addr().Network() == "unix" {
		return addr
	}
	host, _, _ := net.SplitHostPort(addr)
	return host
}

// Port returns the TCP port the node listens on, or 0 for unix sockets.
func (n *Node) Port() int {
	if addr, ok := n.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// SetLeader sets the leader address reported by the node.
func (n *Node) SetLeader(host string, port int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.leaderHost = host
	n.leaderPort = port
}

// ClearLeader makes the node report that it doesn't know of any leader.
func (n *Node) ClearLeader() {
	n.SetLeader("", 0)
}

// Forbid makes the node reject hellos from the given identity.
func (n *Node) Forbid(identity string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.forbidden[identity] = true
}

// Identities returns the identities sent by clients, in order.
func (n *Node) Identities() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.identities...)
}

// Accepted returns the number of connections accepted so far.
func (n *Node) Accepted() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.accepted
}

// Open returns the number of connections currently open.
func (n *Node) Open() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.conns)
}

// Close stops the node and drops every connection.
func (n *Node) Close() {
	n.listener.Close()

	n.mu.Lock()
	for conn := range n.conns {
		conn.Close()
	}
	n.mu.Unlock()

	n.wg.Wait()
}

func (n *Node) serve() {
	defer n.wg.Done()

	for {
		conn, err := n.listener.Accept()
		if err != nil {
			return
		}

		n.mu.Lock()
		n.accepted++
		n.conns[conn] = struct{}{}
		n.mu.Unlock()

		n.wg.Add(1)
		go n.handle(conn)
	}
}

func (n *Node) handle(conn net.Conn) {
	defer n.wg.Done()
	defer func() {
		conn.Close()
		n.mu.Lock()
		delete(n.conns, conn)
		n.mu.Unlock()
	}()

	ctx := context.Background()

	p, err := protocol.Accept(ctx, conn)
	if err != nil {
		n.log(logging.Debug, "accept: %v", err)
		return
	}

	request := protocol.Message{}
	request.Init(64)
	response := protocol.Message{}
	response.Init(64)

	for {
		if err := p.Receive(ctx, &request); err != nil {
			return
		}

		switch request.Type() {
		case protocol.RequestHello:
			identity, err := protocol.DecodeHello(&request)
			if err != nil {
				protocol.EncodeFailure(&response, protocol.ErrUnknownRequest, err.Error())
				break
			}
			n.mu.Lock()
			n.identities = append(n.identities, identity)
			forbidden := n.forbidden[identity]
			n.mu.Unlock()
			if forbidden {
				protocol.EncodeFailure(&response, protocol.ErrForbidden, fmt.Sprintf("identity %q not allowed", identity))
				break
			}
			protocol.EncodeWelcome(&response)
		case protocol.RequestLeader:
			n.mu.Lock()
			host, port := n.leaderHost, n.leaderPort
			n.mu.Unlock()
			protocol.EncodeLeaderInfo(&response, host, uint64(port))
		default:
			protocol.EncodeFailure(&response, protocol.ErrUnknownRequest, "unknown request")
		}

		if err := p.Reply(ctx, &response); err != nil {
			return
		}
	}
}
