package client

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/canonical/go-nimbus/internal/protocol"
)

// LeaderInfo describes where the current leader is.
type LeaderInfo struct {
	Host string
	Port int
}

func (i LeaderInfo) String() string {
	return fmt.Sprintf("%s:%d", i.Host, i.Port)
}

// Session is a connection to a single coordinator node.
//
// A session is owned by exactly one caller, who must close it when done.
type Session interface {
	// Host returns the host this session is connected to.
	Host() string

	// Port returns the port this session is connected to.
	Port() int

	// Leader asks the remote node where the current leader is. It returns
	// nil if the node does not know of any leader.
	Leader(ctx context.Context) (*LeaderInfo, error)

	// Close releases the session. It can be called more than once.
	Close() error
}

// Transport opens sessions against coordinator nodes.
type Transport interface {
	// Open connects to the node at the given host and port, acting as the
	// given identity (empty for anonymous).
	Open(ctx context.Context, host string, port int, identity string) (Session, error)
}

// NetTransport is the default Transport. It speaks the nimbus wire protocol
// over TCP or unix sockets.
type NetTransport struct {
	dial DialFunc
}

// NewNetTransport returns a transport that uses the given function to
// establish network connections. If dial is nil, DefaultDialFunc is used.
func NewNetTransport(dial DialFunc) *NetTransport {
	if dial == nil {
		dial = DefaultDialFunc
	}
	return &NetTransport{dial: dial}
}

// Open implements Transport.
func (t *NetTransport) Open(ctx context.Context, host string, port int, identity string) (Session, error) {
	address := protocol.JoinHostPort(host, port)

	conn, err := t.dial(ctx, address)
	if err != nil {
		return nil, errors.Wrap(err, "dial")
	}

	proto, err := protocol.Handshake(ctx, conn, protocol.VersionOne, address)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "handshake")
	}

	request := protocol.Message{}
	request.Init(64)
	response := protocol.Message{}
	response.Init(64)

	protocol.EncodeHello(&request, identity)

	if err := proto.Call(ctx, &request, &response); err != nil {
		proto.Close()
		return nil, errors.Wrap(err, "hello")
	}

	if err := protocol.DecodeWelcome(&response); err != nil {
		proto.Close()
		return nil, errors.Wrap(err, "hello")
	}

	return &Client{protocol: proto, host: host, port: port}, nil
}

// Client is a Session opened by NetTransport.
type Client struct {
	protocol *protocol.Protocol
	host     string
	port     int
}

// Host implements Session.
func (c *Client) Host() string {
	return c.host
}

// Port implements Session.
func (c *Client) Port() int {
	return c.port
}

// Leader implements Session.
func (c *Client) Leader(ctx context.Context) (*LeaderInfo, error) {
	request := protocol.Message{}
	request.Init(16)
	response := protocol.Message{}
	response.Init(512)

	protocol.EncodeLeader(&request)

	if err := c.protocol.Call(ctx, &request, &response); err != nil {
		return nil, errors.Wrap(err, "failed to send Leader request")
	}

	host, port, err := protocol.DecodeLeaderInfo(&response)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse leader response")
	}

	if host == "" {
		return nil, nil
	}

	return &LeaderInfo{Host: host, Port: int(port)}, nil
}

// Close implements Session.
func (c *Client) Close() error {
	return c.protocol.Close()
}
