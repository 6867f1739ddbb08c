package protocol

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/canonical/go-nimbus/internal/utils"
)

// Protocol versions.
const (
	VersionOne = uint64(1)
)

// Protocol sends and receives nimbus messages on the wire.
type Protocol struct {
	version uint64     // Protocol version
	conn    net.Conn   // Underlying network connection.
	mu      sync.Mutex // Serialize requests
	netErr  error      // A network error occurred
	addr    string
	once    sync.Once
	err     error // Result of the first Close
}

// Handshake sends the protocol version on the given connection and returns a
// Protocol wrapping it.
func Handshake(ctx context.Context, conn net.Conn, version uint64, addr string) (*Protocol, error) {
	protocol := make([]byte, 8)
	binary.LittleEndian.PutUint64(protocol, version)

	// Honor the ctx deadline, if present.
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	stop := utils.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	n, err := conn.Write(protocol)
	if err != nil {
		return nil, errors.Wrap(err, "write handshake")
	}
	if n != 8 {
		return nil, errors.Wrap(io.ErrShortWrite, "short handshake write")
	}

	return &Protocol{conn: conn, version: version, addr: addr}, nil
}

// Accept reads the protocol version sent by a client on the given server-side
// connection.
func Accept(ctx context.Context, conn net.Conn) (*Protocol, error) {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	p := &Protocol{conn: conn}
	if addr := conn.RemoteAddr(); addr != nil {
		p.addr = addr.String()
	}

	buf := make([]byte, 8)
	if err := p.recvPeek(buf); err != nil {
		return nil, errors.Wrap(err, "read handshake")
	}

	version := binary.LittleEndian.Uint64(buf)
	if version != VersionOne {
		return nil, errors.Wrapf(errBadProtocol, "version %d", version)
	}
	p.version = version

	return p, nil
}

// Address returns the address this protocol is connected to.
func (p *Protocol) Address() string {
	return p.addr
}

// Call invokes a nimbus RPC, sending a request message and receiving a
// response message.
func (p *Protocol) Call(ctx context.Context, request, response *Message) (err error) {
	// The server handles one request at a time on each connection.
	p.mu.Lock()
	defer p.mu.Unlock()

	if err = p.netErr; err != nil {
		return
	}

	defer func() {
		if err == nil {
			return
		}
		// The stream is in an unknown state after an interruption.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Wrapf(ctxErr, "%v", err)
			p.netErr = err
			return
		}
		switch errors.Cause(err).(type) {
		case *net.OpError:
			p.netErr = err
		}
	}()

	var budget time.Duration

	// Honor the ctx deadline, if present.
	if deadline, ok := ctx.Deadline(); ok {
		p.conn.SetDeadline(deadline)
		budget = time.Until(deadline)
		defer p.conn.SetDeadline(time.Time{})
	} else {
		p.conn.SetDeadline(time.Time{})
	}

	// Unblock pending reads and writes if ctx is canceled.
	stop := utils.AfterFunc(ctx, func() {
		p.conn.SetDeadline(time.Now())
	})
	defer stop()

	desc := requestDesc(request.mtype)

	if err = p.send(request); err != nil {
		return errors.Wrapf(err, "call %s (budget %s): send", desc, budget)
	}

	if err = p.recv(response); err != nil {
		return errors.Wrapf(err, "call %s (budget %s): receive", desc, budget)
	}

	return
}

// Receive reads the next request sent by the peer. It is used by the server
// side of a connection.
func (p *Protocol) Receive(ctx context.Context, request *Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		p.conn.SetDeadline(deadline)
		defer p.conn.SetDeadline(time.Time{})
	}

	return p.recv(request)
}

// Reply sends a response to the peer. It is used by the server side of a
// connection.
func (p *Protocol) Reply(ctx context.Context, response *Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		p.conn.SetDeadline(deadline)
		defer p.conn.SetDeadline(time.Time{})
	}

	return p.send(response)
}

// Close closes the underlying connection. It is safe to call it more than
// once; only the first call has an effect.
func (p *Protocol) Close() error {
	p.once.Do(func() {
		p.err = p.conn.Close()
	})
	return p.err
}

func (p *Protocol) send(req *Message) error {
	if err := p.sendHeader(req); err != nil {
		return errors.Wrap(err, "header")
	}

	if err := p.sendBody(req); err != nil {
		return errors.Wrap(err, "body")
	}

	return nil
}

func (p *Protocol) sendHeader(req *Message) error {
	n, err := p.conn.Write(req.header[:])
	if err != nil {
		return err
	}

	if n != messageHeaderSize {
		return io.ErrShortWrite
	}

	return nil
}

func (p *Protocol) sendBody(req *Message) error {
	buf := req.body.Bytes[:req.body.Offset]
	n, err := p.conn.Write(buf)
	if err != nil {
		return err
	}

	if n != len(buf) {
		return io.ErrShortWrite
	}

	return nil
}

func (p *Protocol) recv(res *Message) error {
	res.reset()

	if err := p.recvHeader(res); err != nil {
		return errors.Wrap(err, "header")
	}

	if err := p.recvBody(res); err != nil {
		return errors.Wrap(err, "body")
	}

	return nil
}

func (p *Protocol) recvHeader(res *Message) error {
	if err := p.recvPeek(res.header); err != nil {
		return err
	}

	res.length = binary.LittleEndian.Uint32(res.header[0:])
	res.mtype = res.header[4]
	res.flags = res.header[5]

	return nil
}

func (p *Protocol) recvBody(res *Message) error {
	n := int(res.length)
	if n > messageMaxStringSize+messageHeaderSize*64 {
		return errors.Errorf("message body too large: %d bytes", n)
	}

	if n > len(res.body.Bytes) {
		res.body.Bytes = make([]byte, n)
	}

	buf := res.body.Bytes[:n]

	if err := p.recvPeek(buf); err != nil {
		return err
	}

	return nil
}

// Read until buf is full.
func (p *Protocol) recvPeek(buf []byte) error {
	for offset := 0; offset < len(buf); {
		n, err := p.recvFill(buf[offset:])
		if err != nil {
			return err
		}
		offset += n
	}

	return nil
}

// Try to fill buf, but perform at most one read.
func (p *Protocol) recvFill(buf []byte) (int, error) {
	// Read new data: try a limited number of times.
	//
	// This technique is copied from bufio.Reader.
	for i := messageMaxConsecutiveEmptyReads; i > 0; i-- {
		n, err := p.conn.Read(buf)
		if n < 0 {
			panic(errNegativeRead)
		}
		if err != nil {
			return -1, err
		}
		if n > 0 {
			return n, nil
		}
	}
	return -1, io.ErrNoProgress
}
