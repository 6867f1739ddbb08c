package protocol

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"strings"
)

// DialFunc is a function that can be used to establish a network connection.
type DialFunc func(context.Context, string) (net.Conn, error)

// Dial function handling plain TCP and Unix socket endpoints. Addresses
// starting with "@" (abstract) or "/" (filesystem path) are unix sockets.
func Dial(ctx context.Context, address string) (net.Conn, error) {
	family := "tcp"
	if strings.HasPrefix(address, "@") || strings.HasPrefix(address, "/") {
		family = "unix"
	}
	dialer := net.Dialer{}
	return dialer.DialContext(ctx, family, address)
}

// JoinHostPort builds the address to dial for the given host and port. Unix
// socket hosts are returned unchanged since they carry no port.
func JoinHostPort(host string, port int) string {
	if strings.HasPrefix(host, "@") || strings.HasPrefix(host, "/") {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// TLSCipherSuites are the cipher suites used by the go-nimbus TLS helpers.
var TLSCipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA,
	tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
}
