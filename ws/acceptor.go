package ws

import "net"

// Acceptor is the pluggable TLS abstraction: a server accepts
// connections through an Acceptor without caring whether the underlying
// transport is plaintext or TLS.
type Acceptor interface {
	// Accept wraps a raw accepted connection, performing a TLS handshake
	// if applicable.
	Accept(conn net.Conn) (net.Conn, error)
}

// PlainAcceptor passes connections through unmodified.
type PlainAcceptor struct{}

func (PlainAcceptor) Accept(conn net.Conn) (net.Conn, error) { return conn, nil }
