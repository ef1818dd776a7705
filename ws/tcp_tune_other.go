//go:build !linux

package ws

import "net"

// tuneTCPConn is a no-op outside Linux; the TCP_NODELAY/keepalive tuning
// is Linux syscalls with no portable equivalent.
func tuneTCPConn(conn net.Conn) {}
